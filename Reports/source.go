package Reports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"ProductionReport/Models"
)

var ErrEmptySerial = errors.New("dy serial number is required")

// Source returns the report rows of one production daily report.
type Source interface {
	Fetch(ctx context.Context, dySerialNum string) ([]Models.ReportRow, error)
}

// NormalizeSerial trims the input, adds the DY prefix when it is missing and
// upper-cases the result.
func NormalizeSerial(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptySerial
	}
	if !strings.HasPrefix(strings.ToUpper(s), "DY") {
		s = "DY" + s
	}
	return strings.ToUpper(s), nil
}

// reportQuery is kept to functions every supported dialect shares. Time and
// date columns are selected bare so each driver reports their column type.
const reportQuery = `
SELECT
	c.DySerialNum AS dy_serial_num,
	c.CDate AS work_date,
	a.WorkerNum AS worker_num,
	a.WorkerName AS worker_name,
	b.ProdNum AS prod_num,
	b.description AS prod_desc,
	TRIM(COALESCE(e.PDNum, '')) AS pd_num,
	b.PDSerialNum AS pd_serial_num,
	TRIM(COALESCE(e.ProdNum, '')) AS product_num,
	TRIM(COALESCE(e.description, '')) AS product_spec,
	a.StartDate AS start_date,
	a.FinishDate AS finish_date,
	CASE WHEN COALESCE(a.csj, 0) = 0 THEN 0 ELSE 1 END AS trial_run,
	a.MachineNr AS machine_nr,
	TRIM(f.PordDept) AS machine_dept,
	b.TrueHr AS true_hr,
	b.FinishQty AS finish_qty,
	b.BadQty AS bad_qty,
	b.ExtraName1 AS extra_name1,
	b.OtherHours1 AS other_hours1,
	b.ExtraName2 AS extra_name2,
	b.OtherHours2 AS other_hours2,
	b.ExtraName3 AS extra_name3,
	b.OtherHours3 AS other_hours3,
	c.EditTime AS edit_time
FROM {s}TimeWorkBase a
LEFT JOIN {s}DayWorkDYProduct b
	ON a.DySerialNum = b.DySerialNum
	AND a.PDSerialNum = b.PDSerialNum
	AND a.OrdinalNum = b.OrdinalNum
LEFT JOIN {s}DayWorkDYBase c
	ON c.DySerialNum = b.DySerialNum
LEFT JOIN {s}ProcessPDBase e
	ON a.PDSerialNum = e.SerialNum
LEFT JOIN {s}Jang1Base f
	ON a.MachineNr = f.customernr
WHERE c.DySerialNum = ?
ORDER BY
	COALESCE(TRIM(f.PordDept), '') ASC,
	a.WorkerNum ASC,
	a.StartDate ASC`

// GormSource runs the report query through gorm.
type GormSource struct {
	DB    *gorm.DB
	query string
}

// NewGormSource qualifies the report tables with schema; pass "" for none.
func NewGormSource(db *gorm.DB, schema string) *GormSource {
	prefix := ""
	if schema != "" {
		prefix = schema + "."
	}
	return &GormSource{DB: db, query: strings.ReplaceAll(reportQuery, "{s}", prefix)}
}

func (s *GormSource) Fetch(ctx context.Context, dySerialNum string) ([]Models.ReportRow, error) {
	var rows []Models.ReportRow
	if err := s.DB.WithContext(ctx).Raw(s.query, dySerialNum).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying report %s: %w", dySerialNum, err)
	}
	for i := range rows {
		rows[i].ResolveStartType()
	}
	return rows, nil
}
