package Reports

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ProductionReport/Models"
)

var fixtureSchema = []string{
	`CREATE TABLE TimeWorkBase (DySerialNum TEXT, PDSerialNum TEXT, OrdinalNum INTEGER, WorkerNum TEXT,
		WorkerName TEXT, StartDate DATETIME, FinishDate DATETIME, csj INTEGER, MachineNr TEXT)`,
	`CREATE TABLE DayWorkDYProduct (DySerialNum TEXT, PDSerialNum TEXT, OrdinalNum INTEGER, ProdNum TEXT,
		description TEXT, TrueHr REAL, FinishQty INTEGER, BadQty INTEGER, ExtraName1 TEXT, OtherHours1 REAL,
		ExtraName2 TEXT, OtherHours2 REAL, ExtraName3 TEXT, OtherHours3 REAL)`,
	`CREATE TABLE DayWorkDYBase (DySerialNum TEXT, CDate DATE, EditTime DATETIME)`,
	`CREATE TABLE ProcessPDBase (SerialNum TEXT, PDNum TEXT, ProdNum TEXT, description TEXT)`,
	`CREATE TABLE Jang1Base (customernr TEXT, PordDept TEXT)`,
}

var fixtureRows = []string{
	`INSERT INTO DayWorkDYBase VALUES ('DY001', '2026-10-18', '2026-10-18 17:00:00')`,
	`INSERT INTO DayWorkDYBase VALUES ('DY999', '2026-10-18', NULL)`,
	`INSERT INTO ProcessPDBase VALUES ('PD1', ' MO-1 ', 'P-100', '螺絲 M3')`,
	`INSERT INTO Jang1Base VALUES ('M1', ' B ')`,
	`INSERT INTO Jang1Base VALUES ('M2', 'A')`,

	`INSERT INTO TimeWorkBase VALUES ('DY001', 'PD1', 1, 'W2', '王小明', '2026-10-18 08:00:00', '2026-10-18 12:00:00', 0, 'M1')`,
	`INSERT INTO DayWorkDYProduct VALUES ('DY001', 'PD1', 1, 'OP10', '車削', 3.5, 100, 2, '停機', 0.5, NULL, NULL, NULL, NULL)`,
	`INSERT INTO TimeWorkBase VALUES ('DY001', 'PD1', 2, 'W1', '陳大同', '2026-10-18 09:00:00', NULL, 1, 'M2')`,
	`INSERT INTO DayWorkDYProduct VALUES ('DY001', 'PD1', 2, 'OP20', '銑削', 1, 40, 0, NULL, NULL, NULL, NULL, NULL, NULL)`,
	`INSERT INTO TimeWorkBase VALUES ('DY001', 'PD1', 3, 'W1', '陳大同', '2026-10-18 07:00:00', '2026-10-18 08:00:00', NULL, 'M1')`,
	`INSERT INTO DayWorkDYProduct VALUES ('DY001', 'PD1', 3, 'OP10', '車削', 1, 20, 1, NULL, NULL, NULL, NULL, NULL, NULL)`,

	`INSERT INTO TimeWorkBase VALUES ('DY999', 'PD1', 1, 'W9', 'x', '2026-10-18 08:00:00', NULL, 0, 'M1')`,
	`INSERT INTO DayWorkDYProduct VALUES ('DY999', 'PD1', 1, 'OP10', 'x', 1, 1, 0, NULL, NULL, NULL, NULL, NULL, NULL)`,
}

func fixtureDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "report.db")),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	for _, stmt := range append(fixtureSchema, fixtureRows...) {
		require.NoError(t, db.Exec(stmt).Error, stmt)
	}
	return db
}

func TestGormSourceFetch(t *testing.T) {
	src := NewGormSource(fixtureDB(t), "")

	rows, err := src.Fetch(context.Background(), "DY001")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// machine department, then worker, then start time
	assert.Equal(t, "W1", *rows[0].WorkerNum)
	assert.Equal(t, "A", *rows[0].MachineDept)
	assert.Equal(t, "W1", *rows[1].WorkerNum)
	assert.Equal(t, "B", *rows[1].MachineDept)
	assert.Equal(t, "W2", *rows[2].WorkerNum)

	first := rows[0]
	assert.Equal(t, "DY001", first.DySerialNum)
	assert.Equal(t, "MO-1", first.PdNum)
	assert.Equal(t, "P-100", first.ProductNum)
	assert.Equal(t, Models.StartTypeTrial, first.StartType)
	assert.False(t, first.FinishDate.Valid)
	assert.True(t, first.WorkDate.Valid)
	assert.Equal(t, "2026-10-18", first.WorkDate.Time.Format("2006-01-02"))

	last := rows[2]
	assert.Equal(t, Models.StartTypeStandard, last.StartType)
	assert.Equal(t, "3.5", last.TrueHours.Decimal.String())
	assert.Equal(t, "100", last.FinishQty.Decimal.String())
	assert.Equal(t, "停機", *last.ExtraName1)
	assert.False(t, last.OtherHours2.Valid)
	assert.Nil(t, last.ExtraName2)

	none, err := src.Fetch(context.Background(), "DY404")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNewGormSourceSchemaPrefix(t *testing.T) {
	src := NewGormSource(nil, "dbo")
	assert.Contains(t, src.query, "FROM dbo.TimeWorkBase a")
	assert.Contains(t, src.query, "LEFT JOIN dbo.Jang1Base f")
	assert.NotContains(t, src.query, "{s}")
}

func TestNormalizeSerial(t *testing.T) {
	cases := map[string]string{
		"DY001":      "DY001",
		"  dy001 ":   "DY001",
		"001":        "DY001",
		"Dy20261019": "DY20261019",
		"abc":        "DYABC",
	}
	for in, want := range cases {
		got, err := NormalizeSerial(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := NormalizeSerial("   ")
	assert.ErrorIs(t, err, ErrEmptySerial)
}

func TestExportRows(t *testing.T) {
	rows, err := NewGormSource(fixtureDB(t), "").Fetch(context.Background(), "DY001")
	require.NoError(t, err)

	buf, err := ExportRows(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, SheetName, f.GetSheetName(f.GetActiveSheetIndex()))
	all, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, Models.ReportColumns, all[0])
	assert.Equal(t, "DY001", all[1][0])
	assert.Equal(t, "2026-10-18", all[1][1])
	assert.Equal(t, "W1", all[1][2])
}

func TestExportName(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 30, 15, 0, time.Local)
	assert.Equal(t, "生產日報表_DY001_20261019_093015.xlsx", ExportName("DY001", at))
}
