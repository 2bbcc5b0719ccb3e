package Models

import (
	"database/sql"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ReportTime is a nullable timestamp that serialises as "YYYY-MM-DD HH:MM:SS".
type ReportTime struct {
	sql.NullTime
}

func (t ReportTime) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(SavedTimeLayout))
}

// ReportDate is a nullable date that serialises as "YYYY-MM-DD".
type ReportDate struct {
	sql.NullTime
}

func (d ReportDate) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format("2006-01-02"))
}

// ReportRow is one line of the production daily report for a DySerialNum.
// JSON keys are the column captions the table view binds to.
type ReportRow struct {
	DySerialNum string              `gorm:"column:dy_serial_num" json:"生產日報表序號"`
	WorkDate    ReportDate          `gorm:"column:work_date" json:"工作日期"`
	WorkerNum   *string             `gorm:"column:worker_num" json:"工作者編號"`
	WorkerName  *string             `gorm:"column:worker_name" json:"工作者名稱"`
	ProdNum     *string             `gorm:"column:prod_num" json:"工序編號"`
	ProdDesc    *string             `gorm:"column:prod_desc" json:"工序內容"`
	PdNum       string              `gorm:"column:pd_num" json:"發工單號"`
	PdSerialNum *string             `gorm:"column:pd_serial_num" json:"製令序號"`
	ProductNum  string              `gorm:"column:product_num" json:"產品編號"`
	ProductSpec string              `gorm:"column:product_spec" json:"品名規格"`
	StartDate   ReportTime          `gorm:"column:start_date" json:"起工時間"`
	FinishDate  ReportTime          `gorm:"column:finish_date" json:"完工時間"`
	StartType   string              `gorm:"-" json:"起工型態"`
	TrialRun    int                 `gorm:"column:trial_run" json:"-"`
	MachineNr   *string             `gorm:"column:machine_nr" json:"機台編號"`
	MachineDept *string             `gorm:"column:machine_dept" json:"機台部門"`
	TrueHours   decimal.NullDecimal `gorm:"column:true_hr" json:"實際工時"`
	FinishQty   decimal.NullDecimal `gorm:"column:finish_qty" json:"完工數"`
	BadQty      decimal.NullDecimal `gorm:"column:bad_qty" json:"不良數"`
	ExtraName1  *string             `gorm:"column:extra_name1" json:"除外名稱1"`
	OtherHours1 decimal.NullDecimal `gorm:"column:other_hours1" json:"除外時間1"`
	ExtraName2  *string             `gorm:"column:extra_name2" json:"除外名稱2"`
	OtherHours2 decimal.NullDecimal `gorm:"column:other_hours2" json:"除外時間2"`
	ExtraName3  *string             `gorm:"column:extra_name3" json:"除外名稱3"`
	OtherHours3 decimal.NullDecimal `gorm:"column:other_hours3" json:"除外時間3"`
	EditTime    ReportTime          `gorm:"column:edit_time" json:"編輯時間"`
}

const (
	StartTypeStandard = "標準起工"
	StartTypeTrial    = "試模"
)

// ResolveStartType fills StartType from the trial run flag.
func (r *ReportRow) ResolveStartType() {
	if r.TrialRun == 0 {
		r.StartType = StartTypeStandard
	} else {
		r.StartType = StartTypeTrial
	}
}

// ReportColumns is the spreadsheet header for exported report rows.
var ReportColumns = []string{
	"生產日報表序號", "工作日期", "工作者編號", "工作者名稱", "工序編號", "工序內容",
	"發工單號", "製令序號", "產品編號", "品名規格", "起工時間", "完工時間", "起工型態",
	"機台編號", "機台部門", "實際工時", "完工數", "不良數", "除外名稱1", "除外時間1",
	"除外名稱2", "除外時間2", "除外名稱3", "除外時間3", "編輯時間",
}

// Cells returns the row in ReportColumns order, nulls as empty strings.
func (r ReportRow) Cells() []interface{} {
	str := func(s *string) interface{} {
		if s == nil {
			return ""
		}
		return *s
	}
	dec := func(d decimal.NullDecimal) interface{} {
		if !d.Valid {
			return ""
		}
		f, _ := d.Decimal.Float64()
		return f
	}
	tm := func(t sql.NullTime, layout string) interface{} {
		if !t.Valid {
			return ""
		}
		return t.Time.Format(layout)
	}
	return []interface{}{
		r.DySerialNum,
		tm(r.WorkDate.NullTime, "2006-01-02"),
		str(r.WorkerNum),
		str(r.WorkerName),
		str(r.ProdNum),
		str(r.ProdDesc),
		r.PdNum,
		str(r.PdSerialNum),
		r.ProductNum,
		r.ProductSpec,
		tm(r.StartDate.NullTime, SavedTimeLayout),
		tm(r.FinishDate.NullTime, SavedTimeLayout),
		r.StartType,
		str(r.MachineNr),
		str(r.MachineDept),
		dec(r.TrueHours),
		dec(r.FinishQty),
		dec(r.BadQty),
		str(r.ExtraName1),
		dec(r.OtherHours1),
		str(r.ExtraName2),
		dec(r.OtherHours2),
		str(r.ExtraName3),
		dec(r.OtherHours3),
		tm(r.EditTime.NullTime, SavedTimeLayout),
	}
}
