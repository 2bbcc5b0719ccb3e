package Models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// SavedTimeLayout is how saved times appear in responses, CSVs and views.
const SavedTimeLayout = "2006-01-02 15:04:05"

// DeleteFlag is the tri-state "delete this report row" marker.
type DeleteFlag int

const (
	DeleteUnspecified DeleteFlag = iota
	DeleteYes
	DeleteNo
)

// UnmarshalJSON accepts the front-end values (是/否) as well as Y/N, yes/no and booleans.
func (d *DeleteFlag) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		if v {
			*d = DeleteYes
		} else {
			*d = DeleteNo
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "是", "y", "yes", "true":
			*d = DeleteYes
		case "否", "n", "no", "false":
			*d = DeleteNo
		default:
			*d = DeleteUnspecified
		}
	default:
		*d = DeleteUnspecified
	}
	return nil
}

// MarshalJSON writes the flag back the way the front-end sends it.
func (d DeleteFlag) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Label())
}

// Label is 是, 否 or empty.
func (d DeleteFlag) Label() string {
	switch d {
	case DeleteYes:
		return "是"
	case DeleteNo:
		return "否"
	}
	return ""
}

// Mark is the Y/N/blank form used inside the spreadsheet.
func (d DeleteFlag) Mark() string {
	switch d {
	case DeleteYes:
		return "Y"
	case DeleteNo:
		return "N"
	}
	return ""
}

// FieldValue holds a free-form scalar (text, number or date-time text) as text.
type FieldValue string

func (f *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FieldValue(s)
		return nil
	}
	// numbers and booleans keep their literal text
	*f = FieldValue(data)
	return nil
}

// Blank reports whether the value is empty once whitespace is trimmed.
func (f FieldValue) Blank() bool {
	return strings.TrimSpace(string(f)) == ""
}

func (f FieldValue) String() string {
	return string(f)
}

// FieldPair is the before/after value of one editable attribute.
type FieldPair struct {
	Original FieldValue
	Modified FieldValue
}

// Preferred returns the modified value when present, the original otherwise.
func (p FieldPair) Preferred() FieldValue {
	if !p.Modified.Blank() {
		return p.Modified
	}
	return p.Original
}

// EditableField describes one of the correctable attributes of a report row.
type EditableField struct {
	Key       string
	Label     string
	NumFormat string
	DateTime  bool
}

// EditableFields lists the correctable attributes in form/CSV order.
var EditableFields = []EditableField{
	{Key: "work_date", Label: "工作日期", NumFormat: "mm-dd-yy"},
	{Key: "worker_num", Label: "工作者編號", NumFormat: "General"},
	{Key: "machine_num", Label: "機台代號", NumFormat: "General"},
	{Key: "prod_num", Label: "工序編號", NumFormat: "General"},
	{Key: "finish_qty", Label: "完工數", NumFormat: "General"},
	{Key: "bad_qty", Label: "不良數", NumFormat: "General"},
	{Key: "start_time", Label: "起工時間", NumFormat: "yyyy/m/d h:mm", DateTime: true},
	{Key: "finish_time", Label: "完工時間", NumFormat: "yyyy/m/d h:mm", DateTime: true},
	{Key: "extra_name1", Label: "除外名稱1", NumFormat: "General"},
	{Key: "extra_time1", Label: "除外時間1", NumFormat: "General"},
	{Key: "extra_name2", Label: "除外名稱2", NumFormat: "General"},
	{Key: "extra_time2", Label: "除外時間2", NumFormat: "General"},
	{Key: "extra_name3", Label: "除外名稱3", NumFormat: "General"},
	{Key: "extra_time3", Label: "除外時間3", NumFormat: "General"},
}

// CorrectionEntry is one proposed edit (or deletion) of one production-log row.
// On the wire it is a flat object: <key>_original / <key>_modified per field.
type CorrectionEntry struct {
	ID          string
	DySerialNum string
	PdNum       string
	DeleteFlag  DeleteFlag
	// DateType is passed through from the client untouched.
	DateType  string
	WorkDate  FieldValue
	Fields    map[string]FieldPair
	SavedTime time.Time
}

// Field returns the pair for key; unknown keys yield an empty pair.
func (e CorrectionEntry) Field(key string) FieldPair {
	return e.Fields[key]
}

// HasModification is the admission gate: delete requested, or at least
// one modified value filled in.
func (e CorrectionEntry) HasModification() bool {
	if e.DeleteFlag == DeleteYes {
		return true
	}
	for _, f := range EditableFields {
		if !e.Fields[f.Key].Modified.Blank() {
			return true
		}
	}
	return false
}

// SavedTimeText formats SavedTime, empty when unset.
func (e CorrectionEntry) SavedTimeText() string {
	if e.SavedTime.IsZero() {
		return ""
	}
	return e.SavedTime.Format(SavedTimeLayout)
}

func (e *CorrectionEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	text := func(key string) (FieldValue, error) {
		var v FieldValue
		if msg, ok := raw[key]; ok {
			if err := v.UnmarshalJSON(msg); err != nil {
				return "", err
			}
		}
		return v, nil
	}

	out := CorrectionEntry{Fields: make(map[string]FieldPair, len(EditableFields))}
	for key, dst := range map[string]*string{
		"id":            &out.ID,
		"dy_serial_num": &out.DySerialNum,
		"pd_num":        &out.PdNum,
		"date_type":     &out.DateType,
	} {
		v, err := text(key)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(v.String())
	}

	if msg, ok := raw["delete_flag"]; ok {
		if err := out.DeleteFlag.UnmarshalJSON(msg); err != nil {
			return err
		}
	}

	workDate, err := text("work_date")
	if err != nil {
		return err
	}
	out.WorkDate = workDate

	for _, f := range EditableFields {
		orig, err := text(f.Key + "_original")
		if err != nil {
			return err
		}
		mod, err := text(f.Key + "_modified")
		if err != nil {
			return err
		}
		out.Fields[f.Key] = FieldPair{Original: orig, Modified: mod}
	}

	if msg, ok := raw["saved_time"]; ok {
		var s string
		if err := json.Unmarshal(msg, &s); err == nil && s != "" {
			if t, err := time.ParseInLocation(SavedTimeLayout, s, time.Local); err == nil {
				out.SavedTime = t
			}
		}
	}

	*e = out
	return nil
}

func (e CorrectionEntry) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"id":            e.ID,
		"dy_serial_num": e.DySerialNum,
		"pd_num":        e.PdNum,
		"delete_flag":   e.DeleteFlag,
		"saved_time":    e.SavedTimeText(),
	}
	if e.DateType != "" {
		m["date_type"] = e.DateType
	}
	if e.WorkDate != "" {
		m["work_date"] = e.WorkDate
	}
	for _, f := range EditableFields {
		pair := e.Fields[f.Key]
		m[f.Key+"_original"] = pair.Original
		m[f.Key+"_modified"] = pair.Modified
	}
	return json.Marshal(m)
}
