package Controllers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"ProductionReport/Exporter"
	"ProductionReport/Logger"
	"ProductionReport/ModQueue"
	"ProductionReport/Models"
)

// QueueController exposes the modification queue.
type QueueController struct {
	Manager *ModQueue.Manager
	Log     logrus.FieldLogger
}

func NewQueueController(manager *ModQueue.Manager, log logrus.FieldLogger) *QueueController {
	return &QueueController{Manager: manager, Log: log}
}

type DeleteQueueItemRequest struct {
	Index *int `json:"index" validate:"required"`
}

// Save queues a correction and writes its artifacts.
// POST /api/save
func (qc *QueueController) Save(c *fiber.Ctx) error {
	var entry Models.CorrectionEntry
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&entry); err != nil {
			return fail(c, fiber.StatusBadRequest, "請求格式錯誤")
		}
	}

	res, err := qc.Manager.Save(entry)
	if err != nil {
		if !ModQueue.IsValidation(err) {
			Logger.LogError(qc.Log, "Controllers", "Save", "saving correction", entry.DySerialNum, err)
		}
		return failErr(c, "儲存", err)
	}
	return ok(c, fmt.Sprintf("已儲存至列印清單（目前 %d 筆）", res.QueueCount), fiber.Map{
		"queue_count": res.QueueCount,
		"excel_files": nonNil(res.BatchFiles),
		"csv_file":    res.CsvFile,
	})
}

// Upload sends the same-day corrections to the share.
// POST /api/upload
func (qc *QueueController) Upload(c *fiber.Ctx) error {
	res, err := qc.Manager.Upload(c.UserContext())
	if err != nil {
		if !ModQueue.IsValidation(err) {
			Logger.LogError(qc.Log, "Controllers", "Upload", "uploading same-day corrections", nil, err)
		}
		return failErr(c, "上傳", err)
	}

	msg := fmt.Sprintf("已成功上傳 %d 筆當天記錄（%d 個 CSV + %d 個 Excel），", res.Removed, len(res.CsvFiles), len(res.BatchFiles))
	if res.QueueCount > 0 {
		msg += fmt.Sprintf("修改申請清單還有 %d 筆非當天記錄", res.QueueCount)
	} else {
		msg += "修改申請清單已清空"
	}
	return ok(c, msg, fiber.Map{
		"uploaded_count": res.Removed,
		"csv_files":      nonNil(res.CsvFiles),
		"excel_files":    nonNil(res.BatchFiles),
		"queue_count":    res.QueueCount,
	})
}

// Print sends the different-day corrections to the share and returns the
// print page for them.
// POST /api/print
func (qc *QueueController) Print(c *fiber.Ctx) error {
	res, err := qc.Manager.Print(c.UserContext())
	if err != nil {
		if !ModQueue.IsValidation(err) {
			Logger.LogError(qc.Log, "Controllers", "Print", "uploading different-day corrections", nil, err)
		}
		return failErr(c, "列印", err)
	}

	msg := fmt.Sprintf("已上傳 %d 筆非當天記錄（%d 個 CSV + %d 個 Excel），已生成列印頁面", res.Removed, len(res.CsvFiles), len(res.BatchFiles))
	if res.QueueCount > 0 {
		msg += fmt.Sprintf("；修改申請清單還有 %d 筆當天記錄", res.QueueCount)
	} else {
		msg += "；修改申請清單已清空"
	}
	return ok(c, msg, fiber.Map{
		"print_urls":  []string{res.PrintURL},
		"print_count": res.Removed,
		"csv_files":   nonNil(res.CsvFiles),
		"excel_files": nonNil(res.BatchFiles),
		"queue_count": res.QueueCount,
	})
}

// GetQueueTypes returns the same-day / different-day split.
// GET /api/get_queue_types
func (qc *QueueController) GetQueueTypes(c *fiber.Ctx) error {
	counts := qc.Manager.Counts()
	return ok(c, "", fiber.Map{
		"same_day_count":      counts.SameDay,
		"different_day_count": counts.DifferentDay,
		"total_count":         counts.Total,
	})
}

// GetQueueStatus lists the queue.
// GET /api/get_queue_status
func (qc *QueueController) GetQueueStatus(c *fiber.Ctx) error {
	queue := qc.Manager.Queue()
	return ok(c, "", fiber.Map{
		"queue_count": len(queue),
		"queue":       nonNil(queue),
	})
}

// DeleteQueueItem removes one entry by position.
// POST /api/delete_queue_item
func (qc *QueueController) DeleteQueueItem(c *fiber.Ctx) error {
	var req DeleteQueueItemRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, userMessages[ModQueue.ErrIndexOutOfRange])
	}

	res, err := qc.Manager.DeleteAt(*req.Index)
	if err != nil {
		if !ModQueue.IsValidation(err) {
			Logger.LogError(qc.Log, "Controllers", "DeleteQueueItem", "regenerating batches", *req.Index, err)
		}
		return failErr(c, "刪除", err)
	}
	serial := res.Entry.DySerialNum
	if serial == "" {
		serial = "UNKNOWN"
	}
	return ok(c, fmt.Sprintf("已刪除記錄（生產日報表序號：%s）", serial), fiber.Map{
		"queue_count": res.QueueCount,
	})
}

// ClearQueue drops every entry and every artifact.
// POST /api/clear_queue
func (qc *QueueController) ClearQueue(c *fiber.Ctx) error {
	count := qc.Manager.ClearAll()
	return ok(c, fmt.Sprintf("已清空列印清單（原有 %d 筆）", count), fiber.Map{"queue_count": 0})
}

// ClearSameDayQueue removes entries the client tagged date_type=same_day.
// POST /api/clear_same_day_queue
func (qc *QueueController) ClearSameDayQueue(c *fiber.Ctx) error {
	return qc.clearDateType(c, ModQueue.SameDay, "已清空當天修改記錄（%d 筆）")
}

// ClearDifferentDayQueue removes entries the client tagged date_type=different_day.
// POST /api/clear_different_day_queue
func (qc *QueueController) ClearDifferentDayQueue(c *fiber.Ctx) error {
	return qc.clearDateType(c, ModQueue.DifferentDay, "已清空非當天修改記錄（%d 筆）")
}

func (qc *QueueController) clearDateType(c *fiber.Ctx, class ModQueue.DayClass, format string) error {
	res, err := qc.Manager.ClearDateType(class.String())
	if err != nil {
		Logger.LogError(qc.Log, "Controllers", "clearDateType", "regenerating batches", class.String(), err)
		return failErr(c, "清除", err)
	}
	return ok(c, fmt.Sprintf(format, res.Removed), fiber.Map{"queue_count": res.QueueCount})
}

// PrintField is one row of the printed form.
type PrintField struct {
	Label    string
	Original string
	Modified string
}

// PrintRecord is one correction as the print page shows it.
type PrintRecord struct {
	DySerialNum string
	PdNum       string
	Delete      bool
	DeleteMark  string
	SavedTime   string
	Fields      []PrintField
}

func NewPrintRecord(e Models.CorrectionEntry) PrintRecord {
	rec := PrintRecord{
		DySerialNum: e.DySerialNum,
		PdNum:       e.PdNum,
		Delete:      e.DeleteFlag == Models.DeleteYes,
		DeleteMark:  e.DeleteFlag.Mark(),
		SavedTime:   e.SavedTimeText(),
	}
	for _, f := range Models.EditableFields {
		pair := e.Field(f.Key)
		pf := PrintField{Label: f.Label, Modified: pair.Modified.String()}
		if !rec.Delete {
			pf.Original = pair.Original.String()
		}
		rec.Fields = append(rec.Fields, pf)
	}
	return rec
}

// PrintPage renders the print snapshot entries named by ?indices=0,1,...
// two to a sheet.
// GET /print_page
func (qc *QueueController) PrintPage(c *fiber.Ctx) error {
	raw := c.Query("indices")
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).SendString("缺少記錄索引")
	}
	var indices []int
	for _, part := range strings.Split(raw, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("無效的索引格式")
		}
		indices = append(indices, i)
	}

	entries := qc.Manager.PrintRecords(indices)
	if len(entries) == 0 {
		qc.Log.WithFields(logrus.Fields{
			"indices":  raw,
			"snapshot": qc.Manager.SnapshotLen(),
		}).Warn("print page found no records")
		return c.Status(fiber.StatusNotFound).SendString("找不到記錄")
	}

	var sheets [][]PrintRecord
	for _, chunk := range Exporter.Chunk(entries, Exporter.SlotsPerBatch) {
		sheet := make([]PrintRecord, 0, len(chunk))
		for _, e := range chunk {
			sheet = append(sheet, NewPrintRecord(e))
		}
		sheets = append(sheets, sheet)
	}
	return c.Render("print_template", fiber.Map{"Sheets": sheets})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
