package Controllers

import (
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"ProductionReport/Logger"
	"ProductionReport/Reports"
)

// ReportController looks up production daily reports.
type ReportController struct {
	Source Reports.Source
	Log    logrus.FieldLogger
	Now    func() time.Time
}

func NewReportController(source Reports.Source, log logrus.FieldLogger) *ReportController {
	return &ReportController{Source: source, Log: log, Now: time.Now}
}

type QueryRequest struct {
	DySerialNum string `json:"dySerialNum" validate:"required"`
}

// Query returns the report rows for one DySerialNum.
// POST /api/query
func (rc *ReportController) Query(c *fiber.Ctx) error {
	var req QueryRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, userMessages[Reports.ErrEmptySerial])
	}
	serial, err := Reports.NormalizeSerial(req.DySerialNum)
	if err != nil {
		return failErr(c, "查詢", err)
	}

	rows, err := rc.Source.Fetch(c.UserContext(), serial)
	if err != nil {
		Logger.LogError(rc.Log, "Controllers", "Query", "querying report", serial, err)
		return fail(c, fiber.StatusInternalServerError, "資料庫查詢錯誤")
	}
	if len(rows) == 0 {
		return fail(c, fiber.StatusNotFound, "查無資料")
	}
	return ok(c, "", fiber.Map{"data": rows, "count": len(rows)})
}

// Export streams the report rows for one DySerialNum as a workbook.
// POST /api/export
func (rc *ReportController) Export(c *fiber.Ctx) error {
	var req QueryRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, userMessages[Reports.ErrEmptySerial])
	}
	serial, err := Reports.NormalizeSerial(req.DySerialNum)
	if err != nil {
		return failErr(c, "匯出", err)
	}

	rows, err := rc.Source.Fetch(c.UserContext(), serial)
	if err != nil {
		Logger.LogError(rc.Log, "Controllers", "Export", "querying report", serial, err)
		return fail(c, fiber.StatusInternalServerError, "資料庫查詢錯誤")
	}
	if len(rows) == 0 {
		return fail(c, fiber.StatusNotFound, "無資料可匯出")
	}

	buf, err := Reports.ExportRows(rows)
	if err != nil {
		Logger.LogError(rc.Log, "Controllers", "Export", "building workbook", serial, err)
		return fail(c, fiber.StatusInternalServerError, fmt.Sprintf("匯出失敗: %v", err))
	}

	filename := Reports.ExportName(serial, rc.Now())
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename)))
	return c.Send(buf.Bytes())
}
