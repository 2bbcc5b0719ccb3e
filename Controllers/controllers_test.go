package Controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProductionReport/CronJobs"
	"ProductionReport/Exporter"
	"ProductionReport/Logger"
	"ProductionReport/ModQueue"
	"ProductionReport/Models"
	"ProductionReport/Share"
)

type fakeSource struct {
	rows []Models.ReportRow
	err  error
	got  string
}

func (f *fakeSource) Fetch(_ context.Context, serial string) ([]Models.ReportRow, error) {
	f.got = serial
	return f.rows, f.err
}

type testEnv struct {
	app    *fiber.App
	share  string
	source *fakeSource
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := Logger.Discard()
	share := t.TempDir()

	manager := ModQueue.NewManager(ModQueue.ManagerConfig{
		Dir:      t.TempDir(),
		Renderer: Exporter.ExcelRenderer{},
		Uploader: Share.NewUploader(Share.FolderShare{Root: share}, time.Second, log),
		Log:      log,
	})
	source := &fakeSource{}
	queue := NewQueueController(manager, log)
	report := NewReportController(source, log)
	report.Now = func() time.Time { return time.Date(2026, 10, 19, 9, 30, 15, 0, time.Local) }
	system := NewSystemController(CronJobs.NewIdleMonitor("@every 1s", time.Minute, nil, log), func() {}, log)

	app := fiber.New(fiber.Config{Views: html.New("../Templates", ".html")})
	app.Get("/print_page", queue.PrintPage)
	app.Get("/health", system.Health)
	app.Post("/api/heartbeat", system.Heartbeat)
	app.Post("/api/closing", system.Closing)
	app.Get("/shutdown", system.ShutdownNow)
	app.Post("/api/query", report.Query)
	app.Post("/api/export", report.Export)
	app.Post("/api/save", queue.Save)
	app.Post("/api/upload", queue.Upload)
	app.Post("/api/print", queue.Print)
	app.Get("/api/get_queue_types", queue.GetQueueTypes)
	app.Get("/api/get_queue_status", queue.GetQueueStatus)
	app.Post("/api/delete_queue_item", queue.DeleteQueueItem)
	app.Post("/api/clear_queue", queue.ClearQueue)
	app.Post("/api/clear_same_day_queue", queue.ClearSameDayQueue)
	app.Post("/api/clear_different_day_queue", queue.ClearDifferentDayQueue)

	return &testEnv{app: app, share: share, source: source}
}

func (e *testEnv) raw(t *testing.T, method, path, body string) (int, []byte, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data, resp.Header.Get("Content-Type")
}

func (e *testEnv) call(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	status, data, _ := e.raw(t, method, path, body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return status, out
}

func correctionBody(serial, workDate string) string {
	return `{
		"dy_serial_num": "` + serial + `",
		"pd_num": "MO-1",
		"delete_flag": "否",
		"work_date": "` + workDate + `",
		"work_date_original": "` + workDate + `",
		"worker_num_original": "W1",
		"worker_num_modified": "W2"
	}`
}

func shareNames(t *testing.T, dir string) []string {
	t.Helper()
	items, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, it := range items {
		names = append(names, it.Name())
	}
	return names
}

func TestSaveRejectsEmptyCorrection(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.call(t, "POST", "/api/save", `{"dy_serial_num":"DY1","delete_flag":"否"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "尚未輸入任何修改資訊", body["message"])

	status, body = env.call(t, "POST", "/api/save", `not json`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "請求格式錯誤", body["message"])
}

func TestQueueLifecycle(t *testing.T) {
	env := newTestEnv(t)
	today := time.Now().Format("2006-01-02")
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	status, body := env.call(t, "POST", "/api/save", correctionBody("DY001", today))
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, float64(1), body["queue_count"])
	assert.Empty(t, body["excel_files"])
	assert.True(t, strings.HasPrefix(body["csv_file"].(string), "生產日報表修改_DY001_"))

	status, body = env.call(t, "POST", "/api/save", correctionBody("DY002", yesterday))
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Len(t, body["excel_files"], 1)

	_, body = env.call(t, "GET", "/api/get_queue_types", "")
	assert.Equal(t, float64(1), body["same_day_count"])
	assert.Equal(t, float64(1), body["different_day_count"])
	assert.Equal(t, float64(2), body["total_count"])

	_, body = env.call(t, "GET", "/api/get_queue_status", "")
	require.Len(t, body["queue"], 2)
	first := body["queue"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "DY001", first["dy_serial_num"])
	assert.Equal(t, "W2", first["worker_num_modified"])

	// nothing selected: save never sets date_type
	status, body = env.call(t, "POST", "/api/clear_different_day_queue", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), body["queue_count"])

	status, body = env.call(t, "POST", "/api/print", "")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, []interface{}{"/print_page?indices=0"}, body["print_urls"])
	assert.Equal(t, float64(1), body["queue_count"])
	names := shareNames(t, env.share)
	assert.Len(t, names, 2)
	for _, n := range names {
		assert.True(t, Exporter.IsBatchArtifact(n) || strings.Contains(n, "DY002"), n)
	}

	status, page, contentType := env.raw(t, "GET", "/print_page?indices=0", "")
	require.Equal(t, fiber.StatusOK, status, string(page))
	assert.Contains(t, contentType, "text/html")
	assert.Contains(t, string(page), "DY002")
	assert.Contains(t, string(page), "工作者編號")

	status, body = env.call(t, "POST", "/api/upload", "")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, float64(0), body["queue_count"])
	assert.Contains(t, body["message"], "修改申請清單已清空")
	assert.Len(t, shareNames(t, env.share), 3)

	status, body = env.call(t, "POST", "/api/upload", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "沒有當天記錄可上傳", body["message"])

	status, body = env.call(t, "POST", "/api/print", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "修改申請清單為空", body["message"])
}

func TestPrintPageErrors(t *testing.T) {
	env := newTestEnv(t)

	status, data, _ := env.raw(t, "GET", "/print_page", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "缺少記錄索引", string(data))

	status, data, _ = env.raw(t, "GET", "/print_page?indices=0,x", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "無效的索引格式", string(data))

	status, _, _ = env.raw(t, "GET", "/print_page?indices=3", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestDeleteQueueItem(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.call(t, "POST", "/api/delete_queue_item", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "無效的索引", body["message"])

	status, body = env.call(t, "POST", "/api/save", correctionBody("DY003", "2026-01-02"))
	require.Equal(t, fiber.StatusOK, status, body)

	status, body = env.call(t, "POST", "/api/delete_queue_item", `{"index": 1}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "無效的索引", body["message"])

	status, body = env.call(t, "POST", "/api/delete_queue_item", `{"index": 0}`)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "已刪除記錄（生產日報表序號：DY003）", body["message"])
	assert.Equal(t, float64(0), body["queue_count"])
}

func TestClearQueue(t *testing.T) {
	env := newTestEnv(t)
	for _, serial := range []string{"DY1", "DY2"} {
		status, body := env.call(t, "POST", "/api/save", correctionBody(serial, "2026-01-02"))
		require.Equal(t, fiber.StatusOK, status, body)
	}

	status, body := env.call(t, "POST", "/api/clear_queue", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "已清空列印清單（原有 2 筆）", body["message"])

	_, body = env.call(t, "GET", "/api/get_queue_status", "")
	assert.Equal(t, float64(0), body["queue_count"])
	assert.Equal(t, []interface{}{}, body["queue"])
}

func TestClearDifferentDayQueueTagged(t *testing.T) {
	env := newTestEnv(t)
	tagged := strings.Replace(correctionBody("DY1", "2026-01-02"), `"pd_num"`, `"date_type": "different_day", "pd_num"`, 1)
	for _, body := range []string{tagged, correctionBody("DY2", "2026-01-02"), correctionBody("DY3", "2026-01-03")} {
		status, resp := env.call(t, "POST", "/api/save", body)
		require.Equal(t, fiber.StatusOK, status, resp)
	}

	status, body := env.call(t, "POST", "/api/clear_same_day_queue", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "已清空當天修改記錄（0 筆）", body["message"])
	assert.Equal(t, float64(3), body["queue_count"])

	status, body = env.call(t, "POST", "/api/clear_different_day_queue", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "已清空非當天修改記錄（1 筆）", body["message"])
	assert.Equal(t, float64(2), body["queue_count"])

	_, body = env.call(t, "GET", "/api/get_queue_status", "")
	assert.Equal(t, float64(2), body["queue_count"])
}

func TestQueryAndExport(t *testing.T) {
	env := newTestEnv(t)
	worker := "W1"
	env.source.rows = []Models.ReportRow{{DySerialNum: "DY001", PdNum: "MO-1", WorkerNum: &worker, StartType: Models.StartTypeStandard}}

	status, body := env.call(t, "POST", "/api/query", `{"dySerialNum": " 001 "}`)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "DY001", env.source.got)
	assert.Equal(t, float64(1), body["count"])
	row := body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "W1", row["工作者編號"])
	assert.Nil(t, row["工作日期"])

	status, data, contentType := env.raw(t, "POST", "/api/export", `{"dySerialNum": "dy001"}`)
	require.Equal(t, fiber.StatusOK, status, string(data))
	assert.Contains(t, contentType, "spreadsheetml")
	assert.True(t, strings.HasPrefix(string(data), "PK"), "xlsx is a zip archive")

	status, body = env.call(t, "POST", "/api/query", `{"dySerialNum": "  "}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "請輸入生產日報表序號", body["message"])

	env.source.rows = nil
	status, body = env.call(t, "POST", "/api/query", `{"dySerialNum": "DY404"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "查無資料", body["message"])

	status, body = env.call(t, "POST", "/api/export", `{"dySerialNum": "DY404"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "無資料可匯出", body["message"])

	env.source.err = errors.New("connection refused")
	status, body = env.call(t, "POST", "/api/query", `{"dySerialNum": "DY001"}`)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "資料庫查詢錯誤", body["message"])
}

func TestSystemRoutes(t *testing.T) {
	env := newTestEnv(t)

	status, data, _ := env.raw(t, "GET", "/health", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", string(data))

	status, body := env.call(t, "POST", "/api/heartbeat", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = env.call(t, "POST", "/api/closing", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])

	// app.Test connections come from 0.0.0.0
	status, data, _ = env.raw(t, "GET", "/shutdown", "")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "forbidden", string(data))
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, IsLoopback("127.0.0.1"))
	assert.True(t, IsLoopback("::1"))
	assert.False(t, IsLoopback("192.168.0.18"))
	assert.False(t, IsLoopback(""))
}

func TestNewPrintRecordBlanksOriginalOnDelete(t *testing.T) {
	e := Models.CorrectionEntry{
		DySerialNum: "DY1",
		DeleteFlag:  Models.DeleteYes,
		Fields: map[string]Models.FieldPair{
			"worker_num": {Original: "W1", Modified: "W2"},
		},
	}
	rec := NewPrintRecord(e)
	require.Len(t, rec.Fields, len(Models.EditableFields))
	assert.Equal(t, "Y", rec.DeleteMark)
	assert.Equal(t, "工作者編號", rec.Fields[1].Label)
	assert.Empty(t, rec.Fields[1].Original)
	assert.Equal(t, "W2", rec.Fields[1].Modified)
}
