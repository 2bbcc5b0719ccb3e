package Controllers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"ProductionReport/ModQueue"
	"ProductionReport/Reports"
	"ProductionReport/Share"
)

var validate = validator.New()

// parseBody decodes and validates a JSON request body. An empty body is
// treated as an empty object.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(out); err != nil {
			return err
		}
	}
	return validate.Struct(out)
}

func ok(c *fiber.Ctx, message string, extra fiber.Map) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(body)
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": message})
}

var userMessages = map[error]string{
	ModQueue.ErrNoModification:  "尚未輸入任何修改資訊",
	ModQueue.ErrIndexOutOfRange: "無效的索引",
	ModQueue.ErrQueueEmpty:      "修改申請清單為空",
	ModQueue.ErrNoSameDay:       "沒有當天記錄可上傳",
	ModQueue.ErrNoDifferentDay:  "沒有非當天記錄可列印",
	ModQueue.ErrNothingToUpload: "沒有檔案可上傳",
	Reports.ErrEmptySerial:      "請輸入生產日報表序號",
}

// failErr maps a queue or report error to a status and a message the page
// can show as is. action prefixes messages of unexpected failures.
func failErr(c *fiber.Ctx, action string, err error) error {
	for sentinel, msg := range userMessages {
		if errors.Is(err, sentinel) {
			return fail(c, fiber.StatusBadRequest, msg)
		}
	}

	var uploadErr *ModQueue.UploadError
	if errors.As(err, &uploadErr) {
		if errors.Is(err, Share.ErrUnreachable) {
			return fail(c, fiber.StatusBadGateway, "無法連線至網路資料夾，檔案未上傳")
		}
		names := make([]string, 0, len(uploadErr.Failed))
		for _, p := range uploadErr.Failed {
			names = append(names, filepath.Base(p))
		}
		return fail(c, fiber.StatusBadGateway, "部分檔案上傳失敗: "+strings.Join(names, ", "))
	}

	if ModQueue.IsValidation(err) {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	return fail(c, fiber.StatusInternalServerError, fmt.Sprintf("%s失敗: %v", action, err))
}
