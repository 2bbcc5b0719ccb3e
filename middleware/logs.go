package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// LogConfig holds configuration for the logging middleware
type LogConfig struct {
	Logger logrus.FieldLogger
	// Skip logging for these paths and anything below them
	SkipPaths []string
	// Include request body in logs
	IncludeBody bool
}

// LogData contains all the information that will be logged
type LogData struct {
	Method        string        `json:"method"`
	Path          string        `json:"path"`
	URL           string        `json:"url"`
	Status        int           `json:"status"`
	Latency       time.Duration `json:"latency"`
	IP            string        `json:"ip"`
	UserAgent     string        `json:"user_agent"`
	RequestBody   interface{}   `json:"request_body,omitempty"`
	Error         string        `json:"error,omitempty"`
	ContentLength int64         `json:"content_length"`
}

func (d LogData) fields() logrus.Fields {
	f := logrus.Fields{
		"method":         d.Method,
		"path":           d.Path,
		"status":         d.Status,
		"latency":        d.Latency.String(),
		"ip":             d.IP,
		"content_length": d.ContentLength,
	}
	if d.URL != d.Path {
		f["url"] = d.URL
	}
	if d.UserAgent != "" {
		f["user_agent"] = d.UserAgent
	}
	if d.RequestBody != nil {
		f["request_body"] = d.RequestBody
	}
	if d.Error != "" {
		f["error"] = d.Error
	}
	return f
}

// Skipped reports whether path is one of skipPaths or lies below one.
func Skipped(path string, skipPaths []string) bool {
	for _, skip := range skipPaths {
		if path == skip || strings.HasPrefix(path, strings.TrimSuffix(skip, "/")+"/") {
			return true
		}
	}
	return false
}

// LoggingMiddleware logs one line per request. The polling endpoints the
// page hits every few seconds belong in SkipPaths.
func LoggingMiddleware(cfg LogConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Skipped(c.Path(), cfg.SkipPaths) {
			return c.Next()
		}
		start := time.Now()

		var requestBody interface{}
		if cfg.IncludeBody && c.Method() != fiber.MethodGet {
			if body := c.Body(); len(body) > 0 {
				var jsonData interface{}
				if err := json.Unmarshal(body, &jsonData); err == nil {
					requestBody = jsonData
				} else {
					requestBody = string(body)
				}
			}
		}

		err := c.Next()

		data := LogData{
			Method:        c.Method(),
			Path:          c.Path(),
			URL:           c.OriginalURL(),
			Status:        c.Response().StatusCode(),
			Latency:       time.Since(start),
			IP:            c.IP(),
			UserAgent:     c.Get(fiber.HeaderUserAgent),
			RequestBody:   requestBody,
			ContentLength: int64(len(c.Response().Body())),
		}
		if err != nil {
			data.Error = err.Error()
			if fe, ok := err.(*fiber.Error); ok {
				data.Status = fe.Code
			} else {
				data.Status = fiber.StatusInternalServerError
			}
		}

		entry := cfg.Logger.WithFields(data.fields())
		switch {
		case data.Status >= 500:
			entry.Error("request failed")
		case data.Status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request")
		}
		return err
	}
}
