package middleware

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"Meridian/Models"
)

const RequestIDHeader = "X-Request-ID"

// LogConfig holds configuration for the logging middleware
type LogConfig struct {
	// Structured logger; nil disables console logging
	Logger *zap.Logger
	// Append JSON lines to LogFilePath
	File        bool
	LogFilePath string
	// Include request body in logs
	IncludeBody bool
	// Skip logging for specific paths
	SkipPaths []string
}

// LogData contains all the information that will be logged
type LogData struct {
	Timestamp     time.Time     `json:"timestamp"`
	Method        string        `json:"method"`
	Path          string        `json:"path"`
	URL           string        `json:"url"`
	Status        int           `json:"status"`
	Latency       time.Duration `json:"latency"`
	IP            string        `json:"ip"`
	UserAgent     string        `json:"user_agent"`
	RequestID     string        `json:"request_id"`
	RequestBody   interface{}   `json:"request_body,omitempty"`
	Error         string        `json:"error,omitempty"`
	UserID        uint          `json:"user_id,omitempty"`
	Username      string        `json:"username,omitempty"`
	ContentLength int64         `json:"content_length"`
}

// DefaultLogConfig returns a default configuration for the logging middleware
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Logger:      zap.NewNop(),
		File:        true,
		LogFilePath: "logs/requests.log",
		SkipPaths:   []string{"/health", "/metrics"},
	}
}

// LoggingMiddleware tags every request with an id, then logs it to zap and
// to the request log file once the handler returns.
func LoggingMiddleware(config ...LogConfig) fiber.Handler {
	cfg := DefaultLogConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	// Ensure logs directory exists
	if cfg.File {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0755); err != nil {
			cfg.Logger.Error("error creating logs directory", zap.Error(err))
		}
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Locals("request_id", requestID)
		c.Set(RequestIDHeader, requestID)

		for _, skipPath := range cfg.SkipPaths {
			if c.Path() == skipPath {
				return c.Next()
			}
		}

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

		logData := LogData{
			Timestamp:     start,
			Method:        c.Method(),
			Path:          c.Path(),
			URL:           c.OriginalURL(),
			Status:        c.Response().StatusCode(),
			Latency:       time.Since(start),
			IP:            c.IP(),
			UserAgent:     c.Get(fiber.HeaderUserAgent),
			RequestID:     requestID,
			RequestBody:   requestBody,
			ContentLength: int64(len(c.Response().Body())),
		}
		if user, ok := c.Locals("user").(Models.User); ok {
			logData.UserID = user.ID
			logData.Username = user.Name
		}
		if err != nil {
			logData.Error = err.Error()
		}

		logRequest(cfg, logData)
		return err
	}
}

func logRequest(cfg LogConfig, data LogData) {
	fields := []zap.Field{
		zap.String("request_id", data.RequestID),
		zap.String("method", data.Method),
		zap.String("path", data.Path),
		zap.Int("status", data.Status),
		zap.Duration("latency", data.Latency),
		zap.String("ip", data.IP),
	}
	if data.UserID != 0 {
		fields = append(fields, zap.Uint("user_id", data.UserID))
	}
	switch {
	case data.Status >= 500 || data.Error != "":
		cfg.Logger.Error("request", append(fields, zap.String("error", data.Error))...)
	case data.Status >= 400:
		cfg.Logger.Warn("request", fields...)
	default:
		cfg.Logger.Info("request", fields...)
	}

	if cfg.File {
		jsonData, err := json.Marshal(data)
		if err != nil {
			cfg.Logger.Error("error encoding request log", zap.Error(err))
			return
		}
		logToFile(cfg.Logger, cfg.LogFilePath, string(jsonData))
	}
}

// logToFile writes the log message to a file
func logToFile(logger *zap.Logger, filePath, message string) {
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		logger.Error("error opening log file", zap.String("path", filePath), zap.Error(err))
		return
	}
	defer file.Close()

	if len(message) > 0 && message[len(message)-1] != '\n' {
		message += "\n"
	}
	if _, err := file.WriteString(message); err != nil {
		logger.Error("error writing to log file", zap.String("path", filePath), zap.Error(err))
	}
}

// RequestLogger creates a middleware that logs detailed request information
func RequestLogger(logger *zap.Logger, dir string) fiber.Handler {
	return LoggingMiddleware(LogConfig{
		Logger:      logger,
		File:        dir != "",
		LogFilePath: filepath.Join(dir, "requests.log"),
		SkipPaths:   []string{"/health", "/metrics", "/static"},
	})
}
