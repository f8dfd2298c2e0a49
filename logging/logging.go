package logging

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Field names shared by every component so log lines can be joined on them.
const (
	FieldService    = "service"
	FieldOrderID    = "order_id"
	FieldCartID     = "cart_id"
	FieldUserID     = "user_id"
	FieldProductID  = "product_id"
	FieldEventID    = "event_id"
	FieldStep       = "step"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldRequestID  = "request_id"
)

// New returns a JSON logger tagged with the service name. Unknown levels fall back to info.
func New(service, level string) *logrus.Entry {
	return NewWithOutput(service, level, os.Stdout)
}

func NewWithOutput(service, level string, out io.Writer) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg:  "message",
			logrus.FieldKeyTime: "timestamp",
		},
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger.WithField(FieldService, service)
}

// Discard is a logger that drops everything, for tests.
func Discard() *logrus.Entry {
	return NewWithOutput("test", "panic", io.Discard)
}

// RequestIDHeader is echoed back, or generated when the client did not send one.
const RequestIDHeader = "X-Request-ID"

// Middleware logs one line per request.
func Middleware(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set(FieldRequestID, requestID)
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":        c.Request.Method,
			"path":          c.FullPath(),
			FieldStatus:     c.Writer.Status(),
			FieldDurationMS: time.Since(start).Milliseconds(),
			"client_ip":     c.ClientIP(),
			FieldRequestID:  requestID,
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Error("request failed")
			return
		}
		entry.Info("request")
	}
}
