package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name          string
		status        int
		expectedLevel string
	}{
		{"success logs at info", http.StatusCreated, `"level":"INFO"`},
		{"rejection logs at warn", http.StatusUnprocessableEntity, `"level":"WARN"`},
		{"server error logs at error", http.StatusServiceUnavailable, `"level":"ERROR"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuffer bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logBuffer, &slog.HandlerOptions{Level: slog.LevelDebug}))

			router := gin.New()
			router.Use(Logger(logger))
			router.Use(CorrelationID())
			router.POST("/api/v1/transfers/:id/reverse", func(c *gin.Context) {
				c.Status(tt.status)
			})

			req, _ := http.NewRequest(http.MethodPost, "/api/v1/transfers/abc/reverse?dry=1", nil)
			req.Header.Set("User-Agent", "refund-service")
			req.Header.Set(CorrelationIDHeader, "corr-9")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			out := logBuffer.String()
			assert.Equal(t, tt.status, rr.Code)
			assert.Contains(t, out, tt.expectedLevel)
			assert.Contains(t, out, `"msg":"HTTP request"`)
			assert.Contains(t, out, `"path":"/api/v1/transfers/abc/reverse?dry=1"`)
			assert.Contains(t, out, `"route":"/api/v1/transfers/:id/reverse"`)
			assert.Contains(t, out, `"user_agent":"refund-service"`)
			// Logger runs before CorrelationID yet still sees the id.
			assert.Contains(t, out, `"correlation_id":"corr-9"`)
		})
	}
}
