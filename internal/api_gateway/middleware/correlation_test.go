package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCorrelationIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(headers map[string]string) (*httptest.ResponseRecorder, string) {
		router := gin.New()
		router.Use(CorrelationID())
		var captured string
		router.GET("/test", func(c *gin.Context) {
			captured = GetCorrelationID(c)
			c.Status(http.StatusOK)
		})
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr, captured
	}

	t.Run("GeneratesCorrelationIDIfNotProvided", func(t *testing.T) {
		rr, captured := serve(nil)
		header := rr.Header().Get(CorrelationIDHeader)
		_, err := uuid.Parse(header)
		assert.NoError(t, err)
		assert.Equal(t, header, captured)
	})

	t.Run("UsesCorrelationIDIfProvided", func(t *testing.T) {
		rr, captured := serve(map[string]string{CorrelationIDHeader: "checkout-42"})
		assert.Equal(t, "checkout-42", rr.Header().Get(CorrelationIDHeader))
		assert.Equal(t, "checkout-42", captured)
	})

	t.Run("FallsBackToRequestID", func(t *testing.T) {
		rr, captured := serve(map[string]string{RequestIDHeader: "req-7"})
		assert.Equal(t, "req-7", rr.Header().Get(CorrelationIDHeader))
		assert.Equal(t, "req-7", captured)
	})
}

func TestGetCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetCorrelationID(c))

	c.Set(CorrelationIDKey, 12345)
	assert.Empty(t, GetCorrelationID(c))

	c.Set(CorrelationIDKey, "abc")
	assert.Equal(t, "abc", GetCorrelationID(c))
}
