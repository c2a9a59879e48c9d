package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("should timeout after configured duration", func(t *testing.T) {
		if testing.Short() {
			t.Skip("Skipping timeout test in short mode")
		}

		router := gin.New()
		router.Use(RequestTimeout(100 * time.Millisecond))
		router.GET("/slow", func(c *gin.Context) {
			select {
			case <-c.Request.Context().Done():
			case <-time.After(time.Second):
				c.JSON(http.StatusOK, gin.H{"message": "success"})
			}
		})

		req := httptest.NewRequest(http.MethodGet, "/slow", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Contains(t, w.Body.String(), "Request timeout")
	})

	t.Run("should not timeout if request completes in time", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestTimeout(2 * time.Second))
		router.GET("/fast", func(c *gin.Context) {
			time.Sleep(50 * time.Millisecond)
			c.JSON(http.StatusOK, gin.H{"message": "success"})
		})

		req := httptest.NewRequest(http.MethodGet, "/fast", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "success")
	})

	t.Run("should cancel request context on timeout", func(t *testing.T) {
		if testing.Short() {
			t.Skip("Skipping timeout test in short mode")
		}

		router := gin.New()
		router.Use(RequestTimeout(100 * time.Millisecond))

		canceled := make(chan bool, 1)
		router.GET("/test", func(c *gin.Context) {
			ctx := c.Request.Context()
			select {
			case <-ctx.Done():
				canceled <- ctx.Err() == context.DeadlineExceeded
			case <-time.After(time.Second):
				canceled <- false
				c.JSON(http.StatusOK, gin.H{"message": "success"})
			}
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.True(t, <-canceled)
		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	})
}

func BenchmarkRequestTimeout(b *testing.B) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestTimeout(30 * time.Second))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}
