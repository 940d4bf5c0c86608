package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/portalacademico/portal-backend/internal/api/http/middleware"
)

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	var seen string
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) {
		seen = middleware.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/conflict", func(c *gin.Context) { c.Status(http.StatusConflict) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	t.Run("generates a uuid", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ok", nil))

		rid := rr.Header().Get("X-Request-Id")
		_, err := uuid.Parse(rid)
		require.NoError(t, err)
		assert.Equal(t, rid, seen)
	})

	t.Run("keeps the caller's id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("X-Request-Id", "abc-123")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, "abc-123", rr.Header().Get("X-Request-Id"))
		assert.Equal(t, "abc-123", seen)
	})

	t.Run("logs by status class", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

		entries := logs.FilterField(zap.Int("status", http.StatusInternalServerError)).All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "/boom", entries[0].ContextMap()["path"])
	})

	t.Run("rejections log at info, other 4xx at warn", func(t *testing.T) {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/conflict", nil))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

		conflict := logs.FilterField(zap.Int("status", http.StatusConflict)).All()
		require.Len(t, conflict, 1)
		assert.Equal(t, zapcore.InfoLevel, conflict[0].Level)

		missing := logs.FilterField(zap.Int("status", http.StatusNotFound)).All()
		require.Len(t, missing, 1)
		assert.Equal(t, zapcore.WarnLevel, missing[0].Level)
	})
}

func TestRequestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/slow", middleware.RequestTimeout(50*time.Millisecond), func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		require.True(t, ok)
		select {
		case <-c.Request.Context().Done():
			assert.ErrorIs(t, c.Request.Context().Err(), context.DeadlineExceeded)
			c.Status(http.StatusInternalServerError)
		case <-time.After(2 * time.Second):
			c.Status(http.StatusOK)
		}
	})
	r.GET("/unbounded", middleware.RequestTimeout(0), func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.False(t, ok)
		c.Status(http.StatusOK)
	})

	start := time.Now()
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Less(t, time.Since(start), time.Second)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/unbounded", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", c.GetHeader("X-User-Id"))
		c.Next()
	})
	r.POST("/enroll", middleware.NewRateLimiter(1, 2).Middleware(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	post := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/enroll", nil)
		req.Header.Set("X-User-Id", user)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusCreated, post("alice"))
	assert.Equal(t, http.StatusCreated, post("alice"))
	assert.Equal(t, http.StatusTooManyRequests, post("alice"))
	assert.Equal(t, http.StatusCreated, post("bob"), "limits are per caller")
}

func TestRateLimiter_SweepDropsRefilledCallers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	lim := middleware.NewRateLimiter(1, 1)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", c.GetHeader("X-User-Id"))
		c.Next()
	})
	r.POST("/enroll", lim.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	for _, user := range []string{"alice", "bob"} {
		req := httptest.NewRequest(http.MethodPost, "/enroll", nil)
		req.Header.Set("X-User-Id", user)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	require.Equal(t, 2, lim.Len())

	assert.Zero(t, lim.Sweep(time.Now()), "drained buckets are kept")
	assert.Equal(t, 2, lim.Len())

	assert.Equal(t, 2, lim.Sweep(time.Now().Add(2*time.Minute)))
	assert.Zero(t, lim.Len())
}

func TestRateLimiter_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", middleware.NewRateLimiter(0, 0).Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 20; i++ {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}
}
