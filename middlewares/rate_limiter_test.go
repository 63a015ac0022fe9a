package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/marketplace/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCustomRate(t *testing.T) {
	cases := []struct {
		in     string
		limit  int64
		period time.Duration
	}{
		{"10-2m", 10, 2 * time.Minute},
		{"20-10s", 20, 10 * time.Second},
		{"5-1h", 5, time.Hour},
	}
	for _, tc := range cases {
		rate, err := ParseCustomRate(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.limit, rate.Limit)
		assert.Equal(t, tc.period, rate.Period)
	}

	for _, bad := range []string{"", "10", "x-2m", "10-2d", "10-m", "0-1m"} {
		_, err := ParseCustomRate(bad)
		assert.Error(t, err, bad)
	}
}

func TestLimitWithMemoryStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger.Silence()

	r := gin.New()
	r.POST("/act", NewRateLimiterFactory(nil).Limit("2-1m", "act"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/act", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCombinedStopsAtTightestRate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger.Silence()

	hits := 0
	r := gin.New()
	r.POST("/act", NewRateLimiterFactory(nil).Combined("act-combined", "1-1m", "10-1h"), func(c *gin.Context) {
		hits++
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/act", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 1, hits)
}
