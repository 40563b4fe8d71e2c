package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(bookingTransitions.WithLabelValues("pending", "confirmed"))
	RecordTransition("pending", "confirmed")
	after := testutil.ToFloat64(bookingTransitions.WithLabelValues("pending", "confirmed"))
	assert.Equal(t, before+1, after)

	beforeNew := testutil.ToFloat64(bookingTransitions.WithLabelValues("none", "pending"))
	RecordTransition("", "pending")
	assert.Equal(t, beforeNew+1, testutil.ToFloat64(bookingTransitions.WithLabelValues("none", "pending")))
}

func TestRecordRejection(t *testing.T) {
	before := testutil.ToFloat64(bookingRejections.WithLabelValues("create", "conflict"))
	RecordRejection("create", "conflict")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingRejections.WithLabelValues("create", "conflict")))
}

func TestMiddlewareObservesRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.GreaterOrEqual(t, testutil.CollectAndCount(requestDuration), 1)
}
