package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveExtraction(t *testing.T) {
	okBefore := testutil.ToFloat64(extractions.WithLabelValues("ok"))
	rejectedBefore := testutil.ToFloat64(extractions.WithLabelValues("rejected"))
	pagesBefore := testutil.ToFloat64(pagesCopied)

	ObserveExtraction("ok", 3, 20*time.Millisecond)
	ObserveExtraction("rejected", 0, 0)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(extractions.WithLabelValues("ok")))
	assert.Equal(t, rejectedBefore+1, testutil.ToFloat64(extractions.WithLabelValues("rejected")))
	assert.Equal(t, pagesBefore+3, testutil.ToFloat64(pagesCopied))
}

func TestIncEvicted(t *testing.T) {
	before := testutil.ToFloat64(storeEvictions)
	IncEvicted(0)
	IncEvicted(2)
	assert.Equal(t, before+2, testutil.ToFloat64(storeEvictions))
}

func TestGinMiddlewareRouteLabel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/api/:filename", func(c *gin.Context) { c.Status(http.StatusOK) })

	routeBefore := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/:filename", "200"))
	unmatchedBefore := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "unmatched", "404"))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/a.pdf", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/b.pdf", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	// パラメータの値ではなくルートのパターンで集計される
	assert.Equal(t, routeBefore+2, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/:filename", "200")))
	assert.Equal(t, unmatchedBefore+1, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "unmatched", "404")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	Init()
	Init()
	ObserveExtraction("ok", 1, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "pdfextract_extractions_total"))
}
