package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPointsIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(pointsMoved.WithLabelValues("credit"))
	RecordPoints("credit", 0)
	RecordPoints("credit", -4)
	RecordPoints("credit", 9)
	assert.Equal(t, before+9, testutil.ToFloat64(pointsMoved.WithLabelValues("credit")))
}

func TestRecordVouchers(t *testing.T) {
	issued := testutil.ToFloat64(vouchersIssued)
	expired := testutil.ToFloat64(vouchersExpired)

	RecordVoucherIssued()
	RecordVouchersExpired(0)
	RecordVouchersExpired(3)

	assert.Equal(t, issued+1, testutil.ToFloat64(vouchersIssued))
	assert.Equal(t, expired+3, testutil.ToFloat64(vouchersExpired))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/collections/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/collections/:id", "204"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/collections/abc", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/collections/:id", "204")))
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordTransition("COMPLETED")

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "recyclehub_collections_transitions_total"))
}
