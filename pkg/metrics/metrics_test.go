package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestBusiness_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	b, err := NewBusiness(reg)
	require.NoError(t, err)

	b.ObserveSpin("win", "coupon")
	b.ObserveSpin("win", "coupon")
	b.ObserveDispatch("email", "ok")
	b.ObserveTick(time.Now())

	require.Equal(t, 2.0, testutil.ToFloat64(b.spin.WithLabelValues("win", "coupon")))
	require.Equal(t, 1.0, testutil.ToFloat64(b.dispatch.WithLabelValues("email", "ok")))

	again, err := NewBusiness(reg)
	require.NoError(t, err)
	require.Same(t, b.spin, again.spin)
}

func TestBusiness_NilIsNoop(t *testing.T) {
	var b *Business
	b.ObserveSpin("win", "coupon")
	b.ObserveDispatch("sms", "failed")
	b.ObserveTick(time.Now())
}

func TestPrometheus_MiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	p := NewPrometheus(NewPrometheusOptions{Registerer: reg, Gatherer: reg})

	r := gin.New()
	p.Use(r)
	r.GET("/items/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	require.Equal(t, http.StatusOK, w.Code)

	mw := httptest.NewRecorder()
	p.Router().ServeHTTP(mw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, mw.Code)
	body := mw.Body.String()
	require.True(t, strings.Contains(body, `req_total{code="200",method="GET",ref="",url="/items/:id"} 1`), body)
}
