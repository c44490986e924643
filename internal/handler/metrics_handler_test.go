package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-booking-api/internal/service"
)

type pingerStub struct {
	err error
}

func (p pingerStub) PingContext(context.Context) error { return p.err }

func TestMetricsHandlerReadiness(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), pingerStub{})
	c, w := newTestContext(http.MethodGet, "/ready", "", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	h = NewMetricsHandler(nil, pingerStub{err: errors.New("connection refused")})
	c, w = newTestContext(http.MethodGet, "/ready", "", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsHandlerWithoutCollectorIsUnavailable(t *testing.T) {
	h := NewMetricsHandler(nil, nil)

	c, w := newTestContext(http.MethodGet, "/metrics", "", nil)
	h.Prometheus(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "metrics disabled")
}

func TestMetricsHandlerServesPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordAllocation("success", 0)
	h := NewMetricsHandler(metrics, nil)

	c, w := newTestContext(http.MethodGet, "/metrics", "", nil)
	h.Prometheus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "room_allocations_total")
}
