package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/kelurahan-portal/internal/models"
)

type fakeDashboardSrv struct {
	days int
}

func (f *fakeDashboardSrv) Stats(_ context.Context, days int) (*models.DashboardStats, error) {
	f.days = days
	return &models.DashboardStats{}, nil
}

func TestDashboardHandlerPassesDays(t *testing.T) {
	srv := &fakeDashboardSrv{}
	handler := NewDashboardHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/admin/dashboard?days=30", nil)
	handler.Stats(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, srv.days)
	assert.Contains(t, decodeEnvelope(t, rec).Meta, "processing_time_ms")
}

func TestDashboardHandlerIgnoresGarbageDays(t *testing.T) {
	srv := &fakeDashboardSrv{}
	handler := NewDashboardHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/admin/dashboard?days=abc", nil)
	handler.Stats(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, srv.days)
}
