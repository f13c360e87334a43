package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

type stubTrackingAPI struct {
	req   *models.Permohonan
	err   error
	asked string
}

func (s *stubTrackingAPI) CheckStatus(ctx context.Context, nomor string) (*models.Permohonan, error) {
	s.asked = nomor
	return s.req, s.err
}

func trackDay(d int) models.Timestamp {
	return models.NewTimestamp(time.Date(2025, 1, d, 9, 0, 0, 0, time.UTC))
}

func TestBuildTrackingViewCompleted(t *testing.T) {
	req := &models.Permohonan{
		ID:              7,
		NomorRegistrasi: "REQ202501041",
		Applicant:       models.Applicant{Nama: "Siti Aminah"},
		Layanan:         &models.LayananSummary{ID: 2, Nama: "Surat Keterangan Domisili"},
		Status:          models.StageSelesai,
		StatusTracking: []models.StatusEvent{
			{Step: "Pengajuan Diterima", Tanggal: trackDay(4), Keterangan: "Permohonan diterima"},
			{Step: "Verifikasi Dokumen", Tanggal: trackDay(5)},
			{Step: "Selesai - Siap Diambil", Tanggal: trackDay(7), Keterangan: "Silakan ambil di kantor"},
		},
	}

	view := BuildTrackingView(req)

	want := []models.TrackingStep{
		{Stage: models.StageBaru, Label: "Pengajuan Diterima", State: models.StepCompleted, Tanggal: trackDay(4), Keterangan: "Permohonan diterima"},
		{Stage: models.StageProses, Label: "Verifikasi Dokumen", State: models.StepCompleted, Tanggal: trackDay(5)},
		{Stage: models.StageSelesai, Label: "Selesai - Siap Diambil", State: models.StepCompleted, Tanggal: trackDay(7), Keterangan: "Silakan ambil di kantor"},
	}
	if diff := cmp.Diff(want, view.Steps); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"KTP asli", "Nomor registrasi: REQ202501041"}, view.Pickup)
	assert.Equal(t, "Surat Keterangan Domisili", view.Summary.Layanan)
	assert.Equal(t, "Selesai - Siap Diambil", view.StageLabel)
}

func TestBuildTrackingViewRejected(t *testing.T) {
	req := &models.Permohonan{
		NomorRegistrasi: "REQ202501042",
		Status:          models.StageDitolak,
		CatatanAdmin:    "Dokumen tidak lengkap",
		StatusTracking: []models.StatusEvent{
			{Step: "baru", Tanggal: trackDay(4)},
			{Step: "Ditolak", Tanggal: trackDay(6), Keterangan: "Dokumen tidak lengkap"},
		},
	}

	view := BuildTrackingView(req)

	states := make([]models.StepState, 0, len(view.Steps))
	for _, s := range view.Steps {
		states = append(states, s.State)
	}
	want := []models.StepState{models.StepCompleted, models.StepCancelled, models.StepCancelled, models.StepCompleted}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Fatalf("states mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, MsgStepCancelled, view.Steps[1].Keterangan)
	assert.Empty(t, view.Pickup)
	assert.Equal(t, "Dokumen tidak lengkap", view.CatatanAdmin)
}

func TestBuildTrackingViewInProgressUsesLatestEvent(t *testing.T) {
	req := &models.Permohonan{
		Status: models.StageProses,
		StatusTracking: []models.StatusEvent{
			{Step: "Pengajuan Diterima", Tanggal: trackDay(4)},
			{Step: "Verifikasi Dokumen", Tanggal: trackDay(5), Keterangan: "pertama"},
			{Step: "Verifikasi Dokumen", Tanggal: trackDay(6), Keterangan: "ulang"},
		},
	}

	view := BuildTrackingView(req)

	require.Len(t, view.Steps, 4)
	assert.Equal(t, trackDay(6), view.Steps[1].Tanggal)
	assert.Equal(t, "ulang", view.Steps[1].Keterangan)
	assert.Equal(t, models.StepPending, view.Steps[2].State)
	assert.Equal(t, MsgStepPending, view.Steps[2].Keterangan)
	assert.Equal(t, models.StepPending, view.Steps[3].State)
}

func TestCheckTrimsAndReportsNotFound(t *testing.T) {
	api := &stubTrackingAPI{err: &portalapi.APIError{Kind: portalapi.KindNotFound, Status: 404, Message: "Not found"}}
	svc := NewTrackingService(api, nil)

	view, err := svc.Check(context.Background(), "  REQ404  ")
	require.NoError(t, err)
	assert.Equal(t, "REQ404", api.asked)
	want := &models.TrackingView{Found: false, Message: MsgNomorNotFound}
	if diff := cmp.Diff(want, view); diff != "" {
		t.Fatalf("view mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckRequiresNumber(t *testing.T) {
	svc := NewTrackingService(&stubTrackingAPI{}, nil)

	_, err := svc.Check(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, MsgNomorRequired, appErrors.FromError(err).Message)
}

func TestCheckUpstreamFailureIsAnError(t *testing.T) {
	svc := NewTrackingService(&stubTrackingAPI{err: &portalapi.APIError{Kind: portalapi.KindServer, Status: 500, Message: "Server Error"}}, nil)

	_, err := svc.Check(context.Background(), "REQ1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
}

func TestBuildTrackingViewStepNeedsRecordedEvent(t *testing.T) {
	tests := []struct {
		name   string
		status models.Stage
		want   []models.StepState
	}{
		{
			name:   "rejected without rejection event",
			status: models.StageDitolak,
			want:   []models.StepState{models.StepCompleted, models.StepCancelled, models.StepCancelled, models.StepCancelled},
		},
		{
			name:   "in progress without verification event",
			status: models.StageProses,
			want:   []models.StepState{models.StepCompleted, models.StepPending, models.StepPending, models.StepPending},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := &models.Permohonan{
				NomorRegistrasi: "REQ202501050",
				Status:          tc.status,
				StatusTracking:  []models.StatusEvent{{Step: "baru", Tanggal: trackDay(4)}},
			}

			view := BuildTrackingView(req)

			states := make([]models.StepState, 0, len(view.Steps))
			for _, s := range view.Steps {
				states = append(states, s.State)
			}
			if diff := cmp.Diff(tc.want, states); diff != "" {
				t.Fatalf("states mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tc.status.Label(), view.StageLabel)
		})
	}
}
