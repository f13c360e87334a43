package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

const (
	MsgNomorRequired   = "Masukkan nomor registrasi"
	MsgNomorNotFound   = "Nomor registrasi tidak ditemukan"
	MsgStepPending     = "Menunggu proses..."
	MsgStepCancelled   = "Tahap dibatalkan karena permohonan ditolak"
	pickupOriginalKTP  = "KTP asli"
	pickupNomorPattern = "Nomor registrasi: "
)

type trackingAPI interface {
	CheckStatus(ctx context.Context, nomorRegistrasi string) (*models.Permohonan, error)
}

// TrackingService answers public status lookups.
type TrackingService struct {
	api    trackingAPI
	logger *zap.Logger
}

// NewTrackingService constructs a TrackingService.
func NewTrackingService(api trackingAPI, logger *zap.Logger) *TrackingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingService{api: api, logger: logger}
}

// Check looks up a tracking number once. Not found is a regular result, not an error.
func (s *TrackingService) Check(ctx context.Context, nomor string) (*models.TrackingView, error) {
	nomor = strings.TrimSpace(nomor)
	if nomor == "" {
		return nil, appErrors.WithFields(appErrors.ErrValidation, MsgNomorRequired,
			[]appErrors.FieldError{{Field: "nomor_registrasi", Message: MsgNomorRequired}})
	}

	req, err := s.api.CheckStatus(ctx, nomor)
	if err != nil {
		if portalapi.IsKind(err, portalapi.KindNotFound) {
			return notFoundView(), nil
		}
		return nil, portalapi.AsAppError(err)
	}
	if req == nil || (req.ID == 0 && req.NomorRegistrasi == "") {
		return notFoundView(), nil
	}
	if !req.Status.Valid() {
		s.logger.Error("status check returned unknown stage", zap.String("nomor_registrasi", nomor), zap.String("status", string(req.Status)))
		return nil, appErrors.Clone(appErrors.ErrUpstream, "Status permohonan tidak dikenali")
	}
	return BuildTrackingView(req), nil
}

func notFoundView() *models.TrackingView {
	return &models.TrackingView{Found: false, Message: MsgNomorNotFound}
}

// BuildTrackingView derives the status timeline from a request. Steps follow the canonical stage
// order; the rejected step is hidden once a request is completed. Only a recorded event completes a
// step, the current stage alone does not.
func BuildTrackingView(req *models.Permohonan) *models.TrackingView {
	view := &models.TrackingView{
		Found: true,
		Summary: &models.TrackingSummary{
			Nama:            req.Nama,
			NomorRegistrasi: req.NomorRegistrasi,
			Layanan:         req.LayananName(),
			CreatedAt:       req.CreatedAt,
			EstimasiSelesai: req.EstimasiSelesai,
		},
		Stage:        req.Status,
		StageLabel:   req.Status.Label(),
		CatatanAdmin: req.CatatanAdmin,
		Request:      req,
	}

	for _, stage := range models.Stages() {
		if stage == models.StageDitolak && req.Status == models.StageSelesai {
			continue
		}
		view.Steps = append(view.Steps, buildStep(stage, req))
	}

	if req.Status == models.StageSelesai {
		view.Pickup = []string{pickupOriginalKTP, pickupNomorPattern + req.NomorRegistrasi}
	}
	return view
}

func buildStep(stage models.Stage, req *models.Permohonan) models.TrackingStep {
	step := models.TrackingStep{Stage: stage, Label: stage.Label()}

	event, found := lastEvent(req.StatusTracking, stage)
	switch {
	case found:
		step.State = models.StepCompleted
		step.Tanggal = event.Tanggal
		step.Keterangan = event.Keterangan
	case req.Status == models.StageDitolak:
		step.State = models.StepCancelled
		step.Keterangan = MsgStepCancelled
	default:
		step.State = models.StepPending
		step.Keterangan = MsgStepPending
	}
	return step
}

func lastEvent(events []models.StatusEvent, stage models.Stage) (models.StatusEvent, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Matches(stage) {
			return events[i], true
		}
	}
	return models.StatusEvent{}, false
}
