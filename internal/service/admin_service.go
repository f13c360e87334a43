package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

const (
	DefaultPerPage     = 15
	DefaultBulkNote    = "Bulk update"
	MsgEmptySelection  = "Pilih minimal 1 permohonan"
	MsgStatusUpdated   = "Status berhasil diperbarui!"
	MsgPermohonanGone  = "Permohonan berhasil dihapus"
	dateOnlyLayout     = "2006-01-02"
	maxPerPage         = 100
	bulkStatusBusyKey  = "bulk-status"
	bulkDeleteBusyKey  = "bulk-delete"
	transitionBusyPref = "transition:"
)

// ErrConfirmationRequired is matched when a destructive bulk call was not confirmed.
var ErrConfirmationRequired = errors.New("confirmation required")

// ConfirmationError carries the prompt the caller must show before retrying with confirmation.
type ConfirmationError struct {
	Prompt string
}

func (e *ConfirmationError) Error() string { return e.Prompt }

// Unwrap lets errors.Is match ErrConfirmationRequired.
func (e *ConfirmationError) Unwrap() error { return ErrConfirmationRequired }

type adminAPI interface {
	ListPermohonan(ctx context.Context, page, perPage int) (*models.PermohonanPage, error)
	GetPermohonan(ctx context.Context, id int64) (*models.Permohonan, error)
	UpdateStatus(ctx context.Context, id int64, in models.StatusUpdate) error
	BulkUpdateStatus(ctx context.Context, in models.BulkStatusUpdate) (*models.BulkResult, error)
	BulkDelete(ctx context.Context, ids []int64) (*models.BulkResult, error)
	ExportPermohonan(ctx context.Context, format string, q models.PermohonanExportQuery) (*portalapi.File, error)
}

// PermohonanQuery selects one upstream page and filters it locally.
type PermohonanQuery struct {
	Page    int
	PerPage int
	Search  string
	Status  models.Stage
	Layanan string
	From    string
	To      string
}

// PermohonanList is one filtered page.
type PermohonanList struct {
	Items      []models.Permohonan `json:"items"`
	Pagination *models.Pagination  `json:"pagination"`
	Fetched    int                 `json:"fetched"`
}

// TransitionInput describes a single stage change. Current, when set, is the stage the caller
// displayed and guards the move.
type TransitionInput struct {
	Target  models.Stage
	Note    string
	Current models.Stage
	Refresh PermohonanQuery
}

// BulkOutcome reports a confirmed bulk call.
type BulkOutcome struct {
	Requested int                     `json:"requested"`
	Affected  int                     `json:"affected"`
	Results   []models.BulkItemResult `json:"results,omitempty"`
	Notice    *models.Notice          `json:"-"`
}

// AdminService implements the staff request console.
type AdminService struct {
	api    adminAPI
	cache  *CacheService
	logger *zap.Logger
	flight *inflight
}

// NewAdminService constructs an AdminService.
func NewAdminService(api adminAPI, cache *CacheService, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{api: api, cache: cache, logger: logger, flight: newInflight()}
}

// List fetches one page upstream and applies the local filters to it.
func (s *AdminService) List(ctx context.Context, q PermohonanQuery) (*PermohonanList, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Status tidak valid")
	}
	for _, d := range []string{q.From, q.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateOnlyLayout, d); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "Format tanggal harus YYYY-MM-DD")
		}
	}

	page, err := s.api.ListPermohonan(ctx, q.Page, q.PerPage)
	if err != nil {
		return nil, portalapi.AsAppError(err)
	}
	items := FilterPermohonan(page.Data, q)
	return &PermohonanList{Items: items, Pagination: page.Pagination(), Fetched: len(page.Data)}, nil
}

// FilterPermohonan applies the console filters to an already fetched page. Search matches name and
// tracking number case-insensitively, and the numeric id and NIK as substrings.
func FilterPermohonan(items []models.Permohonan, q PermohonanQuery) []models.Permohonan {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	layanan := strings.TrimSpace(q.Layanan)
	out := make([]models.Permohonan, 0, len(items))
	for _, p := range items {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Nama), search) &&
			!strings.Contains(strings.ToLower(p.NomorRegistrasi), search) &&
			!strings.Contains(strconv.FormatInt(p.ID, 10), search) &&
			!strings.Contains(p.NIK, search) {
			continue
		}
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		if layanan != "" && p.LayananName() != layanan {
			continue
		}
		if q.From != "" || q.To != "" {
			if p.CreatedAt.IsZero() {
				continue
			}
			day := p.CreatedAt.Format(dateOnlyLayout)
			if q.From != "" && day < q.From {
				continue
			}
			if q.To != "" && day > q.To {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// Detail loads one request with attachments and events.
func (s *AdminService) Detail(ctx context.Context, id int64) (*models.Permohonan, error) {
	p, err := s.api.GetPermohonan(ctx, id)
	if err != nil {
		return nil, portalapi.AsAppError(err)
	}
	return p, nil
}

// Transition moves one request to in.Target and returns the refreshed list. Nothing changes
// locally when the upstream refuses.
func (s *AdminService) Transition(ctx context.Context, id int64, in TransitionInput) (*PermohonanList, *models.Notice, error) {
	if !in.Target.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "Status tidak valid")
	}
	if in.Current != "" {
		if !in.Current.CanTransitionTo(in.Target) {
			return nil, nil, appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("Status tidak dapat diubah dari %q ke %q", in.Current, in.Target))
		}
	}

	done, err := s.flight.begin(transitionBusyPref + strconv.FormatInt(id, 10))
	if err != nil {
		return nil, nil, err
	}
	defer done()

	if err := s.api.UpdateStatus(ctx, id, models.StatusUpdate{Status: in.Target, Catatan: strings.TrimSpace(in.Note)}); err != nil {
		return nil, nil, portalapi.AsAppError(err)
	}
	s.logger.Info("permohonan status updated", zap.Int64("id", id), zap.String("status", string(in.Target)))
	s.cache.Invalidate(ctx, cacheKeyDashboard+"*")

	notice := models.NewNotice(models.NoticeSuccess, MsgStatusUpdated)
	list, err := s.List(ctx, in.Refresh)
	if err != nil {
		s.logger.Warn("refresh after transition failed", zap.Int64("id", id), zap.Error(err))
		return nil, notice, nil
	}
	return list, notice, nil
}

// BulkTransition moves every id to target with one upstream call.
func (s *AdminService) BulkTransition(ctx context.Context, ids []int64, target models.Stage, note string, confirmed bool) (*BulkOutcome, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, MsgEmptySelection)
	}
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Status tidak valid")
	}
	if !confirmed {
		return nil, confirmationError(fmt.Sprintf("Update %d permohonan ke status %q?", len(ids), string(target)))
	}
	note = strings.TrimSpace(note)
	if note == "" {
		note = DefaultBulkNote
	}

	done, err := s.flight.begin(bulkStatusBusyKey)
	if err != nil {
		return nil, err
	}
	defer done()

	result, err := s.api.BulkUpdateStatus(ctx, models.BulkStatusUpdate{IDs: ids, Status: target, Catatan: note})
	if err != nil {
		return nil, portalapi.AsAppError(err)
	}
	s.cache.Invalidate(ctx, cacheKeyDashboard+"*")
	s.logger.Info("bulk status update", zap.Int("count", len(ids)), zap.String("status", string(target)))
	return bulkOutcome(len(ids), result, "Berhasil update %d permohonan"), nil
}

// BulkDelete removes every id with one upstream call. A single delete is BulkDelete of one id.
func (s *AdminService) BulkDelete(ctx context.Context, ids []int64, confirmed bool) (*BulkOutcome, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, MsgEmptySelection)
	}
	if !confirmed {
		return nil, confirmationError(fmt.Sprintf("Hapus %d permohonan? Data tidak bisa dikembalikan.", len(ids)))
	}

	done, err := s.flight.begin(bulkDeleteBusyKey)
	if err != nil {
		return nil, err
	}
	defer done()

	result, err := s.api.BulkDelete(ctx, ids)
	if err != nil {
		return nil, portalapi.AsAppError(err)
	}
	s.cache.Invalidate(ctx, cacheKeyDashboard+"*")
	s.logger.Info("bulk delete", zap.Int("count", len(ids)))
	outcome := bulkOutcome(len(ids), result, "Berhasil menghapus %d permohonan")
	if len(ids) == 1 && outcome.Notice.Level == models.NoticeSuccess {
		outcome.Notice.Message = MsgPermohonanGone
	}
	return outcome, nil
}

// Export proxies the upstream-rendered Excel or PDF export.
func (s *AdminService) Export(ctx context.Context, format string, q models.PermohonanExportQuery) (*portalapi.File, error) {
	switch format {
	case "excel", "pdf":
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "Format ekspor harus excel atau pdf")
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Status tidak valid")
	}
	file, err := s.api.ExportPermohonan(ctx, format, q)
	if err != nil {
		return nil, portalapi.AsAppError(err)
	}
	return file, nil
}

func bulkOutcome(requested int, result *models.BulkResult, successFormat string) *BulkOutcome {
	outcome := &BulkOutcome{Requested: requested, Affected: requested}
	if result != nil {
		outcome.Results = result.Results
		if result.Affected > 0 {
			outcome.Affected = result.Affected
		}
	}
	failed := 0
	if result != nil {
		failed = result.Failed()
	}
	if failed > 0 {
		outcome.Affected = requested - failed
		outcome.Notice = models.NewNotice(models.NoticeWarning,
			fmt.Sprintf(successFormat+", %d gagal", requested-failed, failed))
		return outcome
	}
	outcome.Notice = models.NewNotice(models.NoticeSuccess, fmt.Sprintf(successFormat, requested))
	return outcome
}

func confirmationError(prompt string) error {
	return appErrors.Wrap(&ConfirmationError{Prompt: prompt},
		appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, prompt)
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
