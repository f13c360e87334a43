package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
	"github.com/noah-isme/kelurahan-portal/pkg/fieldcheck"
)

// ErrPartialUpload is matched when the request was created but some attachments did not reach
// the upstream.
var ErrPartialUpload = errors.New("some attachments were not uploaded")

// PartialUploadError carries the result of a submission whose uploads only partly succeeded.
// The tracking number in Result stays valid.
type PartialUploadError struct {
	Result *models.SubmissionResult
}

func (e *PartialUploadError) Error() string {
	return fmt.Sprintf("permohonan %s created, %d attachment(s) failed", e.Result.NomorRegistrasi, len(e.Result.Failed()))
}

// Unwrap lets errors.Is match ErrPartialUpload.
func (e *PartialUploadError) Unwrap() error { return ErrPartialUpload }

type submissionAPI interface {
	CreatePermohonan(ctx context.Context, in models.CreatePermohonanInput) (*models.CreatedPermohonan, error)
	UploadBerkas(ctx context.Context, up portalapi.Upload) (*models.Berkas, error)
}

// SubmissionJournal persists the saga state between request creation and the last upload.
type SubmissionJournal interface {
	Create(ctx context.Context, sub *models.Submission) error
	GetByPermohonanID(ctx context.Context, permohonanID int64) (*models.Submission, error)
	MarkUploaded(ctx context.Context, fileID, berkasID int64, at time.Time) error
	MarkFailed(ctx context.Context, fileID int64, reason string, at time.Time) error
	MarkComplete(ctx context.Context, submissionID int64, at time.Time) error
	MarkAbandoned(ctx context.Context, submissionID int64, at time.Time) error
	ListIncomplete(ctx context.Context, cutoff time.Time, limit int) ([]models.Submission, error)
}

type stagedFiles interface {
	Draft(ctx context.Context, draftID string) (*models.Draft, error)
	OpenStaged(handle string) (io.ReadCloser, error)
	Discard(ctx context.Context, draftID string) error
}

// SubmitInput is one filled-in request form.
type SubmitInput struct {
	Applicant models.Applicant
	LayananID int64
	DraftID   string
}

// SubmissionConfig tunes the post-submit redirect and upload fan-out. MaxAttempts bounds how often
// one file is tried before its submission leaves the resume sweep.
type SubmissionConfig struct {
	RedirectDelay time.Duration
	RedirectTo    string
	MaxParallel   int
	MaxAttempts   int
	Now           func() time.Time
}

// SubmissionService runs the create-then-attach flow.
type SubmissionService struct {
	api     submissionAPI
	journal SubmissionJournal
	staging stagedFiles
	metrics *MetricsService
	logger  *zap.Logger
	cfg     SubmissionConfig
	flight  *inflight
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(api submissionAPI, journal SubmissionJournal, staging stagedFiles, metrics *MetricsService, logger *zap.Logger, cfg SubmissionConfig) *SubmissionService {
	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = 5 * time.Second
	}
	if cfg.RedirectTo == "" {
		cfg.RedirectTo = "/status"
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		api:     api,
		journal: journal,
		staging: staging,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		flight:  newInflight(),
	}
}

// Submit validates the form, creates the request upstream, journals it and forwards every staged
// file concurrently. When some uploads fail it returns both the result and a *PartialUploadError.
func (s *SubmissionService) Submit(ctx context.Context, in SubmitInput) (*models.SubmissionResult, error) {
	if errs := fieldcheck.ValidateForm(in.Applicant, in.LayananID, s.cfg.Now()); errs.HasErrors() {
		s.metrics.ObserveSubmission("rejected")
		return nil, errs.Err()
	}

	key := "submit:" + in.DraftID
	if in.DraftID == "" {
		key = "submit:nik:" + in.Applicant.NIK
	}
	done, err := s.flight.begin(key)
	if err != nil {
		return nil, err
	}
	defer done()

	var staged []models.StagedFile
	if in.DraftID != "" {
		draft, err := s.staging.Draft(ctx, in.DraftID)
		if err != nil {
			return nil, err
		}
		staged = orderedFiles(draft)
	}

	created, err := s.api.CreatePermohonan(ctx, models.CreatePermohonanInput{Applicant: in.Applicant, LayananID: in.LayananID})
	if err != nil {
		s.metrics.ObserveSubmission("rejected")
		return nil, portalapi.AsAppError(err)
	}
	nomor := created.NomorRegistrasi
	if nomor == "" {
		nomor = created.Permohonan.NomorRegistrasi
	}

	// Uploads outlive the caller: leaving the page must not abort them.
	bg := context.WithoutCancel(ctx)

	sub := &models.Submission{
		PermohonanID:    created.Permohonan.ID,
		NomorRegistrasi: nomor,
		DraftID:         in.DraftID,
		CreatedAt:       s.cfg.Now().UTC(),
	}
	for _, f := range staged {
		sub.Files = append(sub.Files, models.SubmissionFile{
			Slot:     f.Slot,
			Filename: f.Filename,
			MimeType: f.MimeType,
			Handle:   f.Handle,
			Status:   models.FilePending,
		})
	}
	journaled := true
	if err := s.journal.Create(bg, sub); err != nil {
		journaled = false
		s.logger.Error("journal submission failed", zap.Int64("permohonan_id", sub.PermohonanID), zap.String("nomor_registrasi", nomor), zap.Error(err))
	}

	// Held for the first upload round so a resume of the same request waits its turn.
	attachDone, err := s.flight.begin(attachKey(sub.PermohonanID))
	if err == nil {
		defer attachDone()
	}

	outcomes, exhausted := s.uploadAll(bg, sub, sub.Files, journaled)
	return s.finish(bg, sub, outcomes, journaled, exhausted)
}

func attachKey(permohonanID int64) string {
	return "attach:" + strconv.FormatInt(permohonanID, 10)
}

// AttachRemaining uploads every journaled file of the request that is not uploaded yet.
func (s *SubmissionService) AttachRemaining(ctx context.Context, permohonanID int64) (*models.SubmissionResult, error) {
	done, err := s.flight.begin(attachKey(permohonanID))
	if err != nil {
		return nil, err
	}
	defer done()

	sub, err := s.journal.GetByPermohonanID(ctx, permohonanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Data pengajuan berkas tidak ditemukan")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission journal")
	}

	bg := context.WithoutCancel(ctx)
	outstanding := sub.Outstanding()
	retried, exhausted := s.uploadAll(bg, sub, outstanding, true)

	byID := make(map[int64]models.UploadOutcome, len(retried))
	for i, f := range outstanding {
		byID[f.ID] = retried[i]
	}
	outcomes := make([]models.UploadOutcome, 0, len(sub.Files))
	for _, f := range sub.Files {
		if o, ok := byID[f.ID]; ok {
			outcomes = append(outcomes, o)
			continue
		}
		outcome := models.UploadOutcome{Slot: f.Slot, Filename: f.Filename, Status: f.Status}
		if f.BerkasID.Valid {
			outcome.BerkasID = f.BerkasID.Int64
		}
		outcomes = append(outcomes, outcome)
	}
	return s.finish(bg, sub, outcomes, true, exhausted)
}

// uploadAll fans the uploads out and waits for all of them; one failure never cancels the rest.
// exhausted reports a failed file that used its last attempt or whose staged bytes are gone.
func (s *SubmissionService) uploadAll(ctx context.Context, sub *models.Submission, files []models.SubmissionFile, journaled bool) ([]models.UploadOutcome, bool) {
	outcomes := make([]models.UploadOutcome, len(files))
	lost := make([]bool, len(files))
	var g errgroup.Group
	g.SetLimit(s.cfg.MaxParallel)
	for i := range files {
		i, f := i, files[i]
		g.Go(func() error {
			outcomes[i], lost[i] = s.uploadOne(ctx, sub, f, journaled)
			return nil
		})
	}
	_ = g.Wait()

	exhausted := false
	for i, f := range files {
		if outcomes[i].Status == models.FileUploaded {
			continue
		}
		if lost[i] || f.Attempts+1 >= s.cfg.MaxAttempts {
			exhausted = true
		}
	}
	return outcomes, exhausted
}

func (s *SubmissionService) uploadOne(ctx context.Context, sub *models.Submission, f models.SubmissionFile, journaled bool) (models.UploadOutcome, bool) {
	outcome := models.UploadOutcome{Slot: f.Slot, Filename: f.Filename}
	berkas, err := s.forward(ctx, sub.PermohonanID, f)
	now := s.cfg.Now().UTC()
	if err != nil {
		outcome.Status = models.FileFailed
		outcome.Error = uploadMessage(err)
		s.metrics.ObserveUpload("failed")
		s.logger.Warn("attachment upload failed",
			zap.Int64("permohonan_id", sub.PermohonanID), zap.String("slot", f.Slot), zap.Error(err))
		if journaled {
			if jerr := s.journal.MarkFailed(ctx, f.ID, err.Error(), now); jerr != nil {
				s.logger.Error("journal upload failure", zap.Int64("file_id", f.ID), zap.Error(jerr))
			}
		}
		return outcome, errors.Is(err, fs.ErrNotExist)
	}

	outcome.Status = models.FileUploaded
	outcome.BerkasID = berkas.ID
	s.metrics.ObserveUpload("uploaded")
	if journaled {
		if jerr := s.journal.MarkUploaded(ctx, f.ID, berkas.ID, now); jerr != nil {
			s.logger.Error("journal upload success", zap.Int64("file_id", f.ID), zap.Error(jerr))
		}
	}
	return outcome, false
}

func (s *SubmissionService) forward(ctx context.Context, permohonanID int64, f models.SubmissionFile) (*models.Berkas, error) {
	content, err := s.staging.OpenStaged(f.Handle)
	if err != nil {
		return nil, err
	}
	defer content.Close()
	return s.api.UploadBerkas(ctx, portalapi.Upload{
		PermohonanID: permohonanID,
		JenisBerkas:  f.Slot,
		Filename:     f.Filename,
		MimeType:     f.MimeType,
		Content:      content,
	})
}

func (s *SubmissionService) finish(ctx context.Context, sub *models.Submission, outcomes []models.UploadOutcome, journaled, exhausted bool) (*models.SubmissionResult, error) {
	result := &models.SubmissionResult{
		PermohonanID:    sub.PermohonanID,
		NomorRegistrasi: sub.NomorRegistrasi,
		Uploads:         outcomes,
	}
	if result.Uploads == nil {
		result.Uploads = []models.UploadOutcome{}
	}
	if failed := result.Failed(); len(failed) > 0 {
		s.metrics.ObserveSubmission("partial")
		s.logger.Warn("submission incomplete",
			zap.Int64("permohonan_id", sub.PermohonanID), zap.String("nomor_registrasi", sub.NomorRegistrasi), zap.Int("failed", len(failed)))
		if exhausted && journaled && sub.ID != 0 {
			if err := s.journal.MarkAbandoned(ctx, sub.ID, s.cfg.Now().UTC()); err != nil {
				s.logger.Error("journal abandon failed", zap.Int64("submission_id", sub.ID), zap.Error(err))
			} else {
				s.metrics.ObserveSubmission("abandoned")
				s.logger.Warn("submission left for manual resume",
					zap.Int64("permohonan_id", sub.PermohonanID), zap.String("nomor_registrasi", sub.NomorRegistrasi))
			}
		}
		return result, &PartialUploadError{Result: result}
	}

	result.Complete = true
	result.RedirectAfter = s.cfg.RedirectDelay.Seconds()
	result.RedirectTo = s.cfg.RedirectTo
	if journaled && sub.ID != 0 {
		if err := s.journal.MarkComplete(ctx, sub.ID, s.cfg.Now().UTC()); err != nil {
			s.logger.Error("journal completion failed", zap.Int64("submission_id", sub.ID), zap.Error(err))
		}
	}
	if sub.DraftID != "" {
		if err := s.staging.Discard(ctx, sub.DraftID); err != nil {
			s.logger.Warn("discard draft failed", zap.String("draft_id", sub.DraftID), zap.Error(err))
		}
	}
	s.metrics.ObserveSubmission("complete")
	s.logger.Info("submission complete", zap.Int64("permohonan_id", sub.PermohonanID), zap.String("nomor_registrasi", sub.NomorRegistrasi))
	return result, nil
}

// ResumeIncomplete lists journal entries older than minAge that still have outstanding files.
func (s *SubmissionService) ResumeIncomplete(ctx context.Context, minAge time.Duration, limit int) ([]models.Submission, error) {
	subs, err := s.journal.ListIncomplete(ctx, s.cfg.Now().UTC().Add(-minAge), limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incomplete submissions")
	}
	return subs, nil
}

func orderedFiles(draft *models.Draft) []models.StagedFile {
	files := make([]models.StagedFile, 0, len(draft.Files))
	for _, f := range draft.Files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Slot < files[j].Slot })
	return files
}

func uploadMessage(err error) string {
	var apiErr *portalapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Headline()
	}
	return "Gagal mengunggah berkas"
}
