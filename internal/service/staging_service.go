package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

const (
	MsgFileTooLarge  = "Ukuran file maksimal 5MB"
	MsgFileType      = "Hanya file PDF, JPG, atau PNG yang diperbolehkan"
	MsgDraftNotFound = "Draft tidak ditemukan"

	draftsPrefix  = "drafts"
	manifestName  = ".draft.json"
	defaultMaxLen = 5 * 1024 * 1024
	sniffLen      = 3072
)

var defaultAllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/png"}

// StagingStorage is the file store drafts live in.
type StagingStorage interface {
	Save(handle string, data []byte) (string, error)
	SaveStream(handle string, r io.Reader) (int64, error)
	Read(handle string) ([]byte, error)
	Open(handle string) (*os.File, error)
	Delete(handle string) error
	DeleteTree(handle string) error
	CleanupOlderThan(prefix string, ttl time.Duration, keep func(name string) bool) ([]string, error)
}

// DraftPins lists drafts that must survive cleanup because a resumable submission still needs
// their files.
type DraftPins interface {
	OpenDraftIDs(ctx context.Context) ([]string, error)
}

// StagingConfig bounds what may be staged.
type StagingConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	Retention    time.Duration
	Now          func() time.Time
}

// StagingService holds picked files per draft until the parent request exists upstream.
type StagingService struct {
	storage   StagingStorage
	maxSize   int64
	allowed   []string
	retention time.Duration
	now       func() time.Time
	metrics   *MetricsService
	logger    *zap.Logger
	pins      DraftPins

	mu sync.Mutex
}

// NewStagingService constructs a StagingService.
func NewStagingService(storage StagingStorage, cfg StagingConfig, metrics *MetricsService, logger *zap.Logger) *StagingService {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxLen
	}
	allowed := make([]string, 0, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		allowed = append(allowed, normalizeMIME(m))
	}
	if len(allowed) == 0 {
		allowed = append(allowed, defaultAllowedMIMEs...)
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StagingService{
		storage:   storage,
		maxSize:   cfg.MaxFileSize,
		allowed:   allowed,
		retention: cfg.Retention,
		now:       cfg.Now,
		metrics:   metrics,
		logger:    logger,
	}
}

func normalizeMIME(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if m == "image/jpg" {
		return "image/jpeg"
	}
	return m
}

// CreateDraft opens an empty staging area.
func (s *StagingService) CreateDraft(ctx context.Context) (*models.Draft, error) {
	draft := &models.Draft{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
		Files:     map[string]models.StagedFile{},
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeManifest(draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Draft loads a staging area.
func (s *StagingService) Draft(ctx context.Context, draftID string) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readManifest(draftID)
}

// Stage validates and stores one file for slot, replacing whatever was staged there. size is the
// declared length; anything over the limit is rejected before content is read. The content is
// streamed to disk after the type is sniffed from its first bytes.
func (s *StagingService) Stage(ctx context.Context, draftID, slot, filename string, size int64, content io.Reader) (*models.StagedFile, error) {
	slot = strings.TrimSpace(slot)
	if slot == "" || strings.HasPrefix(slot, ".") {
		return nil, fileError("Jenis berkas tidak valid")
	}
	if size > s.maxSize {
		s.metrics.ObserveStaging("too_large")
		return nil, fileError(MsgFileTooLarge)
	}
	if _, err := s.Draft(ctx, draftID); err != nil {
		return nil, err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(content, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Gagal membaca file")
	}
	head = head[:n]
	detected := mimetype.Detect(head)
	mimeType, ok := s.allowedType(detected)
	if !ok {
		s.metrics.ObserveStaging("rejected_type")
		s.logger.Debug("staged file rejected", zap.String("slot", slot), zap.String("detected", detected.String()))
		return nil, fileError(MsgFileType)
	}

	handle := slotHandle(draftID, slot)
	body := &cappedReader{r: io.MultiReader(bytes.NewReader(head), content), remaining: s.maxSize}
	written, err := s.storage.SaveStream(handle, body)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			s.metrics.ObserveStaging("too_large")
			return nil, fileError(MsgFileTooLarge)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage file")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	draft, err := s.readManifest(draftID)
	if err != nil {
		// Discarded while the upload was streaming.
		_ = s.storage.DeleteTree(path.Join(draftsPrefix, draftID))
		return nil, err
	}
	staged := models.StagedFile{
		Slot:     slot,
		Filename: path.Base(strings.ReplaceAll(filename, "\\", "/")),
		MimeType: mimeType,
		Kind:     models.KindForMIME(mimeType),
		Size:     written,
		Handle:   handle,
		StagedAt: s.now().UTC(),
	}
	draft.Files[slot] = staged
	if err := s.writeManifest(draft); err != nil {
		return nil, err
	}
	s.metrics.ObserveStaging("staged")
	return &staged, nil
}

var errTooLarge = errors.New("staged file exceeds the size limit")

// cappedReader fails once more than remaining bytes were read.
type cappedReader struct {
	r         io.Reader
	remaining int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, errTooLarge
	}
	return n, err
}

func (s *StagingService) allowedType(detected *mimetype.MIME) (string, bool) {
	for _, allowed := range s.allowed {
		if detected.Is(allowed) {
			return allowed, true
		}
	}
	return "", false
}

// Unstage removes the file staged for slot. Unknown slots are ignored.
func (s *StagingService) Unstage(ctx context.Context, draftID, slot string) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, err := s.readManifest(draftID)
	if err != nil {
		return nil, err
	}
	staged, ok := draft.Files[slot]
	if !ok {
		return draft, nil
	}
	if err := s.storage.Delete(staged.Handle); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove staged file")
	}
	delete(draft.Files, slot)
	if err := s.writeManifest(draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Discard deletes a draft with every staged file.
func (s *StagingService) Discard(ctx context.Context, draftID string) error {
	if _, err := uuid.Parse(draftID); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, MsgDraftNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.DeleteTree(path.Join(draftsPrefix, draftID)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to discard draft")
	}
	return nil
}

// OpenStaged opens the bytes behind a staged handle.
func (s *StagingService) OpenStaged(handle string) (io.ReadCloser, error) {
	f, err := s.storage.Open(handle)
	if err != nil {
		return nil, fmt.Errorf("open staged %s: %w", handle, err)
	}
	return f, nil
}

// KeepPinnedDrafts makes Cleanup skip every draft pins reports.
func (s *StagingService) KeepPinnedDrafts(pins DraftPins) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins = pins
}

// Cleanup removes drafts untouched for longer than the retention period. Pinned drafts are kept;
// nothing is removed when the pins cannot be listed.
func (s *StagingService) Cleanup(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pinned := map[string]struct{}{}
	if s.pins != nil {
		ids, err := s.pins.OpenDraftIDs(ctx)
		if err != nil {
			return 0, fmt.Errorf("list pinned drafts: %w", err)
		}
		for _, id := range ids {
			pinned[id] = struct{}{}
		}
	}
	removed, err := s.storage.CleanupOlderThan(draftsPrefix, s.retention, func(name string) bool {
		_, ok := pinned[name]
		return ok
	})
	if len(removed) > 0 {
		s.logger.Info("expired drafts removed", zap.Int("count", len(removed)))
	}
	return len(removed), err
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *StagingService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Cleanup(ctx); err != nil {
				s.logger.Warn("draft cleanup failed", zap.Error(err))
			}
		}
	}
}

func (s *StagingService) readManifest(draftID string) (*models.Draft, error) {
	if _, err := uuid.Parse(draftID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, MsgDraftNotFound)
	}
	raw, err := s.storage.Read(path.Join(draftsPrefix, draftID, manifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, MsgDraftNotFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read draft")
	}
	var draft models.Draft
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode draft")
	}
	if draft.Files == nil {
		draft.Files = map[string]models.StagedFile{}
	}
	return &draft, nil
}

func (s *StagingService) writeManifest(draft *models.Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if _, err := s.storage.Save(path.Join(draftsPrefix, draft.ID, manifestName), raw); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write draft")
	}
	return nil
}

func slotHandle(draftID, slot string) string {
	return path.Join(draftsPrefix, draftID, url.PathEscape(slot))
}

func fileError(msg string) error {
	return appErrors.WithFields(appErrors.ErrValidation, msg, []appErrors.FieldError{{Field: "file", Message: msg}})
}
