package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
	"github.com/noah-isme/kelurahan-portal/pkg/fieldcheck"
)

const (
	MsgKontakSent    = "Pesan berhasil dikirim"
	MsgReplyEmpty    = "Balasan tidak boleh kosong"
	MsgReplySent     = "Balasan berhasil dikirim ke email pengirim"
	MsgKontakUpdated = "Status diperbarui"
)

type contactAPI interface {
	SendKontak(ctx context.Context, in models.KontakInput) (*models.Kontak, error)
	ListKontak(ctx context.Context) ([]models.Kontak, error)
	GetKontak(ctx context.Context, id int64) (*models.Kontak, error)
	UpdateKontakStatus(ctx context.Context, id int64, status models.KontakStatus) error
	ReplyKontak(ctx context.Context, id int64, reply models.KontakReply) error
	DeleteKontak(ctx context.Context, id int64) error
}

// KontakQuery filters the inbox locally.
type KontakQuery struct {
	Search string
	Status models.KontakStatus
}

// ContactService handles the public contact form and the staff inbox.
type ContactService struct {
	api    contactAPI
	logger *zap.Logger
}

// NewContactService constructs a ContactService.
func NewContactService(api contactAPI, logger *zap.Logger) *ContactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactService{api: api, logger: logger}
}

// Send validates and forwards a public message.
func (s *ContactService) Send(ctx context.Context, in models.KontakInput) (*models.Kontak, error) {
	in.Nama = strings.TrimSpace(in.Nama)
	in.Email = strings.TrimSpace(in.Email)
	in.Subjek = strings.TrimSpace(in.Subjek)
	in.Pesan = strings.TrimSpace(in.Pesan)
	if errs := fieldcheck.ValidateKontak(in); errs.HasErrors() {
		return nil, errs.Err()
	}
	k, err := s.api.SendKontak(ctx, in)
	if err != nil {
		return nil, portalapi.AsAppError(err)
	}
	return k, nil
}

// List returns the inbox filtered by status and by a search over name, email and subject.
func (s *ContactService) List(ctx context.Context, q KontakQuery) ([]models.Kontak, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Status pesan tidak valid")
	}
	items, err := s.api.ListKontak(ctx)
	if err != nil {
		return nil, portalapi.AsAppError(err)
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]models.Kontak, 0, len(items))
	for _, k := range items {
		if q.Status != "" && k.Status != q.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(k.Nama), search) &&
			!strings.Contains(strings.ToLower(k.Email), search) &&
			!strings.Contains(strings.ToLower(k.Subjek), search) {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

// Get opens a message. The first view of a new message marks it read.
func (s *ContactService) Get(ctx context.Context, id int64) (*models.Kontak, error) {
	k, err := s.api.GetKontak(ctx, id)
	if err != nil {
		return nil, portalapi.AsAppError(err)
	}
	if k.Status == models.KontakBaru {
		if err := s.api.UpdateKontakStatus(ctx, id, models.KontakDibaca); err != nil {
			s.logger.Warn("mark kontak read failed", zap.Int64("id", id), zap.Error(err))
		} else {
			k.Status = models.KontakDibaca
		}
	}
	return k, nil
}

// SetStatus changes a message status explicitly.
func (s *ContactService) SetStatus(ctx context.Context, id int64, status models.KontakStatus) error {
	if !status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "Status pesan tidak valid")
	}
	if err := s.api.UpdateKontakStatus(ctx, id, status); err != nil {
		return portalapi.AsAppError(err)
	}
	return nil
}

// Reply sends a reply to the sender; the upstream marks the message dibalas.
func (s *ContactService) Reply(ctx context.Context, id int64, balasan string) error {
	balasan = strings.TrimSpace(balasan)
	if balasan == "" {
		return appErrors.WithFields(appErrors.ErrValidation, MsgReplyEmpty,
			[]appErrors.FieldError{{Field: "balasan", Message: MsgReplyEmpty}})
	}
	if err := s.api.ReplyKontak(ctx, id, models.KontakReply{Balasan: balasan}); err != nil {
		return portalapi.AsAppError(err)
	}
	s.logger.Info("kontak replied", zap.Int64("id", id))
	return nil
}

// Delete removes a message.
func (s *ContactService) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteKontak(ctx, id); err != nil {
		return portalapi.AsAppError(err)
	}
	return nil
}
