package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

type userAPI interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, in models.UserInput) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, in models.UserInput) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// UserService manages staff accounts through the upstream.
type UserService struct {
	api    userAPI
	logger *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(api userAPI, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{api: api, logger: logger}
}

// List returns every staff account.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return nil, portalapi.AsAppError(err)
	}
	return users, nil
}

// Create adds a staff account. A password is mandatory here.
func (s *UserService) Create(ctx context.Context, in models.UserInput) (*models.User, error) {
	if in.Password == "" {
		return nil, appErrors.WithFields(appErrors.ErrValidation, "",
			[]appErrors.FieldError{{Field: "password", Message: "Password wajib diisi"}})
	}
	if in.Status == "" {
		in.Status = models.UserAktif
	}
	user, err := s.api.CreateUser(ctx, normalizeUserInput(in))
	if err != nil {
		return nil, portalapi.AsAppError(err)
	}
	s.logger.Info("user created", zap.Int64("id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Update edits a staff account. An empty password keeps the current one.
func (s *UserService) Update(ctx context.Context, id int64, in models.UserInput) (*models.User, error) {
	user, err := s.api.UpdateUser(ctx, id, normalizeUserInput(in))
	if err != nil {
		return nil, portalapi.AsAppError(err)
	}
	return user, nil
}

// Delete removes a staff account other than the caller's own.
func (s *UserService) Delete(ctx context.Context, id, actorID int64) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "Tidak dapat menghapus akun sendiri")
	}
	if err := s.api.DeleteUser(ctx, id); err != nil {
		return portalapi.AsAppError(err)
	}
	s.logger.Info("user deleted", zap.Int64("id", id), zap.Int64("actor_id", actorID))
	return nil
}

func normalizeUserInput(in models.UserInput) models.UserInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	return in
}
