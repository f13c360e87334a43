package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

type catalogAPI interface {
	ListLayanan(ctx context.Context, kategori models.Kategori) ([]models.Layanan, error)
	GetLayanan(ctx context.Context, id int64) (*models.Layanan, error)
	CreateLayanan(ctx context.Context, in models.LayananInput) (*models.Layanan, error)
	UpdateLayanan(ctx context.Context, id int64, in models.LayananInput) (*models.Layanan, error)
	DeleteLayanan(ctx context.Context, id int64) error
}

// CatalogService serves the layanan catalogue through the read cache.
type CatalogService struct {
	api    catalogAPI
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(api catalogAPI, cache *CacheService, ttl time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{api: api, cache: cache, ttl: ttl, logger: logger}
}

// List returns the catalogue, optionally narrowed to one category. Inactive services are only
// included for staff.
func (s *CatalogService) List(ctx context.Context, kategori models.Kategori, includeInactive bool) ([]models.Layanan, error) {
	if kategori != "" && !kategori.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Kategori tidak valid")
	}
	key := cacheKeyLayanan + "list:" + string(kategori)
	items, err := cached(ctx, s.cache, key, s.ttl, func(ctx context.Context) ([]models.Layanan, error) {
		items, err := s.api.ListLayanan(ctx, kategori)
		if err != nil {
			return nil, portalapi.AsAppError(err)
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	if includeInactive {
		return items, nil
	}
	active := make([]models.Layanan, 0, len(items))
	for _, l := range items {
		if l.Active() {
			active = append(active, l)
		}
	}
	return active, nil
}

// Get returns one service definition.
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Layanan, error) {
	return cached(ctx, s.cache, fmt.Sprintf("%s%d", cacheKeyLayanan, id), s.ttl, func(ctx context.Context) (*models.Layanan, error) {
		l, err := s.api.GetLayanan(ctx, id)
		if err != nil {
			return nil, portalapi.AsAppError(err)
		}
		return l, nil
	})
}

// Create adds a service definition.
func (s *CatalogService) Create(ctx context.Context, in models.LayananInput) (*models.Layanan, error) {
	if err := validateLayananInput(in); err != nil {
		return nil, err
	}
	l, err := s.api.CreateLayanan(ctx, in)
	if err != nil {
		return nil, portalapi.AsAppError(err)
	}
	s.cache.Invalidate(ctx, cacheKeyLayanan+"*")
	s.logger.Info("layanan created", zap.Int64("id", l.ID), zap.String("nama", l.Nama))
	return l, nil
}

// Update edits a service definition.
func (s *CatalogService) Update(ctx context.Context, id int64, in models.LayananInput) (*models.Layanan, error) {
	if err := validateLayananInput(in); err != nil {
		return nil, err
	}
	l, err := s.api.UpdateLayanan(ctx, id, in)
	if err != nil {
		return nil, portalapi.AsAppError(err)
	}
	s.cache.Invalidate(ctx, cacheKeyLayanan+"*")
	return l, nil
}

// Delete removes a service definition.
func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteLayanan(ctx, id); err != nil {
		return portalapi.AsAppError(err)
	}
	s.cache.Invalidate(ctx, cacheKeyLayanan+"*")
	s.logger.Info("layanan deleted", zap.Int64("id", id))
	return nil
}

func validateLayananInput(in models.LayananInput) error {
	var fields []appErrors.FieldError
	if strings.TrimSpace(in.Nama) == "" {
		fields = append(fields, appErrors.FieldError{Field: "nama", Message: "Nama layanan wajib diisi"})
	}
	if !in.Kategori.Valid() {
		fields = append(fields, appErrors.FieldError{Field: "kategori", Message: "Kategori tidak valid"})
	}
	if in.Status != "" && in.Status != models.LayananAktif && in.Status != models.LayananNonaktif {
		fields = append(fields, appErrors.FieldError{Field: "status", Message: "Status layanan tidak valid"})
	}
	if len(fields) > 0 {
		return appErrors.WithFields(appErrors.ErrValidation, "", fields)
	}
	return nil
}
