package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

// memoryCacheRepo mimics the redis repository: JSON values and prefix patterns ending in "*".
type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.entries[key] = raw
	r.mu.Unlock()
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.entries {
		if strings.HasPrefix(key, prefix) {
			delete(r.entries, key)
		}
	}
	return nil
}

type fakeCatalogAPI struct {
	items     []models.Layanan
	listCalls int
	created   []models.LayananInput
	deleted   []int64
}

func (f *fakeCatalogAPI) ListLayanan(ctx context.Context, kategori models.Kategori) ([]models.Layanan, error) {
	f.listCalls++
	var out []models.Layanan
	for _, l := range f.items {
		if kategori == "" || l.Kategori == kategori {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeCatalogAPI) GetLayanan(ctx context.Context, id int64) (*models.Layanan, error) {
	for _, l := range f.items {
		if l.ID == id {
			l := l
			return &l, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

func (f *fakeCatalogAPI) CreateLayanan(ctx context.Context, in models.LayananInput) (*models.Layanan, error) {
	f.created = append(f.created, in)
	l := models.Layanan{ID: int64(len(f.items) + 1), Nama: in.Nama, Kategori: in.Kategori, Status: models.LayananAktif}
	f.items = append(f.items, l)
	return &l, nil
}

func (f *fakeCatalogAPI) UpdateLayanan(ctx context.Context, id int64, in models.LayananInput) (*models.Layanan, error) {
	return &models.Layanan{ID: id, Nama: in.Nama, Kategori: in.Kategori, Status: in.Status}, nil
}

func (f *fakeCatalogAPI) DeleteLayanan(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func newCatalogFixture() (*CatalogService, *fakeCatalogAPI) {
	api := &fakeCatalogAPI{items: []models.Layanan{
		{ID: 1, Nama: "Surat Pengantar KTP", Kategori: models.KategoriKependudukan, Status: models.LayananAktif},
		{ID: 2, Nama: "Surat Keterangan Usaha", Kategori: models.KategoriPerizinan, Status: models.LayananNonaktif},
		{ID: 3, Nama: "Surat Keterangan Domisili", Kategori: models.KategoriSurat},
	}}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	return NewCatalogService(api, cache, time.Minute, nil), api
}

func TestCatalogListHidesInactiveForPublic(t *testing.T) {
	svc, _ := newCatalogFixture()

	public, err := svc.List(context.Background(), "", false)
	require.NoError(t, err)
	assert.Len(t, public, 2)

	all, err := svc.List(context.Background(), "", true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.List(context.Background(), "pajak", false)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCatalogCachesAndInvalidatesOnWrite(t *testing.T) {
	svc, api := newCatalogFixture()
	ctx := context.Background()

	_, err := svc.List(ctx, models.KategoriSurat, false)
	require.NoError(t, err)
	_, err = svc.List(ctx, models.KategoriSurat, false)
	require.NoError(t, err)
	assert.Equal(t, 1, api.listCalls)

	_, err = svc.Create(ctx, models.LayananInput{Nama: "Surat Keterangan Tidak Mampu", Kategori: models.KategoriSurat})
	require.NoError(t, err)

	items, err := svc.List(ctx, models.KategoriSurat, false)
	require.NoError(t, err)
	assert.Equal(t, 2, api.listCalls)
	assert.Len(t, items, 2)
}

func TestCatalogCreateValidates(t *testing.T) {
	svc, api := newCatalogFixture()

	_, err := svc.Create(context.Background(), models.LayananInput{Nama: " ", Kategori: "lainnya"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, "Nama layanan wajib diisi", appErr.Message)
	assert.Len(t, appErr.Fields, 2)
	assert.Empty(t, api.created)
}

func TestCatalogDelete(t *testing.T) {
	svc, api := newCatalogFixture()

	require.NoError(t, svc.Delete(context.Background(), 2))
	assert.Equal(t, []int64{2}, api.deleted)
}

type fakeDashboardAPI struct {
	calls []int
}

func (f *fakeDashboardAPI) DashboardStats(ctx context.Context, days int) (*models.DashboardStats, error) {
	f.calls = append(f.calls, days)
	return &models.DashboardStats{Stats: models.DashboardCounts{PermohonanBaru: 2, PermohonanProses: 3, PermohonanSelesai: 4, PermohonanDitolak: 1}}, nil
}

func TestDashboardStatsDefaultsAndCaches(t *testing.T) {
	api := &fakeDashboardAPI{}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewDashboardService(api, cache, time.Minute, nil)

	stats, err := svc.Stats(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Stats.TotalPermohonan)

	_, err = svc.Stats(context.Background(), 7)
	require.NoError(t, err)
	_, err = svc.Stats(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 30}, api.calls)
}

func TestDashboardStatsWithoutCache(t *testing.T) {
	api := &fakeDashboardAPI{}
	svc := NewDashboardService(api, nil, time.Minute, nil)

	_, err := svc.Stats(context.Background(), 400)
	require.NoError(t, err)
	_, err = svc.Stats(context.Background(), 400)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 7}, api.calls)
}
