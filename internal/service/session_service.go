package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	"github.com/noah-isme/kelurahan-portal/internal/repository"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

// ErrLoginCooldown is matched by errors returned while a rate-limit cooldown is running.
var ErrLoginCooldown = errors.New("login cooldown active")

// LoginCooldownError carries the remaining wait before another login attempt is allowed.
type LoginCooldownError struct {
	Remaining time.Duration
}

func (e *LoginCooldownError) Error() string {
	return fmt.Sprintf("Terlalu banyak percobaan. Tunggu %d detik.", e.RetryAfterSeconds())
}

// Unwrap lets errors.Is match ErrLoginCooldown.
func (e *LoginCooldownError) Unwrap() error { return ErrLoginCooldown }

// RetryAfterSeconds rounds the remaining wait up to whole seconds.
func (e *LoginCooldownError) RetryAfterSeconds() int {
	if e.Remaining <= 0 {
		return 1
	}
	return int((e.Remaining + time.Second - 1) / time.Second)
}

type authAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
}

// SessionStore persists gateway sessions.
type SessionStore interface {
	Save(ctx context.Context, session *models.Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionConfig tunes session lifetimes.
type SessionConfig struct {
	TTL time.Duration
	Now func() time.Time
}

// SessionService signs staff in against the upstream and keeps the resulting bearer token on the
// server, keyed by an opaque session id.
type SessionService struct {
	api    authAPI
	store  SessionStore
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
	flight *inflight

	mu        sync.Mutex
	cooldowns map[string]time.Time

	listenersMu sync.RWMutex
	restored    []func(*models.Session)
	cleared     []func(string)
}

// NewSessionService constructs a SessionService.
func NewSessionService(api authAPI, store SessionStore, cfg SessionConfig, logger *zap.Logger) *SessionService {
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		api:       api,
		store:     store,
		ttl:       cfg.TTL,
		now:       cfg.Now,
		logger:    logger,
		flight:    newInflight(),
		cooldowns: make(map[string]time.Time),
	}
}

// OnRestored registers fn to run whenever a session is established or successfully restored.
func (s *SessionService) OnRestored(fn func(*models.Session)) {
	s.listenersMu.Lock()
	s.restored = append(s.restored, fn)
	s.listenersMu.Unlock()
}

// OnCleared registers fn to run with the session id whenever a session is dropped.
func (s *SessionService) OnCleared(fn func(string)) {
	s.listenersMu.Lock()
	s.cleared = append(s.cleared, fn)
	s.listenersMu.Unlock()
}

func (s *SessionService) fireRestored(session *models.Session) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, fn := range s.restored {
		fn(session)
	}
}

func (s *SessionService) fireCleared(id string) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, fn := range s.cleared {
		fn(id)
	}
}

// Login exchanges credentials for an upstream token and stores a new session.
func (s *SessionService) Login(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	username := strings.TrimSpace(req.Username)
	var fields []appErrors.FieldError
	if username == "" {
		fields = append(fields, appErrors.FieldError{Field: "username", Message: "Username wajib diisi"})
	}
	if req.Password == "" {
		fields = append(fields, appErrors.FieldError{Field: "password", Message: "Password wajib diisi"})
	}
	if len(fields) > 0 {
		return nil, appErrors.WithFields(appErrors.ErrValidation, "", fields)
	}

	key := strings.ToLower(username)
	if remaining := s.CooldownRemaining(key); remaining > 0 {
		cooldown := &LoginCooldownError{Remaining: remaining}
		return nil, appErrors.Wrap(cooldown, appErrors.ErrRateLimited.Code, appErrors.ErrRateLimited.Status, cooldown.Error())
	}

	done, err := s.flight.begin("login:" + key)
	if err != nil {
		return nil, err
	}
	defer done()

	result, err := s.api.Login(ctx, models.LoginRequest{Username: username, Password: req.Password})
	if err != nil {
		var apiErr *portalapi.APIError
		if errors.As(err, &apiErr) && portalapi.IsRateLimited(err) {
			s.startCooldown(key, apiErr.RetryAfter)
		}
		return nil, portalapi.AsAppError(err)
	}
	if result.Token == "" {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "Respons login tidak berisi token")
	}

	now := s.now().UTC()
	ttl, err := s.sessionTTL(result.Token, now)
	if err != nil {
		return nil, err
	}
	session := &models.Session{
		ID:        uuid.NewString(),
		Token:     result.Token,
		User:      result.User,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.store.Save(ctx, session, ttl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store session")
	}

	s.logger.Info("session created", zap.String("username", username), zap.String("role", string(result.User.Role)))
	s.fireRestored(session)
	return session, nil
}

// sessionTTL follows the token's exp claim when the token is a JWT, else the configured TTL.
func (s *SessionService) sessionTTL(token string, now time.Time) (time.Duration, error) {
	exp, ok := tokenExpiry(token)
	if !ok {
		return s.ttl, nil
	}
	ttl := exp.Sub(now)
	if ttl <= 0 {
		return 0, appErrors.Clone(appErrors.ErrUnauthorized, "Token sudah kedaluwarsa")
	}
	return ttl, nil
}

// tokenExpiry reads exp without verifying the signature; the gateway never holds the signing key.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Lookup resolves a session id from the store without contacting the upstream.
func (s *SessionService) Lookup(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Sesi tidak ditemukan")
	}
	session, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Sesi tidak ditemukan atau sudah berakhir")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.Expired(s.now()) {
		s.clear(ctx, id)
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Sesi sudah berakhir")
	}
	return session, nil
}

// Restore validates a stored session against GET /me and refreshes the cached user. A rejected
// token clears the session; transport failures keep it.
func (s *SessionService) Restore(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	user, err := s.api.Me(portalapi.WithToken(ctx, session.Token))
	if err != nil {
		if portalapi.IsKind(err, portalapi.KindUnauthorized) || portalapi.IsKind(err, portalapi.KindForbidden) {
			s.clear(ctx, id)
		}
		return nil, portalapi.AsAppError(err)
	}
	session.User = *user
	if remaining := session.ExpiresAt.Sub(s.now()); remaining > 0 {
		if err := s.store.Save(ctx, session, remaining); err != nil {
			s.logger.Warn("refresh session failed", zap.String("session_id", id), zap.Error(err))
		}
	}
	s.fireRestored(session)
	return session, nil
}

// Logout revokes the upstream token best-effort and always drops the local session.
func (s *SessionService) Logout(ctx context.Context, id string) error {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if err := s.api.Logout(portalapi.WithToken(ctx, session.Token)); err != nil {
		s.logger.Warn("upstream logout failed", zap.String("session_id", id), zap.Error(err))
	}
	s.clear(ctx, id)
	return nil
}

func (s *SessionService) clear(ctx context.Context, id string) {
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Warn("delete session failed", zap.String("session_id", id), zap.Error(err))
	}
	s.fireCleared(id)
}

// CooldownRemaining returns how long logins for key stay blocked.
func (s *SessionService) CooldownRemaining(key string) time.Duration {
	key = strings.ToLower(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.cooldowns[key]
	if !ok {
		return 0
	}
	remaining := until.Sub(s.now())
	if remaining <= 0 {
		delete(s.cooldowns, key)
		return 0
	}
	return remaining
}

func (s *SessionService) startCooldown(key string, wait time.Duration) {
	if wait <= 0 {
		wait = portalapi.DefaultRetryAfter
	}
	s.mu.Lock()
	s.cooldowns[key] = s.now().Add(wait)
	s.mu.Unlock()
	s.logger.Warn("login rate limited", zap.String("username", key), zap.Duration("cooldown", wait))
}
