package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env        string
	Port       int
	APIPrefix  string
	OfficeName string

	Upstream   UpstreamConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Session    SessionConfig
	CORS       CORSConfig
	Log        LogConfig
	RateLimit  RateLimitConfig
	Uploads    UploadsConfig
	Submission SubmissionConfig
	Links      LinksConfig
	Catalog    CatalogConfig
	Dashboard  DashboardConfig
}

// UpstreamConfig points the gateway at the office's REST API.
type UpstreamConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxIdleConns int
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig controls how the upstream bearer token is held on behalf of a browser or CLI.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	TokenFile  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RateLimitConfig throttles the public write endpoints before they reach upstream.
type RateLimitConfig struct {
	Enabled       bool
	Backend       string
	LoginLimit    int
	LoginWindow   time.Duration
	SubmitLimit   int
	SubmitWindow  time.Duration
	ContactLimit  int
	ContactWindow time.Duration
}

// UploadsConfig governs file staging before attachments are forwarded upstream.
type UploadsConfig struct {
	StagingDir       string
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	DraftRetention   time.Duration
	CleanupInterval  time.Duration
}

// SubmissionConfig tunes the create-then-attach flow and its resume worker.
type SubmissionConfig struct {
	RedirectDelay    time.Duration
	RedirectTo       string
	ResumeWorkers    int
	ResumeRetries    int
	ResumeRetryDelay time.Duration
	ResumeInterval   time.Duration
	MaxAttempts      int
}

// LinksConfig signs short-lived attachment download links.
type LinksConfig struct {
	Secret string
	TTL    time.Duration
}

type CatalogConfig struct {
	CacheTTL time.Duration
}

type DashboardConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.OfficeName = v.GetString("OFFICE_NAME")

	cfg.Upstream = UpstreamConfig{
		BaseURL:      strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		Timeout:      parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 15*time.Second),
		MaxIdleConns: v.GetInt("UPSTREAM_MAX_IDLE_CONNS"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		CookieName: v.GetString("SESSION_COOKIE_NAME"),
		TTL:        parseDuration(v.GetString("SESSION_TTL"), 12*time.Hour),
		Secure:     v.GetBool("SESSION_COOKIE_SECURE"),
		TokenFile:  v.GetString("SESSION_TOKEN_FILE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
		Backend:       strings.ToLower(v.GetString("RATE_LIMIT_BACKEND")),
		LoginLimit:    v.GetInt("RATE_LIMIT_LOGIN"),
		LoginWindow:   parseDuration(v.GetString("RATE_LIMIT_LOGIN_WINDOW"), 5*time.Minute),
		SubmitLimit:   v.GetInt("RATE_LIMIT_SUBMIT"),
		SubmitWindow:  parseDuration(v.GetString("RATE_LIMIT_SUBMIT_WINDOW"), 10*time.Minute),
		ContactLimit:  v.GetInt("RATE_LIMIT_CONTACT"),
		ContactWindow: parseDuration(v.GetString("RATE_LIMIT_CONTACT_WINDOW"), 10*time.Minute),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		StagingDir:       v.GetString("UPLOAD_STAGING_DIR"),
		MaxFileSizeBytes: maxUpload,
		AllowedMIMEs:     splitAndTrim(v.GetString("UPLOAD_ALLOWED_MIME_TYPES")),
		DraftRetention:   parseDuration(v.GetString("UPLOAD_DRAFT_RETENTION"), 24*time.Hour),
		CleanupInterval:  parseDuration(v.GetString("UPLOAD_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Submission = SubmissionConfig{
		RedirectDelay:    parseDuration(v.GetString("SUBMISSION_REDIRECT_DELAY"), 5*time.Second),
		RedirectTo:       v.GetString("SUBMISSION_REDIRECT_TO"),
		ResumeWorkers:    v.GetInt("SUBMISSION_RESUME_WORKERS"),
		ResumeRetries:    v.GetInt("SUBMISSION_RESUME_RETRIES"),
		ResumeRetryDelay: parseDuration(v.GetString("SUBMISSION_RESUME_RETRY_DELAY"), 30*time.Second),
		ResumeInterval:   parseDuration(v.GetString("SUBMISSION_RESUME_INTERVAL"), 5*time.Minute),
		MaxAttempts:      v.GetInt("SUBMISSION_MAX_UPLOAD_ATTEMPTS"),
	}

	cfg.Links = LinksConfig{
		Secret: v.GetString("LINK_SIGNING_SECRET"),
		TTL:    parseDuration(v.GetString("LINK_TTL"), 5*time.Minute),
	}

	cfg.Catalog = CatalogConfig{CacheTTL: parseDuration(v.GetString("CATALOG_CACHE_TTL"), 10*time.Minute)}
	cfg.Dashboard = DashboardConfig{CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), time.Minute)}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("OFFICE_NAME", "Kantor Kelurahan")

	v.SetDefault("UPSTREAM_BASE_URL", "http://localhost:8000/api")
	v.SetDefault("UPSTREAM_TIMEOUT", "15s")
	v.SetDefault("UPSTREAM_MAX_IDLE_CONNS", 20)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "kelurahan_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_COOKIE_NAME", "portal_session")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_TOKEN_FILE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_BACKEND", "memory")
	v.SetDefault("RATE_LIMIT_LOGIN", 5)
	v.SetDefault("RATE_LIMIT_LOGIN_WINDOW", "5m")
	v.SetDefault("RATE_LIMIT_SUBMIT", 5)
	v.SetDefault("RATE_LIMIT_SUBMIT_WINDOW", "10m")
	v.SetDefault("RATE_LIMIT_CONTACT", 3)
	v.SetDefault("RATE_LIMIT_CONTACT_WINDOW", "10m")

	v.SetDefault("UPLOAD_STAGING_DIR", "./staging")
	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("UPLOAD_ALLOWED_MIME_TYPES", "application/pdf,image/jpeg,image/png")
	v.SetDefault("UPLOAD_DRAFT_RETENTION", "24h")
	v.SetDefault("UPLOAD_CLEANUP_INTERVAL", "1h")

	v.SetDefault("SUBMISSION_REDIRECT_DELAY", "5s")
	v.SetDefault("SUBMISSION_REDIRECT_TO", "/status")
	v.SetDefault("SUBMISSION_RESUME_WORKERS", 2)
	v.SetDefault("SUBMISSION_RESUME_RETRIES", 3)
	v.SetDefault("SUBMISSION_RESUME_RETRY_DELAY", "30s")
	v.SetDefault("SUBMISSION_RESUME_INTERVAL", "5m")
	v.SetDefault("SUBMISSION_MAX_UPLOAD_ATTEMPTS", 5)

	v.SetDefault("LINK_SIGNING_SECRET", "dev_link_secret")
	v.SetDefault("LINK_TTL", "5m")

	v.SetDefault("CATALOG_CACHE_TTL", "10m")
	v.SetDefault("DASHBOARD_CACHE_TTL", "1m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
