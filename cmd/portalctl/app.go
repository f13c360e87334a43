package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	"github.com/noah-isme/kelurahan-portal/internal/repository"
	"github.com/noah-isme/kelurahan-portal/internal/service"
	"github.com/noah-isme/kelurahan-portal/pkg/config"
	"github.com/noah-isme/kelurahan-portal/pkg/database"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
	"github.com/noah-isme/kelurahan-portal/pkg/logger"
	"github.com/noah-isme/kelurahan-portal/pkg/middleware/requestid"
	"github.com/noah-isme/kelurahan-portal/pkg/storage"
)

// app holds what every command shares. It is filled in by the root command's PersistentPreRunE.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	reader *bufio.Reader

	verbose   bool
	baseURL   string
	tokenFile string

	cfg      *config.Config
	logger   *zap.Logger
	api      *portalapi.Client
	tokens   *repository.TokenFileStore
	sessions *service.SessionService

	db *sqlx.DB
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: in, out: out, errOut: errOut}
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a.cfg = cfg
	}
	if a.baseURL != "" {
		a.cfg.Upstream.BaseURL = strings.TrimRight(a.baseURL, "/")
	}
	if a.tokenFile != "" {
		a.cfg.Session.TokenFile = a.tokenFile
	}

	if a.logger == nil {
		log, err := logger.NewCLI(a.verbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		a.logger = log
	}

	api, err := portalapi.New(portalapi.Config{
		BaseURL: a.cfg.Upstream.BaseURL,
		Timeout: a.cfg.Upstream.Timeout,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}
	a.api = api

	tokens, err := repository.NewTokenFileStore(a.cfg.Session.TokenFile)
	if err != nil {
		return err
	}
	a.tokens = tokens
	a.sessions = service.NewSessionService(api, newTokenSessionStore(tokens), service.SessionConfig{TTL: a.cfg.Session.TTL}, a.logger)

	ctx := requestid.NewContext(cmd.Context(), uuid.NewString())
	cmd.SetContext(ctx)
	return nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// authorized returns ctx carrying the stored upstream token.
func (a *app) authorized(ctx context.Context) (context.Context, error) {
	session, err := a.sessions.Lookup(ctx, cliSessionID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Belum login. Jalankan: portalctl login")
	}
	return portalapi.WithToken(ctx, session.Token), nil
}

// journal opens the submission journal on first use; only submit and resume need the database.
func (a *app) journal() (*repository.SubmissionRepository, error) {
	if a.db == nil {
		db, err := database.NewPostgres(a.cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect submission journal: %w", err)
		}
		a.db = db
	}
	return repository.NewSubmissionRepository(a.db), nil
}

func (a *app) staging() (*service.StagingService, error) {
	local, err := storage.NewLocalStorage(a.cfg.Uploads.StagingDir)
	if err != nil {
		return nil, fmt.Errorf("open staging dir: %w", err)
	}
	return service.NewStagingService(local, service.StagingConfig{
		MaxFileSize:  a.cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: a.cfg.Uploads.AllowedMIMEs,
		Retention:    a.cfg.Uploads.DraftRetention,
	}, nil, a.logger), nil
}

func (a *app) submissions() (*service.SubmissionService, *service.StagingService, error) {
	staging, err := a.staging()
	if err != nil {
		return nil, nil, err
	}
	journal, err := a.journal()
	if err != nil {
		return nil, nil, err
	}
	staging.KeepPinnedDrafts(journal)
	subs := service.NewSubmissionService(a.api, journal, staging, nil, a.logger, service.SubmissionConfig{
		RedirectDelay: a.cfg.Submission.RedirectDelay,
		RedirectTo:    a.cfg.Submission.RedirectTo,
		MaxAttempts:   a.cfg.Submission.MaxAttempts,
	})
	return subs, staging, nil
}

func (a *app) line() *bufio.Reader {
	if a.reader == nil {
		a.reader = bufio.NewReader(a.in)
	}
	return a.reader
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.errOut, label)
	raw, err := a.line().ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && raw != "") {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// promptPassword reads without echo when stdin is a terminal and falls back to a plain line for
// piped input.
func (a *app) promptPassword(label string) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.errOut, label)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.errOut)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	return a.prompt(label)
}

// confirm asks a yes/no question; anything but y/ya/yes declines.
func (a *app) confirm(question string) (bool, error) {
	answer, err := a.prompt(question + " [y/N]: ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "ya", "yes":
		return true, nil
	}
	return false, nil
}

func (a *app) printError(err error) {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(a.errOut, "Error: %s\n", appErr.Message)
	for _, f := range appErr.Fields {
		if f.Message == appErr.Message {
			continue
		}
		fmt.Fprintf(a.errOut, "  - %s: %s\n", f.Field, f.Message)
	}
	if appErr.Err != nil {
		a.debug("command failed", zap.Error(appErr.Err))
	}
}

func (a *app) debug(msg string, fields ...zap.Field) {
	if a.logger != nil {
		a.logger.Debug(msg, fields...)
	}
}
