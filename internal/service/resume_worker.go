package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
	"github.com/noah-isme/kelurahan-portal/pkg/jobs"
)

const resumeJobType = "submission.resume"

// ResumeWorkerConfig tunes the background sweep over incomplete submissions.
type ResumeWorkerConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	Interval   time.Duration
	// MinAge keeps the sweep away from submissions whose first upload round may still be running.
	MinAge    time.Duration
	BatchSize int
}

// ResumeWorker periodically re-attaches files for submissions left incomplete.
type ResumeWorker struct {
	submissions *SubmissionService
	queue       *jobs.Queue
	cfg         ResumeWorkerConfig
	logger      *zap.Logger

	wg sync.WaitGroup
}

// NewResumeWorker wires the sweep onto a job queue.
func NewResumeWorker(submissions *SubmissionService, cfg ResumeWorkerConfig, logger *zap.Logger) *ResumeWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &ResumeWorker{submissions: submissions, cfg: cfg, logger: logger}
	w.queue = jobs.NewQueue("submission-resume", w.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return w
}

// Start launches the queue workers and the sweep loop.
func (w *ResumeWorker) Start(ctx context.Context) {
	w.queue.Start(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.Sweep(ctx); err != nil {
					w.logger.Sugar().Warnw("resume sweep failed", "error", err)
				}
			}
		}
	}()
}

// Stop halts the sweep and waits for in-flight jobs. The context passed to Start must be
// cancelled first or the sweep loop keeps running.
func (w *ResumeWorker) Stop() {
	w.queue.Stop()
	w.wg.Wait()
}

// Sweep enqueues one resume job per incomplete submission and returns how many were queued.
func (w *ResumeWorker) Sweep(ctx context.Context) (int, error) {
	subs, err := w.submissions.ResumeIncomplete(ctx, w.cfg.MinAge, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	queued := 0
	for _, sub := range subs {
		err := w.queue.Enqueue(jobs.Job{
			ID:      fmt.Sprintf("resume:%d", sub.PermohonanID),
			Type:    resumeJobType,
			Payload: sub.PermohonanID,
		})
		switch {
		case err == nil:
			queued++
		case errors.Is(err, jobs.ErrDuplicate):
		default:
			return queued, err
		}
	}
	if queued > 0 {
		w.logger.Sugar().Infow("resume jobs queued", "count", queued)
	}
	return queued, nil
}

func (w *ResumeWorker) handle(ctx context.Context, job jobs.Job) error {
	permohonanID, ok := job.Payload.(int64)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	result, err := w.submissions.AttachRemaining(ctx, permohonanID)
	switch {
	case err == nil:
		w.logger.Sugar().Infow("submission resumed", "permohonan_id", permohonanID, "nomor_registrasi", result.NomorRegistrasi)
		return nil
	case errors.Is(err, appErrors.ErrBusy):
		return nil
	case portalapi.IsRateLimited(err):
		// The next sweep picks it up again.
		w.logger.Sugar().Warnw("resume rate limited", "permohonan_id", permohonanID)
		return nil
	default:
		return err
	}
}
