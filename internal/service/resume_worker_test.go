package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/noah-isme/kelurahan-portal/internal/models"
)

func TestResumeWorkerSweepReattachesOutstandingFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	fx := newSubmissionFixture(t)
	fx.api.failSlots["kk"] = 1
	draftID := fx.draftWith(t, "ktp", "kk")
	_, err := fx.svc.Submit(context.Background(), SubmitInput{Applicant: validApplicant(), LayananID: 3, DraftID: draftID})
	require.ErrorIs(t, err, ErrPartialUpload)

	// Age the journal entry past MinAge.
	fx.journal.mu.Lock()
	fx.journal.subs[41].CreatedAt = submitNow.Add(-10 * time.Minute)
	fx.journal.mu.Unlock()

	worker := NewResumeWorker(fx.svc, ResumeWorkerConfig{Workers: 1, MaxRetries: 1, RetryDelay: time.Millisecond, Interval: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	queued, err := worker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, queued)

	assert.Eventually(t, func() bool {
		sub := fx.journal.stored(41)
		fx.journal.mu.Lock()
		defer fx.journal.mu.Unlock()
		return sub.Complete()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, fx.api.uploadCount("kk"))
	assert.Equal(t, 1, fx.api.uploadCount("ktp"))

	cancel()
	worker.Stop()
}

func TestResumeWorkerSkipsFreshSubmissions(t *testing.T) {
	defer goleak.VerifyNone(t)

	fx := newSubmissionFixture(t)
	require.NoError(t, fx.journal.Create(context.Background(), &models.Submission{
		PermohonanID: 77,
		CreatedAt:    submitNow.Add(-10 * time.Second),
		Files:        []models.SubmissionFile{{Slot: "ktp", Status: models.FileFailed, LastError: sql.NullString{String: "x", Valid: true}}},
	}))

	worker := NewResumeWorker(fx.svc, ResumeWorkerConfig{Workers: 1, Interval: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	queued, err := worker.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, queued)

	cancel()
	worker.Stop()
}
