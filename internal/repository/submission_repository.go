package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/kelurahan-portal/internal/models"
)

// SubmissionRepository persists the submission journal: one row per created request and one per
// staged attachment, so uploads can be resumed after a partial failure.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `id, permohonan_id, nomor_registrasi, draft_id, created_at, completed_at, abandoned_at`

const submissionFileColumns = `id, submission_id, slot, filename, mime_type, handle, status, attempts, last_error, berkas_id, updated_at`

// Create journals a submission and its files in one transaction. IDs are written back into sub.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.Submission) (err error) {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submission journal: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertSubmission = `INSERT INTO submissions (permohonan_id, nomor_registrasi, draft_id, created_at)
	VALUES ($1, $2, $3, $4) RETURNING id`
	if err = tx.QueryRowxContext(ctx, insertSubmission, sub.PermohonanID, sub.NomorRegistrasi, sub.DraftID, sub.CreatedAt).Scan(&sub.ID); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	const insertFile = `INSERT INTO submission_files (submission_id, slot, filename, mime_type, handle, status, attempts, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, 0, $7) RETURNING id`
	for i := range sub.Files {
		f := &sub.Files[i]
		f.SubmissionID = sub.ID
		if f.Status == "" {
			f.Status = models.FilePending
		}
		f.UpdatedAt = sub.CreatedAt
		if err = tx.QueryRowxContext(ctx, insertFile, sub.ID, f.Slot, f.Filename, f.MimeType, f.Handle, f.Status, f.UpdatedAt).Scan(&f.ID); err != nil {
			return fmt.Errorf("insert submission file %s: %w", f.Slot, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit submission journal: %w", err)
	}
	return nil
}

// GetByPermohonanID loads a journal entry and its files. Returns sql.ErrNoRows when absent.
func (r *SubmissionRepository) GetByPermohonanID(ctx context.Context, permohonanID int64) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE permohonan_id = $1`
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, permohonanID); err != nil {
		return nil, err
	}
	files, err := r.files(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	sub.Files = files
	return &sub, nil
}

func (r *SubmissionRepository) files(ctx context.Context, submissionID int64) ([]models.SubmissionFile, error) {
	query := `SELECT ` + submissionFileColumns + ` FROM submission_files WHERE submission_id = $1 ORDER BY id`
	var files []models.SubmissionFile
	if err := r.db.SelectContext(ctx, &files, query, submissionID); err != nil {
		return nil, fmt.Errorf("list submission files: %w", err)
	}
	return files, nil
}

// MarkUploaded records a successful upload.
func (r *SubmissionRepository) MarkUploaded(ctx context.Context, fileID, berkasID int64, at time.Time) error {
	const query = `UPDATE submission_files
	SET status = $2, berkas_id = $3, attempts = attempts + 1, last_error = NULL, updated_at = $4
	WHERE id = $1`
	return r.updateFile(ctx, query, fileID, models.FileUploaded, berkasID, at)
}

// MarkFailed records a failed attempt with its error text.
func (r *SubmissionRepository) MarkFailed(ctx context.Context, fileID int64, reason string, at time.Time) error {
	const query = `UPDATE submission_files
	SET status = $2, last_error = $3, attempts = attempts + 1, updated_at = $4
	WHERE id = $1`
	return r.updateFile(ctx, query, fileID, models.FileFailed, reason, at)
}

func (r *SubmissionRepository) updateFile(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update submission file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check submission file rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkComplete closes a journal entry once every file is uploaded.
func (r *SubmissionRepository) MarkComplete(ctx context.Context, submissionID int64, at time.Time) error {
	const query = `UPDATE submissions SET completed_at = $2 WHERE id = $1 AND completed_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, submissionID, at); err != nil {
		return fmt.Errorf("complete submission: %w", err)
	}
	return nil
}

// MarkAbandoned takes an open entry out of the resume sweep once its files ran out of attempts.
func (r *SubmissionRepository) MarkAbandoned(ctx context.Context, submissionID int64, at time.Time) error {
	const query = `UPDATE submissions SET abandoned_at = $2
	WHERE id = $1 AND completed_at IS NULL AND abandoned_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, submissionID, at); err != nil {
		return fmt.Errorf("abandon submission: %w", err)
	}
	return nil
}

// ListIncomplete returns open journal entries created before cutoff, oldest first. Abandoned
// entries are left out.
func (r *SubmissionRepository) ListIncomplete(ctx context.Context, cutoff time.Time, limit int) ([]models.Submission, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT ` + submissionColumns + ` FROM submissions
	WHERE completed_at IS NULL AND abandoned_at IS NULL AND created_at < $1
	ORDER BY created_at ASC LIMIT $2`
	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list incomplete submissions: %w", err)
	}
	return subs, nil
}

// OpenDraftIDs lists the drafts still referenced by a resumable entry. Their staged files must
// outlive the draft retention.
func (r *SubmissionRepository) OpenDraftIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT draft_id FROM submissions
	WHERE completed_at IS NULL AND abandoned_at IS NULL AND draft_id <> ''`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list open drafts: %w", err)
	}
	return ids, nil
}

// Ping checks the journal database connection.
func (r *SubmissionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
