package models

import (
	"database/sql"
	"time"
)

// FileStatus is the journal state of one staged attachment.
type FileStatus string

const (
	FilePending  FileStatus = "pending"
	FileUploaded FileStatus = "uploaded"
	FileFailed   FileStatus = "failed"
)

// Submission is the journal row written right after the upstream accepted a request and before
// any attachment is forwarded.
type Submission struct {
	ID              int64            `db:"id" json:"-"`
	PermohonanID    int64            `db:"permohonan_id" json:"permohonan_id"`
	NomorRegistrasi string           `db:"nomor_registrasi" json:"nomor_registrasi"`
	DraftID         string           `db:"draft_id" json:"draft_id"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	CompletedAt     sql.NullTime     `db:"completed_at" json:"-"`
	AbandonedAt     sql.NullTime     `db:"abandoned_at" json:"-"`
	Files           []SubmissionFile `db:"-" json:"files"`
}

// Complete reports whether every attachment reached the upstream.
func (s *Submission) Complete() bool {
	return s.CompletedAt.Valid
}

// Abandoned reports whether the background resume gave up on the entry.
func (s *Submission) Abandoned() bool {
	return s.AbandonedAt.Valid
}

// Outstanding lists the files that still have to be uploaded.
func (s *Submission) Outstanding() []SubmissionFile {
	var out []SubmissionFile
	for _, f := range s.Files {
		if f.Status != FileUploaded {
			out = append(out, f)
		}
	}
	return out
}

// SubmissionFile tracks one slot of a submission.
type SubmissionFile struct {
	ID           int64          `db:"id" json:"-"`
	SubmissionID int64          `db:"submission_id" json:"-"`
	Slot         string         `db:"slot" json:"slot"`
	Filename     string         `db:"filename" json:"filename"`
	MimeType     string         `db:"mime_type" json:"mime_type"`
	Handle       string         `db:"handle" json:"-"`
	Status       FileStatus     `db:"status" json:"status"`
	Attempts     int            `db:"attempts" json:"attempts"`
	LastError    sql.NullString `db:"last_error" json:"-"`
	BerkasID     sql.NullInt64  `db:"berkas_id" json:"-"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// UploadOutcome is what the submission flow reports per slot.
type UploadOutcome struct {
	Slot     string     `json:"slot"`
	Filename string     `json:"filename"`
	Status   FileStatus `json:"status"`
	BerkasID int64      `json:"berkas_id,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// SubmissionResult is returned by a submit or resume call. The tracking number is set whenever the
// upstream created the request, even if some uploads failed.
type SubmissionResult struct {
	PermohonanID    int64           `json:"permohonan_id"`
	NomorRegistrasi string          `json:"nomor_registrasi"`
	Uploads         []UploadOutcome `json:"uploads"`
	Complete        bool            `json:"complete"`
	RedirectAfter   float64         `json:"redirect_after_seconds,omitempty"`
	RedirectTo      string          `json:"redirect_to,omitempty"`
}

// Failed lists the slots whose upload did not succeed.
func (r *SubmissionResult) Failed() []UploadOutcome {
	var failed []UploadOutcome
	for _, u := range r.Uploads {
		if u.Status != FileUploaded {
			failed = append(failed, u)
		}
	}
	return failed
}
