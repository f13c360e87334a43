package models

import "strings"

// BerkasKind is derived from the MIME type of an attachment.
type BerkasKind string

const (
	BerkasImage    BerkasKind = "image"
	BerkasDocument BerkasKind = "document"
)

// KindForMIME maps an allowed MIME type to its attachment kind.
func KindForMIME(mimeType string) BerkasKind {
	if strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		return BerkasImage
	}
	return BerkasDocument
}

// Berkas is one uploaded attachment bound to a request.
type Berkas struct {
	ID           int64      `json:"id"`
	PermohonanID int64      `json:"permohonan_id"`
	JenisBerkas  string     `json:"jenis_berkas"`
	NamaFile     string     `json:"nama_file"`
	MimeType     string     `json:"mime_type,omitempty"`
	Kind         BerkasKind `json:"kind,omitempty"`
	Ukuran       int64      `json:"ukuran"`
	Path         string     `json:"path,omitempty"`
	CreatedAt    Timestamp  `json:"created_at"`
}
