package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kategori groups services in the public catalogue.
type Kategori string

const (
	KategoriSurat        Kategori = "surat"
	KategoriKependudukan Kategori = "kependudukan"
	KategoriKeamanan     Kategori = "keamanan"
	KategoriPerizinan    Kategori = "perizinan"
)

// Valid reports whether k is one of the known categories.
func (k Kategori) Valid() bool {
	switch k {
	case KategoriSurat, KategoriKependudukan, KategoriKeamanan, KategoriPerizinan:
		return true
	}
	return false
}

// LayananStatus toggles whether a service is offered.
type LayananStatus string

const (
	LayananAktif    LayananStatus = "aktif"
	LayananNonaktif LayananStatus = "nonaktif"
)

// Layanan is a catalogue entry describing a document a citizen may request.
type Layanan struct {
	ID          int64         `json:"id"`
	Nama        string        `json:"nama"`
	Kategori    Kategori      `json:"kategori"`
	Deskripsi   string        `json:"deskripsi,omitempty"`
	WaktuProses FlexString    `json:"waktu_proses,omitempty"`
	Biaya       FlexString    `json:"biaya,omitempty"`
	Persyaratan Requirements  `json:"persyaratan"`
	Status      LayananStatus `json:"status"`
}

// Active reports whether the service currently accepts submissions.
func (l Layanan) Active() bool {
	return l.Status == "" || l.Status == LayananAktif
}

// LayananSummary is the slim service reference embedded in requests.
type LayananSummary struct {
	ID       int64    `json:"id"`
	Nama     string   `json:"nama"`
	Kategori Kategori `json:"kategori,omitempty"`
}

// LayananInput is the admin create/update payload. Requirements arrive as newline separated text.
type LayananInput struct {
	Nama        string        `json:"nama" binding:"required,max=255"`
	Kategori    Kategori      `json:"kategori" binding:"required,oneof=surat kependudukan keamanan perizinan"`
	Deskripsi   string        `json:"deskripsi"`
	WaktuProses string        `json:"waktu_proses"`
	Biaya       string        `json:"biaya"`
	Persyaratan string        `json:"persyaratan"`
	Status      LayananStatus `json:"status" binding:"omitempty,oneof=aktif nonaktif"`
}

// Requirements is the ordered list of documents a service needs. Upstream sometimes sends the
// list JSON-encoded inside a string, and admins type it one item per line.
type Requirements []string

// UnmarshalJSON accepts an array, a string holding a JSON array, or newline separated text.
func (r *Requirements) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*r = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []string
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("decode persyaratan: %w", err)
		}
		*r = Requirements(items)
		return nil
	}
	var raw string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("decode persyaratan: %w", err)
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "[") {
		var items []string
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			*r = Requirements(items)
			return nil
		}
	}
	*r = SplitRequirements(raw)
	return nil
}

// SplitRequirements turns one-per-line text into a list, dropping blank lines.
func SplitRequirements(text string) Requirements {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make(Requirements, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
