package models

import "time"

// StagedFile is a picked file held by the gateway until the parent request exists.
type StagedFile struct {
	Slot     string     `json:"slot"`
	Filename string     `json:"filename"`
	MimeType string     `json:"mime_type"`
	Kind     BerkasKind `json:"kind"`
	Size     int64      `json:"size"`
	Handle   string     `json:"handle"`
	StagedAt time.Time  `json:"staged_at"`
}

// Draft is the staging area of one in-progress request form. At most one file per slot.
type Draft struct {
	ID        string                `json:"id"`
	CreatedAt time.Time             `json:"created_at"`
	Files     map[string]StagedFile `json:"files"`
}

// Slots returns the staged slot names in no particular order.
func (d *Draft) Slots() []string {
	slots := make([]string, 0, len(d.Files))
	for slot := range d.Files {
		slots = append(slots, slot)
	}
	return slots
}
