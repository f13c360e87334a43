package models

// KontakStatus tracks how far staff got with an inbound message.
type KontakStatus string

const (
	KontakBaru    KontakStatus = "baru"
	KontakDibaca  KontakStatus = "dibaca"
	KontakDibalas KontakStatus = "dibalas"
)

// Valid reports whether s is a known contact status.
func (s KontakStatus) Valid() bool {
	switch s {
	case KontakBaru, KontakDibaca, KontakDibalas:
		return true
	}
	return false
}

// Kontak is a message sent through the public contact form.
type Kontak struct {
	ID        int64        `json:"id"`
	Nama      string       `json:"nama"`
	Email     string       `json:"email"`
	Subjek    string       `json:"subjek"`
	Pesan     string       `json:"pesan"`
	Status    KontakStatus `json:"status"`
	Balasan   string       `json:"balasan,omitempty"`
	CreatedAt Timestamp    `json:"created_at"`
}

// KontakInput is the public contact form payload.
type KontakInput struct {
	Nama   string `json:"nama" binding:"required,max=255"`
	Email  string `json:"email" binding:"required,email_id"`
	Subjek string `json:"subjek" binding:"required,subjek"`
	Pesan  string `json:"pesan" binding:"required,pesan"`
}

// KontakReply is the staff reply payload.
type KontakReply struct {
	Balasan string `json:"balasan" binding:"required,min=1,max=5000"`
}
