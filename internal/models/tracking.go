package models

// StepState is the rendering state of one tracking step.
type StepState string

const (
	StepCompleted StepState = "completed"
	StepPending   StepState = "pending"
	StepCancelled StepState = "cancelled"
)

// TrackingStep is one row of the status timeline.
type TrackingStep struct {
	Stage      Stage     `json:"stage"`
	Label      string    `json:"label"`
	State      StepState `json:"state"`
	Tanggal    Timestamp `json:"tanggal"`
	Keterangan string    `json:"keterangan,omitempty"`
}

// TrackingSummary is the applicant block shown above the timeline.
type TrackingSummary struct {
	Nama            string    `json:"nama"`
	NomorRegistrasi string    `json:"nomor_registrasi"`
	Layanan         string    `json:"layanan"`
	CreatedAt       Timestamp `json:"created_at"`
	EstimasiSelesai Timestamp `json:"estimasi_selesai"`
}

// TrackingView is the status lookup result. Request is nil when nothing was found.
type TrackingView struct {
	Found        bool             `json:"found"`
	Message      string           `json:"message,omitempty"`
	Summary      *TrackingSummary `json:"summary,omitempty"`
	Stage        Stage            `json:"stage,omitempty"`
	StageLabel   string           `json:"stage_label,omitempty"`
	Steps        []TrackingStep   `json:"steps,omitempty"`
	Pickup       []string         `json:"pickup,omitempty"`
	CatatanAdmin string           `json:"catatan_admin,omitempty"`
	Request      *Permohonan      `json:"-"`
}
