package models

import "time"

// NoticeLevel is the severity of a user-visible notification.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
	NoticeWarning NoticeLevel = "warning"
	NoticeInfo    NoticeLevel = "info"
)

const (
	NoticeDuration         = 3 * time.Second
	NoticeExtendedDuration = 5 * time.Second
)

// Notice is a transient message for the UI. Duration is sent as milliseconds.
type Notice struct {
	Level    NoticeLevel   `json:"level"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"-"`
	TTLMs    int64         `json:"duration_ms"`
}

// NewNotice builds a notice with the standard display time.
func NewNotice(level NoticeLevel, message string) *Notice {
	return &Notice{Level: level, Message: message, Duration: NoticeDuration, TTLMs: NoticeDuration.Milliseconds()}
}

// Extended keeps the notice on screen longer; used for rate limit and auth failures.
func (n *Notice) Extended() *Notice {
	n.Duration = NoticeExtendedDuration
	n.TTLMs = NoticeExtendedDuration.Milliseconds()
	return n
}
