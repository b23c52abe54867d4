package store

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is one recorded login for an account on a device class
type Attempt struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Device     string    `json:"device"`
	Outcome    string    `json:"outcome"`
	Succeeded  bool      `json:"succeeded"`
	Challenge  string    `json:"challenge"`
	Error      string    `json:"error,omitempty"`
	Recovered  string    `json:"recovered,omitempty"` // credential-form error that was logged and ignored
	Secondary  string    `json:"secondary"`           // verified, skipped or unverified
	Cycles     int       `json:"cycles"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration is how long the attempt took
func (a Attempt) Duration() time.Duration {
	return a.FinishedAt.Sub(a.StartedAt)
}
