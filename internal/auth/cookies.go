package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
)

// authCookie is the Microsoft account cookie whose expiry bounds the session
const authCookie = "_U"

// SessionState is the browser-context state captured after a successful login
type SessionState struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
}

// StoredSession is the on-disk form of a persisted session
type StoredSession struct {
	Email      string            `json:"email"`
	Device     DeviceClass       `json:"device"`
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at,omitempty"`
}

// SessionStore keeps one JSON file per account and device class under a root directory
type SessionStore struct{}

// NewSessionStore creates a session store
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// SessionFile returns where the session for email and device lives under root
func SessionFile(root, email string, device DeviceClass) string {
	return filepath.Join(root, sanitizeEmail(email), string(device)+".json")
}

func sanitizeEmail(email string) string {
	return strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(strings.ToLower(strings.TrimSpace(email)))
}

// Persist writes the session to disk
// TODO: Encrypt sessions at rest
func (s *SessionStore) Persist(root string, state SessionState, email string, device DeviceClass) error {
	path := SessionFile(root, email, device)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	// Bound the session by the account cookie when it carries an expiry
	var expiresAt time.Time
	for _, c := range state.Cookies {
		if c.Name == authCookie && c.Expires > 0 {
			exp := time.Unix(int64(c.Expires), 0)
			if expiresAt.IsZero() || exp.Before(expiresAt) {
				expiresAt = exp
			}
		}
	}

	stored := StoredSession{
		Email:      email,
		Device:     device,
		Cookies:    state.Cookies,
		CapturedAt: state.CapturedAt,
		ExpiresAt:  expiresAt,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	// Replace atomically
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load retrieves the session for email and device
func (s *SessionStore) Load(root, email string, device DeviceClass) (*StoredSession, error) {
	data, err := os.ReadFile(SessionFile(root, email, device))
	if err != nil {
		return nil, err
	}

	var stored StoredSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// IsValid checks if a stored session exists and has not expired
func (s *SessionStore) IsValid(root, email string, device DeviceClass) bool {
	stored, err := s.Load(root, email, device)
	if err != nil {
		return false
	}
	if len(stored.Cookies) == 0 {
		return false
	}
	return stored.ExpiresAt.IsZero() || time.Now().Before(stored.ExpiresAt)
}

// Clear removes the stored session
func (s *SessionStore) Clear(root, email string, device DeviceClass) error {
	return os.Remove(SessionFile(root, email, device))
}
