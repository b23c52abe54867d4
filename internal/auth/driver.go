package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
)

// ElementState is the condition WaitFor waits on
type ElementState string

const (
	StateAttached ElementState = "attached"
	StateVisible  ElementState = "visible"
	StateHidden   ElementState = "hidden"
)

// Driver is the page-automation surface the login flow needs. It only
// issues declarative requests; markup knowledge lives in selectors.go.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// WaitFor reports whether selector reached state before timeout.
	// A timeout is an answer, not an error.
	WaitFor(ctx context.Context, selector string, state ElementState, timeout time.Duration) bool
	Fill(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	ReadText(ctx context.Context, selector string) (string, error)
	PressKey(ctx context.Context, key string) error
	CurrentURL(ctx context.Context) (string, error)
	DismissKnownDialogs(ctx context.Context) error
	DismissConsentBanner(ctx context.Context) error
	Cookies(ctx context.Context) ([]*network.Cookie, error)
}

// SessionPersister writes the browser-context state for one account and device class
type SessionPersister interface {
	Persist(path string, state SessionState, email string, device DeviceClass) error
}

// CodeSource supplies a line typed by the operator. Implementations are
// single use: a second RequestLine call fails.
type CodeSource interface {
	RequestLine(ctx context.Context, prompt string) (string, error)
}

// Location is the (hostname, path) pair compared while waiting for redirects to settle
type Location struct {
	Host string
	Path string
}

// ParseLocation extracts the comparable location from a page URL
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse url %q: %w", raw, err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return Location{Host: strings.ToLower(u.Hostname()), Path: path}, nil
}

func (l Location) String() string {
	return l.Host + l.Path
}

// currentLocation reads the page URL from the driver and parses it
func currentLocation(ctx context.Context, d Driver) (Location, error) {
	raw, err := d.CurrentURL(ctx)
	if err != nil {
		return Location{}, err
	}
	return ParseLocation(raw)
}

// Timeouts bounds every wait in the login flow
type Timeouts struct {
	SessionProbe   time.Duration // already signed in marker
	LockProbe      time.Duration // account lock notice
	PasswordField  time.Duration
	PasswordPause  time.Duration // settle time before typing the password
	ChallengeProbe time.Duration
	PushApproval   time.Duration
	Authenticated  time.Duration // portal marker after convergence
	Convergence    time.Duration // zero means unbounded
	SecondaryProbe time.Duration
	SecondaryRetry time.Duration
}

// DefaultTimeouts returns the waits the Microsoft sign-in flow has been tuned against
func DefaultTimeouts() Timeouts {
	return Timeouts{
		SessionProbe:   10 * time.Second,
		LockProbe:      1 * time.Second,
		PasswordField:  2 * time.Second,
		PasswordPause:  2 * time.Second,
		ChallengeProbe: 2 * time.Second,
		PushApproval:   30 * time.Second,
		Authenticated:  10 * time.Second,
		Convergence:    2 * time.Minute,
		SecondaryProbe: 5 * time.Second,
		SecondaryRetry: 1 * time.Second,
	}
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
