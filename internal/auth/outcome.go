package auth

import (
	"errors"
	"fmt"
	"strings"
)

// DeviceClass identifies which kind of client the browser session emulates
type DeviceClass string

const (
	Desktop DeviceClass = "desktop"
	Mobile  DeviceClass = "mobile"
)

// ParseDeviceClass converts a config value into a DeviceClass
func ParseDeviceClass(s string) (DeviceClass, error) {
	switch DeviceClass(strings.ToLower(strings.TrimSpace(s))) {
	case Desktop:
		return Desktop, nil
	case Mobile:
		return Mobile, nil
	default:
		return "", fmt.Errorf("unknown device class %q", s)
	}
}

// Account identifies whose session is being established and on which device class
type Account struct {
	Email  string
	Device DeviceClass
}

// Credential is the input for a single login attempt. It is never persisted.
type Credential struct {
	Email    string
	Password string
}

// OutcomeKind tags the terminal result of a login attempt
type OutcomeKind int

const (
	OutcomeFailed OutcomeKind = iota
	OutcomeAlreadyLoggedIn
	OutcomeLoggedIn
	OutcomeAccountLocked
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAlreadyLoggedIn:
		return "already-logged-in"
	case OutcomeLoggedIn:
		return "logged-in"
	case OutcomeAccountLocked:
		return "account-locked"
	default:
		return "failed"
	}
}

// Outcome is the tagged result of Manager.Login. Reason is only set for OutcomeFailed.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

// Succeeded reports whether the session can be handed off for reuse
func (o Outcome) Succeeded() bool {
	switch o.Kind {
	case OutcomeAlreadyLoggedIn, OutcomeLoggedIn:
		return true
	case OutcomeAccountLocked, OutcomeFailed:
		return false
	}
	return false
}

func (o Outcome) String() string {
	if o.Kind == OutcomeFailed && o.Reason != "" {
		return fmt.Sprintf("%s(%s)", o.Kind, o.Reason)
	}
	return o.Kind.String()
}

// Failed builds an OutcomeFailed with the given reason
func Failed(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}

// ChallengeDecision is the second-factor path the sign-in page put us on
type ChallengeDecision int

const (
	NoChallenge ChallengeDecision = iota
	PushNotificationPending
	CodeRequired
)

func (d ChallengeDecision) String() string {
	switch d {
	case PushNotificationPending:
		return "push-notification"
	case CodeRequired:
		return "one-time-code"
	default:
		return "none"
	}
}

// SecondaryCheck is what the Bing cross-check found
type SecondaryCheck int

const (
	SecondaryUnverified SecondaryCheck = iota
	SecondaryVerified
	// SecondarySkipped means Bing was reached but the marker was not probed
	SecondarySkipped
)

func (c SecondaryCheck) String() string {
	switch c {
	case SecondaryVerified:
		return "verified"
	case SecondarySkipped:
		return "skipped"
	default:
		return "unverified"
	}
}

var (
	// ErrAccountLocked is returned when the sign-in page shows the service abuse notice.
	ErrAccountLocked = errors.New("account has been locked")
	// ErrNotAuthenticated is returned when the portal marker never shows up after credentials were submitted.
	ErrNotAuthenticated = errors.New("authenticated marker did not appear")
	// ErrConvergenceTimeout is returned when the page never settles on the landing location.
	ErrConvergenceTimeout = errors.New("redirect convergence timed out")
	// ErrAccountMismatch is returned when the credential belongs to a different account.
	ErrAccountMismatch = errors.New("credential email does not match account")
)

// LoginError is the fatal error surfaced by Manager.Login. Its message is
// prefixed with the log category that produced it.
type LoginError struct {
	Category string
	Outcome  Outcome
	Err      error
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *LoginError) Unwrap() error {
	return e.Err
}
