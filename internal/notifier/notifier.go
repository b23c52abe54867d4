package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/ibeckermayer/rewards4me/internal/config"
	"github.com/ibeckermayer/rewards4me/internal/notifier/providers"
)

// Notifier mails the operator when a login fails
type Notifier struct {
	sender Sender
	to     string
}

// Sender defines the interface for email sending
type Sender interface {
	Send(to, subject, plainBody string) error
}

// Failure describes one failed login
type Failure struct {
	Email  string
	Device string
	Reason string
	At     time.Time
}

// New creates a new notifier with the given sender
func New(sender Sender, to string) *Notifier {
	return &Notifier{sender: sender, to: to}
}

// NewFromConfig creates a notifier based on configuration. It returns nil
// when notifications are disabled; a nil Notifier sends nothing.
func NewFromConfig(cfg config.NotifyConfig) *Notifier {
	if !cfg.Enabled {
		return nil
	}
	sender := providers.NewSMTPSender(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		cfg.SMTPPass,
		cfg.FromAddr,
	)
	return New(sender, cfg.ToAddr)
}

// NotifyLoginFailures sends one mail listing every failure of a run
func (n *Notifier) NotifyLoginFailures(failures []Failure) error {
	if n == nil || len(failures) == 0 {
		return nil
	}

	subject := fmt.Sprintf("rewards4me: %d login(s) failed", len(failures))
	if len(failures) == 1 {
		subject = fmt.Sprintf("rewards4me: login failed for %s (%s)", failures[0].Email, failures[0].Device)
	}

	var body strings.Builder
	body.WriteString("The following logins failed:\n\n")
	for _, f := range failures {
		fmt.Fprintf(&body, "- %s on %s at %s\n  %s\n", f.Email, f.Device, f.At.Format(time.RFC1123), f.Reason)
	}
	body.WriteString("\nRun `r4m login` to retry interactively.\n")

	return n.sender.Send(n.to, subject, body.String())
}
