package auth

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CodePrompt is shown on the operator's terminal when a one-time code is needed
const CodePrompt = "Enter 2FA code:"

// ChallengeResolver works out which second factor the sign-in page is asking
// for and drives it to completion. The site picks the mode, so it is detected
// from markers rather than configured.
type ChallengeResolver struct {
	driver   Driver
	codes    CodeSource
	timeouts Timeouts
	logger   *zap.Logger
}

// NewChallengeResolver creates a resolver. codes is only consulted on the
// one-time-code path.
func NewChallengeResolver(driver Driver, codes CodeSource, timeouts Timeouts, logger *zap.Logger) *ChallengeResolver {
	return &ChallengeResolver{
		driver:   driver,
		codes:    codes,
		timeouts: timeouts,
		logger:   logger,
	}
}

// Detect probes for the push-notification marker. Its absence means the page
// wants a typed code.
func (r *ChallengeResolver) Detect(ctx context.Context) ChallengeDecision {
	if r.driver.WaitFor(ctx, PushNotificationTitle, StateVisible, r.timeouts.ChallengeProbe) {
		return PushNotificationPending
	}
	return CodeRequired
}

// Resolve detects the active challenge and blocks until it is satisfied
func (r *ChallengeResolver) Resolve(ctx context.Context, email string) (ChallengeDecision, error) {
	decision := r.Detect(ctx)

	var err error
	switch decision {
	case PushNotificationPending:
		err = r.awaitPushApproval(ctx, email)
	case CodeRequired:
		err = r.submitCode(ctx)
	case NoChallenge:
	}
	return decision, err
}

// awaitPushApproval surfaces the number shown on the page so the operator can
// match it in the authenticator app, then waits for the approval to land.
func (r *ChallengeResolver) awaitPushApproval(ctx context.Context, email string) error {
	if !r.driver.WaitFor(ctx, PushDisplaySign, StateVisible, r.timeouts.ChallengeProbe) {
		return fmt.Errorf("push notification number not shown")
	}

	number, err := r.driver.ReadText(ctx, PushDisplaySign)
	if err != nil {
		return fmt.Errorf("failed to read push notification number: %w", err)
	}
	number = strings.TrimSpace(number)

	r.logger.Info(fmt.Sprintf("2FA code for %q: %s", email, number),
		zap.String("email", email),
		zap.String("number", number),
	)

	if !r.driver.WaitFor(ctx, PushDisplaySign, StateHidden, r.timeouts.PushApproval) {
		return fmt.Errorf("push notification not approved within %s", r.timeouts.PushApproval)
	}
	return nil
}

// submitCode blocks on the operator for a one-time code and submits it as typed
func (r *ChallengeResolver) submitCode(ctx context.Context) error {
	r.logger.Info("2FA code required")

	if r.codes == nil {
		return fmt.Errorf("one-time code required but no input source configured")
	}

	code, err := r.codes.RequestLine(ctx, CodePrompt)
	if err != nil {
		return fmt.Errorf("failed to read one-time code: %w", err)
	}

	if err := r.driver.Fill(ctx, OneTimeCodeInput, code); err != nil {
		return fmt.Errorf("failed to enter one-time code: %w", err)
	}
	if err := r.driver.PressKey(ctx, "Enter"); err != nil {
		return fmt.Errorf("failed to submit one-time code: %w", err)
	}
	return nil
}
