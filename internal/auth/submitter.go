package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// SubmitReport describes how credential submission went
type SubmitReport struct {
	Challenge ChallengeDecision
	// Recovered holds an error from the credential form that was logged and
	// ignored. The portal marker check after the redirect loop decides success.
	Recovered error
	// Cycles is how many dismiss rounds the redirect loop needed.
	Cycles int
}

// CredentialSubmitter types the email and password into the Microsoft
// account form and sees the sign-in through to the Rewards landing page.
type CredentialSubmitter struct {
	driver     Driver
	challenges *ChallengeResolver
	converger  *Converger
	landing    Location
	timeouts   Timeouts
	logger     *zap.Logger
}

// NewCredentialSubmitter wires the submitter to its challenge resolver and redirect loop
func NewCredentialSubmitter(driver Driver, challenges *ChallengeResolver, converger *Converger, landing Location, timeouts Timeouts, logger *zap.Logger) *CredentialSubmitter {
	return &CredentialSubmitter{
		driver:     driver,
		challenges: challenges,
		converger:  converger,
		landing:    landing,
		timeouts:   timeouts,
		logger:     logger,
	}
}

// Submit enters the credential, resolves any second factor, waits for the
// redirects to settle and requires the portal marker to show up.
func (s *CredentialSubmitter) Submit(ctx context.Context, cred Credential) (SubmitReport, error) {
	var report SubmitReport

	report.Challenge, report.Recovered = s.enterCredentials(ctx, cred)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	if report.Recovered != nil {
		s.logger.Error("An error occurred", zap.Error(report.Recovered))
	}

	cycles, err := s.converger.Converge(ctx, s.landing)
	report.Cycles = cycles
	if err != nil {
		return report, err
	}

	if !s.driver.WaitFor(ctx, RewardsPortal, StateVisible, s.timeouts.Authenticated) {
		return report, fmt.Errorf("%w within %s", ErrNotAuthenticated, s.timeouts.Authenticated)
	}
	return report, nil
}

// enterCredentials fills the two-step form. A password field that never shows
// up means the account skipped straight to a second-factor screen.
func (s *CredentialSubmitter) enterCredentials(ctx context.Context, cred Credential) (ChallengeDecision, error) {
	if err := s.driver.Fill(ctx, EmailInput, cred.Email); err != nil {
		return NoChallenge, fmt.Errorf("failed to enter email: %w", err)
	}
	if err := s.driver.Click(ctx, SubmitButton); err != nil {
		return NoChallenge, fmt.Errorf("failed to submit email: %w", err)
	}
	s.logger.Info("Email entered successfully")

	if !s.driver.WaitFor(ctx, PasswordInput, StateVisible, s.timeouts.PasswordField) {
		decision, err := s.challenges.Resolve(ctx, cred.Email)
		if err != nil {
			return decision, err
		}
		s.logger.Info("Password entered successfully", zap.Stringer("challenge", decision))
		return decision, nil
	}

	if err := sleep(ctx, s.timeouts.PasswordPause); err != nil {
		return NoChallenge, err
	}
	if err := s.driver.Fill(ctx, PasswordInput, cred.Password); err != nil {
		return NoChallenge, fmt.Errorf("failed to enter password: %w", err)
	}
	if err := s.driver.Click(ctx, SubmitButton); err != nil {
		return NoChallenge, fmt.Errorf("failed to submit password: %w", err)
	}

	decision := NoChallenge
	if s.challengePending(ctx) {
		var err error
		if decision, err = s.challenges.Resolve(ctx, cred.Email); err != nil {
			return decision, err
		}
	}

	s.logger.Info("Password entered successfully", zap.Stringer("challenge", decision))
	return decision, nil
}

// challengePending looks for any second-factor screen after the password was sent
func (s *CredentialSubmitter) challengePending(ctx context.Context) bool {
	return s.driver.WaitFor(ctx, ChallengeMarkers, StateVisible, s.timeouts.ChallengeProbe)
}
