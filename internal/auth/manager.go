package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Log categories
const (
	LoginCategory     = "login"
	SecondaryCategory = "login-bing"
)

// Settings configures where the login flow goes and how long it waits
type Settings struct {
	SignInURL           string
	Landing             Location
	SecondarySignInURL  string
	SecondaryLanding    Location
	SecondaryIterations int
	// SkipSecondaryProbe accepts the Bing landing page without checking the
	// signed-in marker.
	SkipSecondaryProbe bool
	// SessionPath is the root directory handed to the SessionPersister.
	SessionPath  string
	PollInterval time.Duration
	Timeouts     Timeouts
}

// DefaultSettings returns settings for the live Rewards and Bing sites
func DefaultSettings(sessionPath string) Settings {
	return Settings{
		SignInURL:           SignInURL,
		Landing:             RewardsLanding,
		SecondarySignInURL:  SecondarySignInURL,
		SecondaryLanding:    BingLanding,
		SecondaryIterations: DefaultSecondaryIterations,
		SessionPath:         sessionPath,
		Timeouts:            DefaultTimeouts(),
	}
}

// Result is what a login attempt produced besides its Outcome
type Result struct {
	Outcome           Outcome
	Challenge         ChallengeDecision
	Recovered         error
	ConvergenceCycles int
	Secondary         SecondaryCheck
	Persisted         bool
}

// Manager handles Microsoft Rewards authentication for one browser context
type Manager struct {
	driver    Driver
	sessions  SessionPersister
	submitter *CredentialSubmitter
	secondary *SecondaryVerifier
	settings  Settings
	logger    *zap.Logger
	now       func() time.Time
}

// NewManager creates a new auth manager. The browser context behind driver
// belongs to the manager until Login returns.
func NewManager(driver Driver, sessions SessionPersister, codes CodeSource, settings Settings, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	loginLog := logger.Named(LoginCategory)

	challenges := NewChallengeResolver(driver, codes, settings.Timeouts, loginLog)
	converger := NewConverger(driver, settings.Timeouts.Convergence, settings.PollInterval, loginLog)
	submitter := NewCredentialSubmitter(driver, challenges, converger, settings.Landing, settings.Timeouts, loginLog)

	secondary := NewSecondaryVerifier(driver, settings.SecondarySignInURL, settings.SecondaryLanding,
		settings.SecondaryIterations, settings.Timeouts, logger.Named(SecondaryCategory))
	secondary.SkipProbe = settings.SkipSecondaryProbe

	return &Manager{
		driver:    driver,
		sessions:  sessions,
		submitter: submitter,
		secondary: secondary,
		settings:  settings,
		logger:    loginLog,
		now:       time.Now,
	}
}

// Login signs the browser into Rewards, cross-checks Bing and persists the
// session. Every error it returns is a *LoginError and means the attempt
// failed; the caller must not use the session.
func (m *Manager) Login(ctx context.Context, account Account, cred Credential) (Result, error) {
	result, err := m.login(ctx, account, cred)
	if err != nil {
		if result.Outcome.Kind != OutcomeAccountLocked {
			result.Outcome = Failed(err.Error())
		}
		m.logger.Error("An error occurred",
			zap.String("email", account.Email),
			zap.String("device", string(account.Device)),
			zap.Error(err),
		)
		return result, &LoginError{Category: LoginCategory, Outcome: result.Outcome, Err: err}
	}

	m.logger.Info("Logged in successfully",
		zap.String("email", account.Email),
		zap.String("device", string(account.Device)),
		zap.Stringer("outcome", result.Outcome),
	)
	return result, nil
}

func (m *Manager) login(ctx context.Context, account Account, cred Credential) (Result, error) {
	var result Result

	switch {
	case cred.Email == "":
		cred.Email = account.Email
	case !strings.EqualFold(cred.Email, account.Email):
		return result, fmt.Errorf("%w: %s", ErrAccountMismatch, cred.Email)
	}

	if err := m.driver.Navigate(ctx, m.settings.SignInURL); err != nil {
		return result, fmt.Errorf("failed to navigate to sign-in page: %w", err)
	}

	if m.driver.WaitFor(ctx, RewardsPortal, StateVisible, m.settings.Timeouts.SessionProbe) {
		result.Outcome = Outcome{Kind: OutcomeAlreadyLoggedIn}
		m.logger.Info("Already logged in")
	} else {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if m.driver.WaitFor(ctx, AccountLockNotice, StateVisible, m.settings.Timeouts.LockProbe) {
			m.logger.Error("This account has been locked!", zap.String("email", account.Email))
			result.Outcome = Outcome{Kind: OutcomeAccountLocked}
			return result, ErrAccountLocked
		}

		report, err := m.submitter.Submit(ctx, cred)
		result.Challenge = report.Challenge
		result.Recovered = report.Recovered
		result.ConvergenceCycles = report.Cycles
		if err != nil {
			return result, err
		}

		result.Outcome = Outcome{Kind: OutcomeLoggedIn}
		m.logger.Info("Logged into Microsoft successfully")
	}

	result.Secondary = m.secondary.Check(ctx)

	cookies, err := m.driver.Cookies(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to capture session: %w", err)
	}
	state := SessionState{Cookies: cookies, CapturedAt: m.now()}
	if err := m.sessions.Persist(m.settings.SessionPath, state, account.Email, account.Device); err != nil {
		return result, fmt.Errorf("failed to save session: %w", err)
	}
	result.Persisted = true

	return result, nil
}
