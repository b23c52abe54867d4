package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"

	"github.com/ibeckermayer/rewards4me/internal/auth"
	"github.com/ibeckermayer/rewards4me/internal/browser"
	"github.com/ibeckermayer/rewards4me/internal/config"
	"github.com/ibeckermayer/rewards4me/internal/notifier"
	"github.com/ibeckermayer/rewards4me/internal/store"
)

// ErrNoAccounts is returned by LoginAll when the config lists no accounts
var ErrNoAccounts = errors.New("no accounts configured")

// BrowserSession is a started browser the login flow can drive
type BrowserSession interface {
	auth.Driver
	RestoreCookies(ctx context.Context, cookies []*network.Cookie) error
	Close()
}

// Launcher starts one browser per account and device class
type Launcher interface {
	Launch(ctx context.Context, account auth.Account) (BrowserSession, error)
}

// chromeLauncher adapts browser.Launcher to Launcher
type chromeLauncher struct {
	*browser.Launcher
}

func (l chromeLauncher) Launch(ctx context.Context, account auth.Account) (BrowserSession, error) {
	s, err := l.Launcher.Launch(ctx, account)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewChromeLauncher launches Chrome with the configured browser settings
func NewChromeLauncher(cfg config.BrowserConfig, logger *zap.Logger) Launcher {
	return chromeLauncher{&browser.Launcher{
		Headless:      cfg.Headless,
		ActionTimeout: cfg.ActionTimeout,
		Logger:        logger,
	}}
}

// Options are the collaborators of an App. History and Notifier may be nil.
type Options struct {
	Launcher Launcher
	Sessions *auth.SessionStore
	History  *store.Store
	Notifier *notifier.Notifier
	// Codes returns a fresh one-time-code source for each login attempt.
	Codes  func() auth.CodeSource
	Logger *zap.Logger
}

// App holds the application state.
type App struct {
	mu       sync.RWMutex
	config   *config.Config
	notifier *notifier.Notifier

	launcher Launcher
	sessions *auth.SessionStore
	history  *store.Store
	codes    func() auth.CodeSource
	logger   *zap.Logger
	now      func() time.Time

	// runMu keeps login runs from overlapping
	runMu sync.Mutex
}

// snapshot holds fields that may be replaced by ReloadConfig.
type snapshot struct {
	config   *config.Config
	notifier *notifier.Notifier
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{config: a.config, notifier: a.notifier}
}

// New creates a new App instance.
func New(cfg *config.Config, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = auth.NewSessionStore()
	}
	codes := opts.Codes
	if codes == nil {
		codes = func() auth.CodeSource { return nil }
	}
	return &App{
		config:   cfg,
		notifier: opts.Notifier,
		launcher: opts.Launcher,
		sessions: sessions,
		history:  opts.History,
		codes:    codes,
		logger:   logger,
		now:      time.Now,
	}
}

// Config returns the configuration currently in effect
func (a *App) Config() *config.Config {
	return a.getSnapshot().config
}

// LoginAll logs every configured account in on each of its device classes,
// one browser at a time. It keeps going after a failure and returns every
// failure joined together.
func (a *App) LoginAll(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	s := a.getSnapshot()
	if len(s.config.Accounts) == 0 {
		return ErrNoAccounts
	}

	var errs []error
	var failures []notifier.Failure

accounts:
	for _, acct := range s.config.Accounts {
		classes, err := acct.DeviceClasses()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", acct.Email, err))
			continue
		}

		for _, class := range classes {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				break accounts
			}

			result, err := a.login(ctx, s.config, acct, class)
			if err == nil {
				continue
			}

			errs = append(errs, fmt.Errorf("%s (%s): %w", acct.Email, class, err))
			failures = append(failures, notifier.Failure{
				Email:  acct.Email,
				Device: string(class),
				Reason: err.Error(),
				At:     a.now(),
			})

			// Further device classes will hit the same lock
			if result.Outcome.Kind == auth.OutcomeAccountLocked {
				a.logger.Warn("Skipping remaining devices for locked account", zap.String("email", acct.Email))
				continue accounts
			}
		}
	}

	if err := s.notifier.NotifyLoginFailures(failures); err != nil {
		a.logger.Error("Failed to send failure notification", zap.Error(err))
	}

	return errors.Join(errs...)
}

// LoginAccount logs one configured account in on one device class
func (a *App) LoginAccount(ctx context.Context, email string, class auth.DeviceClass) (auth.Result, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	cfg := a.getSnapshot().config
	acct, ok := cfg.Account(email)
	if !ok {
		return auth.Result{}, fmt.Errorf("account %s is not configured", email)
	}
	return a.login(ctx, cfg, acct, class)
}

func (a *App) login(ctx context.Context, cfg *config.Config, acct config.AccountConfig, class auth.DeviceClass) (auth.Result, error) {
	account := auth.Account{Email: acct.Email, Device: class}
	logger := a.logger.With(zap.String("email", acct.Email), zap.String("device", string(class)))
	started := a.now()

	result, err := a.runLogin(ctx, cfg, account, acct.ResolvePassword(), logger)
	a.record(ctx, account, result, err, started, logger)
	return result, err
}

func (a *App) runLogin(ctx context.Context, cfg *config.Config, account auth.Account, password string, logger *zap.Logger) (auth.Result, error) {
	sessionsDir, err := cfg.SessionsDir()
	if err != nil {
		return auth.Result{Outcome: auth.Failed(err.Error())}, err
	}

	session, err := a.launcher.Launch(ctx, account)
	if err != nil {
		err = fmt.Errorf("failed to launch browser: %w", err)
		return auth.Result{Outcome: auth.Failed(err.Error())}, err
	}
	defer session.Close()

	a.restoreSession(ctx, session, sessionsDir, account, logger)

	settings := loginSettings(cfg, sessionsDir, account.Device)
	manager := auth.NewManager(session, a.sessions, a.codes(), settings, logger)

	return manager.Login(ctx, account, auth.Credential{Email: account.Email, Password: password})
}

// restoreSession injects cookies from the last persisted session so the
// sign-in page can recognise the browser
func (a *App) restoreSession(ctx context.Context, session BrowserSession, dir string, account auth.Account, logger *zap.Logger) {
	if !a.sessions.IsValid(dir, account.Email, account.Device) {
		return
	}
	stored, err := a.sessions.Load(dir, account.Email, account.Device)
	if err != nil {
		logger.Warn("Could not load stored session", zap.Error(err))
		return
	}
	if err := session.RestoreCookies(ctx, stored.Cookies); err != nil {
		logger.Warn("Could not restore stored session", zap.Error(err))
		return
	}
	logger.Debug("Restored stored session", zap.Time("captured_at", stored.CapturedAt))
}

func (a *App) record(ctx context.Context, account auth.Account, result auth.Result, loginErr error, started time.Time, logger *zap.Logger) {
	if a.history == nil {
		return
	}

	attempt := &store.Attempt{
		Email:      account.Email,
		Device:     string(account.Device),
		Outcome:    result.Outcome.Kind.String(),
		Succeeded:  loginErr == nil && result.Outcome.Succeeded(),
		Challenge:  result.Challenge.String(),
		Secondary:  result.Secondary.String(),
		Cycles:     result.ConvergenceCycles,
		StartedAt:  started,
		FinishedAt: a.now(),
	}
	if loginErr != nil {
		attempt.Error = loginErr.Error()
	}
	if result.Recovered != nil {
		attempt.Recovered = result.Recovered.Error()
	}

	// Record even when the login itself was cancelled
	if err := a.history.RecordAttempt(context.WithoutCancel(ctx), attempt); err != nil {
		logger.Error("Failed to record login attempt", zap.Error(err))
	}
}

// loginSettings maps the login config onto the auth flow for one device class
func loginSettings(cfg *config.Config, sessionsDir string, class auth.DeviceClass) auth.Settings {
	s := auth.DefaultSettings(sessionsDir)
	s.PollInterval = cfg.Login.PollInterval
	s.SecondaryIterations = cfg.Login.SecondaryIterations
	s.SkipSecondaryProbe = class == auth.Mobile && cfg.Login.SkipSecondaryOnMobile
	s.Timeouts = auth.Timeouts{
		SessionProbe:   cfg.Login.SessionProbe,
		LockProbe:      cfg.Login.LockProbe,
		PasswordField:  cfg.Login.PasswordField,
		PasswordPause:  cfg.Login.PasswordPause,
		ChallengeProbe: cfg.Login.ChallengeProbe,
		PushApproval:   cfg.Login.PushApproval,
		Authenticated:  cfg.Login.Authenticated,
		Convergence:    cfg.Login.Convergence,
		SecondaryProbe: cfg.Login.SecondaryProbe,
		SecondaryRetry: cfg.Login.SecondaryRetry,
	}
	return s
}

// ReloadConfig reloads the configuration from path. The previous
// configuration stays in effect when the file does not validate.
func (a *App) ReloadConfig(path string) error {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.config = cfg
	a.notifier = notifier.NewFromConfig(cfg.Notify)
	a.mu.Unlock()

	a.logger.Info("Configuration reloaded", zap.Int("accounts", len(cfg.Accounts)))
	return nil
}
