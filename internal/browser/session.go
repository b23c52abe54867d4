package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/ibeckermayer/rewards4me/internal/auth"
)

// Session is one browser process with a single tab, emulating one device class
type Session struct {
	*Driver
	cancel context.CancelFunc
}

// Close shuts the tab and the browser process down
func (s *Session) Close() {
	s.cancel()
}

// Launcher starts browser sessions with shared settings
type Launcher struct {
	Headless      bool
	ActionTimeout time.Duration
	Logger        *zap.Logger
}

// Launch starts a browser for the account's device class. The returned
// session lives until Close or until ctx is cancelled.
func (l *Launcher) Launch(ctx context.Context, account auth.Account) (*Session, error) {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("email", account.Email), zap.String("device", string(account.Device)))

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, Options(l.Headless, account.Device)...)

	sugar := logger.Named("chromedp").Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	// The first Run starts the browser and binds it to tabCtx
	if err := chromedp.Run(tabCtx, emulate(account.Device)...); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Debug("Browser started", zap.Bool("headless", l.Headless))
	return &Session{
		Driver: NewDriver(tabCtx, l.ActionTimeout, logger),
		cancel: cancel,
	}, nil
}

// Open starts a visible browser on url and blocks until ctx is done. Used
// to audit the stealth fingerprint by hand.
func Open(ctx context.Context, url string, class auth.DeviceClass) error {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, Options(false, class)...)
	defer cancel()

	tabCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	actions := append(emulate(class),
		chromedp.Navigate(url),
		chromedp.WaitVisible("body", chromedp.ByQuery),
	)
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}

	<-ctx.Done()
	return nil
}

// emulate returns the device emulation for class. Desktop runs unemulated
// with the allocator's user agent and window size.
func emulate(class auth.DeviceClass) []chromedp.Action {
	if class != auth.Mobile {
		return nil
	}
	return []chromedp.Action{chromedp.Emulate(MobileDevice)}
}
