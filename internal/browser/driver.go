package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/ibeckermayer/rewards4me/internal/auth"
)

// hiddenPollInterval paces the StateHidden poll inside the page
const hiddenPollInterval = 250 * time.Millisecond

// Driver implements auth.Driver on top of a chromedp tab
type Driver struct {
	ctx           context.Context
	actionTimeout time.Duration
	logger        *zap.Logger
}

var _ auth.Driver = (*Driver)(nil)

// NewDriver wraps an already started chromedp tab context. actionTimeout
// bounds navigation and input actions; marker waits use their own timeouts.
func NewDriver(tabCtx context.Context, actionTimeout time.Duration, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{ctx: tabCtx, actionTimeout: actionTimeout, logger: logger}
}

// combineContext derives from the tab context and also ends when caller does
func combineContext(tab, caller context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(tab)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (d *Driver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(d.ctx, ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}
	return chromedp.Run(runCtx, actions...)
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.logger.Debug("Navigating", zap.String("url", url))
	return d.run(ctx, d.actionTimeout, chromedp.Navigate(url))
}

func (d *Driver) WaitFor(ctx context.Context, selector string, state auth.ElementState, timeout time.Duration) bool {
	var action chromedp.Action
	switch state {
	case auth.StateVisible:
		action = chromedp.WaitVisible(selector, chromedp.ByQuery)
	case auth.StateAttached:
		action = chromedp.WaitReady(selector, chromedp.ByQuery)
	case auth.StateHidden:
		var hidden bool
		action = chromedp.Poll(hiddenScript(selector), &hidden, chromedp.WithPollingInterval(hiddenPollInterval))
	default:
		d.logger.Warn("Unknown element state", zap.String("state", string(state)))
		return false
	}

	err := d.run(ctx, timeout, action)
	if err != nil {
		d.logger.Debug("Marker not reached",
			zap.String("selector", selector),
			zap.String("state", string(state)),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (d *Driver) Fill(ctx context.Context, selector, text string) error {
	err := d.run(ctx, d.actionTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("fill %q: %w", selector, err)
	}
	return nil
}

func (d *Driver) Click(ctx context.Context, selector string) error {
	if err := d.run(ctx, d.actionTimeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

func (d *Driver) ReadText(ctx context.Context, selector string) (string, error) {
	var text string
	if err := d.run(ctx, d.actionTimeout, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read %q: %w", selector, err)
	}
	return text, nil
}

func (d *Driver) PressKey(ctx context.Context, key string) error {
	return d.run(ctx, d.actionTimeout, chromedp.KeyEvent(keyFor(key)))
}

// keyFor maps key names onto chromedp key sequences
func keyFor(key string) string {
	switch key {
	case "Enter":
		return kb.Enter
	case "Tab":
		return kb.Tab
	case "Escape":
		return kb.Escape
	default:
		return key
	}
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := d.run(ctx, d.actionTimeout, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (d *Driver) DismissKnownDialogs(ctx context.Context) error {
	return d.clickVisible(ctx, dismissButtons)
}

func (d *Driver) DismissConsentBanner(ctx context.Context) error {
	return d.clickVisible(ctx, []string{consentAccept})
}

// clickVisible clicks every visible match of selectors in one round trip
func (d *Driver) clickVisible(ctx context.Context, selectors []string) error {
	var clicked []string
	if err := d.run(ctx, d.actionTimeout, chromedp.Evaluate(clickVisibleScript(selectors), &clicked)); err != nil {
		return err
	}
	if len(clicked) > 0 {
		d.logger.Debug("Dismissed dialogs", zap.Strings("selectors", clicked))
	}
	return nil
}

// Cookies gets all cookies from the browser
func (d *Driver) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := d.run(ctx, d.actionTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)
	return cookies, err
}

// RestoreCookies sets previously captured cookies in the browser context
func (d *Driver) RestoreCookies(ctx context.Context, cookies []*network.Cookie) error {
	return d.run(ctx, d.actionTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				set := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly)
				if c.SameSite != "" {
					set = set.WithSameSite(c.SameSite)
				}
				if !c.Session && c.Expires > 0 {
					expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
					set = set.WithExpires(&expires)
				}
				if err := set.Do(ctx); err != nil {
					return fmt.Errorf("cookie %s: %w", c.Name, err)
				}
			}
			return nil
		}),
	)
}

// hiddenScript is truthy once selector is detached or not rendered
func hiddenScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return true;
	const style = window.getComputedStyle(el);
	return style.display === 'none' || style.visibility === 'hidden' || el.getClientRects().length === 0;
})()`, jsString(selector))
}

// clickVisibleScript clicks each visible match and returns the selectors it clicked
func clickVisibleScript(selectors []string) string {
	return fmt.Sprintf(`(() => {
	const clicked = [];
	for (const sel of %s) {
		const el = document.querySelector(sel);
		if (!el || el.getClientRects().length === 0) continue;
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') continue;
		el.click();
		clicked.push(sel);
	}
	return clicked;
})()`, jsStrings(selectors))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func jsStrings(s []string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
