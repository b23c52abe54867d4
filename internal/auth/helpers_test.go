package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	signInPage  = "https://rewards.bing.com/signin"
	rewardsHome = "https://rewards.bing.com/"
	bingHome    = "https://www.bing.com/?wlexpsignin=1"
)

// waitKey identifies a marker probe
type waitKey struct {
	selector string
	state    ElementState
}

// fakeDriver is a scripted page. Marker answers come from waits, keyed by
// selector and state; a func answer receives the 1-based call number.
type fakeDriver struct {
	mu sync.Mutex

	waits map[waitKey]func(call int) bool

	url           string
	navigations   map[string]string // navigated URL -> resulting page URL
	landing       string            // page URL once dismissals reach convergeAfter
	convergeAfter int

	texts    map[string]string
	fillErrs map[string]error
	cookies  []*network.Cookie

	waitCalls map[waitKey]int
	fills     map[string]string
	clicks    []string
	keys      []string
	navigated []string
	dismissed int
	consents  int
	urlReads  int
	calls     []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		waits:       map[waitKey]func(int) bool{},
		navigations: map[string]string{SignInURL: signInPage, SecondarySignInURL: bingHome},
		texts:       map[string]string{},
		fillErrs:    map[string]error{},
		waitCalls:   map[waitKey]int{},
		fills:       map[string]string{},
		cookies: []*network.Cookie{
			{Name: "_U", Value: "token", Domain: ".bing.com", Expires: float64(time.Now().Add(24 * time.Hour).Unix())},
		},
	}
}

// present makes selector answer true for state on every probe
func (d *fakeDriver) present(selector string, state ElementState) *fakeDriver {
	d.waits[waitKey{selector, state}] = func(int) bool { return true }
	return d
}

// presentOn makes selector answer true from the given probe onwards
func (d *fakeDriver) presentOn(selector string, state ElementState, from int) *fakeDriver {
	d.waits[waitKey{selector, state}] = func(call int) bool { return call >= from }
	return d
}

func (d *fakeDriver) waitCount(selector string, state ElementState) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waitCalls[waitKey{selector, state}]
}

func (d *fakeDriver) record(call string) {
	d.calls = append(d.calls, call)
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("navigate " + url)
	d.navigated = append(d.navigated, url)
	if next, ok := d.navigations[url]; ok {
		d.url = next
	} else {
		d.url = url
	}
	return nil
}

func (d *fakeDriver) WaitFor(_ context.Context, selector string, state ElementState, _ time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := waitKey{selector, state}
	d.waitCalls[k]++
	d.record(fmt.Sprintf("wait %s %s", selector, state))
	if fn, ok := d.waits[k]; ok {
		return fn(d.waitCalls[k])
	}
	return false
}

func (d *fakeDriver) Fill(_ context.Context, selector, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("fill " + selector)
	if err := d.fillErrs[selector]; err != nil {
		return err
	}
	d.fills[selector] = text
	return nil
}

func (d *fakeDriver) Click(_ context.Context, selector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("click " + selector)
	d.clicks = append(d.clicks, selector)
	return nil
}

func (d *fakeDriver) ReadText(_ context.Context, selector string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("read " + selector)
	text, ok := d.texts[selector]
	if !ok {
		return "", errors.New("no such element")
	}
	return text, nil
}

func (d *fakeDriver) PressKey(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("press " + key)
	d.keys = append(d.keys, key)
	return nil
}

func (d *fakeDriver) CurrentURL(_ context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urlReads++
	return d.url, nil
}

func (d *fakeDriver) DismissKnownDialogs(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("dismiss")
	d.dismissed++
	if d.landing != "" && d.dismissed >= d.convergeAfter {
		d.url = d.landing
	}
	return nil
}

func (d *fakeDriver) DismissConsentBanner(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("consent")
	d.consents++
	return nil
}

func (d *fakeDriver) Cookies(_ context.Context) ([]*network.Cookie, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cookies, nil
}

// persistCall captures one SessionPersister.Persist invocation
type persistCall struct {
	path   string
	state  SessionState
	email  string
	device DeviceClass
}

type fakePersister struct {
	calls []persistCall
	err   error
}

func (p *fakePersister) Persist(path string, state SessionState, email string, device DeviceClass) error {
	p.calls = append(p.calls, persistCall{path: path, state: state, email: email, device: device})
	return p.err
}

// fakeCodes is a scripted operator
type fakeCodes struct {
	code    string
	err     error
	prompts []string
}

func (c *fakeCodes) RequestLine(_ context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	return c.code, c.err
}

// testTimeouts keeps the real shape of the flow without real sleeping
func testTimeouts() Timeouts {
	t := DefaultTimeouts()
	t.PasswordPause = 0
	t.SecondaryRetry = 0
	t.Convergence = time.Second
	return t
}

func testSettings() Settings {
	s := DefaultSettings("/sessions")
	s.Timeouts = testTimeouts()
	return s
}

// observedLogger returns a logger whose entries can be inspected
func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func newTestManager(t *testing.T, d *fakeDriver, p *fakePersister, codes CodeSource, settings Settings) (*Manager, *observer.ObservedLogs) {
	t.Helper()
	logger, logs := observedLogger()
	m := NewManager(d, p, codes, settings, logger)
	m.now = func() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC) }
	return m, logs
}
