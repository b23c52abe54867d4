package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestVerifier(t *testing.T, d *fakeDriver) *SecondaryVerifier {
	t.Helper()
	logger, _ := observedLogger()
	return NewSecondaryVerifier(d, SecondarySignInURL, BingLanding, DefaultSecondaryIterations, testTimeouts(), logger)
}

func TestSecondaryVerifier_MarkerNeverAppears(t *testing.T) {
	d := newFakeDriver()
	v := newTestVerifier(t, d)

	assert.False(t, v.Verify(context.Background()))
	assert.Equal(t, DefaultSecondaryIterations, d.waitCount(BingUserName, StateVisible))
	assert.Equal(t, DefaultSecondaryIterations, d.consents)
}

func TestSecondaryVerifier_NotOnBing(t *testing.T) {
	d := newFakeDriver()
	d.navigations[SecondarySignInURL] = "https://login.live.com/oauth20_authorize.srf"
	v := newTestVerifier(t, d)

	assert.False(t, v.Verify(context.Background()))
	assert.Zero(t, d.waitCount(BingUserName, StateVisible))
	assert.Equal(t, DefaultSecondaryIterations, d.urlReads)
}

func TestSecondaryVerifier_PassesOnFirstProbe(t *testing.T) {
	d := newFakeDriver().present(BingUserName, StateVisible)
	v := newTestVerifier(t, d)

	assert.True(t, v.Verify(context.Background()))
	assert.Equal(t, 1, d.waitCount(BingUserName, StateVisible))
	assert.Equal(t, []string{SecondarySignInURL}, d.navigated)
}

func TestSecondaryVerifier_SkipProbe(t *testing.T) {
	d := newFakeDriver()
	v := newTestVerifier(t, d)
	v.SkipProbe = true

	assert.True(t, v.Verify(context.Background()))
	assert.Zero(t, d.waitCount(BingUserName, StateVisible))
}

func TestSecondaryVerifier_CheckTellsSkipFromVerified(t *testing.T) {
	d := newFakeDriver().present(BingUserName, StateVisible)
	v := newTestVerifier(t, d)
	assert.Equal(t, SecondaryVerified, v.Check(context.Background()))

	skipping := newTestVerifier(t, newFakeDriver().present(BingUserName, StateVisible))
	skipping.SkipProbe = true
	assert.Equal(t, SecondarySkipped, skipping.Check(context.Background()))

	missing := newFakeDriver()
	missing.navigations[SecondarySignInURL] = "https://login.live.com/oauth20_authorize.srf"
	skipping = newTestVerifier(t, missing)
	skipping.SkipProbe = true
	assert.Equal(t, SecondaryUnverified, skipping.Check(context.Background()), "skip only applies once Bing is reached")
}

func TestSecondaryVerifier_CancelledBetweenIterations(t *testing.T) {
	d := newFakeDriver()
	logger, _ := observedLogger()
	timeouts := testTimeouts()
	timeouts.SecondaryRetry = time.Hour
	v := NewSecondaryVerifier(d, SecondarySignInURL, BingLanding, 0, timeouts, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, v.Verify(ctx))
	assert.Equal(t, 1, d.waitCount(BingUserName, StateVisible))
}
