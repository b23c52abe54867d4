package auth

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSecondaryIterations bounds how many times the Bing page is inspected
const DefaultSecondaryIterations = 5

// SecondaryVerifier checks that the Microsoft account session also signs the
// browser into Bing. It is best effort: failures only show up in the logs.
type SecondaryVerifier struct {
	driver       Driver
	signInURL    string
	target       Location
	iterations   int
	probeTimeout time.Duration
	retryDelay   time.Duration
	logger       *zap.Logger

	// SkipProbe accepts the landing page without looking for the signed-in
	// marker. Mobile Bing does not render it reliably.
	SkipProbe bool
}

// NewSecondaryVerifier creates a verifier for the Bing interactive sign-in endpoint
func NewSecondaryVerifier(driver Driver, signInURL string, target Location, iterations int, timeouts Timeouts, logger *zap.Logger) *SecondaryVerifier {
	if iterations <= 0 {
		iterations = DefaultSecondaryIterations
	}
	return &SecondaryVerifier{
		driver:       driver,
		signInURL:    signInURL,
		target:       target,
		iterations:   iterations,
		probeTimeout: timeouts.SecondaryProbe,
		retryDelay:   timeouts.SecondaryRetry,
		logger:       logger,
	}
}

// Verify never fails the caller; it reports whether Bing recognised the
// session or the probe was skipped on reaching Bing
func (v *SecondaryVerifier) Verify(ctx context.Context) bool {
	return v.Check(ctx) != SecondaryUnverified
}

// Check runs the cross-check and tells a verified session from a skipped probe
func (v *SecondaryVerifier) Check(ctx context.Context) SecondaryCheck {
	v.logger.Info("Verifying Bing login")

	if err := v.driver.Navigate(ctx, v.signInURL); err != nil {
		v.logger.Error("An error occurred", zap.Error(err))
		return SecondaryUnverified
	}

	for iteration := 1; iteration <= v.iterations; iteration++ {
		loc, err := currentLocation(ctx, v.driver)
		if err != nil {
			v.logger.Debug("Could not read current location", zap.Int("iteration", iteration), zap.Error(err))
		} else if loc == v.target {
			if err := v.driver.DismissConsentBanner(ctx); err != nil {
				v.logger.Debug("Dismissing cookie banner failed", zap.Error(err))
			}

			if v.SkipProbe {
				v.logger.Info("Bing login verification skipped for this device class")
				return SecondarySkipped
			}
			if v.driver.WaitFor(ctx, BingUserName, StateVisible, v.probeTimeout) {
				v.logger.Info("Bing login verification passed!", zap.Int("iteration", iteration))
				return SecondaryVerified
			}
		}

		if iteration == v.iterations {
			break
		}
		if err := sleep(ctx, v.retryDelay); err != nil {
			v.logger.Error("An error occurred", zap.Error(err))
			return SecondaryUnverified
		}
	}

	v.logger.Info("Bing login could not be verified", zap.Int("iterations", v.iterations))
	return SecondaryUnverified
}
