// Package browser provides the chromedp-backed page driver used by the login flow.
package browser

import (
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"

	"github.com/ibeckermayer/rewards4me/internal/auth"
)

// DesktopUserAgent is a realistic Edge-on-Windows user agent
const DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36 Edg/130.0.0.0"

// MobileUserAgent is a realistic Chrome-on-Android user agent
const MobileUserAgent = "Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Mobile Safari/537.36 EdgA/130.0.0.0"

// MobileDevice is the phone emulated for the mobile device class. The
// window size in Options matches its viewport.
var MobileDevice = device.Info{
	Name:      "Edge Android",
	UserAgent: MobileUserAgent,
	Width:     412,
	Height:    915,
	Scale:     2.625,
	Mobile:    true,
	Touch:     true,
}

// UserAgent returns the user agent presented for a device class
func UserAgent(class auth.DeviceClass) string {
	if class == auth.Mobile {
		return MobileUserAgent
	}
	return DesktopUserAgent
}

// Options returns chromedp allocator options with anti-bot-detection measures.
// All browser instances should use this to ensure consistent stealth configuration.
func Options(headless bool, class auth.DeviceClass) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),

		// Prevent navigator.webdriver = true detection
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		chromedp.UserAgent(UserAgent(class)),

		// Disable automation-related extensions and features
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("lang", "en-US"),
	)

	if class == auth.Mobile {
		opts = append(opts, chromedp.WindowSize(int(MobileDevice.Width), int(MobileDevice.Height)))
	} else {
		opts = append(opts, chromedp.WindowSize(1920, 1080))
	}

	if headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}

	return opts
}
