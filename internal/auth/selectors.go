package auth

// Microsoft sign-in and Rewards/Bing DOM markers.
// These are isolated here because the sign-in pages change without notice.
// Update these when login breaks.

const (
	SignInURL          = "https://rewards.bing.com/signin"
	SecondarySignInURL = "https://www.bing.com/fd/auth/signin?action=interactive&provider=windows_live_id&return_url=https%3A%2F%2Fwww.bing.com%2F"

	// Session state markers
	RewardsPortal     = `html[data-role-name="RewardsPortal"]`
	AccountLockNotice = `.serviceAbusePageContainer`
	BingUserName      = `#id_n`

	// Credential form
	EmailInput    = `#i0116`
	PasswordInput = `#i0118`
	SubmitButton  = `#idSIButton9`

	// Second factor
	PushNotificationTitle = `#pushNotificationsTitle`
	PushDisplaySign       = `span#displaySign`
	OneTimeCodeInput      = `input[name="otc"]`
	ChallengeMarkers      = PushNotificationTitle + `, ` + OneTimeCodeInput
)

var (
	// RewardsLanding is where a completed sign-in settles.
	RewardsLanding = Location{Host: "rewards.bing.com", Path: "/"}
	// BingLanding is the secondary origin root reached after the interactive sign-in redirect.
	BingLanding = Location{Host: "www.bing.com", Path: "/"}
)
