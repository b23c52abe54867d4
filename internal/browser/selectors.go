package browser

// Interstitial buttons the Microsoft sign-in flow puts between the form and
// the landing page. Kept here because Microsoft changes them without notice.
var dismissButtons = []string{
	`#acceptButton`,                  // "Stay signed in?"
	`.ext-secondary.ext-button`,      // "Skip for now"
	`#iLandingViewAction`,            // security info "Next"
	`#iShowSkip`,                     // "Skip for now" on security info
	`#iNext`,                         // security info "Next"
	`#iLooksGood`,                    // "Looks good!"
	`#idSIButton9`,                   // generic primary "Yes"/"Next"
	`.ms-Button.ms-Button--primary`,  // "OK" on notices
	`.c-glyph.glyph-cancel`,          // promo close
	`.maybe-later`,                   // Rewards welcome tour
	`#cookieConsentContainer button`, // rewards cookie notice
	`#bnp_btn_accept`,                // Bing cookie banner
	`#reward_pivot_earn`,             // mobile Rewards "Earn" pivot
}

// Bing cookie consent banner
const consentAccept = `#bnp_btn_accept`
