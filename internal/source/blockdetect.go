package source

import "strings"

// BlockType describes the kind of anti-bot block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
	BlockConsent    BlockType = "consent_wall"
)

// DetectBlock checks a fetched page body for signs of anti-bot
// protection. Status-level blocks (403/503) already fail in the fetch
// layer; this catches challenge pages served with a 200.
func DetectBlock(body []byte) (bool, BlockType) {
	lower := strings.ToLower(string(body))

	// Cloudflare challenge page markers.
	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return true, BlockCloudflare
	}

	// Captcha markers.
	if strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "recaptcha") ||
		strings.Contains(lower, "hcaptcha") {
		return true, BlockCaptcha
	}

	// Consent interstitials replace the whole result page.
	if strings.Contains(lower, "consent.google.com") ||
		strings.Contains(lower, "before you continue") {
		return true, BlockConsent
	}

	// JS-only shell: very small body with noscript or meta refresh.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
