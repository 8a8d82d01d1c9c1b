package backendcli

import (
	"regexp"
	"strings"
	"unicode"
)

// The backend prints for humans, not machines: its interactive output is the
// only observable signal in subprocess mode, complete with terminal color
// codes and interleaved log lines. The scraper works on cleaned text only.

var (
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
	urlPattern  = regexp.MustCompile(`https://\S+`)
	codePattern = regexp.MustCompile(`(?i)code\s+([A-Z0-9]+)`)
)

// Fragments of the authorization server's "user has not finished yet"
// diagnostic, as echoed by the backend. Both must be present to call a
// failure benign.
const (
	pendingErrorCode     = "AADSTS70016"
	pendingErrorFragment = "not yet been authorized"
)

// AuthPrompt is the verification URL and user code scraped from backend
// output.
type AuthPrompt struct {
	VerificationURI string
	UserCode        string
}

// CleanOutput strips ANSI escape sequences and non-printable characters,
// keeping newlines and tabs.
func CleanOutput(text string) string {
	text = ansiPattern.ReplaceAllString(text, "")
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			return r
		}
		return -1
	}, text)
}

// ExtractAuthPrompt locates the verification URL and user code in raw backend
// output. Returns nil when either is absent.
func ExtractAuthPrompt(text string) *AuthPrompt {
	cleaned := CleanOutput(text)

	uri := urlPattern.FindString(cleaned)
	code := codePattern.FindStringSubmatch(cleaned)
	if uri == "" || code == nil {
		return nil
	}
	return &AuthPrompt{VerificationURI: uri, UserCode: code[1]}
}

// IsPendingError reports whether backend output describes the benign "user
// has not finished authenticating" condition rather than a genuine failure.
// It requires both the authorization server's error code and the
// human-readable fragment confirming its meaning.
func IsPendingError(text string) bool {
	cleaned := CleanOutput(text)
	return strings.Contains(cleaned, pendingErrorCode) &&
		strings.Contains(cleaned, pendingErrorFragment)
}
