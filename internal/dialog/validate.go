package dialog

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minLoginLen    = 3
	minPasswordLen = 6
)

var (
	phoneNoise  = regexp.MustCompile(`[\s\-()]`)
	strictPhone = regexp.MustCompile(`^\+7\d{10}$`)
	emailRe     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

func cleanPhone(s string) string {
	return phoneNoise.ReplaceAllString(strings.TrimSpace(s), "")
}

// ValidPhone is the per-step phone check: after removing spaces, hyphens
// and parentheses and an optional leading "+", 10 to 15 digits remain.
func ValidPhone(s string) bool {
	p := strings.TrimPrefix(cleanPhone(s), "+")
	if len(p) < 10 || len(p) > 15 {
		return false
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// StrictPhone is the check applied right before registration is submitted:
// only +7 followed by ten digits is accepted.
//
// ValidPhone accepts numbers this rejects (8XXXXXXXXXX, foreign numbers),
// which makes registration fail at its last step. Both checks are kept until
// the accepted phone formats are settled.
func StrictPhone(s string) bool {
	return strictPhone.MatchString(cleanPhone(s))
}

// ValidEmail applies a light pattern check; no DNS lookup is made.
func ValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// ValidLogin requires at least three characters.
func ValidLogin(s string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= minLoginLen
}

// ValidPassword requires at least six characters.
func ValidPassword(s string) bool {
	return utf8.RuneCountInString(s) >= minPasswordLen
}

// FormatPhoneForAPI converts a phone to the upstream form: the +7 prefix is
// dropped, and so is a leading 7 or 8 when more than ten digits remain.
func FormatPhoneForAPI(s string) string {
	p := cleanPhone(s)
	switch {
	case strings.HasPrefix(p, "+7"):
		return p[2:]
	case (strings.HasPrefix(p, "7") || strings.HasPrefix(p, "8")) && len(p) > 10:
		return p[1:]
	}
	return p
}

// contactPhone restores the "+" Telegram omits from shared contacts.
func contactPhone(s string) string {
	p := cleanPhone(s)
	if p != "" && !strings.HasPrefix(p, "+") {
		p = "+" + p
	}
	return p
}
