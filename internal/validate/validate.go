package validate

import (
	"regexp"
	"strings"
)

var (
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reQ     = regexp.MustCompile(`^[A-Za-z0-9 _'.,\-]{1,50}$`)
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reDate  = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
	reTime  = regexp.MustCompile(`^[0-2][0-9]:[0-5][0-9]$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 100 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Q validates a free-text filter: trims, enforces allowed characters and max
// length. Empty is allowed and means "no filter".
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s, reQ.MatchString(s)
}

// ID validates a resource identifier (product/booking ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Name validates a displayable name with a reasonable max length.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 60 {
		return "", false
	}
	return s, true
}

// Role accepts the two self-service roles, case-insensitively.
func Role(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "USER", true
	}
	return s, s == "USER" || s == "ADMIN"
}

// Date is YYYY-MM-DD, Time is HH:MM. Empty values are allowed.
func Date(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s == "" || reDate.MatchString(s)
}

func Time(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s == "" || reTime.MatchString(s)
}

// LoginPassword only bounds the length; the remote API owns the policy.
func LoginPassword(s string) bool {
	return len(s) > 0 && len(s) <= 128
}

// Password enforces the sign-up policy.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 64 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}
