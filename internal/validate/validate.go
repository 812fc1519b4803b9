package validate

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	reUsername = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)
	reQ        = regexp.MustCompile(`^[A-Za-z0-9 _':\\.-]{1,50}$`)
	reID       = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reRole     = regexp.MustCompile(`^(ADMIN|OPERATOR)$`)
	reMoveType = regexp.MustCompile(`^(IN|OUT)$`)
)

// FieldError is one problem with one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string { return e.Field + ": " + e.Message }

// Errors collects field errors while an input struct is checked.
type Errors []FieldError

func (e *Errors) Add(field, msg string) { *e = append(*e, FieldError{Field: field, Message: msg}) }

// Check adds msg for field when ok is false.
func (e *Errors) Check(ok bool, field, msg string) {
	if !ok {
		e.Add(field, msg)
	}
}

// Required trims s and reports whether anything is left.
func Required(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Username: letters, digits and underscores, at least 3 characters.
func Username(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reUsername.MatchString(s)
}

// Password enforces the minimum length accepted at registration and login.
func Password(s string) bool {
	return len(s) >= 6 && len(s) <= 72 // bcrypt ignores bytes past 72
}

// Name validates a display name.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len([]rune(s)) < 2 || len(s) > 100 {
		return "", false
	}
	return s, true
}

func Role(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, reRole.MatchString(s)
}

func MovementType(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, reMoveType.MatchString(s)
}

// Q validates a search query: trims, enforces allowed characters and max length
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s, reQ.MatchString(s)
}

// Qty parses a movement quantity; anything below 1 is rejected.
func Qty(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ID validates a simple resource identifier.
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// ImageURL accepts an empty value or an absolute http(s) URL.
func ImageURL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return s, false
	}
	return s, true
}
