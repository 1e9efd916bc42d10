package utils

import (
	"errors"
	"regexp"
	"strings"
)

var (
	emailRe           = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	passwordMinLength = 10
	passwordMaxLength = 128
	upperRe           = regexp.MustCompile(`[A-Z]`)
	lowerRe           = regexp.MustCompile(`[a-z]`)
	digitRe           = regexp.MustCompile(`[0-9]`)
	whitespaceRe      = regexp.MustCompile(`\s`)
)

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func ValidateEmail(s string) error {
	if len(s) > 254 || !emailRe.MatchString(s) {
		return errors.New("invalid email")
	}
	return nil
}

func ValidatePassword(s string) error {
	if len(s) < passwordMinLength {
		return errors.New("password too short (min 10 chars)")
	}
	if len(s) > passwordMaxLength {
		return errors.New("password too long (max 128 chars)")
	}
	if whitespaceRe.MatchString(s) {
		return errors.New("password must not contain spaces")
	}
	if !upperRe.MatchString(s) {
		return errors.New("password must include at least one uppercase letter")
	}
	if !lowerRe.MatchString(s) {
		return errors.New("password must include at least one lowercase letter")
	}
	if !digitRe.MatchString(s) {
		return errors.New("password must include at least one digit")
	}
	return nil
}
