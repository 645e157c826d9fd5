package validator

import (
	"errors"
	"regexp"
)

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidTypeCode    = errors.New("invalid stock type code")
	ErrInvalidSeriesLabel = errors.New("invalid series label")
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidHolderType  = errors.New("invalid shareholder type")
)

var (
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	typeCodeRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_]{1,29}$`)
	seriesRegex   = regexp.MustCompile(`^[A-Z0-9][A-Z0-9\-]{0,19}$`)
)

var holderTypes = map[string]struct{}{
	"individual":  {},
	"corporation": {},
	"trust":       {},
	"partnership": {},
}

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	return nil
}

func ValidateTypeCode(code string) error {
	if !typeCodeRegex.MatchString(code) {
		return ErrInvalidTypeCode
	}
	return nil
}

func ValidateSeriesLabel(label string) error {
	if !seriesRegex.MatchString(label) {
		return ErrInvalidSeriesLabel
	}
	return nil
}

func ValidateName(name string) error {
	if len(name) < 1 || len(name) > 200 {
		return ErrInvalidName
	}
	return nil
}

func ValidateHolderType(holderType string) error {
	if _, ok := holderTypes[holderType]; !ok {
		return ErrInvalidHolderType
	}
	return nil
}
