package validator

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrMissingUsername     = errors.New("must provide username")
	ErrUsernameTooLong     = errors.New("username is too long")
	ErrMissingPassword     = errors.New("must provide password")
	ErrMissingConfirmation = errors.New("must confirm password")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrMissingSymbol       = errors.New("must provide symbol")
	ErrInvalidSymbol       = errors.New("invalid symbol")
	ErrMissingShares       = errors.New("must provide shares")
	ErrInvalidShares       = errors.New("shares must be a positive integer")
)

const maxUsernameLength = 64

var symbolRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

func ValidateRegistration(username, password, confirmation string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if strings.TrimSpace(password) == "" {
		return ErrMissingPassword
	}
	if strings.TrimSpace(confirmation) == "" {
		return ErrMissingConfirmation
	}
	if password != confirmation {
		return ErrPasswordMismatch
	}
	return nil
}

// Usernames are stored exactly as submitted; only blank and oversized ones are refused.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrMissingUsername
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return ErrUsernameTooLong
	}
	return nil
}

func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", ErrMissingSymbol
	}
	if !symbolRegex.MatchString(symbol) {
		return "", ErrInvalidSymbol
	}
	return symbol, nil
}

func ParseShares(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, ErrMissingShares
	}
	shares, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || shares <= 0 {
		return 0, ErrInvalidShares
	}
	return shares, nil
}
