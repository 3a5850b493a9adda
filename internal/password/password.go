package password

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinLength = 9
	// MaxBytes is the bcrypt input limit.
	MaxBytes = 72
)

var (
	ErrTooShort      = errors.New("password must be longer than 8 characters")
	ErrTooLong       = errors.New("password must be at most 72 bytes long")
	ErrNoUpper       = errors.New("password must contain at least one uppercase letter")
	ErrNoDigit       = errors.New("password must contain at least one digit")
	ErrNoSpecial     = errors.New("password must contain at least one special character")
	ErrEmptyPassword = errors.New("password is empty")
)

func Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	if err := CheckLength(plain); err != nil {
		return "", err
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func Compare(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// CheckLength rejects passwords bcrypt cannot hash.
func CheckLength(plain string) error {
	if len(plain) > MaxBytes {
		return ErrTooLong
	}
	return nil
}

// CheckPolicy reports the first rule the password breaks, or nil.
func CheckPolicy(plain string) error {
	if len([]rune(plain)) < MinLength {
		return ErrTooShort
	}
	if err := CheckLength(plain); err != nil {
		return err
	}
	var upper, digit, special bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			special = true
		}
	}
	switch {
	case !upper:
		return ErrNoUpper
	case !digit:
		return ErrNoDigit
	case !special:
		return ErrNoSpecial
	}
	return nil
}
