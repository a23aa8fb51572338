// Package form guards the registration and login forms before anything
// reaches storage.
package form

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Error texts are shown verbatim as form alerts.
var (
	ErrMissingFields    = errors.New("All fields are required!")
	ErrPasswordMismatch = errors.New("Passwords do not match!")
	ErrInvalidEmail     = errors.New("Invalid email address.")
	ErrFieldTooLong     = errors.New("Field is too long.")
)

// Column limits of the students table. bcrypt ignores password bytes past 72
// and refuses to hash longer input.
const (
	MaxUsernameLen   = 50
	MaxEmailLen      = 100
	MaxPasswordBytes = 72
)

// LengthError reports which field exceeded its limit. It matches
// ErrFieldTooLong under errors.Is.
type LengthError struct {
	Field string
	Max   int
	Unit  string
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("%s must be at most %d %s.", e.Field, e.Max, e.Unit)
}

func (e *LengthError) Is(target error) bool {
	return target == ErrFieldTooLong
}

type RegistrationForm struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirmPassword"`
}

type LoginForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// ValidateRegistration blocks a submission with an empty field or mismatched
// passwords. Username and email are trimmed before the emptiness check,
// passwords are compared verbatim. Malformed emails and over-long fields are
// rejected after those two checks.
func ValidateRegistration(f RegistrationForm) error {
	if strings.TrimSpace(f.Username) == "" ||
		strings.TrimSpace(f.Email) == "" ||
		f.Password == "" ||
		f.ConfirmPassword == "" {
		return ErrMissingFields
	}
	if f.Password != f.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if !validEmail(f.Email) {
		return ErrInvalidEmail
	}
	return checkLengths(f)
}

func checkLengths(f RegistrationForm) error {
	if utf8.RuneCountInString(strings.TrimSpace(f.Username)) > MaxUsernameLen {
		return &LengthError{Field: "Username", Max: MaxUsernameLen, Unit: "characters"}
	}
	if utf8.RuneCountInString(strings.TrimSpace(f.Email)) > MaxEmailLen {
		return &LengthError{Field: "Email", Max: MaxEmailLen, Unit: "characters"}
	}
	if len(f.Password) > MaxPasswordBytes {
		return &LengthError{Field: "Password", Max: MaxPasswordBytes, Unit: "bytes"}
	}
	return nil
}

func ValidateLogin(f LoginForm) error {
	if strings.TrimSpace(f.Email) == "" || f.Password == "" {
		return ErrMissingFields
	}
	if !validEmail(f.Email) {
		return ErrInvalidEmail
	}
	return nil
}

// Normalize returns the form with surrounding whitespace removed from the
// identity fields.
func (f RegistrationForm) Normalize() RegistrationForm {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	return f
}

func validEmail(raw string) bool {
	raw = strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return false
	}
	// reject "Name <addr>" forms
	return addr.Address == raw && strings.Contains(addr.Address, "@")
}
