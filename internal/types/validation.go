package types

import (
	"strings"

	"github.com/pitchside/pitchside-go/internal/errs"
)

// Client-side validation runs before any network call so malformed
// input never costs a round trip. The backend remains the authority;
// these checks only reject input that can never succeed.

const (
	MinPasswordLen = 8
	MinUsernameLen = 3
	MaxUsernameLen = 30
	MinAge         = 13
	MaxAge         = 120
)

// ValidateCredentials checks a login email/password pair.
func ValidateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return &errs.ValidationError{Field: "email", Reason: "must not be empty"}
	}
	if password == "" {
		return &errs.ValidationError{Field: "password", Reason: "must not be empty"}
	}
	if len(password) < MinPasswordLen {
		return &errs.ValidationError{Field: "password", Reason: "too short"}
	}
	return nil
}

// ValidateRegistration checks the profile seed for a new account.
func ValidateRegistration(req RegisterRequest) error {
	if err := ValidateCredentials(req.Email, req.Password); err != nil {
		return err
	}
	name := strings.TrimSpace(req.Username)
	if len(name) < MinUsernameLen || len(name) > MaxUsernameLen {
		return &errs.ValidationError{Field: "username", Reason: "length out of range"}
	}
	if req.Age < MinAge || req.Age > MaxAge {
		return &errs.ValidationError{Field: "age", Reason: "out of range"}
	}
	return nil
}

// ValidateIDPresent rejects an empty resource identifier.
func ValidateIDPresent(id, field string) error {
	if strings.TrimSpace(id) == "" {
		return &errs.ValidationError{Field: field, Reason: "must not be empty"}
	}
	return nil
}
