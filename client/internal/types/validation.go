package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
)

// ErrInvalidInput is returned when a request is rejected before it is sent.
var ErrInvalidInput = errors.New("invalid input")

// ValidateRequired rejects blank values.
func ValidateRequired(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	return nil
}

// ValidateProfileID rejects non-positive ids.
func ValidateProfileID(id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: profileId must be positive, got %d", ErrInvalidInput, id)
	}
	return nil
}

// ValidateEmail checks the address with strfmt's email format.
func ValidateEmail(email string) error {
	if err := ValidateRequired(email, "email"); err != nil {
		return err
	}
	if !strfmt.IsEmail(email) {
		return fmt.Errorf("%w: %q is not an email address", ErrInvalidInput, email)
	}
	return nil
}

// Validate checks both fields; the birth date must be a parseable Date.
func (r CreateProfileRequest) Validate() error {
	if err := ValidateRequired(r.BirthDate, "birthDate"); err != nil {
		return err
	}
	if _, err := ParseDate(r.BirthDate); err != nil {
		return fmt.Errorf("%w: birthDate: %v", ErrInvalidInput, err)
	}
	return ValidateRequired(r.InsuranceNumber, "insuranceNumber")
}

func (r LoginRequest) Validate() error {
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	return ValidateRequired(r.Password, "password")
}
