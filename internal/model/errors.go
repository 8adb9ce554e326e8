package model

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers. Wrap with fmt.Errorf("...: %w", err)
// and test with errors.Is.
var (
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrNoEnrolledContacts = errors.New("no contacts enrolled in campaign")

	// ErrConditionFailed signals a conditional write whose precondition did
	// not hold (e.g. claiming an enrollment that is no longer pending).
	ErrConditionFailed = errors.New("conditional write failed")
)

// ValidationError marks terminal input problems: malformed phone numbers,
// empty message bodies. Not retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
