// Package phone validates and normalizes customer phone numbers. All store
// keys use the E.164 form so the same contact never splits across formats.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/smartoutreach/hub/internal/model"
)

// defaultRegion is assumed for numbers entered without a country code.
const defaultRegion = "US"

// Valid reports whether raw parses as a valid phone number.
func Valid(raw string) bool {
	num, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

// Normalize returns the E.164 form of raw, or a ValidationError if the
// number does not parse as valid.
func Normalize(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", model.NewValidationError("phone_number", "invalid phone number format")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Mask hides all but the last four digits for log output.
func Mask(phoneNumber string) string {
	if len(phoneNumber) <= 4 {
		return strings.Repeat("*", len(phoneNumber))
	}
	return strings.Repeat("*", len(phoneNumber)-4) + phoneNumber[len(phoneNumber)-4:]
}
