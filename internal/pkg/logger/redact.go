package logger

import "strings"

// RedactPhone masks a phone number for safe logging, keeping the last four
// digits: "+15551234567" becomes "********4567". Values too short to mask
// usefully are fully masked.
func RedactPhone(phoneNumber string) string {
	if len(phoneNumber) <= 4 {
		return strings.Repeat("*", len(phoneNumber))
	}
	return strings.Repeat("*", len(phoneNumber)-4) + phoneNumber[len(phoneNumber)-4:]
}
