package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartoutreach/hub/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
		wantErr  bool
	}{
		{"already e164", "+12125551234", "+12125551234", false},
		{"bare ten digits", "2125551234", "+12125551234", false},
		{"formatted", "(212) 555-1234", "+12125551234", false},
		{"leading one", "1-212-555-1234", "+12125551234", false},
		{"international", "+442071838750", "+442071838750", false},
		{"too short", "555", "", true},
		{"letters", "not-a-number", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, model.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("+12125551234"))
	assert.True(t, Valid("2125551234"))
	assert.False(t, Valid("123"))
	assert.False(t, Valid(""))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "********1234", Mask("+12125551234"))
	assert.Equal(t, "***", Mask("555"))
	assert.Equal(t, "", Mask(""))
}
