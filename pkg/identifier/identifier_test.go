package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "warden/pkg/domain-errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain ID unchanged", input: "123456789012345678", expected: "123456789012345678"},
		{name: "strips whitespace", input: "  123456789012345678 ", expected: "123456789012345678"},
		{name: "strips mention markup", input: "<@123456789012345678>", expected: "123456789012345678"},
		{name: "strips nickname mention markup", input: "<@!123456789012345678>", expected: "123456789012345678"},
		{name: "strips backticks", input: "`123456789012345678`", expected: "123456789012345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("accepts valid snowflake", func(t *testing.T) {
		id, err := Validate("123456789012345678")
		assert.NoError(t, err)
		assert.Equal(t, "123456789012345678", id)
	})

	t.Run("accepts mention form", func(t *testing.T) {
		id, err := Validate("<@123456789012345678>")
		assert.NoError(t, err)
		assert.Equal(t, "123456789012345678", id)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := Validate("   ")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non-numeric", func(t *testing.T) {
		_, err := Validate("not-a-participant-id")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects too short", func(t *testing.T) {
		_, err := Validate("12345")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects too long", func(t *testing.T) {
		_, err := Validate("12345678901234567890123456")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
