package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFeedKey(t *testing.T) {
	existing := []string{"acme", "globex_eu"}

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"valid simple", "initech", nil},
		{"valid with separators", "init-tech_2", nil},
		{"empty", "", ErrEmptyName},
		{"whitespace only", "   ", ErrEmptyName},
		{"duplicate", "acme", ErrDuplicateName},
		{"duplicate second", "globex_eu", ErrDuplicateName},
		{"space inside", "acme eu", ErrInvalidName},
		{"dot", "acme.eu", ErrInvalidName},
		{"slash", "acme/eu", ErrInvalidName},
		{"unicode", "café", ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFeedKey(tt.key, existing)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateRuleTypeName(t *testing.T) {
	assert.NoError(t, ValidateRuleTypeName("seasonal", []string{"pricing"}))
	assert.ErrorIs(t, ValidateRuleTypeName("pricing", []string{"pricing"}), ErrDuplicateName)
	assert.ErrorIs(t, ValidateRuleTypeName("", nil), ErrEmptyName)
	assert.ErrorIs(t, ValidateRuleTypeName("bad name!", nil), ErrInvalidName)
}

func TestDeletionGuards(t *testing.T) {
	for _, n := range []int{0, 1, 2, 50} {
		assert.Equal(t, n == 0, CanDeleteFeed(n), "feed with %d rules", n)
		assert.Equal(t, n == 0, CanDeleteRuleType(n), "rule type with %d rules", n)
	}
}
