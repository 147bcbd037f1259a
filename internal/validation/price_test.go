package validation

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateNextMinPrice(t *testing.T) {
	for _, max := range []float64{0, 1, 99.5, -10, 1e9, math.SmallestNonzeroFloat64} {
		assert.Equal(t, max+1, CalculateNextMinPrice(max))
	}
}

func TestValidatePriceRange(t *testing.T) {
	tests := []struct {
		min, max float64
		want     bool
	}{
		{0, 100, true},
		{100, 100, false},
		{101, 100, false},
		{-5, 0, true},
		{99.99, 100, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidatePriceRange(tt.min, tt.max), "min=%v max=%v", tt.min, tt.max)
		assert.Equal(t, tt.min < tt.max, ValidatePriceRange(tt.min, tt.max))
	}
}

func TestPriceValue(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{12.5, 12.5, true},
		{float32(2), 2, true},
		{7, 7, true},
		{int64(8), 8, true},
		{json.Number("3.25"), 3.25, true},
		{"42", 42, true},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := PriceValue(tt.in)
		assert.Equal(t, tt.wantOK, ok, "input %v", tt.in)
		if tt.wantOK {
			assert.Equal(t, tt.want, got)
		}
	}
}
