package validation

import (
	"encoding/json"
	"strconv"
)

// CalculateNextMinPrice returns the minimum price of the band following one
// that ends at max.
func CalculateNextMinPrice(max float64) float64 {
	return max + 1
}

// ValidatePriceRange reports whether min < max.
func ValidatePriceRange(min, max float64) bool {
	return min < max
}

// PriceValue converts a JSON config value into a float.
func PriceValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
