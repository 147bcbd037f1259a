package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

// ValueKind describes what a filter operator expects as its value.
type ValueKind string

const (
	ValueNone    ValueKind = "none"
	ValueText    ValueKind = "text"
	ValueNumber  ValueKind = "number"
	ValueList    ValueKind = "list"
	ValuePattern ValueKind = "pattern"
)

// Operator is the metadata for one filter operator.
type Operator struct {
	Value      string    `json:"value"`
	Label      string    `json:"label"`
	NeedsValue bool      `json:"needs_value"`
	Kind       ValueKind `json:"kind"`
}

var operators = []Operator{
	{"equals", "Equals", true, ValueText},
	{"not_equals", "Does not equal", true, ValueText},
	{"contains", "Contains", true, ValueText},
	{"not_contains", "Does not contain", true, ValueText},
	{"starts_with", "Starts with", true, ValueText},
	{"ends_with", "Ends with", true, ValueText},
	{"greater_than", "Greater than", true, ValueNumber},
	{"less_than", "Less than", true, ValueNumber},
	{"greater_or_equal", "Greater than or equal", true, ValueNumber},
	{"less_or_equal", "Less than or equal", true, ValueNumber},
	{"in", "Is one of", true, ValueList},
	{"not_in", "Is not one of", true, ValueList},
	{"is_empty", "Is empty", false, ValueNone},
	{"is_not_empty", "Is not empty", false, ValueNone},
	{"regex", "Matches pattern", true, ValuePattern},
}

// Operators returns the filter operators in display order.
func Operators() []Operator {
	return append([]Operator(nil), operators...)
}

// LookupOperator finds operator metadata by value.
func LookupOperator(value string) (Operator, bool) {
	for _, op := range operators {
		if op.Value == value {
			return op, true
		}
	}
	return Operator{}, false
}

// ValidateFilter checks a filter against its operator's metadata.
func ValidateFilter(f models.FilterRule) error {
	if strings.TrimSpace(f.Field) == "" {
		return fmt.Errorf("%w: field is required", ErrInvalidFilter)
	}

	op, ok := LookupOperator(f.Operator)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownOperator, f.Operator)
	}
	if !op.NeedsValue {
		return nil
	}
	if isBlank(f.Value) {
		return fmt.Errorf("%w: operator %q on %q needs a value", ErrInvalidFilter, op.Value, f.Field)
	}

	switch op.Kind {
	case ValueNumber:
		if _, ok := PriceValue(f.Value); !ok {
			return fmt.Errorf("%w: operator %q needs a number, got %v", ErrInvalidFilter, op.Value, f.Value)
		}
	case ValueList:
		switch f.Value.(type) {
		case []any, []string, string:
		default:
			return fmt.Errorf("%w: operator %q needs a list, got %T", ErrInvalidFilter, op.Value, f.Value)
		}
	case ValuePattern:
		s, ok := f.Value.(string)
		if !ok {
			return fmt.Errorf("%w: pattern must be a string", ErrInvalidFilter)
		}
		if _, err := regexp.Compile(s); err != nil {
			return fmt.Errorf("%w: bad pattern: %v", ErrInvalidFilter, err)
		}
	}

	return nil
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	default:
		return false
	}
}
