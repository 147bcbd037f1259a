package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateFeedKey rejects empty keys, keys already present in existing and
// keys with characters outside [a-zA-Z0-9_-].
func ValidateFeedKey(key string, existing []string) error {
	return validateIdentifier("feed key", key, existing)
}

// ValidateRuleTypeName applies the feed key rules to custom rule type names.
func ValidateRuleTypeName(name string, existing []string) error {
	return validateIdentifier("rule type", name, existing)
}

// CanDeleteFeed reports whether a feed with ruleCount rules may be deleted.
func CanDeleteFeed(ruleCount int) bool {
	return ruleCount == 0
}

// CanDeleteRuleType reports whether a rule type with ruleCount rules may be deleted.
func CanDeleteRuleType(ruleCount int) bool {
	return ruleCount == 0
}

func validateIdentifier(kind, name string, existing []string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s: %w", kind, ErrEmptyName)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%s %q: %w", kind, name, ErrInvalidName)
	}
	if slices.Contains(existing, name) {
		return fmt.Errorf("%s %q: %w", kind, name, ErrDuplicateName)
	}
	return nil
}
