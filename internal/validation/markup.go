package validation

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

// ValidateMarkup checks every tier of a markup config and reports all
// problems at once.
func ValidateMarkup(cfg models.MarkupRulesConfig) error {
	var result *multierror.Error

	for i, tier := range cfg.Rules {
		if !ValidatePriceRange(tier.MinPrice, tier.MaxPrice) {
			result = multierror.Append(result, fmt.Errorf("tier %d: %w (%g >= %g)", i+1, ErrInvalidRange, tier.MinPrice, tier.MaxPrice))
		}
		if tier.Percent < 0 {
			result = multierror.Append(result, fmt.Errorf("tier %d: percent must not be negative", i+1))
		}
	}
	if len(cfg.Rules) > 0 && len(cfg.PriceFields) == 0 {
		result = multierror.Append(result, fmt.Errorf("at least one price field is required"))
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMarkup, err)
	}
	return nil
}
