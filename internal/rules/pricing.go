package rules

import (
	"log/slog"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/validation"
)

// chainMinPriceLocked sets min_price = max_price + 1 on the row displayed
// after id, unless that row's min_price was set by hand. Only one step is
// propagated; the rest of the chain is left as is.
func (e *Editor) chainMinPriceLocked(id int64, maxValue any) {
	maxPrice, ok := validation.PriceValue(maxValue)
	if !ok {
		return
	}

	display := e.displayedLocked()
	for i, r := range display {
		if r.ID != id {
			continue
		}
		if i+1 >= len(display) {
			return
		}
		next := display[i+1]
		if _, manual := e.manual[next.ID]; manual {
			return
		}
		err := e.stageLocked(next.ID, Patch{Config: map[string]any{
			models.ConfigMinPrice: validation.CalculateNextMinPrice(maxPrice),
		}})
		if err != nil {
			slog.Debug("min price not chained", "feed_key", e.feedKey, "from", id, "to", next.ID, "error", err)
		}
		return
	}
}

// PriceBand is the min/max pair read from a pricing rule config.
type PriceBand struct {
	RuleID int64
	Min    float64
	Max    float64
	HasMin bool
	HasMax bool
}

// Valid reports whether both bounds are present and min < max.
func (b PriceBand) Valid() bool {
	return b.HasMin && b.HasMax && validation.ValidatePriceRange(b.Min, b.Max)
}

// PriceBands returns the price band of every displayed row in order.
func (e *Editor) PriceBands() []PriceBand {
	display := e.Displayed()
	bands := make([]PriceBand, 0, len(display))
	for _, r := range display {
		b := PriceBand{RuleID: r.ID}
		b.Min, b.HasMin = validation.PriceValue(r.Config[models.ConfigMinPrice])
		b.Max, b.HasMax = validation.PriceValue(r.Config[models.ConfigMaxPrice])
		bands = append(bands, b)
	}
	return bands
}
