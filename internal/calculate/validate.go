package calculate

import (
	"fmt"
	"math"

	"github.com/timmy/ecomatch/internal/catalogue"
	"github.com/timmy/ecomatch/internal/domain"
)

// Validate runs the belt-and-suspenders pass §2C/§4.5 requires
// immediately before a row is marked calculated: every selected/
// component UUID must resolve in the catalogue and not be a market
// entry, and the rendered Beschreibung/Quelle must be within
// MaxChars. It is run on the assembled row result (match or
// decomposition), and its callers fail the row with the violation
// message; this function only reports.
func Validate(store catalogue.Store, result domain.RowResult) error {
	uuids := []string{result.SelectedUUID}
	for _, c := range result.Components {
		uuids = append(uuids, c.MatchedUUID)
	}

	for _, uuid := range uuids {
		if uuid == "" {
			continue
		}
		entry, ok := store.ByUUID(uuid)
		if !ok {
			return fmt.Errorf("uuid %q does not resolve in the catalogue", uuid)
		}
		if entry.IsMarket || domain.IsMarketActivity(entry.ActivityName) {
			return fmt.Errorf("uuid %q resolves to a market entry %q, which is not a valid selection", uuid, entry.ActivityName)
		}
	}

	if len(result.Beschreibung) > MaxChars {
		return fmt.Errorf("beschreibung is %d chars, exceeds %d char limit", len(result.Beschreibung), MaxChars)
	}
	if len(result.Quelle) > MaxChars {
		return fmt.Errorf("quelle is %d chars, exceeds %d char limit", len(result.Quelle), MaxChars)
	}

	if result.DecisionType == domain.DecisionDecompose {
		if n := len(result.Components); n < 3 || n > 10 {
			return fmt.Errorf("decomposition has %d components, must be between 3 and 10", n)
		}
		var sum float64
		for _, c := range result.Components {
			sum += c.AssumedQuantity
		}
		if math.Abs(sum-1.0) > 0.02 {
			return fmt.Errorf("decomposition component quantities sum to %.4f, must be within 0.98-1.02", sum)
		}
	}

	return nil
}
