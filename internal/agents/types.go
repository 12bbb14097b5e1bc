// Package agents provides the household data model, household creation and
// the per-step household decision procedure.
package agents

import (
	"fmt"

	"github.com/talgya/housing-filter/internal/economy"
)

// HouseholdID is a unique identifier for a household. Issued monotonically.
type HouseholdID uint64

// Tenure is a household's housing status.
type Tenure uint8

const (
	TenureRenter Tenure = 0
	TenureOwner  Tenure = 1
)

// String returns "owner" or "renter".
func (t Tenure) String() string {
	if t == TenureOwner {
		return "owner"
	}
	return "renter"
}

// Household is one agent in the housing market.
type Household struct {
	ID    HouseholdID   `json:"id"`
	Group economy.Group `json:"group"`

	// Housing
	Tenure        Tenure   `json:"tenure"`
	Quality       *float64 `json:"quality,omitempty"`        // Owned unit quality; nil while renting
	RentalQuality *float64 `json:"rental_quality,omitempty"` // Mid/Low renters only, set once
	PriorQuality  float64  `json:"prior_quality,omitempty"`  // Last owned quality, 0 if never owned
	IsNewHome     bool     `json:"is_new_home"`              // Bought new construction this step

	// Metadata
	BornStep int `json:"born_step"`
}

// Owns reports whether the household owns its home.
func (h *Household) Owns() bool {
	return h.Tenure == TenureOwner
}

// OwnedQuality returns the owned unit's quality, or 0 for renters.
func (h *Household) OwnedQuality() float64 {
	if h.Quality == nil {
		return 0
	}
	return *h.Quality
}

// moveIn makes the household the owner of a unit of quality q.
func (h *Household) moveIn(q float64) {
	h.Tenure = TenureOwner
	h.Quality = &q
}

// moveOut makes the household a renter and returns the vacated quality.
func (h *Household) moveOut() float64 {
	q := h.OwnedQuality()
	h.PriorQuality = q
	h.Tenure = TenureRenter
	h.Quality = nil
	return q
}

// Validate checks the tenure/quality invariants.
func (h *Household) Validate() error {
	switch h.Tenure {
	case TenureOwner:
		if h.Quality == nil {
			return fmt.Errorf("household %d: owner with nil quality", h.ID)
		}
		if q := *h.Quality; q < economy.MinQuality || q > economy.MaxQuality {
			return fmt.Errorf("household %d: owned quality %.4f outside [%.1f, %.1f]",
				h.ID, q, economy.MinQuality, economy.MaxQuality)
		}
	case TenureRenter:
		if h.Quality != nil {
			return fmt.Errorf("household %d: renter with quality %.4f", h.ID, *h.Quality)
		}
	default:
		return fmt.Errorf("household %d: unknown tenure %d", h.ID, h.Tenure)
	}
	if int(h.Group) >= economy.NumGroups {
		return fmt.Errorf("household %d: unknown group %d", h.ID, h.Group)
	}
	return nil
}
