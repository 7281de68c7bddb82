package rewards

import (
	"fmt"
	"math"
	"sort"

	"voyage-rewards/pkg/config"
)

// Tier is one band of the reward tier table. MaxPoints == 0 marks the
// unbounded top band; otherwise the band covers [MinPoints, MaxPoints).
type Tier struct {
	Name       string   `json:"name"`
	MinPoints  int64    `json:"min_points"`
	MaxPoints  int64    `json:"max_points,omitempty"`
	Multiplier float64  `json:"multiplier"`
	Benefits   []string `json:"benefits"`

	// multiplier in basis points of 100, so awards are exact integer math
	multiplierPct int64
}

// TierTable resolves a point balance to its tier. Bands must partition
// [0, inf) with no gaps or overlaps; construction fails otherwise.
type TierTable struct {
	tiers []Tier
}

func NewTierTable(tiers []Tier) (*TierTable, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("tier table must not be empty")
	}

	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinPoints < sorted[j].MinPoints })

	if sorted[0].MinPoints != 0 {
		return nil, fmt.Errorf("tier table must start at 0 points, got %d", sorted[0].MinPoints)
	}

	for i := range sorted {
		t := &sorted[i]
		if t.Name == "" {
			return nil, fmt.Errorf("tier at %d points has no name", t.MinPoints)
		}
		if t.Multiplier < 1.0 {
			return nil, fmt.Errorf("tier %q multiplier %v below 1.0", t.Name, t.Multiplier)
		}
		t.multiplierPct = int64(math.Round(t.Multiplier * 100))

		last := i == len(sorted)-1
		if last {
			if t.MaxPoints != 0 {
				return nil, fmt.Errorf("top tier %q must be unbounded", t.Name)
			}
			continue
		}
		if t.MaxPoints != sorted[i+1].MinPoints {
			return nil, fmt.Errorf("tier %q ends at %d but %q starts at %d",
				t.Name, t.MaxPoints, sorted[i+1].Name, sorted[i+1].MinPoints)
		}
	}

	return &TierTable{tiers: sorted}, nil
}

// DefaultTiers is the built-in tier table used when none is configured.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "Wanderer", MinPoints: 0, MaxPoints: 1000, Multiplier: 1.0,
			Benefits: []string{"member pricing"}},
		{Name: "Explorer", MinPoints: 1000, MaxPoints: 5000, Multiplier: 1.2,
			Benefits: []string{"member pricing", "priority support"}},
		{Name: "Voyager", MinPoints: 5000, MaxPoints: 15000, Multiplier: 1.5,
			Benefits: []string{"member pricing", "priority support", "seasonal discounts"}},
		{Name: "Globetrotter", MinPoints: 15000, Multiplier: 2.0,
			Benefits: []string{"member pricing", "priority support", "seasonal discounts", "concierge", "early access"}},
	}
}

func tiersFromConfig(cfgs []config.TierConfig) []Tier {
	tiers := make([]Tier, 0, len(cfgs))
	for _, c := range cfgs {
		tiers = append(tiers, Tier{
			Name:       c.Name,
			MinPoints:  c.MinPoints,
			MaxPoints:  c.MaxPoints,
			Multiplier: c.Multiplier,
			Benefits:   c.Benefits,
		})
	}
	return tiers
}

// Resolve returns the tier matching the balance. Negative balances violate
// the ledger invariant and surface as ErrInvalidBalance.
func (t *TierTable) Resolve(points int64) (Tier, error) {
	if points < 0 {
		return Tier{}, fmt.Errorf("%w: %d points", ErrInvalidBalance, points)
	}

	for i := len(t.tiers) - 1; i >= 0; i-- {
		if points >= t.tiers[i].MinPoints {
			return t.tiers[i], nil
		}
	}

	// unreachable given the partition validation
	return Tier{}, fmt.Errorf("%w: no tier for %d points", ErrInvalidBalance, points)
}

// CalculateAward computes floor(basePoints * multiplier) where the
// multiplier belongs to the tier of the balance BEFORE this award. An action
// that itself crosses a tier boundary earns at the pre-upgrade rate; the new
// rate applies from the next action on.
func (t *TierTable) CalculateAward(basePoints, currentPoints int64) (int64, Tier, error) {
	if basePoints < 0 {
		return 0, Tier{}, fmt.Errorf("base points must be >= 0, got %d", basePoints)
	}

	tier, err := t.Resolve(currentPoints)
	if err != nil {
		return 0, Tier{}, err
	}

	return basePoints * tier.multiplierPct / 100, tier, nil
}

// NextThreshold returns the entry balance of the next tier up, or false when
// the balance already sits in the top tier.
func (t *TierTable) NextThreshold(points int64) (int64, bool) {
	for _, tier := range t.tiers {
		if tier.MinPoints > points {
			return tier.MinPoints, true
		}
	}
	return 0, false
}

// Tiers returns the ordered bands, for the catalog projection.
func (t *TierTable) Tiers() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}
