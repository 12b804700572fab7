package compliance

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-ppe/models"
)

// Defaults for Config.
const (
	DefaultOverlapThreshold   float32 = 0.30
	DefaultPresentMargin              = 0.10
	DefaultUncertainBand              = 0.05
	DefaultLenientPositiveMin         = 0.25
	DefaultLenientNegativeMax         = 0.75
)

// DefaultRequiredItems is the equipment a person must wear unless
// configured otherwise.
var DefaultRequiredItems = []string{models.ClassHardhat, models.ClassSafetyVest}

// Config tunes the decision engine.
type Config struct {
	// RequiredItems is the equipment every person must wear.
	RequiredItems []string `json:"required_items" yaml:"required_items"`
	// Policy selects the decision policy.
	Policy PolicyName `json:"policy" yaml:"policy"`
	// OverlapThreshold is the minimum fraction of an item box that must lie
	// inside the person box for the item to count as worn. Exclusive.
	OverlapThreshold float32 `json:"overlap_threshold" yaml:"overlap_threshold"`
	// PresentMargin and UncertainBand tune the arbitration policy.
	PresentMargin float64 `json:"present_margin" yaml:"present_margin"`
	UncertainBand float64 `json:"uncertain_band" yaml:"uncertain_band"`
	// LenientPositiveMin and LenientNegativeMax tune the lenient policy.
	LenientPositiveMin float64 `json:"lenient_positive_min" yaml:"lenient_positive_min"`
	LenientNegativeMax float64 `json:"lenient_negative_max" yaml:"lenient_negative_max"`
}

// DefaultConfig returns the spatial policy with hardhat and vest required.
func DefaultConfig() Config {
	return Config{
		RequiredItems:      cloneStrings(DefaultRequiredItems),
		Policy:             PolicySpatial,
		OverlapThreshold:   DefaultOverlapThreshold,
		PresentMargin:      DefaultPresentMargin,
		UncertainBand:      DefaultUncertainBand,
		LenientPositiveMin: DefaultLenientPositiveMin,
		LenientNegativeMax: DefaultLenientNegativeMax,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if len(c.RequiredItems) == 0 {
		return errors.New("at least one required item must be configured")
	}
	seen := make(map[string]bool, len(c.RequiredItems))
	for _, item := range c.RequiredItems {
		if item == "" {
			return errors.New("required item names must not be empty")
		}
		if item == models.ClassPerson || models.IsNegative(item) {
			return errors.Errorf("%q cannot be a required item", item)
		}
		if seen[item] {
			return errors.Errorf("required item %q listed twice", item)
		}
		seen[item] = true
	}

	if c.OverlapThreshold < 0 || c.OverlapThreshold > 1 {
		return errors.Errorf("overlap threshold %v is outside [0, 1]", c.OverlapThreshold)
	}
	for _, t := range []struct {
		name  string
		value float64
	}{
		{"present margin", c.PresentMargin},
		{"uncertain band", c.UncertainBand},
		{"lenient positive min", c.LenientPositiveMin},
		{"lenient negative max", c.LenientNegativeMax},
	} {
		if t.value < 0 || t.value > 1 {
			return errors.Errorf("%s %v is outside [0, 1]", t.name, t.value)
		}
	}

	switch c.Policy {
	case PolicySpatial, PolicyArbitration, PolicyLenient:
	default:
		return errors.Errorf("unknown policy %q", c.Policy)
	}
	return nil
}
