package compliance

import (
	"strings"

	"github.com/pkg/errors"
)

// PolicyName selects how detections are turned into a verdict.
type PolicyName string

const (
	// PolicySpatial judges only the gear worn by the nearest person.
	PolicySpatial PolicyName = "spatial"
	// PolicyArbitration weighs positive classes against their "NO-"
	// counterparts across the whole frame.
	PolicyArbitration PolicyName = "arbitration"
	// PolicyLenient approves unless there is strong evidence of absence.
	// It is intentionally lax and meant for demonstrations only.
	PolicyLenient PolicyName = "lenient"
)

// Policies lists every known policy name.
var Policies = []PolicyName{PolicySpatial, PolicyArbitration, PolicyLenient}

// Policy classifies the detections of a single frame.
//
// Implementations are pure: the same detections always give the same
// Verdict, and no state is kept between calls.
type Policy interface {
	// Name identifies the policy.
	Name() PolicyName
	// Evaluate classifies one frame.
	Evaluate(detections []Detection) Verdict
	// Reason formats the explanation for a set of decisions. The frame
	// aggregator uses it to describe a whole video.
	Reason(detected, missing, violations []string, safe bool) string
}

// NewPolicy builds the policy named in cfg. cfg is assumed to be valid.
func NewPolicy(cfg Config) (Policy, error) {
	required := cloneStrings(cfg.RequiredItems)
	switch cfg.Policy {
	case PolicySpatial, "":
		return &SpatialPolicy{Required: required, OverlapThreshold: cfg.OverlapThreshold}, nil
	case PolicyArbitration:
		return &ArbitrationPolicy{Required: required, PresentMargin: cfg.PresentMargin, UncertainBand: cfg.UncertainBand}, nil
	case PolicyLenient:
		return &LenientPolicy{Required: required, PositiveMin: cfg.LenientPositiveMin, NegativeMax: cfg.LenientNegativeMax}, nil
	}
	return nil, errors.Errorf("unknown policy %q", cfg.Policy)
}

// joinItems renders an item list for a reason string.
func joinItems(items []string) string {
	return strings.Join(items, ", ")
}

// entryReason is the reason format shared by the arbitration and lenient
// policies.
func entryReason(detected, missing, violations []string, safe bool) string {
	if safe {
		return "All required safety equipment detected: " + joinItems(detected) + ". Entry approved."
	}
	var clauses []string
	if len(missing) > 0 {
		clauses = append(clauses, "Missing: "+joinItems(missing))
	}
	if len(violations) > 0 {
		clauses = append(clauses, "Violations: "+joinItems(violations))
	}
	if len(clauses) == 0 {
		return "Entry denied."
	}
	return "Entry denied. " + strings.Join(clauses, ". ") + "."
}
