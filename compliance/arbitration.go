package compliance

import (
	"fmt"
	"math"

	"github.com/nvr-ai/go-ppe/models"
)

// Outcome is the decision for one required item.
type Outcome int

const (
	// OutcomeUnresolved means there was not enough evidence either way.
	OutcomeUnresolved Outcome = iota
	// OutcomePresent means the item is worn.
	OutcomePresent
	// OutcomeUncertain means positive and negative evidence were too close
	// to call. It is reported as missing, but not as a violation.
	OutcomeUncertain
	// OutcomeViolation means the item was confidently seen to be absent.
	OutcomeViolation
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnresolved:
		return "unresolved"
	case OutcomePresent:
		return "present"
	case OutcomeUncertain:
		return "uncertain"
	case OutcomeViolation:
		return "violation"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// ItemDecision is the evidence and outcome for one required item.
type ItemDecision struct {
	Item          string
	Outcome       Outcome
	PositiveMax   float64
	NegativeMax   float64
	PositiveCount int
	NegativeCount int
}

func (d ItemDecision) String() string {
	return fmt.Sprintf("%s: %v (positive %d max %.2f, negative %d max %.2f)",
		d.Item, d.Outcome, d.PositiveCount, d.PositiveMax, d.NegativeCount, d.NegativeMax)
}

// evidence is the positive and negative observations of one item.
type evidence struct {
	posMax, negMax     float64
	posCount, negCount int
}

// gatherEvidence collects, for each item, the detections of the item itself
// and of its "NO-" class. Boxes play no part.
func gatherEvidence(detections []Detection, items []string) map[string]*evidence {
	byItem := make(map[string]*evidence, len(items))
	for _, item := range items {
		byItem[item] = &evidence{}
	}
	for _, d := range detections {
		if ev, ok := byItem[d.Class]; ok {
			ev.posCount++
			ev.posMax = math.Max(ev.posMax, d.Confidence)
			continue
		}
		if !models.IsNegative(d.Class) {
			continue
		}
		if ev, ok := byItem[models.PositiveOf(d.Class)]; ok {
			ev.negCount++
			ev.negMax = math.Max(ev.negMax, d.Confidence)
		}
	}
	return byItem
}

// ArbitrationPolicy decides each required item by weighing detections of
// the item ("Hardhat") against detections of its negative class
// ("NO-Hardhat") anywhere in the frame.
type ArbitrationPolicy struct {
	Required []string
	// PresentMargin is how far the best positive score must beat the best
	// negative score to win outright.
	PresentMargin float64
	// UncertainBand is the score distance under which positive and negative
	// evidence is too close to call.
	UncertainBand float64
}

// Name implements Policy.
func (p *ArbitrationPolicy) Name() PolicyName {
	return PolicyArbitration
}

// Decide returns the per-item decisions for a frame, in required order.
func (p *ArbitrationPolicy) Decide(detections []Detection) []ItemDecision {
	byItem := gatherEvidence(detections, p.Required)
	decisions := make([]ItemDecision, 0, len(p.Required))
	for _, item := range p.Required {
		ev := byItem[item]
		decisions = append(decisions, ItemDecision{
			Item:          item,
			Outcome:       p.decide(ev),
			PositiveMax:   ev.posMax,
			NegativeMax:   ev.negMax,
			PositiveCount: ev.posCount,
			NegativeCount: ev.negCount,
		})
	}
	return decisions
}

// The rules are evaluated in order and the first match wins.
func (p *ArbitrationPolicy) decide(ev *evidence) Outcome {
	positive := ev.posCount > 0
	negative := ev.negCount > 0

	switch {
	case !positive && !negative:
		return OutcomeUnresolved
	case positive && ((ev.posMax > ev.negMax && ev.posCount >= ev.negCount) ||
		ev.posMax-ev.negMax > p.PresentMargin ||
		ev.posCount > 2*ev.negCount):
		return OutcomePresent
	case negative && math.Abs(ev.posMax-ev.negMax) < p.UncertainBand:
		return OutcomeUncertain
	case negative:
		return OutcomeViolation
	}
	return OutcomeUnresolved
}

// Evaluate implements Policy.
func (p *ArbitrationPolicy) Evaluate(detections []Detection) Verdict {
	return p.verdict(detections, p.Decide(detections))
}

func (p *ArbitrationPolicy) verdict(detections []Detection, decisions []ItemDecision) Verdict {
	detected := []string{}
	missing := []string{}
	var violations []string
	for _, d := range decisions {
		switch d.Outcome {
		case OutcomePresent:
			detected = append(detected, d.Item)
		case OutcomeViolation:
			missing = append(missing, d.Item)
			violations = append(violations, models.NegativeOf(d.Item))
		default:
			missing = append(missing, d.Item)
		}
	}
	safe := len(missing) == 0 && len(violations) == 0

	return Verdict{
		IsSafe:        safe,
		Confidence:    Percent(meanConfidence(detections)),
		DetectedItems: detected,
		MissingItems:  missing,
		Violations:    violations,
		Reason:        p.Reason(detected, missing, violations, safe),
	}
}

// Reason implements Policy.
func (p *ArbitrationPolicy) Reason(detected, missing, violations []string, safe bool) string {
	return entryReason(detected, missing, violations, safe)
}
