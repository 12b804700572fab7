package compliance

// Fixed scores reported by LenientPolicy.
const (
	LenientSafeConfidence   = 85
	LenientUnsafeConfidence = 60
)

// LenientPolicy approves an item unless there is strong evidence that it is
// absent and none at all that it is present. It is meant for demonstrations
// with weak models and should not gate a real site.
type LenientPolicy struct {
	Required []string
	// PositiveMin approves an item outright when its best score exceeds it.
	PositiveMin float64
	// NegativeMax approves an item when its best negative score stays
	// below it.
	NegativeMax float64
}

// Name implements Policy.
func (p *LenientPolicy) Name() PolicyName {
	return PolicyLenient
}

// Evaluate implements Policy.
func (p *LenientPolicy) Evaluate(detections []Detection) Verdict {
	byItem := gatherEvidence(detections, p.Required)

	detected := []string{}
	missing := []string{}
	for _, item := range p.Required {
		if p.approve(byItem[item]) {
			detected = append(detected, item)
		} else {
			missing = append(missing, item)
		}
	}
	safe := len(missing) == 0

	confidence := LenientUnsafeConfidence
	if safe {
		confidence = LenientSafeConfidence
	}

	return Verdict{
		IsSafe:        safe,
		Confidence:    confidence,
		DetectedItems: detected,
		MissingItems:  missing,
		Reason:        p.Reason(detected, missing, nil, safe),
	}
}

func (p *LenientPolicy) approve(ev *evidence) bool {
	if ev.posMax > p.PositiveMin {
		return true
	}
	if ev.negMax < p.NegativeMax {
		return true
	}
	// A strong negative only denies when nothing positive was seen.
	return ev.posMax > 0
}

// Reason implements Policy.
func (p *LenientPolicy) Reason(detected, missing, violations []string, safe bool) string {
	return entryReason(detected, missing, violations, safe)
}
