package compliance

import "fmt"

// SpatialPolicy is the canonical policy. It finds the nearest person in the
// frame, collects the gear whose boxes lie on that person, and requires
// every required item to be among it.
//
// Negative classes are ignored: a "NO-Hardhat" box on the person is just an
// item that is not on the required list.
type SpatialPolicy struct {
	Required         []string
	OverlapThreshold float32
}

// Name implements Policy.
func (p *SpatialPolicy) Name() PolicyName {
	return PolicySpatial
}

// Evaluate implements Policy.
func (p *SpatialPolicy) Evaluate(detections []Detection) Verdict {
	principal, ok := SelectPrincipal(detections)
	if !ok {
		return noPersonVerdict(p.Required)
	}

	gear := Associate(detections, principal, p.OverlapThreshold)
	detected := ItemNames(gear)
	missing := difference(p.Required, detected)
	safe := len(missing) == 0

	// Without any gear the score reflects how sure we are about the person.
	confidence := principal.Confidence
	if len(gear) > 0 {
		confidence = meanConfidence(gear)
	}

	return Verdict{
		IsSafe:        safe,
		Confidence:    Percent(confidence),
		DetectedItems: detected,
		MissingItems:  missing,
		Reason:        p.Reason(detected, missing, nil, safe),
	}
}

// Reason implements Policy.
func (p *SpatialPolicy) Reason(detected, missing, violations []string, safe bool) string {
	if safe {
		return fmt.Sprintf("Nearest person verified safe: %s. Entry approved.", joinItems(detected))
	}
	return fmt.Sprintf("Nearest person missing gear: %s.", joinItems(missing))
}
