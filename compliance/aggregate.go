package compliance

// AggregateVideo folds the verdicts of a video's sampled frames into one.
//
// The result is conservative: a single unsafe frame makes the video unsafe.
// Item lists are unions across frames, so an item may be both detected (in
// one frame) and missing (in another). Confidence is the floor of the mean
// frame confidence, and the reason is rebuilt from the unions with
// reasoner's format.
//
// Arguments:
//   - verdicts: Per-frame verdicts, in frame order.
//   - reasoner: The policy that produced the verdicts.
//
// Returns:
//   - Verdict: The video verdict.
//   - error: ErrEmptyInput when verdicts is empty.
func AggregateVideo(verdicts []Verdict, reasoner Policy) (Verdict, error) {
	if len(verdicts) == 0 {
		return Verdict{}, ErrEmptyInput
	}

	safe := true
	sum := 0
	detected := newOrderedSet()
	missing := newOrderedSet()
	var violations *orderedSet

	for _, v := range verdicts {
		safe = safe && v.IsSafe
		sum += clampPercent(v.Confidence)
		detected.add(v.DetectedItems...)
		missing.add(v.MissingItems...)
		if len(v.Violations) > 0 {
			if violations == nil {
				violations = newOrderedSet()
			}
			violations.add(v.Violations...)
		}
	}

	out := Verdict{
		IsSafe:        safe,
		Confidence:    sum / len(verdicts),
		DetectedItems: detected.slice(),
		MissingItems:  missing.slice(),
	}
	if violations != nil {
		out.Violations = violations.slice()
	}
	out.Reason = reasoner.Reason(out.DetectedItems, out.MissingItems, out.Violations, out.IsSafe)
	return out, nil
}
