package compliance

import "github.com/pkg/errors"

var (
	// ErrDetectorUnavailable is wrapped by detectors that cannot be loaded
	// or run. Callers turn it into Engine.Fallback rather than failing.
	ErrDetectorUnavailable = errors.New("detector unavailable")

	// ErrEmptyInput is returned when a video verdict is requested for zero
	// frames.
	ErrEmptyInput = errors.New("no frame verdicts to aggregate")
)
