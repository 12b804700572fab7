package compliance

import (
	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"
)

// Engine is the configured decision engine. It is built once at startup and
// shared by reference; all methods are safe for concurrent use.
type Engine struct {
	log      logs.Log
	cfg      Config
	required []string
	policy   Policy
}

// NewEngine validates cfg and builds the selected policy.
func NewEngine(cfg Config, log logs.Log) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid compliance config")
	}
	policy, err := NewPolicy(cfg)
	if err != nil {
		return nil, err
	}
	cfg.RequiredItems = cloneStrings(cfg.RequiredItems)

	if policy.Name() == PolicyLenient {
		log.Warnf("Compliance policy %q approves on weak evidence, do not use it to gate a real site", policy.Name())
	}
	log.Infof("Compliance engine: policy %v, required %v, overlap threshold %.2f", policy.Name(), cfg.RequiredItems, cfg.OverlapThreshold)

	return &Engine{
		log:      log,
		cfg:      cfg,
		required: cfg.RequiredItems,
		policy:   policy,
	}, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config {
	c := e.cfg
	c.RequiredItems = cloneStrings(c.RequiredItems)
	return c
}

// Required returns a copy of the required equipment list.
func (e *Engine) Required() []string {
	return cloneStrings(e.required)
}

// Policy returns the active policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Classify turns one frame's detections into a verdict.
func (e *Engine) Classify(detections []Detection) Verdict {
	if ap, ok := e.policy.(*ArbitrationPolicy); ok {
		decisions := ap.Decide(detections)
		for _, d := range decisions {
			e.log.Debugf("Arbitration %v", d)
		}
		return ap.verdict(detections, decisions)
	}
	return e.policy.Evaluate(detections)
}

// ClassifyVideo classifies each frame and aggregates the results.
// It returns ErrEmptyInput when frames is empty.
func (e *Engine) ClassifyVideo(frames [][]Detection) (Verdict, error) {
	if len(frames) == 0 {
		return Verdict{}, errors.WithStack(ErrEmptyInput)
	}
	verdicts := make([]Verdict, 0, len(frames))
	for _, dets := range frames {
		verdicts = append(verdicts, e.Classify(dets))
	}
	return e.Aggregate(verdicts)
}

// Aggregate folds per-frame verdicts produced by this engine.
func (e *Engine) Aggregate(verdicts []Verdict) (Verdict, error) {
	v, err := AggregateVideo(verdicts, e.policy)
	if err != nil {
		return Verdict{}, errors.WithStack(err)
	}
	return v, nil
}

// Fallback is the verdict used when the detector is unavailable.
func (e *Engine) Fallback() Verdict {
	return FallbackVerdict(e.required)
}
