// Package controller routes frames through a detector and the compliance
// engine.
package controller

import (
	"context"
	"image"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-ppe/compliance"
	"github.com/nvr-ai/go-ppe/profiler"
)

// Frame is a single frame of video.
type Frame struct {
	ID        int
	Image     image.Image
	Timestamp time.Time
}

// FramesFromImages numbers a list of decoded frames.
func FramesFromImages(imgs []image.Image) []Frame {
	now := time.Now()
	frames := make([]Frame, len(imgs))
	for i, img := range imgs {
		frames[i] = Frame{ID: i, Image: img, Timestamp: now}
	}
	return frames
}

// Detector is an interface for a detector.
//
// Implementations must be safe for concurrent use. An error wrapping
// compliance.ErrDetectorUnavailable means the model could not be used at
// all; any other error is a failure on this particular image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]compliance.Detection, error)
}

// Controller runs frames through a detector and classifies the detections.
type Controller struct {
	// Detector may be nil, in which case every verdict is the fallback.
	Detector Detector
	Engine   *compliance.Engine
	Log      logs.Log
	// Workers bounds concurrent detections per video. Zero uses one per CPU.
	Workers int
	// Profiler, when set, times detections and checks.
	Profiler *profiler.Profiler
}

// New creates a controller. Pass a nil detector when no model could be
// loaded.
func New(engine *compliance.Engine, detector Detector, log logs.Log, workers int) *Controller {
	return &Controller{
		Detector: detector,
		Engine:   engine,
		Log:      log,
		Workers:  workers,
	}
}

// CheckImage classifies a single image. It never fails: detector problems
// produce the fallback verdict.
func (c *Controller) CheckImage(ctx context.Context, img image.Image) compliance.Verdict {
	defer c.Profiler.StartOperation(profiler.OpCheckImage)()
	return c.classify(ctx, Frame{Image: img, Timestamp: time.Now()})
}

// CheckFrames classifies the sampled frames of a video and aggregates them.
//
// Frames are detected concurrently on up to Workers goroutines, but folded
// in frame order, so the result is the same as a sequential run. A frame
// whose detection fails contributes the fallback verdict. When no frame
// could be detected at all, the video verdict is the fallback verdict, the
// same as with no detector loaded.
//
// Arguments:
//   - ctx: Cancelling it turns the remaining frames into fallback verdicts.
//   - frames: The sampled frames, in video order.
//
// Returns:
//   - compliance.Verdict: The video verdict.
//   - error: compliance.ErrEmptyInput when frames is empty.
func (c *Controller) CheckFrames(ctx context.Context, frames []Frame) (compliance.Verdict, error) {
	if len(frames) == 0 {
		return compliance.Verdict{}, errors.WithStack(compliance.ErrEmptyInput)
	}
	defer c.Profiler.StartOperation(profiler.OpCheckVideo)()
	if c.Detector == nil {
		c.Log.Warnf("No detector loaded, returning fallback verdict for %d frames", len(frames))
		return c.Engine.Fallback(), nil
	}

	verdicts := make([]compliance.Verdict, len(frames))
	detected := make([]bool, len(frames))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(c.workers(), len(frames)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				verdicts[i], detected[i] = c.detect(ctx, frames[i])
			}
		}()
	}
	for i := range frames {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if !slices.Contains(detected, true) {
		c.Log.Warnf("Detection failed on all %d frames, returning fallback verdict", len(frames))
		return c.Engine.Fallback(), nil
	}
	return c.Engine.Aggregate(verdicts)
}

// CheckDetections classifies pre-computed per-frame detections.
func (c *Controller) CheckDetections(frames [][]compliance.Detection) (compliance.Verdict, error) {
	if len(frames) == 1 {
		return c.Engine.Classify(frames[0]), nil
	}
	return c.Engine.ClassifyVideo(frames)
}

func (c *Controller) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

func (c *Controller) classify(ctx context.Context, frame Frame) compliance.Verdict {
	v, _ := c.detect(ctx, frame)
	return v
}

// detect classifies one frame. The flag is false when the frame fell back
// because no detections could be obtained.
func (c *Controller) detect(ctx context.Context, frame Frame) (compliance.Verdict, bool) {
	if c.Detector == nil {
		c.Log.Warnf("No detector loaded, returning fallback verdict")
		return c.Engine.Fallback(), false
	}
	if err := ctx.Err(); err != nil {
		c.Log.Warnf("Frame %d: %v", frame.ID, err)
		return c.Engine.Fallback(), false
	}

	done := c.Profiler.StartOperation(profiler.OpDetect)
	dets, err := c.Detector.Detect(ctx, frame.Image)
	done()
	if err != nil {
		if errors.Is(err, compliance.ErrDetectorUnavailable) {
			c.Log.Warnf("Frame %d: %v", frame.ID, err)
		} else {
			c.Log.Errorf("Frame %d: detection failed: %v", frame.ID, err)
		}
		return c.Engine.Fallback(), false
	}
	return c.Engine.Classify(dets), true
}
