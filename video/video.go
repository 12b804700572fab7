// Package video samples still frames from video files for classification.
package video

import (
	"image"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrNoFrames means no frame could be decoded from a video.
// It is distinct from detector failure.
var ErrNoFrames = errors.New("no frames could be decoded from video")

// Config controls how many frames are taken from a video.
type Config struct {
	// MaxFrames caps the frames analyzed per video.
	MaxFrames int `json:"max_frames" yaml:"max_frames"`
	// FrameStride is roughly one analyzed frame per this many frames, before
	// the MaxFrames cap applies.
	FrameStride int `json:"frame_stride" yaml:"frame_stride"`
}

// DefaultConfig samples about one frame per second of 30 fps video, up to
// 10 frames.
func DefaultConfig() Config {
	return Config{MaxFrames: 10, FrameStride: 30}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxFrames < 1 {
		return errors.Errorf("max frames must be at least 1, got %d", c.MaxFrames)
	}
	if c.FrameStride < 1 {
		return errors.Errorf("frame stride must be at least 1, got %d", c.FrameStride)
	}
	return nil
}

// SampleIndices returns the indices of the frames to analyze in a video of
// frameCount frames: evenly spaced, starting at frame 0, at least one and
// never more than cfg.MaxFrames or frameCount.
func SampleIndices(frameCount int, cfg Config) []int {
	if frameCount <= 0 {
		return nil
	}
	stride := max(cfg.FrameStride, 1)
	n := min(max(frameCount/stride, 1), max(cfg.MaxFrames, 1), frameCount)
	interval := frameCount / n

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i * interval
	}
	return indices
}

// Sampler decodes sampled frames with OpenCV.
type Sampler struct {
	Config Config
	Log    logs.Log
}

// NewSampler creates a sampler.
func NewSampler(cfg Config, log logs.Log) *Sampler {
	return &Sampler{Config: cfg, Log: log}
}

// Frames implements server.FrameSource.
func (s *Sampler) Frames(path string) ([]image.Image, error) {
	return s.Sample(path)
}

// Sample opens the video at path and decodes the frames chosen by
// SampleIndices. Decoding stops at the first frame that cannot be read.
//
// Arguments:
//   - path: The video file.
//
// Returns:
//   - []image.Image: The decoded frames, in video order.
//   - error: ErrNoFrames if the file cannot be opened or nothing could be
//     decoded.
func (s *Sampler) Sample(path string) ([]image.Image, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		if vc != nil {
			vc.Close()
		}
		return nil, errors.Wrapf(ErrNoFrames, "failed to open video %s: %v", path, err)
	}
	defer vc.Close()

	frameCount := int(vc.Get(gocv.VideoCaptureFrameCount))
	indices := SampleIndices(frameCount, s.Config)

	mat := gocv.NewMat()
	defer mat.Close()

	frames := make([]image.Image, 0, len(indices))
	for _, idx := range indices {
		vc.Set(gocv.VideoCapturePosFrames, float64(idx))
		if ok := vc.Read(&mat); !ok || mat.Empty() {
			s.Log.Warnf("Video %v: frame %d of %d could not be read", path, idx, frameCount)
			break
		}
		img, err := mat.ToImage()
		if err != nil {
			s.Log.Warnf("Video %v: frame %d could not be converted: %v", path, idx, err)
			break
		}
		frames = append(frames, img)
	}

	if len(frames) == 0 {
		return nil, errors.Wrapf(ErrNoFrames, "%s (%d frames reported)", path, frameCount)
	}
	s.Log.Debugf("Video %v: sampled %d of %d frames", path, len(frames), frameCount)
	return frames, nil
}
