package providers

import (
	"fmt"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Config selects and tunes the execution provider of an inference session.
type Config struct {
	// Provider is the execution provider to append to the session.
	Provider Provider `json:"provider" yaml:"provider"`
	// IntraOpThreads parallelizes execution within graph nodes. Zero uses
	// the runtime default.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	// InterOpThreads parallelizes execution across graph nodes. Zero uses
	// the runtime default.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
	// Options are passed to the provider as-is. Only CUDA and OpenVINO
	// accept options.
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// DefaultConfig returns a CPU configuration with 4 intra-op and 2 inter-op
// threads.
func DefaultConfig() Config {
	return Config{
		Provider:       CPUExecutionProvider,
		IntraOpThreads: 4,
		InterOpThreads: 2,
	}
}

// DefaultOpenVINOOptions runs OpenVINO on the CPU in full precision.
func DefaultOpenVINOOptions() map[string]string {
	return map[string]string{
		"device_id":      "0",
		"device_type":    "CPU",
		"precision":      "FP32",
		"num_of_threads": "4",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := ParseProvider(string(c.Provider)); err != nil {
		return err
	}
	if c.IntraOpThreads < 0 || c.InterOpThreads < 0 {
		return errors.Errorf("thread counts must not be negative (intra %d, inter %d)", c.IntraOpThreads, c.InterOpThreads)
	}
	return nil
}

// SessionOptions builds ONNX Runtime session options for the configuration.
// The caller must Destroy the returned options.
//
// Arguments:
//   - config: The provider configuration to apply.
//
// Returns:
//   - *ort.SessionOptions: Configured session options
//   - error: Configuration error if any
func SessionOptions(config Config) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}

	if err := configure(options, config); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}

func configure(options *ort.SessionOptions, config Config) error {
	// Sets the number of threads used to parallelize execution within onnxruntime graph nodes.
	if err := options.SetIntraOpNumThreads(config.IntraOpThreads); err != nil {
		return errors.Wrap(err, "failed to set intra-op threads")
	}
	// Sets the number of threads used to parallelize execution across separate onnxruntime graph nodes.
	if err := options.SetInterOpNumThreads(config.InterOpThreads); err != nil {
		return errors.Wrap(err, "failed to set inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return errors.Wrap(err, "failed to set graph optimization level")
	}

	switch config.Provider {
	case CPUExecutionProvider, "":
		// CPU provider is always available, no explicit configuration needed

	case CoreMLExecutionProvider:
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			return errors.Wrap(err, "error enabling CoreML")
		}

	case OpenVINOExecutionProvider:
		opts := config.Options
		if len(opts) == 0 {
			opts = DefaultOpenVINOOptions()
		}
		if err := options.AppendExecutionProviderOpenVINO(opts); err != nil {
			return errors.Wrap(err, "error enabling OpenVINO")
		}

	case CUDAExecutionProvider:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return errors.Wrap(err, "error creating CUDA options")
		}
		defer cuda.Destroy()
		if len(config.Options) > 0 {
			if err := cuda.Update(config.Options); err != nil {
				return errors.Wrap(err, "error applying CUDA options")
			}
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return errors.Wrap(err, "error enabling CUDA")
		}

	default:
		return fmt.Errorf("unsupported execution provider: %s", config.Provider)
	}
	return nil
}
