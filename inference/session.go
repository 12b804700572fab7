package inference

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-ppe/inference/providers"
)

// SessionConfig describes a single-input, single-output detection model.
type SessionConfig struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string
	// InputSize is the square input resolution, e.g. 640.
	InputSize int
	// OutputAttributes is the second output dimension: 4 box values plus
	// one score per class.
	OutputAttributes int
	// Anchors is the third output dimension, e.g. 8400 for a 640 input.
	Anchors int
	// InputName and OutputName default to "images" and "output0".
	InputName  string
	OutputName string
	// Provider selects the execution provider.
	Provider providers.Config
}

// Session represents a model session from the onnxruntime.
type Session struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

// NewSession creates the input and output tensors and loads the model.
// InitEnvironment must have been called.
//
// Arguments:
//   - config: The model and provider configuration.
//
// Returns:
//   - *Session: The session, ready to Run.
//   - error: An error if the session creation fails.
func NewSession(config SessionConfig) (*Session, error) {
	if config.InputName == "" {
		config.InputName = "images"
	}
	if config.OutputName == "" {
		config.OutputName = "output0"
	}

	size := int64(config.InputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}

	outputShape := ort.NewShape(1, int64(config.OutputAttributes), int64(config.Anchors))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	options, err := providers.SessionOptions(config.Provider)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		config.ModelPath,
		[]string{config.InputName},
		[]string{config.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	return &Session{
		Session: session,
		Input:   inputTensor,
		Output:  outputTensor,
	}, nil
}

// Run executes the model on the current contents of Input.
func (s *Session) Run() error {
	if s.Session == nil {
		return errors.New("session is closed")
	}
	return s.Session.Run()
}

// Close releases the resources associated with the Session.
//
// Returns:
//   - No return values.
func (s *Session) Close() {
	if s.Input != nil {
		s.Input.Destroy()
		s.Input = nil
	}
	if s.Output != nil {
		s.Output.Destroy()
		s.Output = nil
	}
	if s.Session != nil {
		s.Session.Destroy()
		s.Session = nil
	}
}
