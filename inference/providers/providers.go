// Package providers - ONNX Runtime execution provider selection.
package providers

import (
	"github.com/pkg/errors"
)

// Provider represents different ONNX Runtime execution providers
type Provider string

const (
	// CPUExecutionProvider uses CPU for inference
	CPUExecutionProvider Provider = "cpu"

	// CUDAExecutionProvider uses NVIDIA CUDA for GPU acceleration
	CUDAExecutionProvider Provider = "cuda"

	// CoreMLExecutionProvider uses Apple CoreML for macOS/iOS acceleration
	CoreMLExecutionProvider Provider = "coreml"

	// OpenVINOExecutionProvider uses Intel OpenVINO for inference optimization
	OpenVINOExecutionProvider Provider = "openvino"
)

// Providers lists the supported execution providers.
var Providers = []Provider{
	CPUExecutionProvider,
	CUDAExecutionProvider,
	CoreMLExecutionProvider,
	OpenVINOExecutionProvider,
}

// ParseProvider converts a configuration string to a Provider. The empty
// string selects the CPU.
func ParseProvider(s string) (Provider, error) {
	if s == "" {
		return CPUExecutionProvider, nil
	}
	for _, p := range Providers {
		if string(p) == s {
			return p, nil
		}
	}
	return "", errors.Errorf("unsupported execution provider %q", s)
}
