// Package inference - ONNX Runtime sessions and input preparation.
package inference

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// InitEnvironment loads the onnxruntime shared library and initializes the
// process wide environment. Later calls are no-ops; the library path of the
// first successful call wins.
//
// Arguments:
//   - libPath: Path to the onnxruntime shared library.
//
// Returns:
//   - error: If the library is missing or cannot be initialized.
func InitEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		return errors.New("no onnxruntime library path configured")
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "error initializing ORT environment")
	}
	return nil
}

// DestroyEnvironment releases the environment created by InitEnvironment.
func DestroyEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
