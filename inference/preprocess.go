package inference

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// PrepareInput prepares the input for the ONNX model before inference is
// called.
//
// The image is stretched to size x size and written to dst in planar
// RGB order with values scaled to [0, 1]. Boxes decoded from the output
// therefore scale back to the frame independently on each axis.
//
// Arguments:
//   - img: The image to prepare.
//   - size: The square model input resolution.
//   - dst: The destination tensor data to populate.
//
// Returns:
//   - error: An error if the input preparation fails.
func PrepareInput(img image.Image, size int, dst []float32) error {
	if size <= 0 {
		return errors.Errorf("invalid input size %d", size)
	}
	channelSize := size * size
	if len(dst) < channelSize*3 {
		return errors.Errorf("destination tensor only holds %d floats, needs %d", len(dst), channelSize*3)
	}
	if img.Bounds().Empty() {
		return errors.New("cannot prepare an empty image")
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	// Resize the image to the model input using Lanczos3 algorithm.
	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)
	b := resized.Bounds()

	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(bl>>8) / 255.0
			i++
		}
	}
	return nil
}
