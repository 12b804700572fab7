// Package images - Image decoding for uploaded frames.
package images

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
)

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatUnknown is returned when the bytes match no supported format.
	FormatUnknown ImageFormat = ""
)

// ErrUnsupportedFormat is returned when image bytes are not JPEG, PNG or WebP.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// DetectFormat sniffs the image format from the leading bytes.
func DetectFormat(data []byte) ImageFormat {
	// RIFF....WEBP is not recognised by http.DetectContentType on older Go
	// releases, so check it first.
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return FormatWebP
	}
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return FormatJPEG
	case "image/png":
		return FormatPNG
	case "image/webp":
		return FormatWebP
	}
	return FormatUnknown
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) ImageFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".png":
		return FormatPNG
	case ".webp":
		return FormatWebP
	}
	return FormatUnknown
}

// Decode decodes JPEG, PNG or WebP bytes into an image.Image.
//
// Arguments:
//   - data: The encoded image.
//
// Returns:
//   - image.Image: The decoded image.
//   - ImageFormat: The format that was detected.
//   - error: ErrUnsupportedFormat, or the decoder's error wrapped with the format.
func Decode(data []byte) (image.Image, ImageFormat, error) {
	if len(data) == 0 {
		return nil, FormatUnknown, errors.New("empty image data")
	}

	format := DetectFormat(data)
	var (
		img image.Image
		err error
	)
	switch format {
	case FormatJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	case FormatPNG:
		img, err = png.Decode(bytes.NewReader(data))
	case FormatWebP:
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return nil, FormatUnknown, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, format, errors.Wrapf(err, "decode %s", format)
	}
	return img, format, nil
}
