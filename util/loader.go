// Package util reads directories of extracted video frames.
package util

import (
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-ppe/images"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the frame number of the image file.
	Frame int
}

// LoadDirectoryImageFiles reads all frame-N image files from a directory.
//
// Arguments:
// - dir: Directory path containing image files named frame-<number>.<ext>.
//
// Returns:
// - []ImageFile: Slice of ImageFile ordered by frame number.
// - error: Error if reading fails or a file name carries no frame number.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		switch strings.ToLower(ext) {
		case ".jpg", ".jpeg", ".png", ".webp":
			imgPath := filepath.Join(dir, entry.Name())
			frame, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSuffix(entry.Name(), ext), "frame-"))
			if err != nil {
				return nil, errors.Wrapf(err, "%v has no frame number", imgPath)
			}
			data, err := os.ReadFile(imgPath)
			if err != nil {
				return nil, err
			}
			files = append(files, ImageFile{
				Path:  imgPath,
				Data:  data,
				Frame: frame,
			})
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Frame < files[j].Frame
	})

	return files, nil
}

// DecodeImageFiles decodes files in order.
func DecodeImageFiles(files []ImageFile) ([]image.Image, error) {
	out := make([]image.Image, 0, len(files))
	for _, f := range files {
		img, _, err := images.Decode(f.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d (%v)", f.Frame, f.Path)
		}
		out = append(out, img)
	}
	return out, nil
}
