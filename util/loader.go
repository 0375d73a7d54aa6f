// Package util holds small helpers for feeding images to the models.
package util

import (
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	_ "image/jpeg"
	_ "image/png"
)

// Frame is one decoded image from a directory of frames.
type Frame struct {
	// Path is the file the frame was decoded from.
	Path string
	// Image is the decoded frame.
	Image image.Image
	// Index is the frame number parsed from a "frame-N" style name, or the
	// position in lexical order when names carry no number.
	Index int
}

// LoadFrames decodes every supported image in dir, ordered by frame index.
//
// Arguments:
//   - dir: Directory containing .jpg/.jpeg/.png frames.
//
// Returns:
//   - []Frame: The decoded frames, in ascending index order.
//   - error: An error if the directory cannot be read or a frame fails to
//     decode.
func LoadFrames(dir string) ([]Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading frame directory %s", dir)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".jpg", ".jpeg", ".png":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	frames := make([]Frame, 0, len(names))
	for i, name := range names {
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "opening frame %s", path)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "decoding frame %s", path)
		}
		frames = append(frames, Frame{
			Path:  path,
			Image: img,
			Index: frameIndex(name, i),
		})
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Index < frames[j].Index
	})
	return frames, nil
}

// frameIndex parses the numeric suffix of a "frame-N" style name, falling
// back to the lexical position.
func frameIndex(name string, fallback int) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.TrimPrefix(base, "frame-")
	if n, err := strconv.Atoi(base); err == nil {
		return n
	}
	return fallback
}
