package util

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestFrame encodes a tiny PNG under dir with the given name.
func writeTestFrame(t *testing.T, dir, name string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})

	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// TestLoadFramesNumericOrder verifies that "frame-N" names come back in
// numeric order, not lexical order.
func TestLoadFramesNumericOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame-10.png", "frame-2.png", "frame-1.png"} {
		writeTestFrame(t, dir, name)
	}

	frames, err := LoadFrames(dir)

	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{frames[0].Index, frames[1].Index, frames[2].Index})
	assert.Equal(t, filepath.Join(dir, "frame-1.png"), frames[0].Path)
	for _, frame := range frames {
		assert.NotNil(t, frame.Image)
	}
}

// TestLoadFramesSkipsNonImages verifies that unsupported files and
// subdirectories are ignored.
func TestLoadFramesSkipsNonImages(t *testing.T) {
	dir := t.TempDir()
	writeTestFrame(t, dir, "frame-1.png")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a frame"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	frames, err := LoadFrames(dir)

	require.NoError(t, err)
	assert.Len(t, frames, 1)
}

// TestLoadFramesLexicalFallback verifies that names without a numeric
// suffix fall back to lexical ordering.
func TestLoadFramesLexicalFallback(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png"} {
		writeTestFrame(t, dir, name)
	}

	frames, err := LoadFrames(dir)

	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, filepath.Join(dir, "a.png"), frames[0].Path)
	assert.Equal(t, filepath.Join(dir, "b.png"), frames[1].Path)
}

func TestLoadFramesMissingDirectory(t *testing.T) {
	_, err := LoadFrames(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
