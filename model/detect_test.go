package model

import (
	"image"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-dnn/images"
)

// TestNewDetectionModelLayerTypes verifies the terminal-layer dispatch,
// including the rejection of unknown output conventions.
func TestNewDetectionModelLayerTypes(t *testing.T) {
	for _, layer := range []string{"DetectionOutput", "Region"} {
		net := newFakeNet(layer)
		_, err := NewDetectionModel(net)
		assert.NoError(t, err, layer)
	}

	net := newFakeNet("Softmax")
	_, err := NewDetectionModel(net)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedLayer))
	assert.Contains(t, err.Error(), "Softmax")
}

// TestDetectFixedRecordAbsolute verifies decoding of a 7-float record whose
// coordinates are already absolute pixels (the box spans more than 2x2).
func TestDetectFixedRecordAbsolute(t *testing.T) {
	out := denseOf([]int{1, 1, 1, 7}, []float32{0, 3, 0.95, 10, 10, 50, 50})
	net := newFakeNet(layerDetectionOutput, out)
	d, err := NewDetectionModel(net)
	require.NoError(t, err)
	d.SetInputSize(image.Pt(32, 32))

	classIDs, confidences, boxes, err := d.Detect(testFrame(100, 100), 0.5, 0.4)

	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, 3, classIDs[0])
	assert.InDelta(t, 0.95, confidences[0], 0.0001)
	assert.Equal(t, images.Rect{X: 10, Y: 10, Width: 41, Height: 41}, boxes[0])
}

// TestDetectFixedRecordNormalized verifies the fallback for exporters that
// emit [0,1] coordinates: a raw box no bigger than 2x2 is re-read as
// normalized and scaled by the frame size.
func TestDetectFixedRecordNormalized(t *testing.T) {
	out := denseOf([]int{1, 1, 1, 7}, []float32{0, 2, 0.9, 0.1, 0.2, 0.11, 0.21})
	net := newFakeNet(layerDetectionOutput, out)
	d, err := NewDetectionModel(net)
	require.NoError(t, err)
	d.SetInputSize(image.Pt(32, 32))

	classIDs, _, boxes, err := d.Detect(testFrame(100, 100), 0.5, 0.4)

	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, 2, classIDs[0])
	assert.Equal(t, images.Rect{X: 10, Y: 20, Width: 2, Height: 2}, boxes[0])
}

// TestDetectFixedRecordConfidenceFilter verifies that low-confidence records
// are dropped during decode.
func TestDetectFixedRecordConfidenceFilter(t *testing.T) {
	out := denseOf([]int{1, 1, 2, 7}, []float32{
		0, 1, 0.9, 10, 10, 50, 50,
		0, 2, 0.3, 60, 60, 90, 90,
	})
	net := newFakeNet(layerDetectionOutput, out)
	d, err := NewDetectionModel(net)
	require.NoError(t, err)
	d.SetInputSize(image.Pt(32, 32))

	classIDs, _, boxes, err := d.Detect(testFrame(100, 100), 0.5, 0)

	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, 1, classIDs[0])
}

// TestDetectFixedRecordClamping verifies that out-of-frame boxes are clamped
// to the frame with at least one pixel of extent.
func TestDetectFixedRecordClamping(t *testing.T) {
	out := denseOf([]int{1, 1, 1, 7}, []float32{0, 0, 0.9, -20, -20, 150, 150})
	net := newFakeNet(layerDetectionOutput, out)
	d, err := NewDetectionModel(net)
	require.NoError(t, err)
	d.SetInputSize(image.Pt(32, 32))

	_, _, boxes, err := d.Detect(testFrame(100, 100), 0.5, 0)

	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, images.Rect{X: 0, Y: 0, Width: 100, Height: 100}, boxes[0])
}

// TestDetectImInfoCoordinateSpace verifies that two-stage networks decode
// into the resized-input coordinate space instead of the frame's.
func TestDetectImInfoCoordinateSpace(t *testing.T) {
	// Normalized record; the 100x100 frame would scale it by 100, the
	// declared 300x300 input scales it by 300.
	out := denseOf([]int{1, 1, 1, 7}, []float32{0, 1, 0.9, 0.1, 0.1, 0.2, 0.2})
	net := newFakeNet(layerDetectionOutput, out)
	net.extraInputs = []string{"im_info"}
	d, err := NewDetectionModel(net)
	require.NoError(t, err)
	d.SetInputSize(image.Pt(300, 300))

	_, _, boxes, err := d.Detect(testFrame(100, 100), 0.5, 0)

	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, images.Rect{X: 30, Y: 30, Width: 31, Height: 31}, boxes[0])

	imInfo, ok := net.inputs["im_info"]
	require.True(t, ok, "two-stage networks receive the im_info tensor")
	assert.Equal(t, []float32{300, 300, 1.6}, imInfo.Data().([]float32))
}

// TestDetectGrid verifies decoding of a Region-style grid row: centered box
// scaled by the frame size, class argmax over the columns past the
// objectness slot.
func TestDetectGrid(t *testing.T) {
	out := denseOf([]int{1, 8}, []float32{0.5, 0.5, 0.2, 0.2, 0.8, 0.1, 0.9, 0.2})
	net := newFakeNet(layerRegion, out)
	d, err := NewDetectionModel(net)
	require.NoError(t, err)
	d.SetInputSize(image.Pt(32, 32))

	classIDs, confidences, boxes, err := d.Detect(testFrame(200, 200), 0.5, 0)

	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, 1, classIDs[0])
	assert.InDelta(t, 0.9, confidences[0], 0.0001)
	assert.Equal(t, images.Rect{X: 80, Y: 80, Width: 40, Height: 40}, boxes[0])
}

// TestDetectGridNMS verifies that grid decodes run suppression for a
// nonzero NMS threshold and skip it entirely for zero.
func TestDetectGridNMS(t *testing.T) {
	// Two rows decoding to the same box and class, different confidence.
	out := denseOf([]int{2, 6}, []float32{
		0.5, 0.5, 0.2, 0.2, 0.0, 0.9,
		0.5, 0.5, 0.2, 0.2, 0.0, 0.8,
	})
	net := newFakeNet(layerRegion, out)
	d, err := NewDetectionModel(net)
	require.NoError(t, err)
	d.SetInputSize(image.Pt(32, 32))

	_, confidences, boxes, err := d.Detect(testFrame(200, 200), 0.5, 0.5)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.InDelta(t, 0.9, confidences[0], 0.0001)

	_, _, boxes, err = d.Detect(testFrame(200, 200), 0.5, 0)
	require.NoError(t, err)
	assert.Len(t, boxes, 2, "a zero NMS threshold disables suppression")
}

// TestDetectGridNMSAcrossClasses verifies the cross-class suppression mode
// on identical boxes of different classes.
func TestDetectGridNMSAcrossClasses(t *testing.T) {
	out := denseOf([]int{2, 7}, []float32{
		0.5, 0.5, 0.2, 0.2, 0.0, 0.9, 0.0,
		0.5, 0.5, 0.2, 0.2, 0.0, 0.0, 0.8,
	})
	net := newFakeNet(layerRegion, out)
	d, err := NewDetectionModel(net)
	require.NoError(t, err)
	d.SetInputSize(image.Pt(32, 32))

	classIDs, _, _, err := d.Detect(testFrame(200, 200), 0.5, 0.5)
	require.NoError(t, err)
	assert.Len(t, classIDs, 2, "per-class mode keeps one box per class")

	require.False(t, d.NMSAcrossClasses())
	d.SetNMSAcrossClasses(true)
	require.True(t, d.NMSAcrossClasses())

	classIDs, _, _, err = d.Detect(testFrame(200, 200), 0.5, 0.5)
	require.NoError(t, err)
	require.Len(t, classIDs, 1)
	assert.Equal(t, 0, classIDs[0], "the stronger class 0 detection survives")
}

// TestDetectGridSkipsNarrowRows verifies that grids without class columns
// produce no candidates.
func TestDetectGridSkipsNarrowRows(t *testing.T) {
	out := denseOf([]int{1, 5}, []float32{0.5, 0.5, 0.2, 0.2, 0.9})
	net := newFakeNet(layerRegion, out)
	d, err := NewDetectionModel(net)
	require.NoError(t, err)
	d.SetInputSize(image.Pt(32, 32))

	_, _, boxes, err := d.Detect(testFrame(200, 200), 0.1, 0)

	require.NoError(t, err)
	assert.Empty(t, boxes)
}
