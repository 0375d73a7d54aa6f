package model

import (
	"image"

	"github.com/pkg/errors"
)

// Mask assigns a class id to every pixel of the decoded score map. It has
// the spatial dimensions of the score tensor, not the input frame.
type Mask struct {
	Rows, Cols int
	// ClassIDs holds one class id per pixel, in row-major order.
	ClassIDs []uint8
}

// At returns the class id at (row, col).
func (m *Mask) At(row, col int) uint8 {
	return m.ClassIDs[row*m.Cols+col]
}

// SegmentationModel runs a semantic segmentation network and reduces its
// per-channel score map to a class id per pixel.
type SegmentationModel struct {
	*Model
}

// NewSegmentationModel wraps net for segmentation.
func NewSegmentationModel(net Network) *SegmentationModel {
	return &SegmentationModel{Model: NewModel(net)}
}

// Segment computes the per-pixel argmax over the channel scores. Channel 0
// is the baseline; a later channel takes a pixel only with a strictly
// greater score, so ties resolve to the lowest channel index.
func (m *SegmentationModel) Segment(frame image.Image) (*Mask, error) {
	outs, err := m.predict(frame)
	if err != nil {
		return nil, err
	}
	if len(outs) != 1 {
		return nil, errors.Wrapf(ErrOutputShape, "segment: want 1 output tensor, got %d", len(outs))
	}

	out := outs[0]
	if out.Dims() != 4 {
		return nil, errors.Wrapf(ErrOutputShape, "segment: want a 1xCxHxW score tensor, got shape %v", out.Shape())
	}
	shape := out.Shape()
	channels := shape[1]
	rows := shape[2]
	cols := shape[3]
	data := out.Data().([]float32)

	mask := &Mask{
		Rows:     rows,
		Cols:     cols,
		ClassIDs: make([]uint8, rows*cols),
	}
	best := make([]float32, rows*cols)
	copy(best, data[:rows*cols])

	for ch := 1; ch < channels; ch++ {
		plane := data[ch*rows*cols : (ch+1)*rows*cols]
		for i, score := range plane {
			if score > best[i] {
				best[i] = score
				mask.ClassIDs[i] = uint8(ch)
			}
		}
	}
	return mask, nil
}
