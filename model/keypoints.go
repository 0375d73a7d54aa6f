package model

import (
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-dnn/images"
)

// KeypointsModel decodes keypoint locations from either spatial heatmaps or
// direct coordinate outputs, distinguished by the output tensor's rank.
type KeypointsModel struct {
	*Model
}

// NewKeypointsModel wraps net for keypoint estimation.
func NewKeypointsModel(net Network) *KeypointsModel {
	return &KeypointsModel{Model: NewModel(net)}
}

// Estimate returns one keypoint per output channel, in channel order.
//
// A rank-4 output (1 x keypoints x heatH x heatW) is treated as a stack of
// heatmaps whose last channel is the background map and carries no keypoint.
// A heatmap peak above thresh is scaled from heatmap space into frame space;
// a peak at or below thresh yields the sentinel (-1, -1).
//
// Any other rank is treated as direct coordinates: the first two floats of
// every entry are (x, y), returned without scaling or thresholding.
func (m *KeypointsModel) Estimate(frame image.Image, thresh float32) ([]images.Keypoint, error) {
	outs, err := m.predict(frame)
	if err != nil {
		return nil, err
	}
	if len(outs) != 1 {
		return nil, errors.Wrapf(ErrOutputShape, "estimate: want 1 output tensor, got %d", len(outs))
	}

	out := outs[0]
	if out.Dims() < 2 {
		return nil, errors.Wrapf(ErrOutputShape, "estimate: want a keypoint tensor, got shape %v", out.Shape())
	}
	shape := out.Shape()
	data := out.Data().([]float32)
	count := shape[1]

	if out.Dims() == 4 {
		heatH := shape[2]
		heatW := shape[3]
		frameW := float32(frame.Bounds().Dx())
		frameH := float32(frame.Bounds().Dy())

		points := make([]images.Keypoint, 0, count-1)
		for k := 0; k < count-1; k++ {
			plane := data[k*heatH*heatW : (k+1)*heatH*heatW]
			peak := 0
			for i, v := range plane {
				if v > plane[peak] {
					peak = i
				}
			}

			p := images.Keypoint{X: -1, Y: -1}
			if plane[peak] > thresh {
				p.X = float32(peak%heatW) * frameW / float32(heatW)
				p.Y = float32(peak/heatW) * frameH / float32(heatH)
			}
			points = append(points, p)
		}
		return points, nil
	}

	stride := len(data) / (shape[0] * count)
	if stride < 2 {
		return nil, errors.Wrapf(ErrOutputShape, "estimate: keypoint entries hold %d floats, need 2", stride)
	}
	points := make([]images.Keypoint, 0, count)
	for k := 0; k < count; k++ {
		points = append(points, images.Keypoint{
			X: data[k*stride],
			Y: data[k*stride+1],
		})
	}
	return points, nil
}
