// Package model implements the high-level task API over a DNN forward
// backend: classification, keypoint estimation, semantic segmentation and
// object detection. A Model owns the shared preprocess/forward pipeline; the
// task models layer a decoder on top of it.
//
// Models hold no lock: a single instance must not be shared across
// goroutines without external synchronization, and the input parameters must
// not be mutated while a call is in flight.
package model

import (
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-dnn/preprocess"
)

// Network is the forward-execution capability the models drive.
// Implementations wrap a loaded network graph (see backend/opencv and
// backend/onnx); output names and the terminal layer type are fixed at load
// time and must not change afterwards.
type Network interface {
	// SetInput binds an input tensor. An empty name selects the primary input.
	SetInput(t *tensor.Dense, name string) error

	// Forward runs the network and returns one tensor per requested output
	// name, in request order.
	Forward(outputs []string) ([]*tensor.Dense, error)

	// HasInput reports whether the network declares an input with the given
	// name.
	HasInput(name string) bool

	// TerminalLayerType is the declared type of the last layer in the
	// network's topological order.
	TerminalLayerType() string

	// OutputNames lists the unconnected output layers, in a fixed order.
	OutputNames() []string
}

// imInfoName is the auxiliary input declared by two-stage region-proposal
// networks (Faster-RCNN, R-FCN).
const imInfoName = "im_info"

// imInfoScale is the fixed placeholder resize scale those networks expect as
// the third im_info value.
const imInfoScale = 1.6

// Model binds a Network to input preprocessing parameters and runs the
// shared frame -> blob -> forward pipeline.
type Model struct {
	net      Network
	params   preprocess.Params
	outNames []string
	blob     *tensor.Dense
}

// NewModel wraps net, resolving its output names once.
func NewModel(net Network) *Model {
	return &Model{
		net:      net,
		params:   preprocess.Params{Scale: 1},
		outNames: net.OutputNames(),
	}
}

// SetInputParams configures every preprocessing parameter in one call.
func (m *Model) SetInputParams(scale float64, size image.Point, mean [4]float64, swapRB, crop bool) *Model {
	m.params = preprocess.Params{
		Scale:  scale,
		Size:   size,
		Mean:   mean,
		SwapRB: swapRB,
		Crop:   crop,
	}
	return m
}

// SetInputSize sets the target width/height of the network input.
func (m *Model) SetInputSize(size image.Point) *Model {
	m.params.Size = size
	return m
}

// SetInputMean sets the per-channel values subtracted before scaling.
func (m *Model) SetInputMean(mean [4]float64) *Model {
	m.params.Mean = mean
	return m
}

// SetInputScale sets the multiplier applied after mean subtraction.
func (m *Model) SetInputScale(scale float64) *Model {
	m.params.Scale = scale
	return m
}

// SetInputSwapRB toggles swapping of the first and third blob channels.
func (m *Model) SetInputSwapRB(swap bool) *Model {
	m.params.SwapRB = swap
	return m
}

// SetInputCrop toggles center cropping during the input resize.
func (m *Model) SetInputCrop(crop bool) *Model {
	m.params.Crop = crop
	return m
}

// InputBlob returns the input tensor built by the most recent predict call,
// for introspection. It is nil before the first call.
func (m *Model) InputBlob() *tensor.Dense {
	return m.blob
}

// predict runs the shared pipeline: build the input blob from frame, bind it
// (plus the im_info tensor when the network declares that input), and
// forward for the output names resolved at construction.
func (m *Model) predict(frame image.Image) ([]*tensor.Dense, error) {
	if m.params.Size.X <= 0 || m.params.Size.Y <= 0 {
		return nil, errors.Wrap(ErrInputSize, "predict")
	}

	m.blob = preprocess.Blob(frame, m.params)
	if err := m.net.SetInput(m.blob, ""); err != nil {
		return nil, err
	}

	if m.net.HasInput(imInfoName) {
		imInfo := tensor.New(
			tensor.WithShape(1, 3),
			tensor.WithBacking([]float32{
				float32(m.params.Size.Y),
				float32(m.params.Size.X),
				imInfoScale,
			}),
		)
		if err := m.net.SetInput(imInfo, imInfoName); err != nil {
			return nil, err
		}
	}

	return m.net.Forward(m.outNames)
}
