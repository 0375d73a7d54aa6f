// Package opencv adapts a gocv-loaded network to the model.Network contract.
package opencv

import (
	"log"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"
)

// Config locates the network files and declares the inputs gocv cannot
// discover on its own.
type Config struct {
	// ModelPath is the weights file (.onnx, .caffemodel, .pb, ...).
	ModelPath string
	// ConfigPath is the optional network description file (.prototxt, .pbtxt).
	ConfigPath string
	// Inputs lists the network's declared input names. gocv does not expose
	// cv::dnn::Layer::outputNameToIndex, so auxiliary inputs such as
	// "im_info" must be declared here for HasInput to see them.
	Inputs []string
}

// Net drives a gocv.Net as a model.Network. It owns a C++ object underneath,
// so Close must be called when finished.
type Net struct {
	mu           sync.Mutex
	net          gocv.Net
	inputs       map[string]bool
	outNames     []string
	terminalType string
	// Input mats are C-backed and must stay alive until forward completes.
	bound []gocv.Mat
}

// NewNet loads the network and resolves its output names and terminal layer
// type once.
func NewNet(cfg Config) (*Net, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, errors.Errorf("failed to load network: %s (model may be incompatible with OpenCV DNN)", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendOpenCV)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	layerNames := net.GetLayerNames()
	if len(layerNames) == 0 {
		net.Close()
		return nil, errors.Errorf("failed to get layer names from network: %s", cfg.ModelPath)
	}

	outIDs := net.GetUnconnectedOutLayers()
	outNames := make([]string, 0, len(outIDs))
	for _, id := range outIDs {
		layer := net.GetLayer(id)
		outNames = append(outNames, layer.GetName())
		layer.Close()
	}

	// OpenCV layer ids are 1-based over GetLayerNames, so the terminal layer
	// in topological order has id len(layerNames).
	last := net.GetLayer(len(layerNames))
	terminalType := last.GetType()
	last.Close()

	inputs := make(map[string]bool, len(cfg.Inputs))
	for _, name := range cfg.Inputs {
		inputs[name] = true
	}

	log.Printf("✅ network loaded: %s (outputs %v, terminal layer %q)", cfg.ModelPath, outNames, terminalType)

	return &Net{
		net:          net,
		inputs:       inputs,
		outNames:     outNames,
		terminalType: terminalType,
	}, nil
}

// SetInput copies the tensor into a gocv.Mat and binds it to the named
// network input. The mat is released after the next Forward.
func (n *Net) SetInput(t *tensor.Dense, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	mat := gocv.NewMatWithSizes([]int(t.Shape()), gocv.MatTypeCV32F)
	dst, err := mat.DataPtrFloat32()
	if err != nil {
		mat.Close()
		return errors.Wrapf(err, "bind input %q", name)
	}
	copy(dst, t.Data().([]float32))

	n.net.SetInput(mat, name)
	n.bound = append(n.bound, mat)
	return nil
}

// Forward runs the network and copies each requested output into a tensor.
func (n *Net) Forward(outputs []string) ([]*tensor.Dense, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	defer n.release()

	mats := n.net.ForwardLayers(outputs)
	outs := make([]*tensor.Dense, 0, len(mats))
	for i := range mats {
		src, err := mats[i].DataPtrFloat32()
		if err != nil {
			closeMats(mats[i:])
			return nil, errors.Wrapf(err, "read output %q", outputs[i])
		}
		data := make([]float32, len(src))
		copy(data, src)
		shape := append([]int(nil), mats[i].Size()...)
		outs = append(outs, tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)))
		mats[i].Close()
	}
	return outs, nil
}

// HasInput reports whether the input name was declared in the Config.
func (n *Net) HasInput(name string) bool {
	return n.inputs[name]
}

// TerminalLayerType returns the declared type of the network's last layer.
func (n *Net) TerminalLayerType() string {
	return n.terminalType
}

// OutputNames returns the unconnected output layer names, in network order.
func (n *Net) OutputNames() []string {
	return append([]string(nil), n.outNames...)
}

// Close releases the underlying network and any bound input mats.
func (n *Net) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.release()
	return n.net.Close()
}

func (n *Net) release() {
	for i := range n.bound {
		n.bound[i].Close()
	}
	n.bound = n.bound[:0]
}

func closeMats(mats []gocv.Mat) {
	for i := range mats {
		mats[i].Close()
	}
}
