// Package onnx adapts an ONNX Runtime session to the model.Network
// contract.
package onnx

import (
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

// TensorInfo names one graph input or output and fixes its shape. ONNX
// Runtime sessions run against preallocated tensors, so shapes must be known
// up front.
type TensorInfo struct {
	Name  string
	Shape []int64
}

// Config describes the session to build. ONNX graphs carry no OpenCV-style
// layer metadata, so the terminal layer type is declared here rather than
// discovered.
type Config struct {
	ModelPath string
	// LibraryPath is the onnxruntime shared library. Empty selects
	// DefaultLibraryPath().
	LibraryPath       string
	Inputs            []TensorInfo
	Outputs           []TensorInfo
	TerminalLayerType string
	// IntraOpThreads parallelizes execution within graph nodes; 0 keeps the
	// runtime default.
	IntraOpThreads int
	// InterOpThreads parallelizes execution across graph nodes; 0 keeps the
	// runtime default.
	InterOpThreads int
}

// Session drives an ONNX Runtime session as a model.Network.
type Session struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputs       []*ort.Tensor[float32]
	outputs      []*ort.Tensor[float32]
	inputNames   []string
	outputNames  []string
	terminalType string
}

// NewSession initializes the runtime environment and builds a session with
// preallocated input and output tensors.
func NewSession(cfg Config) (*Session, error) {
	libPath := cfg.LibraryPath
	if libPath == "" {
		libPath = DefaultLibraryPath()
	}
	if _, err := os.Stat(libPath); os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, errors.Wrap(err, "initializing ORT environment")
	}

	s := &Session{terminalType: cfg.TerminalLayerType}
	for _, in := range cfg.Inputs {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(in.Shape...))
		if err != nil {
			s.destroyTensors()
			return nil, errors.Wrapf(err, "creating input tensor %q", in.Name)
		}
		s.inputs = append(s.inputs, t)
		s.inputNames = append(s.inputNames, in.Name)
	}
	for _, out := range cfg.Outputs {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(out.Shape...))
		if err != nil {
			s.destroyTensors()
			return nil, errors.Wrapf(err, "creating output tensor %q", out.Name)
		}
		s.outputs = append(s.outputs, t)
		s.outputNames = append(s.outputNames, out.Name)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		s.destroyTensors()
		return nil, errors.Wrap(err, "creating ORT session options")
	}
	defer options.Destroy()
	if cfg.IntraOpThreads > 0 {
		options.SetIntraOpNumThreads(cfg.IntraOpThreads)
	}
	if cfg.InterOpThreads > 0 {
		options.SetInterOpNumThreads(cfg.InterOpThreads)
	}
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	inVals := make([]ort.ArbitraryTensor, len(s.inputs))
	for i, t := range s.inputs {
		inVals[i] = t
	}
	outVals := make([]ort.ArbitraryTensor, len(s.outputs))
	for i, t := range s.outputs {
		outVals[i] = t
	}

	sess, err := ort.NewAdvancedSession(cfg.ModelPath, s.inputNames, s.outputNames, inVals, outVals, options)
	if err != nil {
		s.destroyTensors()
		return nil, errors.Wrap(err, "creating ORT session")
	}
	s.session = sess
	return s, nil
}

// SetInput copies the tensor into the matching preallocated input. An empty
// name selects the first input.
func (s *Session) SetInput(t *tensor.Dense, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := 0
	if name != "" {
		idx = indexOf(s.inputNames, name)
		if idx < 0 {
			return errors.Errorf("no input named %q", name)
		}
	}

	dst := s.inputs[idx].GetData()
	src := t.Data().([]float32)
	if len(dst) != len(src) {
		return errors.Errorf("input %q holds %d floats, got %d", s.inputNames[idx], len(dst), len(src))
	}
	copy(dst, src)
	return nil
}

// Forward runs the session and copies each requested output into a tensor.
func (s *Session) Forward(outputs []string) ([]*tensor.Dense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "running inference")
	}

	outs := make([]*tensor.Dense, 0, len(outputs))
	for _, name := range outputs {
		idx := indexOf(s.outputNames, name)
		if idx < 0 {
			return nil, errors.Errorf("no output named %q", name)
		}
		src := s.outputs[idx].GetData()
		data := make([]float32, len(src))
		copy(data, src)

		shape64 := s.outputs[idx].GetShape()
		shape := make([]int, len(shape64))
		for i, d := range shape64 {
			shape[i] = int(d)
		}
		outs = append(outs, tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)))
	}
	return outs, nil
}

// HasInput reports whether the graph declares an input with the given name.
func (s *Session) HasInput(name string) bool {
	return indexOf(s.inputNames, name) >= 0
}

// TerminalLayerType returns the declared terminal layer type from the
// Config.
func (s *Session) TerminalLayerType() string {
	return s.terminalType
}

// OutputNames returns the configured output names, in order.
func (s *Session) OutputNames() []string {
	return append([]string(nil), s.outputNames...)
}

// Close destroys the session and its tensors. The ORT environment itself is
// process-wide and stays initialized.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	s.destroyTensors()
	return nil
}

func (s *Session) destroyTensors() {
	for _, t := range s.inputs {
		t.Destroy()
	}
	for _, t := range s.outputs {
		t.Destroy()
	}
	s.inputs = nil
	s.outputs = nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// DefaultLibraryPath guesses the onnxruntime shared library location for the
// current platform.
func DefaultLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "third_party/onnxruntime.dll"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.dylib"
		}
		return "third_party/onnxruntime_amd64.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.so"
		}
		return "third_party/onnxruntime.so"
	}
}
