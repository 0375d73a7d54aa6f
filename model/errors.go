package model

import "github.com/pkg/errors"

// Every failure in this package reflects a precondition violation by the
// caller or an unsupported network shape; there is no retry path. Call sites
// wrap these sentinels with context, so test with errors.Is.
var (
	// ErrInputSize is returned when inference is attempted before the input
	// size has been configured.
	ErrInputSize = errors.New("input size not specified")

	// ErrOutputShape is returned when the network's outputs do not have the
	// count or rank a decoder requires.
	ErrOutputShape = errors.New("unexpected output shape")

	// ErrUnsupportedLayer is returned when the network's terminal layer type
	// is not one of the known detection output formats.
	ErrUnsupportedLayer = errors.New("unsupported output layer type")
)
