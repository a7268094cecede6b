package hwcomp

import (
	"errors"
	"fmt"
)

// ErrFallbackToGPU marks a frame that is composed entirely by the GPU. It is
// never returned from Prepare; Assignment.Reason wraps it with the cause.
var ErrFallbackToGPU = errors.New("hwcomp: falling back to GPU composition")

// Caller errors.
var (
	ErrUnknownDisplay   = errors.New("hwcomp: unknown display")
	ErrDisplayConnected = errors.New("hwcomp: display already connected")
	ErrNilList          = errors.New("hwcomp: nil layer list")
	ErrNotInFrame       = errors.New("hwcomp: call outside ConfigBegin/ConfigDone")
	ErrInFrame          = errors.New("hwcomp: call inside ConfigBegin/ConfigDone")
	ErrNotPrepared      = errors.New("hwcomp: display not prepared")
)

// Internal outcomes of a composition pass.
var (
	// errSkip moves on to the next strategy.
	errSkip = errors.New("strategy not applicable")

	errNoLayers         = errors.New("no app layers")
	errNoStrategy       = errors.New("no strategy fits")
	errPipeExhausted    = errors.New("no pipe available")
	errRotatorExhausted = errors.New("no rotator session available")
	errPipeWidth        = errors.New("crop wider than pipe")
	errEmptyGeometry    = errors.New("empty geometry after clipping")
)

// ConfigError reports an invalid capability or policy field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("hwcomp: invalid config %s: %s", e.Field, e.Reason)
}

// layerError demotes one layer and restarts strategy selection.
type layerError struct {
	index int
	err   error
}

func (e *layerError) Error() string {
	return fmt.Sprintf("layer %d: %v", e.index, e.err)
}

func (e *layerError) Unwrap() error { return e.err }
