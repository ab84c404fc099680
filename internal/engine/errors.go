package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateName is returned when registering a backend under a name
	// that is already taken.
	ErrDuplicateName = errors.New("engine name already registered")

	// ErrUnknownEngine is returned when resolving a name nobody registered.
	ErrUnknownEngine = errors.New("unknown engine")
)

// SynthError wraps a backend failure with the engine name and the text that
// triggered it.
type SynthError struct {
	Engine string
	Text   string
	Err    error
}

func (e *SynthError) Error() string {
	text := e.Text
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	return fmt.Sprintf("engine %s: synthesis of %q failed: %v", e.Engine, text, e.Err)
}

func (e *SynthError) Unwrap() error { return e.Err }
