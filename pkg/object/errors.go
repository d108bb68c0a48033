package object

import "errors"

var (
	// ErrNotFound reports that no object exists at the expected location,
	// in any backend.
	ErrNotFound = errors.New("object not found")
	// ErrMalformedObject reports a corrupt compression stream, envelope or
	// pack structure.
	ErrMalformedObject = errors.New("malformed object")
	// ErrUnsupported reports a pack or index format version this engine
	// does not read.
	ErrUnsupported = errors.New("unsupported format")
)
