package mechanism

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks a mechanism, dictionary or transport file that could not
	// be decoded or failed a load-time invariant.
	ErrParse = errors.New("mechanism: parse error")

	// ErrSpeciesNotFound means no mechanism species matched a structural
	// descriptor.
	ErrSpeciesNotFound = errors.New("mechanism: species not found")

	// ErrAmbiguousSpecies means more than one species matched a descriptor.
	ErrAmbiguousSpecies = errors.New("mechanism: ambiguous species descriptor")
)

// ParseError locates a load failure in its source file.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

func parseErr(path string, line int, format string, args ...any) error {
	return &ParseError{Path: path, Line: line, Err: fmt.Errorf(format, args...)}
}

// LookupError reports the descriptor that failed to resolve.
type LookupError struct {
	Descriptor string
	Matches    []string
	Err        error
}

func (e *LookupError) Error() string {
	if len(e.Matches) > 1 {
		return fmt.Sprintf("%v: %q matches %v", e.Err, e.Descriptor, e.Matches)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Descriptor)
}

func (e *LookupError) Unwrap() error { return e.Err }
