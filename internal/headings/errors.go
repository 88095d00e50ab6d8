package headings

import (
	"errors"
	"fmt"
)

// ReadError means a document could not be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// MatchError means a dialect rule failed while scanning a document.
type MatchError struct {
	Rule string
	Err  error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.Rule, e.Err)
}

func (e *MatchError) Unwrap() error { return e.Err }

// IsReadError reports whether err is an input access failure.
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}
