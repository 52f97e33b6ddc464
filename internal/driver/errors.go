package driver

import "fmt"

// InvalidInputError reports a collection that is neither a list of
// conversations nor an object with a conversations field. No output is
// produced when it is returned.
type InvalidInputError struct {
	Source string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid conversation collection: %v", e.Err)
	}
	return fmt.Sprintf("invalid conversation collection %s: %v", e.Source, e.Err)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// OutputCollisionError reports a batch input whose result file name is
// already taken by an earlier input with the same base name.
type OutputCollisionError struct {
	Path   string
	Other  string
	Output string
}

func (e *OutputCollisionError) Error() string {
	return fmt.Sprintf("%s: output %s already produced by %s", e.Path, e.Output, e.Other)
}
