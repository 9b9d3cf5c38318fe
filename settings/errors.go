package settings

import (
	"errors"
	"fmt"
)

// ErrUnknownKey is returned by Form.Set for keys the form has no control for.
var ErrUnknownKey = errors.New("unknown settings key")

// ParseError reports a settings blob that is not valid TOML.
type ParseError struct {
	Source  string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing settings %s: %s", e.Source, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
