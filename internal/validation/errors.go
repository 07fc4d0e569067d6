package validation

import (
	"errors"
	"strings"
)

// ErrMissingParameters is matched by every *MissingParametersError.
var ErrMissingParameters = errors.New("missing required parameters")

// MissingParametersError reports which required request fields were empty.
type MissingParametersError struct {
	Missing []string
}

func (e *MissingParametersError) Error() string {
	return ErrMissingParameters.Error() + ": " + strings.Join(e.Missing, ", ")
}

func (e *MissingParametersError) Unwrap() error {
	return ErrMissingParameters
}
