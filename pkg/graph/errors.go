package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrCollaboratorUnavailable stops a run once the model could not be
	// reached within the configured attempts. The run can be resumed.
	ErrCollaboratorUnavailable = errors.New("model unavailable")
	// ErrSchema marks a model response that cannot become a record.
	ErrSchema = errors.New("invalid model response")
)

// SchemaError describes why a model response was rejected.
type SchemaError struct {
	Reason   string
	Response string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSchema, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

func schemaErrorf(response string, format string, args ...any) *SchemaError {
	return &SchemaError{Reason: fmt.Sprintf(format, args...), Response: response}
}
