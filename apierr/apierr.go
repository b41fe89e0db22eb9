// Package apierr holds the client-facing error taxonomy. Query parameter
// failures carry the parameter name and the offending value so every 400
// names what was wrong, not just that something was.
package apierr

import "fmt"

// ParamError is a malformed query parameter. Maps to HTTP 400.
type ParamError struct {
	Param  string
	Value  string
	Detail string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid value %q for parameter %q: %s", e.Value, e.Param, e.Detail)
}

func Param(param, value, detail string) *ParamError {
	return &ParamError{Param: param, Value: value, Detail: detail}
}
