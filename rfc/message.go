// Package rfc defines the wire data model for remote function calls.
//
// A CallRequest is the "envelope" for a single forwarded invocation: which
// function to run, its arguments, and the shared secret authenticating the
// caller. A CallResponse carries either a result or an in-band error, so the
// wire never needs a language-specific exception representation.
//
// Wire format is JSON over a single HTTP POST endpoint. Values must be
// JSON-serializable: primitives, sequences, and string-keyed mappings thereof.
// Binary blobs, open handles, and live references are not supported; callers
// pre-serialize such data (e.g. base64) before handing it to the dispatcher.
package rfc

import "fmt"

// DefaultPath is the URL path the RFC server mounts and clients POST to.
const DefaultPath = "/rfc"

// CallRequest describes one remote invocation.
//
// Module and Function together name the target operation; the pair must match
// an entry in the receiving side's startup-built registry. Secret is the
// shared static credential, compared for exact equality on the server. That
// is adequate only for trusted development sandboxes, not a production-grade
// security scheme.
type CallRequest struct {
	Module   string         `json:"module"`        // Dotted operation namespace, e.g. "calendar"
	Function string         `json:"function_name"` // Function name within the module, e.g. "create_event"
	Args     []any          `json:"args"`          // Positional arguments, order-preserving
	Kwargs   map[string]any `json:"kwargs"`        // Keyword arguments
	Secret   string         `json:"secret"`        // Shared secret; filled in by the client, never logged
}

// CallResponse is the one-to-one answer to a CallRequest.
//
// Exactly one of the two shapes is populated:
//   - success: Result set (possibly null), ErrorKind empty
//   - failure: ErrorKind and ErrorMessage set, Result absent
//
// Both shapes travel as HTTP 200; transport failures have no wire
// representation and surface only as client-side errors.
type CallResponse struct {
	Result       any       `json:"result,omitempty"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Validate checks that the request names a target at all. It does not check
// registry membership (that is the server's job), only that the envelope is
// structurally usable.
func (r *CallRequest) Validate() error {
	if r.Module == "" {
		return fmt.Errorf("rfc: call request missing module name")
	}
	if r.Function == "" {
		return fmt.Errorf("rfc: call request missing function name")
	}
	return nil
}

// Failed reports whether the response carries an in-band error.
func (r *CallResponse) Failed() bool {
	return r.ErrorKind != ""
}

// Err converts an in-band failure into the corresponding typed error.
// Returns nil for a success response.
func (r *CallResponse) Err() error {
	if !r.Failed() {
		return nil
	}
	return &RemoteError{Kind: r.ErrorKind, Message: r.ErrorMessage}
}

// NewResult builds a success response.
func NewResult(v any) *CallResponse {
	return &CallResponse{Result: v}
}

// NewError builds an in-band failure response.
func NewError(kind ErrorKind, message string) *CallResponse {
	return &CallResponse{ErrorKind: kind, ErrorMessage: message}
}
