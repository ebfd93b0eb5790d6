package rfc

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of in-band failure classes a server may answer
// with. The set is part of the wire contract; adding a kind is a protocol
// change, not a local refactor.
type ErrorKind string

const (
	// ErrorKindAuthorization: the supplied secret did not match. Rejected
	// before any resolution or invocation; zero side effects.
	ErrorKindAuthorization ErrorKind = "AuthorizationError"

	// ErrorKindUnknownFunction: the (module, function) pair is absent from
	// the server's registry. Same handling tier as an authorization
	// failure, kept distinct for diagnostics.
	ErrorKindUnknownFunction ErrorKind = "UnknownFunction"

	// ErrorKindApplication: the target function executed and raised. The
	// error travels in-band so the client can tell "function failed" from
	// "peer unreachable".
	ErrorKindApplication ErrorKind = "ApplicationError"
)

// Sentinels for errors.Is matching against a RemoteError, so callers can
// branch on the failure class without unpacking the struct:
//
//	if errors.Is(err, rfc.ErrAuthorization) { ... }
var (
	ErrAuthorization   = errors.New("rfc: authorization rejected")
	ErrUnknownFunction = errors.New("rfc: unknown function")
	ErrApplication     = errors.New("rfc: remote function raised")
)

// RemoteError is an application-level failure reported by the peer: the
// request reached the server and was answered with an error_kind-bearing
// body (or a non-2xx status). The remote side did NOT execute the target
// function for Authorization/UnknownFunction kinds; for Application it did.
type RemoteError struct {
	Kind    ErrorKind
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("rfc: remote call failed (%s): %s", e.Kind, e.Message)
}

// Is maps the error kind onto the package sentinels for errors.Is.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrAuthorization:
		return e.Kind == ErrorKindAuthorization
	case ErrUnknownFunction:
		return e.Kind == ErrorKindUnknownFunction
	case ErrApplication:
		return e.Kind == ErrorKindApplication
	}
	return false
}

// TransportError is a network-level failure: connection refused, DNS failure,
// or timeout. It implies nothing about whether the remote side executed the
// call; a timed-out call may have completed on the server with its result
// simply discarded. Only this class is sensibly retried by callers.
type TransportError struct {
	Op      string // What the client was doing, e.g. "post" or "read response"
	Timeout bool   // True when the per-call deadline expired
	Err     error  // Underlying cause
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("rfc: transport timeout during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("rfc: transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
