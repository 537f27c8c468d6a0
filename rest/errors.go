package rest

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration errors. All of them surface before the server starts
// serving; none of them can reach a live connection.
var (
	ErrBufferSize     = errors.New("rest: buffer size must be positive")
	ErrRouteExists    = errors.New("rest: route already registered")
	ErrRouteAmbiguous = errors.New("rest: route overlaps an existing route")
	ErrBadTemplate    = errors.New("rest: malformed path template")
	ErrServerStarted  = errors.New("rest: server already started")
)

// protocolError is a request failure with a well-defined HTTP answer.
// The connection handler turns it into a response; reusable marks
// whether the connection may serve further requests afterwards (only
// possible when the failure left the stream in a known state).
type protocolError struct {
	status   int
	message  string
	allow    []string
	reusable bool
}

func (e *protocolError) Error() string {
	return fmt.Sprintf("rest: %d %s", e.status, strings.TrimSpace(e.message))
}

func errNotHTTPConform() *protocolError {
	return &protocolError{status: StatusBadRequest, message: "Not HTTP conform request\r\n"}
}

func errUnsupportedVersion(version string) *protocolError {
	return &protocolError{
		status:  StatusHTTPVersionNotSupported,
		message: fmt.Sprintf("Version %s not supported\r\n", version),
	}
}

func errMethodNotImplemented(method string) *protocolError {
	return &protocolError{
		status:  StatusNotImplemented,
		message: fmt.Sprintf("Method %s not implemented\r\n", method),
	}
}

func errBadHeader() *protocolError {
	return &protocolError{status: StatusBadRequest, message: "Invalid header data\r\n"}
}

func errInvalidLength() *protocolError {
	return &protocolError{status: StatusLengthRequired, message: "Length invalid\r\n"}
}

func errURITooLong() *protocolError {
	return &protocolError{status: StatusRequestURITooLong, message: "Request line too long\r\n"}
}

func errHeaderTooLarge() *protocolError {
	return &protocolError{status: StatusRequestHeaderFieldsTooLarge, message: "Header block too large\r\n"}
}

func errBrokenChunk() *protocolError {
	return &protocolError{status: StatusBadRequest, message: "Invalid chunk encoding\r\n"}
}

// Routing misses keep the connection reusable: the head was parsed
// cleanly and the body can still be drained.

func errNotFound(path string) *protocolError {
	return &protocolError{
		status:   StatusNotFound,
		message:  fmt.Sprintf("Route %s does not exist\r\n", path),
		reusable: true,
	}
}

func errMethodNotAllowed(method Verb, path string, allow []string) *protocolError {
	return &protocolError{
		status:   StatusMethodNotAllowed,
		message:  fmt.Sprintf("Method %s not allowed for route %s\r\n", method, path),
		allow:    allow,
		reusable: true,
	}
}
