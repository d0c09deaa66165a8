package errors

import (
	stderrors "errors"
	"fmt"
	"io"
)

// ErrorType represents the category of error, one per request phase
type ErrorType int

const (
	ErrorNone ErrorType = iota
	ErrorResolution
	ErrorConnection
	ErrorTransmission
	ErrorReceive
	ErrorParse
	ErrorInvalidArgument
)

func (t ErrorType) String() string {
	switch t {
	case ErrorNone:
		return "none"
	case ErrorResolution:
		return "resolution"
	case ErrorConnection:
		return "connection"
	case ErrorTransmission:
		return "transmission"
	case ErrorReceive:
		return "receive"
	case ErrorParse:
		return "parse"
	case ErrorInvalidArgument:
		return "invalid argument"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// TransportError represents socket-level failure details
type TransportError int

const (
	TransportErrorNone TransportError = iota
	TransportErrorDnsFailure
	TransportErrorSocketCreateFailure
	TransportErrorSocketConnectFailure
	TransportErrorSocketWriteFailure
	TransportErrorSocketReadFailure
	TransportErrorSocketCloseFailure
	TransportErrorConnectionClosed
	TransportErrorIoUringInit
	TransportErrorIoUringSubmit
)

func (e TransportError) String() string {
	switch e {
	case TransportErrorNone:
		return "none"
	case TransportErrorDnsFailure:
		return "DNS lookup failed"
	case TransportErrorSocketCreateFailure:
		return "socket creation failed"
	case TransportErrorSocketConnectFailure:
		return "socket connection failed"
	case TransportErrorSocketWriteFailure:
		return "socket write failed"
	case TransportErrorSocketReadFailure:
		return "socket read failed"
	case TransportErrorSocketCloseFailure:
		return "socket close failed"
	case TransportErrorConnectionClosed:
		return "connection closed"
	case TransportErrorIoUringInit:
		return "io_uring setup failed"
	case TransportErrorIoUringSubmit:
		return "io_uring submit failed"
	default:
		return fmt.Sprintf("unknown transport error: %d", int(e))
	}
}

// ProtocolError represents URL and message-level failure details
type ProtocolError int

const (
	ProtocolErrorNone ProtocolError = iota
	ProtocolErrorInvalidURL
	ProtocolErrorMissingHost
	ProtocolErrorInvalidPort
	ProtocolErrorEmptyResponse
	ProtocolErrorInvalidStatusLine
	ProtocolErrorInvalidStatusCode
	ProtocolErrorMissingHeaderTerminator
)

func (e ProtocolError) String() string {
	switch e {
	case ProtocolErrorNone:
		return "none"
	case ProtocolErrorInvalidURL:
		return "invalid URL"
	case ProtocolErrorMissingHost:
		return "missing host"
	case ProtocolErrorInvalidPort:
		return "invalid port"
	case ProtocolErrorEmptyResponse:
		return "empty response"
	case ProtocolErrorInvalidStatusLine:
		return "invalid status line"
	case ProtocolErrorInvalidStatusCode:
		return "invalid status code"
	case ProtocolErrorMissingHeaderTerminator:
		return "missing header terminator"
	default:
		return fmt.Sprintf("unknown protocol error: %d", int(e))
	}
}

// HttpError is the main error type for the HTTP client
type HttpError struct {
	Type          ErrorType
	TransportErr  TransportError
	ProtocolErr   ProtocolError
	Message       string
	UnderlyingErr error
}

// Sentinels for errors.Is; each matches every HttpError of its category.
var (
	ErrResolution      = &HttpError{Type: ErrorResolution}
	ErrConnection      = &HttpError{Type: ErrorConnection}
	ErrTransmission    = &HttpError{Type: ErrorTransmission}
	ErrReceive         = &HttpError{Type: ErrorReceive}
	ErrParse           = &HttpError{Type: ErrorParse}
	ErrInvalidArgument = &HttpError{Type: ErrorInvalidArgument}
)

// Error implements the error interface
func (e *HttpError) Error() string {
	if e == nil {
		return "no error"
	}

	typeStr := e.Type.String() + " error"
	switch {
	case e.TransportErr != TransportErrorNone:
		typeStr = fmt.Sprintf("%s (%s)", typeStr, e.TransportErr)
	case e.ProtocolErr != ProtocolErrorNone:
		typeStr = fmt.Sprintf("%s (%s)", typeStr, e.ProtocolErr)
	}

	if e.Message != "" {
		typeStr = fmt.Sprintf("%s: %s", typeStr, e.Message)
	}

	if e.UnderlyingErr != nil {
		return fmt.Sprintf("%s (caused by: %v)", typeStr, e.UnderlyingErr)
	}

	return typeStr
}

// Unwrap returns the underlying error for error chain support
func (e *HttpError) Unwrap() error {
	return e.UnderlyingErr
}

// Is reports whether target is an HttpError of the same category. Detail
// codes set on target must match too; zero details act as wildcards.
func (e *HttpError) Is(target error) bool {
	t, ok := target.(*HttpError)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Type != e.Type {
		return false
	}
	if t.TransportErr != TransportErrorNone && t.TransportErr != e.TransportErr {
		return false
	}
	if t.ProtocolErr != ProtocolErrorNone && t.ProtocolErr != e.ProtocolErr {
		return false
	}
	return true
}

// IsConnectionClosed reports whether err signals an orderly close by the peer.
func IsConnectionClosed(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, io.EOF) {
		return true
	}
	var httpErr *HttpError
	if stderrors.As(err, &httpErr) {
		return httpErr.TransportErr == TransportErrorConnectionClosed
	}
	return false
}

// NewResolutionError creates an error for a URL that cannot yield host and port
func NewResolutionError(err ProtocolError, message string, underlying error) *HttpError {
	return &HttpError{
		Type:          ErrorResolution,
		ProtocolErr:   err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewConnectionError creates an error for a failed DNS lookup or handshake
func NewConnectionError(err TransportError, message string, underlying error) *HttpError {
	return &HttpError{
		Type:          ErrorConnection,
		TransportErr:  err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewTransmissionError creates an error for a failed send
func NewTransmissionError(err TransportError, message string, underlying error) *HttpError {
	return &HttpError{
		Type:          ErrorTransmission,
		TransportErr:  err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewReceiveError creates an error for a failed receive
func NewReceiveError(err TransportError, message string, underlying error) *HttpError {
	return &HttpError{
		Type:          ErrorReceive,
		TransportErr:  err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewParseError creates a new parse error
func NewParseError(err ProtocolError, message string) *HttpError {
	return &HttpError{
		Type:        ErrorParse,
		ProtocolErr: err,
		Message:     message,
	}
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message string) *HttpError {
	return &HttpError{
		Type:    ErrorInvalidArgument,
		Message: message,
	}
}
