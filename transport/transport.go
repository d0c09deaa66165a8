package transport

import (
	"fmt"
	"strings"

	"github.com/moxil-shah/CMPUT404-assignment-web-client/errors"
)

// DefaultChunkSize is the receive buffer size used by RecvAll
const DefaultChunkSize = 1024

// Transport defines the interface for network transports
type Transport interface {
	// Connect establishes a connection to the specified host and port
	Connect(host string, port int) error

	// Write sends data over the connection
	// Returns the number of bytes written
	Write(buf []byte) (int, error)

	// Read receives data from the connection
	// Returns the number of bytes read
	Read(buf []byte) (int, error)

	// Close closes the connection. It is idempotent.
	Close() error
}

// Destroyer is implemented by transports that hold resources beyond the
// socket, such as an io_uring instance.
type Destroyer interface {
	Destroy() error
}

// Kind selects a transport implementation
type Kind int

const (
	KindNet Kind = iota
	KindSocket
	KindUring
	KindUringV2
)

func (k Kind) String() string {
	switch k {
	case KindNet:
		return "net"
	case KindSocket:
		return "socket"
	case KindUring:
		return "uring"
	case KindUringV2:
		return "uring-v2"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a transport name to its Kind
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "", "net":
		return KindNet, nil
	case "socket":
		return KindSocket, nil
	case "uring":
		return KindUring, nil
	case "uring-v2", "uringv2":
		return KindUringV2, nil
	}
	return 0, errors.NewInvalidArgumentError(fmt.Sprintf("unknown transport %q", name))
}

// New creates an unconnected transport of the given kind
func New(kind Kind) (Transport, error) {
	switch kind {
	case KindNet:
		return NewNetTransport(), nil
	case KindSocket:
		return NewSocketTransport(), nil
	case KindUring:
		t, err := NewUringTransport()
		if err != nil {
			return nil, err
		}
		return t, nil
	case KindUringV2:
		t, err := NewUringTransportV2()
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, errors.NewInvalidArgumentError(fmt.Sprintf("unknown transport kind %d", int(kind)))
}

// Release frees everything t holds. Destroy is preferred when available
// since it also closes the socket; its close error is passed through.
func Release(t Transport) error {
	if d, ok := t.(Destroyer); ok {
		return d.Destroy()
	}
	return t.Close()
}

// SendAll writes the whole buffer, looping over short writes.
func SendAll(t Transport, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := t.Write(buf[total:])
		total += n
		if err != nil {
			return total, asTransmissionError(err)
		}
		if n <= 0 {
			return total, errors.NewTransmissionError(
				errors.TransportErrorSocketWriteFailure,
				"write made no progress",
				nil,
			)
		}
	}
	return total, nil
}

// RecvAll reads chunkSize bytes at a time until the peer closes the
// connection. Peer close is the only termination signal.
func RecvAll(t Transport, chunkSize int) ([]byte, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	buffer := make([]byte, 0, chunkSize)
	part := make([]byte, chunkSize)

	for {
		n, err := t.Read(part)
		if n > 0 {
			buffer = append(buffer, part[:n]...)
		}
		if err != nil {
			if errors.IsConnectionClosed(err) {
				return buffer, nil
			}
			return buffer, asReceiveError(err)
		}
		if n == 0 {
			return buffer, nil
		}
	}
}

func asTransmissionError(err error) error {
	if httpErr, ok := err.(*errors.HttpError); ok && httpErr.Type == errors.ErrorTransmission {
		return httpErr
	}
	return errors.NewTransmissionError(errors.TransportErrorSocketWriteFailure, "write failed", err)
}

func asReceiveError(err error) error {
	if httpErr, ok := err.(*errors.HttpError); ok && httpErr.Type == errors.ErrorReceive {
		return httpErr
	}
	return errors.NewReceiveError(errors.TransportErrorSocketReadFailure, "read failed", err)
}
