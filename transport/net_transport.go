package transport

import (
	stderrors "errors"
	"io"
	"net"
	"strconv"
	"syscall"

	"github.com/moxil-shah/CMPUT404-assignment-web-client/errors"
)

// NetTransport implements the Transport interface on a net.Conn TCP stream
type NetTransport struct {
	conn net.Conn
}

// NewNetTransport creates a new NetTransport instance
func NewNetTransport() *NetTransport {
	return &NetTransport{
		conn: nil,
	}
}

// Connect establishes a TCP connection to the specified host and port
func (t *NetTransport) Connect(host string, port int) error {
	if t.conn != nil {
		return errors.NewConnectionError(errors.TransportErrorSocketConnectFailure, "already connected", nil)
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		// Classify network errors using type assertions
		var dnsErr *net.DNSError
		if stderrors.As(err, &dnsErr) {
			return errors.NewConnectionError(errors.TransportErrorDnsFailure, "failed to resolve "+addr, err)
		}
		return errors.NewConnectionError(errors.TransportErrorSocketConnectFailure, "failed to connect to "+addr, err)
	}

	// Set TCP_NODELAY to disable Nagle's algorithm for lower latency
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			conn.Close()
			return errors.NewConnectionError(errors.TransportErrorSocketCreateFailure, "failed to set TCP_NODELAY", err)
		}
	}

	t.conn = conn
	return nil
}

// Write sends data over the TCP connection
func (t *NetTransport) Write(buf []byte) (int, error) {
	if t.conn == nil {
		return 0, errors.NewTransmissionError(errors.TransportErrorSocketWriteFailure, "not connected", nil)
	}

	n, err := t.conn.Write(buf)
	if err != nil {
		// Check for broken pipe or connection reset
		if stderrors.Is(err, syscall.EPIPE) || stderrors.Is(err, syscall.ECONNRESET) {
			return n, errors.NewTransmissionError(errors.TransportErrorConnectionClosed, "peer went away", err)
		}
		return n, errors.NewTransmissionError(errors.TransportErrorSocketWriteFailure, "write failed", err)
	}

	return n, nil
}

// Read receives data from the TCP connection
func (t *NetTransport) Read(buf []byte) (int, error) {
	if t.conn == nil {
		return 0, errors.NewReceiveError(errors.TransportErrorSocketReadFailure, "not connected", nil)
	}

	n, err := t.conn.Read(buf)
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return n, errors.NewReceiveError(errors.TransportErrorConnectionClosed, "connection closed by peer", err)
		}
		return n, errors.NewReceiveError(errors.TransportErrorSocketReadFailure, "read failed", err)
	}

	return n, nil
}

// Close closes the TCP connection
func (t *NetTransport) Close() error {
	if t.conn == nil {
		return nil // Idempotent close
	}

	err := t.conn.Close()
	t.conn = nil

	if err != nil {
		return errors.NewConnectionError(errors.TransportErrorSocketCloseFailure, "close failed", err)
	}

	return nil
}
