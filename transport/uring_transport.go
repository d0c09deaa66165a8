package transport

import (
	"fmt"
	"syscall"

	"github.com/iceber/iouring-go"

	"github.com/moxil-shah/CMPUT404-assignment-web-client/errors"
)

// uringEntries is the submission queue depth of the io_uring transports
const uringEntries = 32

// UringTransport implements Transport with connect, send and recv all
// submitted through io_uring.
type UringTransport struct {
	iour *iouring.IOURing
	fd   int
}

// NewUringTransport creates a new transport with its own io_uring instance
func NewUringTransport() (*UringTransport, error) {
	iour, err := iouring.New(uringEntries)
	if err != nil {
		return nil, errors.NewConnectionError(
			errors.TransportErrorIoUringInit,
			"failed to initialize io_uring",
			err,
		)
	}

	return &UringTransport{
		iour: iour,
		fd:   -1,
	}, nil
}

// Connect establishes a TCP connection using io_uring
func (t *UringTransport) Connect(host string, port int) error {
	if t.fd >= 0 {
		return errors.NewConnectionError(errors.TransportErrorSocketConnectFailure, "already connected", nil)
	}

	tcpAddr, addr, err := resolveTCPAddr(host, port)
	if err != nil {
		return err
	}
	domain, sa := syscallSockaddr(tcpAddr)

	fd, err := syscall.Socket(domain, syscall.SOCK_STREAM|syscall.SOCK_CLOEXEC, 0)
	if err != nil {
		return errors.NewConnectionError(errors.TransportErrorSocketCreateFailure, "failed to create socket", err)
	}

	// Set TCP_NODELAY
	if err := syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1); err != nil {
		syscall.Close(fd)
		return errors.NewConnectionError(errors.TransportErrorSocketCreateFailure, "failed to set TCP_NODELAY", err)
	}

	prep, err := iouring.Connect(fd, sa)
	if err != nil {
		syscall.Close(fd)
		return errors.NewConnectionError(errors.TransportErrorSocketConnectFailure, "failed to prepare connect request", err)
	}

	ch := make(chan iouring.Result, 1)
	if _, err := t.iour.SubmitRequest(prep, ch); err != nil {
		syscall.Close(fd)
		return errors.NewConnectionError(errors.TransportErrorIoUringSubmit, "failed to submit connect request", err)
	}

	// connect completes with no value, only an error
	result := <-ch
	if err := result.Err(); err != nil {
		syscall.Close(fd)
		return errors.NewConnectionError(
			errors.TransportErrorSocketConnectFailure,
			fmt.Sprintf("failed to connect to %s", addr),
			err,
		)
	}

	t.fd = fd
	return nil
}

// Write submits one send; SendAll loops over short sends
func (t *UringTransport) Write(buf []byte) (int, error) {
	if t.fd < 0 {
		return 0, errors.NewTransmissionError(errors.TransportErrorSocketWriteFailure, "not connected", nil)
	}

	ch := make(chan iouring.Result, 1)
	if _, err := t.iour.SubmitRequest(iouring.Send(t.fd, buf, 0), ch); err != nil {
		return 0, errors.NewTransmissionError(errors.TransportErrorIoUringSubmit, "failed to submit send request", err)
	}

	result := <-ch
	n, err := result.ReturnInt()
	if err != nil {
		return 0, errors.NewTransmissionError(errors.TransportErrorSocketWriteFailure, "send failed", err)
	}
	if n <= 0 && len(buf) > 0 {
		return 0, errors.NewTransmissionError(errors.TransportErrorConnectionClosed, "connection closed during send", nil)
	}

	return n, nil
}

// Read submits one recv. A zero-length completion means the peer closed.
func (t *UringTransport) Read(buf []byte) (int, error) {
	if t.fd < 0 {
		return 0, errors.NewReceiveError(errors.TransportErrorSocketReadFailure, "not connected", nil)
	}

	ch := make(chan iouring.Result, 1)
	if _, err := t.iour.SubmitRequest(iouring.Recv(t.fd, buf, 0), ch); err != nil {
		return 0, errors.NewReceiveError(errors.TransportErrorIoUringSubmit, "failed to submit recv request", err)
	}

	result := <-ch
	n, err := result.ReturnInt()
	if err != nil {
		return 0, errors.NewReceiveError(errors.TransportErrorSocketReadFailure, "recv failed", err)
	}

	if n == 0 && len(buf) > 0 {
		return 0, errors.NewReceiveError(errors.TransportErrorConnectionClosed, "connection closed by peer", nil)
	}

	return n, nil
}

// Close closes the socket but keeps the ring
func (t *UringTransport) Close() error {
	if t.fd < 0 {
		return nil // Already closed or never connected
	}

	fd := t.fd
	t.fd = -1
	if err := syscall.Close(fd); err != nil {
		return errors.NewConnectionError(errors.TransportErrorSocketCloseFailure, "failed to close socket", err)
	}

	return nil
}

// Destroy closes the socket and the io_uring instance. The socket close
// error, if any, is returned.
func (t *UringTransport) Destroy() error {
	err := t.Close()
	if t.iour != nil {
		t.iour.Close()
		t.iour = nil
	}
	return err
}
