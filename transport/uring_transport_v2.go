package transport

import (
	"fmt"
	"os"
	"syscall"

	"github.com/godzie44/go-uring/uring"

	"github.com/moxil-shah/CMPUT404-assignment-web-client/errors"
)

// UringTransportV2 implements Transport on godzie44/go-uring. Connect is a
// blocking syscall; reads and writes go through the ring.
type UringTransportV2 struct {
	ring *uring.Ring
	file *os.File
}

// NewUringTransportV2 creates a new transport with its own ring
func NewUringTransportV2() (*UringTransportV2, error) {
	ring, err := uring.New(uringEntries)
	if err != nil {
		return nil, errors.NewConnectionError(
			errors.TransportErrorIoUringInit,
			"failed to initialize io_uring",
			err,
		)
	}

	return &UringTransportV2{ring: ring}, nil
}

// Connect establishes a TCP connection
func (t *UringTransportV2) Connect(host string, port int) error {
	if t.file != nil {
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

	if err := syscall.Connect(fd, sa); err != nil {
		syscall.Close(fd)
		return errors.NewConnectionError(
			errors.TransportErrorSocketConnectFailure,
			fmt.Sprintf("failed to connect to %s", addr),
			err,
		)
	}

	// Set TCP_NODELAY
	if err := syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1); err != nil {
		syscall.Close(fd)
		return errors.NewConnectionError(errors.TransportErrorSocketCreateFailure, "failed to set TCP_NODELAY", err)
	}

	t.file = os.NewFile(uintptr(fd), "socket")
	return nil
}

// complete queues one SQE, submits it and waits for its completion.
// Stream sockets take no offset, so callers always pass 0.
func (t *UringTransportV2) complete(queue func(ring *uring.Ring) error) (int, error) {
	if err := queue(t.ring); err != nil {
		return 0, err
	}

	if _, err := t.ring.Submit(); err != nil {
		return 0, err
	}

	cqe, err := t.ring.WaitCQEvents(1)
	if err != nil {
		return 0, err
	}
	defer t.ring.SeenCQE(cqe)

	if err := cqe.Error(); err != nil {
		return 0, err
	}
	return int(cqe.Res), nil
}

// Write submits one write; SendAll loops over short writes
func (t *UringTransportV2) Write(buf []byte) (int, error) {
	if t.file == nil {
		return 0, errors.NewTransmissionError(errors.TransportErrorSocketWriteFailure, "not connected", nil)
	}

	n, err := t.complete(func(ring *uring.Ring) error {
		return ring.QueueSQE(uring.Write(t.file.Fd(), buf, 0), 0, 0)
	})
	if err != nil {
		return 0, errors.NewTransmissionError(errors.TransportErrorSocketWriteFailure, "write operation failed", err)
	}
	if n <= 0 && len(buf) > 0 {
		return 0, errors.NewTransmissionError(errors.TransportErrorConnectionClosed, "connection closed during write", nil)
	}

	return n, nil
}

// Read submits one read. A zero-length completion means the peer closed.
func (t *UringTransportV2) Read(buf []byte) (int, error) {
	if t.file == nil {
		return 0, errors.NewReceiveError(errors.TransportErrorSocketReadFailure, "not connected", nil)
	}

	n, err := t.complete(func(ring *uring.Ring) error {
		return ring.QueueSQE(uring.Read(t.file.Fd(), buf, 0), 0, 0)
	})
	if err != nil {
		return 0, errors.NewReceiveError(errors.TransportErrorSocketReadFailure, "read operation failed", err)
	}

	if n == 0 && len(buf) > 0 {
		return 0, errors.NewReceiveError(errors.TransportErrorConnectionClosed, "connection closed by peer", nil)
	}

	return n, nil
}

// Close closes the socket but keeps the ring
func (t *UringTransportV2) Close() error {
	if t.file == nil {
		return nil
	}

	f := t.file
	t.file = nil
	if err := f.Close(); err != nil {
		return errors.NewConnectionError(errors.TransportErrorSocketCloseFailure, "failed to close socket", err)
	}
	return nil
}

// Destroy closes the socket and the ring, returning the socket close error
func (t *UringTransportV2) Destroy() error {
	err := t.Close()
	if t.ring != nil {
		t.ring.Close()
		t.ring = nil
	}
	return err
}
