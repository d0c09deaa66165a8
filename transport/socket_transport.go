package transport

import (
	"fmt"
	"net"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/moxil-shah/CMPUT404-assignment-web-client/errors"
)

// SocketTransport implements Transport on a plain blocking stream socket
// driven through raw system calls.
type SocketTransport struct {
	fd int
}

// NewSocketTransport creates an unconnected SocketTransport
func NewSocketTransport() *SocketTransport {
	return &SocketTransport{fd: -1}
}

// Connect resolves host and performs a blocking connect
func (t *SocketTransport) Connect(host string, port int) error {
	if t.fd >= 0 {
		return errors.NewConnectionError(errors.TransportErrorSocketConnectFailure, "already connected", nil)
	}

	tcpAddr, addr, err := resolveTCPAddr(host, port)
	if err != nil {
		return err
	}

	domain := unix.AF_INET
	var sa unix.Sockaddr
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		sa4 := &unix.SockaddrInet4{Port: tcpAddr.Port}
		copy(sa4.Addr[:], ip4)
		sa = sa4
	} else {
		domain = unix.AF_INET6
		sa6 := &unix.SockaddrInet6{Port: tcpAddr.Port}
		copy(sa6.Addr[:], tcpAddr.IP.To16())
		sa = sa6
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return errors.NewConnectionError(errors.TransportErrorSocketCreateFailure, "failed to create socket", err)
	}

	for {
		err = unix.Connect(fd, sa)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		unix.Close(fd)
		return errors.NewConnectionError(
			errors.TransportErrorSocketConnectFailure,
			fmt.Sprintf("failed to connect to %s", addr),
			err,
		)
	}

	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		unix.Close(fd)
		return errors.NewConnectionError(errors.TransportErrorSocketCreateFailure, "failed to set TCP_NODELAY", err)
	}

	t.fd = fd
	return nil
}

// Write performs a single write(2); SendAll handles short writes
func (t *SocketTransport) Write(buf []byte) (int, error) {
	if t.fd < 0 {
		return 0, errors.NewTransmissionError(errors.TransportErrorSocketWriteFailure, "not connected", nil)
	}

	for {
		n, err := unix.Write(t.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if err == unix.EPIPE || err == unix.ECONNRESET {
				return 0, errors.NewTransmissionError(errors.TransportErrorConnectionClosed, "peer went away", err)
			}
			return 0, errors.NewTransmissionError(errors.TransportErrorSocketWriteFailure, "write failed", err)
		}
		return n, nil
	}
}

// Read performs a single read(2). A zero-length read is reported as
// ConnectionClosed.
func (t *SocketTransport) Read(buf []byte) (int, error) {
	if t.fd < 0 {
		return 0, errors.NewReceiveError(errors.TransportErrorSocketReadFailure, "not connected", nil)
	}

	for {
		n, err := unix.Read(t.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, errors.NewReceiveError(errors.TransportErrorSocketReadFailure, "read failed", err)
		}
		if n == 0 && len(buf) > 0 {
			return 0, errors.NewReceiveError(errors.TransportErrorConnectionClosed, "connection closed by peer", nil)
		}
		return n, nil
	}
}

// Close closes the socket
func (t *SocketTransport) Close() error {
	if t.fd < 0 {
		return nil
	}

	fd := t.fd
	t.fd = -1
	if err := unix.Close(fd); err != nil {
		return errors.NewConnectionError(errors.TransportErrorSocketCloseFailure, "failed to close socket", err)
	}
	return nil
}

// resolveTCPAddr looks up host and reports failures as DnsFailure.
func resolveTCPAddr(host string, port int) (*net.TCPAddr, string, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, addr, errors.NewConnectionError(
			errors.TransportErrorDnsFailure,
			fmt.Sprintf("failed to resolve %s", addr),
			err,
		)
	}
	return tcpAddr, addr, nil
}

// syscallSockaddr converts a resolved address for the io_uring transports.
func syscallSockaddr(tcpAddr *net.TCPAddr) (int, syscall.Sockaddr) {
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		sa4 := &syscall.SockaddrInet4{Port: tcpAddr.Port}
		copy(sa4.Addr[:], ip4)
		return syscall.AF_INET, sa4
	}
	sa6 := &syscall.SockaddrInet6{Port: tcpAddr.Port}
	copy(sa6.Addr[:], tcpAddr.IP.To16())
	return syscall.AF_INET6, sa6
}
