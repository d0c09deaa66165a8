package client

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"net"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"

	"golang.org/x/net/nettest"

	httperrors "github.com/moxil-shah/CMPUT404-assignment-web-client/errors"
	"github.com/moxil-shah/CMPUT404-assignment-web-client/internal/obs"
	"github.com/moxil-shah/CMPUT404-assignment-web-client/protocol"
	"github.com/moxil-shah/CMPUT404-assignment-web-client/transport"
)

// setupTestServer accepts up to connections clients, reads one request each, hands
// it to handler and then closes the connection.
func setupTestServer(t *testing.T, connections int, handler func(net.Conn, string, string)) (string, int, func()) {
	t.Helper()

	listener, err := nettest.NewLocalListener("tcp")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}

	addr := listener.Addr().(*net.TCPAddr)

	var wg sync.WaitGroup
	go func() {
		for i := 0; i < connections; i++ {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer conn.Close()
				head, body := readRequest(conn)
				handler(conn, head, body)
			}()
		}
	}()

	cleanup := func() {
		listener.Close()
		wg.Wait()
	}

	return addr.IP.String(), addr.Port, cleanup
}

func readRequest(conn net.Conn) (string, string) {
	r := bufio.NewReader(conn)
	var head strings.Builder
	length := 0
	for {
		line, err := r.ReadString('\n')
		head.WriteString(line)
		if err != nil || line == "\r\n" {
			break
		}
		if v, ok := strings.CutPrefix(line, "Content-Length: "); ok {
			length, _ = strconv.Atoi(strings.TrimSpace(v))
		}
	}
	body := make([]byte, length)
	io.ReadFull(r, body)
	return head.String(), string(body)
}

// recordingTransport replays a canned response in tiny chunks and counts
// lifecycle calls.
type recordingTransport struct {
	response   []byte
	chunk      int
	connectErr error
	writeErr   error
	readErr    error

	connects int
	closes   int
	written  bytes.Buffer
}

func (r *recordingTransport) Connect(host string, port int) error {
	r.connects++
	return r.connectErr
}

func (r *recordingTransport) Write(buf []byte) (int, error) {
	if r.writeErr != nil {
		return 0, r.writeErr
	}
	return r.written.Write(buf)
}

func (r *recordingTransport) Read(buf []byte) (int, error) {
	if len(r.response) == 0 {
		if r.readErr != nil {
			return 0, r.readErr
		}
		return 0, io.EOF
	}
	n := r.chunk
	if n <= 0 || n > len(r.response) {
		n = len(r.response)
	}
	n = copy(buf, r.response[:n])
	r.response = r.response[n:]
	return n, nil
}

func (r *recordingTransport) Close() error {
	r.closes++
	return nil
}

func clientFor(rt *recordingTransport, opts ...Option) *HttpClient {
	opts = append([]Option{WithTransportFactory(func() (transport.Transport, error) { return rt, nil })}, opts...)
	return NewHttpClient(opts...)
}

type recordingMeter struct {
	mu       sync.Mutex
	counters map[string]float64
	outcomes []string
}

func (m *recordingMeter) Counter(name string, value float64, labels ...obs.Label) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]float64{}
	}
	m.counters[name] += value
	for _, l := range labels {
		if l.Key == "outcome" {
			m.outcomes = append(m.outcomes, l.Value)
		}
	}
}

func (m *recordingMeter) Histogram(name string, value float64, labels ...obs.Label) {}

func TestHttpClient_Get(t *testing.T) {
	requests := make(chan string, 1)
	host, port, cleanup := setupTestServer(t, 1, func(conn net.Conn, head, body string) {
		requests <- head
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nHello, World!"))
	})
	defer cleanup()

	client := NewHttpClient()
	resp, err := client.Get(fmt.Sprintf("http://%s:%d/test", host, port), protocol.Args{{Key: "ignored", Value: "yes"}})
	if err != nil {
		t.Fatalf("GET request failed: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Expected status code 200, got %d", resp.StatusCode)
	}
	if resp.Body != "Hello, World!" {
		t.Errorf("Expected body %q, got %q", "Hello, World!", resp.Body)
	}
	if resp.Header != "HTTP/1.1 200 OK\r\nContent-Type: text/plain" {
		t.Errorf("Unexpected header block %q", resp.Header)
	}

	want := "GET /test HTTP/1.1\r\nHost: " + host + "\r\nConnection: close\r\n\r\n"
	if got := <-requests; got != want {
		t.Errorf("Server got %q, want %q", got, want)
	}
}

func TestHttpClient_Post(t *testing.T) {
	bodies := make(chan string, 1)
	host, port, cleanup := setupTestServer(t, 1, func(conn net.Conn, head, body string) {
		bodies <- body
		conn.Write([]byte("HTTP/1.1 201 Created\r\n\r\nCreated"))
	})
	defer cleanup()

	args := protocol.Args{{Key: "a", Value: "1"}, {Key: "b", Value: "two words"}}
	resp, err := NewHttpClient().Post(fmt.Sprintf("http://%s:%d/create", host, port), args)
	if err != nil {
		t.Fatalf("POST request failed: %v", err)
	}

	if resp.StatusCode != 201 {
		t.Errorf("Expected status code 201, got %d", resp.StatusCode)
	}
	if resp.Body != "Created" {
		t.Errorf("Expected body %q, got %q", "Created", resp.Body)
	}
	if got := <-bodies; got != "a=1&b=two+words" {
		t.Errorf("Server got body %q", got)
	}
}

func TestHttpClient_TinyChunksAssembleFullResponse(t *testing.T) {
	for chunk := 1; chunk <= 3; chunk++ {
		t.Run(strconv.Itoa(chunk), func(t *testing.T) {
			rt := &recordingTransport{
				response: []byte("HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\nhello"),
				chunk:    chunk,
			}

			resp, err := clientFor(rt).Get("http://example.org/", nil)
			if err != nil {
				t.Fatalf("GET failed: %v", err)
			}
			if resp.StatusCode != 200 || resp.Body != "hello" {
				t.Errorf("Unexpected response %+v", resp)
			}
			if rt.closes != 1 {
				t.Errorf("Expected exactly 1 close, got %d", rt.closes)
			}
			if got := rt.written.String(); got != "GET / HTTP/1.1\r\nHost: example.org\r\nConnection: close\r\n\r\n" {
				t.Errorf("Unexpected request %q", got)
			}
		})
	}
}

func TestHttpClient_CloseOncePerRequest(t *testing.T) {
	tests := []struct {
		name      string
		rt        *recordingTransport
		wantErr   *httperrors.HttpError
		wantFinal []State
	}{
		{
			name:      "success",
			rt:        &recordingTransport{response: []byte("HTTP/1.1 200 OK\r\n\r\n"), chunk: 2},
			wantFinal: []State{StateParsing, StateClosed},
		},
		{
			name:      "connect failure",
			rt:        &recordingTransport{connectErr: httperrors.NewConnectionError(httperrors.TransportErrorSocketConnectFailure, "refused", nil)},
			wantErr:   httperrors.ErrConnection,
			wantFinal: []State{StateConnecting, StateConnectFailed, StateClosed},
		},
		{
			name:      "send failure",
			rt:        &recordingTransport{writeErr: io.ErrClosedPipe},
			wantErr:   httperrors.ErrTransmission,
			wantFinal: []State{StateSending, StateSendFailed, StateClosed},
		},
		{
			name: "receive failure",
			rt: &recordingTransport{
				response: []byte("HTTP/1.1 2"),
				chunk:    3,
				readErr:  httperrors.NewReceiveError(httperrors.TransportErrorSocketReadFailure, "reset", nil),
			},
			wantErr:   httperrors.ErrReceive,
			wantFinal: []State{StateReceiving, StateReceiveFailed, StateClosed},
		},
		{
			name:      "parse failure",
			rt:        &recordingTransport{response: []byte("HTTP/1.1 200 OK\r\nno terminator"), chunk: 1},
			wantErr:   httperrors.ErrParse,
			wantFinal: []State{StateParsing, StateParseFailed, StateClosed},
		},
		{
			name:      "empty response",
			rt:        &recordingTransport{},
			wantErr:   httperrors.ErrParse,
			wantFinal: []State{StateParsing, StateParseFailed, StateClosed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var states []State
			client := clientFor(tt.rt, WithStateHook(func(s State) { states = append(states, s) }))

			resp, err := client.Post("http://example.org/form", protocol.Args{{Key: "k", Value: "v"}})
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
			} else {
				if !stderrors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr.Type, err)
				}
				if resp != nil {
					t.Errorf("Expected nil response on failure, got %+v", resp)
				}
			}

			if tt.rt.connects != 1 {
				t.Errorf("Expected 1 connect, got %d", tt.rt.connects)
			}
			if tt.rt.closes != 1 {
				t.Errorf("Expected exactly 1 close, got %d", tt.rt.closes)
			}

			if len(states) < len(tt.wantFinal) {
				t.Fatalf("Too few states: %v", states)
			}
			if states[0] != StateIdle {
				t.Errorf("Expected first state IDLE, got %v", states[0])
			}
			tail := states[len(states)-len(tt.wantFinal):]
			if !reflect.DeepEqual(tail, tt.wantFinal) {
				t.Errorf("Expected states to end with %v, got %v", tt.wantFinal, states)
			}
		})
	}
}

func TestHttpClient_StateSequence(t *testing.T) {
	rt := &recordingTransport{response: []byte("HTTP/1.1 200 OK\r\n\r\nok")}
	var states []State
	_, err := clientFor(rt, WithStateHook(func(s State) { states = append(states, s) })).Get("http://example.org", nil)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}

	want := []State{StateIdle, StateConnecting, StateSending, StateReceiving, StateParsing, StateClosed}
	if !reflect.DeepEqual(states, want) {
		t.Errorf("Expected %v, got %v", want, states)
	}
}

func TestHttpClient_ResolutionErrorOpensNoConnection(t *testing.T) {
	built := 0
	var states []State
	client := NewHttpClient(
		WithTransportFactory(func() (transport.Transport, error) {
			built++
			return &recordingTransport{}, nil
		}),
		WithStateHook(func(s State) { states = append(states, s) }),
	)

	_, err := client.Get("not a url with a host", nil)
	if !stderrors.Is(err, httperrors.ErrResolution) {
		t.Fatalf("Expected resolution error, got %v", err)
	}
	if built != 0 {
		t.Errorf("Expected no transport to be built, got %d", built)
	}
	if want := []State{StateIdle, StateResolveFailed}; !reflect.DeepEqual(states, want) {
		t.Errorf("Expected states %v, got %v", want, states)
	}
}

func TestHttpClient_TransportFactoryError(t *testing.T) {
	initErr := httperrors.NewConnectionError(httperrors.TransportErrorIoUringInit, "no ring", nil)
	var states []State
	client := NewHttpClient(
		WithTransportFactory(func() (transport.Transport, error) { return nil, initErr }),
		WithStateHook(func(s State) { states = append(states, s) }),
	)

	_, err := client.Get("http://example.org/", nil)
	if !stderrors.Is(err, initErr) {
		t.Fatalf("Expected factory error, got %v", err)
	}
	if want := []State{StateIdle, StateResolveFailed}; !reflect.DeepEqual(states, want) {
		t.Errorf("Expected states %v, got %v", want, states)
	}
}

func TestHttpClient_UnsupportedMethod(t *testing.T) {
	rt := &recordingTransport{}
	_, err := clientFor(rt).Command(protocol.HttpMethod(7), "http://example.org/", nil)
	if !stderrors.Is(err, httperrors.ErrInvalidArgument) {
		t.Fatalf("Expected invalid argument error, got %v", err)
	}
	if rt.connects != 0 || rt.closes != 0 {
		t.Errorf("Expected no socket activity, got %d connects and %d closes", rt.connects, rt.closes)
	}
}

func TestHttpClient_ConnectionRefused(t *testing.T) {
	listener, err := nettest.NewLocalListener("tcp")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}
	addr := listener.Addr().(*net.TCPAddr)
	listener.Close()

	_, err = NewHttpClient().Get(fmt.Sprintf("http://%s:%d/", addr.IP, addr.Port), nil)
	if !stderrors.Is(err, httperrors.ErrConnection) {
		t.Fatalf("Expected connection error, got %v", err)
	}
}

func TestHttpClient_MetricsAndLogging(t *testing.T) {
	var logBuf bytes.Buffer
	meter := &recordingMeter{}
	rt := &recordingTransport{response: []byte("HTTP/1.1 204 No Content\r\n\r\n")}

	client := clientFor(rt,
		WithMeter(meter),
		WithLogger(obs.StdLogger{L: log.New(&logBuf, "", 0), Min: obs.Debug}),
	)

	if _, err := client.Get("http://example.org/", nil); err != nil {
		t.Fatalf("GET failed: %v", err)
	}

	if got := meter.counters["httpclient_requests_total"]; got != 1 {
		t.Errorf("Expected 1 request counted, got %v", got)
	}
	if got := meter.counters["httpclient_bytes_sent"]; got != float64(rt.written.Len()) {
		t.Errorf("Expected %d bytes sent, got %v", rt.written.Len(), got)
	}
	if got := meter.counters["httpclient_bytes_received"]; got != float64(len("HTTP/1.1 204 No Content\r\n\r\n")) {
		t.Errorf("Unexpected bytes received %v", got)
	}
	if !reflect.DeepEqual(meter.outcomes, []string{"ok"}) {
		t.Errorf("Unexpected outcomes %v", meter.outcomes)
	}

	logs := logBuf.String()
	for _, want := range []string{"state CONNECTING", "status 204", "state CLOSED"} {
		if !strings.Contains(logs, want) {
			t.Errorf("Expected %q in logs:\n%s", want, logs)
		}
	}
}

func TestHttpClient_ConcurrentCalls(t *testing.T) {
	const calls = 8
	host, port, cleanup := setupTestServer(t, calls, func(conn net.Conn, head, body string) {
		fmt.Fprintf(conn, "HTTP/1.1 200 OK\r\n\r\n%s", body)
	})
	defer cleanup()

	client := NewHttpClient(WithChunkSize(7))
	url := fmt.Sprintf("http://%s:%d/echo", host, port)

	var wg sync.WaitGroup
	errs := make(chan error, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := "n=" + strconv.Itoa(i)
			resp, err := client.Post(url, protocol.Args{{Key: "n", Value: strconv.Itoa(i)}})
			if err != nil {
				errs <- err
				return
			}
			if resp.Body != want {
				errs <- fmt.Errorf("call %d: expected body %q, got %q", i, want, resp.Body)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestState_String(t *testing.T) {
	if StateReceiveFailed.String() != "RECEIVE_FAILED" {
		t.Errorf("Unexpected name %q", StateReceiveFailed.String())
	}
	if StateResolveFailed.String() != "RESOLVE_FAILED" {
		t.Errorf("Unexpected name %q", StateResolveFailed.String())
	}
	if !StateParseFailed.Failed() || !StateResolveFailed.Failed() || StateClosed.Failed() {
		t.Error("Failed() misclassifies states")
	}
	if State(-1).String() != "STATE(-1)" {
		t.Errorf("Unexpected name %q", State(-1).String())
	}
}

// failingDestroyTransport is a recordingTransport that owns extra resources
// and fails to close its socket.
type failingDestroyTransport struct {
	recordingTransport
	destroys int
}

func (f *failingDestroyTransport) Close() error {
	f.closes++
	return httperrors.NewConnectionError(httperrors.TransportErrorSocketCloseFailure, "EBADF", nil)
}

func (f *failingDestroyTransport) Destroy() error {
	f.destroys++
	return f.Close()
}

func TestHttpClient_ReleaseFailureIsLoggedNotReturned(t *testing.T) {
	var logBuf bytes.Buffer
	ft := &failingDestroyTransport{recordingTransport: recordingTransport{response: []byte("HTTP/1.1 200 OK\r\n\r\nok")}}
	client := NewHttpClient(
		WithTransportFactory(func() (transport.Transport, error) { return ft, nil }),
		WithLogger(obs.StdLogger{L: log.New(&logBuf, "", 0), Min: obs.Warn}),
	)

	resp, err := client.Get("http://example.org/", nil)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	if resp.Body != "ok" {
		t.Errorf("Unexpected body %q", resp.Body)
	}
	if ft.destroys != 1 || ft.closes != 1 {
		t.Errorf("Expected 1 destroy and 1 close, got %d and %d", ft.destroys, ft.closes)
	}
	if !strings.Contains(logBuf.String(), "[WARN] releasing connection") {
		t.Errorf("Expected release failure at Warn, got %q", logBuf.String())
	}
}
