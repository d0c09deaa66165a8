package protocol

import (
	"strconv"
	"strings"

	"github.com/moxil-shah/CMPUT404-assignment-web-client/transport"
)

const formContentType = "application/x-www-form-urlencoded"

// NewRequest builds the request for method against target. GET requests
// never carry args: they are accepted and dropped, neither appended to the
// path nor sent as a body.
func NewRequest(method HttpMethod, target Target, args Args) *HttpRequest {
	req := &HttpRequest{
		Method: method,
		Path:   target.Path,
	}

	host := hostHeader(target.Host)
	if method == MethodPost {
		body := args.Encode()
		req.Headers = []HttpHeader{
			{Key: "Host", Value: host},
			{Key: "Content-Type", Value: formContentType},
			{Key: "Content-Length", Value: strconv.Itoa(len(body))},
			{Key: "Connection", Value: "close"},
		}
		req.Body = []byte(body)
		return req
	}

	req.Headers = []HttpHeader{
		{Key: "Host", Value: host},
		{Key: "Connection", Value: "close"},
	}
	return req
}

// hostHeader brackets IPv6 literals
func hostHeader(host string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

// Bytes formats the request line, headers, blank line and body
func (r *HttpRequest) Bytes() []byte {
	size := len(r.Path) + len(r.Body) + 32
	for _, header := range r.Headers {
		size += len(header.Key) + len(header.Value) + 4
	}
	buf := make([]byte, 0, size)

	// Request line
	buf = append(buf, r.Method.String()...)
	buf = append(buf, ' ')
	buf = append(buf, r.Path...)
	buf = append(buf, " HTTP/1.1\r\n"...)

	// Headers
	for _, header := range r.Headers {
		buf = append(buf, header.Key...)
		buf = append(buf, ": "...)
		buf = append(buf, header.Value...)
		buf = append(buf, "\r\n"...)
	}

	// Blank line
	buf = append(buf, "\r\n"...)

	return append(buf, r.Body...)
}

// Http1Protocol runs one HTTP/1.1 exchange over a transport. It is not
// reusable: every request gets a fresh protocol and transport.
type Http1Protocol struct {
	transport transport.Transport
	chunkSize int
}

// NewHttp1Protocol creates a new HTTP/1.1 protocol handler
func NewHttp1Protocol(t transport.Transport, chunkSize int) *Http1Protocol {
	if chunkSize <= 0 {
		chunkSize = transport.DefaultChunkSize
	}
	return &Http1Protocol{
		transport: t,
		chunkSize: chunkSize,
	}
}

// Connect establishes a connection to the specified host and port
func (p *Http1Protocol) Connect(host string, port int) error {
	return p.transport.Connect(host, port)
}

// Send writes the whole request
func (p *Http1Protocol) Send(req *HttpRequest) (int, error) {
	return transport.SendAll(p.transport, req.Bytes())
}

// Receive drains the connection until the peer closes it
func (p *Http1Protocol) Receive() ([]byte, error) {
	return transport.RecvAll(p.transport, p.chunkSize)
}

// Disconnect releases the transport
func (p *Http1Protocol) Disconnect() error {
	return transport.Release(p.transport)
}
