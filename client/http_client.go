package client

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/moxil-shah/CMPUT404-assignment-web-client/errors"
	"github.com/moxil-shah/CMPUT404-assignment-web-client/internal/obs"
	"github.com/moxil-shah/CMPUT404-assignment-web-client/protocol"
	"github.com/moxil-shah/CMPUT404-assignment-web-client/transport"
)

// TransportFactory returns a fresh, unconnected transport
type TransportFactory func() (transport.Transport, error)

// HttpClient performs one-shot GET and POST requests. Every call opens its
// own connection and closes it before returning, so a client may be shared
// between goroutines.
type HttpClient struct {
	newTransport TransportFactory
	chunkSize    int
	logger       obs.Logger
	meter        obs.Meter
	onState      func(State)
}

// Option configures an HttpClient
type Option func(*HttpClient)

// WithTransportKind selects one of the built-in transports
func WithTransportKind(kind transport.Kind) Option {
	return WithTransportFactory(func() (transport.Transport, error) {
		return transport.New(kind)
	})
}

// WithTransportFactory sets how per-request transports are built
func WithTransportFactory(f TransportFactory) Option {
	return func(c *HttpClient) {
		if f != nil {
			c.newTransport = f
		}
	}
}

// WithChunkSize sets the receive chunk size; n <= 0 keeps the default
func WithChunkSize(n int) Option {
	return func(c *HttpClient) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

func WithLogger(l obs.Logger) Option {
	return func(c *HttpClient) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMeter(m obs.Meter) Option {
	return func(c *HttpClient) {
		if m != nil {
			c.meter = m
		}
	}
}

// WithStateHook registers fn to observe every state transition. Every
// request ends in CLOSED, or in RESOLVE_FAILED when no socket was opened.
// fn may be called from several goroutines when the client is shared.
func WithStateHook(fn func(State)) Option {
	return func(c *HttpClient) {
		c.onState = fn
	}
}

// NewHttpClient creates a client. Without options it dials with
// transport.NetTransport and reads 1024 bytes at a time.
func NewHttpClient(opts ...Option) *HttpClient {
	c := &HttpClient{
		newTransport: func() (transport.Transport, error) { return transport.NewNetTransport(), nil },
		chunkSize:    transport.DefaultChunkSize,
		logger:       obs.NopLogger{},
		meter:        obs.NopMeter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches rawURL. args are accepted for symmetry with Post but are not
// sent: they appear in neither the path nor a body.
func (c *HttpClient) Get(rawURL string, args protocol.Args) (*protocol.HttpResponse, error) {
	return c.Command(protocol.MethodGet, rawURL, args)
}

// Post sends args form-urlencoded to rawURL
func (c *HttpClient) Post(rawURL string, args protocol.Args) (*protocol.HttpResponse, error) {
	return c.Command(protocol.MethodPost, rawURL, args)
}

// Command performs method against rawURL. A malformed response is
// returned as an errors.ErrParse error, never as a synthetic 500.
func (c *HttpClient) Command(method protocol.HttpMethod, rawURL string, args protocol.Args) (*protocol.HttpResponse, error) {
	if method != protocol.MethodGet && method != protocol.MethodPost {
		return nil, errors.NewInvalidArgumentError(fmt.Sprintf("unsupported method %v", method))
	}

	start := time.Now()
	resp, st, err := c.exchange(method, rawURL, args)

	outcome := "ok"
	var httpErr *errors.HttpError
	if stderrors.As(err, &httpErr) {
		outcome = httpErr.Type.String()
	} else if err != nil {
		outcome = "error"
	}
	methodLabel := obs.Label{Key: "method", Value: method.String()}
	c.meter.Counter("httpclient_requests_total", 1, methodLabel, obs.Label{Key: "outcome", Value: outcome})
	c.meter.Counter("httpclient_bytes_sent", float64(st.sent), methodLabel)
	c.meter.Counter("httpclient_bytes_received", float64(st.received), methodLabel)
	c.meter.Histogram("httpclient_request_seconds", time.Since(start).Seconds(), methodLabel)

	return resp, err
}

type exchangeStats struct {
	sent     int
	received int
}

func (c *HttpClient) exchange(method protocol.HttpMethod, rawURL string, args protocol.Args) (*protocol.HttpResponse, exchangeStats, error) {
	var st exchangeStats
	c.enter(StateIdle)

	target, err := protocol.ResolveURL(rawURL)
	if err != nil {
		c.enter(StateResolveFailed)
		return nil, st, err
	}

	t, err := c.newTransport()
	if err != nil {
		c.enter(StateResolveFailed)
		return nil, st, err
	}
	proto := protocol.NewHttp1Protocol(t, c.chunkSize)
	defer c.release(proto)

	req := protocol.NewRequest(method, target, args)

	c.enter(StateConnecting)
	c.logger.Logf(obs.Debug, "%s %s: connecting to %s:%d", method, rawURL, target.Host, target.Port)
	if err := proto.Connect(target.Host, target.Port); err != nil {
		c.enter(StateConnectFailed)
		return nil, st, err
	}

	c.enter(StateSending)
	st.sent, err = proto.Send(req)
	if err != nil {
		c.enter(StateSendFailed)
		return nil, st, err
	}
	c.logger.Logf(obs.Debug, "%s %s: sent %d bytes", method, rawURL, st.sent)

	c.enter(StateReceiving)
	raw, err := proto.Receive()
	st.received = len(raw)
	if err != nil {
		c.enter(StateReceiveFailed)
		return nil, st, err
	}
	c.logger.Logf(obs.Debug, "%s %s: received %d bytes", method, rawURL, st.received)

	c.enter(StateParsing)
	resp, err := protocol.ParseResponse(raw)
	if err != nil {
		c.enter(StateParseFailed)
		return nil, st, err
	}
	c.logger.Logf(obs.Debug, "%s %s: status %d", method, rawURL, resp.StatusCode)

	return resp, st, nil
}

// release closes the connection on every exit path. A failed close is
// logged, not returned.
func (c *HttpClient) release(proto *protocol.Http1Protocol) {
	if err := proto.Disconnect(); err != nil {
		c.logger.Logf(obs.Warn, "releasing connection: %v", err)
	}
	c.enter(StateClosed)
}

func (c *HttpClient) enter(s State) {
	c.logger.Logf(obs.Debug, "state %s", s)
	if c.onState != nil {
		c.onState(s)
	}
}
