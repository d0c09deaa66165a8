package protocol

import (
	"net/url"
	"strconv"

	"github.com/moxil-shah/CMPUT404-assignment-web-client/errors"
)

// DefaultPort is used when the URL names no port
const DefaultPort = 80

// Target is where a request goes: host and port to dial, and the
// request-target path to send.
type Target struct {
	Host string
	Port int
	Path string
}

// ResolveURL splits rawURL into host, port and path. The scheme is not
// checked. The path keeps any query string and defaults to "/".
func ResolveURL(rawURL string) (Target, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Target{}, errors.NewResolutionError(errors.ProtocolErrorInvalidURL, "cannot parse "+strconv.Quote(rawURL), err)
	}

	host := u.Hostname()
	if host == "" {
		return Target{}, errors.NewResolutionError(errors.ProtocolErrorMissingHost, "no host in "+strconv.Quote(rawURL), nil)
	}

	port := DefaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return Target{}, errors.NewResolutionError(errors.ProtocolErrorInvalidPort, "bad port "+strconv.Quote(p), err)
		}
	}

	path := u.EscapedPath()
	if u.RawQuery != "" || u.ForceQuery {
		path += "?" + u.RawQuery
	}
	if path == "" || path[0] != '/' {
		path = "/" + path
	}

	return Target{Host: host, Port: port, Path: path}, nil
}
