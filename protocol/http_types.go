package protocol

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/moxil-shah/CMPUT404-assignment-web-client/errors"
)

// HttpMethod represents HTTP request methods
type HttpMethod int

const (
	MethodGet HttpMethod = iota
	MethodPost
)

func (m HttpMethod) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	default:
		return "METHOD(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMethod maps a method name to HttpMethod. Anything other than GET or
// POST is rejected rather than treated as GET.
func ParseMethod(name string) (HttpMethod, error) {
	switch strings.ToUpper(name) {
	case "GET":
		return MethodGet, nil
	case "POST":
		return MethodPost, nil
	}
	return 0, errors.NewInvalidArgumentError(fmt.Sprintf("unsupported method %q", name))
}

// HttpHeader represents an HTTP header key-value pair
type HttpHeader struct {
	Key   string
	Value string
}

// Arg is one form argument
type Arg struct {
	Key   string
	Value string
}

// Args is an ordered set of form arguments. Order is kept on the wire.
type Args []Arg

// ArgsFromMap converts m to Args sorted by key
func ArgsFromMap(m map[string]string) Args {
	if len(m) == 0 {
		return nil
	}
	args := make(Args, 0, len(m))
	for k, v := range m {
		args = append(args, Arg{Key: k, Value: v})
	}
	sort.Slice(args, func(i, j int) bool { return args[i].Key < args[j].Key })
	return args
}

// Encode returns the application/x-www-form-urlencoded form of a, with
// spaces encoded as '+'. Empty args encode to "".
func (a Args) Encode() string {
	if len(a) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, arg := range a {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(arg.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(arg.Value))
	}
	return sb.String()
}

// HttpRequest represents an HTTP request
type HttpRequest struct {
	Method  HttpMethod
	Path    string
	Headers []HttpHeader
	Body    []byte
}

// DefaultStatusCode is the code of a response that was never parsed
const DefaultStatusCode = 500

// HttpResponse is a parsed response. Header holds the raw header block,
// status line included, without the terminating blank line.
type HttpResponse struct {
	StatusCode    int
	StatusMessage string
	Header        string
	Body          string
}

// String renders the status code and body the way the CLI prints them
func (r *HttpResponse) String() string {
	if r == nil {
		return strconv.Itoa(DefaultStatusCode) + "\n"
	}
	return strconv.Itoa(r.StatusCode) + "\n" + r.Body
}
