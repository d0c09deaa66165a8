package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/moxil-shah/CMPUT404-assignment-web-client/errors"
)

var headerSeparator = []byte("\r\n\r\n")

// ParseResponse splits a complete response into status code, raw header
// block and body. Only the status line is interpreted.
func ParseResponse(data []byte) (*HttpResponse, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewParseError(errors.ProtocolErrorEmptyResponse, "no data received")
	}

	code, message, err := parseStatusLine(data)
	if err != nil {
		return nil, err
	}

	pos := bytes.Index(data, headerSeparator)
	if pos < 0 {
		return nil, errors.NewParseError(
			errors.ProtocolErrorMissingHeaderTerminator,
			"no blank line between headers and body",
		)
	}

	return &HttpResponse{
		StatusCode:    code,
		StatusMessage: message,
		Header:        string(data[:pos]),
		Body:          string(data[pos+len(headerSeparator):]),
	}, nil
}

// parseStatusLine reads "<version> <code> [reason]" from the first line.
func parseStatusLine(data []byte) (int, string, error) {
	line := data
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = bytes.TrimSuffix(line, []byte("\r"))

	fields := strings.Fields(string(line))
	if len(fields) < 2 {
		return 0, "", errors.NewParseError(
			errors.ProtocolErrorInvalidStatusLine,
			fmt.Sprintf("invalid status line %q", line),
		)
	}

	code, err := strconv.Atoi(fields[1])
	if err != nil || code < 0 {
		return 0, "", errors.NewParseError(
			errors.ProtocolErrorInvalidStatusCode,
			fmt.Sprintf("invalid status code %q", fields[1]),
		)
	}

	return code, strings.Join(fields[2:], " "), nil
}
