package protocol

import (
	stderrors "errors"
	"testing"

	httperrors "github.com/moxil-shah/CMPUT404-assignment-web-client/errors"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		url  string
		want Target
	}{
		{"http://example.org", Target{Host: "example.org", Port: 80, Path: "/"}},
		{"http://example.org/", Target{Host: "example.org", Port: 80, Path: "/"}},
		{"http://example.org:8080", Target{Host: "example.org", Port: 8080, Path: "/"}},
		{"http://127.0.0.1:27600/49872398432", Target{Host: "127.0.0.1", Port: 27600, Path: "/49872398432"}},
		{"http://example.org/a/b?x=1&y=2", Target{Host: "example.org", Port: 80, Path: "/a/b?x=1&y=2"}},
		{"http://example.org?x=1", Target{Host: "example.org", Port: 80, Path: "/?x=1"}},
		{"http://example.org/a%20b#frag", Target{Host: "example.org", Port: 80, Path: "/a%20b"}},
		{"https://example.org/secure", Target{Host: "example.org", Port: 80, Path: "/secure"}},
		{"http://[::1]:9000/v6", Target{Host: "::1", Port: 9000, Path: "/v6"}},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ResolveURL(tt.url)
			if err != nil {
				t.Fatalf("ResolveURL(%q) failed: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("ResolveURL(%q) = %+v, want %+v", tt.url, got, tt.want)
			}
		})
	}
}

func TestResolveURL_Errors(t *testing.T) {
	tests := []struct {
		url    string
		detail httperrors.ProtocolError
	}{
		{"example.org/no-scheme", httperrors.ProtocolErrorMissingHost},
		{"", httperrors.ProtocolErrorMissingHost},
		{"http://example.org:99999/", httperrors.ProtocolErrorInvalidPort},
		{"http://example.org:0/", httperrors.ProtocolErrorInvalidPort},
		{"http://example.org:port/", httperrors.ProtocolErrorInvalidURL},
		{"http://[::1/", httperrors.ProtocolErrorInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := ResolveURL(tt.url)
			if !stderrors.Is(err, httperrors.ErrResolution) {
				t.Fatalf("Expected resolution error, got %v", err)
			}
			want := &httperrors.HttpError{Type: httperrors.ErrorResolution, ProtocolErr: tt.detail}
			if !stderrors.Is(err, want) {
				t.Errorf("Expected detail %v, got %v", tt.detail, err)
			}
		})
	}
}
