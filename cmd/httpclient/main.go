// Command httpclient sends one GET or POST request over a raw socket and
// prints the status code followed by the body.
//
//	httpclient [flags] [GET|POST] URL
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/moxil-shah/CMPUT404-assignment-web-client/client"
	"github.com/moxil-shah/CMPUT404-assignment-web-client/internal/obs"
	"github.com/moxil-shah/CMPUT404-assignment-web-client/protocol"
	"github.com/moxil-shah/CMPUT404-assignment-web-client/transport"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "httpclient [GET/POST] [URL]")
	fmt.Fprintln(w)
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("httpclient", flag.ContinueOnError)
	fs.SetOutput(stderr)
	transportName := fs.String("transport", "net", "socket back-end: net, socket, uring or uring-v2")
	chunkSize := fs.Int("chunk", transport.DefaultChunkSize, "receive chunk size in bytes")
	verbose := fs.Bool("v", false, "log every request step to stderr")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return 1
	}

	method := protocol.MethodGet
	var rawURL string
	switch rest := fs.Args(); len(rest) {
	case 1:
		rawURL = rest[0]
	case 2:
		m, err := protocol.ParseMethod(rest[0])
		if err != nil {
			fmt.Fprintln(stderr, "httpclient:", err)
			return 1
		}
		method, rawURL = m, rest[1]
	default:
		usage(stdout, fs)
		return 1
	}

	kind, err := transport.ParseKind(*transportName)
	if err != nil {
		fmt.Fprintln(stderr, "httpclient:", err)
		return 1
	}

	level := obs.Warn
	if *verbose {
		level = obs.Debug
	}
	c := client.NewHttpClient(
		client.WithTransportKind(kind),
		client.WithChunkSize(*chunkSize),
		client.WithLogger(obs.StdLogger{L: log.New(stderr, "", log.LstdFlags), Min: level, Pref: "httpclient "}),
	)

	resp, err := c.Command(method, rawURL, nil)
	if err != nil {
		fmt.Fprintln(stderr, "httpclient:", err)
		return 1
	}

	fmt.Fprintln(stdout, resp)
	return 0
}
