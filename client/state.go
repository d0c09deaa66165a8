package client

import "strconv"

// State is a step in the lifecycle of one request
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateSending
	StateReceiving
	StateParsing
	StateClosed
	StateConnectFailed
	StateSendFailed
	StateReceiveFailed
	StateParseFailed
	// StateResolveFailed ends a request that failed before a socket existed:
	// a bad URL or a transport that could not be built. No CLOSED follows.
	StateResolveFailed
)

var stateNames = [...]string{
	StateIdle:          "IDLE",
	StateConnecting:    "CONNECTING",
	StateSending:       "SENDING",
	StateReceiving:     "RECEIVING",
	StateParsing:       "PARSING",
	StateClosed:        "CLOSED",
	StateConnectFailed: "CONNECT_FAILED",
	StateSendFailed:    "SEND_FAILED",
	StateReceiveFailed: "RECEIVE_FAILED",
	StateParseFailed:   "PARSE_FAILED",
	StateResolveFailed: "RESOLVE_FAILED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "STATE(" + strconv.Itoa(int(s)) + ")"
}

// Failed reports whether s is one of the *_FAILED states
func (s State) Failed() bool {
	return s >= StateConnectFailed && s <= StateResolveFailed
}
