package irc

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned by synchronous queries such as [Client.BanListSync]
// when the terminating reply does not arrive before the caller's deadline.
var ErrTimeout = errors.New("irc: query timed out")

var errNotConnected = errors.New("irc: not connected")

// A FramingError reports an outbound parameter that cannot be represented on
// the wire. The offending call fails immediately; nothing is written to the
// connection.
type FramingError struct {
	Command string
	Param   string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("irc: %s: parameter %q must be a single token with no CR, LF, or leading colon", e.Command, e.Param)
}

// A TransportError wraps a socket or TLS failure. Transport failures are
// fatal to the current connection: the read loop ends and the reconnect
// policy, if one is configured, takes over.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("irc: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
