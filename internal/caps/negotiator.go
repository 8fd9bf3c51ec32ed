// Package caps drives IRCv3 capability negotiation: a CAP LS/ACK/NAK
// handshake fanned out across a set of pluggable capability handlers, plus
// the SASL PLAIN handler.
package caps

import (
	"fmt"
	"log/slog"
	"strings"
)

// Reason classifies a negotiation failure.
type Reason int

const (
	ReasonUnsupportedCapability Reason = iota
	ReasonSASLFailed
)

func (r Reason) String() string {
	switch r {
	case ReasonUnsupportedCapability:
		return "UnsupportedCapability"
	case ReasonSASLFailed:
		return "SASLFailed"
	}
	return "Unknown"
}

// Error is a fatal handshake failure. It is surfaced to the connection
// bootstrap, which decides disconnect-or-continue.
type Error struct {
	Reason  Reason
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("capability negotiation failed (%s): %s", e.Reason, e.Message)
}

// Handler is one negotiated protocol extension's handshake logic. Each
// callback returns done=true once the handler has finished its part of the
// handshake; a finished handler is retired and sees no further lines.
type Handler interface {
	// OnList is called with the capability names from CAP LS.
	OnList(n *Negotiator, capabilities []string) (done bool, err error)
	// OnAck is called with the names from CAP ACK.
	OnAck(n *Negotiator, capabilities []string) (done bool, err error)
	// OnNak is called with the names from CAP NAK.
	OnNak(n *Negotiator, capabilities []string) (done bool, err error)
	// OnUnknown is offered any other line that arrives while the handler
	// is still pending (AUTHENTICATE, the 900-905 numerics, ...).
	OnUnknown(n *Negotiator, rawLine string) (done bool, err error)
}

// Negotiator runs the CAP handshake across the registered handlers. It has
// no internal timeout: a handler that never reports done stalls CAP END
// until an external collaborator aborts the connection.
type Negotiator struct {
	send    func(string)
	log     *slog.Logger
	pending []Handler
	enabled map[string]struct{}
	started bool
	endSent bool
	aborted bool
}

// NewNegotiator wires a negotiator to an outbound raw-line sender.
func NewNegotiator(send func(string), logger *slog.Logger, handlers ...Handler) *Negotiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Negotiator{
		send:    send,
		log:     logger,
		pending: handlers,
		enabled: make(map[string]struct{}),
	}
}

// Start opens the handshake. With no handlers registered it is a no-op.
func (n *Negotiator) Start() {
	if len(n.pending) == 0 {
		return
	}
	n.started = true
	n.send("CAP LS")
}

// Active reports whether a handshake is in progress.
func (n *Negotiator) Active() bool {
	return n.started && !n.endSent && !n.aborted
}

// Request asks the server to enable one capability.
func (n *Negotiator) Request(name string) {
	n.send("CAP REQ :" + name)
}

// SendRaw hands a raw line to the outbound transport.
func (n *Negotiator) SendRaw(line string) {
	n.send(line)
}

// Enabled reports whether name has been accepted for this connection.
func (n *Negotiator) Enabled(name string) bool {
	_, ok := n.enabled[name]
	return ok
}

// EnabledCapabilities returns the accepted capability names.
func (n *Negotiator) EnabledCapabilities() []string {
	out := make([]string, 0, len(n.enabled))
	for name := range n.enabled {
		out = append(out, name)
	}
	return out
}

// Disable removes name from the enabled set.
func (n *Negotiator) Disable(name string) {
	delete(n.enabled, name)
}

// HandleCAP routes one CAP subcommand to the handlers. params is the
// parameter list after the CAP token, e.g. ["*", "LS", "sasl multi-prefix"].
func (n *Negotiator) HandleCAP(params []string) error {
	if len(params) < 2 {
		n.log.Debug("short CAP line dropped", "params", params)
		return nil
	}
	sub := strings.ToUpper(params[1])
	names := strings.Fields(params[len(params)-1])

	switch sub {
	case "LS":
		return n.forward(func(h Handler) (bool, error) { return h.OnList(n, names) })
	case "ACK":
		for _, name := range names {
			n.enabled[name] = struct{}{}
		}
		return n.forward(func(h Handler) (bool, error) { return h.OnAck(n, names) })
	case "NAK":
		return n.forward(func(h Handler) (bool, error) { return h.OnNak(n, names) })
	default:
		n.log.Debug("unhandled CAP subcommand", "sub", sub)
		return nil
	}
}

// HandleUnknown offers a non-CAP line to every still-pending handler.
func (n *Negotiator) HandleUnknown(rawLine string) error {
	return n.forward(func(h Handler) (bool, error) { return h.OnUnknown(n, rawLine) })
}

// forward invokes one callback on each pending handler, retires the ones
// that report done, and closes the handshake once none remain. The first
// handler error aborts the walk; the erroring handler is retired so a
// bootstrap that chooses to continue isn't wedged on it, but a hard failure
// never opens the CAP END gate — whether the wire stays up is the
// bootstrap's call, not the driver's.
func (n *Negotiator) forward(call func(Handler) (bool, error)) error {
	remaining := n.pending[:0]
	var failed error
	for i, h := range n.pending {
		done, err := call(h)
		if err != nil {
			failed = err
			// drop the failed handler, keep the rest pending
			remaining = append(remaining, n.pending[i+1:]...)
			break
		}
		if !done {
			remaining = append(remaining, h)
		}
	}
	n.pending = remaining
	if failed != nil {
		n.aborted = true
		return failed
	}
	n.finishIfDone()
	return nil
}

// finishIfDone sends CAP END exactly once, after every handler has retired
// cleanly. An aborted handshake never finishes.
func (n *Negotiator) finishIfDone() {
	if !n.started || n.endSent || n.aborted || len(n.pending) > 0 {
		return
	}
	n.endSent = true
	n.send("CAP END")
}
