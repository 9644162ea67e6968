package irc

import "strings"

// An EventKind names one dispatchable occurrence. The fixed kinds below
// cover the client's derived events; protocol lines dispatch under kinds
// built by ServerEvent, SelfEvent, CTCPRequestEvent, and CTCPReplyEvent.
type EventKind string

const (
	// EventConnected fires when the transport is established, before
	// registration.
	EventConnected EventKind = "connected"
	// EventDisconnected fires when the connection is lost or closed.
	EventDisconnected EventKind = "disconnected"
	// EventReady fires on the server's welcome, once registration is
	// accepted. Join channels here.
	EventReady EventKind = "ready"

	// EventMessage fires for every PRIVMSG that is not a CTCP request,
	// alongside the channel or private variant.
	EventMessage        EventKind = "message"
	EventChannelMessage EventKind = "channel_message"
	EventPrivateMessage EventKind = "private_message"

	// EventNotice fires for every user NOTICE that is not a CTCP reply.
	EventNotice        EventKind = "notice"
	EventChannelNotice EventKind = "channel_notice"
	EventPrivateNotice EventKind = "private_notice"

	// EventCTCPRequest and EventCTCPReply fire for every CTCP exchange,
	// alongside the per-verb kinds.
	EventCTCPRequest EventKind = "ctcp_request"
	EventCTCPReply   EventKind = "ctcp_reply"

	// EventBanList fires when a ban list retrieval completes; Bans holds
	// the collected entries.
	EventBanList EventKind = "banlist"
)

// ServerEvent is the kind under which a raw server line dispatches, e.g.
// ServerEvent("welcome") for the 001 numeric or ServerEvent("JOIN").
func ServerEvent(command string) EventKind {
	return EventKind("server_" + strings.ToLower(command))
}

// SelfEvent is the kind for lines the server echoes about our own actions,
// e.g. SelfEvent("JOIN") when we enter a channel.
func SelfEvent(command string) EventKind {
	return EventKind("self_" + strings.ToLower(command))
}

// CTCPRequestEvent is the per-verb kind for an incoming CTCP request, e.g.
// CTCPRequestEvent("VERSION").
func CTCPRequestEvent(verb string) EventKind {
	return EventKind("ctcp_request_" + strings.ToLower(verb))
}

// CTCPReplyEvent is the per-verb kind for an incoming CTCP reply.
func CTCPReplyEvent(verb string) EventKind {
	return EventKind("ctcp_reply_" + strings.ToLower(verb))
}

// A BanEntry is one mask from a channel ban list. Setter and SetAt are
// blank when the server's banlist replies omit them.
type BanEntry struct {
	Mask   string
	Setter string
	SetAt  string
}

// An Event carries one occurrence to handlers. From is nil for events with
// no originating user (server numerics, connection lifecycle).
type Event struct {
	Kind    EventKind
	From    *UserMask
	Command string
	Params  []string

	// Bans is populated for EventBanList only.
	Bans []BanEntry
}

// Param returns the n-th parameter, 1-based, or "" when absent. Param(1) of
// a PRIVMSG is its target, Param(2) its text.
func (e *Event) Param(n int) string {
	if n < 1 || n > len(e.Params) {
		return ""
	}
	return e.Params[n-1]
}

// Target returns the first parameter: the channel or nick the command was
// addressed to.
func (e *Event) Target() string {
	return e.Param(1)
}

// Text returns the last parameter, which for messages and notices is the
// body.
func (e *Event) Text() string {
	return e.Param(len(e.Params))
}

type binding struct {
	fn    func(*Client, *Event)
	async bool
}

// A Handler is a set of callbacks bound to event kinds. Register it on a
// client to receive events; one handler may bind any number of kinds, and
// the zero value is ready to use after NewHandler.
type Handler struct {
	bindings map[EventKind]binding
}

// NewHandler returns an empty handler.
func NewHandler() *Handler {
	return &Handler{bindings: make(map[EventKind]binding)}
}

// Bind attaches fn to kind, to be run synchronously on the read loop. A
// second Bind for the same kind replaces the first. Returns the handler for
// chaining.
func (h *Handler) Bind(kind EventKind, fn func(*Client, *Event)) *Handler {
	h.bindings[kind] = binding{fn: fn}
	return h
}

// BindAsync attaches fn to kind, to be run on its own goroutine so slow
// work does not stall dispatch. Events may be observed out of order by an
// async callback.
func (h *Handler) BindAsync(kind EventKind, fn func(*Client, *Event)) *Handler {
	h.bindings[kind] = binding{fn: fn, async: true}
	return h
}
