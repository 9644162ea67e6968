package irc

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"
)

const (
	dialTimeout = 10 * time.Second

	// idleTimeout bounds a single blocking read. It exists to notice dead
	// peers, not to pace anything: a healthy server pings well inside it.
	idleTimeout = 5 * time.Minute

	// lineBudget is the maximum outbound line length, terminator excluded.
	// The RFC allows 512 including CR-LF; staying lower leaves room for the
	// prefix servers prepend when relaying.
	lineBudget = 460
)

// A ReconnectPolicy computes how long to wait before reconnect attempt n
// (starting at 1). Attempts continue indefinitely; a policy that wants to
// bound the delay must cap growth inside the function.
type ReconnectPolicy func(attempt int) time.Duration

// FixedDelay is a ReconnectPolicy that always waits d.
func FixedDelay(d time.Duration) ReconnectPolicy {
	return func(int) time.Duration { return d }
}

// Client is an IRC client connection: it owns the socket and the read loop,
// tracks users and server capabilities from the line stream, and dispatches
// events to registered handlers.
//
// The exported fields must be set before Connect and not written afterward.
// Outbound methods are safe for concurrent use. The registries (Me,
// LookupUser, Server) are mutated only on the read loop, so a synchronously
// dispatched handler observes a consistent snapshot.
type Client struct {
	// ErrorLog specifies an optional logger for protocol anomalies,
	// handler panics, and transport errors. If nil, logging is done via
	// the log package's standard logger.
	ErrorLog *log.Logger

	// AsyncCallbacks runs every handler callback on its own goroutine,
	// overriding per-binding policy. Cross-event ordering is then not
	// guaranteed.
	AsyncCallbacks bool

	// FloodLimit, when non-nil, throttles outbound lines. Writers block
	// until the limiter admits them.
	FloodLimit *rate.Limiter

	// DialFn is a function that returns the connection to use: irc, ircs,
	// a server mock, anything speaking CRLF-delimited IRC lines. When
	// non-nil, Connect uses it as-is and performs no TLS of its own.
	DialFn func() (io.ReadWriteCloser, error)

	conn    io.ReadWriteCloser
	reader  *bufio.Reader
	writeMu sync.Mutex

	server *ServerInfo
	users  *tracker
	me     *User
	bans   map[string][]BanEntry

	// replay holds lines read ahead during a synchronous query, to be
	// dispatched before the next socket read.
	replay [][]byte

	handlersMu sync.Mutex
	handlers   map[string]*Handler
	order      []string

	host   string
	port   int
	useTLS bool

	nick, ident, realname, password string

	reconnect ReconnectPolicy

	// closing is set by Quit and Close, which may run on any goroutine,
	// and read by the loop in Run.
	closing atomic.Bool
}

// NewClient returns a client ready for Connect.
func NewClient() *Client {
	c := &Client{
		bans:     make(map[string][]BanEntry),
		handlers: make(map[string]*Handler),
		server:   newServerInfo(),
	}
	c.users = newTracker(c.logf)
	return c
}

func (c *Client) logf(format string, v ...any) {
	if c.ErrorLog == nil {
		log.Printf(format, v...)
		return
	}
	c.ErrorLog.Printf(format, v...)
}

// Server exposes the feature tokens advertised by the connected server.
func (c *Client) Server() *ServerInfo { return c.server }

// Me returns our own user record; nil before Identify.
func (c *Client) Me() *User { return c.me }

// IsMe reports whether nick is our current nick, case-insensitively.
func (c *Client) IsMe(nick string) bool {
	return c.me != nil && foldNick(nick) == foldNick(c.me.Nick)
}

// LookupUser finds a tracked user by nick. Nil when not visible.
func (c *Client) LookupUser(nick string) *User {
	return c.users.lookup(nick)
}

// SetReconnectPolicy configures automatic reconnection. With a nil policy
// (the default) Run returns when the connection drops.
func (c *Client) SetReconnectPolicy(p ReconnectPolicy) {
	c.reconnect = p
}

// Register attaches a handler under key; an empty key gets a generated one.
// Registering over an existing key replaces that handler in place, keeping
// its position in dispatch order. The key in effect is returned for later
// Unregister.
func (c *Client) Register(key string, h *Handler) string {
	if key == "" {
		key = uuid.NewString()
	}
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	if _, ok := c.handlers[key]; !ok {
		c.order = append(c.order, key)
	}
	c.handlers[key] = h
	return key
}

// Unregister detaches the handler registered under key.
func (c *Client) Unregister(key string) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	if _, ok := c.handlers[key]; !ok {
		return
	}
	delete(c.handlers, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Connect opens the transport and emits EventConnected. It does not
// register with the server; call Identify next. Proxies configured through
// the environment (ALL_PROXY) are honored.
func (c *Client) Connect(host string, port int, useTLS bool) error {
	c.host, c.port, c.useTLS = host, port, useTLS
	c.closing.Store(false)

	conn, err := c.dial()
	if err != nil {
		return &TransportError{Op: "connect", Err: err}
	}
	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
	c.reader = bufio.NewReader(conn)

	c.emit(&Event{Kind: EventConnected})
	return nil
}

func (c *Client) dial() (io.ReadWriteCloser, error) {
	if c.DialFn != nil {
		return c.DialFn()
	}
	dialer := proxy.FromEnvironmentUsing(&net.Dialer{Timeout: dialTimeout})
	conn, err := dialer.Dial("tcp", net.JoinHostPort(c.host, strconv.Itoa(c.port)))
	if err != nil {
		return nil, err
	}
	nc, ok := conn.(net.Conn)
	if !ok {
		conn.Close()
		return nil, errors.New("proxy dialer returned a non-network connection")
	}
	if c.useTLS {
		return tls.Client(nc, &tls.Config{ServerName: c.host}), nil
	}
	return nc, nil
}

// Identify registers with the server: PASS (when password is non-empty),
// then NICK and USER. The values are kept for automatic re-identification
// after a reconnect.
func (c *Client) Identify(nick, ident, realname, password string) error {
	c.nick, c.ident, c.realname, c.password = nick, ident, realname, password
	c.me = c.users.get(nick)
	if c.me.Ident == "" {
		c.me.Ident = ident
	}

	if password != "" {
		if err := c.SendWithLast("PASS", password); err != nil {
			return err
		}
	}
	if err := c.Send("NICK", nick); err != nil {
		return err
	}
	return c.SendWithLast("USER", realname, ident, nick, nick)
}

// Close force-closes the transport. The pending read unblocks with an error
// and Run returns without attempting reconnection.
func (c *Client) Close() error {
	c.closing.Store(true)
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Run reads and dispatches lines until the connection ends. With a
// reconnect policy configured it then redials, re-identifies, and resumes,
// retrying failed attempts indefinitely; otherwise it returns the transport
// error that ended the loop (nil after Quit or Close).
func (c *Client) Run() error {
	for {
		err := c.readLoop()
		c.emit(&Event{Kind: EventDisconnected})
		if c.closing.Load() {
			return nil
		}
		if c.reconnect == nil {
			return err
		}

		for attempt := 1; ; attempt++ {
			time.Sleep(c.reconnect(attempt))
			if err := c.Connect(c.host, c.port, c.useTLS); err != nil {
				c.logf("irc: reconnect attempt %d: %v", attempt, err)
				continue
			}
			break
		}
		if err := c.Identify(c.nick, c.ident, c.realname, c.password); err != nil {
			c.logf("irc: re-identify: %v", err)
		}
	}
}

func (c *Client) readLoop() error {
	if c.conn == nil {
		return errNotConnected
	}
	defer func() {
		c.writeMu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.writeMu.Unlock()
	}()

	for {
		raw, err := c.nextLine()
		if err != nil {
			if errors.Is(err, io.EOF) || c.closing.Load() {
				return nil
			}
			return err
		}
		c.processLine(raw)
	}
}

// nextLine returns the next line to dispatch: replayed lines first, then a
// fresh socket read.
func (c *Client) nextLine() ([]byte, error) {
	if len(c.replay) > 0 {
		raw := c.replay[0]
		c.replay = c.replay[1:]
		return raw, nil
	}
	return c.readLine(time.Now().Add(idleTimeout))
}

func (c *Client) readLine(deadline time.Time) ([]byte, error) {
	if nc, ok := c.conn.(net.Conn); ok {
		nc.SetReadDeadline(deadline)
	}
	raw, err := c.reader.ReadBytes('\n')
	switch {
	case err == nil:
		return raw, nil
	case errors.Is(err, io.EOF):
		if len(raw) > 0 {
			// final unterminated line
			return raw, nil
		}
		return nil, io.EOF
	default:
		return nil, &TransportError{Op: "read", Err: err}
	}
}

// Raw writes one line verbatim, adding the CR-LF terminator. Embedded line
// breaks are stripped so a single call can never emit two wire lines.
func (c *Client) Raw(line string) error {
	if c.FloodLimit != nil {
		if err := c.FloodLimit.Wait(context.Background()); err != nil {
			return err
		}
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return errNotConnected
	}
	if _, err := io.WriteString(c.conn, crlfStripper.Replace(line)+"\r\n"); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// Send writes one command with single-token parameters.
func (c *Client) Send(command string, params ...string) error {
	line, err := buildLine(command, params, "")
	if err != nil {
		return err
	}
	return c.Raw(line)
}

// SendWithLast is Send with a trailing parameter, which may contain spaces.
func (c *Client) SendWithLast(command string, last string, params ...string) error {
	line, err := buildLine(command, params, last)
	if err != nil {
		return err
	}
	return c.Raw(line)
}

// Join enters a channel.
func (c *Client) Join(channel string) error {
	return c.Send("JOIN", channel)
}

// JoinWithKey enters a key-protected channel.
func (c *Client) JoinWithKey(channel, key string) error {
	return c.Send("JOIN", channel, key)
}

// Part leaves a channel.
func (c *Client) Part(channel, reason string) error {
	return c.SendWithLast("PART", reason, channel)
}

// Topic sets a channel topic.
func (c *Client) Topic(channel, topic string) error {
	return c.SendWithLast("TOPIC", topic, channel)
}

// Kick removes nick from channel.
func (c *Client) Kick(channel, nick, reason string) error {
	return c.SendWithLast("KICK", reason, channel, nick)
}

// Invite invites nick to channel.
func (c *Client) Invite(nick, channel string) error {
	return c.Send("INVITE", nick, channel)
}

// Quit announces reason and marks the client as closing, so Run returns
// once the server drops the connection.
func (c *Client) Quit(reason string) error {
	c.closing.Store(true)
	return c.SendWithLast("QUIT", reason)
}

// Message sends text to a channel or nick. Formatting codes embedded in
// text are preserved; long messages wrap onto multiple PRIVMSG lines, each
// within the line budget, carrying the formatting state across the split.
func (c *Client) Message(target, text string) error {
	return c.MessageStyled(target, ParseStyled(text))
}

// MessageStyled sends composed styled text, wrapping like Message.
func (c *Client) MessageStyled(target string, t Styled) error {
	return c.sendText("PRIVMSG", target, t)
}

// Notice sends a NOTICE, wrapping like Message.
func (c *Client) Notice(target, text string) error {
	return c.NoticeStyled(target, ParseStyled(text))
}

// NoticeStyled sends a composed styled NOTICE.
func (c *Client) NoticeStyled(target string, t Styled) error {
	return c.sendText("NOTICE", target, t)
}

func (c *Client) sendText(command, target string, t Styled) error {
	if target == "" || target[0] == ':' || strings.ContainsAny(target, " \r\n") {
		return &FramingError{Command: command, Param: target}
	}
	prefix := command + " " + target + " :"
	for _, line := range wrapStyled(t, lineBudget-len(prefix)) {
		if err := c.Raw(prefix + line); err != nil {
			return err
		}
	}
	return nil
}

// Action sends a CTCP ACTION ("/me").
func (c *Client) Action(target, text string) error {
	return c.CTCPRequest(target, "ACTION", text)
}

// CTCPRequest sends a CTCP request (over PRIVMSG).
func (c *Client) CTCPRequest(target, verb, value string) error {
	return c.SendWithLast("PRIVMSG", ctcpWrap(verb, value), target)
}

// CTCPReply sends a CTCP reply (over NOTICE).
func (c *Client) CTCPReply(target, verb, value string) error {
	return c.SendWithLast("NOTICE", ctcpWrap(verb, value), target)
}

func ctcpWrap(verb, value string) string {
	body := strings.ToUpper(verb)
	if value != "" {
		body += " " + value
	}
	return "\x01" + body + "\x01"
}

func ctcpSplit(text string) (verb, value string, ok bool) {
	if len(text) < 2 || text[0] != 0x01 || text[len(text)-1] != 0x01 {
		return "", "", false
	}
	verb, value, _ = strings.Cut(text[1:len(text)-1], " ")
	return verb, value, verb != ""
}

// SetModes applies mode changes to target, batched into as few MODE
// commands as the server's advertised limit allows.
func (c *Client) SetModes(target string, changes ...ModeChange) error {
	lines, err := buildModeCommands(target, changes, c.server.MaxModes())
	if err != nil {
		return err
	}
	for _, line := range lines {
		if err := c.Raw(line); err != nil {
			return err
		}
	}
	return nil
}

// RetrieveBanList requests a channel's ban list. The entries arrive
// asynchronously: once the terminating reply comes in, handlers bound to
// EventBanList receive the collected entries.
func (c *Client) RetrieveBanList(channel string) error {
	return c.Send("MODE", channel, "+b")
}

// BanListSync requests a channel's ban list and blocks until the list is
// complete or the timeout elapses (returning ErrTimeout). It must run on
// the read loop, i.e. inside a synchronously dispatched handler: the drain
// reads the socket directly, deferring unrelated lines so they dispatch in
// receive order after the call returns.
func (c *Client) BanListSync(channel string, timeout time.Duration) ([]BanEntry, error) {
	query, err := buildLine("MODE", []string{channel, "+b"}, "")
	if err != nil {
		return nil, err
	}
	var entries []BanEntry
	err = c.syncQuery(query, "banlist", "endofbanlist", channel, timeout, func(params []string) {
		entries = append(entries, banEntryFromParams(params))
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func banEntryFromParams(params []string) BanEntry {
	e := BanEntry{Mask: params[2]}
	if len(params) > 3 {
		e.Setter = params[3]
	}
	if len(params) > 4 {
		e.SetAt = params[4]
	}
	return e
}

// syncQuery sends query and drains incoming lines until one matching
// endName for target arrives. Lines matching replyName for target are
// passed to each; every other line is deferred to the replay queue rather
// than dispatched now, preserving overall receive order.
func (c *Client) syncQuery(query, replyName, endName, target string, timeout time.Duration, each func(params []string)) error {
	if err := c.Raw(query); err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)
	for {
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		raw, err := c.readLine(deadline)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				return ErrTimeout
			}
			return err
		}

		_, command, params := parseLine(raw)
		forTarget := len(params) >= 2 && foldNick(params[1]) == foldNick(target)
		switch {
		case command == replyName && forTarget && len(params) >= 3:
			each(params)
		case command == endName && forTarget:
			return nil
		default:
			c.replay = append(c.replay, raw)
		}
	}
}

// processLine runs the dispatch pipeline for one line: structural state
// mutation first, then the generic server event, then derived events, then
// the self event when the origin is this client. Handlers therefore always
// observe post-mutation state.
func (c *Client) processLine(raw []byte) {
	origin, command, params := parseLine(raw)
	from := c.users.resolve(origin)

	c.react(from, command, params)

	ev := &Event{Kind: ServerEvent(command), From: from, Command: command, Params: params}
	c.emit(ev)
	c.emitDerived(from, command, params)

	if from != nil && from.User != nil && from.User == c.me {
		self := *ev
		self.Kind = SelfEvent(command)
		c.emit(&self)
	}
}

// react performs the client's own structural reactions to a line, before
// any handler runs.
func (c *Client) react(from *UserMask, command string, params []string) {
	fromUser := func() *User {
		if from == nil {
			return nil
		}
		return from.User
	}

	switch command {
	case "PING":
		var token string
		if len(params) > 0 {
			token = params[len(params)-1]
		}
		if err := c.SendWithLast("PONG", token); err != nil {
			c.logf("irc: pong: %v", err)
		}

	case "welcome":
		// The server may have truncated or changed the nick we asked for.
		if len(params) > 0 && c.me != nil && foldNick(params[0]) != foldNick(c.me.Nick) {
			c.users.rename(c.me, params[0])
		}

	case "featurelist":
		// "<me> <token>... :are supported by this server"
		if len(params) < 2 {
			return
		}
		for _, token := range params[1 : len(params)-1] {
			if c.server.Apply(token) == "NAMESX" {
				// ask for all prefixes per name in NAMES replies
				if err := c.Send("PROTOCTL", "NAMESX"); err != nil {
					c.logf("irc: protoctl: %v", err)
				}
			}
		}

	case "namreply":
		// "<me> ( = / * / @ ) <channel> :[prefixes]<nick> ..."
		if len(params) < 4 {
			return
		}
		channel := params[2]
		for _, name := range strings.Fields(params[3]) {
			var modes []byte
			for name != "" {
				m, ok := c.server.ModeForPrefix(name[0])
				if !ok {
					break
				}
				modes = append(modes, m)
				name = name[1:]
			}
			if name == "" {
				continue
			}
			u := c.users.get(name)
			c.users.joined(u, channel)
			for _, m := range modes {
				c.users.setMode(u, channel, m, true)
			}
		}

	case "banlist":
		if len(params) >= 3 {
			key := foldNick(params[1])
			c.bans[key] = append(c.bans[key], banEntryFromParams(params))
		}

	case "JOIN":
		if u := fromUser(); u != nil && len(params) > 0 {
			c.users.joined(u, params[0])
		}

	case "PART":
		if u := fromUser(); u != nil && len(params) > 0 {
			c.users.left(u, params[0], c.me)
			if u == c.me {
				c.users.channelGone(params[0], c.me)
			}
		}

	case "KICK":
		if len(params) >= 2 {
			if u := c.users.lookup(params[1]); u != nil {
				c.users.left(u, params[0], c.me)
				if u == c.me {
					c.users.channelGone(params[0], c.me)
				}
			}
		}

	case "QUIT":
		if u := fromUser(); u != nil {
			c.users.quit(u)
		}

	case "NICK":
		if u := fromUser(); u != nil && len(params) > 0 {
			c.users.rename(u, params[0])
		}

	case "MODE":
		if len(params) < 2 || !c.server.IsChannel(params[0]) {
			return
		}
		changes, err := parseModes(c.server, params[1], params[2:])
		if err != nil {
			c.logf("irc: malformed MODE line: %v", err)
			return
		}
		levels := c.server.UserLevelModes()
		for _, ch := range changes {
			letter := ch.Mode[1]
			if ch.Value == "" || !strings.Contains(levels, string(letter)) {
				continue
			}
			// MODE can be the first time we hear of a nick (before any
			// NAMES reply), so resolve it rather than requiring a record
			c.users.setMode(c.users.get(ch.Value), params[0], letter, ch.Mode[0] == '+')
		}
	}
}

// emitDerived fires the convenience events layered over raw commands.
func (c *Client) emitDerived(from *UserMask, command string, params []string) {
	derived := func(kind EventKind, cmd string, p ...string) {
		c.emit(&Event{Kind: kind, From: from, Command: cmd, Params: p})
	}

	switch command {
	case "welcome":
		derived(EventReady, command, params...)

	case "endofbanlist":
		if len(params) < 2 {
			return
		}
		key := foldNick(params[1])
		entries := c.bans[key]
		delete(c.bans, key)
		c.emit(&Event{Kind: EventBanList, From: from, Command: command, Params: params, Bans: entries})

	case "PRIVMSG":
		if len(params) < 2 {
			return
		}
		target, text := params[0], params[1]
		if verb, value, ok := ctcpSplit(text); ok {
			derived(EventCTCPRequest, verb, target, value)
			derived(CTCPRequestEvent(verb), verb, target, value)
			return
		}
		derived(EventMessage, command, params...)
		if c.server.IsChannel(target) {
			derived(EventChannelMessage, command, params...)
		} else {
			derived(EventPrivateMessage, command, params...)
		}

	case "NOTICE":
		// notices with no user origin are server noise; they still
		// dispatch as server_notice above, just not as user events
		if from == nil || from.User == nil || len(params) < 2 {
			return
		}
		target, text := params[0], params[1]
		if verb, value, ok := ctcpSplit(text); ok {
			derived(EventCTCPReply, verb, target, value)
			derived(CTCPReplyEvent(verb), verb, target, value)
			return
		}
		derived(EventNotice, command, params...)
		if c.server.IsChannel(target) {
			derived(EventChannelNotice, command, params...)
		} else {
			derived(EventPrivateNotice, command, params...)
		}
	}
}

// emit invokes every registered handler bound to the event's kind, in
// registration order. A panicking callback is logged and skipped.
func (c *Client) emit(ev *Event) {
	c.handlersMu.Lock()
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	handlers := make([]*Handler, len(keys))
	for i, k := range keys {
		handlers[i] = c.handlers[k]
	}
	c.handlersMu.Unlock()

	for i, h := range handlers {
		b, ok := h.bindings[ev.Kind]
		if !ok {
			continue
		}
		if b.async || c.AsyncCallbacks {
			go c.safeCall(keys[i], b.fn, ev)
		} else {
			c.safeCall(keys[i], b.fn, ev)
		}
	}
}

func (c *Client) safeCall(key string, fn func(*Client, *Event), ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logf("irc: handler %q panicked on %s: %v", key, ev.Kind, r)
		}
	}()
	fn(c, ev)
}
