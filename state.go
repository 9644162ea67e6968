package irc

import (
	"regexp"
	"strings"
)

// foldNick normalizes a nick for use as a lookup key. Nicks differing only
// by case are the same user.
func foldNick(nick string) string {
	return strings.ToLower(nick)
}

// A User is the client's record of someone seen on the network. The same
// *User is kept across nick changes, so it is a stable identity to hang
// application data on for as long as the user stays visible.
type User struct {
	Nick  string
	Ident string
	Host  string

	// channels maps folded channel name to the display name, modes maps
	// folded channel name to the user-level mode letters held there.
	channels map[string]string
	modes    map[string]map[byte]bool

	deleted bool
}

func newUser(nick string) *User {
	return &User{
		Nick:     nick,
		channels: make(map[string]string),
		modes:    make(map[string]map[byte]bool),
	}
}

// InChannel reports whether the user is known to be in the channel.
func (u *User) InChannel(channel string) bool {
	_, ok := u.channels[foldNick(channel)]
	return ok
}

// Channels returns the channels the user shares with us, in display form.
func (u *User) Channels() []string {
	out := make([]string, 0, len(u.channels))
	for _, display := range u.channels {
		out = append(out, display)
	}
	return out
}

// ChannelModes returns the user-level mode letters the user holds on the
// channel ("o" for a channel operator).
func (u *User) ChannelModes(channel string) string {
	var b strings.Builder
	for m := range u.modes[foldNick(channel)] {
		b.WriteByte(m)
	}
	return b.String()
}

// String renders the user as nick!ident@host, omitting the parts that have
// not been learned yet.
func (u *User) String() string {
	s := u.Nick
	if u.Ident != "" {
		s += "!" + u.Ident
	}
	if u.Host != "" {
		s += "@" + u.Host
	}
	return s
}

// A UserMask is the parsed origin prefix of one message. Nick, Ident, and
// Host are the literal fields from that line; User points at the registry
// record, which survives across lines and nick changes. For server origins
// (no '!') only Host is set and User is nil.
type UserMask struct {
	Nick  string
	Ident string
	Host  string
	User  *User
}

func (m *UserMask) String() string {
	if m.Nick == "" {
		return m.Host
	}
	return m.Nick + "!" + m.Ident + "@" + m.Host
}

var maskRE = regexp.MustCompile(`^([^!]+)!([^@]+)@(.+)$`)

// tracker is the registry of visible users, keyed by folded nick. It is
// only touched from the read loop, so it needs no locking of its own.
type tracker struct {
	users map[string]*User

	// report is called with a short description whenever a line refers to
	// state the tracker does not have (an unknown or deleted user). The
	// line is otherwise ignored.
	report func(format string, v ...any)
}

func newTracker(report func(format string, v ...any)) *tracker {
	return &tracker{users: make(map[string]*User), report: report}
}

// resolve parses an origin prefix and returns its mask, creating or
// updating the registry record for user origins. The host is refreshed on
// every sighting; the ident is only filled in when the record has none, so
// an early sighting with a resolved ident is not clobbered by a later
// cloaked one.
func (t *tracker) resolve(origin string) *UserMask {
	if origin == "" {
		return nil
	}
	parts := maskRE.FindStringSubmatch(origin)
	if parts == nil {
		return &UserMask{Host: origin}
	}
	nick, ident, host := parts[1], parts[2], parts[3]

	u := t.users[foldNick(nick)]
	if u == nil {
		u = newUser(nick)
		u.Ident = ident
		u.Host = host
		t.users[foldNick(nick)] = u
	} else {
		u.Nick = nick
		if u.Ident == "" {
			u.Ident = ident
		}
		u.Host = host
	}
	return &UserMask{Nick: nick, Ident: ident, Host: host, User: u}
}

// lookup finds a user by nick. Nil when unknown.
func (t *tracker) lookup(nick string) *User {
	return t.users[foldNick(nick)]
}

// get finds or creates a user record by bare nick (for NAMES replies, which
// carry no ident or host).
func (t *tracker) get(nick string) *User {
	if u := t.users[foldNick(nick)]; u != nil {
		return u
	}
	u := newUser(nick)
	t.users[foldNick(nick)] = u
	return u
}

// joined records channel membership. Idempotent.
func (t *tracker) joined(u *User, channel string) {
	if t.dead(u, "join to "+channel) {
		return
	}
	key := foldNick(channel)
	u.channels[key] = channel
	if u.modes[key] == nil {
		u.modes[key] = make(map[byte]bool)
	}
}

// left removes channel membership and drops the record entirely once no
// shared channels remain, unless it is our own record. Idempotent.
func (t *tracker) left(u *User, channel string, self *User) {
	if t.dead(u, "part from "+channel) {
		return
	}
	key := foldNick(channel)
	delete(u.channels, key)
	delete(u.modes, key)
	if len(u.channels) == 0 && u != self {
		t.remove(u)
	}
}

// channelGone forgets a channel across the whole registry, used when we
// leave it ourselves: everyone visible only through that channel stops
// being visible.
func (t *tracker) channelGone(channel string, self *User) {
	key := foldNick(channel)
	for _, u := range t.users {
		if u == self {
			continue
		}
		delete(u.channels, key)
		delete(u.modes, key)
		if len(u.channels) == 0 {
			t.remove(u)
		}
	}
}

// quit clears the record's memberships and removes it from the registry.
// The *User itself stays valid for anyone still holding it, but is marked
// deleted so stale references cannot mutate fresh state.
func (t *tracker) quit(u *User) {
	u.channels = make(map[string]string)
	u.modes = make(map[string]map[byte]bool)
	t.remove(u)
}

func (t *tracker) remove(u *User) {
	delete(t.users, foldNick(u.Nick))
	u.deleted = true
}

// rename re-keys a record under its new nick, preserving identity. A key
// collision with a different live record is reported and the stale record
// dropped; the server is authoritative about who holds a nick.
func (t *tracker) rename(u *User, newNick string) {
	if t.dead(u, "nick change to "+newNick) {
		return
	}
	oldKey, newKey := foldNick(u.Nick), foldNick(newNick)
	if other := t.users[newKey]; other != nil && other != u {
		t.report("nick %s already tracked, replacing", newNick)
		other.deleted = true
	}
	delete(t.users, oldKey)
	u.Nick = newNick
	t.users[newKey] = u
}

// setMode flips one user-level channel mode on the record.
func (t *tracker) setMode(u *User, channel string, mode byte, on bool) {
	if t.dead(u, "mode change on "+channel) {
		return
	}
	key := foldNick(channel)
	if u.modes[key] == nil {
		u.modes[key] = make(map[byte]bool)
	}
	if on {
		u.modes[key][mode] = true
	} else {
		delete(u.modes[key], mode)
	}
}

// dead guards mutations: a deleted record is reported and left untouched.
func (t *tracker) dead(u *User, op string) bool {
	if u == nil {
		return true
	}
	if u.deleted {
		t.report("ignoring %s for deleted user %s", op, u.Nick)
		return true
	}
	return false
}
