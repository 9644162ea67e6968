package irc

import (
	"strconv"
	"strings"
)

// ServerInfo stores the feature tokens a server advertises through its
// "featurelist" (005, RPL_ISUPPORT) replies and derives typed rules from
// them: how channel modes consume parameters, which modes double as name
// prefixes, how many entries a mode list may hold.
//
// Every derived view is recomputed from the raw token strings on each call.
// Nothing is cached, so a consumer always observes the latest featurelist
// even when tokens arrive over several 005 lines.
type ServerInfo struct {
	info map[string]string
}

// defaults mirror what ircds assumed before ISUPPORT existed, so the client
// behaves sensibly against servers that never send a featurelist.
func newServerInfo() *ServerInfo {
	return &ServerInfo{info: map[string]string{
		"CHANMODES": "ovb,k,l,psitnm",
		"CHANTYPES": "#&",
		"PREFIX":    "(ov)@+",
		"MAXLIST":   "b:10,e:10,I:10",
		"MODES":     "3",
	}}
}

// Apply stores one feature token. "NAME=VALUE" sets NAME to VALUE; a bare
// "NAME" records presence with an empty value. The token name is returned so
// the dispatcher can react to specific tokens (NAMESX negotiation); the
// store itself never performs I/O.
func (s *ServerInfo) Apply(token string) (name string) {
	name, value, _ := strings.Cut(token, "=")
	s.info[name] = value
	return name
}

// Get returns the raw value of a feature token and whether it was advertised
// (or defaulted). Bare tokens report an empty value with ok set.
func (s *ServerInfo) Get(name string) (value string, ok bool) {
	value, ok = s.info[name]
	return value, ok
}

// Has reports whether the server advertised the feature token.
func (s *ServerInfo) Has(name string) bool {
	_, ok := s.info[name]
	return ok
}

// ChanModes classifies channel modes by how they consume parameters,
// following the four CHANMODES categories:
//
//	A: list modes - always take a parameter and toggle list membership (bans)
//	B: always take a parameter
//	C: take a parameter only when being set
//	D: never take a parameter
type ChanModes struct {
	A string
	B string
	C string
	D string
}

// ChannelModes parses the CHANMODES token into its four categories.
func (s *ServerInfo) ChannelModes() ChanModes {
	parts := strings.SplitN(s.info["CHANMODES"], ",", 4)
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	return ChanModes{A: parts[0], B: parts[1], C: parts[2], D: parts[3]}
}

// A PrefixMode pairs a channel-user mode letter with the prefix character it
// renders as in NAMES replies ('o' with '@', 'v' with '+').
type PrefixMode struct {
	Mode   byte
	Prefix byte
}

// PrefixModes parses the PREFIX token, e.g. "(ohv)@%+", preserving the
// server's order: most powerful mode first. A malformed token yields nil.
func (s *ServerInfo) PrefixModes() []PrefixMode {
	raw := s.info["PREFIX"]
	if !strings.HasPrefix(raw, "(") {
		return nil
	}
	end := strings.IndexByte(raw, ')')
	if end < 0 {
		return nil
	}
	letters, prefixes := raw[1:end], raw[end+1:]
	if len(letters) != len(prefixes) {
		return nil
	}
	table := make([]PrefixMode, len(letters))
	for i := 0; i < len(letters); i++ {
		table[i] = PrefixMode{Mode: letters[i], Prefix: prefixes[i]}
	}
	return table
}

// ModeForPrefix maps a display prefix character ('@') to its mode letter
// ('o'). ok is false for characters that are not prefixes on this server.
func (s *ServerInfo) ModeForPrefix(prefix byte) (mode byte, ok bool) {
	for _, pm := range s.PrefixModes() {
		if pm.Prefix == prefix {
			return pm.Mode, true
		}
	}
	return 0, false
}

// prefixModeLetters returns the mode letters of the prefix table as a set
// string, e.g. "ov".
func (s *ServerInfo) prefixModeLetters() string {
	var b strings.Builder
	for _, pm := range s.PrefixModes() {
		b.WriteByte(pm.Mode)
	}
	return b.String()
}

// ListModes returns the mode letters the server tracks as bounded lists,
// taken from the MAXLIST token ("b:10,e:10,I:10" yields "beI").
func (s *ServerInfo) ListModes() string {
	var b strings.Builder
	for _, pair := range strings.Split(s.info["MAXLIST"], ",") {
		modes, _, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		b.WriteString(modes)
	}
	return b.String()
}

// MaxListEntries returns the advertised size limit for one list mode, or 0
// when the server did not bound it.
func (s *ServerInfo) MaxListEntries(mode byte) int {
	for _, pair := range strings.Split(s.info["MAXLIST"], ",") {
		modes, limit, ok := strings.Cut(pair, ":")
		if !ok || !strings.Contains(modes, string(mode)) {
			continue
		}
		n, err := strconv.Atoi(limit)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// MaxModes returns how many parameterized mode changes the server accepts in
// a single MODE command (the MODES token, 3 when absent or unparsable).
func (s *ServerInfo) MaxModes() int {
	n, err := strconv.Atoi(s.info["MODES"])
	if err != nil || n < 1 {
		return 3
	}
	return n
}

// UserLevelModes returns the modes held by channel members: the prefix modes
// plus any category-A mode that is not a list (legacy servers put o/v in
// category A).
func (s *ServerInfo) UserLevelModes() string {
	lists := s.ListModes()
	var b strings.Builder
	for _, m := range []byte(s.ChannelModes().A) {
		if !strings.Contains(lists, string(m)) {
			b.WriteByte(m)
		}
	}
	for _, m := range []byte(s.prefixModeLetters()) {
		if !strings.Contains(b.String(), string(m)) {
			b.WriteByte(m)
		}
	}
	return b.String()
}

// ParamModes returns every mode letter that can consume a parameter in a
// MODE change: categories A, B, C and the prefix modes. Category C modes
// only take a parameter when being set; parseModes accounts for that.
func (s *ServerInfo) ParamModes() string {
	cm := s.ChannelModes()
	out := cm.A + cm.B + cm.C
	for _, m := range []byte(s.prefixModeLetters()) {
		if !strings.Contains(out, string(m)) {
			out += string(m)
		}
	}
	return out
}

// ChanTypes returns the channel name prefix characters (CHANTYPES).
func (s *ServerInfo) ChanTypes() string {
	return s.info["CHANTYPES"]
}

// IsChannel reports whether name starts with one of the server's channel
// prefix characters.
func (s *ServerInfo) IsChannel(name string) bool {
	return name != "" && strings.Contains(s.ChanTypes(), string(name[0]))
}
