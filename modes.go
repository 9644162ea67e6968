package irc

import (
	"sort"
	"strings"
)

// A ModeChange is one signed channel or user mode with its parameter, if the
// mode takes one. Mode is the sign followed by the letter ("+o", "-b").
type ModeChange struct {
	Mode  string
	Value string
}

// parseModes expands a MODE change line ("+ov-k", followed by arguments)
// into one ModeChange per letter. Parameter consumption follows the
// server's CHANMODES categories: list and prefix modes and category B
// always take one, category C only when setting, category D never. A
// FramingError is returned when modestr does not start with a sign or when
// the arguments run out before the modes that need them.
func parseModes(info *ServerInfo, modestr string, args []string) ([]ModeChange, error) {
	if modestr == "" || (modestr[0] != '+' && modestr[0] != '-') {
		return nil, &FramingError{Command: "MODE", Param: modestr}
	}

	cm := info.ChannelModes()
	always := cm.A + cm.B + info.prefixModeLetters()

	var out []ModeChange
	sign := byte('+')
	for i := 0; i < len(modestr); i++ {
		c := modestr[i]
		if c == '+' || c == '-' {
			sign = c
			continue
		}

		takesArg := strings.IndexByte(always, c) >= 0 ||
			(sign == '+' && strings.IndexByte(cm.C, c) >= 0)

		change := ModeChange{Mode: string([]byte{sign, c})}
		if takesArg {
			if len(args) == 0 {
				return nil, &FramingError{Command: "MODE", Param: modestr}
			}
			change.Value = args[0]
			args = args[1:]
		}
		out = append(out, change)
	}
	return out, nil
}

// The wire line budget for one MODE command; conservative so the command
// fits even with the server's own prefix prepended on rebroadcast.
const modeLineBudget = 450

// buildModeCommands packs mode changes into as few MODE command lines as
// possible. Each line carries at most maxModes parameterized changes and
// stays under the line budget. Changes are reordered into a canonical form
// first (parameterized before bare, then by mode, then by value), so the
// same set of changes always produces the same commands.
func buildModeCommands(target string, changes []ModeChange, maxModes int) ([]string, error) {
	for _, c := range changes {
		if len(c.Mode) != 2 || (c.Mode[0] != '+' && c.Mode[0] != '-') {
			return nil, &FramingError{Command: "MODE", Param: c.Mode}
		}
		if strings.ContainsAny(c.Value, " \r\n") {
			return nil, &FramingError{Command: "MODE", Param: c.Value}
		}
	}
	if maxModes < 1 {
		maxModes = 1
	}

	sorted := make([]ModeChange, len(changes))
	copy(sorted, changes)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if (a.Value == "") != (b.Value == "") {
			return a.Value != ""
		}
		if a.Mode != b.Mode {
			return a.Mode < b.Mode
		}
		return a.Value < b.Value
	})

	var out []string
	var modes, values strings.Builder
	valued := 0
	sign := byte(0)

	flush := func() {
		if modes.Len() == 0 {
			return
		}
		out = append(out, "MODE "+target+" "+modes.String()+values.String())
		modes.Reset()
		values.Reset()
		valued = 0
		sign = 0
	}

	for _, c := range sorted {
		addLen := len(c.Mode)
		if c.Value != "" {
			addLen += 1 + len(c.Value)
		}
		lineLen := len("MODE ") + len(target) + 1 + modes.Len() + values.Len()
		if (c.Value != "" && valued == maxModes) || (modes.Len() > 0 && lineLen+addLen > modeLineBudget) {
			flush()
		}

		if c.Mode[0] != sign {
			sign = c.Mode[0]
			modes.WriteByte(sign)
		}
		modes.WriteByte(c.Mode[1])
		if c.Value != "" {
			values.WriteByte(' ')
			values.WriteString(c.Value)
			valued++
		}
	}
	flush()
	return out, nil
}
