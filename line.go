package irc

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// decodeLine converts one raw wire line to a string. Valid UTF-8 passes
// through untouched (which covers plain ASCII); anything else is decoded as
// ISO 8859-15, which maps every byte to some rune, so a malformed line can
// never fail to decode.
func decodeLine(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	s, err := charmap.ISO8859_15.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}

// parseLine splits a raw line into its origin mask, command, and parameters.
//
// origin is "" when the line carried no source prefix. The command is
// normalized through commandName, so numerics come back as symbolic names
// ("001" parses as "welcome"). Parameters are split on single spaces; a
// parameter starting with ':' begins the trailing parameter, which absorbs
// the rest of the line verbatim.
func parseLine(raw []byte) (origin, command string, params []string) {
	text := strings.TrimRight(decodeLine(raw), "\r\n")

	if strings.HasPrefix(text, ":") {
		if pos := strings.Index(text, " "); pos > 0 {
			origin = text[1:pos]
			text = text[pos+1:]
		}
	}

	var rest string
	if pos := strings.Index(text, " "); pos > 0 {
		command, rest = text[:pos], text[pos+1:]
	} else {
		command = text
	}

	if rest != "" {
		trailing := false
		for _, tok := range strings.Split(rest, " ") {
			switch {
			case trailing:
				params[len(params)-1] += " " + tok
			case strings.HasPrefix(tok, ":"):
				trailing = true
				params = append(params, tok[1:])
			default:
				params = append(params, tok)
			}
		}
	}

	return origin, commandName(command), params
}

// crlfStripper removes line breaks from trailing parameters so that a caller
// can never forge extra wire lines through a message body.
var crlfStripper = strings.NewReplacer("\r", "", "\n", " ")

// buildLine assembles one outgoing wire line without the CR-LF terminator.
//
// Every entry of params must be a single token: no spaces, no line breaks,
// no leading ':'. Empty params are skipped. last, when non-empty, is written
// after a ':' separator and may contain spaces.
func buildLine(command string, params []string, last string) (string, error) {
	var b strings.Builder
	b.WriteString(command)

	for _, p := range params {
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, " \r\n") || p[0] == ':' {
			return "", &FramingError{Command: command, Param: p}
		}
		b.WriteByte(' ')
		b.WriteString(p)
	}

	if last != "" {
		b.WriteString(" :")
		b.WriteString(crlfStripper.Replace(last))
	}

	return b.String(), nil
}
