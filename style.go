package irc

import (
	"strings"
	"unicode/utf8"
)

// Formatting control bytes as defined by mIRC and implemented by essentially
// every client since: https://modern.ircdocs.horse/formatting.html
const (
	codeBold      = 0x02
	codeColor     = 0x03
	codeReset     = 0x0f
	codeReverse   = 0x16
	codeUnderline = 0x1f
)

// Color is one of the sixteen mIRC palette colors.
type Color int

// ColorNone marks an unset color; a chunk without its own color inherits
// from the composition it is embedded in, or stays at the terminal default.
const ColorNone Color = -1

const (
	White Color = iota
	Black
	Blue
	Green
	Red
	Brown
	Purple
	Orange
	Yellow
	LightGreen
	Teal
	Cyan
	LightBlue
	Pink
	Grey
	LightGrey
)

// colorNames is the fixed keyword table used by ParseStyleName.
var colorNames = map[string]Color{
	"white":   White,
	"black":   Black,
	"blue":    Blue,
	"green":   Green,
	"red":     Red,
	"brown":   Brown,
	"purple":  Purple,
	"orange":  Orange,
	"yellow":  Yellow,
	"ltgreen": LightGreen,
	"teal":    Teal,
	"cyan":    Cyan,
	"ltblue":  LightBlue,
	"pink":    Pink,
	"grey":    Grey,
	"ltgrey":  LightGrey,
}

// code renders the color as the two-digit decimal used on the wire.
func (c Color) code() string {
	return string([]byte{'0' + byte(c)/10, '0' + byte(c)%10})
}

// Style describes the formatting state of one chunk of text.
type Style struct {
	Fg, Bg    Color
	Bold      bool
	Underline bool
	Reverse   bool
}

// plainStyle is the terminal's default state: no colors, no formats.
var plainStyle = Style{Fg: ColorNone, Bg: ColorNone}

// A Chunk is a run of text sharing one formatting state within a Styled
// value.
//
// The reset and uncolor markers only matter during composition: a chunk
// marked reset inherits nothing from an enclosing wrapper, and one marked
// uncolor inherits formats but no colors. They are not serialized as state.
type Chunk struct {
	Text    string
	Style   Style
	Reset   bool
	Uncolor bool
}

// Styled is a sequence of chunks forming one styled string. Values are
// composed with the builder functions (Plain, Bold, Fg, ...) and are
// immutable once serialized.
type Styled []Chunk

// Plain wraps an unformatted string.
func Plain(s string) Styled {
	return Styled{{Text: s, Style: plainStyle}}
}

// Join concatenates styled values without applying any formatting.
func Join(parts ...Styled) Styled {
	var out Styled
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// compose applies a wrapper style to parts. A chunk's own attributes win
// over the wrapper's: formats are unioned, colors are inherited only where
// the chunk has none and carries no reset/uncolor marker.
func compose(wrap Style, parts []Styled) Styled {
	var out Styled
	for _, p := range parts {
		for _, ch := range p {
			if !ch.Reset {
				ch.Style.Bold = ch.Style.Bold || wrap.Bold
				ch.Style.Underline = ch.Style.Underline || wrap.Underline
				ch.Style.Reverse = ch.Style.Reverse || wrap.Reverse
				if !ch.Uncolor {
					if ch.Style.Fg == ColorNone {
						ch.Style.Fg = wrap.Fg
					}
					if ch.Style.Bg == ColorNone {
						ch.Style.Bg = wrap.Bg
					}
				}
			}
			out = append(out, ch)
		}
	}
	return out
}

// Bold wraps parts in bold.
func Bold(parts ...Styled) Styled {
	return compose(Style{Fg: ColorNone, Bg: ColorNone, Bold: true}, parts)
}

// Underline wraps parts in underline.
func Underline(parts ...Styled) Styled {
	return compose(Style{Fg: ColorNone, Bg: ColorNone, Underline: true}, parts)
}

// Reverse wraps parts in reverse video.
func Reverse(parts ...Styled) Styled {
	return compose(Style{Fg: ColorNone, Bg: ColorNone, Reverse: true}, parts)
}

// Fg colors parts with the given foreground.
func Fg(fg Color, parts ...Styled) Styled {
	return compose(Style{Fg: fg, Bg: ColorNone}, parts)
}

// Colored colors parts with a foreground and background pair.
func Colored(fg, bg Color, parts ...Styled) Styled {
	return compose(Style{Fg: fg, Bg: bg}, parts)
}

// Uncolor marks parts so they refuse color inheritance from any enclosing
// composition. Formats still inherit.
func Uncolor(parts ...Styled) Styled {
	out := Join(parts...)
	for i := range out {
		out[i].Uncolor = true
	}
	return out
}

// Unstyled marks parts so they inherit nothing at all.
func Unstyled(parts ...Styled) Styled {
	out := Join(parts...)
	for i := range out {
		out[i].Reset = true
	}
	return out
}

// normalized drops empty chunks and merges adjacent chunks that share a
// style, so equivalent compositions serialize identically.
func (t Styled) normalized() Styled {
	var out Styled
	for _, ch := range t {
		if ch.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Style == ch.Style {
			out[n-1].Text += ch.Text
			continue
		}
		out = append(out, Chunk{Text: ch.Text, Style: ch.Style})
	}
	return out
}

// String returns the text content with all formatting dropped.
func (t Styled) String() string {
	var b strings.Builder
	for _, ch := range t {
		b.WriteString(ch.Text)
	}
	return b.String()
}

// Serialize renders the styled text to wire format. The trailing style is
// always closed back to the default state, so Bold(Plain("x")) serializes as
// "\x02x\x02" and appending plain text afterwards cannot leak formatting.
func (t Styled) Serialize() string {
	return serializeChunks(t.normalized(), true)
}

func serializeChunks(chunks Styled, closeTrailing bool) string {
	var b strings.Builder
	cur := plainStyle
	for _, ch := range chunks {
		writeTransition(&b, cur, ch.Style, ch.Text)
		b.WriteString(ch.Text)
		cur = ch.Style
	}
	if closeTrailing {
		writeTransition(&b, cur, plainStyle, "")
	}
	return b.String()
}

// writeTransition emits the control codes that move the decoder state from
// one style to the next. following is the text that will come right after
// the codes: when it starts with a digit or comma that a color code would
// swallow, a bold on/off pair is inserted as a separator (the classic mIRC
// trick).
func writeTransition(b *strings.Builder, from, to Style, following string) {
	if from.Bold != to.Bold {
		b.WriteByte(codeBold)
	}
	if from.Underline != to.Underline {
		b.WriteByte(codeUnderline)
	}
	if from.Reverse != to.Reverse {
		b.WriteByte(codeReverse)
	}
	if from.Fg == to.Fg && from.Bg == to.Bg {
		return
	}

	wroteBare := false
	if (to.Fg == ColorNone && from.Fg != ColorNone) || (to.Bg == ColorNone && from.Bg != ColorNone) {
		// A color cannot be cleared individually, so drop both and
		// re-set whatever remains.
		b.WriteByte(codeColor)
		from.Fg, from.Bg = ColorNone, ColorNone
		wroteBare = true
	}

	wroteBgless := false
	if to.Fg != from.Fg || to.Bg != from.Bg {
		b.WriteByte(codeColor)
		wroteBare = false
		if to.Fg != from.Fg {
			b.WriteString(to.Fg.code())
		}
		if to.Bg != from.Bg {
			b.WriteByte(',')
			b.WriteString(to.Bg.code())
		} else {
			wroteBgless = true
		}
	}

	if len(following) == 0 {
		return
	}
	next := following[0]
	if (wroteBare && (isDigit(next) || next == ',')) || (wroteBgless && next == ',') {
		b.WriteByte(codeBold)
		b.WriteByte(codeBold)
	}
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// ParseStyled decodes wire formatting codes into styled chunks. It never
// fails: unknown control characters pass through as text. The result
// round-trips: serializing it reproduces the input's formatting sequence
// modulo normalization.
func ParseStyled(raw string) Styled {
	var out Styled
	var text strings.Builder
	cur := plainStyle

	flush := func(next Style) {
		if text.Len() > 0 {
			out = append(out, Chunk{Text: text.String(), Style: cur})
			text.Reset()
		}
		cur = next
	}

	for i := 0; i < len(raw); {
		switch raw[i] {
		case codeReset:
			flush(plainStyle)
			i++
		case codeBold:
			st := cur
			st.Bold = !st.Bold
			flush(st)
			i++
		case codeUnderline:
			st := cur
			st.Underline = !st.Underline
			flush(st)
			i++
		case codeReverse:
			st := cur
			st.Reverse = !st.Reverse
			flush(st)
			i++
		case codeColor:
			st := cur
			fg, bg, n := parseColorCode(raw[i+1:])
			if n == 0 {
				st.Fg, st.Bg = ColorNone, ColorNone
			} else {
				if fg != ColorNone {
					st.Fg = fg
				}
				if bg != ColorNone {
					st.Bg = bg
				}
			}
			flush(st)
			i += 1 + n
		default:
			text.WriteByte(raw[i])
			i++
		}
	}
	flush(cur)
	return out
}

// parseColorCode reads the digits following a \x03: up to two for the
// foreground, then optionally a comma and up to two for the background. A
// comma is consumed even when no background digits follow. n is the number
// of bytes consumed; n == 0 means a bare \x03 (uncolor).
func parseColorCode(s string) (fg, bg Color, n int) {
	fg, bg = ColorNone, ColorNone
	fg, n = parseColorDigits(s)
	rest := s[n:]
	if len(rest) > 0 && rest[0] == ',' {
		var m int
		bg, m = parseColorDigits(rest[1:])
		n += 1 + m
	}
	return fg, bg, n
}

func parseColorDigits(s string) (Color, int) {
	if len(s) == 0 || !isDigit(s[0]) {
		return ColorNone, 0
	}
	if len(s) == 1 || !isDigit(s[1]) {
		return Color(s[0] - '0'), 1
	}
	return Color(s[0]-'0')*10 + Color(s[1]-'0'), 2
}

// Strip removes every formatting and color code from raw.
func Strip(raw string) string {
	return ParseStyled(raw).String()
}

// ParseStyleName resolves a compound CamelCase style keyword such as
// "BoldRed" or "RedBlue" (foreground then background) against the fixed
// color and format tables, returning a wrapper equivalent to chaining the
// named builders. "None" stands for an explicit uncolor. ok is false when
// any word does not resolve.
func ParseStyleName(name string) (wrap func(parts ...Styled) Styled, ok bool) {
	words := splitCamel(name)
	if len(words) == 0 {
		return nil, false
	}

	st := plainStyle
	uncolor := false
	seenFg, seenBg := false, false

	for _, word := range words {
		switch {
		case word == "bold":
			st.Bold = true
		case word == "underline":
			st.Underline = true
		case word == "reverse":
			st.Reverse = true
		case word == "none" && !seenFg && !seenBg:
			uncolor = true
			seenFg = true
		default:
			c, isColor := colorNames[word]
			if !isColor || uncolor {
				return nil, false
			}
			switch {
			case !seenFg:
				st.Fg = c
				seenFg = true
			case !seenBg:
				st.Bg = c
				seenBg = true
			default:
				return nil, false
			}
		}
	}

	style := st
	if uncolor {
		return func(parts ...Styled) Styled {
			return Uncolor(compose(style, parts))
		}, true
	}
	return func(parts ...Styled) Styled {
		return compose(style, parts)
	}, true
}

// splitCamel splits "LtGreenBlack" into its lowercased words, breaking
// before each uppercase letter. "Lt" prefixes stay attached to the color
// word that follows.
func splitCamel(name string) []string {
	var words []string
	start := 0
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			words = append(words, strings.ToLower(name[start:i]))
			start = i
		}
	}
	if start < len(name) {
		words = append(words, strings.ToLower(name[start:]))
	}

	// re-join the "lt" light-color prefix
	var out []string
	for i := 0; i < len(words); i++ {
		if words[i] == "lt" && i+1 < len(words) {
			out = append(out, "lt"+words[i+1])
			i++
			continue
		}
		out = append(out, words[i])
	}
	return out
}

// splitLogicalLines splits t on embedded newlines. Lines whose visible text
// is blank after trimming are dropped.
func splitLogicalLines(t Styled) []Styled {
	lines := []Styled{nil}
	for _, ch := range t.normalized() {
		parts := strings.Split(ch.Text, "\n")
		for i, part := range parts {
			if i > 0 {
				lines = append(lines, nil)
			}
			if part == "" {
				continue
			}
			n := len(lines) - 1
			lines[n] = append(lines[n], Chunk{Text: part, Style: ch.Style})
		}
	}

	out := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line.String()) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// wrapStyled splits t into serialized physical lines of at most budget
// bytes each. Embedded newlines always break; beyond that, chunks are
// packed greedily and kept whole, and a single chunk is split at a rune
// boundary only when it cannot fit on a line by itself. Each continuation
// line re-opens with the formatting state carried over from the previous
// one, so concatenating the lines' styled content reproduces the original
// formatting sequence.
func wrapStyled(t Styled, budget int) []string {
	if budget < 16 {
		budget = 16
	}

	var out []string
	for _, line := range splitLogicalLines(t) {
		var cur Styled
		flush := func() {
			if len(cur) > 0 {
				out = append(out, serializeChunks(cur, true))
				cur = nil
			}
		}

		for _, ch := range line {
			for {
				candidate := append(append(Styled{}, cur...), ch)
				if len(serializeChunks(candidate.normalized(), true)) <= budget {
					cur = candidate
					break
				}
				if len(cur) > 0 {
					flush()
					continue
				}
				// The chunk alone exceeds the budget: split it at
				// the largest rune boundary that still fits.
				head, tail := splitChunk(ch, budget)
				cur = Styled{head}
				flush()
				ch = tail
			}
		}
		flush()
	}
	return out
}

// splitChunk cuts ch so that the head, serialized on its own, fits within
// budget. The cut lands on a rune boundary and always consumes at least one
// rune so the wrapper makes progress.
func splitChunk(ch Chunk, budget int) (head, tail Chunk) {
	cut := 0
	for cut < len(ch.Text) {
		_, size := utf8.DecodeRuneInString(ch.Text[cut:])
		probe := Styled{{Text: ch.Text[:cut+size], Style: ch.Style}}
		if cut > 0 && len(serializeChunks(probe, true)) > budget {
			break
		}
		cut += size
	}

	head = Chunk{Text: ch.Text[:cut], Style: ch.Style}
	tail = Chunk{Text: ch.Text[cut:], Style: ch.Style}
	return head, tail
}
