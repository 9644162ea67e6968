package irc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeFormats(t *testing.T) {
	for _, tt := range []struct {
		name string
		in   Styled
		want string
	}{
		{
			name: "bold closes before plain suffix",
			in:   Join(Bold(Plain("x")), Plain("y")),
			want: "\x02x\x02y",
		},
		{
			name: "underline",
			in:   Underline(Plain("u")),
			want: "\x1fu\x1f",
		},
		{
			name: "reverse",
			in:   Reverse(Plain("r")),
			want: "\x16r\x16",
		},
		{
			name: "foreground color",
			in:   Fg(Red, Plain("hot")),
			want: "\x0304hot\x03",
		},
		{
			name: "foreground and background",
			in:   Colored(Yellow, Blue, Plain("warn")),
			want: "\x0308,02warn\x03",
		},
		{
			name: "nested formats stack",
			in:   Bold(Plain("a"), Underline(Plain("b"))),
			want: "\x02a\x1fb\x02\x1f",
		},
		{
			name: "plain is untouched",
			in:   Plain("nothing"),
			want: "nothing",
		},
		{
			name: "color change without closing first",
			in:   Join(Fg(Red, Plain("r")), Fg(Blue, Plain("b"))),
			want: "\x0304r\x0302b\x03",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Serialize())
		})
	}
}

func TestSerializeGuardsAmbiguousText(t *testing.T) {
	// text starting with ',' right after a background-less color code would
	// be swallowed by the decoder without a separator
	got := Fg(Red, Plain(",x")).Serialize()
	assert.Equal(t, "\x0304\x02\x02,x\x03", got)

	// digits after a bare uncolor would be read as a color code
	got = Join(Fg(Red, Plain("a")), Plain("1b")).Serialize()
	assert.Equal(t, "\x0304a\x03\x02\x021b", got)
}

func TestParseStyled(t *testing.T) {
	got := ParseStyled("\x02bold\x02 then \x030412red")
	want := Styled{
		{Text: "bold", Style: Style{Fg: ColorNone, Bg: ColorNone, Bold: true}},
		{Text: " then ", Style: plainStyle},
		{Text: "12red", Style: Style{Fg: Red, Bg: ColorNone}},
	}
	assert.Equal(t, want, got)
}

func TestParseStyledBareColorClearsBoth(t *testing.T) {
	got := ParseStyled("\x0304,02ab\x03cd")
	want := Styled{
		{Text: "ab", Style: Style{Fg: Red, Bg: Blue}},
		{Text: "cd", Style: plainStyle},
	}
	assert.Equal(t, want, got)
}

func TestParseStyledConsumesLoneComma(t *testing.T) {
	// a comma following color digits is consumed even with no background
	// digits after it
	got := ParseStyled("\x0304,x")
	want := Styled{{Text: "x", Style: Style{Fg: Red, Bg: ColorNone}}}
	assert.Equal(t, want, got)
}

func TestSerializeParseRoundTrip(t *testing.T) {
	inputs := []Styled{
		Plain("hello"),
		Bold(Plain("a"), Fg(Green, Plain("b"))),
		Colored(Pink, Black, Plain("c,d")),
		Join(Fg(Red, Plain("1")), Plain("2")),
		Underline(Reverse(Plain("x"))),
		Uncolor(Plain("u")),
	}
	for _, in := range inputs {
		wire := in.Serialize()
		back := ParseStyled(wire)
		assert.Equal(t, in.normalized(), back.normalized(), "wire %q", wire)
	}
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "plain red text", Strip("\x02plain\x02 \x0304red\x03 text"))
	assert.Equal(t, "untouched", Strip("untouched"))
}

func TestUncolorBlocksColorInheritanceOnly(t *testing.T) {
	got := Fg(Red, Bold(Uncolor(Plain("x")))).normalized()
	require.Len(t, got, 1)
	assert.Equal(t, ColorNone, got[0].Style.Fg)
	assert.True(t, got[0].Style.Bold)
}

func TestUnstyledBlocksAllInheritance(t *testing.T) {
	got := Bold(Fg(Red, Unstyled(Plain("x")))).normalized()
	require.Len(t, got, 1)
	assert.Equal(t, plainStyle, got[0].Style)
}

func TestChunkOwnStyleWins(t *testing.T) {
	got := Fg(Red, Fg(Blue, Plain("inner"))).normalized()
	require.Len(t, got, 1)
	assert.Equal(t, Blue, got[0].Style.Fg)
}

func TestParseStyleName(t *testing.T) {
	wrap, ok := ParseStyleName("BoldRed")
	require.True(t, ok)
	assert.Equal(t, "\x02\x0304x\x02\x03", wrap(Plain("x")).Serialize())

	wrap, ok = ParseStyleName("RedBlue")
	require.True(t, ok)
	assert.Equal(t, "\x0304,02x\x03", wrap(Plain("x")).Serialize())

	wrap, ok = ParseStyleName("Reverse")
	require.True(t, ok)
	assert.Equal(t, "\x16x\x16", wrap(Plain("x")).Serialize())

	wrap, ok = ParseStyleName("LtGreen")
	require.True(t, ok)
	assert.Equal(t, "\x0309x\x03", wrap(Plain("x")).Serialize())

	wrap, ok = ParseStyleName("None")
	require.True(t, ok)
	got := Fg(Red, wrap(Plain("x"))).normalized()
	require.Len(t, got, 1)
	assert.Equal(t, ColorNone, got[0].Style.Fg)

	_, ok = ParseStyleName("Sparkly")
	assert.False(t, ok)
	_, ok = ParseStyleName("")
	assert.False(t, ok)
}

func TestWrapStyledPlainLongMessage(t *testing.T) {
	text := strings.Repeat("0123456789", 100)
	lines := wrapStyled(Plain(text), 443)
	require.Greater(t, len(lines), 1)

	var rebuilt strings.Builder
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), 443)
		rebuilt.WriteString(Strip(line))
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestWrapStyledKeepsChunksWholeWhenPossible(t *testing.T) {
	msg := Join(
		Bold(Plain(strings.Repeat("a", 30))),
		Plain(strings.Repeat("b", 30)),
	)
	lines := wrapStyled(msg, 40)
	require.Len(t, lines, 2)
	assert.Equal(t, "\x02"+strings.Repeat("a", 30)+"\x02", lines[0])
	assert.Equal(t, strings.Repeat("b", 30), lines[1])
}

func TestWrapStyledSplitsOnNewlines(t *testing.T) {
	lines := wrapStyled(Plain("one\ntwo\n\n   \nthree"), 400)
	assert.Equal(t, []string{"one", "two", "three"}, lines)
}

func TestWrapStyledSplitsOversizedChunkOnRuneBoundary(t *testing.T) {
	text := strings.Repeat("é", 30) // two bytes per rune
	lines := wrapStyled(Plain(text), 21)
	var rebuilt string
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), 21)
		// no broken runes
		assert.True(t, strings.HasPrefix(line, "é"))
		rebuilt += line
	}
	assert.Equal(t, text, rebuilt)
}
