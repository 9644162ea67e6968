package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	for _, tt := range []struct {
		name    string
		raw     string
		origin  string
		command string
		params  []string
	}{
		{
			name:    "privmsg with origin and trailing",
			raw:     ":dan!d@localhost PRIVMSG #chan :Hey what's up!\r\n",
			origin:  "dan!d@localhost",
			command: "PRIVMSG",
			params:  []string{"#chan", "Hey what's up!"},
		},
		{
			name:    "no origin",
			raw:     "PING :tolsun.oulu.fi\r\n",
			command: "PING",
			params:  []string{"tolsun.oulu.fi"},
		},
		{
			name:    "numeric maps to symbolic name",
			raw:     ":irc.example.org 001 dan :Welcome to the network\r\n",
			origin:  "irc.example.org",
			command: "welcome",
			params:  []string{"dan", "Welcome to the network"},
		},
		{
			name:    "lowercase command is normalized",
			raw:     ":dan!d@h privmsg dan :hi\r\n",
			origin:  "dan!d@h",
			command: "PRIVMSG",
			params:  []string{"dan", "hi"},
		},
		{
			name:    "trailing absorbs colons and spaces",
			raw:     ":srv 332 dan #chan :topic: a :b c\r\n",
			origin:  "srv",
			command: "currenttopic",
			params:  []string{"dan", "#chan", "topic: a :b c"},
		},
		{
			name:    "command only",
			raw:     "AWAY\r\n",
			command: "AWAY",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			origin, command, params := parseLine([]byte(tt.raw))
			assert.Equal(t, tt.origin, origin)
			assert.Equal(t, tt.command, command)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestDecodeLineFallback(t *testing.T) {
	// "caf\xe9" is latin-encoded, not valid UTF-8
	got := decodeLine([]byte{'c', 'a', 'f', 0xe9})
	assert.Equal(t, "café", got)

	// valid UTF-8 passes through unchanged
	assert.Equal(t, "café", decodeLine([]byte("café")))
}

func TestBuildLine(t *testing.T) {
	line, err := buildLine("PRIVMSG", []string{"#chan"}, "hello world")
	require.NoError(t, err)
	assert.Equal(t, "PRIVMSG #chan :hello world", line)

	line, err = buildLine("JOIN", []string{"#chan", ""}, "")
	require.NoError(t, err)
	assert.Equal(t, "JOIN #chan", line)
}

func TestBuildLineRejectsUnframableParams(t *testing.T) {
	for _, bad := range []string{"two words", "semi\r\ncolon", ":leading"} {
		_, err := buildLine("JOIN", []string{bad}, "")
		var ferr *FramingError
		require.ErrorAs(t, err, &ferr, "param %q", bad)
		assert.Equal(t, "JOIN", ferr.Command)
	}
}

func TestBuildLineStripsBreaksFromTrailing(t *testing.T) {
	line, err := buildLine("QUIT", nil, "bye\r\nJOIN #evil")
	require.NoError(t, err)
	assert.Equal(t, "QUIT :bye JOIN #evil", line)
}
