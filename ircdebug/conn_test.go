package ircdebug

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	io.Reader
	io.Writer
}

func (fakeConn) Close() error { return nil }

func newFixedClockTee(t *testing.T, rwc io.ReadWriteCloser, trace io.Writer) io.ReadWriteCloser {
	t.Helper()
	conn := Tee(trace, rwc, "-> ", "<- ")
	at := time.Date(2024, 1, 2, 10, 20, 30, 40e6, time.UTC)
	conn.(*teeConn).in.log.now = func() time.Time { return at }
	return conn
}

func TestTeeLogsCompleteLines(t *testing.T) {
	var trace strings.Builder
	conn := newFixedClockTee(t, fakeConn{
		Reader: strings.NewReader(":srv 001 gobot :Welcome\r\nPING :srv\r\n"),
		Writer: io.Discard,
	}, &trace)

	_, err := io.Copy(io.Discard, conn)
	require.NoError(t, err)
	_, err = io.WriteString(conn, "PONG :srv\r\n")
	require.NoError(t, err)

	assert.Equal(t,
		"10:20:30.040 <- :srv 001 gobot :Welcome\n"+
			"10:20:30.040 <- PING :srv\n"+
			"10:20:30.040 -> PONG :srv\n",
		trace.String())
}

func TestTeeBuffersSplitLines(t *testing.T) {
	var trace strings.Builder
	conn := newFixedClockTee(t, fakeConn{Reader: strings.NewReader(""), Writer: io.Discard}, &trace)

	// a line arriving in fragments is logged once, whole
	io.WriteString(conn, "NICK ")
	io.WriteString(conn, "gobot")
	assert.Empty(t, trace.String())
	io.WriteString(conn, "\r\nUSER g")
	assert.Equal(t, "10:20:30.040 -> NICK gobot\n", trace.String())
}

func TestTeePassesDataThrough(t *testing.T) {
	var sent strings.Builder
	conn := newFixedClockTee(t, fakeConn{
		Reader: strings.NewReader("PING :srv\r\n"),
		Writer: &sent,
	}, io.Discard)

	got, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "PING :srv\r\n", string(got))

	_, err = io.WriteString(conn, "PONG :srv\r\n")
	require.NoError(t, err)
	assert.Equal(t, "PONG :srv\r\n", sent.String())
}
