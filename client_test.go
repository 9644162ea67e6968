package irc_test

import (
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quenot/irc"
	"github.com/quenot/irc/irctest"
)

func newTestPair(t *testing.T) (*irc.Client, *irctest.Server) {
	t.Helper()
	s := irctest.NewServer()
	t.Cleanup(func() { s.Close() })

	c := irc.NewClient()
	c.ErrorLog = log.New(io.Discard, "", 0)
	c.DialFn = func() (io.ReadWriteCloser, error) { return s.Dial() }
	require.NoError(t, c.Connect("", 0, false))
	return c, s
}

func recvLine(t *testing.T, s *irctest.Server) string {
	t.Helper()
	line, err := s.Recv()
	require.NoError(t, err)
	return line
}

func TestIdentifySendsRegistration(t *testing.T) {
	c, s := newTestPair(t)

	errc := make(chan error, 1)
	go func() { errc <- c.Identify("gobot", "g", "example bot", "hunter2") }()

	assert.Equal(t, "PASS :hunter2", recvLine(t, s))
	assert.Equal(t, "NICK gobot", recvLine(t, s))
	assert.Equal(t, "USER g gobot gobot :example bot", recvLine(t, s))
	require.NoError(t, <-errc)
}

func TestRunAnswersPing(t *testing.T) {
	c, s := newTestPair(t)

	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	require.NoError(t, s.Send("PING :irc.example.org"))
	assert.Equal(t, "PONG :irc.example.org", recvLine(t, s))

	c.Close()
	assert.NoError(t, <-done)
}

func TestRunReturnsNilAfterQuit(t *testing.T) {
	c, s := newTestPair(t)

	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	got := make(chan string, 1)
	go func() {
		line, _ := s.Recv()
		got <- line
		s.Close()
	}()
	require.NoError(t, c.Quit("bye"))
	assert.Equal(t, "QUIT :bye", <-got)
	assert.NoError(t, <-done)
}

func TestConnectionLifecycleEvents(t *testing.T) {
	s := irctest.NewServer()
	t.Cleanup(func() { s.Close() })

	events := make(chan irc.EventKind, 4)
	c := irc.NewClient()
	c.ErrorLog = log.New(io.Discard, "", 0)
	c.DialFn = func() (io.ReadWriteCloser, error) { return s.Dial() }
	c.Register("lifecycle", irc.NewHandler().
		Bind(irc.EventConnected, func(c *irc.Client, e *irc.Event) { events <- e.Kind }).
		Bind(irc.EventDisconnected, func(c *irc.Client, e *irc.Event) { events <- e.Kind }))

	require.NoError(t, c.Connect("", 0, false))
	assert.Equal(t, irc.EventConnected, <-events)

	done := make(chan error, 1)
	go func() { done <- c.Run() }()
	s.Close()
	<-done
	assert.Equal(t, irc.EventDisconnected, <-events)
}

func TestNamesxNegotiation(t *testing.T) {
	c, s := newTestPair(t)

	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	require.NoError(t, s.Send(":srv 005 gobot NAMESX :are supported by this server"))
	assert.Equal(t, "PROTOCTL NAMESX", recvLine(t, s))

	c.Close()
	<-done
}

func TestMessageWrapsLongText(t *testing.T) {
	c, s := newTestPair(t)

	text := strings.Repeat("abcdefghij", 100)
	errc := make(chan error, 1)
	go func() { errc <- c.Message("#go", text) }()

	var rebuilt strings.Builder
	lines := 0
	for rebuilt.Len() < len(text) {
		line := recvLine(t, s)
		require.True(t, strings.HasPrefix(line, "PRIVMSG #go :"), "line %q", line)
		assert.LessOrEqual(t, len(line), 460)
		rebuilt.WriteString(strings.TrimPrefix(line, "PRIVMSG #go :"))
		lines++
	}
	require.NoError(t, <-errc)
	assert.Equal(t, text, rebuilt.String())
	assert.Equal(t, 3, lines)
}

func TestBanListSyncPreservesReceiveOrder(t *testing.T) {
	c, s := newTestPair(t)

	bans := make(chan []irc.BanEntry, 1)
	syncErr := make(chan error, 1)
	msgs := make(chan string, 4)
	c.Register("bot", irc.NewHandler().
		Bind(irc.EventReady, func(c *irc.Client, e *irc.Event) {
			entries, err := c.BanListSync("#go", 5*time.Second)
			syncErr <- err
			bans <- entries
		}).
		Bind(irc.EventChannelMessage, func(c *irc.Client, e *irc.Event) {
			msgs <- e.Text()
		}))

	go func() {
		s.Recv() // NICK
		s.Recv() // USER
		s.Send(":srv 001 gobot :Welcome")
		s.Recv() // MODE #go +b
		s.Send(":srv 367 gobot #go *!*@spam.example troll 1700000000")
		s.Send(":alice!a@h PRIVMSG #go :interleaved")
		s.Send(":srv 367 gobot #go *!*@flood.example")
		s.Send(":srv 368 gobot #go :End of Channel Ban List")
		s.Send(":alice!a@h PRIVMSG #go :after")
	}()

	require.NoError(t, c.Identify("gobot", "g", "bot", ""))
	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	require.NoError(t, <-syncErr)
	entries := <-bans
	require.Len(t, entries, 2)
	assert.Equal(t, "*!*@spam.example", entries[0].Mask)
	assert.Equal(t, "troll", entries[0].Setter)
	assert.Equal(t, "*!*@flood.example", entries[1].Mask)

	// lines deferred during the drain dispatch afterward, in receive order
	assert.Equal(t, "interleaved", <-msgs)
	assert.Equal(t, "after", <-msgs)

	c.Close()
	<-done
}

func TestBanListSyncTimesOut(t *testing.T) {
	c, s := newTestPair(t)

	errs := make(chan error, 1)
	c.Register("bot", irc.NewHandler().
		Bind(irc.EventReady, func(c *irc.Client, e *irc.Event) {
			_, err := c.BanListSync("#go", 100*time.Millisecond)
			errs <- err
		}))

	go func() {
		s.Recv() // NICK
		s.Recv() // USER
		s.Send(":srv 001 gobot :Welcome")
		s.Recv() // MODE #go +b, then silence
	}()

	require.NoError(t, c.Identify("gobot", "g", "bot", ""))
	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	assert.ErrorIs(t, <-errs, irc.ErrTimeout)
	c.Close()
	<-done
}

func TestSendRejectsUnframableParams(t *testing.T) {
	c, _ := newTestPair(t)

	var ferr *irc.FramingError
	assert.ErrorAs(t, c.Send("JOIN", "#chan with spaces"), &ferr)
	assert.ErrorAs(t, c.Message("#go also bad", "hi"), &ferr)
}

func TestRunReconnectsAndReidentifies(t *testing.T) {
	s1, s2 := irctest.NewServer(), irctest.NewServer()
	t.Cleanup(func() { s1.Close(); s2.Close() })
	servers := make(chan *irctest.Server, 2)
	servers <- s1
	servers <- s2

	c := irc.NewClient()
	c.ErrorLog = log.New(io.Discard, "", 0)
	c.DialFn = func() (io.ReadWriteCloser, error) { return (<-servers).Dial() }
	c.SetReconnectPolicy(irc.FixedDelay(time.Millisecond))
	require.NoError(t, c.Connect("", 0, false))

	errc := make(chan error, 1)
	go func() { errc <- c.Identify("gobot", "g", "example bot", "hunter2") }()
	assert.Equal(t, "PASS :hunter2", recvLine(t, s1))
	assert.Equal(t, "NICK gobot", recvLine(t, s1))
	assert.Equal(t, "USER g gobot gobot :example bot", recvLine(t, s1))
	require.NoError(t, <-errc)

	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	// the server drops us; the stored identity is re-sent on the new
	// connection
	s1.Close()
	assert.Equal(t, "PASS :hunter2", recvLine(t, s2))
	assert.Equal(t, "NICK gobot", recvLine(t, s2))
	assert.Equal(t, "USER g gobot gobot :example bot", recvLine(t, s2))

	c.Close()
	assert.NoError(t, <-done)
}

func TestFixedDelayPolicy(t *testing.T) {
	p := irc.FixedDelay(30 * time.Second)
	assert.Equal(t, 30*time.Second, p(1))
	assert.Equal(t, 30*time.Second, p(7))
}
