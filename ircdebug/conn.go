/*
Package ircdebug helps with developing against a live IRC connection.
*/
package ircdebug

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Tee returns an io.ReadWriteCloser that traces the protocol exchange on rwc
// to w: each complete IRC line is logged with a timestamp, prefixed with
// inPrefix for lines the server sent and outPrefix for lines we sent. Data
// is buffered per direction until its CR-LF terminator arrives, so a line
// split across several reads or writes is still logged once, whole. Wrap a
// client's DialFn result with it to watch the exchange on os.Stdout or a
// log file.
func Tee(w io.Writer, rwc io.ReadWriteCloser, outPrefix, inPrefix string) io.ReadWriteCloser {
	log := &lineLog{w: w, now: time.Now}
	return &teeConn{
		ReadWriteCloser: rwc,
		in:              &lineBuffer{log: log, prefix: inPrefix},
		out:             &lineBuffer{log: log, prefix: outPrefix},
	}
}

type teeConn struct {
	io.ReadWriteCloser
	in  *lineBuffer
	out *lineBuffer
}

func (tc *teeConn) Read(p []byte) (int, error) {
	n, err := tc.ReadWriteCloser.Read(p)
	if n > 0 {
		tc.in.scan(p[:n])
	}
	return n, err
}

func (tc *teeConn) Write(p []byte) (int, error) {
	n, err := tc.ReadWriteCloser.Write(p)
	if n > 0 {
		tc.out.scan(p[:n])
	}
	return n, err
}

// lineBuffer accumulates one direction's bytes and logs every completed line.
// A trailing fragment stays buffered until its terminator shows up.
type lineBuffer struct {
	log    *lineLog
	prefix string
	buf    []byte
}

func (lb *lineBuffer) scan(p []byte) {
	lb.buf = append(lb.buf, p...)
	for {
		i := bytes.IndexByte(lb.buf, '\n')
		if i < 0 {
			return
		}
		line := strings.TrimRight(string(lb.buf[:i]), "\r")
		lb.buf = lb.buf[i+1:]
		lb.log.line(lb.prefix, line)
	}
}

// lineLog serializes output from both directions so lines never interleave.
type lineLog struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

func (l *lineLog) line(prefix, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s %s%s\n", l.now().Format("15:04:05.000"), prefix, text)
}
