// Package irctest provides a mock IRC server for driving a client through
// scripted exchanges in tests.
package irctest

import (
	"bufio"
	"net"
	"strings"
	"time"
)

// NewServer creates a mock server backed by an in-memory connection. The
// client side supports read deadlines, so timeout behavior is testable.
// Don't forget to close.
func NewServer() *Server {
	client, server := net.Pipe()
	s := &Server{
		client: client,
		server: server,
		reader: bufio.NewReader(server),
	}
	return s
}

type Server struct {
	client net.Conn
	server net.Conn
	reader *bufio.Reader
}

// Dial returns the client side of the connection, suitable for a client's
// DialFn.
func (s *Server) Dial() (net.Conn, error) {
	return s.client, nil
}

// Send writes one line to the client, adding CR-LF if missing.
func (s *Server) Send(line string) error {
	if !strings.HasSuffix(line, "\r\n") {
		line += "\r\n"
	}
	_, err := s.server.Write([]byte(line))
	return err
}

// Recv reads the next line the client sent, without its terminator. It
// gives up after a short deadline so a missing write fails the test instead
// of hanging it.
func (s *Server) Recv() (string, error) {
	s.server.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Close closes both ends of the connection.
func (s *Server) Close() error {
	s.server.Close()
	return s.client.Close()
}
