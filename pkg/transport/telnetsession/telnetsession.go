// Package telnetsession implements transport.Session over a raw TCP
// connection with minimal RFC 854 option negotiation. No telnet library
// appears anywhere in the retrieved reference pack, so this adapter is
// hand-rolled against net.Dial; see DESIGN.md for the justification.
package telnetsession

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Telnet command bytes, RFC 854.
const (
	iac  = 255
	will = 251
	wont = 252
	do   = 253
	dont = 254
	sb   = 250
	se   = 240
)

var promptRE = regexp.MustCompile(`[\$#>]\s*$`)

// Session is a raw TELNET connection with in-band username/password login.
type Session struct {
	conn net.Conn

	mu     sync.Mutex
	prompt string
	log    *logrus.Logger

	out chan []byte
}

// Dial opens a TCP connection, declines every option negotiation offered
// by the remote, then performs the in-band username/password login
// sequence network-device TELNET servers expect.
func Dial(ctx context.Context, host string, port int, username, password string, timeout time.Duration, log *logrus.Logger) (*Session, error) {
	if port == 0 {
		port = 23
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("telnet dial %s: %w", addr, err)
	}

	s := &Session{
		conn: conn,
		log:  log,
		out:  make(chan []byte, 64),
	}
	go s.pump()

	if err := s.login(ctx, username, password); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// pump reads raw bytes off the socket, stripping IAC option-negotiation
// sequences and replying with a blanket refusal (DONT/WONT) to every
// offer, which is sufficient to reach a plain character-mode session
// with the device types this connector targets.
func (s *Session) pump() {
	buf := make([]byte, 4096)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			s.handleChunk(buf[:n])
		}
		if err != nil {
			close(s.out)
			return
		}
	}
}

func (s *Session) handleChunk(chunk []byte) {
	var clean bytes.Buffer
	i := 0
	for i < len(chunk) {
		if chunk[i] != iac {
			clean.WriteByte(chunk[i])
			i++
			continue
		}
		if i+1 >= len(chunk) {
			break
		}
		cmd := chunk[i+1]
		switch cmd {
		case will, wont, do, dont:
			if i+2 >= len(chunk) {
				i = len(chunk)
				break
			}
			option := chunk[i+2]
			s.reply(cmd, option)
			i += 3
		case sb:
			end := bytes.Index(chunk[i:], []byte{iac, se})
			if end < 0 {
				i = len(chunk)
			} else {
				i += end + 2
			}
		default:
			i += 2
		}
	}
	if clean.Len() > 0 {
		s.out <- clean.Bytes()
	}
}

func (s *Session) reply(cmd, option byte) {
	var response byte
	switch cmd {
	case will:
		response = dont
	case do:
		response = wont
	default:
		return // already a refusal, no reply needed
	}
	s.conn.Write([]byte{iac, response, option})
}

func (s *Session) readUntil(ctx context.Context, match func(string) bool) (string, error) {
	var buf bytes.Buffer
	for {
		select {
		case chunk, ok := <-s.out:
			if !ok {
				return buf.String(), io.EOF
			}
			buf.Write(chunk)
			if match(buf.String()) {
				return buf.String(), nil
			}
		case <-ctx.Done():
			return buf.String(), ctx.Err()
		}
	}
}

func (s *Session) login(ctx context.Context, username, password string) error {
	if _, err := s.readUntil(ctx, containsFold("username", "login")); err != nil {
		return fmt.Errorf("telnet: waiting for login prompt: %w", err)
	}
	if _, err := s.conn.Write([]byte(username + "\r\n")); err != nil {
		return fmt.Errorf("telnet: send username: %w", err)
	}

	if _, err := s.readUntil(ctx, containsFold("password")); err != nil {
		return fmt.Errorf("telnet: waiting for password prompt: %w", err)
	}
	if _, err := s.conn.Write([]byte(password + "\r\n")); err != nil {
		return fmt.Errorf("telnet: send password: %w", err)
	}

	raw, err := s.readUntil(ctx, func(s string) bool { return promptRE.MatchString(s) })
	if err != nil {
		return fmt.Errorf("telnet: waiting for prompt after login: %w", err)
	}
	s.prompt = lastLine(raw)
	return nil
}

func containsFold(needles ...string) func(string) bool {
	return func(s string) bool {
		lower := strings.ToLower(s)
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return true
			}
		}
		return false
	}
}

// Run sends cmd and blocks until the next prompt reappears.
func (s *Session) Run(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conn.Write([]byte(cmd + "\r\n")); err != nil {
		return "", fmt.Errorf("telnet write: %w", err)
	}
	raw, err := s.readUntil(ctx, func(s string) bool { return promptRE.MatchString(s) })
	if err != nil {
		return raw, err
	}
	s.prompt = lastLine(raw)
	return stripEcho(raw, cmd), nil
}

// Prompt returns the last observed prompt line.
func (s *Session) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

// Close closes the underlying TCP connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

func lastLine(s string) string {
	s = trimTrailingNewline(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func trimTrailingNewline(s string) string {
	return strings.TrimRight(s, "\r\n")
}

func stripEcho(raw, cmd string) string {
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	if len(lines) > 0 && lines[0] == cmd {
		lines = lines[1:]
	}
	if len(lines) > 0 && promptRE.MatchString(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
