// Package sshsession implements transport.Session over an interactive SSH
// shell channel, generalizing pkg/device/tunnel.go's ssh.Dial/ClientConfig
// pattern from a Redis port-forward into a full terminal session.
package sshsession

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

var promptRE = regexp.MustCompile(`[\$#>]\s*$`)

// Session is an interactive SSH shell channel.
type Session struct {
	client *ssh.Client
	sess   *ssh.Session
	stdin  io.WriteCloser

	mu     sync.Mutex
	prompt string
	log    *logrus.Logger

	out   chan []byte
	errCh chan error
}

// Dial opens an SSH connection, requests a pty and an interactive shell,
// and reads until the first prompt settles.
func Dial(ctx context.Context, host string, port int, username, password string, timeout time.Duration, log *logrus.Logger) (*Session, error) {
	if port == 0 {
		port = 22
	}
	config := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s@%s: %w", username, addr, err)
	}

	sshSess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ssh session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 115200,
		ssh.TTY_OP_OSPEED: 115200,
	}
	if err := sshSess.RequestPty("vt100", 200, 80, modes); err != nil {
		sshSess.Close()
		client.Close()
		return nil, fmt.Errorf("ssh pty: %w", err)
	}

	stdin, err := sshSess.StdinPipe()
	if err != nil {
		sshSess.Close()
		client.Close()
		return nil, fmt.Errorf("ssh stdin: %w", err)
	}
	stdout, err := sshSess.StdoutPipe()
	if err != nil {
		sshSess.Close()
		client.Close()
		return nil, fmt.Errorf("ssh stdout: %w", err)
	}

	if err := sshSess.Shell(); err != nil {
		sshSess.Close()
		client.Close()
		return nil, fmt.Errorf("ssh shell: %w", err)
	}

	s := &Session{
		client: client,
		sess:   sshSess,
		stdin:  stdin,
		log:    log,
		out:    make(chan []byte, 64),
		errCh:  make(chan error, 1),
	}
	go s.pump(stdout)

	banner, err := s.readUntilPrompt(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("ssh initial read: %w", err)
	}
	s.prompt = lastLine(banner)
	return s, nil
}

func (s *Session) pump(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.out <- chunk
		}
		if err != nil {
			close(s.out)
			return
		}
	}
}

func (s *Session) readUntilPrompt(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	for {
		select {
		case chunk, ok := <-s.out:
			if !ok {
				return buf.String(), io.EOF
			}
			buf.Write(chunk)
			if promptRE.Match(buf.Bytes()) {
				return buf.String(), nil
			}
		case <-ctx.Done():
			return buf.String(), ctx.Err()
		}
	}
}

// Run sends cmd and blocks until the next prompt reappears.
func (s *Session) Run(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.stdin, cmd+"\n"); err != nil {
		return "", fmt.Errorf("ssh write: %w", err)
	}
	raw, err := s.readUntilPrompt(ctx)
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

// Close tears down the shell channel and the underlying SSH connection.
func (s *Session) Close() error {
	s.sess.Close()
	return s.client.Close()
}

func lastLine(s string) string {
	s = trimTrailingNewline(s)
	if idx := bytes.LastIndexByte([]byte(s), '\n'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// stripEcho removes the device's echo of cmd (its first line) and the
// trailing prompt line, leaving just the command's output.
func stripEcho(raw, cmd string) string {
	lines := splitLines(raw)
	if len(lines) > 0 && firstNonEmpty(lines[0]) == cmd {
		lines = lines[1:]
	}
	if len(lines) > 0 && promptRE.MatchString(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			line := s[start:i]
			line = trimCR(line)
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, trimCR(s[start:]))
	}
	return lines
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}

func firstNonEmpty(s string) string {
	return s
}
