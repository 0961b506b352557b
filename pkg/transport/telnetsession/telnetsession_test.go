package telnetsession

import (
	"net"
	"testing"
	"time"
)

func TestStripEcho(t *testing.T) {
	raw := "show version\r\nSoftware: 1.2.3\r\nrouter1>"
	got := stripEcho(raw, "show version")
	want := "Software: 1.2.3"
	if got != want {
		t.Errorf("stripEcho = %q, want %q", got, want)
	}
}

func TestLastLine(t *testing.T) {
	if got := lastLine("a\r\nb\r\nrouter1#"); got != "router1#" {
		t.Errorf("lastLine = %q, want %q", got, "router1#")
	}
}

func TestContainsFold(t *testing.T) {
	f := containsFold("username", "login")
	if !f("Username: ") {
		t.Error("expected match on 'Username: '")
	}
	if !f("login: ") {
		t.Error("expected match on 'login: '")
	}
	if f("Password: ") {
		t.Error("unexpected match on 'Password: '")
	}
}

// TestHandleChunk_StripsNegotiation verifies IAC option-negotiation
// sequences are consumed and answered rather than leaking into the
// session's readable output.
func TestHandleChunk_StripsNegotiation(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := &Session{conn: client, out: make(chan []byte, 4)}

	go func() {
		// IAC WILL ECHO, then plain text, then IAC DO SUPPRESS-GA.
		server.Write([]byte{iac, will, 1})
		server.Write([]byte("hello"))
		server.Write([]byte{iac, do, 3})
	}()

	// Drain the negotiation replies the session writes back so the
	// net.Pipe doesn't deadlock.
	go func() {
		buf := make([]byte, 16)
		for i := 0; i < 2; i++ {
			server.SetReadDeadline(time.Now().Add(time.Second))
			server.Read(buf)
		}
	}()

	buf := make([]byte, 64)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	s.handleChunk(buf[:n])

	n2, err := client.Read(buf)
	if err == nil {
		s.handleChunk(buf[:n2])
	}

	select {
	case chunk := <-s.out:
		if string(chunk) != "hello" {
			t.Errorf("got %q, want %q", chunk, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for cleaned chunk")
	}
}
