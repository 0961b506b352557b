package sshsession

import "testing"

func TestLastLine(t *testing.T) {
	cases := map[string]string{
		"router1#":                  "router1#",
		"show version\r\nOK\r\nrouter1#": "router1#",
		"":                          "",
	}
	for in, want := range cases {
		if got := lastLine(in); got != want {
			t.Errorf("lastLine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripEcho(t *testing.T) {
	raw := "show version\r\nSoftware: 1.2.3\r\nrouter1#"
	got := stripEcho(raw, "show version")
	want := "Software: 1.2.3"
	if got != want {
		t.Errorf("stripEcho = %q, want %q", got, want)
	}
}

func TestStripEcho_NoEchoPresent(t *testing.T) {
	raw := "Software: 1.2.3\r\nrouter1#"
	got := stripEcho(raw, "show version")
	want := "Software: 1.2.3"
	if got != want {
		t.Errorf("stripEcho = %q, want %q", got, want)
	}
}

func TestSplitLines(t *testing.T) {
	lines := splitLines("a\r\nb\r\nc")
	want := []string{"a", "b", "c"}
	if len(lines) != len(want) {
		t.Fatalf("len = %d, want %d", len(lines), len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
