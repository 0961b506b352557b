package transport

import (
	"context"
	"testing"
)

func TestPlatformNames_Order(t *testing.T) {
	names := PlatformNames()
	if len(names) != len(Platforms) {
		t.Fatalf("len = %d, want %d", len(names), len(Platforms))
	}
	if names[0] != "router_os" {
		t.Errorf("first platform = %q, want %q (registration order)", names[0], "router_os")
	}
}

func TestProtocolFor(t *testing.T) {
	proto, ok := ProtocolFor("cisco_ios")
	if !ok || proto != ProtocolSSH {
		t.Errorf("ProtocolFor(cisco_ios) = %q, %v; want ssh, true", proto, ok)
	}

	if _, ok := ProtocolFor("nonexistent_platform"); ok {
		t.Error("expected unknown platform to report ok=false")
	}
}

func TestDial_UnknownPlatform(t *testing.T) {
	_, err := Dial(context.Background(), "nonexistent_platform", Config{}, nil)
	if err == nil {
		t.Fatal("expected error for unknown platform")
	}
}
