package hp

import (
	"context"
	"testing"

	"github.com/PackeTsar/autoshell/pkg/hosts"
)

type fakeSession struct {
	responses map[string]string
}

func (f *fakeSession) Run(ctx context.Context, cmd string) (string, error) {
	return f.responses[cmd], nil
}
func (f *fakeSession) Prompt() string { return "switch#" }
func (f *fakeSession) Close() error   { return nil }

const lldpOut = `------------------------------------------------------------------------------
ChassisId    : aa:bb:cc:dd:ee:ff
PortId       : 1/1
Local Port   : A1
PortDescr    : uplink to core
SysName      : core-switch
System Descr : HP Switch Software

System Capabilities   : Bridge, Router
Address : 10.1.1.1
------------------------------------------------------------------------------
`

const cdpOut = `------------------------------------------------------------------------------
Device ID : core-switch.example.com,
Address      : 10.1.1.1,
Platform     : HP J9625A,
Port : A1,
Device Port  : GigabitEthernet1/0/1,
Capability   : Switch IGMP
Version      : HP Comware Software
------------------------------------------------------------------------------
`

func newConnWithSession(sess *fakeSession) *hosts.Connection {
	return &hosts.Connection{Session: sess}
}

func TestHandler_LLDP(t *testing.T) {
	sess := &fakeSession{responses: map[string]string{
		"show lldp info remote-device all": lldpOut,
	}}
	conn := newConnWithSession(sess)

	result, err := Handler(context.Background(), conn, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.LLDP) != 1 {
		t.Fatalf("expected 1 LLDP neighbor, got %d: %+v", len(result.LLDP), result.LLDP)
	}
	n := result.LLDP[0]
	if len(n.SysID) != 1 || n.SysID[0] != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("SysID = %v", n.SysID)
	}
	if len(n.SysName) != 1 || n.SysName[0] != "core-switch" {
		t.Errorf("SysName = %v", n.SysName)
	}
}

func TestHandler_CDP(t *testing.T) {
	sess := &fakeSession{responses: map[string]string{
		"show cdp neighbors detail": cdpOut,
	}}
	conn := newConnWithSession(sess)

	result, err := Handler(context.Background(), conn, false, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.CDP) != 1 {
		t.Fatalf("expected 1 CDP neighbor, got %d", len(result.CDP))
	}
	n := result.CDP[0]
	if len(n.SysName) != 1 || n.SysName[0] != "core-switch.example.com" {
		t.Errorf("SysName = %v", n.SysName)
	}
	if len(n.Platform) != 1 || n.Platform[0] != "HP J9625A" {
		t.Errorf("Platform = %v", n.Platform)
	}
}

func TestHandler_NoLiveSession(t *testing.T) {
	conn := &hosts.Connection{Session: nil}
	if _, err := Handler(context.Background(), conn, true, false); err == nil {
		t.Error("expected an error when the connection has no live session")
	}
}

func TestSplitBlocks(t *testing.T) {
	blocks := splitBlocks("a\n" + dashes(30) + "\nb\n" + dashes(30) + "\nc\n")
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %+v", len(blocks), blocks)
	}
}

func dashes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}
