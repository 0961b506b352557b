package cisco

import (
	"context"
	"testing"

	"github.com/PackeTsar/autoshell/pkg/hosts"
)

type fakeSession struct {
	responses map[string]string
	prompt    string
}

func (f *fakeSession) Run(ctx context.Context, cmd string) (string, error) {
	return f.responses[cmd], nil
}
func (f *fakeSession) Prompt() string  { return f.prompt }
func (f *fakeSession) Close() error    { return nil }

const lldpDetail = `Chassis id: aaaa.bbbb.cccc
Port id: Gi0/1
Time remaining: 100 seconds
System Name: switch1.example.com

System Description:
Cisco IOS Software

System Capabilities: B, R
IP: 10.0.0.5
-------------------------
Chassis id: dddd.eeee.ffff
Port id: Gi0/2
Time remaining: 110 seconds
System Name: switch2.example.com

System Description:
Cisco IOS Software

System Capabilities: B
IP: 10.0.0.6
`

const lldpBrief = `Device ID           Local Intf     Hold-time  Capability   Port ID
switch1.example.com Gi0/1          100        B,R          Gi0/1
switch2.example.com Gi0/2          110        B            Gi0/2
`

const cdpDetail = `-------------------------
Device ID: switch1.example.com
Entry address(es):
  IP address: 10.0.0.5
Platform: cisco WS-C3560,  Capabilities: Switch
Interface: GigabitEthernet0/1,  Port ID (outgoing port): GigabitEthernet0/1
Version :
Cisco IOS Software, C3560 Software
`

func newConnWithSession(sess *fakeSession) *hosts.Connection {
	return &hosts.Connection{Session: sess}
}

func TestHandler_LLDP_MergesDetailAndBrief(t *testing.T) {
	sess := &fakeSession{responses: map[string]string{
		"show lldp neighbors detail": lldpDetail,
		"show lldp neighbors":        lldpBrief,
	}}
	conn := newConnWithSession(sess)

	result, err := Handler(context.Background(), conn, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.LLDP) != 2 {
		t.Fatalf("expected 2 LLDP neighbors, got %d: %+v", len(result.LLDP), result.LLDP)
	}
	first := result.LLDP[0]
	if len(first.SysID) != 1 || first.SysID[0] != "aaaa.bbbb.cccc" {
		t.Errorf("SysID = %v", first.SysID)
	}
	if len(first.LocalIf) != 1 || first.LocalIf[0] != "Gi0/1" {
		t.Errorf("expected brief's LocalIf to fill in, got %v", first.LocalIf)
	}
}

func TestHandler_CDP_ScrapesDetail(t *testing.T) {
	sess := &fakeSession{responses: map[string]string{
		"show cdp neighbors detail": cdpDetail,
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
	if len(n.SysName) != 1 || n.SysName[0] != "switch1.example.com" {
		t.Errorf("SysName = %v", n.SysName)
	}
	if len(n.Platform) != 1 || n.Platform[0] != "WS-C3560" {
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
	blocks := splitBlocks("a\n-----\nb\n-----\nc\n")
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %+v", len(blocks), blocks)
	}
}
