package crawl

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PackeTsar/autoshell/pkg/creds"
	"github.com/PackeTsar/autoshell/pkg/handlers"
	"github.com/PackeTsar/autoshell/pkg/hosts"
	"github.com/PackeTsar/autoshell/pkg/neighbors"
)

// fakeConnector completes immediately, assigning a device type chosen by
// typeFor based on the host's first address — standing in for a real
// transport connector so crawl's fixed point can be exercised without a
// live device.
type fakeConnector struct {
	typeFor func(addr string) string
}

func (f *fakeConnector) Connect(ctx context.Context, conn *hosts.Connection, credentials []creds.Credential, sink hosts.HostSink) error {
	if err := conn.Begin(); err != nil {
		return err
	}
	conn.Host.SetDeviceType(f.typeFor(conn.Host.Address.Addresses[0]))
	conn.Session = "live-session"
	if err := conn.Complete(hosts.StateConnected); err != nil {
		return err
	}
	if sink != nil {
		sink(conn)
	}
	return nil
}

func (f *fakeConnector) Disconnect(ctx context.Context, conn *hosts.Connection, sink hosts.DisconnectSink) error {
	return nil
}

func (f *fakeConnector) Platforms() []string { return nil }

func fakeHandler(neighborAddr string, calls *int32) handlers.Handler {
	return func(ctx context.Context, conn *hosts.Connection, wantLLDP, wantCDP bool) (*handlers.Result, error) {
		atomic.AddInt32(calls, 1)
		if neighborAddr == "" {
			return &handlers.Result{}, nil
		}
		return &handlers.Result{
			LLDP: []neighbors.Record{{SysName: []string{"neighbor"}, Addresses: []string{neighborAddr}}},
		}, nil
	}
}

func TestCrawl_InjectsNeighborAndTerminates(t *testing.T) {
	var calls int32
	connector := &fakeConnector{typeFor: func(addr string) string {
		if addr == "192.0.2.1" {
			return "cisco_ios"
		}
		return "unrecognized_vendor"
	}}

	registry := hosts.New(map[string]hosts.Connector{"cli": connector}, nil, 2, nil, nil)
	registry.Add(hosts.AddressRecord{Addresses: []string{"192.0.2.1"}})
	if err := registry.Block(context.Background()); err != nil {
		t.Fatalf("registry.Block: %v", err)
	}

	reg := handlers.Registry{
		{
			TypePatterns: handlers.MustCompile("cisco"),
			Handlers:     map[string]handlers.Handler{"cli": fakeHandler("10.0.0.2", &calls)},
		},
	}

	crawler := New(registry, reg, Options{WantLLDP: true}, 2, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := crawler.Run(ctx); err != nil {
		t.Fatalf("crawler.Run: %v", err)
	}

	allHosts := registry.Hosts()
	if len(allHosts) != 2 {
		t.Fatalf("expected 2 hosts (seed + discovered neighbor), got %d", len(allHosts))
	}

	var foundNeighbor bool
	for _, h := range allHosts {
		for _, a := range h.Address.Addresses {
			if a == "10.0.0.2" {
				foundNeighbor = true
			}
		}
	}
	if !foundNeighbor {
		t.Error("expected the neighbor's address to have been injected as a new host")
	}

	if atomic.LoadInt32(&calls) == 0 {
		t.Error("expected the handler to have been invoked at least once")
	}
}

func TestCrawl_DropsHostWithNoMatchingHandler(t *testing.T) {
	connector := &fakeConnector{typeFor: func(addr string) string { return "juniper_junos" }}
	registry := hosts.New(map[string]hosts.Connector{"cli": connector}, nil, 2, nil, nil)
	registry.Add(hosts.AddressRecord{Addresses: []string{"192.0.2.5"}})
	if err := registry.Block(context.Background()); err != nil {
		t.Fatalf("registry.Block: %v", err)
	}

	reg := handlers.Registry{
		{TypePatterns: handlers.MustCompile("cisco"), Handlers: map[string]handlers.Handler{"cli": nil}},
	}
	crawler := New(registry, reg, Options{WantLLDP: true}, 2, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := crawler.Run(ctx); err != nil {
		t.Fatalf("crawler.Run: %v", err)
	}

	if len(registry.Hosts()) != 1 {
		t.Errorf("expected no neighbor injection, got %d hosts", len(registry.Hosts()))
	}
}

func TestCrawl_FilterRejectsNeighbor(t *testing.T) {
	var calls int32
	connector := &fakeConnector{typeFor: func(addr string) string { return "cisco_ios" }}
	registry := hosts.New(map[string]hosts.Connector{"cli": connector}, nil, 2, nil, nil)
	registry.Add(hosts.AddressRecord{Addresses: []string{"192.0.2.9"}})
	if err := registry.Block(context.Background()); err != nil {
		t.Fatalf("registry.Block: %v", err)
	}

	reg := handlers.Registry{
		{TypePatterns: handlers.MustCompile("cisco"), Handlers: map[string]handlers.Handler{"cli": fakeHandler("10.0.0.9", &calls)}},
	}
	filter := neighbors.BuildFilters([]string{`sysname:doesnotmatch`}, nil)
	crawler := New(registry, reg, Options{WantLLDP: true, Filters: filter}, 2, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := crawler.Run(ctx); err != nil {
		t.Fatalf("crawler.Run: %v", err)
	}

	if len(registry.Hosts()) != 1 {
		t.Errorf("expected the filter to reject the neighbor, got %d hosts", len(registry.Hosts()))
	}
}

// chainHandler discovers one further-out neighbor per hop, keyed by the
// connection's own address, so max_hops enforcement can be observed
// across more than one generation without dedup masking it.
func chainHandler(next map[string]string) handlers.Handler {
	return func(ctx context.Context, conn *hosts.Connection, wantLLDP, wantCDP bool) (*handlers.Result, error) {
		addr := conn.Host.Address.Addresses[0]
		nextAddr, ok := next[addr]
		if !ok {
			return &handlers.Result{}, nil
		}
		return &handlers.Result{
			LLDP: []neighbors.Record{{SysName: []string{nextAddr}, Addresses: []string{nextAddr}}},
		}, nil
	}
}

func TestCrawl_MaxHopsRegistersButDoesNotRecurse(t *testing.T) {
	connector := &fakeConnector{typeFor: func(addr string) string { return "cisco_ios" }}
	registry := hosts.New(map[string]hosts.Connector{"cli": connector}, nil, 2, nil, nil)
	registry.Add(hosts.AddressRecord{Addresses: []string{"192.0.2.30"}})
	if err := registry.Block(context.Background()); err != nil {
		t.Fatalf("registry.Block: %v", err)
	}

	// seed -> 10.0.0.1 (hop 1) -> 10.0.0.2 (hop 2) -> 10.0.0.3 (hop 3, would
	// never be reached since hop 2 is beyond max_hops=1 and isn't recursed).
	next := map[string]string{
		"192.0.2.30": "10.0.0.1",
		"10.0.0.1":   "10.0.0.2",
		"10.0.0.2":   "10.0.0.3",
	}
	reg := handlers.Registry{
		{TypePatterns: handlers.MustCompile("cisco"), Handlers: map[string]handlers.Handler{"cli": chainHandler(next)}},
	}
	crawler := New(registry, reg, Options{WantLLDP: true, MaxHops: 1}, 2, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := crawler.Run(ctx); err != nil {
		t.Fatalf("crawler.Run: %v", err)
	}

	allHosts := registry.Hosts()
	if len(allHosts) != 3 {
		t.Fatalf("expected seed + 2 hops registered (3rd hop never recursed to), got %d", len(allHosts))
	}
	for _, h := range allHosts {
		for _, a := range h.Address.Addresses {
			if a == "10.0.0.3" {
				t.Error("hop beyond max_hops should never have been discovered")
			}
		}
	}
}
