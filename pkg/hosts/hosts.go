// Package hosts implements the Host Registry: the canonical store of
// Hosts and their per-connector Connections, deduplication, and readiness
// queries (spec.md §4.4).
package hosts

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/PackeTsar/autoshell/pkg/creds"
	"github.com/PackeTsar/autoshell/pkg/expr"
	"github.com/PackeTsar/autoshell/pkg/pool"
)

// Connector is the adapter contract a transport family implements. It is
// declared here, where Connection is defined, rather than imported from
// pkg/connector, so this package has no dependency on any concrete
// connector implementation; pkg/connector.Connector is structurally
// identical and satisfies this interface without either package importing
// the other.
type Connector interface {
	Connect(ctx context.Context, conn *Connection, credentials []creds.Credential, sink HostSink) error
	Disconnect(ctx context.Context, conn *Connection, sink DisconnectSink) error
	Platforms() []string
}

// Host is identified by the AddressRecord it was created from. Its
// DeviceType may be updated later by an autodetecting connector (S7);
// every other field describing identity is fixed at creation.
type Host struct {
	Address     AddressRecord
	Connections map[string]*Connection
	Info        map[string]interface{}

	mu         sync.RWMutex
	deviceType string
	hostname   string
}

func newHost(rec AddressRecord) *Host {
	return &Host{
		Address:     rec,
		deviceType:  rec.DeviceType,
		Connections: make(map[string]*Connection),
		Info:        make(map[string]interface{}),
	}
}

// DeviceType returns the host's current device type, "" if unresolved.
func (h *Host) DeviceType() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.deviceType
}

// SetDeviceType updates the device type, e.g. once autodetection resolves it.
func (h *Host) SetDeviceType(dt string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deviceType = dt
}

// Hostname returns the prompt-derived hostname, "" before a Connection succeeds.
func (h *Host) Hostname() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.hostname
}

// SetHostname records the prompt-derived hostname.
func (h *Host) SetHostname(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hostname = name
}

// Ready reports whether every Connection is idle and at least one is connected.
func (h *Host) Ready() bool {
	anyConnected := false
	for _, c := range h.Connections {
		state, idle := c.Snapshot()
		if !idle {
			return false
		}
		if state == StateConnected {
			anyConnected = true
		}
	}
	return anyConnected
}

// Registry is the canonical store of Hosts, deduplicated on AddressRecord.Key().
type Registry struct {
	mu       sync.RWMutex
	attempts map[string]*Host
	hostList []*Host

	connectors  map[string]Connector
	pools       map[string]*pool.Pool
	credentials []creds.Credential
	sink        HostSink
	log         *logrus.Logger
}

// New builds a Registry with one connect pool per connector, each with
// workersPerConnector workers.
func New(connectors map[string]Connector, credentials []creds.Credential, workersPerConnector int, sink HostSink, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Registry{
		attempts:    make(map[string]*Host),
		connectors:  connectors,
		credentials: credentials,
		sink:        sink,
		log:         log,
		pools:       make(map[string]*pool.Pool),
	}
	for name, c := range connectors {
		name, c := name, c
		r.pools[name] = pool.New("connect-"+name, workersPerConnector, func(item interface{}) {
			conn := item.(*Connection)
			if err := c.Connect(context.Background(), conn, r.credentials, r.sink); err != nil {
				r.log.WithFields(logrus.Fields{"connector": name, "address": conn.Address}).Warn(err)
			}
		}, log)
	}
	return r
}

// Add registers rec if it is not already present, constructing one
// Connection per connector and submitting each to its connect pool. The
// second return value is false when rec was already present (a no-op).
func (r *Registry) Add(rec AddressRecord) (*Host, bool) {
	key := rec.Key()

	r.mu.Lock()
	if existing, ok := r.attempts[key]; ok {
		r.mu.Unlock()
		return existing, false
	}
	h := newHost(rec)
	for name := range r.connectors {
		h.Connections[name] = NewConnection(h, name)
	}
	r.attempts[key] = h
	r.hostList = append(r.hostList, h)
	r.mu.Unlock()

	for _, conn := range h.Connections {
		r.pools[conn.Connector].Submit(conn)
	}
	return h, true
}

// Load parses tokens via the expression parser, adds every resulting
// AddressRecord, then blocks until every Connection reaches a terminal
// state. It does not kill the connect pools — later crawl-injected Adds
// submit further work to the same pools.
func (r *Registry) Load(ctx context.Context, tokens []string) error {
	exprs := expr.Parse(tokens, expr.DefaultHostDelimiters(), r.log)
	for _, e := range exprs {
		recs, err := ParseAddressRecords(e)
		if err != nil {
			r.log.Warnf("hosts: %v", err)
			continue
		}
		for _, rec := range recs {
			r.Add(rec)
		}
	}
	for _, p := range r.pools {
		if err := p.Block(ctx, false); err != nil {
			return err
		}
	}
	return nil
}

// Block waits for every connect pool to quiesce, without adding anything
// new.
func (r *Registry) Block(ctx context.Context) error {
	for _, p := range r.pools {
		if err := p.Block(ctx, false); err != nil {
			return err
		}
	}
	return nil
}

// Hosts returns a snapshot of every Host currently registered.
func (r *Registry) Hosts() []*Host {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Host, len(r.hostList))
	copy(out, r.hostList)
	return out
}

// ReadyHosts returns Hosts whose every Connection is idle and at least
// one is connected.
func (r *Registry) ReadyHosts() []*Host {
	r.mu.RLock()
	snapshot := make([]*Host, len(r.hostList))
	copy(snapshot, r.hostList)
	r.mu.RUnlock()

	var ready []*Host
	for _, h := range snapshot {
		if h.Ready() {
			ready = append(ready, h)
		}
	}
	return ready
}

// DisconnectAll instantiates a parallel disconnect pool per connector,
// submits every Connection, and blocks until all have been closed.
func (r *Registry) DisconnectAll(ctx context.Context) error {
	r.mu.RLock()
	snapshot := make([]*Host, len(r.hostList))
	copy(snapshot, r.hostList)
	r.mu.RUnlock()

	disconnectPools := make(map[string]*pool.Pool, len(r.connectors))
	for name, c := range r.connectors {
		name, c := name, c
		disconnectPools[name] = pool.New("disconnect-"+name, 4, func(item interface{}) {
			conn := item.(*Connection)
			if err := c.Disconnect(ctx, conn, nil); err != nil {
				r.log.WithFields(logrus.Fields{"connector": name}).Warn(err)
			}
		}, r.log)
	}

	for _, h := range snapshot {
		for _, conn := range h.Connections {
			disconnectPools[conn.Connector].Submit(conn)
		}
	}

	for _, p := range disconnectPools {
		if err := p.Block(ctx, true); err != nil {
			return err
		}
	}
	return nil
}
