// Package crawl implements the Crawl Orchestrator (spec.md §4.8): the
// recursive fixed point that pulls LLDP/CDP neighbor data from each
// ready host, filters it, and injects newly discovered addresses back
// into the Host Registry until the crawl pool quiesces. Grounded on
// orig:autoshell/modules/crawl.py's crawl() worker function, ported onto
// pkg/pool instead of the Python autoqueue.
package crawl

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/PackeTsar/autoshell/pkg/audit"
	"github.com/PackeTsar/autoshell/pkg/handlers"
	"github.com/PackeTsar/autoshell/pkg/handlers/cisco"
	"github.com/PackeTsar/autoshell/pkg/handlers/hp"
	"github.com/PackeTsar/autoshell/pkg/hosts"
	"github.com/PackeTsar/autoshell/pkg/neighbors"
	"github.com/PackeTsar/autoshell/pkg/pool"
)

// NewHandlerRegistry assembles the bundled device-family handler
// registry, matching orig:autoshell/modules/crawl.py's HANDLER_MAPS.
// Built here, one layer above pkg/handlers, so pkg/handlers itself never
// imports a concrete handler implementation.
func NewHandlerRegistry() handlers.Registry {
	return handlers.Registry{
		{
			TypePatterns: handlers.MustCompile(".*cisco.*"),
			Handlers:     map[string]handlers.Handler{"cli": cisco.Handler},
		},
		{
			TypePatterns: handlers.MustCompile(".*hp.*"),
			Handlers:     map[string]handlers.Handler{"cli": hp.Handler},
		},
	}
}

// Options controls which protocols are crawled and how far the BFS is
// allowed to range from its seed hosts.
type Options struct {
	WantLLDP bool
	WantCDP  bool
	Filters  neighbors.Filter
	MaxHops  int // 0 = unlimited
}

// Crawler runs the worker-pool-driven fixed point over a Host Registry.
type Crawler struct {
	registry *hosts.Registry
	registryHandlers handlers.Registry
	opts     Options
	log      *logrus.Logger

	pool *pool.Pool

	mu   sync.Mutex
	hops map[*hosts.Host]int
}

// New builds a Crawler with workers concurrent crawl workers.
func New(registry *hosts.Registry, registryHandlers handlers.Registry, opts Options, workers int, log *logrus.Logger) *Crawler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if workers < 1 {
		workers = 1
	}
	c := &Crawler{
		registry:         registry,
		registryHandlers: registryHandlers,
		opts:             opts,
		log:              log,
		hops:             make(map[*hosts.Host]int),
	}
	c.pool = pool.New("crawl", workers, func(item interface{}) {
		c.worker(item.(*hosts.Host))
	}, log)
	return c
}

// Run submits every currently-registered Host as a crawl seed (hop 0) and
// blocks until the crawl pool quiesces: spec.md §4.8 step 6.
func (c *Crawler) Run(ctx context.Context) error {
	for _, h := range c.registry.Hosts() {
		c.setHop(h, 0)
		c.pool.Submit(h)
	}
	return c.pool.Block(ctx, true)
}

func (c *Crawler) setHop(h *hosts.Host, hop int) {
	c.mu.Lock()
	c.hops[h] = hop
	c.mu.Unlock()
}

func (c *Crawler) hopOf(h *hosts.Host) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hops[h]
}

// worker implements spec.md §4.8's six-step crawl worker logic.
func (c *Crawler) worker(host *hosts.Host) {
	// 1. Readiness gate. A Connection still pending or in-progress means
	// the Connector has not finished its attempt; device type (if any)
	// may not be resolved yet, so wait for every Connection to reach a
	// terminal state before judging the host's device type.
	for _, conn := range host.Connections {
		if state := conn.State(); state == hosts.StatePending || state == hosts.StateInProgress {
			c.pool.Submit(host)
			return
		}
	}
	deviceType := host.DeviceType()
	if deviceType == "" {
		c.log.Warnf("crawl: host %v has no device type, discarding", host.Address.Addresses)
		return
	}
	entry, ok := c.registryHandlers.Select(deviceType)
	if !ok {
		c.log.Warnf("crawl: no neighbor handler for device type %q", deviceType)
		return
	}

	// 2. Per-handler-connector gate.
	for connectorName := range entry.Handlers {
		conn, exists := host.Connections[connectorName]
		if !exists {
			c.log.Warnf("crawl: host %v has no connection for handler connector %q, discarding",
				host.Address.Addresses, connectorName)
			return
		}
		state, idle := conn.Snapshot()
		if !(idle && state == hosts.StateConnected) {
			if state == hosts.StateFailed {
				c.log.Warnf("crawl: host %v connection %q failed, discarding",
					host.Address.Addresses, connectorName)
				return
			}
			c.pool.Submit(host)
			return
		}
	}

	// 3/4/5. Extract, materialize+filter, inject — one handler per connector.
	neighborDump := make(map[string]interface{})
	for connectorName, handler := range entry.Handlers {
		conn := host.Connections[connectorName]
		result, err := handler(context.Background(), conn, c.opts.WantLLDP, c.opts.WantCDP)
		if err != nil {
			c.log.WithFields(logrus.Fields{"host": host.Address.Addresses, "connector": connectorName}).Warn(err)
			continue
		}
		neighborDump[connectorName] = result
		c.processResult(host, result)
	}
	host.Info["neighbors"] = neighborDump
}

func (c *Crawler) processResult(host *hosts.Host, result *handlers.Result) {
	hop := c.hopOf(host)
	for _, rec := range result.LLDP {
		c.injectIfMatched(host, rec, hop)
	}
	for _, rec := range result.CDP {
		c.injectIfMatched(host, rec, hop)
	}
}

func (c *Crawler) injectIfMatched(parent *hosts.Host, rec neighbors.Record, parentHop int) {
	if !neighbors.Match(rec, c.opts.Filters) {
		return
	}
	if len(rec.Addresses) == 0 {
		return
	}
	newRec := hosts.AddressRecord{Addresses: rec.Addresses}
	newHost, added := c.registry.Add(newRec)
	if !added {
		return
	}
	hop := parentHop + 1
	c.setHop(newHost, hop)
	audit.Log(audit.NewEvent(audit.EventTypeDiscover, discoverLabel(newHost)).
		WithHop(hop).
		WithSuccess())
	if c.opts.MaxHops > 0 && hop > c.opts.MaxHops {
		c.log.Debugf("crawl: host %v beyond max_hops (%d), registered but not recursed",
			newHost.Address.Addresses, c.opts.MaxHops)
		return
	}
	c.pool.Submit(newHost)
}

// discoverLabel identifies a freshly injected Host for an audit event,
// before its Connections have had a chance to resolve a hostname.
func discoverLabel(h *hosts.Host) string {
	if len(h.Address.Addresses) > 0 {
		return h.Address.Addresses[0]
	}
	return ""
}
