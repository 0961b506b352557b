// Package crawlmod bundles the Crawl Orchestrator behind the Module
// Dispatcher contract: a module that declares its own crawl-specific
// flags, validates them in Load, then drives pkg/crawl once every
// initial host connection has settled. Grounded on
// orig:autoshell/modules/crawl.py's add_parser_options/load/run trio; per
// spec.md §9's Open Question, this single bundled module subsumes the
// Python project's separate "neighbors" module (there is no independent
// LLDP/CDP-only module to conflict with it).
package crawlmod

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/PackeTsar/autoshell/pkg/crawl"
	"github.com/PackeTsar/autoshell/pkg/module"
	"github.com/PackeTsar/autoshell/pkg/neighbors"
)

var (
	_ module.Module         = (*Module)(nil)
	_ module.OptionDeclarer = (*Module)(nil)
	_ module.Loader         = (*Module)(nil)
	_ module.Runner         = (*Module)(nil)
)

// Module implements module.Module, module.OptionDeclarer, module.Loader,
// and module.Runner.
type Module struct {
	Workers int // crawl pool size; 0 defaults to 10, matching autoqueue(10, ...)

	filterTokens []string
	maxHops      int
	cdpOnly      bool
	lldpOnly     bool

	filters  neighbors.Filter
	wantLLDP bool
	wantCDP  bool

	log *logrus.Logger
}

// New returns a crawl Module ready to be registered with the dispatcher.
func New(log *logrus.Logger) *Module {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Module{log: log}
}

func (m *Module) Name() string { return "crawl" }

// DeclareOptions registers the crawl-specific flags, matching
// orig:autoshell/modules/crawl.py's "Crawl Arguments" argument group.
func (m *Module) DeclareOptions(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&m.filterTokens, "crawl-filter", "F", nil,
		"regex filters for crawling hosts (attribute:regex), repeatable. Attributes: "+
			joinAttributes())
	cmd.Flags().IntVarP(&m.maxHops, "crawl-max-hops", "M", 0,
		"maximum hops from the seed host (0 = unlimited)")
	cmd.Flags().BoolVar(&m.cdpOnly, "crawl-cdp-only", false,
		"crawl CDP only and ignore LLDP")
	cmd.Flags().BoolVar(&m.lldpOnly, "crawl-lldp-only", false,
		"crawl LLDP only and ignore CDP")
}

func joinAttributes() string {
	names := neighbors.AllowedAttributes()
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}

// Load builds the filter set from the user's tokens and resolves the
// LLDP/CDP toggles, matching crawl.py's load().
func (m *Module) Load(ctx *module.Context) error {
	m.filters = neighbors.BuildFilters(m.filterTokens, m.log)
	m.wantLLDP = !m.cdpOnly
	m.wantCDP = !m.lldpOnly
	if m.cdpOnly && m.lldpOnly {
		m.log.Warn("crawlmod: both crawl-cdp-only and crawl-lldp-only set; neither LLDP nor CDP neighbors will be collected")
	}
	return nil
}

// Run submits every currently-registered host to a fresh crawl and
// blocks until the fixed point is reached, matching crawl.py's run().
func (m *Module) Run(ctx *module.Context) error {
	workers := m.Workers
	if workers < 1 {
		workers = 10
	}
	registry := crawl.NewHandlerRegistry()
	crawler := crawl.New(ctx.Hosts, registry, crawl.Options{
		WantLLDP: m.wantLLDP,
		WantCDP:  m.wantCDP,
		Filters:  m.filters,
		MaxHops:  m.maxHops,
	}, workers, m.log)
	return crawler.Run(ctx.Context())
}
