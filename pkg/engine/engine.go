// Package engine is the top-level orchestrator: it assembles the Host
// Registry, Credential Store, and bundled/user modules into the "ball"
// context each module receives, then drives the same load → connect →
// run → disconnect sequence orig:autoshell/__main__.py's main() drives.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PackeTsar/autoshell/pkg/audit"
	"github.com/PackeTsar/autoshell/pkg/connector/cli"
	"github.com/PackeTsar/autoshell/pkg/creds"
	"github.com/PackeTsar/autoshell/pkg/hosts"
	"github.com/PackeTsar/autoshell/pkg/module"
	"github.com/PackeTsar/autoshell/pkg/util"
)

const defaultTimeout = 30 * time.Second

// cliConnectorName is the registry key the CLI connector is installed
// under; matches the "cli" connector-name literal pkg/crawl and
// pkg/module/cmdmod use to look up a host's live session.
const cliConnectorName = "cli"

// Config bundles everything cmd/autoshell parses from the command line
// before handing off to the Engine, matching the fields argparse collects
// into `args` in the Python original.
type Config struct {
	Addresses    []string
	Credentials  []string
	Timeout      time.Duration
	Workers      int // connect-pool workers per connector; 0 defaults to 10
	DumpHostInfo bool
	AuditLogPath string // JSON-lines audit log destination; "" disables audit logging
}

// auditMaxSize/auditMaxBackups bound the audit log's size-based rotation;
// a FileLogger given a zero RotationConfig never rotates.
const (
	auditMaxSize    = 50 << 20 // 50MiB
	auditMaxBackups = 5
)

// Engine owns the Host Registry and credential store for one run and
// drives the module dispatcher across them.
type Engine struct {
	cfg     Config
	modules []module.Module
	log     *logrus.Logger

	hosts       *hosts.Registry
	credentials []creds.Credential
}

// New builds an Engine. modules is the full ordered module list — bundled
// plus anything a caller registers — matching the order user "-m" tokens
// were given on the Python original's command line.
func New(cfg Config, modules []module.Module, log *logrus.Logger) *Engine {
	if log == nil {
		log = util.Core()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Engine{cfg: cfg, modules: modules, log: log}
}

// Hosts returns the Host Registry built by Run, nil before Run has been
// called.
func (e *Engine) Hosts() *hosts.Registry { return e.hosts }

// Run executes one full autoshell pass: parse credentials, load each
// module with user data, connect every host, run each module in turn, then
// disconnect everything — matching autoshell.main()'s sequence exactly.
// A SIGINT during the run cancels ctx so in-flight connects/crawls unwind
// instead of leaving the pool blocked forever.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	if e.cfg.AuditLogPath != "" {
		logger, err := audit.NewFileLogger(e.cfg.AuditLogPath, audit.RotationConfig{
			MaxSize:    auditMaxSize,
			MaxBackups: auditMaxBackups,
		})
		if err != nil {
			return fmt.Errorf("engine: opening audit log: %w", err)
		}
		audit.SetDefaultLogger(logger)
		defer logger.Close()
	}

	e.credentials = creds.Parse(e.cfg.Credentials, e.log)

	connectors := map[string]hosts.Connector{
		cliConnectorName: cli.New(e.cfg.Timeout, util.Transport()),
	}

	workers := e.cfg.Workers
	if workers < 1 {
		workers = 10
	}

	e.hosts = hosts.New(connectors, e.credentials, workers, nil, e.log)

	mctx := &module.Context{
		Ctx:         ctx,
		Hosts:       e.hosts,
		Credentials: e.credentials,
		Options:     make(map[string]interface{}),
		Modules:     e.modules,
	}

	if err := e.loadModules(mctx); err != nil {
		return err
	}

	e.log.Debug("engine: connecting to hosts")
	if err := e.hosts.Load(ctx, e.cfg.Addresses); err != nil {
		return fmt.Errorf("engine: connecting hosts: %w", err)
	}

	if err := e.runModules(mctx); err != nil {
		return err
	}

	e.log.Debug("engine: disconnecting all hosts")
	if err := e.hosts.DisconnectAll(context.Background()); err != nil {
		e.log.WithError(err).Warn("engine: error while disconnecting hosts")
	}

	if e.cfg.DumpHostInfo {
		e.dumpHostInfo()
	}

	return nil
}

// loadModules hands each module its Load hook, matching
// autoshell.load_modules's "if 'load' in module.__dict__" check — here
// expressed as an interface type-assertion instead of a dict lookup.
func (e *Engine) loadModules(mctx *module.Context) error {
	for _, m := range e.modules {
		loader, ok := m.(module.Loader)
		if !ok {
			e.log.Debugf("engine: module %q has no Load hook, skipping", m.Name())
			continue
		}
		e.log.Debugf("engine: loading module %q", m.Name())
		if err := loader.Load(mctx); err != nil {
			return util.NewModuleError(m.Name(), err)
		}
	}
	return nil
}

// runModules hands control to each module in turn, matching
// autoshell.run_modules.
func (e *Engine) runModules(mctx *module.Context) error {
	for _, m := range e.modules {
		runner, ok := m.(module.Runner)
		if !ok {
			e.log.Debugf("engine: module %q has no Run hook, skipping", m.Name())
			continue
		}
		e.log.Infof("engine: running module %q", m.Name())
		if err := runner.Run(mctx); err != nil {
			return util.NewModuleError(m.Name(), err)
		}
	}
	return nil
}

// dumpHostInfo prints every host's accumulated Info map as a JSON array,
// matching autoshell.main()'s args.dump_hostinfo branch.
func (e *Engine) dumpHostInfo() {
	var data []map[string]interface{}
	for _, h := range e.hosts.Hosts() {
		if len(h.Info) == 0 {
			continue
		}
		entry := make(map[string]interface{}, len(h.Info)+2)
		for k, v := range h.Info {
			entry[k] = v
		}
		entry["hostname"] = h.Hostname()
		entry["addresses"] = h.Address.Addresses
		data = append(data, entry)
	}
	out, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		e.log.WithError(err).Warn("engine: failed to marshal host info dump")
		return
	}
	fmt.Println(string(out))
}
