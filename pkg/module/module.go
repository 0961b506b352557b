// Package module declares the Module Dispatcher contract (spec.md §4.9):
// a small set of optional reserved hooks a bundled or external module may
// implement, plus the Context bundling the Host Registry, Credential
// Store, parsed options, and the module list itself — so a module can
// reach every other component without the dispatcher threading each one
// through individually. Grounded on
// orig:autoshell/examples/example_module.py's three reserved names
// (`add_parser_options`, `load`, `run`) and __main__.py's ball namespace.
package module

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/PackeTsar/autoshell/pkg/creds"
	"github.com/PackeTsar/autoshell/pkg/hosts"
)

// Module is the minimum any dispatched module must satisfy: a name used
// for logging and CLI module-token resolution.
type Module interface {
	Name() string
}

// OptionDeclarer is implemented by modules that add their own
// command-line flags, called once immediately after the module is
// resolved and before argument parsing completes.
type OptionDeclarer interface {
	DeclareOptions(cmd *cobra.Command)
}

// Loader is implemented by modules that need to validate user input
// before the engine starts connecting to hosts.
type Loader interface {
	Load(ctx *Context) error
}

// Runner is mandatory in practice (a module with nothing to run in its
// turn is pointless) but kept as a separate interface so the dispatcher
// can skip modules that only declare options or only load.
type Runner interface {
	Run(ctx *Context) error
}

// Context is the "ball" every module's hooks receive: the shared
// dependencies a module needs to read ready hosts, issue commands, or
// inject new ones into the registry.
type Context struct {
	// Ctx is the run's cancellable context (SIGINT-bound by the engine);
	// nil in tests that construct a Context directly. Modules that block
	// on long-running work should fall back to context.Background() when
	// Ctx is nil rather than panic on a missing context.
	Ctx         context.Context
	Hosts       *hosts.Registry
	Credentials []creds.Credential
	Options     map[string]interface{}
	Modules     []Module
}

// Option looks up a parsed option by name, returning ok=false if absent.
func (c *Context) Option(name string) (interface{}, bool) {
	v, ok := c.Options[name]
	return v, ok
}

// Context returns c.Ctx, falling back to context.Background() when unset.
func (c *Context) Context() context.Context {
	if c.Ctx != nil {
		return c.Ctx
	}
	return context.Background()
}
