// Package cmdmod bundles an ad-hoc command module behind the Module
// Dispatcher contract: run a user-supplied command (or repeatedly prompt
// for one) against every ready host and print/record the output. Not
// part of spec.md's distillation; recovered from
// orig:autoshell/modules/cmd.py per SPEC_FULL.md's supplemented-feature
// allowance, since a "pipeline of user-chosen modules" needs at least one
// non-crawl example to exercise the dispatcher's sequencing.
package cmdmod

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/PackeTsar/autoshell/pkg/hosts"
	"github.com/PackeTsar/autoshell/pkg/module"
	"github.com/PackeTsar/autoshell/pkg/pool"
	"github.com/PackeTsar/autoshell/pkg/transport"
)

var (
	_ module.Module         = (*Module)(nil)
	_ module.OptionDeclarer = (*Module)(nil)
	_ module.Runner         = (*Module)(nil)
)

// Connector is the name of the connector this module always runs
// commands over; matching the Python original, cmd.py only ever reaches
// into host.connections["cli"].
const Connector = "cli"

// Module implements module.Module, module.OptionDeclarer, and
// module.Runner. It has no Load hook: unlike crawlmod, cmd.py performs no
// pre-connection input validation.
type Module struct {
	Stdin  io.Reader
	Stdout io.Writer

	commands           []string
	outputFiles        []string
	perHostOutputFiles []string

	log *logrus.Logger
}

// New returns a cmd Module ready to be registered with the dispatcher.
func New(log *logrus.Logger) *Module {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Module{log: log, Stdin: os.Stdin, Stdout: os.Stdout}
}

func (m *Module) Name() string { return "cmd" }

// DeclareOptions registers the cmd-specific flags, matching
// orig:autoshell/modules/cmd.py's "Cmd Arguments" argument group.
func (m *Module) DeclareOptions(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&m.commands, "command", "C", nil,
		"provide a command as an argument instead of being prompted, repeatable")
	cmd.Flags().StringArrayVarP(&m.outputFiles, "output-file", "O", nil,
		"write output from all hosts to the same file, repeatable")
	cmd.Flags().StringArrayVarP(&m.perHostOutputFiles, "per-host-output-file", "P", nil,
		"write output from each host to a file path templated per host, repeatable")
}

// Run executes each configured command (or prompts interactively) against
// every ready host, matching cmd.py's run().
func (m *Module) Run(ctx *module.Context) error {
	ready := ctx.Hosts.ReadyHosts()
	if len(ready) == 0 {
		m.log.Warn("cmdmod: no connected hosts exist, aborting")
		return nil
	}

	files := newOutputFiles(m.outputFiles, m.perHostOutputFiles)
	defer files.closeAll()

	runCtx := ctx.Context()

	if len(m.commands) > 0 {
		m.log.Info("cmdmod: command(s) provided up front, skipping interactive prompt")
		for _, command := range m.commands {
			m.execute(runCtx, ready, command, files)
		}
		return nil
	}

	stdin := m.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := m.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "cmd> ")
		if !scanner.Scan() {
			break
		}
		command := strings.TrimSpace(scanner.Text())
		if command == "" {
			continue
		}
		m.execute(runCtx, ready, command, files)
	}
	return nil
}

// execute fans a single command out to every ready host via a short-lived
// pool, matching cmd.py's execute()/autoqueue(10, cmd, ...) pairing.
func (m *Module) execute(ctx context.Context, readyHosts []*hosts.Host, command string, files *outputFiles) {
	p := pool.New("cmd", 10, func(item interface{}) {
		m.runOne(ctx, item.(*hosts.Host), command, files)
	}, m.log)
	for _, h := range readyHosts {
		p.Submit(h)
	}
	p.Block(ctx, true)
}

func (m *Module) runOne(ctx context.Context, host *hosts.Host, command string, files *outputFiles) {
	conn, ok := host.Connections[Connector]
	if !ok {
		m.log.Warnf("cmdmod: host %v has no %q connection, skipping", host.Address.Addresses, Connector)
		return
	}
	sess, ok := conn.Session.(transport.Session)
	if !ok {
		m.log.Warnf("cmdmod: host %v has no live session, skipping", host.Address.Addresses)
		return
	}

	out, err := sess.Run(ctx, command)
	if err != nil {
		m.log.WithFields(logrus.Fields{"host": host.Hostname()}).Warn(err)
		return
	}

	wrapped := wrapOutput(host, out, command)
	fmt.Println(wrapped)
	files.write(host, wrapped)
}

// wrapOutput frames a host's command output with a banner, matching
// cmd.py's wrap_output().
func wrapOutput(host *hosts.Host, output, command string) string {
	header := fmt.Sprintf(" %s (%s) ", host.Hostname(), firstAddress(host))
	commandLine := fmt.Sprintf(" %s ", command)

	width := len(commandLine)
	if len(header) > width {
		width = len(header)
	}
	width += 10

	pad := func(s string) string {
		side := (width - len(s)) / 2
		if side < 0 {
			side = 0
		}
		padding := strings.Repeat("#", side)
		line := padding + s + padding
		if len(line) < width {
			line += strings.Repeat("#", width-len(line))
		}
		return line
	}

	rule := strings.Repeat("#", width)
	return strings.Join([]string{"", "", pad(header), pad(commandLine), rule, output, rule, rule, "", ""}, "\n")
}

func firstAddress(host *hosts.Host) string {
	if len(host.Address.Addresses) == 0 {
		return ""
	}
	return host.Address.Addresses[0]
}
