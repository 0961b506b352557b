// Package hp implements the Neighbor Handler for HP ProCurve/Comware
// devices reached over the CLI connector: LLDP remote-device detail and
// CDP neighbor detail, screen-scraped with regexes. Grounded on
// autoshell/hp/neighbors/handlers.py and its cli/scrapers.py sibling;
// illustrative rather than an exhaustive port of the Python scraper's
// label/delimiter-pair matching.
package hp

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PackeTsar/autoshell/pkg/handlers"
	"github.com/PackeTsar/autoshell/pkg/hosts"
	"github.com/PackeTsar/autoshell/pkg/neighbors"
	"github.com/PackeTsar/autoshell/pkg/transport"
)

// Handler implements handlers.Handler for HP devices over the "cli"
// connector.
func Handler(ctx context.Context, conn *hosts.Connection, wantLLDP, wantCDP bool) (*handlers.Result, error) {
	sess, ok := conn.Session.(transport.Session)
	if !ok {
		return nil, fmt.Errorf("hp: connection has no live transport session")
	}

	result := &handlers.Result{}

	if wantLLDP {
		out, err := sess.Run(ctx, "show lldp info remote-device all")
		if err != nil {
			return nil, fmt.Errorf("hp: show lldp info remote-device all: %w", err)
		}
		result.LLDP = scrapeLLDP(out)
	}

	if wantCDP {
		out, err := sess.Run(ctx, "show cdp neighbors detail")
		if err != nil {
			return nil, fmt.Errorf("hp: show cdp neighbors detail: %w", err)
		}
		result.CDP = scrapeCDP(out)
	}

	return result, nil
}

// blockDelimiter matches the long dashed separator HP prints between
// per-neighbor blocks in both LLDP and CDP detail output.
var blockDelimiter = regexp.MustCompile(`-{20,}`)

func splitBlocks(text string) []string {
	blocks := blockDelimiter.Split(text, -1)
	var out []string
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			out = append(out, b)
		}
	}
	return out
}

type fieldPattern struct {
	attribute string
	pattern   *regexp.Regexp
}

func extractFields(block string, fields []fieldPattern) neighbors.Record {
	values := make(map[string]interface{})
	for _, f := range fields {
		m := f.pattern.FindStringSubmatch(block)
		if len(m) < 2 {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			values[f.attribute] = []string{v}
		}
	}
	return neighbors.FromMap(values)
}

var lldpFields = []fieldPattern{
	{attribute: "sysid", pattern: regexp.MustCompile(`ChassisId\s*:\s*(.+)`)},
	{attribute: "remoteif", pattern: regexp.MustCompile(`PortId\s*:\s*(.+)`)},
	{attribute: "localif", pattern: regexp.MustCompile(`Local Port\s*:\s*(.+)`)},
	{attribute: "remoteifdesc", pattern: regexp.MustCompile(`PortDescr\s*:\s*(.+)`)},
	{attribute: "sysname", pattern: regexp.MustCompile(`SysName\s*:\s*(.+)`)},
	{attribute: "sysdesc", pattern: regexp.MustCompile(`(?s)System Descr\s*:\s*(.+?)\n\n`)},
	{attribute: "syscap", pattern: regexp.MustCompile(`System Capabilities\s*:?\s*(.+)`)},
	{attribute: "addresses", pattern: regexp.MustCompile(`Address\s*:\s*(.+)`)},
}

func scrapeLLDP(text string) []neighbors.Record {
	var out []neighbors.Record
	for _, block := range splitBlocks(text) {
		out = append(out, extractFields(block, lldpFields))
	}
	return out
}

var cdpFields = []fieldPattern{
	{attribute: "sysname", pattern: regexp.MustCompile(`Device ID\s*:\s*([^,\n]+)`)},
	{attribute: "addresses", pattern: regexp.MustCompile(`Address\s*:\s*([^,\n]+)`)},
	{attribute: "platform", pattern: regexp.MustCompile(`Platform\s*:\s*([^,\n]+)`)},
	{attribute: "localif", pattern: regexp.MustCompile(`(?m)^Port\s*:\s*([^,\n]+)`)},
	{attribute: "remoteif", pattern: regexp.MustCompile(`Device Port\s*:\s*([^,\n]+)`)},
	{attribute: "syscap", pattern: regexp.MustCompile(`Capability\s*:\s*(.+)`)},
	{attribute: "sysdesc", pattern: regexp.MustCompile(`Version\s*:\s*(.+)`)},
}

func scrapeCDP(text string) []neighbors.Record {
	var out []neighbors.Record
	for _, block := range splitBlocks(text) {
		out = append(out, extractFields(block, cdpFields))
	}
	return out
}
