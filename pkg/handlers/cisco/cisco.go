// Package cisco implements the Neighbor Handler for Cisco IOS-family
// devices reached over the CLI connector: LLDP detail+brief merge and
// CDP neighbor detail, screen-scraped with regexes. Grounded on
// autoshell/cisco/neighbors/handlers.py and its cli/scrapers.py sibling;
// illustrative rather than an exhaustive port of the Python scraper's
// column-position table logic.
package cisco

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

// Handler implements handlers.Handler for Cisco IOS devices over the
// "cli" connector.
func Handler(ctx context.Context, conn *hosts.Connection, wantLLDP, wantCDP bool) (*handlers.Result, error) {
	sess, ok := conn.Session.(transport.Session)
	if !ok {
		return nil, fmt.Errorf("cisco: connection has no live transport session")
	}

	result := &handlers.Result{}

	if wantLLDP {
		detailOut, err := sess.Run(ctx, "show lldp neighbors detail")
		if err != nil {
			return nil, fmt.Errorf("cisco: show lldp neighbors detail: %w", err)
		}
		briefOut, err := sess.Run(ctx, "show lldp neighbors")
		if err != nil {
			return nil, fmt.Errorf("cisco: show lldp neighbors: %w", err)
		}
		detail := scrapeLLDPDetail(detailOut)
		brief := scrapeLLDPBrief(briefOut)
		result.LLDP = neighbors.MergeBySysName(detail, brief)
	}

	if wantCDP {
		cdpOut, err := sess.Run(ctx, "show cdp neighbors detail")
		if err != nil {
			return nil, fmt.Errorf("cisco: show cdp neighbors detail: %w", err)
		}
		result.CDP = scrapeCDPDetail(cdpOut)
	}

	return result, nil
}

// blockDelimiter matches the dashed separator Cisco prints between
// per-neighbor detail blocks.
var blockDelimiter = regexp.MustCompile(`(?m)^-{5,}\s*$`)

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
	clean     []string
}

func extractFields(block string, fields []fieldPattern) neighbors.Record {
	values := make(map[string][]string)
	for _, f := range fields {
		m := f.pattern.FindStringSubmatch(block)
		if len(m) < 2 {
			continue
		}
		v := strings.TrimSpace(m[1])
		for _, rm := range f.clean {
			v = strings.ReplaceAll(v, rm, "")
		}
		if v != "" {
			values[f.attribute] = append(values[f.attribute], v)
		}
	}
	return neighbors.FromMap(toInterfaceMap(values))
}

func toInterfaceMap(values map[string][]string) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

var lldpDetailFields = []fieldPattern{
	{attribute: "sysid", pattern: regexp.MustCompile(`Chassis id:\s*(.+)`)},
	{attribute: "remoteif", pattern: regexp.MustCompile(`Port id:\s*(.+)`)},
	{attribute: "ttl", pattern: regexp.MustCompile(`Time remaining:\s*(.+)`)},
	{attribute: "remoteifdesc", pattern: regexp.MustCompile(`Port Description:\s*(.+)`)},
	{attribute: "sysname", pattern: regexp.MustCompile(`System Name:\s*(.+)`)},
	{attribute: "sysdesc", pattern: regexp.MustCompile(`(?s)System Description:\s*\n(.+?)\n\n`)},
	{attribute: "syscap", pattern: regexp.MustCompile(`System Capabilities:\s*(.+)`)},
	{attribute: "addresses", pattern: regexp.MustCompile(`IP:\s*(.+)`)},
}

func scrapeLLDPDetail(text string) []neighbors.Record {
	var out []neighbors.Record
	for _, block := range splitBlocks(text) {
		out = append(out, extractFields(block, lldpDetailFields))
	}
	return out
}

// lldpBriefLine approximates the fixed-width "show lldp neighbors"
// table: Device ID, Local Intf, Hold-time, Capability, Port ID.
var lldpBriefLine = regexp.MustCompile(`(?m)^(\S+)\s+(\S+)\s+\d+\s+(\S*)\s+(\S+)\s*$`)

func scrapeLLDPBrief(text string) []neighbors.Record {
	var out []neighbors.Record
	for _, m := range lldpBriefLine.FindAllStringSubmatch(text, -1) {
		if m[1] == "Device" { // header line
			continue
		}
		out = append(out, neighbors.Record{
			SysName:  []string{m[1]},
			LocalIf:  []string{m[2]},
			SysCap:   []string{m[3]},
			RemoteIf: []string{m[4]},
		})
	}
	return out
}

var cdpDetailFields = []fieldPattern{
	{attribute: "sysname", pattern: regexp.MustCompile(`Device ID:\s*(.+)`)},
	{attribute: "addresses", pattern: regexp.MustCompile(`(?:IP address|IPv4 Address):\s*(.+)`)},
	{attribute: "platform", pattern: regexp.MustCompile(`Platform:\s*([^,\n]+)`), clean: []string{"cisco ", "Cisco "}},
	{attribute: "localif", pattern: regexp.MustCompile(`Interface:\s*([^,\n]+)`)},
	{attribute: "remoteif", pattern: regexp.MustCompile(`Port ID \(outgoing port\):\s*([^,\n]+)`)},
	{attribute: "sysdesc", pattern: regexp.MustCompile(`(?s)Version\s*:\s*\n(.+?)\n`)},
}

func scrapeCDPDetail(text string) []neighbors.Record {
	var out []neighbors.Record
	for _, block := range splitBlocks(text) {
		out = append(out, extractFields(block, cdpDetailFields))
	}
	return out
}
