// Package handlers declares the Neighbor Handler Registry contract
// (spec.md §4.6): an ordered list of device-family entries, each mapping
// a connector name to the function that extracts neighbor data over
// that connector's live session. Concrete handlers live in
// pkg/handlers/cisco and pkg/handlers/hp; the concrete registry combining
// them is assembled one layer up (pkg/crawl) to avoid an import cycle
// between this package and its handler implementations.
package handlers

import (
	"context"
	"regexp"

	"github.com/PackeTsar/autoshell/pkg/hosts"
	"github.com/PackeTsar/autoshell/pkg/neighbors"
)

// Result is a handler's raw extraction: one list per discovery protocol.
type Result struct {
	LLDP []neighbors.Record
	CDP  []neighbors.Record
}

// Handler extracts neighbor information over a live Connection.
type Handler func(ctx context.Context, conn *hosts.Connection, wantLLDP, wantCDP bool) (*Result, error)

// Entry is one device-family registration: the regexes that recognize a
// Host's device_type, and the per-connector Handler to run against it.
type Entry struct {
	TypePatterns []*regexp.Regexp
	Handlers     map[string]Handler
}

// Registry is the ordered, first-match-wins device-family list.
type Registry []Entry

// Select returns the first Entry whose TypePatterns matches deviceType.
func (r Registry) Select(deviceType string) (Entry, bool) {
	for _, e := range r {
		for _, p := range e.TypePatterns {
			if p.MatchString(deviceType) {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// MustCompile builds TypePatterns from plain regex strings, panicking on
// a malformed pattern — used only at registry-construction time with
// compile-time-known patterns, never with user input.
func MustCompile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}
