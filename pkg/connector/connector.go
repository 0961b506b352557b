// Package connector declares the adapter contract a transport family
// implements against the Host Registry: connect a pending Connection,
// disconnect a live one, and report the platforms it knows how to speak
// to. pkg/hosts declares a structurally identical interface locally to
// avoid importing this package; the two are kept in lockstep by hand.
package connector

import (
	"context"

	"github.com/PackeTsar/autoshell/pkg/creds"
	"github.com/PackeTsar/autoshell/pkg/hosts"
)

// HostSink and DisconnectSink are re-exported so callers that only need
// the connector contract don't have to import pkg/hosts for the sink
// types too.
type HostSink = hosts.HostSink
type DisconnectSink = hosts.DisconnectSink

// Connector is the adapter contract a transport family implements.
type Connector interface {
	Connect(ctx context.Context, conn *hosts.Connection, credentials []creds.Credential, sink HostSink) error
	Disconnect(ctx context.Context, conn *hosts.Connection, sink DisconnectSink) error
	Platforms() []string
}
