// Package transport is the narrow adapter contract between a connector
// and a live terminal session: dial, run a command, read the resulting
// prompt, close. It knows nothing about credentials tiers, retries, or
// neighbor discovery — those live in pkg/connector and pkg/crawl.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PackeTsar/autoshell/pkg/transport/sshsession"
	"github.com/PackeTsar/autoshell/pkg/transport/telnetsession"
)

// Session is one live terminal session, SSH or TELNET alike.
type Session interface {
	// Run sends cmd and blocks until the device's next prompt reappears,
	// returning the command's output with the echoed command line and
	// trailing prompt stripped.
	Run(ctx context.Context, cmd string) (string, error)
	// Prompt returns the most recently observed prompt line, including
	// its trailing delimiter (e.g. "router1#").
	Prompt() string
	Close() error
}

// Protocol identifies the wire protocol a Platform dials with.
type Protocol string

const (
	ProtocolSSH    Protocol = "ssh"
	ProtocolTelnet Protocol = "telnet"
)

// Platform is one entry in the known platform list spec.md §4.5 refers
// to for credential-ordering tier A and connector eligibility.
type Platform struct {
	Name     string
	Protocol Protocol
}

// Platforms is the known platform list. Connector eligibility and
// credential-preference ordering are both driven off this list; a
// device_type absent from it is ineligible for the CLI connector.
var Platforms = []Platform{
	{Name: "router_os", Protocol: ProtocolSSH},
	{Name: "cisco_ios", Protocol: ProtocolSSH},
	{Name: "cisco_ios_telnet", Protocol: ProtocolTelnet},
	{Name: "hp_procurve", Protocol: ProtocolSSH},
	{Name: "hp_comware", Protocol: ProtocolSSH},
	{Name: "generic_telnet", Protocol: ProtocolTelnet},
}

// PlatformNames returns the known platform list in registration order,
// the library-order half of credential-ordering tier A.
func PlatformNames() []string {
	names := make([]string, len(Platforms))
	for i, p := range Platforms {
		names[i] = p.Name
	}
	return names
}

// ProtocolFor reports the protocol registered for a platform name.
func ProtocolFor(platform string) (Protocol, bool) {
	for _, p := range Platforms {
		if p.Name == platform {
			return p.Protocol, true
		}
	}
	return "", false
}

// Config bundles everything a Dial needs from the caller.
type Config struct {
	Address  string
	Port     int
	Username string
	Password string
	Secret   string // enable/privileged-mode secret; DialProtocol passes it to neither session type
	Timeout  time.Duration
}

const defaultTimeout = 30 * time.Second

// Dial opens a Session against platform using whichever protocol that
// platform is registered under.
func Dial(ctx context.Context, platform string, cfg Config, log *logrus.Logger) (Session, error) {
	proto, ok := ProtocolFor(platform)
	if !ok {
		return nil, fmt.Errorf("transport: unknown platform %q", platform)
	}
	return DialProtocol(ctx, proto, cfg, log)
}

// DialProtocol opens a Session over proto directly, bypassing the
// platform-name lookup. Autodetection uses this: it has no platform name
// yet, only a protocol guess (SSH, matching the reference implementation's
// SSH-only detection library).
func DialProtocol(ctx context.Context, proto Protocol, cfg Config, log *logrus.Logger) (Session, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	switch proto {
	case ProtocolSSH:
		return sshsession.Dial(ctx, cfg.Address, cfg.Port, cfg.Username, cfg.Password, timeout, log)
	case ProtocolTelnet:
		return telnetsession.Dial(ctx, cfg.Address, cfg.Port, cfg.Username, cfg.Password, timeout, log)
	default:
		return nil, fmt.Errorf("transport: unsupported protocol %q", proto)
	}
}
