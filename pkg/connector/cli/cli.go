// Package cli implements pkg/connector.Connector over SSH and TELNET CLI
// sessions, grounded on original_source's connectors/cli.py (itself a
// thin wrapper around Netmiko's ConnectHandler/SSHDetect).
package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PackeTsar/autoshell/pkg/audit"
	"github.com/PackeTsar/autoshell/pkg/creds"
	"github.com/PackeTsar/autoshell/pkg/hosts"
	"github.com/PackeTsar/autoshell/pkg/transport"
)

// sentinel device-type requesting autodetection, per spec.md §4.5 step 4a.
const autodetect = "autodetect"

// dialFunc matches transport.DialProtocol's signature; overridable in
// tests so the connector's branching logic can be exercised without a
// live device.
type dialFunc func(ctx context.Context, proto transport.Protocol, cfg transport.Config, log *logrus.Logger) (transport.Session, error)

// CLI is the CLI-family connector: SSH and TELNET sessions driven by a
// fixed per-attempt timeout.
type CLI struct {
	log     *logrus.Logger
	timeout time.Duration
	dial    dialFunc
}

// New returns a CLI connector with the given per-attempt timeout (0 means
// use transport's default).
func New(timeout time.Duration, log *logrus.Logger) *CLI {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CLI{log: log, timeout: timeout, dial: transport.DialProtocol}
}

// Platforms reports the transport library's known platform list.
func (c *CLI) Platforms() []string { return transport.PlatformNames() }

// Connect implements the full §4.5 algorithm: eligibility gate,
// three-tier credential ordering, address-alternate iteration with
// narrowing on first success, autodetection, and per-error-class
// handling.
func (c *CLI) Connect(ctx context.Context, conn *hosts.Connection, credentials []creds.Credential, sink hosts.HostSink) error {
	host := conn.Host
	known := transport.PlatformNames()
	deviceType := host.DeviceType()

	// 1. Eligibility gate.
	if deviceType != "" && !contains(known, deviceType) {
		c.log.Warnf("connector/cli: host %s device_type %q not in known platforms %v",
			conn.Address, deviceType, known)
		if err := conn.Begin(); err != nil {
			return err
		}
		completeErr := conn.Complete(hosts.StateFailed)
		auditFail(conn, fmt.Errorf("device_type %q not in known platforms", deviceType))
		return completeErr
	}

	if err := conn.Begin(); err != nil {
		return err
	}

	timeout := c.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	addresses := host.Address.Addresses
	if len(addresses) == 0 {
		completeErr := conn.Complete(hosts.StateFailed)
		auditFail(conn, errors.New("host has no addresses"))
		return completeErr
	}

	ordered := orderCredentials(credentials, deviceType, known)

	for _, addr := range addresses {
		for _, cred := range ordered {
			effectiveType := resolveEffectiveType(deviceType, cred.DeviceTypeHint, known)

			cfg := transport.Config{
				Address:  addr,
				Port:     host.Address.Port,
				Username: cred.Username,
				Password: cred.Password,
				Secret:   cred.Secret,
				Timeout:  timeout,
			}

			if effectiveType == autodetect {
				detected, authFailed, err := c.runAutodetect(ctx, addr, cfg, timeout)
				if authFailed {
					continue
				}
				if err != nil {
					c.log.Warnf("connector/cli: unexpected error detecting %s: %v", addr, err)
					continue
				}
				if detected == "" {
					// authenticated, no match: terminal failure for this Host.
					completeErr := conn.Complete(hosts.StateFailed)
					auditFail(conn, errors.New("autodetection found no matching platform"))
					return completeErr
				}
				effectiveType = detected
			}

			sess, err := c.dial(ctx, protocolFor(effectiveType, known), cfg, c.log)
			switch {
			case err == nil:
				conn.Address = addr
				conn.Session = sess
				host.SetDeviceType(effectiveType)
				host.SetHostname(deriveHostname(sess.Prompt()))
				if err := conn.Complete(hosts.StateConnected); err != nil {
					return err
				}
				auditConnect(conn, addr, cred.Username)
				if sink != nil {
					sink(conn)
				}
				return nil
			case isTimeout(err):
				completeErr := conn.Complete(hosts.StateFailed)
				auditFail(conn, err)
				return completeErr
			case isAuthFailure(err):
				continue
			default:
				c.log.Warnf("connector/cli: unexpected error connecting to %s: %v", addr, err)
				continue
			}
		}
	}
	finalErr := conn.Complete(hosts.StateFailed)
	auditFail(conn, errors.New("exhausted all addresses and credentials"))
	return finalErr
}

// auditConnect records a successful Connection transition. A no-op when
// no audit log path was configured.
func auditConnect(conn *hosts.Connection, addr, username string) {
	audit.Log(audit.NewEvent(audit.EventTypeConnect, hostLabel(conn.Host)).
		WithConnector(conn.Connector, addr).
		WithTransition(hosts.StateInProgress.String(), hosts.StateConnected.String()).
		WithCredential(username).
		WithSuccess())
}

// auditFail records a Connection's move to Failed, along with why.
func auditFail(conn *hosts.Connection, reason error) {
	audit.Log(audit.NewEvent(audit.EventTypeFail, hostLabel(conn.Host)).
		WithConnector(conn.Connector, conn.Address).
		WithTransition(hosts.StateInProgress.String(), hosts.StateFailed.String()).
		WithError(reason))
}

// hostLabel picks the best identifier available for a Host at event time:
// its resolved hostname, falling back to its first known address.
func hostLabel(h *hosts.Host) string {
	if name := h.Hostname(); name != "" {
		return name
	}
	if len(h.Address.Addresses) > 0 {
		return h.Address.Addresses[0]
	}
	return ""
}

// Disconnect closes the live session and publishes to the disconnect
// sink regardless of the close outcome.
func (c *CLI) Disconnect(ctx context.Context, conn *hosts.Connection, sink hosts.DisconnectSink) error {
	if sess, ok := conn.Session.(transport.Session); ok && sess != nil {
		if err := sess.Close(); err != nil {
			c.log.Warnf("connector/cli: error closing session for %s: %v", conn.Address, err)
		}
	}
	conn.Session = nil
	if sink != nil {
		sink(conn)
	}
	return nil
}

// runAutodetect opens a detection session over SSH (the only protocol
// the reference autodetection library supports) and classifies the
// device from a generic command's banner text. It reports authFailed
// separately from err so the caller can distinguish "try next
// credential" from "log and try next credential".
func (c *CLI) runAutodetect(ctx context.Context, addr string, cfg transport.Config, timeout time.Duration) (platform string, authFailed bool, err error) {
	sess, dialErr := c.dial(ctx, transport.ProtocolSSH, cfg, c.log)
	if dialErr != nil {
		if isAuthFailure(dialErr) {
			return "", true, nil
		}
		if isTimeout(dialErr) {
			return "", false, dialErr
		}
		return "", false, dialErr
	}
	defer sess.Close()

	out, runErr := sess.Run(ctx, "show version")
	if runErr != nil {
		return "", false, runErr
	}
	return detectPlatform(out + " " + sess.Prompt()), false, nil
}

// detectPlatform is a small heuristic standing in for the reference
// implementation's proprietary SSHDetect fingerprinting: it classifies a
// banner/prompt blob against known vendor signatures.
func detectPlatform(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "cisco"):
		return "cisco_ios"
	case strings.Contains(lower, "comware"):
		return "hp_comware"
	case strings.Contains(lower, "procurve") || strings.Contains(lower, "hewlett"):
		return "hp_procurve"
	case strings.Contains(lower, "routeros") || strings.Contains(lower, "mikrotik"):
		return "router_os"
	default:
		return ""
	}
}

func protocolFor(platform string, known []string) transport.Protocol {
	if proto, ok := transport.ProtocolFor(platform); ok {
		return proto
	}
	return transport.ProtocolSSH
}

// resolveEffectiveType applies the priority host.device_type >
// credential.device_type_hint > autodetect, skipping either source if
// it names a platform outside the known list.
func resolveEffectiveType(hostType, credHint string, known []string) string {
	if hostType != "" && contains(known, hostType) {
		return hostType
	}
	if credHint != "" && contains(known, credHint) {
		return credHint
	}
	return autodetect
}

// orderCredentials implements §4.5 step 2's three-tier ordering:
// Tier A credentials whose hint is in [hostType, ...known...] (grouped by
// that order, deduplicated), Tier B untyped credentials, Tier C
// credentials whose hint names an unknown platform.
func orderCredentials(credentials []creds.Credential, hostType string, known []string) []creds.Credential {
	pref := buildPreferenceList(hostType, known)

	var tierA, tierB, tierC []creds.Credential
	for _, want := range pref {
		for _, cred := range credentials {
			if cred.DeviceTypeHint == want {
				tierA = append(tierA, cred)
			}
		}
	}
	for _, cred := range credentials {
		switch {
		case cred.DeviceTypeHint == "":
			tierB = append(tierB, cred)
		case !contains(pref, cred.DeviceTypeHint):
			tierC = append(tierC, cred)
		}
	}

	out := make([]creds.Credential, 0, len(tierA)+len(tierB)+len(tierC))
	out = append(out, tierA...)
	out = append(out, tierB...)
	out = append(out, tierC...)
	return out
}

func buildPreferenceList(hostType string, known []string) []string {
	seen := make(map[string]bool)
	var out []string
	if hostType != "" {
		out = append(out, hostType)
		seen[hostType] = true
	}
	for _, p := range known {
		if !seen[p] {
			out = append(out, p)
			seen[p] = true
		}
	}
	return out
}

// deriveHostname strips the trailing prompt delimiter (# or >) and any
// surrounding whitespace from a raw prompt line.
func deriveHostname(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	prompt = strings.TrimRight(prompt, "#>")
	return strings.TrimSpace(prompt)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// isTimeout reports whether err represents a dead network path: the
// transport should not be retried with a different credential.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// isAuthFailure reports whether err represents a rejected credential,
// recoverable by trying the next one.
func isAuthFailure(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "authentication failed") ||
		strings.Contains(msg, "permission denied")
}
