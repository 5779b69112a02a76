// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package dig

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/siemens/cidrscope/dnsworker"
	"github.com/siemens/cidrscope/types"

	"github.com/miekg/dns"
	"github.com/thediveo/lxkns/log"
)

// FallbackNameserver is used when no nameserver can be found in the system's
// resolver configuration.
const FallbackNameserver = "8.8.8.8:53"

// resolvConf is the system's resolver configuration.
var resolvConf = "/etc/resolv.conf"

// Digger digs the IPv4 addresses of hostnames using a pool of DNS workers all
// talking to the same nameserver.
type Digger struct {
	size       int           // number of DNS workers.
	nameserver string        // host:port of nameserver to ask.
	transport  string        // "udp" or "tcp".
	timeout    time.Duration // per-query timeout.
	netnsref   string        // network namespace to dig from, or "".
}

// DiggerOption can be passed to New when creating new [Digger] objects.
type DiggerOption func(*Digger)

// New returns a new Digger with the specified maximum number of DNS workers,
// asking the specified nameserver. If the nameserver doesn't specify a port,
// port 53 is assumed. An empty nameserver selects the [DefaultNameserver].
func New(size int, nameserver string, options ...DiggerOption) (*Digger, error) {
	if size < 1 {
		return nil, fmt.Errorf("Digger: size must be at least 1, got: %d", size)
	}
	if nameserver == "" {
		nameserver = DefaultNameserver()
	}
	if _, _, err := net.SplitHostPort(nameserver); err != nil {
		nameserver = net.JoinHostPort(strings.Trim(nameserver, "[]"), "53")
	}
	d := &Digger{
		size:       size,
		nameserver: nameserver,
		transport:  "udp",
		timeout:    5 * time.Second,
	}
	for _, opt := range options {
		opt(d)
	}
	return d, nil
}

// WithTransport sets the transport to use when talking to the nameserver,
// either "udp" (default) or "tcp".
func WithTransport(transport string) DiggerOption {
	return func(d *Digger) {
		d.transport = transport
	}
}

// WithQueryTimeout sets the timeout of individual DNS queries.
func WithQueryTimeout(timeout time.Duration) DiggerOption {
	return func(d *Digger) {
		d.timeout = timeout
	}
}

// InNetworkNamespace digs from inside the network namespace referenced by the
// specified filesystem path, such as "/proc/666/ns/net".
func InNetworkNamespace(netnsref string) DiggerOption {
	return func(d *Digger) {
		d.netnsref = netnsref
	}
}

// Nameserver returns the host:port address of the nameserver asked.
func (d *Digger) Nameserver() string { return d.nameserver }

// Dig resolves the specified hostnames into their IPv4 addresses, returning
// the resolved addresses with their hostnames. Hostnames that cannot be
// resolved are skipped. The addresses are recorded in the order the hostnames
// were passed in, not in the order of completing their resolution.
//
// Dig returns an error only if it cannot set up its DNS workers. When the
// context gets cancelled, Dig returns what has been resolved so far.
func (d *Digger) Dig(ctx context.Context, hostnames []string) (*types.AddressMap, error) {
	// Don't dial more connections than there are hostnames to dig.
	size := d.size
	if len(hostnames) < size {
		size = len(hostnames)
	}
	if size < 1 {
		size = 1
	}
	workers, err := dnsworker.New(
		context.Background(), // ...dialing is bounded by the client timeout anyway.
		size,
		&dns.Client{Net: d.transport, Timeout: d.timeout},
		d.nameserver,
		dnsworker.InNetworkNamespace(d.netnsref))
	if err != nil {
		return nil, fmt.Errorf("cannot dig addresses: %w", err)
	}
	// Each hostname gets its own slot for its resolved addresses, so we can
	// later assemble the address map in the order of the hostnames, and not
	// in the order of completing the queries.
	dug := make([][]string, len(hostnames))
	for idx, hostname := range hostnames {
		idx, hostname := idx, hostname
		workers.ResolveName(ctx, hostname, func(addrs []string, err error) {
			if err != nil {
				log.Debugf("cannot dig %s: %s", hostname, err.Error())
				return
			}
			dug[idx] = addrs
		})
	}
	workers.StopWait()

	m := types.NewAddressMap()
	for idx, addrs := range dug {
		hostname := strings.TrimSuffix(strings.TrimSpace(hostnames[idx]), ".")
		for _, addr := range addrs {
			m.Add(hostname, addr)
		}
	}
	log.Debugf("dug %d distinct addresses for %d hostnames using %s",
		m.Len(), len(hostnames), d.nameserver)
	return m, nil
}

// DefaultNameserver returns the first nameserver from the system's resolver
// configuration, or otherwise the [FallbackNameserver].
func DefaultNameserver() string {
	cfg, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil || len(cfg.Servers) == 0 {
		return FallbackNameserver
	}
	return net.JoinHostPort(cfg.Servers[0], cfg.Port)
}
