// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/siemens/cidrscope/dig"
	"github.com/siemens/cidrscope/dnsprobe"
	"github.com/siemens/cidrscope/listfile"
	"github.com/siemens/cidrscope/netns"
	"github.com/siemens/cidrscope/ping"
	"github.com/siemens/cidrscope/report"
	"github.com/siemens/cidrscope/scope"
	"github.com/siemens/cidrscope/types"

	"github.com/thediveo/lxkns/log"
	"golang.org/x/term"
)

// ScopeAndReport builds the scope from the CIDR file and manual CIDR ranges,
// then resolves the subdomains and reports those resolving into the scope.
// Finally, the in-scope subdomains are saved to the output file, if
// requested.
//
// Only invalid input, that is, a missing CIDR or subdomain file or ending up
// without any valid CIDR range, is an error. Resolver and save failures are
// reported, but the run then continues.
func ScopeAndReport(ctx context.Context, out io.Writer, progress io.Writer, extraRanges []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rep := newReporter(out)

	set, err := scope.Build(*cidrFile, manualCIDRs(append(*manualRanges, extraRanges...)),
		scope.WithWarnings(rep.SkippedRange))
	if err != nil {
		if errors.Is(err, scope.ErrNoRanges) {
			return fmt.Errorf("%w, use -c or -m", err)
		}
		return err
	}
	log.Debugf("scope: %s", set)

	// Check for the subdomains before resolving anything, so we fail early
	// without having the resolver run.
	if _, err := os.Stat(*subdomainsFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", dnsprobe.ErrSubdomainsNotFound, *subdomainsFile)
		}
		return fmt.Errorf("cannot access subdomain file: %w", err)
	}
	netnsref, err := networkNamespace(ctx)
	if err != nil {
		return err
	}

	addrs, err := resolve(ctx, rep, progress, netnsref)
	if err != nil {
		return err
	}
	inscope := scope.Filter(addrs, set)
	log.Debugf("%d of %d resolved addresses in scope", len(inscope), addrs.Len())

	if *probe && len(inscope) > 0 {
		inscope = probeReachability(ctx, rep, progress, netnsref, inscope)
	}

	rep.Results(inscope, *probe)
	if len(inscope) > 0 && *outputFile != "" {
		if err := listfile.WriteRecords(*outputFile, inscope); err != nil {
			rep.Error("Failed to save results: %s", err.Error())
		} else {
			rep.Saved(*outputFile)
		}
	}
	return nil
}

// resolve the subdomains using either the external resolver executable or the
// built-in resolver. Resolver failures are reported as warnings only, as
// resolving then simply yields (partially) nothing.
func resolve(ctx context.Context, rep *report.Reporter, progress io.Writer, netnsref string) (*types.AddressMap, error) {
	if *resolverName == builtinResolver {
		hostnames, err := listfile.Read(*subdomainsFile)
		if err != nil {
			return nil, fmt.Errorf("cannot read subdomain file: %w", err)
		}
		digger, err := dig.New(int(*workerNumber), *nameserver, dig.InNetworkNamespace(netnsref))
		if err != nil {
			return nil, err
		}
		if *resolverTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, *resolverTimeout)
			defer cancel()
		}
		stop := startProgress(progress,
			fmt.Sprintf("resolving %d subdomains using %s", len(hostnames), digger.Nameserver()))
		addrs, err := digger.Dig(ctx, hostnames)
		stop()
		if err != nil {
			rep.Warn("Failed to resolve subdomains: %s", err.Error())
			return types.NewAddressMap(), nil
		}
		return addrs, nil
	}

	if *netnsRef != "" || *containerName != "" {
		rep.Warn("--netns and --container apply only to the %s resolver and pinging", builtinResolver)
	}
	resolver := dnsprobe.New(
		dnsprobe.WithExecutable(*resolverName),
		dnsprobe.WithTimeout(*resolverTimeout))
	stop := startProgress(progress, "resolving subdomains using "+resolver.Executable())
	addrs, err := resolver.ResolveFile(ctx, *subdomainsFile)
	stop()
	switch {
	case errors.Is(err, dnsprobe.ErrSubdomainsNotFound):
		return nil, err
	case errors.Is(err, dnsprobe.ErrResolverNotFound):
		rep.Warn("Resolver %s not found, no subdomains resolved", resolver.Executable())
	case err != nil:
		rep.Warn("Failed to resolve subdomains: %s", err.Error())
	}
	if addrs == nil {
		addrs = types.NewAddressMap()
	}
	return addrs, nil
}

// probeReachability pings the addresses of the in-scope records, either using
// raw ICMP sockets or, when told so, unprivileged UDP "pings". Raw ICMP
// sockets need root (or CAP_NET_RAW), otherwise all addresses turn out to be
// unreachable, so we warn about this.
func probeReachability(ctx context.Context, rep *report.Reporter, progress io.Writer, netnsref string, records []types.Record) []types.Record {
	options := []ping.PingerOption{ping.InNetworkNamespace(netnsref)}
	if *unprivileged {
		options = append(options, ping.AsUnprivileged())
	} else if os.Geteuid() != 0 {
		rep.Warn("Privileged pings need root, addresses might wrongly show up as unreachable; consider --unprivileged")
	}
	stop := startProgress(progress, "pinging in-scope addresses")
	defer stop()
	return ping.New(int(*workerNumber), options...).Probe(ctx, records)
}

// networkNamespace returns the reference to the network namespace to resolve
// and ping from, or "" for the current one.
func networkNamespace(ctx context.Context) (string, error) {
	switch {
	case *netnsRef != "":
		if err := netns.Check(*netnsRef); err != nil {
			return "", err
		}
		return *netnsRef, nil
	case *containerName != "":
		moby, err := netns.NewClient()
		if err != nil {
			return "", fmt.Errorf("cannot connect to the Docker daemon: %w", err)
		}
		defer moby.Close()
		return netns.ContainerNetns(ctx, moby, *containerName)
	}
	return "", nil
}

// manualCIDRs returns the individual CIDR literals from the specified list,
// where each element might contain multiple space-separated literals.
func manualCIDRs(manual []string) []string {
	cidrs := []string{}
	for _, m := range manual {
		cidrs = append(cidrs, strings.Fields(m)...)
	}
	return cidrs
}

// newReporter returns a console reporter rendering to w, in color only when w
// is a terminal and colors haven't been disabled.
func newReporter(w io.Writer) *report.Reporter {
	if *noColor || !isTerminal(w) {
		return report.New(w, report.WithoutColor())
	}
	return report.New(w)
}

// isTerminal returns true if w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
