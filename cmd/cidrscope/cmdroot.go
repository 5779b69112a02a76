// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/siemens/cidrscope/dnsprobe"

	"github.com/spf13/cobra"
	"github.com/thediveo/lxkns/log"
)

// builtinResolver is the --resolver name selecting the built-in resolver
// instead of an external resolver executable.
const builtinResolver = "builtin"

var (
	cidrFile        *string
	manualRanges    *[]string
	subdomainsFile  *string
	outputFile      *string
	resolverName    *string
	resolverTimeout *time.Duration
	nameserver      *string
	workerNumber    *uint
	probe           *bool
	unprivileged    *bool
	netnsRef        *string
	containerName   *string
	noColor         *bool
	debug           *bool
)

func newRootCmd() (rootCmd *cobra.Command) {
	rootCmd = &cobra.Command{
		Use:   "cidrscope -s subdomains [-c cidrfile] [-m cidr [cidr ...]] [-o output] [flags]",
		Short: "cidrscope filters subdomains for those resolving into in-scope CIDR ranges",
		Long: "cidrscope resolves a list of subdomains (using dnsprobe by default) and then\n" +
			"reports only those subdomains resolving into the in-scope CIDR ranges.",
		Version:       "1.0.0",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true, // main reports errors itself.
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && !cmd.Flags().Changed("manual") {
				return fmt.Errorf("unexpected arguments %q; CIDR ranges must follow -m/--manual", args)
			}
			if *workerNumber < 1 || *workerNumber > 64 {
				return errors.New("--workers out of range [1..64]")
			}
			if *resolverTimeout < 0 {
				return errors.New("--timeout must not be negative")
			}
			if *unprivileged && !*probe {
				return errors.New("--unprivileged requires --ping")
			}
			if *resolverName == "" {
				return errors.New("--resolver must not be empty")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if *debug {
				log.SetLevel(log.DebugLevel)
				log.Debugf("debug logging enabled")
			}
			return ScopeAndReport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
		},
	}
	// Sets up the flags.
	flags := rootCmd.Flags()
	cidrFile = flags.StringP(
		"cidr", "c", "", "path to CIDR file (one CIDR per line)")
	manualRanges = flags.StringArrayP(
		"manual", "m", nil, "manually enter CIDR ranges (space-separated)")
	subdomainsFile = flags.StringP(
		"subdomains", "s", "", "path to subdomain list file")
	outputFile = flags.StringP(
		"output", "o", "", "save results to the specified file")
	resolverName = flags.String(
		"resolver", dnsprobe.DefaultExecutable,
		"resolver executable, or \""+builtinResolver+"\" for the built-in DNS resolver")
	resolverTimeout = flags.Duration(
		"timeout", dnsprobe.DefaultTimeout, "maximum resolver run time (0 for no limit)")
	nameserver = flags.String(
		"nameserver", "", "nameserver host[:port] for the built-in resolver (default from /etc/resolv.conf)")
	workerNumber = flags.Uint(
		"workers", 10, "number of built-in resolver and ping workers")
	probe = flags.Bool(
		"ping", false, "ping in-scope addresses to check their reachability")
	unprivileged = flags.Bool(
		"unprivileged", false, "ping using unprivileged UDP instead of raw ICMP sockets")
	netnsRef = flags.String(
		"netns", "", "network namespace path to resolve and ping from (built-in resolver only)")
	containerName = flags.String(
		"container", "", "Docker container to resolve and ping from (built-in resolver only)")
	noColor = flags.Bool(
		"no-color", false, "disable colored output")
	debug = rootCmd.PersistentFlags().Bool(
		"debug", false, "enable debugging output")

	_ = rootCmd.MarkFlagRequired("subdomains")
	rootCmd.MarkFlagsMutuallyExclusive("netns", "container")
	return
}
