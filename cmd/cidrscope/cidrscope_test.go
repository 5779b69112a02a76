// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/siemens/cidrscope/dnsprobe"
	"github.com/siemens/cidrscope/scope"
	"github.com/siemens/cidrscope/test"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/gexec"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/success"
)

// cidrscope runs the root command in-process with the specified CLI args,
// returning the combined output as well as the command's error.
func cidrscope(ctx context.Context, args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd := newRootCmd()
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

var _ = Describe("cidrscope command", func() {

	var fake *test.FakeResolver
	var subdomains string

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(3 * time.Second).WithPolling(250 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
		})

		fake = test.MappingResolver("fakeprobe", map[string]string{
			"a.example.com":   "10.0.0.5",
			"b.example.com":   "8.8.8.8",
			"www.example.com": "10.0.0.5",
			"c.example.com":   "192.168.1.77",
		})
		subdomains = test.WriteFile("subdomains.txt",
			"a.example.com\nb.example.com\n\nwww.example.com\nc.example.com\n")
	})

	It("reports and saves in-scope subdomains", NodeTimeout(10*time.Second), func(ctx context.Context) {
		cidrs := test.WriteFile("cidrs.txt", "10.0.0.0/24\n\n")
		output := filepath.Join(filepath.Dir(cidrs), "results.txt")

		out, err := cidrscope(ctx,
			"-c", cidrs, "-s", subdomains, "-o", output, "--resolver", fake.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("\nIn-scope subdomains and IPs:\n"))
		Expect(out).To(ContainSubstring("a.example.com: 10.0.0.5\n"))
		Expect(out).To(ContainSubstring("www.example.com: 10.0.0.5\n"))
		Expect(out).NotTo(ContainSubstring("b.example.com"))
		Expect(out).NotTo(ContainSubstring("c.example.com"))
		Expect(out).To(ContainSubstring("[INFO] Results saved to " + output))

		Expect(string(Successful(os.ReadFile(output)))).To(SatisfyAll(
			ContainSubstring("a.example.com: 10.0.0.5\n"),
			ContainSubstring("www.example.com: 10.0.0.5\n"),
			Not(ContainSubstring("8.8.8.8")),
		))
		Expect(fake.SeenHostfile()).NotTo(BeAnExistingFile())
	})

	It("combines file and manual ranges, skipping invalid ones", NodeTimeout(10*time.Second), func(ctx context.Context) {
		cidrs := test.WriteFile("cidrs.txt", "10.0.0.0/24\nnot-a-cidr\n")

		out, err := cidrscope(ctx,
			"-c", cidrs, "-m", "8.8.8.0/24 999.1.1.1/8", "-s", subdomains, "--resolver", fake.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("[WARN] Skipping invalid CIDR range: not-a-cidr\n"))
		Expect(out).To(ContainSubstring("[WARN] Skipping invalid CIDR range: 999.1.1.1/8\n"))
		Expect(out).To(ContainSubstring("a.example.com: 10.0.0.5\n"))
		Expect(out).To(ContainSubstring("b.example.com: 8.8.8.8\n"))
		Expect(out).NotTo(ContainSubstring("c.example.com"))
	})

	It("skips over-long lines in the input files", NodeTimeout(10*time.Second), func(ctx context.Context) {
		long := strings.Repeat("x", 70000)
		cidrs := test.WriteFile("cidrs.txt", "10.0.0.0/24\n"+long+"\n")
		hosts := test.WriteFile("subdomains.txt", long+"\na.example.com\n")

		out, err := cidrscope(ctx, "-c", cidrs, "-s", hosts, "--resolver", fake.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("[WARN] Skipping invalid CIDR range: xxx"))
		Expect(out).NotTo(ContainSubstring("Failed to resolve"))
		Expect(out).To(ContainSubstring("a.example.com: 10.0.0.5\n"))
	})

	It("accepts multiple manual ranges following -m", NodeTimeout(10*time.Second), func(ctx context.Context) {
		out, err := cidrscope(ctx,
			"-s", subdomains, "--resolver", fake.Path, "-m", "8.8.8.8", "192.168.0.0/16")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("b.example.com: 8.8.8.8\n"))
		Expect(out).To(ContainSubstring("c.example.com: 192.168.1.77\n"))
		Expect(out).NotTo(ContainSubstring("10.0.0.5"))
	})

	It("rejects stray arguments without -m", func(ctx context.Context) {
		_, err := cidrscope(ctx, "-s", subdomains, "-c", "cidrs.txt", "10.0.0.0/8")
		Expect(err).To(MatchError(ContainSubstring("must follow -m/--manual")))
	})

	It("reports when nothing is in scope", NodeTimeout(10*time.Second), func(ctx context.Context) {
		cidrs := test.WriteFile("cidrs.txt", "172.16.0.0/12\n")
		output := filepath.Join(filepath.Dir(cidrs), "results.txt")

		out, err := cidrscope(ctx,
			"-c", cidrs, "-s", subdomains, "-o", output, "--resolver", fake.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveSuffix("\nNo in-scope subdomains found.\n"))
		Expect(output).NotTo(BeAnExistingFile())
	})

	It("fails without any valid range", func(ctx context.Context) {
		cidrs := test.WriteFile("cidrs.txt", "garbage\n")
		_, err := cidrscope(ctx, "-c", cidrs, "-s", subdomains, "--resolver", fake.Path)
		Expect(err).To(MatchError(scope.ErrNoRanges))
		Expect(fake.SeenHostfile()).To(BeEmpty())

		_, err = cidrscope(ctx, "-s", subdomains, "--resolver", fake.Path)
		Expect(err).To(MatchError(scope.ErrNoRanges))
	})

	It("fails on a missing CIDR file", func(ctx context.Context) {
		_, err := cidrscope(ctx, "-c", "/nonexisting/cidrs.txt", "-s", subdomains, "--resolver", fake.Path)
		Expect(err).To(MatchError(scope.ErrFileNotFound))
		Expect(fake.SeenHostfile()).To(BeEmpty())
	})

	It("fails on a missing subdomain file without resolving", func(ctx context.Context) {
		_, err := cidrscope(ctx, "-m", "10.0.0.0/8", "-s", "/nonexisting/subdomains.txt", "--resolver", fake.Path)
		Expect(err).To(MatchError(dnsprobe.ErrSubdomainsNotFound))
		Expect(fake.SeenHostfile()).To(BeEmpty())
	})

	It("warns about a missing resolver and carries on", func(ctx context.Context) {
		out, err := cidrscope(ctx, "-m", "10.0.0.0/8", "-s", subdomains,
			"--resolver", "/nonexisting/dnsprobe")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("[WARN] Resolver /nonexisting/dnsprobe not found"))
		Expect(out).To(HaveSuffix("\nNo in-scope subdomains found.\n"))
	})

	It("reports partial results of a failing resolver", NodeTimeout(10*time.Second), func(ctx context.Context) {
		failing := test.NewFakeResolver("failprobe", "echo 'a.example.com 10.0.0.5'\nexit 3")
		out, err := cidrscope(ctx, "-m", "10.0.0.0/8", "-s", subdomains, "--resolver", failing.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("[WARN] Failed to resolve subdomains: "))
		Expect(out).To(ContainSubstring("a.example.com: 10.0.0.5\n"))
	})

	It("reports failing to save results", NodeTimeout(10*time.Second), func(ctx context.Context) {
		out, err := cidrscope(ctx, "-m", "10.0.0.0/8", "-s", subdomains, "--resolver", fake.Path,
			"-o", "/nonexisting/results.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("a.example.com: 10.0.0.5\n"))
		Expect(out).To(ContainSubstring("[ERROR] Failed to save results: "))
		Expect(out).NotTo(ContainSubstring("Results saved"))
	})

	It("resolves using the built-in resolver", NodeTimeout(20*time.Second), func(ctx context.Context) {
		nameserver := test.NewDNSServer(map[string][]string{
			"a.example.com":   {"10.0.0.5", "8.8.4.4"},
			"www.example.com": {"10.0.0.6"},
			"b.example.com":   {"8.8.8.8"},
		})
		out, err := cidrscope(ctx, "-m", "10.0.0.0/24", "-s", subdomains,
			"--resolver", builtinResolver, "--nameserver", nameserver, "--workers", "2")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("a.example.com: 10.0.0.5\n"))
		Expect(out).To(ContainSubstring("www.example.com: 10.0.0.6\n"))
		Expect(out).NotTo(ContainSubstring("8.8."))
		Expect(out).NotTo(ContainSubstring("c.example.com"))
	})

	It("warns about privileged pings without root", NodeTimeout(30*time.Second), func(ctx context.Context) {
		if os.Geteuid() == 0 {
			Skip("needs non-root")
		}
		loopy := test.MappingResolver("loopprobe", map[string]string{
			"a.example.com": "127.0.0.1",
		})
		out, err := cidrscope(ctx, "-m", "127.0.0.0/8", "-s", subdomains,
			"--resolver", loopy.Path, "--ping")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("[WARN] Privileged pings need root"))
		Expect(out).To(ContainSubstring("a.example.com: 127.0.0.1 "))

		out, err = cidrscope(ctx, "-m", "127.0.0.0/8", "-s", subdomains,
			"--resolver", loopy.Path, "--ping", "--unprivileged")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).NotTo(ContainSubstring("Privileged pings"))
		Expect(out).To(ContainSubstring("a.example.com: 127.0.0.1 "))
	})

	It("pings in-scope addresses", NodeTimeout(30*time.Second), func(ctx context.Context) {
		if os.Geteuid() != 0 {
			Skip("needs root")
		}
		loopy := test.MappingResolver("loopprobe", map[string]string{
			"a.example.com": "127.0.0.1",
		})
		out, err := cidrscope(ctx, "-m", "127.0.0.0/8", "-s", subdomains,
			"--resolver", loopy.Path, "--ping")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("a.example.com: 127.0.0.1 ✔ reachable\n"))
	})

	DescribeTable("rejects invalid flags",
		func(args []string, expected string) {
			_, err := cidrscope(context.Background(), args...)
			Expect(err).To(MatchError(ContainSubstring(expected)))
		},
		Entry("missing subdomains", []string{"-m", "10.0.0.0/8"}, "subdomains"),
		Entry("no workers", []string{"-s", "x", "--workers", "0"}, "--workers"),
		Entry("too many workers", []string{"-s", "x", "--workers", "65"}, "--workers"),
		Entry("negative timeout", []string{"-s", "x", "--timeout", "-1s"}, "--timeout"),
		Entry("empty resolver", []string{"-s", "x", "--resolver", ""}, "--resolver"),
		Entry("unprivileged without ping", []string{"-s", "x", "-m", "10.0.0.0/8", "--unprivileged"}, "--ping"),
		Entry("netns and container", []string{"-s", "x", "-m", "10.0.0.0/8", "--netns", "x", "--container", "y"}, "netns"),
	)

	It("checks the network namespace", func(ctx context.Context) {
		_, err := cidrscope(ctx, "-m", "10.0.0.0/8", "-s", subdomains, "--resolver", builtinResolver,
			"--netns", "/nonexisting/netns")
		Expect(err).To(HaveOccurred())
	})

	It("exits with 1 on errors", func() {
		oldArgs := os.Args
		defer func() { os.Args = oldArgs }()
		oldExit := osExit
		defer func() { osExit = oldExit }()

		exitcode := -1
		osExit = func(code int) { exitcode = code }
		os.Args = []string{"cidrscope", "--workers", "0"}
		main()
		Expect(exitcode).To(Equal(1))
	})

})

var _ = Describe("cidrscope binary", Ordered, func() {

	var cidrscopePath string

	BeforeAll(func() {
		cidrscopePath = Successful(gexec.Build("github.com/siemens/cidrscope/cmd/cidrscope"))
		DeferCleanup(func() {
			gexec.CleanupBuildArtifacts()
		})
	})

	It("fails with exit code 1 and an error message", func() {
		sess := Successful(gexec.Start(exec.Command(cidrscopePath), GinkgoWriter, GinkgoWriter))
		Eventually(sess).WithTimeout(10 * time.Second).Should(gexec.Exit(1))
		Expect(sess.Err).To(Say(`\[ERROR\] .*subdomains`))
	})

	It("succeeds even without resolver", func() {
		subdomains := test.WriteFile("subdomains.txt", "a.example.com\n")
		sess := Successful(gexec.Start(
			exec.Command(cidrscopePath, "-m", "10.0.0.0/8", "-s", subdomains, "--resolver", "/nonexisting/dnsprobe"),
			GinkgoWriter, GinkgoWriter))
		Eventually(sess).WithTimeout(10 * time.Second).Should(gexec.Exit(0))
		Expect(sess.Out).To(Say(`No in-scope subdomains found\.`))
	})

})
