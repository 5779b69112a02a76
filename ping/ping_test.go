// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package ping

import (
	"context"
	"os"
	"time"

	"github.com/siemens/cidrscope/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/namspill"
)

var _ = Describe("pinger", func() {

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(3 * time.Second).WithPolling(250 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
			Expect(Tasks()).To(BeUniformlyNamespaced())
		})
	})

	It("configures pingers", func() {
		p := New(0,
			WithCount(2),
			WithInterval(250*time.Millisecond),
			WithThresholdPercentage(100),
			AsUnprivileged(),
			InNetworkNamespace(""))
		Expect(p.size).To(Equal(1))
		Expect(p.count).To(Equal(2))
		Expect(p.interval).To(Equal(250 * time.Millisecond))
		Expect(p.thresholdPercentage).To(Equal(uint(100)))
		Expect(p.unprivileged).To(BeTrue())
		Expect(p.netns).To(BeNil())

		Expect(New(4).count).To(Equal(3))
	})

	It("rejects invalid thresholds", func() {
		Expect(func() { WithThresholdPercentage(101) }).To(Panic())
	})

	It("considers addresses unreachable after cancellation", func(ctx context.Context) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		reach, err := New(1).Ping(ctx, "127.0.0.1")
		Expect(reach).To(Equal(types.Unreachable))
		Expect(err).To(MatchError(context.Canceled))
	})

	It("probes records, keeping their order", func(ctx context.Context) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		records := []types.Record{
			{Hostname: "a.example.com", Address: "10.0.0.5"},
			{Hostname: "b.example.com", Address: "10.0.0.6"},
			{Hostname: "www.example.com", Address: "10.0.0.5"},
		}
		probed := New(2).Probe(ctx, records)
		Expect(probed).To(HaveExactElements(
			types.Record{Hostname: "a.example.com", Address: "10.0.0.5", Reach: types.Unreachable},
			types.Record{Hostname: "b.example.com", Address: "10.0.0.6", Reach: types.Unreachable},
			types.Record{Hostname: "www.example.com", Address: "10.0.0.5", Reach: types.Unreachable},
		))
		Expect(records[0].Reach).To(Equal(types.Unprobed))
	})

	It("probes nothing", func(ctx context.Context) {
		Expect(New(2).Probe(ctx, nil)).To(BeEmpty())
	})

	When("running as root", func() {

		BeforeEach(func() {
			if os.Getuid() != 0 {
				Skip("needs root")
			}
		})

		It("pings the loopback", NodeTimeout(30*time.Second), func(ctx context.Context) {
			p := New(1, WithCount(2), WithInterval(100*time.Millisecond))
			Expect(p.Ping(ctx, "127.0.0.1")).To(Equal(types.Reachable))
		})

		It("pings from inside a network namespace", NodeTimeout(30*time.Second), func(ctx context.Context) {
			p := New(1, WithCount(1), WithInterval(100*time.Millisecond),
				InNetworkNamespace("/proc/self/ns/net"))
			Expect(p.netns).NotTo(BeNil())
			probed := p.Probe(ctx, []types.Record{{Hostname: "localhost", Address: "127.0.0.1"}})
			Expect(probed).To(ConsistOf(HaveField("Reach", types.Reachable)))
		})

	})

})
