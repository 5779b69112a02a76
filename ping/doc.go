/*
Package ping implements an ICMP-based reachability prober for the addresses of
in-scope hostnames.

[Pinger] objects ping the distinct addresses of a list of [types.Record]
concurrently, with a maximum goroutine limit, and then annotate all records
with the [types.Reachability] of their addresses. Records sharing the same
address only cause a single address to be pinged.

	pinger := ping.New(10, ping.WithCount(2))
	probed := pinger.Probe(ctx, inscope)

Pinging can also be carried out from inside a different network namespace
using the [InNetworkNamespace] option.

# Acknowledgements

Under its hood, [Pinger] leverages [gammazero/workerpool] as the limiting
goroutine pool and [go-ping/ping] for the actual pinging.

[gammazero/workerpool]: https://github.com/gammazero/workerpool
[go-ping/ping]: https://github.com/go-ping/ping
*/
package ping
