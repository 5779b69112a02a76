/*
Package dnsworker implements a simple limiting DNS client-request execution
pool. cidrscope's built-in resolver uses a [DnsPool] with a pool of “DNS
workers” for A lookups.

Usage

	dnsclnt := dns.Client{}
	workers, err := dnsworker.New(
	    context.Background(),
	    4,                    // number of parallel DNS connections and thus workers
	    &dnsclnt,             // DNS client
	    "127.0.0.1:53",       // address of server/resolver
	)
	workers.ResolveName(
	    ctx,
	    "foobar.example.org",
	    func(addrs []string, err error){
	        // do something with addrs, unless there's an error reported
	    })
	workers.Submit(func(conn *dns.Conn){
	    // do something with the DNS connection
	})
	workers.StopWait()

# Acknowledgements

Under its hood, [DnsPool] leverages [gammazero/workerpool] as
the limiting goroutine pool.

[gammazero/workerpool]: https://github.com/gammazero/workerpool
*/
package dnsworker
