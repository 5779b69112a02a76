// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package dnsworker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/miekg/dns"
	"github.com/thediveo/lxkns/ops"
	"github.com/thediveo/lxkns/ops/relations"
	"github.com/thediveo/lxkns/species"
)

// DnsPool is a (size-limited) pool of DNS client connections talking with the
// same DNS resolver address.
type DnsPool struct {
	netns   relations.Relation // network namespace to dial from, or nil.
	workers *workerpool.WorkerPool
	client  *dns.Client
	mu      sync.Mutex // protects the pool of DNS connections
	free    []*dns.Conn
}

// DnsPoolOption can be passed to New when creating new [DnsPool] objects.
type DnsPoolOption func(*DnsPool)

// New returns a pool of the specified size of DNS client connections, with each
// connection talking to the same DNS resolver address.
//
// DNS tasks are submitted using [DnsPool.Submit] in form of task functions
// receiving a concrete [dns.Conn].
//
// The passed context is used for creating (dialing) the DNS client connections
// only. Task submitters are themselves responsible for capturing the necessary
// context in their task function closure.
//
// To dial the connections from a network namespace different to that of the
// OS-level thread of the caller specify the [InNetworkNamespace] option and
// pass it a filesystem path that must reference a network namespace (such as
// "/proc/666/ns/net"). Once dialed, the connections stay in this network
// namespace, regardless of the thread using them later.
func New(ctx context.Context, size int, dnsclnt *dns.Client, addr string, options ...DnsPoolOption) (*DnsPool, error) {
	if size < 1 {
		return nil, fmt.Errorf("DnsPool: size must be at least 1, got: %d", size)
	}
	dnspool := &DnsPool{
		client: dnsclnt,
	}
	for _, opt := range options {
		opt(dnspool)
	}
	free := make([]*dns.Conn, 0, size)
	dial := func() interface{} {
		for i := 0; i < size; i++ {
			conn, err := dnsclnt.DialContext(ctx, addr)
			if err != nil {
				// Immediately release all connections created so far.
				for _, conn := range free {
					conn.Close()
				}
				return err
			}
			free = append(free, conn)
		}
		return nil
	}
	// Dial the connections in the requested network namespace, if necessary.
	var err error
	var dialerr interface{}
	if dnspool.netns != nil {
		dialerr, err = ops.Execute(dial, dnspool.netns)
	} else {
		dialerr = dial()
	}
	if err != nil {
		return nil, err
	}
	if dialerr != nil {
		return nil, dialerr.(error)
	}
	dnspool.free = free
	dnspool.workers = workerpool.New(size)
	return dnspool, nil
}

// InNetworkNamespace optionally dials the connections of a DnsPool inside the
// network namespace referenced by the specified filesystem path. An empty path
// leaves the pool in the caller's network namespace.
func InNetworkNamespace(netnsref string) DnsPoolOption {
	return func(p *DnsPool) {
		if netnsref == "" {
			return
		}
		p.netns = ops.NewTypedNamespacePath(netnsref, species.CLONE_NEWNET)
	}
}

// Submit a task to the DNS client connection pool, where it gets enqueued to be
// executed on an available DNS client connection.
func (p *DnsPool) Submit(task func(conn *dns.Conn)) {
	p.workers.Submit(func() { p.task(task) })
}

// ResolveName is a convenience method for submitting an A query and gathering
// the resulting IPv4 addresses in textual format. These addresses or an error
// if resolution failed are then passed to the specified callback function fn.
// CNAME chains are followed as far as the server answers them within the same
// response.
//
// fn is called exactly once per ResolveName, even if the context gets
// cancelled: then, fn receives the context's error.
func (p *DnsPool) ResolveName(ctx context.Context, name string, fn func([]string, error)) {
	p.Submit(func(conn *dns.Conn) {
		var addrs []string
		var err error
		defer func() { fn(addrs, err) }() // ...ensure triggering the result callback on our way out

		// don't try to resolve the name if the context has been cancelled;
		// trigger the callback immediately with the context error.
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		default:
		}

		fqdn := dns.Fqdn(strings.TrimSpace(name))
		msg := dns.Msg{
			MsgHdr: dns.MsgHdr{Id: dns.Id(), RecursionDesired: true},
		}
		msg.SetQuestion(fqdn, dns.TypeA)
		var r *dns.Msg
		r, _, err = p.client.ExchangeWithConn(&msg, conn)
		if err != nil {
			return
		}
		if r.Rcode != dns.RcodeSuccess {
			err = fmt.Errorf("ResolveName: query for %q failed with %s",
				name, dns.RcodeToString[r.Rcode])
			return
		}
		for _, rr := range r.Answer {
			if addrRR, ok := rr.(*dns.A); ok {
				addrs = append(addrs, addrRR.A.String())
			}
		}
		if len(addrs) == 0 {
			err = fmt.Errorf("ResolveName: query for %q yields no answers", name)
		}
	})
}

// task grabs the next free DNS client and passes it to the specified function.
// After the function returns, the connection is put back into the free list.
func (p *DnsPool) task(task func(conn *dns.Conn)) {
	// pop off a free DNS client connection,
	// https://ueokande.github.io/go-slice-tricks/,
	p.mu.Lock()
	if len(p.free) == 0 {
		p.mu.Unlock()
		panic("no free DNS client connection available")
	}
	last := len(p.free) - 1
	conn := p.free[last]
	p.free = p.free[:last]
	p.mu.Unlock()
	// ...and push the DNS client connection back into the free list, even if
	// the task panics.
	defer func() {
		p.mu.Lock()
		p.free = append(p.free, conn)
		p.mu.Unlock()
	}()
	task(conn)
}

// StopWait waits for all enqueued address lookup or generic DNS request tasks
// to finish, and then shuts down the pool.
func (p *DnsPool) StopWait() {
	p.workers.StopWait()
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, conn := range p.free {
		conn.Close()
	}
	p.free = nil
}
