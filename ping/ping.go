// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package ping

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/siemens/cidrscope/types"

	"github.com/gammazero/workerpool"
	"github.com/go-ping/ping"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/ops"
	"github.com/thediveo/lxkns/ops/relations"
	"github.com/thediveo/lxkns/species"
)

// Pinger probes the reachability of addresses by pinging them, using a
// goroutine-limited worker pool.
type Pinger struct {
	size                int           // maximum number of concurrent pings.
	count               int           // number of pings to send.
	interval            time.Duration // distance between pings.
	thresholdPercentage uint          // percentage of successful pings for a reachable address.
	unprivileged        bool          // if true, uses UDP-based pings instead of privileged ICMPs.

	netns relations.Relation // network namespace to ping from, or nil.
}

// PingerOption can be passed to New when creating new Pinger objects.
type PingerOption func(*Pinger)

// New returns a new [Pinger] with a maximum worker pool of the specified size.
//
// The new pinger defaults to pinging 3 times at intervals of 1s between each
// ping. The reachability threshold defaults to 50(%).
//
// The pinger can be configured during creation using several option:
//   - [WithCount]
//   - [WithInterval]
//   - [WithThresholdPercentage]
//   - [AsUnprivileged]
//   - [InNetworkNamespace]
func New(size int, options ...PingerOption) *Pinger {
	if size < 1 {
		size = 1
	}
	pinger := &Pinger{
		size:                size,
		count:               3,
		interval:            time.Second,
		thresholdPercentage: 50,
	}
	for _, opt := range options {
		opt(pinger)
	}
	return pinger
}

// InNetworkNamespace optionally runs a [Pinger] inside the network namespace
// referenced by the specified filesystem path. An empty path leaves the
// pinger in the caller's network namespace.
func InNetworkNamespace(netnsref string) PingerOption {
	return func(p *Pinger) {
		if netnsref == "" {
			return
		}
		p.netns = ops.NewTypedNamespacePath(netnsref, species.CLONE_NEWNET)
	}
}

// WithCount sets the number of pings for testing reachability of an address.
func WithCount(count uint) PingerOption {
	return func(p *Pinger) {
		p.count = int(count)
	}
}

// WithInterval sets the interval between consecutive pings.
func WithInterval(interval time.Duration) PingerOption {
	return func(p *Pinger) {
		p.interval = interval
	}
}

// AsUnprivileged tells the Pinger to carry out unprivileged pings using UDP
// instead of ICMP packet.
func AsUnprivileged() PingerOption {
	return func(p *Pinger) {
		p.unprivileged = true
	}
}

// WithThresholdPercentage takes a percentage between 0 and 100 that specifies
// the percentage of successful ping responses required in order to consider
// the pinged address to be reachable.
func WithThresholdPercentage(threshold uint) PingerOption {
	if threshold > 100 {
		panic(fmt.Errorf("Pinger: threshold must be a percentage between 0 <= threshold <= 100, got: %d",
			threshold))
	}
	return func(p *Pinger) {
		p.thresholdPercentage = threshold
	}
}

// Probe pings the addresses of the specified records and returns a copy of the
// records with their reachability updated. Each distinct address is pinged
// only once, regardless of how many hostnames resolve to it.
//
// Addresses not yet pinged when the context gets cancelled are considered
// unreachable.
func (p *Pinger) Probe(ctx context.Context, records []types.Record) []types.Record {
	var mu sync.Mutex
	verdicts := map[string]types.Reachability{}
	for _, rec := range records {
		verdicts[rec.Address] = types.Probing
	}
	workers := workerpool.New(p.size)
	for addr := range verdicts {
		addr := addr
		workers.Submit(func() {
			reach, err := p.Ping(ctx, addr)
			if err != nil {
				log.Debugf("address %s unreachable: %s", addr, err.Error())
			}
			mu.Lock()
			verdicts[addr] = reach
			mu.Unlock()
		})
	}
	workers.StopWait()

	probed := make([]types.Record, 0, len(records))
	for _, rec := range records {
		probed = append(probed, rec.WithReach(verdicts[rec.Address]))
	}
	return probed
}

// Ping the specified address and return its reachability, together with the
// reason in case it is unreachable.
//
// An address is considered to be unreachable if the percentage of
// successfully received ping replies doesn't reach or cross the Pinger's
// threshold. This allows for some legroom.
//
// The ping is automatically aborted when the specified context either meets
// its deadline or gets cancelled. The address is then considered to be
// unreachable.
func (p *Pinger) Ping(ctx context.Context, addr string) (types.Reachability, error) {
	ping := func() interface{} {
		// A quick and non-blocking check to see if the context has been
		// cancelled before we start our work...
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		pinger, err := ping.NewPinger(addr)
		if err != nil {
			return err
		}
		pinger.SetPrivileged(!p.unprivileged)
		pinger.Count = p.count
		pinger.Interval = p.interval
		// Always limit waiting for the last ping to get reflected (or not)!
		pinger.Timeout = time.Duration(int64(p.interval) * int64(p.count+2))
		// While the ping will be running, we need to monitor the context in
		// case it becomes "done" by either getting cancelled or reaching
		// its deadline. The done channel here works "the other way round"
		// in the sense that it terminated the concurrent context
		// monitoring.
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				pinger.Stop()
			case <-done:
			}
		}()
		// Now start making some noise...
		if err = pinger.Run(); err != nil {
			return err
		}
		// Was the context done?
		if err := ctx.Err(); err != nil {
			return err
		}
		stats := pinger.Statistics()
		if stats.PacketsRecv < pinger.Count*int(p.thresholdPercentage)/100 ||
			stats.PacketsRecv == 0 {
			return errors.New("no replies or too many losses")
		}
		return nil
	}
	// Run the ping in the requested network namespace, if necessary.
	var err error
	if p.netns != nil {
		// lxkns' ops.Execute differentiates between a namespace switching
		// error and the under switched namespaces called function result.
		// We use this function result to return ping errors, so we now need
		// to use the ping-related error (unless there is an Execute-related
		// error) to trigger the unreachable verdict.
		var pingerr interface{}
		pingerr, err = ops.Execute(ping, p.netns)
		if err == nil && pingerr != nil {
			if fnerr, ok := pingerr.(error); ok {
				err = fnerr
			}
		}
	} else {
		if res := ping(); res != nil {
			err = res.(error)
		}
	}
	if err != nil {
		return types.Unreachable, err
	}
	return types.Reachable, nil
}
