// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package dnsprobe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/siemens/cidrscope/listfile"
	"github.com/siemens/cidrscope/types"

	"github.com/thediveo/lxkns/log"
)

// DefaultExecutable is the name of the resolver executable used unless told
// otherwise.
const DefaultExecutable = "dnsprobe"

// DefaultTimeout limits how long the resolver executable might run.
const DefaultTimeout = 5 * time.Minute

var (
	// ErrResolverNotFound signals that the resolver executable isn't
	// available on the search path, so nothing got resolved at all.
	ErrResolverNotFound = errors.New("resolver executable not found")
	// ErrResolverFailed signals that the resolver executable failed or timed
	// out; results might be incomplete.
	ErrResolverFailed = errors.New("resolver failed")
	// ErrSubdomainsNotFound signals a missing subdomain (hostname) file.
	ErrSubdomainsNotFound = errors.New("subdomain file not found")
)

// Resolver runs an external resolver executable, such as dnsprobe, on a list
// of hostnames and collects its findings.
type Resolver struct {
	executable string        // name or path of the resolver executable.
	timeout    time.Duration // maximum run time of the executable, or 0.
}

// Option can be passed to New when creating new [Resolver] objects.
type Option func(*Resolver)

// New returns a new Resolver, defaulting to the "dnsprobe" executable and a
// timeout of 5 minutes.
func New(options ...Option) *Resolver {
	r := &Resolver{
		executable: DefaultExecutable,
		timeout:    DefaultTimeout,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// WithExecutable sets the name or path of the resolver executable.
func WithExecutable(name string) Option {
	return func(r *Resolver) {
		r.executable = name
	}
}

// WithTimeout sets the maximum time the resolver executable is allowed to run
// before it gets killed. A zero timeout lets the executable run for as long as
// the context passed to Resolve allows.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		r.timeout = timeout
	}
}

// Executable returns the name or path of the resolver executable.
func (r *Resolver) Executable() string { return r.executable }

// Available returns true if the resolver executable can be found.
func (r *Resolver) Available() bool {
	_, err := exec.LookPath(r.executable)
	return err == nil
}

// ResolveFile resolves the hostnames from the file at path, with one hostname
// per line; blank lines are ignored. A missing file is an error wrapping
// ErrSubdomainsNotFound; the resolver executable isn't run in this case.
//
// See [Resolver.Resolve] for details about the results and errors.
func (r *Resolver) ResolveFile(ctx context.Context, path string) (*types.AddressMap, error) {
	hostnames, err := listfile.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSubdomainsNotFound, path)
		}
		return nil, fmt.Errorf("cannot read subdomain file %s: %w", path, err)
	}
	return r.Resolve(ctx, hostnames)
}

// Resolve runs the resolver executable as "resolver -l hostfile" on the
// specified hostnames and returns the resolved addresses with their hostnames.
//
// If the resolver executable cannot be found, Resolve returns an empty map
// together with an error wrapping ErrResolverNotFound, so that callers are
// able to tell this situation apart from simply not resolving anything.
//
// If the resolver executable fails, gets killed when the context is done, or
// times out, then Resolve returns whatever has been resolved so far together
// with an error wrapping ErrResolverFailed as well as the cause.
//
// The temporary hostfile passed to the resolver executable is always removed
// before Resolve returns.
func (r *Resolver) Resolve(ctx context.Context, hostnames []string) (*types.AddressMap, error) {
	exe, err := exec.LookPath(r.executable)
	if err != nil {
		log.Debugf("resolver executable %q not available: %s", r.executable, err.Error())
		return types.NewAddressMap(), fmt.Errorf("%w: %s", ErrResolverNotFound, r.executable)
	}
	hostfile, err := writeHostfile(hostnames)
	if err != nil {
		return types.NewAddressMap(), err
	}
	defer os.Remove(hostfile)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, exe, "-l", hostfile)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Don't wait endlessly for children of the resolver still holding on to
	// its output after the resolver has been killed.
	cmd.WaitDelay = time.Second
	log.Debugf("running %s -l %s with %d hostnames", exe, hostfile, len(hostnames))
	runerr := cmd.Run()
	m, err := ParseOutput(&stdout)
	if runerr != nil {
		if ctxerr := ctx.Err(); ctxerr != nil {
			runerr = ctxerr
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			log.Debugf("%s stderr: %s", r.executable, msg)
		}
		return m, fmt.Errorf("%w: %s: %w", ErrResolverFailed, r.executable, runerr)
	}
	if err != nil {
		return m, fmt.Errorf("%w: %s: malformed output: %w", ErrResolverFailed, r.executable, err)
	}
	log.Debugf("%s resolved %d distinct addresses", r.executable, m.Len())
	return m, nil
}

// writeHostfile writes the hostnames into a new temporary file, one hostname
// per line, and returns the path of this file.
func writeHostfile(hostnames []string) (string, error) {
	f, err := os.CreateTemp("", "cidrscope-hosts-*.txt")
	if err != nil {
		return "", fmt.Errorf("cannot create temporary hostfile: %w", err)
	}
	path := f.Name()
	f.Close()
	lines := make([]string, 0, len(hostnames))
	for _, hostname := range hostnames {
		if hostname = strings.TrimSpace(hostname); hostname != "" {
			lines = append(lines, hostname)
		}
	}
	if err := listfile.WriteLines(path, lines); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("cannot write temporary hostfile: %w", err)
	}
	return path, nil
}

// ParseOutput parses resolver output consisting of "hostname address" lines.
// Lines not consisting of exactly two whitespace-separated fields are silently
// skipped.
func ParseOutput(r io.Reader) (*types.AddressMap, error) {
	m := types.NewAddressMap()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			continue
		}
		m.Add(fields[0], fields[1])
	}
	return m, sc.Err()
}
