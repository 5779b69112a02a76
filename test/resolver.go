// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gi "github.com/onsi/ginkgo/v2"
	g "github.com/onsi/gomega"
	s "github.com/thediveo/success"
)

// FakeResolver is a throw-away resolver executable (shell script) behaving
// like dnsprobe when called with "-l hostfile".
type FakeResolver struct {
	Path    string // path of the executable.
	Dir     string // directory the executable lives in.
	SeenLog string // file the executable logs its hostfile path to.
}

// NewFakeResolver creates a shell script resolver in a new temporary directory
// that gets removed after the current test. The script logs the path of the
// hostfile passed to it and then runs the specified shell script body, which
// gets the hostfile path in $HOSTFILE.
func NewFakeResolver(name string, body string) *FakeResolver {
	gi.GinkgoHelper()

	dir := s.Successful(os.MkdirTemp("", "cidrscope-resolver-*"))
	gi.DeferCleanup(func() { _ = os.RemoveAll(dir) })
	r := &FakeResolver{
		Path:    filepath.Join(dir, name),
		Dir:     dir,
		SeenLog: filepath.Join(dir, "seen"),
	}
	script := fmt.Sprintf("#!/bin/sh\n"+
		"[ \"$1\" = \"-l\" ] || exit 2\n"+
		"HOSTFILE=\"$2\"\n"+
		"echo \"$HOSTFILE\" > %q\n"+
		"%s\n", r.SeenLog, body)
	g.Expect(os.WriteFile(r.Path, []byte(script), 0755)).To(g.Succeed())
	return r
}

// MappingResolver returns a FakeResolver answering every hostname in its
// hostfile with the address from the specified hostname-to-address mapping,
// and ignoring all other hostnames.
func MappingResolver(name string, addrs map[string]string) *FakeResolver {
	gi.GinkgoHelper()

	var body strings.Builder
	body.WriteString("while read -r host; do\n  case \"$host\" in\n")
	for host, addr := range addrs {
		fmt.Fprintf(&body, "  %q) echo \"$host %s\" ;;\n", host, addr)
	}
	body.WriteString("  esac\ndone < \"$HOSTFILE\"\n")
	return NewFakeResolver(name, body.String())
}

// SeenHostfile returns the path of the hostfile the fake resolver was called
// with most recently, or "" if it never was called.
func (r *FakeResolver) SeenHostfile() string {
	b, err := os.ReadFile(r.SeenLog)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// WriteFile writes a new file with the specified content into a new temporary
// directory, returning the file's path. The directory gets removed after the
// current test.
func WriteFile(name string, content string) string {
	gi.GinkgoHelper()

	dir := s.Successful(os.MkdirTemp("", "cidrscope-input-*"))
	gi.DeferCleanup(func() { _ = os.RemoveAll(dir) })
	path := filepath.Join(dir, name)
	g.Expect(os.WriteFile(path, []byte(content), 0644)).To(g.Succeed())
	return path
}
