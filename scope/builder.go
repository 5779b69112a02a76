// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package scope

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/siemens/cidrscope/listfile"

	"github.com/thediveo/lxkns/log"
)

var (
	// ErrFileNotFound is returned (wrapped) when a CIDR file doesn't exist.
	ErrFileNotFound = errors.New("CIDR file not found")
	// ErrNoRanges is returned when building a scope without any valid range.
	ErrNoRanges = errors.New("no valid CIDR ranges provided")
)

// WarnFunc gets called for each CIDR literal skipped because it is invalid.
type WarnFunc func(literal string, err error)

// Builder collects ranges from CIDR files and individual CIDR literals, in the
// order they are encountered, and finally builds a [Set] from them.
type Builder struct {
	ranges []Range
	warn   WarnFunc
}

// BuilderOption can be passed to NewBuilder when creating new [Builder] objects.
type BuilderOption func(*Builder)

// NewBuilder returns a new and empty Builder.
func NewBuilder(options ...BuilderOption) *Builder {
	b := &Builder{}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// WithWarnings sets the function to be called for every invalid CIDR literal
// skipped.
func WithWarnings(fn WarnFunc) BuilderOption {
	return func(b *Builder) {
		b.warn = fn
	}
}

// Add the ranges given as CIDR literals. Blank literals are ignored, invalid
// literals skipped with a warning. Add returns the number of ranges added.
func (b *Builder) Add(literals ...string) int {
	added := 0
	for _, literal := range literals {
		if strings.TrimSpace(literal) == "" {
			continue
		}
		r, err := ParseRange(literal)
		if err != nil {
			log.Debugf("skipping invalid CIDR range %q: %s", literal, err.Error())
			if b.warn != nil {
				b.warn(literal, err)
			}
			continue
		}
		b.ranges = append(b.ranges, r)
		added++
	}
	return added
}

// AddFile adds the ranges read from a file with one CIDR literal per line.
// Blank lines are ignored, invalid lines skipped with a warning. A missing
// file is an error, wrapping ErrFileNotFound.
func (b *Builder) AddFile(path string) error {
	literals, err := listfile.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("cannot read CIDR file %s: %w", path, err)
	}
	added := b.Add(literals...)
	log.Debugf("added %d CIDR ranges from %s", added, path)
	return nil
}

// Build returns the Set of ranges collected so far, or ErrNoRanges if there
// isn't any valid range.
func (b *Builder) Build() (*Set, error) {
	if len(b.ranges) == 0 {
		return nil, ErrNoRanges
	}
	return NewSet(b.ranges...), nil
}

// Build returns the scope Set consisting of the ranges from the CIDR file at
// path (if path isn't empty), followed by the ranges from the manual literals.
func Build(path string, manual []string, options ...BuilderOption) (*Set, error) {
	b := NewBuilder(options...)
	if path != "" {
		if err := b.AddFile(path); err != nil {
			return nil, err
		}
	}
	b.Add(manual...)
	return b.Build()
}
