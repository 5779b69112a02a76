// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

// Yet another (braille) spinner, plus a single progress line.

package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uilive"
)

// spinnerInterval is the interval between the spinner phases as well as the
// progress line updates.
const spinnerInterval = 100 * time.Millisecond

// spinner is yet another blindingly simple spinner; just enough to get the job
// done, no bells, no frills.
type spinner struct {
	ticker *time.Ticker
	phases []string
	done   chan struct{}
	mu     sync.Mutex
	phase  int
}

// newSpinner returns a new spinner; later call the Start method to make it
// spinning, and the Stop method to stop it and release background resources.
func newSpinner() *spinner {
	phases := []string{}
	for _, r := range "⠉⠘⠰⠤⠆⠃" {
		phases = append(phases, string(r)+" ")
	}
	s := &spinner{
		phases: phases,
		done:   make(chan struct{}),
	}
	return s
}

// Spinner returns the spinner string for the current phase.
func (s *spinner) Spinner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phases[s.phase]
}

// Start the spinner to spin in steps every specified interval.
func (s *spinner) Start(interval time.Duration) {
	s.ticker = time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.mu.Lock()
				s.phase = (s.phase + 1) % len(s.phases)
				s.mu.Unlock()
			case <-s.done:
				s.ticker.Stop()
				return
			}
		}
	}()
}

// Stop the spinner and release the background resources.
func (s *spinner) Stop() {
	close(s.done)
}

// startProgress shows a spinning progress line with the specified message on
// w, returning a function to stop showing progress. If w isn't a terminal then
// no progress gets shown at all, so redirected output stays clean.
func startProgress(w io.Writer, msg string) (stop func()) {
	if !isTerminal(w) {
		return func() {}
	}
	sp := newSpinner()
	sp.Start(spinnerInterval)
	// Similar to rendering the dig results, we don't use uilive's background
	// updating but explicitly flush after each complete rendering.
	term := uilive.New()
	term.Out = w
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()
		for {
			fmt.Fprintf(term, "%s%s...\n", sp.Spinner(), msg)
			_ = term.Flush()
			select {
			case <-ticker.C:
			case <-done:
				fmt.Fprintf(term, "%s, done.\n", msg)
				_ = term.Flush()
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
			sp.Stop()
		})
	}
}
