// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package report

import (
	"fmt"
	"io"

	"github.com/siemens/cidrscope/types"

	"github.com/muesli/termenv"
)

var (
	errorTagStyle = termenv.Style{}.Foreground(termenv.ANSIRed).Bold()
	warnTagStyle  = termenv.Style{}.Foreground(termenv.ANSIYellow).Bold()
	infoTagStyle  = termenv.Style{}.Foreground(termenv.ANSICyan)
	headingStyle  = termenv.Style{}.Bold()

	reachableStyle   = termenv.Style{}.Foreground(termenv.ANSIGreen)
	unreachableStyle = termenv.Style{}.Foreground(termenv.ANSIRed)
)

// Reporter writes human-readable, tagged messages and results to the console.
type Reporter struct {
	w     io.Writer
	plain bool // no colors, no other styles.
}

// ReporterOption can be passed to New when creating new [Reporter] objects.
type ReporterOption func(*Reporter)

// New returns a new Reporter writing to w.
func New(w io.Writer, options ...ReporterOption) *Reporter {
	r := &Reporter{w: w}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// WithoutColor renders all output without colors or other styles.
func WithoutColor() ReporterOption {
	return func(r *Reporter) {
		r.plain = true
	}
}

// styled renders s in the specified style, unless told to stay plain.
func (r *Reporter) styled(style termenv.Style, s string) string {
	if r.plain {
		return s
	}
	return style.Styled(s)
}

// Fatal reports an error that ends the run.
func (r *Reporter) Fatal(err error) {
	fmt.Fprintf(r.w, "%s %s\n", r.styled(errorTagStyle, "[ERROR]"), err.Error())
}

// Error reports an error that doesn't end the run.
func (r *Reporter) Error(format string, args ...any) {
	fmt.Fprintf(r.w, "%s %s\n", r.styled(errorTagStyle, "[ERROR]"), fmt.Sprintf(format, args...))
}

// Warn reports something that went wrong but has been skipped.
func (r *Reporter) Warn(format string, args ...any) {
	fmt.Fprintf(r.w, "%s %s\n", r.styled(warnTagStyle, "[WARN]"), fmt.Sprintf(format, args...))
}

// Info reports on progress.
func (r *Reporter) Info(format string, args ...any) {
	fmt.Fprintf(r.w, "%s %s\n", r.styled(infoTagStyle, "[INFO]"), fmt.Sprintf(format, args...))
}

// SkippedRange reports an invalid CIDR literal that has been skipped.
func (r *Reporter) SkippedRange(literal string, _ error) {
	r.Warn("Skipping invalid CIDR range: %s", literal)
}

// Saved reports the results having been saved to path.
func (r *Reporter) Saved(path string) {
	r.Info("Results saved to %s", path)
}

// Results renders the in-scope records, one "hostname: address" per line, or
// a notice that there are none. If probed is true, then each record
// additionally shows the reachability of its address.
func (r *Reporter) Results(records []types.Record, probed bool) {
	if len(records) == 0 {
		fmt.Fprintf(r.w, "\n%s\n", r.styled(headingStyle, "No in-scope subdomains found."))
		return
	}
	fmt.Fprintf(r.w, "\n%s\n", r.styled(headingStyle, "In-scope subdomains and IPs:"))
	for _, rec := range records {
		if !probed {
			fmt.Fprintln(r.w, rec.String())
			continue
		}
		fmt.Fprintf(r.w, "%s %s\n", rec.String(), r.reach(rec.Reach))
	}
}

// reach renders a reachability mark.
func (r *Reporter) reach(reach types.Reachability) string {
	switch reach {
	case types.Reachable:
		return r.styled(reachableStyle, "✔ "+reach.String())
	case types.Unreachable:
		return r.styled(unreachableStyle, "× "+reach.String())
	default:
		return "? " + reach.String()
	}
}
