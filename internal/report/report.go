// Package report implements the line-level error report: the authoritative
// record of every rejected input line. Recoverable failures accumulate
// here and never stop the run; a successful exit does not imply an empty
// report.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/agentstation/utc"

	"github.com/annotbase/annotload/pkg/errors"
)

// Report collects line-level rejections for one load run.
type Report struct {
	w       *bufio.Writer
	closer  io.Closer
	entries int
}

// New creates the report file at path. Failure to create it is fatal for
// the run.
func New(path string) (*Report, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.WrapIO("create", path, err)
	}
	r := NewWriter(f)
	r.closer = f
	fmt.Fprintf(r.w, "Start Date/Time: %s\n\n", utc.Now().Format(time.RFC3339))
	return r, nil
}

// NewWriter wraps an arbitrary writer, for tests.
func NewWriter(w io.Writer) *Report {
	return &Report{w: bufio.NewWriter(w)}
}

// Invalid records a field validation failure.
func (r *Report) Invalid(line int, what, value string) {
	r.entries++
	fmt.Fprintf(r.w, "Invalid %s (%d): %s\n", what, line, value)
}

// ParseFailure records a malformed line that was skipped.
func (r *Report) ParseFailure(line int, raw string) {
	r.entries++
	fmt.Fprintf(r.w, "Invalid Line (%d): %s\n", line, raw)
}

// Duplicate records a duplicate evidence statement with the original line
// text. inStore distinguishes collisions with pre-existing store rows from
// collisions within the input file.
func (r *Report) Duplicate(line int, raw string, inStore bool) {
	r.entries++
	where := "in input file"
	if inStore {
		where = "in database already"
	}
	fmt.Fprintf(r.w, "Duplicate Evidence Statement (%s) (%d): %s\n", where, line, raw)
}

// InvalidProperty records a property pair whose term failed vocabulary
// resolution. Only the pair is dropped; the host evidence row survives.
func (r *Report) InvalidProperty(line int, term string) {
	r.entries++
	fmt.Fprintf(r.w, "Invalid Property (%d): %s\n", line, term)
}

// Entries returns the number of messages written so far.
func (r *Report) Entries() int { return r.entries }

// Close flushes and closes the report. Safe to call on the fatal path.
func (r *Report) Close() error {
	if r.closer != nil {
		fmt.Fprintf(r.w, "\nEnd Date/Time: %s\n", utc.Now().Format(time.RFC3339))
	}
	if err := r.w.Flush(); err != nil {
		return errors.WrapIO("close", "error report", err)
	}
	if r.closer != nil {
		return errors.WrapIO("close", "error report", r.closer.Close())
	}
	return nil
}

// Flush forces buffered entries out without closing, used by the fatal
// termination path.
func (r *Report) Flush() {
	_ = r.w.Flush()
}
