// Package report carries the user-facing status stream of a catalog pass
// and the machine-readable JSONL audit log.
package report

import "fmt"

// Status classifies a single status line emitted during a pass.
type Status string

const (
	StatusDebug   Status = "debug"
	StatusInfo    Status = "info"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusSuccess Status = "success"
)

// Line is one entry in the ordered status stream of an add/update pass.
type Line struct {
	Status  Status
	Message string
}

// Stream consumes status lines as they are produced. Implementations must
// render incrementally; a pass emits lines while it is still running.
type Stream func(Line)

// Discard is a Stream that drops every line.
func Discard(Line) {}

// Emit formats a message and sends it to the stream. A nil stream is
// treated as Discard.
func Emit(s Stream, status Status, format string, args ...any) {
	if s == nil {
		return
	}
	s(Line{Status: status, Message: fmt.Sprintf(format, args...)})
}

// Collector is a Stream backend that records every line, for tests and
// for callers that want the whole log after the pass.
type Collector struct {
	Lines []Line
}

// Stream returns the collecting stream function.
func (c *Collector) Stream(l Line) {
	c.Lines = append(c.Lines, l)
}

// Messages returns the messages recorded at the given status.
func (c *Collector) Messages(status Status) []string {
	var out []string
	for _, l := range c.Lines {
		if l.Status == status {
			out = append(out, l.Message)
		}
	}
	return out
}
