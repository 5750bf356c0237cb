// Package gtrace captures per-stage timing for persistent graph
// operations, in the same span/trace shape the teacher's package uses
// for its own multi-stage operations: a trace accumulates named spans,
// each produced by a timer that is started and then finished with an
// outcome.
package gtrace

import "time"

// Trace captures timing data for one call to Apply, Join or Preorder:
// one span per timed stage, in order. pgraph records "load" and "save"
// spans for Apply and Join and a single "load" span for Preorder; it
// does not record a "mutate" span.
type Trace struct {
	Spans           []Span `json:"spans"`
	TotalDurationMs int64  `json:"totalDurationMs"`
}

// Span is a single timed stage within a Trace. Stage names are stable:
//   - "load": materialising referenced ids from the backing store
//   - "mutate": applying the delta/join/preorder check to G
//   - "save": writing referenced ids back to the backing store
type Span struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"durationMs"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

// NewTrace returns an empty trace.
func NewTrace() *Trace {
	return &Trace{Spans: make([]Span, 0, 3)}
}

func (t *Trace) addSpan(span Span) {
	t.Spans = append(t.Spans, span)
	t.TotalDurationMs += span.DurationMs
}

// Timer measures one named span's duration.
type Timer struct {
	name    string
	start   int64
	trace   *Trace
	enabled bool
}

// StartSpan begins timing name within trace. If trace is nil, the
// returned Timer is a no-op — callers don't need to branch on whether
// tracing is enabled.
func StartSpan(name string, trace *Trace) *Timer {
	if trace == nil {
		return &Timer{enabled: false}
	}
	return &Timer{name: name, start: time.Now().UnixMilli(), trace: trace, enabled: true}
}

// Finish completes the span and records it, if tracing is enabled.
func (t *Timer) Finish(err error) {
	if !t.enabled {
		return
	}
	span := Span{
		Name:       t.name,
		DurationMs: time.Now().UnixMilli() - t.start,
		OK:         err == nil,
	}
	if err != nil {
		span.Error = err.Error()
	}
	t.trace.addSpan(span)
}
