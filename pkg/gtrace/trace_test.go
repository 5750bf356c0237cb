package gtrace

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTrace(t *testing.T) {
	trace := NewTrace()
	assert.NotNil(t, trace)
	assert.NotNil(t, trace.Spans)
	assert.Equal(t, 0, len(trace.Spans))
	assert.Equal(t, int64(0), trace.TotalDurationMs)
}

func TestTraceAddSpan(t *testing.T) {
	trace := NewTrace()

	trace.addSpan(Span{Name: "load", DurationMs: 100, OK: true})
	assert.Equal(t, 1, len(trace.Spans))
	assert.Equal(t, int64(100), trace.TotalDurationMs)

	trace.addSpan(Span{Name: "save", DurationMs: 50, OK: false, Error: "disk full"})
	assert.Equal(t, 2, len(trace.Spans))
	assert.Equal(t, int64(150), trace.TotalDurationMs)
	assert.Equal(t, "disk full", trace.Spans[1].Error)
}

func TestStartSpanNilTrace(t *testing.T) {
	timer := StartSpan("load", nil)
	assert.False(t, timer.enabled)
	timer.Finish(nil)
}

func TestStartSpanRecordsOutcome(t *testing.T) {
	trace := NewTrace()
	timer := StartSpan("mutate", trace)
	time.Sleep(time.Millisecond)
	timer.Finish(nil)

	assert.Equal(t, 1, len(trace.Spans))
	assert.Equal(t, "mutate", trace.Spans[0].Name)
	assert.True(t, trace.Spans[0].OK)
	assert.Equal(t, "", trace.Spans[0].Error)
}

func TestStartSpanRecordsError(t *testing.T) {
	trace := NewTrace()
	timer := StartSpan("save", trace)
	timer.Finish(errors.New("write failed"))

	assert.Equal(t, 1, len(trace.Spans))
	assert.False(t, trace.Spans[0].OK)
	assert.Equal(t, "write failed", trace.Spans[0].Error)
}
