package optimizer

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// Event-name namespaces. Events under the model-call namespace represent
// calls to a language model; everything else is internal bookkeeping.
const modelCallNamespace = "llm."

// Trace is one structured record of an execution event captured during
// evaluation. Attribute payloads are provider-specific, so both maps are
// open string-keyed maps rather than fixed schemas.
type Trace struct {
	ID         string                 `json:"trace_id"`
	EventName  string                 `json:"event_name"`
	Timestamp  time.Time              `json:"timestamp"`
	Attributes map[string]interface{} `json:"attributes"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// IsModelCall reports whether the trace records a language-model call.
func (t Trace) IsModelCall() bool {
	return strings.HasPrefix(t.EventName, modelCallNamespace)
}

// TraceSink is the instrumentation surface evaluation code emits records to.
type TraceSink interface {
	Collect(eventName string, record map[string]interface{}) Trace
}

// TraceCollector is an append-only, thread-safe buffer of execution traces.
// One collector is created fresh per generation and never reused.
type TraceCollector struct {
	mu     sync.RWMutex
	traces []Trace
	ids    map[string]struct{}
}

// NewTraceCollector creates an empty collector.
func NewTraceCollector() *TraceCollector {
	return &TraceCollector{
		ids: make(map[string]struct{}),
	}
}

// Collect appends a trace built from the record. Malformed input never
// fails: missing fields default to empty, a nil record yields empty maps.
// A random fixed-length id is assigned when the record does not carry one.
func (c *TraceCollector) Collect(eventName string, record map[string]interface{}) Trace {
	trace := Trace{
		EventName:  eventName,
		Timestamp:  time.Now(),
		Attributes: make(map[string]interface{}),
		Metadata:   make(map[string]interface{}),
	}

	for k, v := range record {
		switch k {
		case "trace_id":
			if id, ok := v.(string); ok && id != "" {
				trace.ID = id
			}
		case "timestamp":
			if ts, ok := v.(time.Time); ok {
				trace.Timestamp = ts
			}
		case "metadata":
			if md, ok := v.(map[string]interface{}); ok {
				for mk, mv := range md {
					trace.Metadata[mk] = mv
				}
			}
		default:
			trace.Attributes[k] = v
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if trace.ID == "" {
		trace.ID = c.uniqueIDLocked()
	}
	c.ids[trace.ID] = struct{}{}
	c.traces = append(c.traces, trace)

	return trace
}

// uniqueIDLocked generates a 16-hex-char id unused in this collector.
// Must be called with c.mu held.
func (c *TraceCollector) uniqueIDLocked() string {
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand failing is effectively fatal elsewhere; fall back
			// to a counter-salted timestamp so collection still proceeds.
			return hex.EncodeToString([]byte{
				byte(len(c.traces) >> 24), byte(len(c.traces) >> 16),
				byte(len(c.traces) >> 8), byte(len(c.traces)),
				byte(time.Now().UnixNano() >> 24), byte(time.Now().UnixNano() >> 16),
				byte(time.Now().UnixNano() >> 8), byte(time.Now().UnixNano()),
			})
		}
		id := hex.EncodeToString(buf)
		if _, taken := c.ids[id]; !taken {
			return id
		}
	}
}

// Count returns the number of collected traces.
func (c *TraceCollector) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.traces)
}

// All returns a copy of every collected trace.
func (c *TraceCollector) All() []Trace {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Trace, len(c.traces))
	copy(out, c.traces)
	return out
}

// ModelCallTraces returns the traces recording language-model calls.
func (c *TraceCollector) ModelCallTraces() []Trace {
	return c.filtered(true)
}

// InternalTraces returns the traces recording internal events.
func (c *TraceCollector) InternalTraces() []Trace {
	return c.filtered(false)
}

func (c *TraceCollector) filtered(modelCall bool) []Trace {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Trace
	for _, t := range c.traces {
		if t.IsModelCall() == modelCall {
			out = append(out, t)
		}
	}
	return out
}

// Timespan returns the interval between the earliest and latest trace.
func (c *TraceCollector) Timespan() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.traces) == 0 {
		return 0
	}
	earliest := c.traces[0].Timestamp
	latest := earliest
	for _, t := range c.traces[1:] {
		if t.Timestamp.Before(earliest) {
			earliest = t.Timestamp
		}
		if t.Timestamp.After(latest) {
			latest = t.Timestamp
		}
	}
	return latest.Sub(earliest)
}
