package trace

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
)

var ErrSpanContextCorrupted = errors.New("span context corrupted")

// parentSpan is a span started by the process that ran pyscan, known
// only by the IDs it passed down in DD_TRACE_ID and DD_SPAN_ID. It
// implements ddtrace.SpanContextW3C so 128-bit trace IDs are kept.
type parentSpan struct {
	traceID [16]byte // big endian
	spanID  uint64
}

// parseParent decodes hex trace and span IDs. Only the low 128 bits
// of a longer trace ID are kept.
func parseParent(traceHex string, spanHex string) (*parentSpan, error) {
	if len(traceHex) > 32 {
		traceHex = traceHex[len(traceHex)-32:]
	}
	raw, err := hex.DecodeString(strings.Repeat("0", 32-len(traceHex)) + traceHex)
	if err != nil || traceHex == "" {
		return nil, fmt.Errorf("trace id %q: %w", traceHex, ErrSpanContextCorrupted)
	}
	spanID, err := strconv.ParseUint(spanHex, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("span id %q: %w", spanHex, ErrSpanContextCorrupted)
	}

	p := &parentSpan{spanID: spanID}
	copy(p.traceID[:], raw)
	return p, nil
}

func (p *parentSpan) SpanID() uint64 {
	return p.spanID
}

func (p *parentSpan) TraceID() uint64 {
	return binary.BigEndian.Uint64(p.traceID[8:])
}

func (p *parentSpan) TraceID128() string {
	return hex.EncodeToString(p.traceID[:])
}

func (p *parentSpan) TraceID128Bytes() [16]byte {
	return p.traceID
}

// Baggage does not cross the process boundary.
func (p *parentSpan) ForeachBaggageItem(handler func(k, v string) bool) {
}

// PropagationEnv returns the DD_TRACE_ID and DD_SPAN_ID assignments
// that make span the parent of a pyscan child process.
func PropagationEnv(span ddtrace.Span) []string {
	c := span.Context()
	traceID := fmt.Sprintf("%032x", c.TraceID())
	if w3c, ok := c.(ddtrace.SpanContextW3C); ok {
		traceID = w3c.TraceID128()
	}
	return []string{
		"DD_TRACE_ID=" + traceID,
		fmt.Sprintf("DD_SPAN_ID=%016x", c.SpanID()),
	}
}
