// Package trace sends Datadog spans for pyscan commands when tracing
// is enabled with PYSCAN_TRACE=1. A parent span can be passed in from
// a wrapping process through DD_TRACE_ID and DD_SPAN_ID.
package trace

import (
	"context"
	"os"

	"github.com/replit/pyscan/internal/util"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

var (
	globalDDTraceID string
	globalDDSpanID  string
)

// MaybeTrace starts the tracer if PYSCAN_TRACE=1. It returns a
// function that stops the tracer, or nil if tracing is off.
func MaybeTrace(serviceVersion string) func() {
	if os.Getenv("PYSCAN_TRACE") != "1" {
		return nil
	}

	globalDDTraceID = os.Getenv("DD_TRACE_ID")
	globalDDSpanID = os.Getenv("DD_SPAN_ID")
	os.Unsetenv("DD_TRACE_ID")
	os.Unsetenv("DD_SPAN_ID")

	opts := []tracer.StartOption{
		tracer.WithService("pyscan"),
		tracer.WithServiceVersion(serviceVersion),
	}
	if replid := os.Getenv("REPL_ID"); replid != "" {
		opts = append(opts, tracer.WithGlobalTag("replid", replid))
	}

	logger, err := NewDatadogLogger()
	if err != nil {
		util.Verbosef("not logging tracer output: %s", err)
	} else {
		opts = append(opts, tracer.WithLogger(logger))
	}

	tracer.Start(opts...)
	return func() {
		tracer.Stop()
		if logger != nil {
			logger.Close()
		}
	}
}

// StartSpanFromExistingContext starts a root span for a command,
// parented to the span handed down through the environment if there
// is one.
func StartSpanFromExistingContext(name string) (ddtrace.Span, context.Context) {
	ctx := context.Background()
	parent, err := parentFromEnv()
	if err != nil {
		util.Verbosef("ignoring parent span: %s", err)
	}
	if parent == nil {
		return tracer.StartSpanFromContext(ctx, name)
	}
	return tracer.StartSpanFromContext(ctx, name, tracer.ChildOf(parent))
}

// parentFromEnv returns the parent span captured by MaybeTrace, or nil
// if none was passed in.
func parentFromEnv() (*parentSpan, error) {
	if globalDDTraceID == "" || globalDDSpanID == "" {
		return nil, nil
	}
	return parseParent(globalDDTraceID, globalDDSpanID)
}
