// Package trace carries W3C-style trace and span identifiers through
// contexts, gRPC metadata and HTTP headers, and times detection passes.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"
)

// Metadata keys for gRPC/HTTP propagation (W3C-style).
const (
	TraceIDKey      = "x-trace-id"
	SpanIDKey       = "x-span-id"
	ParentSpanIDKey = "x-parent-span-id"
)

type ctxKey struct{}

// Context holds trace identifiers for a single span.
type Context struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
}

// New creates a root context with fresh IDs.
func New() Context {
	return Context{TraceID: randomHex(16), SpanID: randomHex(8)}
}

// Child returns a new span in the same trace with c as its parent.
func (c Context) Child() Context {
	if c.TraceID == "" {
		return New()
	}
	return Context{TraceID: c.TraceID, SpanID: randomHex(8), ParentSpanID: c.SpanID}
}

// FromContext extracts trace context from context.Context.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// WithContext injects trace context into context.Context.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// EnsureContext returns existing trace context or creates a new one.
func EnsureContext(ctx context.Context) (context.Context, Context) {
	if tc, ok := FromContext(ctx); ok {
		return ctx, tc
	}
	tc := New()
	return WithContext(ctx, tc), tc
}

// FromMap continues a trace received from a caller: the caller's span becomes
// the parent of a new span.
func FromMap(m map[string]string) Context {
	return Context{TraceID: m[TraceIDKey], SpanID: m[SpanIDKey]}.Child()
}

// ToMap exports context as string map for gRPC metadata.
func (c Context) ToMap() map[string]string {
	m := map[string]string{TraceIDKey: c.TraceID, SpanIDKey: c.SpanID}
	if c.ParentSpanID != "" {
		m[ParentSpanIDKey] = c.ParentSpanID
	}
	return m
}

func (c Context) logArgs() []any {
	args := []any{"trace_id", c.TraceID, "span_id", c.SpanID}
	if c.ParentSpanID != "" {
		args = append(args, "parent_span_id", c.ParentSpanID)
	}
	return args
}

// Logger returns the default logger annotated with ctx's trace, if any.
func Logger(ctx context.Context) *slog.Logger {
	tc, ok := FromContext(ctx)
	if !ok {
		return slog.Default()
	}
	return slog.Default().With(tc.logArgs()...)
}

// Span is one timed operation. It is not safe for concurrent use.
type Span struct {
	Name  string
	Ctx   Context
	Start time.Time
	End   time.Time
	attrs []slog.Attr
}

// StartSpan begins a child span of whatever trace ctx carries.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent, _ := FromContext(ctx)
	return continueSpan(ctx, name, parent.Child())
}

// continueSpan times tc, an already derived child context, as span name.
func continueSpan(ctx context.Context, name string, tc Context) (context.Context, *Span) {
	s := &Span{Name: name, Ctx: tc, Start: time.Now()}
	return WithContext(ctx, s.Ctx), s
}

// SetAttr records a span attribute.
func (s *Span) SetAttr(key string, val any) {
	s.attrs = append(s.attrs, slog.Any(key, val))
}

// Finish ends the span and logs it at Debug, or at Warn when err is set.
func (s *Span) Finish(err error) time.Duration {
	s.End = time.Now()
	log := slog.Default().With(s.Ctx.logArgs()...)
	if err != nil {
		log.Warn(s.Name+" failed", "span", s, "error", err)
	} else {
		log.Debug(s.Name, "span", s)
	}
	return s.Duration()
}

// Duration is zero until the span finishes.
func (s *Span) Duration() time.Duration {
	if s.End.IsZero() {
		return 0
	}
	return s.End.Sub(s.Start)
}

// LogValue implements slog.LogValuer.
func (s *Span) LogValue() slog.Value {
	attrs := append([]slog.Attr{slog.Duration("duration", s.Duration())}, s.attrs...)
	return slog.GroupValue(attrs...)
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
