package trace

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
)

// TraceparentHeader is the W3C propagation header. The x-trace-id and
// x-span-id pair is accepted when it is absent.
const TraceparentHeader = "traceparent"

// Middleware continues the caller's trace, or starts one, and echoes the
// trace ID in the response so a rendering client can quote it back in its
// orientation and layout messages.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := fromHeaders(r.Header)
		w.Header().Set(TraceIDKey, tc.TraceID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
	})
}

func fromHeaders(h http.Header) Context {
	if parent, ok := ParseTraceparent(h.Get(TraceparentHeader)); ok {
		return parent.Child()
	}
	return FromMap(map[string]string{
		TraceIDKey: h.Get(TraceIDKey),
		SpanIDKey:  h.Get(SpanIDKey),
	})
}

// ParseTraceparent reads a version-00 traceparent value.
func ParseTraceparent(v string) (Context, bool) {
	parts := strings.Split(strings.TrimSpace(v), "-")
	if len(parts) != 4 || parts[0] != "00" {
		return Context{}, false
	}
	traceID, spanID := parts[1], parts[2]
	if !validHex(traceID, 32) || !validHex(spanID, 16) || !validHex(parts[3], 2) {
		return Context{}, false
	}
	if strings.Trim(traceID, "0") == "" || strings.Trim(spanID, "0") == "" {
		return Context{}, false
	}
	return Context{TraceID: traceID, SpanID: spanID}, true
}

// Traceparent formats c as a sampled version-00 traceparent value.
func (c Context) Traceparent() string {
	return "00-" + c.TraceID + "-" + c.SpanID + "-01"
}

func validHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// ExtractFromJSON continues the trace named by a message's trace_id field.
// It reports whether one was present.
func ExtractFromJSON(data []byte) (Context, bool) {
	var msg struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.TraceID == "" {
		return New(), false
	}
	return Context{TraceID: msg.TraceID}.Child(), true
}
