package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// sseWriter wraps an http.ResponseWriter with SSE event writing and client
// disconnect detection.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
}

// newSSEWriter prepares SSE headers and returns a writer, or nil if the
// underlying ResponseWriter does not support flushing.
func newSSEWriter(w http.ResponseWriter, r *http.Request) *sseWriter {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &sseWriter{w: w, flusher: flusher, ctx: r.Context()}
}

// Send writes one SSE event. Returns false if the client has disconnected;
// the caller must stop at the next stage boundary when that happens.
func (s *sseWriter) Send(event string, data any) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("[web] sse marshal error: %v", err)
		return false
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, b); err != nil {
		log.Printf("[web] sse write error (client disconnected?): %v", err)
		return false
	}
	s.flusher.Flush()
	return true
}
