// Package stream relays provider output to HTTP clients as Server-Sent Events.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// DoneMarker is the data payload of the terminal event.
const DoneMarker = "[DONE]"

// ErrNotFlushable is returned when the response writer cannot stream.
var ErrNotFlushable = errors.New("streaming not supported")

// Sink receives the frames of one streamed response.
type Sink interface {
	Token(text string) error
	Error(message string) error
	End() error
}

// Writer writes SSE frames to an HTTP response, flushing after each one.
type Writer struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	ended   bool
}

// NewWriter sets the event-stream headers and commits a 200 response.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNotFlushable
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Writer{w: w, flusher: flusher}, nil
}

func (sw *Writer) Token(text string) error {
	return sw.data(map[string]string{"token": text})
}

func (sw *Writer) Error(message string) error {
	return sw.data(map[string]string{"error": message})
}

// End writes the terminal event. Only the first call writes.
func (sw *Writer) End() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.ended {
		return nil
	}
	sw.ended = true
	return sw.write("event: end\ndata: " + DoneMarker + "\n\n")
}

func (sw *Writer) data(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.ended {
		return errors.New("stream already ended")
	}
	return sw.write("data: " + string(payload) + "\n\n")
}

func (sw *Writer) write(frame string) error {
	if _, err := fmt.Fprint(sw.w, frame); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}
