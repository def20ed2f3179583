package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"hide-and-seek/server/logging"
)

// JSON emits newline-delimited structured events, one wire record per line,
// for match replay tooling to consume.
type JSON struct {
	mu        sync.Mutex
	writer    *bufio.Writer
	encoder   *json.Encoder
	autoFlush bool

	done      chan struct{}
	closeOnce sync.Once
}

// wireEvent is the stable NDJSON line shape. It mirrors logging.Event but
// pins the time format, so downstream parsers never depend on Go's
// time.Time encoding.
type wireEvent struct {
	Type     logging.EventType   `json:"type"`
	Tick     uint64              `json:"tick"`
	Time     string              `json:"time"`
	Severity logging.Severity    `json:"severity"`
	Category string              `json:"category,omitempty"`
	Actor    logging.EntityRef   `json:"actor"`
	Targets  []logging.EntityRef `json:"targets,omitempty"`
	Payload  any                 `json:"payload,omitempty"`
	Extra    map[string]any      `json:"extra,omitempty"`
}

// NewJSON constructs a JSON sink writing to w. A positive flushInterval
// batches writes and flushes on a timer; otherwise every write flushes.
func NewJSON(w io.Writer, flushInterval time.Duration) *JSON {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	sink := &JSON{
		writer:    buf,
		encoder:   json.NewEncoder(buf),
		autoFlush: flushInterval <= 0,
		done:      make(chan struct{}),
	}
	if flushInterval > 0 {
		go sink.periodicFlush(flushInterval)
	}
	return sink
}

func (s *JSON) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := wireEvent{
		Type:     event.Type,
		Tick:     event.Tick,
		Time:     event.Time.Format(time.RFC3339Nano),
		Severity: event.Severity,
		Category: event.Category,
		Actor:    event.Actor,
		Targets:  event.Targets,
		Payload:  event.Payload,
		Extra:    event.Extra,
	}
	if err := s.encoder.Encode(line); err != nil {
		return err
	}
	if s.autoFlush {
		return s.writer.Flush()
	}
	return nil
}

// Close stops the periodic flusher and flushes buffered lines. Safe to
// call more than once.
func (s *JSON) Close(context.Context) error {
	s.closeOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Flush()
}

func (s *JSON) periodicFlush(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.writer.Flush()
			s.mu.Unlock()
		}
	}
}
