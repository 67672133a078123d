package svcrelay

import (
	"context"
)

// LogLine is one line of follower output. The JSON form matches the
// payload UI clients subscribe to under LogEventName.
type LogLine struct {
	// Unit is the normalized unit name the stream was started for
	Unit string `json:"service"`
	// Text is the line without its terminator
	Text string `json:"line"`
}

// Sink receives log lines in the order the follower produced them.
// Emit may block; it must return once ctx is done. A non-nil error ends
// the stream's reader.
type Sink interface {
	Emit(ctx context.Context, line LogLine) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ctx context.Context, line LogLine) error

// Emit calls f(ctx, line)
func (f SinkFunc) Emit(ctx context.Context, line LogLine) error {
	return f(ctx, line)
}

// ChanSink hands lines to a consumer-owned channel. The consumer decides
// on buffering; Emit blocks until the line is accepted or ctx is done.
type ChanSink chan<- LogLine

// Emit sends line on the channel
func (s ChanSink) Emit(ctx context.Context, line LogLine) error {
	select {
	case s <- line:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
