// Package stream simulates incremental arrival of an already-complete
// text payload: fixed-size slices delivered in order with a short delay
// between them. The delay primitive is injected so a real token transport
// can replace the reveal without touching store semantics.
package stream

import (
	"context"
	"time"
)

const (
	defaultChunkSize = 50
	defaultDelay     = 50 * time.Millisecond
)

// SleepFunc waits for d or returns early with the context's error.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Revealer delivers a payload as ordered fixed-size chunks.
type Revealer struct {
	chunkSize int
	delay     time.Duration
	sleep     SleepFunc
}

type Option func(*Revealer)

func WithChunkSize(n int) Option {
	return func(r *Revealer) {
		if n > 0 {
			r.chunkSize = n
		}
	}
}

func WithDelay(d time.Duration) Option {
	return func(r *Revealer) {
		r.delay = d
	}
}

// WithSleep replaces the delay primitive; tests pass a no-op.
func WithSleep(sleep SleepFunc) Option {
	return func(r *Revealer) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

func NewRevealer(opts ...Option) *Revealer {
	r := &Revealer{
		chunkSize: defaultChunkSize,
		delay:     defaultDelay,
		sleep:     sleepWithContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reveal delivers fullText as consecutive chunks, in order, with a delay
// between deliveries (none after the last). onComplete fires exactly once,
// strictly after the last chunk. An empty payload still delivers exactly
// one empty chunk. Cancellation stops delivery before onComplete so an
// abandoned message is never finalized.
func (r *Revealer) Reveal(ctx context.Context, fullText string, onChunk func(string), onComplete func()) error {
	chunks := split(fullText, r.chunkSize)
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		onChunk(c)
		if i < len(chunks)-1 {
			if err := r.sleep(ctx, r.delay); err != nil {
				return err
			}
		}
	}
	onComplete()
	return nil
}

// split slices s into runs of at most size runes so multi-byte
// characters are never cut mid-character.
func split(s string, size int) []string {
	if s == "" {
		return []string{""}
	}
	var chunks []string
	runes := []rune(s)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
