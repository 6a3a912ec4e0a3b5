// SPDX-License-Identifier: MIT
package source

import (
	"context"
	"errors"
	"io"
	"time"

	"reactive/internal/analysis"
)

// DefaultChunk is the number of frames pushed per pacing tick.
const DefaultChunk = 512

// Sink receives decoded samples and is told when the feed starts and ends.
// *analysis.Analyser satisfies it.
type Sink interface {
	analysis.SampleWriter
	Connect()
	Disconnect()
}

// Reader is what a Feeder pulls mono frames from. *Stream satisfies it.
type Reader interface {
	Read(mono []float32) (int, error)
	SampleRate() int
}

// Feeder pushes a Reader into a Sink at real-time speed.
type Feeder struct {
	src   Reader
	sink  Sink
	chunk []float32
	tick  time.Duration
}

// NewFeeder creates a feeder writing chunk frames per tick. A chunk of zero
// or less uses DefaultChunk.
func NewFeeder(src Reader, sink Sink, chunk int) *Feeder {
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	return &Feeder{
		src:   src,
		sink:  sink,
		chunk: make([]float32, chunk),
		tick:  time.Duration(float64(chunk) / float64(src.SampleRate()) * float64(time.Second)),
	}
}

// Interval returns the pacing period.
func (f *Feeder) Interval() time.Duration { return f.tick }

// Run connects the sink and feeds it until ctx is done or the reader ends.
// It returns nil at end of input and ctx.Err() on cancellation; the sink is
// disconnected either way.
func (f *Feeder) Run(ctx context.Context) error {
	// Prime one chunk so the first frame has data.
	if err := f.step(); err != nil {
		return f.finish(err)
	}
	f.sink.Connect()
	defer f.sink.Disconnect()

	ticker := time.NewTicker(f.tick)
	defer ticker.Stop()

	logger.Infof("feeding %d frames every %s", len(f.chunk), f.tick)
	for {
		select {
		case <-ticker.C:
			if err := f.step(); err != nil {
				return f.finish(err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *Feeder) step() error {
	n, err := f.src.Read(f.chunk)
	if n > 0 {
		f.sink.WriteSamples(f.chunk[:n])
	}
	return err
}

func (f *Feeder) finish(err error) error {
	if errors.Is(err, io.EOF) {
		logger.Infof("source ended")
		return nil
	}
	return err
}
