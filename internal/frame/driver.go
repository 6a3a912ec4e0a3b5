// SPDX-License-Identifier: MIT
/*
Package frame runs the per-frame loop: pull the analyser's buffers through
the extractor, publish the result and fan the published snapshot out to the
transports. Everything here runs on one goroutine, either the ticker loop in
Run or a caller that invokes Step from its own loop (the terminal UI does).
*/
package frame

import (
	"context"
	"time"

	"reactive/internal/analysis"
	applog "reactive/internal/log"
	"reactive/internal/transport"
	"reactive/internal/uniform"
)

var logger = applog.For("frame")

// beatMilestone is how many onsets pass between debug log lines.
const beatMilestone = 100

// Driver owns the frame goroutine's view of the pipeline.
type Driver struct {
	src   analysis.Source
	ext   *analysis.Extractor
	pub   *uniform.Publisher
	sinks []transport.Transport

	start time.Time
	now   func() time.Time

	frames    uint64
	milestone int
	ready     bool
}

// NewDriver wires a source, extractor and publisher together. Time zero for
// the uTime uniform is the moment NewDriver returns.
func NewDriver(src analysis.Source, ext *analysis.Extractor, pub *uniform.Publisher, sinks ...transport.Transport) *Driver {
	d := &Driver{
		src:   src,
		ext:   ext,
		pub:   pub,
		sinks: sinks,
		now:   time.Now,
	}
	d.start = d.now()
	return d
}

// Publisher returns the publisher the driver writes to.
func (d *Driver) Publisher() *uniform.Publisher { return d.pub }

// Frames returns the number of completed steps.
func (d *Driver) Frames() uint64 { return d.frames }

// Ready reports whether the last step analysed fresh data.
func (d *Driver) Ready() bool { return d.ready }

// Step runs one frame and returns the published snapshot. The pointer is the
// publisher's and stays valid until the next Step.
func (d *Driver) Step() *uniform.Snapshot {
	elapsed := d.now().Sub(d.start).Seconds()

	snap, ok := d.ext.Update(d.src, elapsed)
	d.ready = ok
	d.pub.Publish(snap)
	current := d.pub.CurrentSnapshot()

	for _, sink := range d.sinks {
		if err := sink.Send(current); err != nil {
			logger.Debugf("transport %T dropped frame %d: %v", sink, d.frames, err)
		}
	}

	if m := current.BeatCount / beatMilestone; m > d.milestone {
		d.milestone = m
		logger.Debugf("%d beats after %.1fs", current.BeatCount, current.Time)
	}

	d.frames++
	return current
}

// Run steps at the given interval until ctx is done, then returns ctx.Err().
func (d *Driver) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second / 60
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Infof("frame loop started (interval %s)", interval)
	for {
		select {
		case <-ticker.C:
			d.Step()
		case <-ctx.Done():
			logger.Infof("frame loop stopped after %d frames", d.frames)
			return ctx.Err()
		}
	}
}

// Close closes every transport.
func (d *Driver) Close() error {
	var first error
	for _, sink := range d.sinks {
		if err := sink.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
