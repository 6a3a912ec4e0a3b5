// SPDX-License-Identifier: MIT
package source

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

var (
	otoCtx     *oto.Context
	otoRate    int
	otoOnce    sync.Once
	otoInitErr error
)

// initOto creates the process-wide output context. The context can only be
// created once, so every later call must ask for the same rate.
func initOto(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
			BufferSize:   20 * time.Millisecond,
		}
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
			otoRate = sampleRate
		}
	})
	if otoInitErr != nil {
		return nil, fmt.Errorf("audio output: %w", otoInitErr)
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("audio output already running at %d Hz, got %d", otoRate, sampleRate)
	}
	return otoCtx, nil
}

// tapReader converts mono frames to float32 little-endian bytes for the
// output device and copies every frame it hands out into the sink.
type tapReader struct {
	src     Reader
	sink    Sink
	frames  []float32
	pending []byte
	raw     []byte
	err     error
}

func newTapReader(src Reader, sink Sink, chunk int) *tapReader {
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	return &tapReader{
		src:    src,
		sink:   sink,
		frames: make([]float32, chunk),
		raw:    make([]byte, 4*chunk),
	}
}

func (t *tapReader) Read(p []byte) (int, error) {
	if len(t.pending) == 0 {
		if t.err != nil {
			return 0, t.err
		}
		n, err := t.src.Read(t.frames)
		t.err = err
		if n == 0 {
			if err == nil {
				err = io.EOF
				t.err = err
			}
			return 0, err
		}
		for i, v := range t.frames[:n] {
			binary.LittleEndian.PutUint32(t.raw[4*i:], math.Float32bits(v))
		}
		t.sink.WriteSamples(t.frames[:n])
		t.pending = t.raw[:4*n]
	}
	n := copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

// Playback plays a Reader through the default output device while feeding
// the same frames to a Sink. The device pulls samples, so it sets the pace.
type Playback struct {
	src    Reader
	sink   Sink
	volume float64
}

// NewPlayback prepares playback at the given volume in [0, 1].
func NewPlayback(src Reader, sink Sink, volume float64) *Playback {
	return &Playback{src: src, sink: sink, volume: min(max(volume, 0), 1)}
}

// Run plays until the reader ends or ctx is done. It returns nil at end of
// input and ctx.Err() on cancellation.
func (p *Playback) Run(ctx context.Context) error {
	c, err := initOto(p.src.SampleRate())
	if err != nil {
		return err
	}

	tap := newTapReader(p.src, p.sink, DefaultChunk)
	player := c.NewPlayer(tap)
	defer player.Pause()
	player.SetVolume(p.volume)

	p.sink.Connect()
	defer p.sink.Disconnect()
	player.Play()
	logger.Infof("playback started at %d Hz", p.src.SampleRate())

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !player.IsPlaying() {
				if err := player.Err(); err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("playback: %w", err)
				}
				logger.Infof("playback finished")
				return nil
			}
		}
	}
}
