// SPDX-License-Identifier: MIT
/*
Package analysis turns byte-quantised spectrum and waveform frames into the
audio-reactive feature set a shader consumes: three band energies, overall
energy, exponential smoothing, an onset detector and two 512-texel textures.

Hot path:
  - Extractor.Tick runs once per rendered frame on the frame goroutine
  - No allocations, no locks, no I/O
  - Degenerate input (empty buffers, zero-width bands) yields zeros, never a
    panic or an error
*/
package analysis

import (
	applog "reactive/internal/log"
	"reactive/internal/uniform"
)

var logger = applog.For("analysis")

// Params collects every tunable constant of the extractor.
type Params struct {
	Smoothing float64    // Exponential smoothing factor alpha, in (0,1].
	AccumRate float64    // Bass accumulator rate per tick.
	Edges     BandEdges  // Band cut-offs in Hz.
	Beat      BeatParams // Onset detector tuning.
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		Smoothing: 0.3,
		AccumRate: 0.01,
		Edges:     DefaultBandEdges,
		Beat:      DefaultBeatParams(),
	}
}

// Extractor owns all analysis state for one audio session. It is not safe
// for concurrent use; exactly one goroutine should call Tick or Update.
type Extractor struct {
	params Params

	raw      Levels
	smoothed Levels
	layout   BandLayout
	beat     *BeatDetector

	snapshot uniform.Snapshot
	ready    bool
}

// NewExtractor creates an extractor with cold-start state: every feature is
// zero until the first ready tick.
func NewExtractor(params Params) *Extractor {
	if !(params.Smoothing > 0) || params.Smoothing > 1 {
		params.Smoothing = DefaultParams().Smoothing
	}
	return &Extractor{
		params: params,
		beat:   NewBeatDetector(params.Beat),
	}
}

// Tick analyses one pair of raw frames and returns the extractor's snapshot.
// The returned pointer is owned by the extractor and is overwritten by the
// next Tick or Update.
func (e *Extractor) Tick(spectrum, waveform []byte, sampleRate float64, fftSize int, elapsed float64) *uniform.Snapshot {
	// --- 1. Band boundaries ---
	e.layout = ComputeBands(sampleRate, fftSize, len(spectrum), e.params.Edges)

	// --- 2/3. Raw energies ---
	e.raw = Levels{
		Bass:   bandEnergy(spectrum, e.layout.Bass),
		Mid:    bandEnergy(spectrum, e.layout.Mid),
		High:   bandEnergy(spectrum, e.layout.High),
		Energy: meanEnergy(spectrum),
	}

	// --- 4. Smoothing ---
	a := e.params.Smoothing
	e.smoothed.Bass = smooth(e.smoothed.Bass, e.raw.Bass, a)
	e.smoothed.Mid = smooth(e.smoothed.Mid, e.raw.Mid, a)
	e.smoothed.High = smooth(e.smoothed.High, e.raw.High, a)
	e.smoothed.Energy = smooth(e.smoothed.Energy, e.raw.Energy, a)

	// --- 5/6. Onsets on raw bass, drift on smoothed bass ---
	e.beat.Detect(e.raw.Bass)
	e.beat.Accumulate(e.smoothed.Bass, e.params.AccumRate)

	// --- 7. Textures ---
	Resample(&e.snapshot.Spectrum, spectrum)
	Resample(&e.snapshot.Waveform, waveform)

	// --- 8. Snapshot ---
	beat := e.beat.State()
	e.snapshot.Time = elapsed
	e.snapshot.Bass = e.smoothed.Bass
	e.snapshot.Mid = e.smoothed.Mid
	e.snapshot.High = e.smoothed.High
	e.snapshot.Energy = e.smoothed.Energy
	e.snapshot.Beat = beat.Beat
	e.snapshot.BassAccum = beat.BassAccum
	e.snapshot.BeatCount = beat.Count

	return &e.snapshot
}

// Update pulls the latest frames from src and ticks. When src is not ready
// only the time field advances and ok is false; every other field keeps its
// last value.
func (e *Extractor) Update(src Source, elapsed float64) (snap *uniform.Snapshot, ok bool) {
	if src == nil || !src.IsReady() {
		if e.ready {
			logger.Infof("source disconnected, holding last features")
			e.ready = false
		}
		e.snapshot.Time = elapsed
		return &e.snapshot, false
	}
	if !e.ready {
		logger.Infof("source ready (%.0f Hz, fft size %d)", src.SampleRate(), src.FFTSize())
		e.ready = true
	}
	return e.Tick(src.FrequencyData(), src.TimeDomainData(), src.SampleRate(), src.FFTSize(), elapsed), true
}

// Raw returns the unsmoothed energies of the last tick.
func (e *Extractor) Raw() Levels { return e.raw }

// Smoothed returns the current smoothed energies.
func (e *Extractor) Smoothed() Levels { return e.smoothed }

// Layout returns the band ranges used by the last tick.
func (e *Extractor) Layout() BandLayout { return e.layout }

// Beat returns a copy of the onset detector state.
func (e *Extractor) Beat() BeatState { return e.beat.State() }

func smooth(prev, raw, alpha float64) float64 {
	return prev*(1-alpha) + raw*alpha
}
