// SPDX-License-Identifier: MIT
package analysis

// BeatParams tunes the onset detector. The defaults assume roughly 60 ticks
// per second, so a cooldown of 10 ticks is about 166ms.
type BeatParams struct {
	Threshold float64 // Ratio over the previous raw bass that counts as an onset.
	Decay     float64 // Per-tick multiplier applied to Beat between onsets.
	Cooldown  int     // Ticks after an onset during which no new onset fires.
}

// DefaultBeatParams returns the stock detector tuning.
func DefaultBeatParams() BeatParams {
	return BeatParams{
		Threshold: 1.4,
		Decay:     0.95,
		Cooldown:  10,
	}
}

// BeatState is the detector history carried from tick to tick for the whole
// session.
type BeatState struct {
	LastBass  float64 // Raw bass of the previous tick.
	Beat      float64 // 1.0 on an onset, decaying geometrically after.
	Cooldown  int     // Remaining refractory ticks.
	Count     int     // Onsets detected so far.
	BassAccum float64 // Running sum of smoothed bass * accumulation rate.
}

// BeatDetector fires when raw bass jumps above the previous tick's raw bass
// by the threshold ratio. Comparing against a single prior sample rather than
// a rolling average keeps it sensitive to one-tick spikes.
type BeatDetector struct {
	params BeatParams
	state  BeatState
}

// NewBeatDetector creates a detector with zeroed state.
func NewBeatDetector(params BeatParams) *BeatDetector {
	if params.Cooldown < 0 {
		params.Cooldown = 0
	}
	return &BeatDetector{params: params}
}

// Detect advances the detector by one tick of raw bass and reports whether
// an onset fired.
func (d *BeatDetector) Detect(rawBass float64) bool {
	s := &d.state

	if s.Cooldown > 0 {
		s.Cooldown--
	}

	fired := false
	if rawBass > s.LastBass*d.params.Threshold && s.Cooldown == 0 {
		s.Beat = 1.0
		s.Count++
		s.Cooldown = d.params.Cooldown
		fired = true
	} else {
		s.Beat *= d.params.Decay
	}

	s.LastBass = rawBass
	return fired
}

// Accumulate adds smoothedBass*rate to the drift accumulator. Negative or NaN
// contributions are dropped so the accumulator never decreases.
func (d *BeatDetector) Accumulate(smoothedBass, rate float64) {
	if inc := smoothedBass * rate; inc > 0 {
		d.state.BassAccum += inc
	}
}

// State returns a copy of the detector history.
func (d *BeatDetector) State() BeatState {
	return d.state
}
