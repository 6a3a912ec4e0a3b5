// SPDX-License-Identifier: MIT
/*
Package uniform holds the render-facing side of the analysis pipeline: the
Snapshot of feature values a shader binds as uniforms, and the Publisher that
owns the current one.

A renderer reads the scalar fields as float uniforms and uploads the two
Texture arrays as single-channel, 8-bit, 512x1 textures.
*/
package uniform

// TextureSize is the fixed texel count of every 1-D audio texture.
const TextureSize = 512

// Texture is a single row of 8-bit texels. Its length is part of the type so
// a resample can never produce anything but TextureSize samples.
type Texture [TextureSize]byte

// Resolution is the output framebuffer size in pixels.
type Resolution struct {
	Width  int
	Height int
}

// Snapshot is the complete uniform set for one frame.
type Snapshot struct {
	Time      float64 // Seconds since the driver started.
	Bass      float64 // Smoothed bass energy, [0,1].
	Mid       float64 // Smoothed mid energy, [0,1].
	High      float64 // Smoothed high energy, [0,1].
	Energy    float64 // Smoothed overall energy, [0,1].
	Beat      float64 // 1.0 on a beat, decaying towards 0 between beats.
	BassAccum float64 // Slow, unbounded drift driven by bass.
	BeatCount int     // Total beats detected this session.

	Spectrum Texture // Frequency-domain texture.
	Waveform Texture // Time-domain texture, silence = 128.

	Resolution Resolution
}

// Uniform is a named shader input.
type Uniform struct {
	Name  string
	Value any
}

// Shader uniform names bound by the render pipeline.
const (
	NameTime       = "uTime"
	NameBass       = "uBass"
	NameMid        = "uMid"
	NameHigh       = "uHigh"
	NameEnergy     = "uEnergy"
	NameBeat       = "uBeat"
	NameBassAccum  = "uBassAccum"
	NameBeatCount  = "uBeatCount"
	NameSpectrum   = "uSpectrum"
	NameWaveform   = "uWaveform"
	NameResolution = "uResolution"
)

// Uniforms appends the scalar and vector uniforms of s to dst and returns the
// extended slice. Textures are excluded; hosts upload them separately from
// s.Spectrum and s.Waveform.
func (s *Snapshot) Uniforms(dst []Uniform) []Uniform {
	return append(dst,
		Uniform{NameTime, s.Time},
		Uniform{NameBass, s.Bass},
		Uniform{NameMid, s.Mid},
		Uniform{NameHigh, s.High},
		Uniform{NameEnergy, s.Energy},
		Uniform{NameBeat, s.Beat},
		Uniform{NameBassAccum, s.BassAccum},
		Uniform{NameBeatCount, s.BeatCount},
		Uniform{NameResolution, [2]int{s.Resolution.Width, s.Resolution.Height}},
	)
}
