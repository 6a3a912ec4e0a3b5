// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"reactive/internal/analysis"
)

// FrameInterval is the tick period implied by Render.FrameRate.
func (c *Config) FrameInterval() time.Duration {
	if c.Render.FrameRate <= 0 {
		return time.Second / DefaultFrameRate
	}
	return time.Second / time.Duration(c.Render.FrameRate)
}

// AnalyserConfig builds the FFT primitive configuration. An unknown window
// name falls back to Blackman; Validate reports it beforehand.
func (c *Config) AnalyserConfig() analysis.AnalyserConfig {
	win, _ := analysis.ParseWindowFunc(c.Audio.FFTWindow)
	return analysis.AnalyserConfig{
		FFTSize:               c.Audio.FFTSize,
		SampleRate:            c.Audio.SampleRate,
		Window:                win,
		SmoothingTimeConstant: c.Audio.SmoothingTimeConstant,
		MinDecibels:           c.Audio.MinDecibels,
		MaxDecibels:           c.Audio.MaxDecibels,
	}
}

// AnalysisParams builds the extractor tuning.
func (c *Config) AnalysisParams() analysis.Params {
	return analysis.Params{
		Smoothing: c.Analysis.Smoothing,
		AccumRate: c.Analysis.AccumRate,
		Edges: analysis.BandEdges{
			Bass: c.Analysis.BassHz,
			Mid:  c.Analysis.MidHz,
			High: c.Analysis.HighHz,
		},
		Beat: analysis.BeatParams{
			Threshold: c.Analysis.BeatThreshold,
			Decay:     c.Analysis.BeatDecay,
			Cooldown:  c.Analysis.BeatCooldown,
		},
	}
}
