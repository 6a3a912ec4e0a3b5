// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the feature engine.
const (
	// Audio capture and analyser defaults.
	DefaultDeviceID              = MinDeviceID // System default input device
	DefaultChannels              = 1           // Mono capture
	DefaultSampleRate            = 44100       // CD-quality audio
	DefaultFramesPerBuffer       = 512         // Balanced latency/performance
	DefaultLowLatency            = false       // Standard latency mode
	DefaultFFTSize               = 2048        // ~21.5 Hz per bin at 44.1 kHz
	DefaultFFTWindow             = "Blackman"  // Matches a browser AnalyserNode
	DefaultSmoothingTimeConstant = 0.8         // Per-read magnitude averaging
	DefaultMinDecibels           = -100.0      // Level mapped to byte 0
	DefaultMaxDecibels           = -30.0       // Level mapped to byte 255
	DefaultGateThreshold         = 0.001       // ~0.1% of full scale

	// Feature extraction defaults.
	DefaultSmoothing     = 0.3  // Exponential smoothing factor
	DefaultBeatThreshold = 1.4  // Onset ratio over previous raw bass
	DefaultBeatDecay     = 0.95 // Per-tick beat falloff
	DefaultBeatCooldown  = 10   // Ticks, ~166ms at 60 fps
	DefaultAccumRate     = 0.01 // Bass accumulator rate
	DefaultBassHz        = 250.0
	DefaultMidHz         = 2000.0
	DefaultHighHz        = 20000.0

	// Render defaults.
	DefaultFrameRate = 60
	DefaultWidth     = 1280
	DefaultHeight    = 720
	DefaultTUI       = true

	// Recording defaults.
	DefaultRecordInputStream = false
	DefaultOutputDir         = "./recordings"
	DefaultFormat            = "wav"
	DefaultBitDepth          = 32

	// Transport defaults.
	DefaultWebSocketEnabled = false
	DefaultWebSocketAddress = ":8080"
	DefaultUDPEnabled       = false
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 16 * time.Millisecond // ~60Hz

	// Hardware and processing limits.
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer
	MinFFTSize      = 32
	MaxFFTSize      = 32768
	MaxFrameRate    = 480
)
