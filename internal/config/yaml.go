// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"reactive/internal/analysis"
	applog "reactive/internal/log"
	"reactive/pkg/bitint"

	"gopkg.in/yaml.v3"
)

var logger = applog.For("config")

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug mode (verbose logging).
	LogLevel  string          `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	Command   string          `yaml:"command,omitempty"` // A one-off command to execute instead of running the feed (e.g., "list").
	Audio     AudioConfig     `yaml:"audio"`             // Capture and analyser settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`          // Feature extraction tuning.
	Render    RenderConfig    `yaml:"render"`            // Frame rate and surface size.
	Source    SourceConfig    `yaml:"source"`            // File source settings.
	Recording RecordingConfig `yaml:"recording"`         // Audio recording settings.
	Transport TransportConfig `yaml:"transport"`         // Uniform transport settings.
}

// AudioConfig holds settings related to audio input and the analyser primitive.
type AudioConfig struct {
	InputDevice           int     `yaml:"input_device"`            // PortAudio device index for audio input (-1 for default).
	SampleRate            float64 `yaml:"sample_rate"`             // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer       int     `yaml:"frames_per_buffer"`       // Frames per capture callback.
	InputChannels         int     `yaml:"input_channels"`          // Channels to capture; downmixed to mono before analysis.
	LowLatency            bool    `yaml:"low_latency"`             // Request low latency settings from PortAudio device.
	FFTSize               int     `yaml:"fft_size"`                // Analyser transform size, power of 2.
	FFTWindow             string  `yaml:"fft_window"`              // Window function name (e.g., "Blackman", "Hann").
	SmoothingTimeConstant float64 `yaml:"smoothing_time_constant"` // Per-read magnitude averaging, [0,1].
	MinDecibels           float64 `yaml:"min_decibels"`            // Level mapped to spectrum byte 0.
	MaxDecibels           float64 `yaml:"max_decibels"`            // Level mapped to spectrum byte 255.
	GateThreshold         float64 `yaml:"gate_threshold"`          // Noise gate open level as a fraction of full scale.
}

// AnalysisConfig holds the feature extractor tuning.
type AnalysisConfig struct {
	Smoothing     float64 `yaml:"smoothing"`      // Exponential smoothing factor, (0,1].
	BeatThreshold float64 `yaml:"beat_threshold"` // Onset ratio over previous raw bass.
	BeatDecay     float64 `yaml:"beat_decay"`     // Per-tick beat falloff, (0,1).
	BeatCooldown  int     `yaml:"beat_cooldown"`  // Refractory ticks after an onset.
	AccumRate     float64 `yaml:"accum_rate"`     // Bass accumulator rate.
	BassHz        float64 `yaml:"bass_hz"`        // Upper edge of the bass band.
	MidHz         float64 `yaml:"mid_hz"`         // Upper edge of the mid band.
	HighHz        float64 `yaml:"high_hz"`        // Upper edge of the high band.
}

// RenderConfig holds the frame loop and surface settings.
type RenderConfig struct {
	FrameRate int  `yaml:"frame_rate"` // Ticks per second.
	Width     int  `yaml:"width"`      // Initial surface width in pixels.
	Height    int  `yaml:"height"`     // Initial surface height in pixels.
	TUI       bool `yaml:"tui"`        // Render a terminal meter instead of running headless.
}

// SourceConfig selects a decoded file instead of live capture.
type SourceConfig struct {
	File     string `yaml:"file"`     // Path to a wav/mp3/ogg/flac file; empty for live capture.
	Loop     bool   `yaml:"loop"`     // Restart the file at EOF.
	Playback bool   `yaml:"playback"` // Play the file through the default output device.
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Enable audio recording to file.
	OutputDir string `yaml:"output_dir"` // Directory to save recorded audio files.
	Format    string `yaml:"format"`     // File format for recordings ("wav").
	BitDepth  int    `yaml:"bit_depth"`  // Bit depth for recorded audio (16, 24 or 32).
}

// TransportConfig holds settings related to sending snapshots to renderers.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve snapshots as JSON over websocket.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address for the websocket server.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending snapshot packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Minimum interval between UDP packets.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:           DefaultDeviceID,
			SampleRate:            DefaultSampleRate,
			FramesPerBuffer:       DefaultFramesPerBuffer,
			InputChannels:         DefaultChannels,
			LowLatency:            DefaultLowLatency,
			FFTSize:               DefaultFFTSize,
			FFTWindow:             DefaultFFTWindow,
			SmoothingTimeConstant: DefaultSmoothingTimeConstant,
			MinDecibels:           DefaultMinDecibels,
			MaxDecibels:           DefaultMaxDecibels,
			GateThreshold:         DefaultGateThreshold,
		},
		Analysis: AnalysisConfig{
			Smoothing:     DefaultSmoothing,
			BeatThreshold: DefaultBeatThreshold,
			BeatDecay:     DefaultBeatDecay,
			BeatCooldown:  DefaultBeatCooldown,
			AccumRate:     DefaultAccumRate,
			BassHz:        DefaultBassHz,
			MidHz:         DefaultMidHz,
			HighHz:        DefaultHighHz,
		},
		Render: RenderConfig{
			FrameRate: DefaultFrameRate,
			Width:     DefaultWidth,
			Height:    DefaultHeight,
			TUI:       DefaultTUI,
		},
		Source: SourceConfig{
			Loop: true,
		},
		Recording: RecordingConfig{
			Enabled:   DefaultRecordInputStream,
			OutputDir: DefaultOutputDir,
			Format:    DefaultFormat,
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{
			WebSocketEnabled: DefaultWebSocketEnabled,
			WebSocketAddress: DefaultWebSocketAddress,
			UDPEnabled:       DefaultUDPEnabled,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{"config.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		logger.Debugf("loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first out-of-range setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	// Audio validation
	a := c.Audio
	if a.InputDevice < MinDeviceID {
		return invalid("audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return invalid("audio.sample_rate must be within [%d, %d], got %.0f", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		return invalid("audio.frames_per_buffer must be within [1, %d], got %d", MaxBufferFrames, a.FramesPerBuffer)
	}
	if a.InputChannels <= 0 {
		return invalid("audio.input_channels must be positive, got %d", a.InputChannels)
	}
	if !bitint.IsPowerOfTwo(a.FFTSize) || a.FFTSize < MinFFTSize || a.FFTSize > MaxFFTSize {
		hint := bitint.NextPowerOfTwo(max(a.FFTSize, MinFFTSize))
		return invalid("audio.fft_size must be a power of 2 within [%d, %d], got %d (try %d)",
			MinFFTSize, MaxFFTSize, a.FFTSize, min(hint, MaxFFTSize))
	}
	if _, err := analysis.ParseWindowFunc(a.FFTWindow); err != nil {
		return invalid("audio.fft_window: %v", err)
	}
	if a.SmoothingTimeConstant < 0 || a.SmoothingTimeConstant > 1 {
		return invalid("audio.smoothing_time_constant must be within [0, 1], got %g", a.SmoothingTimeConstant)
	}
	if a.MinDecibels >= a.MaxDecibels {
		return invalid("audio.min_decibels (%g) must be below audio.max_decibels (%g)", a.MinDecibels, a.MaxDecibels)
	}
	if a.GateThreshold < 0 || a.GateThreshold >= 1 {
		return invalid("audio.gate_threshold must be within [0, 1), got %g", a.GateThreshold)
	}

	// Analysis validation
	an := c.Analysis
	if !(an.Smoothing > 0) || an.Smoothing > 1 {
		return invalid("analysis.smoothing must be within (0, 1], got %g", an.Smoothing)
	}
	if !(an.BeatThreshold > 0) {
		return invalid("analysis.beat_threshold must be positive, got %g", an.BeatThreshold)
	}
	if !(an.BeatDecay > 0) || an.BeatDecay >= 1 {
		return invalid("analysis.beat_decay must be within (0, 1), got %g", an.BeatDecay)
	}
	if an.BeatCooldown < 0 {
		return invalid("analysis.beat_cooldown must be >= 0, got %d", an.BeatCooldown)
	}
	if an.AccumRate < 0 {
		return invalid("analysis.accum_rate must be >= 0, got %g", an.AccumRate)
	}
	if !(an.BassHz > 0) || an.MidHz < an.BassHz || an.HighHz < an.MidHz {
		return invalid("analysis band edges must satisfy 0 < bass_hz <= mid_hz <= high_hz, got %g/%g/%g",
			an.BassHz, an.MidHz, an.HighHz)
	}

	// Render validation
	if c.Render.FrameRate <= 0 || c.Render.FrameRate > MaxFrameRate {
		return invalid("render.frame_rate must be within [1, %d], got %d", MaxFrameRate, c.Render.FrameRate)
	}
	if c.Render.Width < 0 || c.Render.Height < 0 {
		return invalid("render size must not be negative, got %dx%d", c.Render.Width, c.Render.Height)
	}

	// Recording validation
	if c.Recording.Enabled {
		if c.Recording.OutputDir == "" {
			return invalid("recording.output_dir must be set when recording is enabled")
		}
		if !strings.EqualFold(c.Recording.Format, "wav") {
			return invalid("recording.format '%s' is not supported", c.Recording.Format)
		}
		switch c.Recording.BitDepth {
		case 16, 24, 32:
		default:
			return invalid("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
		}
	}

	// Transport validation
	t := c.Transport
	if t.UDPEnabled {
		if t.UDPTargetAddress == "" {
			return invalid("transport.udp_target_address must be set when UDP is enabled")
		}
		if !strings.Contains(t.UDPTargetAddress, ":") {
			return invalid("transport.udp_target_address '%s' appears invalid (missing port?)", t.UDPTargetAddress)
		}
		if t.UDPSendInterval <= 0 {
			return invalid("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if t.WebSocketEnabled && t.WebSocketAddress == "" {
		return invalid("transport.websocket_address must be set when websocket is enabled")
	}

	return nil
}

// applyEnvOverrides replaces settings with ENV_* variables when present.
// Unparseable values are logged and ignored.
func (cfg *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.

	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			logger.Infof("overriding debug from env: %v", bVal)
		} else {
			logger.Warnf("ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		logger.Infof("overriding log_level from env: %s", val)
	}
	// ENV_FFT_SIZE
	if val, ok := os.LookupEnv("ENV_FFT_SIZE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Audio.FFTSize = n
			logger.Infof("overriding audio.fft_size from env: %d", n)
		} else {
			logger.Warnf("ignoring ENV_FFT_SIZE=%q: %v", val, err)
		}
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			logger.Infof("overriding transport.udp_enabled from env: %v", bVal)
		} else {
			logger.Warnf("ignoring ENV_UDP_ENABLED=%q: %v", val, err)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		logger.Infof("overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			logger.Infof("overriding transport.udp_send_interval from env: %s", dur)
		} else {
			logger.Warnf("ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		cfg.Transport.WebSocketAddress = val
		cfg.Transport.WebSocketEnabled = true
		logger.Infof("overriding transport.websocket_address from env: %s", val)
	}
}
