// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strings"
	"sync"
	"sync/atomic"

	"reactive/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// Transform size limits, matching what browsers accept for an analyser.
const (
	MinFFTSize = 32
	MaxFFTSize = 32768
)

var (
	ErrInvalidFFTSize    = errors.New("fft size must be a power of 2 between 32 and 32768")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrInvalidDecibels   = errors.New("min decibels must be below max decibels")
	ErrInvalidSmoothing  = errors.New("smoothing time constant must be in [0, 1]")
)

// AnalyserConfig configures an Analyser.
type AnalyserConfig struct {
	FFTSize               int        // Transform size, power of 2.
	SampleRate            float64    // Input sample rate in Hz.
	Window                WindowFunc // Window applied before the transform.
	SmoothingTimeConstant float64    // Per-read averaging of magnitudes, [0,1].
	MinDecibels           float64    // Level mapped to byte 0.
	MaxDecibels           float64    // Level mapped to byte 255.
}

// DefaultAnalyserConfig mirrors a browser AnalyserNode with fftSize 2048.
func DefaultAnalyserConfig() AnalyserConfig {
	return AnalyserConfig{
		FFTSize:               2048,
		SampleRate:            44100,
		Window:                Blackman,
		SmoothingTimeConstant: 0.8,
		MinDecibels:           -100,
		MaxDecibels:           -30,
	}
}

// Pre-allocated buffers for FFT calculations. Only the reader goroutine
// touches these.
type fftWorkspace struct {
	samples   []float64    // Raw copy of the sample ring, oldest first.
	paired    bool         // samples was taken by FrequencyData and not yet used by TimeDomainData.
	input     []float64    // Windowed samples fed to the FFT.
	fftOutput []complex128 // FFT complex results.
	smoothed  []float64    // Time-smoothed linear magnitudes.
	window    []float64    // Pre-calculated window coefficients.
	freqBytes []byte       // Byte spectrum handed to callers.
	timeBytes []byte       // Byte waveform handed to callers.
}

// Analyser is the FFT primitive behind the extractor. Capture or decode
// goroutines push samples into a ring of FFTSize samples; the frame goroutine
// reads byte-quantised spectrum and waveform views of the most recent window.
type Analyser struct {
	cfg           AnalyserConfig
	fftCalculator *fourier.FFT
	binCount      int

	mu   sync.Mutex // Protects ring and pos.
	ring []float64
	pos  int
	mask int

	connected atomic.Bool
	workspace fftWorkspace
}

// Compile-time checks for interface implementations.
var (
	_ Source         = (*Analyser)(nil)
	_ AudioProcessor = (*Analyser)(nil)
	_ SampleWriter   = (*Analyser)(nil)
)

// NewAnalyser validates cfg and pre-allocates every buffer the read path
// needs. The analyser starts disconnected.
func NewAnalyser(cfg AnalyserConfig) (*Analyser, error) {
	if !bitint.IsPowerOfTwo(cfg.FFTSize) || cfg.FFTSize < MinFFTSize || cfg.FFTSize > MaxFFTSize {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidFFTSize, cfg.FFTSize)
	}
	if !(cfg.SampleRate > 0) {
		return nil, fmt.Errorf("%w, got %f", ErrInvalidSampleRate, cfg.SampleRate)
	}
	if cfg.MinDecibels >= cfg.MaxDecibels {
		return nil, fmt.Errorf("%w (%.1f >= %.1f)", ErrInvalidDecibels, cfg.MinDecibels, cfg.MaxDecibels)
	}
	if cfg.SmoothingTimeConstant < 0 || cfg.SmoothingTimeConstant > 1 {
		return nil, fmt.Errorf("%w, got %f", ErrInvalidSmoothing, cfg.SmoothingTimeConstant)
	}

	n := cfg.FFTSize
	binCount := n / 2
	windowCoeffs := make([]float64, n)
	applyWindow(windowCoeffs, cfg.Window)

	logger.Infof("initializing analyser (size %d, %.1f Hz, window %v)", n, cfg.SampleRate, cfg.Window)

	return &Analyser{
		cfg:           cfg,
		fftCalculator: fourier.NewFFT(n),
		binCount:      binCount,
		ring:          make([]float64, n),
		mask:          n - 1,
		workspace: fftWorkspace{
			samples:   make([]float64, n),
			input:     make([]float64, n),
			fftOutput: make([]complex128, n/2+1),
			smoothed:  make([]float64, binCount),
			window:    windowCoeffs,
			freqBytes: make([]byte, binCount),
			timeBytes: make([]byte, binCount),
		},
	}, nil
}

// Connect marks the analyser ready; the extractor starts analysing on the
// next tick.
func (a *Analyser) Connect() { a.connected.Store(true) }

// Disconnect marks the analyser not ready and clears its sample history.
func (a *Analyser) Disconnect() {
	a.connected.Store(false)
	a.mu.Lock()
	clear(a.ring)
	a.pos = 0
	a.mu.Unlock()
}

// IsReady implements Source.
func (a *Analyser) IsReady() bool { return a.connected.Load() }

// SampleRate implements Source.
func (a *Analyser) SampleRate() float64 { return a.cfg.SampleRate }

// FFTSize implements Source.
func (a *Analyser) FFTSize() int { return a.cfg.FFTSize }

// BinCount is the length of both byte buffers, FFTSize/2.
func (a *Analyser) BinCount() int { return a.binCount }

// Process implements AudioProcessor for int32 capture buffers.
func (a *Analyser) Process(inputBuffer []int32) {
	const normFactor = 1.0 / float64(0x80000000) // int32 to [-1.0, 1.0).
	a.mu.Lock()
	for _, s := range inputBuffer {
		a.ring[a.pos] = float64(s) * normFactor
		a.pos = (a.pos + 1) & a.mask
	}
	a.mu.Unlock()
}

// WriteSamples implements SampleWriter for decoded float32 audio.
func (a *Analyser) WriteSamples(samples []float32) {
	a.mu.Lock()
	for _, s := range samples {
		a.ring[a.pos] = float64(s)
		a.pos = (a.pos + 1) & a.mask
	}
	a.mu.Unlock()
}

// snapshotRing copies the ring into dst oldest sample first.
func (a *Analyser) snapshotRing(dst []float64) {
	a.mu.Lock()
	n := copy(dst, a.ring[a.pos:])
	copy(dst[n:], a.ring[:a.pos])
	a.mu.Unlock()
}

// FrequencyData implements Source. Each call windows the latest FFTSize
// samples, transforms them, blends the magnitudes into the running average
// and maps the result from [MinDecibels, MaxDecibels] onto [0, 255].
// The next TimeDomainData call reuses the same samples, so a tick that reads
// both sees one window.
func (a *Analyser) FrequencyData() []byte {
	ws := &a.workspace

	// --- 1. Prepare Input & Windowing ---
	a.snapshotRing(ws.samples)
	ws.paired = true
	for i, x := range ws.samples {
		ws.input[i] = x * ws.window[i]
	}

	// --- 2. Perform FFT ---
	a.fftCalculator.Coefficients(ws.fftOutput, ws.input)

	// --- 3. Smooth and quantise ---
	tau := a.cfg.SmoothingTimeConstant
	scale := 1.0 / float64(a.cfg.FFTSize)
	rangeScale := maxSample / (a.cfg.MaxDecibels - a.cfg.MinDecibels)
	for k := range ws.smoothed {
		mag := cmplx.Abs(ws.fftOutput[k]) * scale
		v := tau*ws.smoothed[k] + (1-tau)*mag
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		ws.smoothed[k] = v
		ws.freqBytes[k] = quantise((decibels(v) - a.cfg.MinDecibels) * rangeScale)
	}
	return ws.freqBytes
}

// TimeDomainData implements Source. It returns the most recent BinCount
// samples mapped from [-1, 1] onto [0, 255] with silence at 128. Directly
// after FrequencyData it uses that call's samples; otherwise it reads the
// ring afresh.
func (a *Analyser) TimeDomainData() []byte {
	ws := &a.workspace
	if !ws.paired {
		a.snapshotRing(ws.samples)
	}
	ws.paired = false
	recent := ws.samples[len(ws.samples)-a.binCount:]
	for i, x := range recent {
		ws.timeBytes[i] = quantise(128 * (x + 1))
	}
	return ws.timeBytes
}

func decibels(linear float64) float64 {
	if linear <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(linear)
}

// quantise floors v into a byte, clamping out-of-range values.
func quantise(v float64) byte {
	switch {
	case !(v > 0):
		return 0
	case v >= maxSample:
		return 255
	default:
		return byte(v)
	}
}

// String implements fmt.Stringer for log output.
func (w WindowFunc) String() string {
	switch w {
	case BartlettHann:
		return "BartlettHann"
	case Blackman:
		return "Blackman"
	case BlackmanNuttall:
		return "BlackmanNuttall"
	case Hann:
		return "Hann"
	case Hamming:
		return "Hamming"
	case Lanczos:
		return "Lanczos"
	case Nuttall:
		return "Nuttall"
	default:
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Blackman) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman", "":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Blackman, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// applyWindow fills coeffs with the selected window. Unknown types fall back
// to Blackman.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// Window funcs multiply in place, so start from ones.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		logger.Warnf("unknown window function type %d, defaulting to Blackman", windowType)
		window.Blackman(coeffs)
	}
}
