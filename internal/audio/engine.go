// SPDX-License-Identifier: MIT
/*
Package audio captures live input with PortAudio and feeds it to the
analyser:
- Callback-driven capture into pre-allocated buffers
- Noise gate with branchless peak detection; a closed gate feeds silence
- Mono downmix of multi-channel input
- WAV recording of the raw input with atomic state management

Thread Safety:
- Uses atomic operations for recording state
- Pre-allocates buffers to avoid GC in hot path
- Locks OS thread during audio processing
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"reactive/internal/analysis"
	"reactive/internal/config"
	applog "reactive/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

var logger = applog.For("audio")

// Sink receives mono capture buffers and is told when the stream starts and
// stops. *analysis.Analyser satisfies it.
type Sink interface {
	analysis.AudioProcessor
	Connect()
	Disconnect()
}

type Engine struct {
	// Core configuration.
	audioCfg config.AudioConfig
	recCfg   config.RecordingConfig

	// Audio input handling.
	inputBuffer  []int32
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Analysis.
	sink      Sink
	monoInput []int32 // Downmixed (or silenced) buffer handed to sink.

	// Noise gate for signal conditioning.
	gateEnabled   bool
	gateThreshold int32 // Absolute amplitude threshold (0-2147483647)

	// Recording state and buffers.
	isRecording int32 // Atomic flag for thread-safe state
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
	sampleShift uint             // Right shift from int32 to the recording bit depth.
}

// NewEngine resolves the configured input device and pre-allocates the
// capture buffers. The stream is not opened until StartInputStream.
func NewEngine(cfg *config.Config, sink Sink) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	engine := newEngine(cfg, sink)
	engine.inputDevice = inputDevice
	if cfg.Audio.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}

	logger.Infof("input device %q (%d ch, %.0f Hz, latency %s)",
		inputDevice.Name, cfg.Audio.InputChannels, cfg.Audio.SampleRate, engine.inputLatency)
	return engine, nil
}

func newEngine(cfg *config.Config, sink Sink) *Engine {
	engine := &Engine{
		audioCfg:    cfg.Audio,
		recCfg:      cfg.Recording,
		inputBuffer: make([]int32, cfg.Audio.FramesPerBuffer*cfg.Audio.InputChannels),
		sink:        sink,
		monoInput:   make([]int32, cfg.Audio.FramesPerBuffer),
		gateEnabled: true,
	}
	engine.SetGateThreshold(cfg.Audio.GateThreshold)
	return engine
}

func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.audioCfg.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.audioCfg.FramesPerBuffer,
		SampleRate:      e.audioCfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return fmt.Errorf("start input stream: %w", err)
	}

	if e.sink != nil {
		e.sink.Connect()
	}
	logger.Infof("input stream started")
	return nil
}

func (e *Engine) StopInputStream() error {
	if e.inputStream == nil {
		return nil
	}

	if e.sink != nil {
		e.sink.Disconnect()
	}
	if err := e.inputStream.Stop(); err != nil {
		return fmt.Errorf("stop input stream: %w", err)
	}
	if err := e.inputStream.Close(); err != nil {
		return fmt.Errorf("close input stream: %w", err)
	}
	e.inputStream = nil

	logger.Infof("input stream stopped")
	return nil
}

// processInputStream is the core audio processing callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processInputStream(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := copy(e.inputBuffer, in)
	e.processBuffer(e.inputBuffer[:n])

	if atomic.LoadInt32(&e.isRecording) == 1 && e.wavEncoder != nil {
		e.writeRecording(e.inputBuffer[:n])
	}
}

// processBuffer gates and downmixes one interleaved buffer into the sink.
// Performance Critical (Hot Path):
// - No allocations
// - Branchless peak detection
func (e *Engine) processBuffer(buffer []int32) {
	if e.sink == nil {
		return
	}

	channels := max(e.audioCfg.InputChannels, 1)
	frames := min(len(buffer)/channels, len(e.monoInput))
	mono := e.monoInput[:frames]

	if !e.gateOpen(buffer) {
		clear(mono)
		e.sink.Process(mono)
		return
	}

	if channels == 1 {
		e.sink.Process(buffer[:frames])
		return
	}

	for i := range mono {
		var sum int64
		frame := buffer[i*channels : (i+1)*channels]
		for _, s := range frame {
			sum += int64(s)
		}
		mono[i] = int32(sum / int64(channels))
	}
	e.sink.Process(mono)
}
