// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrAlreadyRecording is returned by StartRecording while a recording is open.
var ErrAlreadyRecording = errors.New("already recording")

// RecordingPath returns a timestamped file name inside the configured output
// directory, creating the directory if needed.
func (e *Engine) RecordingPath(now time.Time) (string, error) {
	if err := os.MkdirAll(e.recCfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create recording dir: %w", err)
	}
	name := fmt.Sprintf("capture-%s.wav", now.Format("20060102-150405"))
	return filepath.Join(e.recCfg.OutputDir, name), nil
}

// StartRecording opens filename and starts writing every captured buffer to
// it as WAV at the configured bit depth.
func (e *Engine) StartRecording(filename string) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return ErrAlreadyRecording
	}

	bitDepth := e.recCfg.BitDepth
	switch bitDepth {
	case 16, 24, 32:
	default:
		bitDepth = 32
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	e.outputFile = file

	channels := max(e.audioCfg.InputChannels, 1)
	e.wavEncoder = wav.NewEncoder(file, int(e.audioCfg.SampleRate), bitDepth, channels, 1)
	e.sampleShift = uint(32 - bitDepth)

	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  int(e.audioCfg.SampleRate),
		},
		SourceBitDepth: bitDepth,
		Data:           make([]int, e.audioCfg.FramesPerBuffer*channels),
	}

	atomic.StoreInt32(&e.isRecording, 1)
	logger.Infof("recording to %s (%d-bit)", filename, bitDepth)
	return nil
}

// writeRecording converts buffer to the recording bit depth and encodes it.
func (e *Engine) writeRecording(buffer []int32) {
	if cap(e.sampleBuf.Data) < len(buffer) {
		e.sampleBuf.Data = make([]int, len(buffer))
	}
	e.sampleBuf.Data = e.sampleBuf.Data[:len(buffer)]
	for i, sample := range buffer {
		e.sampleBuf.Data[i] = int(sample >> e.sampleShift)
	}

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		logger.Errorf("error writing to WAV file: %v", err)
	}
}

func (e *Engine) StopRecording() error {
	if atomic.LoadInt32(&e.isRecording) == 0 {
		return nil
	}

	atomic.StoreInt32(&e.isRecording, 0)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return fmt.Errorf("finalise recording: %w", err)
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		name := e.outputFile.Name()
		if err := e.outputFile.Close(); err != nil {
			return fmt.Errorf("close recording: %w", err)
		}
		e.outputFile = nil
		logger.Infof("recording saved to %s", name)
	}

	return nil
}

func (e *Engine) Close() error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}

	if err := e.StopInputStream(); err != nil {
		return err
	}

	return nil
}
