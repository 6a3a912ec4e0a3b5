// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

func newTestEngine() *Engine {
	e := newTestEngineWith(2, &fakeSink{})
	e.recCfg.BitDepth = 32
	return e
}

func TestRecordingStartStopHotPath(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test_recording.wav")
	engine := newTestEngine()

	if err := engine.StartRecording(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}

	if atomic.LoadInt32(&engine.isRecording) != 1 {
		t.Error("Engine should be in recording state")
	}
	if engine.outputFile == nil || engine.wavEncoder == nil || engine.sampleBuf == nil {
		t.Fatal("Recording resources should be initialized")
	}
	if engine.sampleBuf.Format.NumChannels != engine.audioCfg.InputChannels {
		t.Errorf("Buffer channels mismatch: got %d, want %d",
			engine.sampleBuf.Format.NumChannels, engine.audioCfg.InputChannels)
	}
	if engine.sampleBuf.Format.SampleRate != int(engine.audioCfg.SampleRate) {
		t.Errorf("Buffer sample rate mismatch: got %d, want %d",
			engine.sampleBuf.Format.SampleRate, int(engine.audioCfg.SampleRate))
	}
	if want := engine.audioCfg.FramesPerBuffer * engine.audioCfg.InputChannels; len(engine.sampleBuf.Data) != want {
		t.Errorf("Buffer size mismatch: got %d, want %d", len(engine.sampleBuf.Data), want)
	}

	outputFile := engine.outputFile

	if err := engine.StopRecording(); err != nil {
		t.Fatalf("Failed to stop recording: %v", err)
	}
	if atomic.LoadInt32(&engine.isRecording) != 0 {
		t.Error("Engine should not be in recording state after stopping")
	}
	if engine.outputFile != nil || engine.wavEncoder != nil {
		t.Error("Recording resources should be released after stopping")
	}
	if err := outputFile.Close(); err == nil {
		t.Error("File should already be closed")
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		t.Error("Recording file was not created")
	}
}

func TestRecordingErrorCases(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		desc          string
		filename      string
		isRecording   int32
		expectError   bool
		errorContains string
	}{
		{"Already recording", filepath.Join(dir, "valid.wav"), 1, true, "already recording"},
		{"Invalid path", "/nonexistent/path/file.wav", 0, true, "create recording"},
		{"Valid path", filepath.Join(dir, "test.wav"), 0, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			engine := newTestEngine()
			atomic.StoreInt32(&engine.isRecording, tt.isRecording)

			err := engine.StartRecording(tt.filename)
			if err == nil {
				_ = engine.StopRecording()
			}

			if tt.expectError && err == nil {
				t.Errorf("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if tt.errorContains != "" && err != nil && !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("Error %q does not contain %q", err.Error(), tt.errorContains)
			}
		})
	}

	t.Run("Stop when not recording", func(t *testing.T) {
		if err := newTestEngine().StopRecording(); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})

	t.Run("Sentinel", func(t *testing.T) {
		engine := newTestEngine()
		atomic.StoreInt32(&engine.isRecording, 1)
		if err := engine.StartRecording(filepath.Join(dir, "x.wav")); !errors.Is(err, ErrAlreadyRecording) {
			t.Errorf("got %v, want ErrAlreadyRecording", err)
		}
	})
}

func TestRecordingRoundTrip(t *testing.T) {
	tests := []struct {
		bitDepth int
		shift    uint
	}{
		{16, 16},
		{24, 8},
		{32, 0},
	}

	for _, tt := range tests {
		t.Run(formatFloat(float64(tt.bitDepth)), func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), "roundtrip.wav")
			engine := newTestEngine()
			engine.recCfg.BitDepth = tt.bitDepth

			if err := engine.StartRecording(filename); err != nil {
				t.Fatalf("start: %v", err)
			}
			engine.processInputStream(loudBuffer)
			engine.processInputStream(testBuffer)
			if err := engine.StopRecording(); err != nil {
				t.Fatalf("stop: %v", err)
			}

			f, err := os.Open(filename)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer f.Close()

			dec := wav.NewDecoder(f)
			buf, err := dec.FullPCMBuffer()
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if int(dec.BitDepth) != tt.bitDepth || int(dec.NumChans) != 2 || int(dec.SampleRate) != testSampleRate {
				t.Fatalf("header = %d-bit %d ch %d Hz", dec.BitDepth, dec.NumChans, dec.SampleRate)
			}
			if len(buf.Data) != len(loudBuffer)+len(testBuffer) {
				t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(loudBuffer)+len(testBuffer))
			}
			for i, s := range loudBuffer {
				if want := int(s >> tt.shift); buf.Data[i] != want {
					t.Fatalf("sample %d = %d, want %d", i, buf.Data[i], want)
				}
			}
		})
	}
}

func TestRecordingPath(t *testing.T) {
	engine := newTestEngine()
	engine.recCfg.OutputDir = filepath.Join(t.TempDir(), "nested", "out")

	path, err := engine.RecordingPath(time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC))
	if err != nil {
		t.Fatalf("RecordingPath: %v", err)
	}
	if filepath.Base(path) != "capture-20250304-050607.wav" {
		t.Errorf("unexpected name %s", filepath.Base(path))
	}
	if _, err := os.Stat(engine.recCfg.OutputDir); err != nil {
		t.Errorf("output dir not created: %v", err)
	}
}

func TestCloseEngineWithRecording(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test_close_engine.wav")
	engine := newTestEngine()

	if err := engine.StartRecording(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Failed to close engine: %v", err)
	}
	if atomic.LoadInt32(&engine.isRecording) != 0 {
		t.Error("Engine should not be in recording state after Close()")
	}
	if engine.outputFile != nil || engine.wavEncoder != nil {
		t.Error("Recording resources should be released after Close()")
	}
}

func BenchmarkRecordingStartStopHotPath(b *testing.B) {
	engine := newTestEngine()
	dir := b.TempDir()

	b.ReportAllocs()
	for b.Loop() {
		filename := filepath.Join(dir, "bench.wav")
		_ = os.Remove(filename)
		_ = engine.StartRecording(filename)
		_ = engine.StopRecording()
	}
}
