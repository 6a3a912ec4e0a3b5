// SPDX-License-Identifier: MIT
//
// Package utils provides signal generators and collaborator fakes shared by
// the tests of the analysis, frame and transport packages.
package utils

import (
	"math"
	"sync"

	"reactive/internal/uniform"
)

// MockTransport records what it is sent instead of transmitting it.
type MockTransport struct {
	mu        sync.Mutex
	Snapshots []uniform.Snapshot // Copies of every snapshot sent.
	Other     []any              // Anything that was not a snapshot.
	Closed    bool
}

// Send stores a copy of snapshots and the raw value of anything else.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := data.(*uniform.Snapshot); ok {
		m.Snapshots = append(m.Snapshots, *s)
		return nil
	}
	m.Other = append(m.Other, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Len returns the number of snapshots received.
func (m *MockTransport) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Snapshots)
}

// StaticSource is an analysis source whose buffers the test sets directly.
type StaticSource struct {
	Ready    bool
	Spectrum []byte
	Waveform []byte
	Rate     float64
	Size     int
}

// NewStaticSource creates a ready source with zeroed buffers of fftSize/2.
func NewStaticSource(sampleRate float64, fftSize int) *StaticSource {
	return &StaticSource{
		Ready:    true,
		Spectrum: make([]byte, fftSize/2),
		Waveform: make([]byte, fftSize/2),
		Rate:     sampleRate,
		Size:     fftSize,
	}
}

func (s *StaticSource) IsReady() bool          { return s.Ready }
func (s *StaticSource) FrequencyData() []byte  { return s.Spectrum }
func (s *StaticSource) TimeDomainData() []byte { return s.Waveform }
func (s *StaticSource) SampleRate() float64    { return s.Rate }
func (s *StaticSource) FFTSize() int           { return s.Size }

// Fill sets every spectrum bin in [start, end) to v.
func (s *StaticSource) Fill(start, end int, v byte) {
	for i := max(start, 0); i < end && i < len(s.Spectrum); i++ {
		s.Spectrum[i] = v
	}
}

// GenerateComplexWave returns int32 PCM of 440 Hz plus two harmonics.
func GenerateComplexWave(size int, sampleRate float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = int32(signal * math.MaxInt32 * 0.9)
	}
	return buffer
}

// GenerateSineWave returns int32 PCM of a sine at 90% of full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int32(math.Sin(2*math.Pi*frequency*t) * math.MaxInt32 * 0.9)
	}
	return buffer
}

// GenerateSineFloat returns float32 samples of a sine with the given
// amplitude.
func GenerateSineFloat(size int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*t))
	}
	return buffer
}

// FindPeakByte returns the index of the largest value in data, the first one
// on ties. An empty slice returns -1.
func FindPeakByte(data []byte) int {
	if len(data) == 0 {
		return -1
	}
	peak := 0
	for i, v := range data {
		if v > data[peak] {
			peak = i
		}
	}
	return peak
}
