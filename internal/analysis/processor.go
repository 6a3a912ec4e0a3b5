// SPDX-License-Identifier: MIT
package analysis

// AudioProcessor is implemented by components fed straight from the capture
// callback. Implementations must be real-time safe: no blocking beyond a
// short critical section and no allocations.
type AudioProcessor interface {
	// Process consumes one buffer of mono int32 PCM.
	Process(inputBuffer []int32)
}

// SampleWriter is implemented by components fed from decoded audio, where
// samples are already normalised float32 in [-1, 1].
type SampleWriter interface {
	WriteSamples(samples []float32)
}

// Source is the audio-analysis primitive the extractor pulls from once per
// tick. Returned buffers are reused between calls; a caller may read them
// until its next call into the source but must not keep them across ticks.
type Source interface {
	// IsReady reports whether the source is connected. A source that is not
	// ready must still be safe to query.
	IsReady() bool
	// FrequencyData returns byte-quantised magnitudes, FFTSize()/2 long.
	FrequencyData() []byte
	// TimeDomainData returns byte-quantised samples centred at 128.
	TimeDomainData() []byte
	// SampleRate returns the sample rate in Hz.
	SampleRate() float64
	// FFTSize returns the transform size used for FrequencyData.
	FFTSize() int
}
