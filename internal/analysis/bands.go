// SPDX-License-Identifier: MIT
package analysis

import "math"

// maxSample is the largest value a byte-quantised bin can hold.
const maxSample = 255.0

// BandEdges are the upper cut-offs, in Hz, of the three perceptual bands.
// Bass starts at bin 0; mid starts where bass ends; high starts where mid
// ends.
type BandEdges struct {
	Bass float64
	Mid  float64
	High float64
}

// DefaultBandEdges covers 20-250 Hz, 250-2000 Hz and 2000-20000 Hz.
var DefaultBandEdges = BandEdges{Bass: 250, Mid: 2000, High: 20000}

// Band is a half-open range of bin indices [Start, End).
type Band struct {
	Start int
	End   int
}

// Len is the number of bins in the band, zero when the range is empty or
// inverted.
func (b Band) Len() int {
	if b.End > b.Start {
		return b.End - b.Start
	}
	return 0
}

// BandLayout holds the bin ranges of all three bands for one tick.
type BandLayout struct {
	Bass Band
	Mid  Band
	High Band
}

// Levels is one tick's set of normalised energies in [0,1]. The extractor
// keeps one raw and one smoothed copy.
type Levels struct {
	Bass   float64
	Mid    float64
	High   float64
	Energy float64
}

// ComputeBands maps the band edges onto bin indices for a spectrum of
// binCount bins produced by a transform of fftSize at sampleRate. Every
// boundary is clamped to [0, binCount]. A non-positive or non-finite bin
// width yields three empty bands.
func ComputeBands(sampleRate float64, fftSize, binCount int, edges BandEdges) BandLayout {
	if fftSize <= 0 || binCount <= 0 {
		return BandLayout{}
	}
	binWidth := sampleRate / float64(fftSize)
	if !(binWidth > 0) || math.IsInf(binWidth, 0) {
		return BandLayout{}
	}

	bassEnd := binIndex(edges.Bass, binWidth, binCount)
	midEnd := binIndex(edges.Mid, binWidth, binCount)
	highEnd := binIndex(edges.High, binWidth, binCount)

	return BandLayout{
		Bass: Band{Start: 0, End: bassEnd},
		Mid:  Band{Start: bassEnd, End: midEnd},
		High: Band{Start: midEnd, End: highEnd},
	}
}

// binIndex returns floor(hz / binWidth) clamped to [0, binCount].
func binIndex(hz, binWidth float64, binCount int) int {
	idx := math.Floor(hz / binWidth)
	switch {
	case !(idx > 0):
		return 0
	case idx >= float64(binCount):
		return binCount
	default:
		return int(idx)
	}
}

// bandEnergy is the mean of spectrum over b divided by 255. The band must
// lie within spectrum, which ComputeBands guarantees.
func bandEnergy(spectrum []byte, b Band) float64 {
	n := b.Len()
	if n == 0 {
		return 0
	}
	sum := 0
	for _, v := range spectrum[b.Start:b.End] {
		sum += int(v)
	}
	return float64(sum) / (float64(n) * maxSample)
}

// meanEnergy is the mean of the whole spectrum divided by 255.
func meanEnergy(spectrum []byte) float64 {
	return bandEnergy(spectrum, Band{Start: 0, End: len(spectrum)})
}
