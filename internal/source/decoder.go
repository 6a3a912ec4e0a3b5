// SPDX-License-Identifier: MIT
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// ErrUnsupportedFormat is returned for file extensions with no decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// pcmReader yields interleaved float32 samples in [-1, 1]. It returns
// io.EOF once the stream is exhausted.
type pcmReader interface {
	read(dst []float32) (int, error)
	sampleRate() int
	channels() int
}

// openFunc builds a pcmReader from the start of r.
type openFunc func(r io.ReadSeeker) (pcmReader, error)

// decoderFor picks a decoder by file extension.
func decoderFor(path string) (openFunc, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		return newWAVReader, nil
	case ".mp3":
		return newMP3Reader, nil
	case ".ogg", ".oga":
		return newOGGReader, nil
	case ".flac":
		return newFLACReader, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// --- WAV ---

type wavReader struct {
	dec   *wav.Decoder
	buf   *audio.IntBuffer
	scale float32
	bias  int
	rate  int
	chans int
}

func newWAVReader(r io.ReadSeeker) (pcmReader, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported WAV bit depth %d", bitDepth)
	}
	w := &wavReader{
		dec:   dec,
		scale: 1 / float32(int64(1)<<(bitDepth-1)),
		rate:  int(dec.SampleRate),
		chans: max(int(dec.NumChans), 1),
		buf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: int(dec.NumChans), SampleRate: int(dec.SampleRate)},
		},
	}
	if bitDepth == 8 {
		w.bias = 128 // 8-bit WAV is unsigned
	}
	return w, nil
}

func (w *wavReader) read(dst []float32) (int, error) {
	if cap(w.buf.Data) < len(dst) {
		w.buf.Data = make([]int, len(dst))
	}
	w.buf.Data = w.buf.Data[:len(dst)]

	n, err := w.dec.PCMBuffer(w.buf)
	if err != nil {
		return 0, fmt.Errorf("decoding WAV: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i, v := range w.buf.Data[:n] {
		dst[i] = float32(v-w.bias) * w.scale
	}
	return n, nil
}

func (w *wavReader) sampleRate() int { return w.rate }
func (w *wavReader) channels() int   { return w.chans }

// --- MP3 ---

// go-mp3 always produces 16-bit little-endian stereo.
type mp3Reader struct {
	dec *gomp3.Decoder
	raw []byte
}

func newMP3Reader(r io.ReadSeeker) (pcmReader, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}
	return &mp3Reader{dec: dec}, nil
}

func (m *mp3Reader) read(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(m.raw) < need {
		m.raw = make([]byte, need)
	}
	m.raw = m.raw[:need]

	n, err := io.ReadFull(m.dec, m.raw)
	samples := n / 2
	for i := range samples {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(m.raw[2*i:]))) / 32768
	}
	if samples > 0 {
		return samples, nil
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || err == nil {
		err = io.EOF
	}
	return 0, err
}

func (m *mp3Reader) sampleRate() int { return m.dec.SampleRate() }
func (m *mp3Reader) channels() int   { return 2 }

// --- Ogg Vorbis ---

type oggReader struct {
	dec *oggvorbis.Reader
}

func newOGGReader(r io.ReadSeeker) (pcmReader, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	return &oggReader{dec: dec}, nil
}

func (o *oggReader) read(dst []float32) (int, error) {
	// Read whole frames only so channels stay aligned.
	ch := o.channels()
	dst = dst[:len(dst)/ch*ch]
	n, err := o.dec.Read(dst)
	if n > 0 {
		return n, nil
	}
	if err == nil {
		err = io.EOF
	}
	return 0, err
}

func (o *oggReader) sampleRate() int { return o.dec.SampleRate() }
func (o *oggReader) channels() int   { return max(o.dec.Channels(), 1) }

// --- FLAC ---

type flacReader struct {
	stream   *flac.Stream
	scale    float32
	chans    int
	frameBuf []float32 // Interleaved samples of the last parsed frame.
	pending  []float32 // Tail of frameBuf not yet handed out.
}

func newFLACReader(r io.ReadSeeker) (pcmReader, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	bps := int(stream.Info.BitsPerSample)
	if bps < 4 || bps > 32 {
		return nil, fmt.Errorf("unsupported FLAC bit depth %d", bps)
	}
	return &flacReader{
		stream: stream,
		scale:  1 / float32(int64(1)<<(bps-1)),
		chans:  max(int(stream.Info.NChannels), 1),
	}, nil
}

func (f *flacReader) read(dst []float32) (int, error) {
	if len(f.pending) == 0 {
		frame, err := f.stream.ParseNext()
		if err != nil {
			return 0, err // io.EOF at end of stream
		}
		nSamples := int(frame.Subframes[0].NSamples)
		need := nSamples * f.chans
		if cap(f.frameBuf) < need {
			f.frameBuf = make([]float32, need)
		}
		f.frameBuf = f.frameBuf[:need]
		for ch, sub := range frame.Subframes[:f.chans] {
			for i, s := range sub.Samples[:nSamples] {
				f.frameBuf[i*f.chans+ch] = float32(s) * f.scale
			}
		}
		f.pending = f.frameBuf
	}
	n := copy(dst, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *flacReader) sampleRate() int { return int(f.stream.Info.SampleRate) }
func (f *flacReader) channels() int   { return f.chans }
