// SPDX-License-Identifier: MIT
/*
Package source decodes audio files into mono float32 for the analyser.
WAV, MP3, Ogg Vorbis and FLAC are recognised by extension. A Feeder paces a
Stream into the analyser at real-time speed, and Playback does the same
through the default output device with the analyser tapped in between.
*/
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	applog "reactive/internal/log"
)

var logger = applog.For("source")

// Stream is a decoded audio file read as mono frames.
type Stream struct {
	path string
	file *os.File
	open openFunc
	pcm  pcmReader
	loop bool

	rate  int
	chans int
	loops int

	interleaved []float32
}

// Open opens path and prepares its decoder. With loop set, Read restarts
// the file at EOF instead of returning io.EOF.
func Open(path string, loop bool) (*Stream, error) {
	open, err := decoderFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	pcm, err := open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if pcm.sampleRate() <= 0 {
		f.Close()
		return nil, fmt.Errorf("%s: invalid sample rate %d", path, pcm.sampleRate())
	}

	s := &Stream{
		path:  path,
		file:  f,
		open:  open,
		pcm:   pcm,
		loop:  loop,
		rate:  pcm.sampleRate(),
		chans: pcm.channels(),
	}
	logger.Infof("opened %s (%d Hz, %d ch, loop %v)", path, s.rate, s.chans, loop)
	return s, nil
}

// SampleRate returns the file's sample rate in Hz.
func (s *Stream) SampleRate() int { return s.rate }

// Channels returns the file's channel count before downmixing.
func (s *Stream) Channels() int { return s.chans }

// Loops returns how many times the stream has restarted.
func (s *Stream) Loops() int { return s.loops }

// Read fills mono with downmixed frames and returns how many it wrote. It
// returns io.EOF only when the file ends and looping is off.
func (s *Stream) Read(mono []float32) (int, error) {
	if len(mono) == 0 {
		return 0, nil
	}
	need := len(mono) * s.chans
	if cap(s.interleaved) < need {
		s.interleaved = make([]float32, need)
	}
	buf := s.interleaved[:need]

	total := 0
	restarted := false
	for total < need {
		n, err := s.pcm.read(buf[total:])
		total += n
		if err == nil {
			if n == 0 {
				break
			}
			restarted = false
			continue
		}
		if !errors.Is(err, io.EOF) {
			return s.downmix(mono, buf[:total]), err
		}
		// An empty file would otherwise loop forever.
		if !s.loop || restarted {
			if total == 0 {
				return 0, io.EOF
			}
			break
		}
		if err := s.rewind(); err != nil {
			return s.downmix(mono, buf[:total]), err
		}
		restarted = true
	}
	return s.downmix(mono, buf[:total]), nil
}

// downmix averages interleaved frames into mono and returns the frame count.
func (s *Stream) downmix(mono, interleaved []float32) int {
	frames := len(interleaved) / s.chans
	if s.chans == 1 {
		return copy(mono, interleaved)
	}
	inv := 1 / float32(s.chans)
	for i := range frames {
		var sum float32
		for _, v := range interleaved[i*s.chans : (i+1)*s.chans] {
			sum += v
		}
		mono[i] = sum * inv
	}
	return frames
}

// rewind restarts decoding from the beginning of the file.
func (s *Stream) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind %s: %w", s.path, err)
	}
	pcm, err := s.open(s.file)
	if err != nil {
		return fmt.Errorf("rewind %s: %w", s.path, err)
	}
	s.pcm = pcm
	s.loops++
	logger.Debugf("looping %s (%d)", s.path, s.loops)
	return nil
}

// Close closes the underlying file.
func (s *Stream) Close() error {
	return s.file.Close()
}
