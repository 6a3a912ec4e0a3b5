// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"

	"reactive/internal/uniform"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Time              | float32        | 4            | uTime, seconds          |
| Bass/Mid/High     | float32 x 3    | 12           | Smoothed band energies  |
| Energy            | float32        | 4            | Smoothed overall energy |
| Beat              | float32        | 4            | Decaying onset pulse    |
| BassAccum         | float32        | 4            | Bass accumulator        |
| BeatCount         | uint32         | 4            | Onsets so far           |
| Width/Height      | uint32 x 2     | 8            | Output resolution       |
| Spectrum          | [512]uint8     | 512          | uSpectrum texture       |
| Waveform          | [512]uint8     | 512          | uWaveform texture       |
+-----------------------------------------------------------------------------+
*/

// Packet is the fixed-size wire form of a snapshot.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Time      float32
	Bass      float32
	Mid       float32
	High      float32
	Energy    float32
	Beat      float32
	BassAccum float32
	BeatCount uint32
	Width     uint32
	Height    uint32
	Spectrum  uniform.Texture
	Waveform  uniform.Texture
}

// PacketSize is the encoded length of a Packet.
var PacketSize = binary.Size(Packet{})

// NewPacket fills a packet from a snapshot.
func NewPacket(seq uint32, timestamp int64, s *uniform.Snapshot) Packet {
	return Packet{
		Sequence:  seq,
		Timestamp: timestamp,
		Time:      float32(s.Time),
		Bass:      float32(s.Bass),
		Mid:       float32(s.Mid),
		High:      float32(s.High),
		Energy:    float32(s.Energy),
		Beat:      float32(s.Beat),
		BassAccum: float32(s.BassAccum),
		BeatCount: uint32(s.BeatCount),
		Width:     uint32(s.Resolution.Width),
		Height:    uint32(s.Resolution.Height),
		Spectrum:  s.Spectrum,
		Waveform:  s.Waveform,
	}
}

// Encode resets buf and writes p in BigEndian order.
func (p *Packet) Encode(buf *bytes.Buffer) error {
	buf.Reset()
	buf.Grow(PacketSize)
	return binary.Write(buf, binary.BigEndian, p)
}

// DecodePacket parses a packet produced by Encode.
func DecodePacket(data []byte) (Packet, error) {
	var p Packet
	err := binary.Read(bytes.NewReader(data), binary.BigEndian, &p)
	return p, err
}
