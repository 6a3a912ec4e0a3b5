// SPDX-License-Identifier: MIT
package uniform

import (
	"math"
	"sync/atomic"
)

// Publisher owns the snapshot the renderer reads. Publish and CurrentSnapshot
// must be called from the frame goroutine; Resize may be called from anywhere.
type Publisher struct {
	current Snapshot

	// Packed width<<32 | height so a resize is a single atomic store.
	resolution atomic.Uint64
}

// NewPublisher creates a publisher with an initial output resolution.
func NewPublisher(width, height int) *Publisher {
	p := &Publisher{}
	p.Resize(width, height)
	p.current.Resolution = p.Resolution()
	return p
}

// CurrentSnapshot returns a view of the published state. The pointer is
// stable for the life of the publisher; its contents change on Publish.
func (p *Publisher) CurrentSnapshot() *Snapshot {
	p.current.Resolution = p.Resolution()
	return &p.current
}

// Publish copies s into the published snapshot in place. The resolution in s
// is ignored; only Resize changes it.
func (p *Publisher) Publish(s *Snapshot) {
	if s == nil {
		return
	}
	res := p.Resolution()
	p.current = *s
	p.current.Resolution = res
}

// Resize records a new output resolution. Sizes clamp to [0, MaxUint32].
func (p *Publisher) Resize(width, height int) {
	w := min(uint64(max(width, 0)), math.MaxUint32)
	h := min(uint64(max(height, 0)), math.MaxUint32)
	p.resolution.Store(w<<32 | h)
}

// Resolution returns the last size passed to Resize.
func (p *Publisher) Resolution() Resolution {
	packed := p.resolution.Load()
	return Resolution{
		Width:  int(packed >> 32),
		Height: int(packed & 0xFFFFFFFF),
	}
}
