// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"reactive/internal/transport"
	"reactive/internal/uniform"
)

// UDPPublisher rate-limits snapshots onto UDP. Send stores the latest
// snapshot; a goroutine started by Start packs it into a Packet and sends it
// at most once per interval, skipping ticks with nothing new.
type UDPPublisher struct {
	sender   *UDPSender    // The underlying UDP sender instance.
	interval time.Duration // The interval at which packets are sent.

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	latestMu sync.Mutex       // Protects latest and pending.
	latest   uniform.Snapshot // Most recent snapshot handed to Send.
	pending  bool             // latest has not been sent yet.

	sequenceNum uint32 // Monotonically increasing sequence number for packets.

	// Reused by buildAndSendPacket; only the publisher goroutine touches them.
	packet       Packet
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, errors.New("udp publisher: sender cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		logger.Warnf("invalid interval provided, defaulting to %s", interval)
	}

	logger.Infof("initializing publisher (interval %s, packet %d bytes)", interval, PacketSize)

	return &UDPPublisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: bytes.NewBuffer(make([]byte, 0, PacketSize)),
	}, nil
}

// Send records data as the next snapshot to publish. Non-snapshot values are
// ignored.
func (p *UDPPublisher) Send(data any) error {
	s, ok := data.(*uniform.Snapshot)
	if !ok || s == nil {
		return nil
	}
	p.latestMu.Lock()
	p.latest = *s
	p.pending = true
	p.latestMu.Unlock()
	return nil
}

// Start begins the periodic publishing process.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		logger.Warnf("start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Capture local variables for the goroutine to avoid data races on p.ticker/p.doneChan
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		logger.Debugf("publisher goroutine started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				logger.Debugf("publisher goroutine received stop signal")
				return
			}
		}
	}()
}

// Stop gracefully signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	logger.Infof("publisher stopped after %d packets", p.sequenceNum)
	return nil
}

// buildAndSendPacket packs the latest snapshot, if one is pending, and sends it.
func (p *UDPPublisher) buildAndSendPacket() {
	p.latestMu.Lock()
	if !p.pending {
		p.latestMu.Unlock()
		return
	}
	p.pending = false
	p.sequenceNum++
	p.packet = NewPacket(p.sequenceNum, time.Now().UnixNano(), &p.latest)
	p.latestMu.Unlock()

	if err := p.packet.Encode(p.packetBuffer); err != nil {
		logger.Errorf("error packing snapshot: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		logger.Debugf("packet %d dropped: %v", p.sequenceNum, err)
	}
}

// Close stops the publisher goroutine and closes the sender.
func (p *UDPPublisher) Close() error {
	return errors.Join(p.Stop(), p.sender.Close())
}

// Ensure UDPPublisher satisfies the interface at compile time.
var _ transport.Transport = (*UDPPublisher)(nil)
