// SPDX-License-Identifier: MIT
package transport

import (
	applog "reactive/internal/log"
	"reactive/internal/uniform"
)

var logger = applog.For("transport")

// LoggingTransport implements the Transport interface by logging a summary of
// every Nth snapshot at debug level.
type LoggingTransport struct {
	every int
	n     int
}

// NewLoggingTransport creates a new LoggingTransport that logs one in every
// `every` snapshots. Values below 1 log every snapshot.
func NewLoggingTransport(every int) *LoggingTransport {
	logger.Infof("using logging transport (every %d frames)", max(every, 1))
	return &LoggingTransport{every: max(every, 1)}
}

// Send logs the received data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	if !applog.Enabled(applog.LevelDebug) {
		return nil
	}
	lt.n++
	if lt.n < lt.every {
		return nil
	}
	lt.n = 0

	switch v := data.(type) {
	case *uniform.Snapshot:
		logger.Debugf("t=%.2f bass=%.3f mid=%.3f high=%.3f energy=%.3f beat=%.3f beats=%d res=%dx%d",
			v.Time, v.Bass, v.Mid, v.High, v.Energy, v.Beat, v.BeatCount, v.Resolution.Width, v.Resolution.Height)
	default:
		logger.Debugf("received (%T): %+v", data, data)
	}
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	logger.Debugf("logging transport closed")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
