// SPDX-License-Identifier: MIT
package transport

// Transport defines a generic interface for sending snapshots or events to a
// renderer. The frame driver calls Send once per tick with a pointer it
// reuses, so implementations must copy what they keep before returning.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}
