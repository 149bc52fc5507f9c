// Package packet implements Packet: a ValueBox plus a monotonic nanosecond
// timestamp, the unit of data exchange between nodes.
package packet

import (
	"time"

	"github.com/vk/easywork/internal/valuebox"
)

// Packet is a timestamped, type-erased unit of data. Packets are plain
// value types: Go's GC-backed `any` and slice/map headers already give
// shared-ownership, zero-copy fan-out without manual reference counting.
type Packet struct {
	Box valuebox.Box
	Ts  int64
}

// Empty constructs a packet with no value and timestamp 0.
func Empty() Packet {
	return Packet{Box: valuebox.Empty(), Ts: 0}
}

// From wraps v with the given timestamp.
func From(v any, ts int64) Packet {
	return Packet{Box: valuebox.Of(v), Ts: ts}
}

// HasValue reports whether the packet carries a value. A packet without a
// value represents "no data this cycle" and is interpreted by the dispatch
// engine as absence, not as a typed zero.
func (p Packet) HasValue() bool { return p.Box.HasValue() }

// clockBase anchors NowNs to the monotonic clock reading taken at package
// initialization.
var clockBase = time.Now()

// NowNs produces a monotonic nanosecond timestamp from the steady clock:
// the nanoseconds elapsed since clockBase.
func NowNs() int64 {
	return time.Since(clockBase).Nanoseconds()
}
