package store

import (
	"strconv"
	"sync/atomic"
	"time"
)

// IDGenerator hands out unique, roughly time-ordered 64-bit message IDs.
// Layout: 1 unused sign bit | 41 bits of milliseconds since the Pulse epoch
// | 12 bits of per-millisecond sequence. A single server instance never
// needs worker bits, so the full sequence space goes to burst capacity
// (4096 IDs per millisecond).
type IDGenerator struct {
	epoch int64
	// state packs the last timestamp in the upper bits and the sequence in
	// the lower sequenceBits, updated with CAS so NextID needs no lock.
	state atomic.Int64
}

const (
	sequenceBits = 12
	sequenceMask = (1 << sequenceBits) - 1
)

// pulseEpoch is 2025-01-01T00:00:00Z in Unix milliseconds.
const pulseEpoch = 1735689600000

// NewIDGenerator returns a generator anchored at the Pulse epoch.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{epoch: pulseEpoch}
}

// NextID returns the next unique ID.
func (g *IDGenerator) NextID() int64 {
	for {
		old := g.state.Load()
		lastMillis := old >> sequenceBits
		seq := old & sequenceMask

		now := time.Now().UnixMilli()
		if now < lastMillis {
			// Clock went backwards; keep issuing against the last observed
			// timestamp so IDs stay monotonic.
			now = lastMillis
		}

		var newSeq int64
		if now == lastMillis {
			newSeq = (seq + 1) & sequenceMask
			if newSeq == 0 {
				// Sequence exhausted within this millisecond; spin until the
				// clock advances. Only reachable past 4096 IDs/ms.
				for time.Now().UnixMilli() <= lastMillis {
				}
				continue
			}
		}

		if g.state.CompareAndSwap(old, now<<sequenceBits|newSeq) {
			return (now-g.epoch)<<sequenceBits | newSeq
		}
	}
}

// Next returns the next unique ID in the decimal string form used on the wire.
func (g *IDGenerator) Next() string {
	return strconv.FormatInt(g.NextID(), 10)
}
