// Package observability aggregates live counters from the hub for
// logging and monitoring. It holds no domain logic.
package observability

import "sync/atomic"

// Stats tracks hub activity with atomic counters so the hot paths never
// contend on a lock.
type Stats struct {
	EventsPublished    atomic.Uint64
	EventsDropped      atomic.Uint64
	SnapshotsDelivered atomic.Uint64
	DeliveryFailures   atomic.Uint64
	ActiveSubscribers  atomic.Int64
}

// Snapshot is a point-in-time copy safe to hand to logs or UIs.
type Snapshot struct {
	EventsPublished    uint64
	EventsDropped      uint64
	SnapshotsDelivered uint64
	DeliveryFailures   uint64
	ActiveSubscribers  int64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		EventsPublished:    s.EventsPublished.Load(),
		EventsDropped:      s.EventsDropped.Load(),
		SnapshotsDelivered: s.SnapshotsDelivered.Load(),
		DeliveryFailures:   s.DeliveryFailures.Load(),
		ActiveSubscribers:  s.ActiveSubscribers.Load(),
	}
}
