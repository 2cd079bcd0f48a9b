package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics holds process-wide pipeline counters.
type Metrics struct {
	snapshotsAccepted atomic.Uint64
	snapshotsSkipped  atomic.Uint64
	acquireRetries    atomic.Uint64
	pagesFetched      atomic.Uint64

	listingsDecoded   atomic.Uint64
	listingsMalformed atomic.Uint64
	listingsFiltered  atomic.Uint64

	flushes       atomic.Uint64
	writeFailures atomic.Uint64
	cacheFailures atomic.Uint64

	streamClients atomic.Int32
	streamDropped atomic.Uint64

	lastSnapshotMs atomic.Int64
}

// New creates an empty metrics set.
func New() *Metrics {
	return &Metrics{}
}

// RecordSnapshot records an accepted snapshot and its feed timestamp.
func (m *Metrics) RecordSnapshot(lastUpdated time.Time, pages int) {
	m.snapshotsAccepted.Add(1)
	m.pagesFetched.Add(uint64(pages))
	m.lastSnapshotMs.Store(lastUpdated.UnixMilli())
}

// RecordSkip records a probe that found no new snapshot.
func (m *Metrics) RecordSkip() { m.snapshotsSkipped.Add(1) }

// RecordRetry records an aborted acquisition attempt.
func (m *Metrics) RecordRetry() { m.acquireRetries.Add(1) }

// RecordListings records the outcome of decoding one snapshot.
func (m *Metrics) RecordListings(decoded, malformed, filtered int) {
	m.listingsDecoded.Add(uint64(decoded))
	m.listingsMalformed.Add(uint64(malformed))
	m.listingsFiltered.Add(uint64(filtered))
}

// RecordFlush records a buffer flush event.
func (m *Metrics) RecordFlush() { m.flushes.Add(1) }

// RecordWriteFailure records a failed persistence call.
func (m *Metrics) RecordWriteFailure() { m.writeFailures.Add(1) }

// RecordCacheFailure records a failed cache update.
func (m *Metrics) RecordCacheFailure() { m.cacheFailures.Add(1) }

// StreamConnected adjusts the connected stream client gauge.
func (m *Metrics) StreamConnected(delta int32) { m.streamClients.Add(delta) }

// RecordStreamDrop records a push dropped for a slow client.
func (m *Metrics) RecordStreamDrop() { m.streamDropped.Add(1) }

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	SnapshotsAccepted uint64    `json:"snapshots_accepted"`
	SnapshotsSkipped  uint64    `json:"snapshots_skipped"`
	AcquireRetries    uint64    `json:"acquire_retries"`
	PagesFetched      uint64    `json:"pages_fetched"`
	ListingsDecoded   uint64    `json:"listings_decoded"`
	ListingsMalformed uint64    `json:"listings_malformed"`
	ListingsFiltered  uint64    `json:"listings_filtered"`
	Flushes           uint64    `json:"flushes"`
	WriteFailures     uint64    `json:"write_failures"`
	CacheFailures     uint64    `json:"cache_failures"`
	StreamClients     int32     `json:"stream_clients"`
	StreamDropped     uint64    `json:"stream_dropped"`
	LastSnapshot      time.Time `json:"last_snapshot"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		SnapshotsAccepted: m.snapshotsAccepted.Load(),
		SnapshotsSkipped:  m.snapshotsSkipped.Load(),
		AcquireRetries:    m.acquireRetries.Load(),
		PagesFetched:      m.pagesFetched.Load(),
		ListingsDecoded:   m.listingsDecoded.Load(),
		ListingsMalformed: m.listingsMalformed.Load(),
		ListingsFiltered:  m.listingsFiltered.Load(),
		Flushes:           m.flushes.Load(),
		WriteFailures:     m.writeFailures.Load(),
		CacheFailures:     m.cacheFailures.Load(),
		StreamClients:     m.streamClients.Load(),
		StreamDropped:     m.streamDropped.Load(),
	}
	if ms := m.lastSnapshotMs.Load(); ms != 0 {
		s.LastSnapshot = time.UnixMilli(ms).UTC()
	}
	return s
}
