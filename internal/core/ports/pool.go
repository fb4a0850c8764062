package ports

import "context"

// PoolStats are observability counters for the speech connection pool.
// created/reused/destroyed increase monotonically. InUse counts slots issued
// to callers; slots held briefly by maintenance while their connection is
// swapped show up under Refreshing instead.
type PoolStats struct {
	Size       int     `json:"size"`
	InUse      int     `json:"in_use"`
	Available  int     `json:"available"`
	Refreshing int     `json:"refreshing"`
	Created    uint64  `json:"created"`
	Reused     uint64  `json:"reused"`
	Destroyed  uint64  `json:"destroyed"`
	ReuseRate  float64 `json:"reuse_rate"`
}

// Lease is an issued pool slot. Callers use Conn between Acquire and Release
// and must not retain it afterwards.
type Lease interface {
	Conn() SpeechConnection
	Temporary() bool
}

// ConnectionPool amortizes speech-connection setup cost. Acquire never
// blocks: when every permanent slot is busy it returns a temporary lease
// backed by a freshly opened connection, which Release destroys. Release
// must be called exactly once per successful Acquire, on every exit path.
type ConnectionPool interface {
	Acquire(ctx context.Context) (Lease, error)
	Release(lease Lease)
	Stats() PoolStats
	CloseAll()
}
