package cache

import "time"

// Status is the lifecycle state of a cache entry.
type Status int

const (
	// StatusIdle means the entry exists but has never been fetched.
	StatusIdle Status = iota
	// StatusLoading means the first fetch is running and no data exists yet.
	StatusLoading
	// StatusSuccess means Data holds the last successful result.
	StatusSuccess
	// StatusError means the last fetch failed after exhausting its retries.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of an entry at the moment of a transition or
// a read.
type Snapshot struct {
	Key     Key
	Data    any
	HasData bool
	Status  Status
	Err     error
	// FetchedAt is when Data was last stored; zero when HasData is false.
	FetchedAt time.Time
	// IsFetching reports whether a fetch is in flight, including background
	// refetches of stale data.
	IsFetching bool
	// FailureCount is the number of attempts made by the last failed fetch.
	FailureCount int
}

// Listener receives entry transitions.
type Listener func(Snapshot)
