package buildjson

import "fmt"

// FetchError is returned when a shard could not be downloaded or decoded.
type FetchError struct {
	Shard string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Shard, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a shard was loaded (and reloaded) without
// containing the requested job.
type NotFoundError struct {
	Shard     string
	RequestID int64
	HoursAgo  float64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("we have not found the job. If you see this problem please grep "+
		"in %s for %d and run again with --debug. If you report this issue please "+
		"upload the mentioned file somewhere for inspection (job completed %.1f hours ago)",
		e.Shard, e.RequestID, e.HoursAgo)
}
