package buildjson

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mozilla/mozci-go/internal/tzone"
)

// maxAttempts is the number of times a shard is searched: once as cached and
// once after a forced refetch.
const maxAttempts = 2

// ResolverConfig holds configuration for a Resolver.
type ResolverConfig struct {
	// Now returns the current time (defaults to time.Now)
	Now func() time.Time

	// LogFn receives log messages (if nil, warnings go to stderr)
	LogFn func(level, msg string)
}

// Resolver finds the buildjson record of a job from its completion time and
// scheduling (request) id.
type Resolver struct {
	cache *ShardCache
	now   func() time.Time
	logFn func(level, msg string)
}

// NewResolver creates a resolver reading shards through cache.
func NewResolver(cache *ShardCache, cfg ResolverConfig) *Resolver {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Resolver{
		cache: cache,
		now:   cfg.Now,
		logFn: cfg.LogFn,
	}
}

func (r *Resolver) log(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if r.logFn != nil {
		r.logFn(level, msg)
		return
	}
	if level == "error" || level == "warning" {
		fmt.Fprintf(os.Stderr, "%s\n", msg)
	}
}

// ShardFor returns the shard a job that completed at completeAt lives in,
// as of the resolver's clock.
func (r *Resolver) ShardFor(completeAt int64) string {
	return SelectShard(r.now(), completeAt)
}

// SelectShard returns the shard holding a job that completed at completeAt,
// seen from now. Jobs that finished less than four hours ago are in the
// rolling file, older ones in the file named after their UTC completion day.
func SelectShard(now time.Time, completeAt int64) string {
	return selectShard(tzone.HoursSince(now, completeAt), completeAt)
}

func selectShard(hoursAgo float64, completeAt int64) string {
	if hoursAgo < RollingWindowHours {
		return RollingShard
	}
	return DayShard(completeAt)
}

// Resolve returns the record of the job identified by requestID that
// completed at completeAt (epoch seconds).
//
// A miss on the cached shard forces one refetch of that shard and a second
// search. If the job is still missing a *NotFoundError is returned. Transport
// failures are returned as *FetchError.
//
// The returned record belongs to the cached shard and must not be modified.
func (r *Resolver) Resolve(ctx context.Context, completeAt, requestID int64) (*JobRecord, error) {
	job, _, err := r.ResolveShard(ctx, completeAt, requestID)
	return job, err
}

// ResolveShard is Resolve that also returns the name of the shard searched.
func (r *Resolver) ResolveShard(ctx context.Context, completeAt, requestID int64) (*JobRecord, string, error) {
	hoursAgo := tzone.HoursSince(r.now(), completeAt)
	name := selectShard(hoursAgo, completeAt)

	r.log("debug", "Job identified with complete_at value: %d run on %s UTC.", completeAt, tzone.UTCDay(completeAt))
	r.log("debug", "The job completed at %s (%d hours ago).", tzone.UTCTime(completeAt), int(hoursAgo))

	var shard *Shard
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var err error
		if attempt == 1 {
			shard, err = r.cache.GetOrFetch(ctx, name)
		} else {
			r.log("debug", "We did not find %d in %s, we'll clear our cache and try again.", requestID, name)
			shard, err = r.cache.Refetch(ctx, name, shard)
		}
		if err != nil {
			return nil, name, err
		}

		r.log("debug", "We are going to look for %d in %s.", requestID, name)
		if job := FindJob(requestID, shard.Jobs); job != nil {
			return job, name, nil
		}
	}

	return nil, name, &NotFoundError{Shard: name, RequestID: requestID, HoursAgo: hoursAgo}
}
