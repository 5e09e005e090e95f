// Package buildjson locates job records inside the buildjson snapshots
// published by Release Engineering
// (http://builddata.pub.build.mozilla.org/builddata/buildjson).
//
// Snapshots are sharded by time: one file per UTC day plus a rolling
// builds-4hr.js file that is reissued every fifteen minutes. A ShardCache
// keeps decoded shards in memory for the life of the process and a Resolver
// picks the right shard for a job and searches it.
//
// Day files are produced on a Pacific time cadence but only contain jobs that
// ended within the UTC day. Between 8pm and midnight Pacific the 4hr file no
// longer covers jobs that ended after 4pm Pacific, so those jobs cannot be
// found until the next day file is published. The Resolver reports them as
// NotFoundError rather than guessing.
package buildjson

import (
	"fmt"

	"github.com/mozilla/mozci-go/internal/tzone"
)

const (
	// DefaultBaseURL is where buildjson snapshots are published.
	DefaultBaseURL = "http://builddata.pub.build.mozilla.org/builddata/buildjson"

	// RollingShard is the file covering the last four hours.
	RollingShard = "builds-4hr.js"

	// RollingWindowHours is how far back RollingShard reaches.
	RollingWindowHours = 4

	dayShardFormat = "builds-%s.js"
)

// DayShard returns the name of the shard holding jobs that ended on the UTC
// day of epoch.
func DayShard(epoch int64) string {
	return fmt.Sprintf(dayShardFormat, tzone.UTCDay(epoch))
}

// RemotePath returns the location of a shard's gzip file under base.
func RemotePath(base, name string) string {
	return fmt.Sprintf("%s/%s.gz", base, name)
}

// Shard is one decoded snapshot file.
type Shard struct {
	Name string
	Jobs []JobRecord

	// generation increases every time the cache stores a fresh copy.
	generation uint64
}

// FindJob returns the first job in jobs whose request ids include
// requestID, or nil.
func FindJob(requestID int64, jobs []JobRecord) *JobRecord {
	for i := range jobs {
		if jobs[i].HasRequestID(requestID) {
			return &jobs[i]
		}
	}
	return nil
}
