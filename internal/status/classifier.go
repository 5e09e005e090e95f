package status

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mozilla/mozci-go/internal/buildjson"
)

// Resolver looks up the buildjson record of a finished job.
type Resolver interface {
	Resolve(ctx context.Context, completeAt, requestID int64) (*buildjson.JobRecord, error)
}

// ClassifierConfig holds configuration for a Classifier.
type ClassifierConfig struct {
	// Workers bounds concurrent lookups in Summarize (defaults to 4)
	Workers int

	// LogFn receives log messages (if nil, warnings go to stderr)
	LogFn func(level, msg string)
}

// Classifier decides the State of BuildAPI jobs.
type Classifier struct {
	resolver Resolver
	workers  int
	logFn    func(level, msg string)
}

// NewClassifier creates a classifier that resolves finished jobs through
// resolver.
func NewClassifier(resolver Resolver, cfg ClassifierConfig) *Classifier {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	return &Classifier{
		resolver: resolver,
		workers:  cfg.Workers,
		logFn:    cfg.LogFn,
	}
}

func (c *Classifier) log(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.logFn != nil {
		c.logFn(level, msg)
		return
	}
	if level == "error" || level == "warning" {
		fmt.Fprintf(os.Stderr, "%s\n", msg)
	}
}

// Classify returns the state of job.
//
// Jobs that have not started are Pending and jobs without an end time are
// Running. Finished jobs are looked up by their first request: a record
// built from a different revision means the request was Coalesced into
// another build, otherwise the record's result decides. Jobs whose record
// cannot be found are Unknown; fetch failures are returned.
func (c *Classifier) Classify(ctx context.Context, job Job) (State, error) {
	if job.StartTime == nil {
		return Pending, nil
	}
	if job.EndTime == nil {
		return Running, nil
	}
	if len(job.Requests) == 0 {
		c.log("warning", "Job %d (%s) has no requests", job.BuildID, job.BuilderName)
		return Unknown, nil
	}

	req := job.Requests[0]
	record, err := c.resolver.Resolve(ctx, req.CompleteAt, req.RequestID)
	if err != nil {
		var nf *buildjson.NotFoundError
		if errors.As(err, &nf) {
			c.log("warning", "No buildjson record for request %d in %s", nf.RequestID, nf.Shard)
			return Unknown, nil
		}
		return Unknown, err
	}

	if !sameRevision(job.Revision, record.Properties.Revision) {
		c.log("debug", "Request %d was coalesced into a build of %s", req.RequestID, record.Properties.Revision)
		return Coalesced, nil
	}
	if record.Result == ResultSuccess {
		return Success, nil
	}
	return Failure, nil
}

// Summarize classifies jobs concurrently and counts the results. The first
// error stops the remaining lookups.
func (c *Classifier) Summarize(ctx context.Context, jobs []Job) (Summary, error) {
	var (
		mu      sync.Mutex
		summary Summary
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, job := range jobs {
		job := job // per-iteration copy; go.mod targets go1.21 loop semantics
		g.Go(func() error {
			state, err := c.Classify(ctx, job)
			if err != nil {
				return fmt.Errorf("job %d (%s): %w", job.BuildID, job.BuilderName, err)
			}
			mu.Lock()
			summary.add(state)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// sameRevision compares a possibly abbreviated revision with another.
func sameRevision(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}
