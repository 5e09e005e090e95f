package status

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mozilla/mozci-go/internal/buildjson"
)

type fakeResolver struct {
	records map[int64]*buildjson.JobRecord
	err     error
}

func (f *fakeResolver) Resolve(ctx context.Context, completeAt, requestID int64) (*buildjson.JobRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.records[requestID]; ok {
		return r, nil
	}
	return nil, &buildjson.NotFoundError{Shard: buildjson.DayShard(completeAt), RequestID: requestID}
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

// allJobs mirrors what BuildAPI returns for a revision.
func allJobs() []Job {
	return []Job{
		{
			BuildID:       64090958,
			Status:        intPtr(2),
			Branch:        "repo",
			BuilderName:   "Platform repo test",
			ClaimedByName: "buildbot-releng-path",
			BuildNumber:   16,
			StartTime:     int64Ptr(1424960497),
			EndTime:       int64Ptr(1424961882),
			Revision:      "4f2decfeb9c5",
			Requests: []Request{{
				RequestID:  62949190,
				CompleteAt: 1424961882,
				Complete:   1,
				Reason:     "Self-serve: Requested by nobody@mozilla.com",
				Branch:     "repo",
				Revision:   "4f2decfeb9c5",
			}},
		},
		{
			BuildID:     63420134,
			Status:      intPtr(0),
			Branch:      "repo",
			BuilderName: "Platform repo other test",
			StartTime:   int64Ptr(1424317413),
			EndTime:     int64Ptr(1424319198),
			Revision:    "4f2decfeb9c552c6323525385ccad4b450237e20",
			Requests: []Request{{
				RequestID:  62279073,
				CompleteAt: 1424319198,
				Revision:   "4f2decfeb9c552c6323525385ccad4b450237e20",
			}},
		},
	}
}

func record(result int, revision string) *buildjson.JobRecord {
	return &buildjson.JobRecord{Result: result, Properties: buildjson.Properties{Revision: revision}}
}

func TestClassify(t *testing.T) {
	finished := allJobs()[0]

	notStarted := finished
	notStarted.StartTime = nil
	notStarted.EndTime = nil

	running := finished
	running.EndTime = nil

	noRequests := finished
	noRequests.Requests = nil

	tests := []struct {
		name   string
		job    Job
		record *buildjson.JobRecord
		want   State
	}{
		{"success", finished, record(ResultSuccess, "4f2decfeb9c552c6323525385ccad4b450237e20"), Success},
		{"failure", finished, record(ResultFailure, "4f2decfeb9c5"), Failure},
		{"exception", finished, record(ResultException, "4f2decfeb9c5"), Failure},
		{"coalesced", finished, record(ResultSuccess, "0123456789ab"), Coalesced},
		{"pending", notStarted, nil, Pending},
		{"running", running, nil, Running},
		{"not in buildjson", finished, nil, Unknown},
		{"no requests", noRequests, nil, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &fakeResolver{records: map[int64]*buildjson.JobRecord{}}
			if tt.record != nil {
				resolver.records[62949190] = tt.record
			}
			c := NewClassifier(resolver, ClassifierConfig{LogFn: func(string, string) {}})

			got, err := c.Classify(context.Background(), tt.job)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyFetchError(t *testing.T) {
	resolver := &fakeResolver{err: &buildjson.FetchError{Shard: "builds-4hr.js", Err: errors.New("boom")}}
	c := NewClassifier(resolver, ClassifierConfig{LogFn: func(string, string) {}})

	_, err := c.Classify(context.Background(), allJobs()[0])
	var fe *buildjson.FetchError
	if !errors.As(err, &fe) {
		t.Errorf("expected FetchError, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	jobs := allJobs()
	pending := jobs[0]
	pending.StartTime = nil
	running := jobs[0]
	running.EndTime = nil
	jobs = append(jobs, pending, running)

	resolver := &fakeResolver{records: map[int64]*buildjson.JobRecord{
		62949190: record(ResultSuccess, "4f2decfeb9c5"),
	}}
	c := NewClassifier(resolver, ClassifierConfig{Workers: 2, LogFn: func(string, string) {}})

	summary, err := c.Summarize(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	want := Summary{Successful: 1, Pending: 1, Running: 1, Unknown: 1}
	if summary != want {
		t.Errorf("Summarize() = %+v, want %+v", summary, want)
	}
	if summary.Total() != len(jobs) {
		t.Errorf("Total() = %d, want %d", summary.Total(), len(jobs))
	}
}

func TestSummarizeStopsOnError(t *testing.T) {
	resolver := &fakeResolver{err: &buildjson.FetchError{Shard: "builds-4hr.js", Err: errors.New("boom")}}
	c := NewClassifier(resolver, ClassifierConfig{LogFn: func(string, string) {}})

	if _, err := c.Summarize(context.Background(), allJobs()); err == nil {
		t.Error("expected an error")
	}
}

func TestSummarizeSharesShardDownloads(t *testing.T) {
	var fetches int32
	doc := `{"builds": [
		{"builder_id": 1, "result": 0, "request_ids": [62949190], "properties": {"revision": "4f2decfeb9c5"}},
		{"builder_id": 2, "result": 2, "request_ids": [], "properties": {"revision": "4f2decfeb9c5", "request_ids": [70000000]}}
	]}`
	fetcher := buildjson.FetcherFunc(func(ctx context.Context, name string) (*buildjson.Document, error) {
		atomic.AddInt32(&fetches, 1)
		time.Sleep(10 * time.Millisecond)
		var d buildjson.Document
		err := json.Unmarshal([]byte(doc), &d)
		return &d, err
	})
	cache := buildjson.NewShardCache(fetcher, buildjson.CacheConfig{LogFn: func(string, string) {}})
	resolver := buildjson.NewResolver(cache, buildjson.ResolverConfig{
		Now:   func() time.Time { return time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC) },
		LogFn: func(string, string) {},
	})

	var jobs []Job
	for i := 0; i < 10; i++ {
		job := allJobs()[0]
		if i%2 == 1 {
			job.Requests = []Request{{RequestID: 70000000, CompleteAt: 1424961882}}
		}
		jobs = append(jobs, job)
	}

	c := NewClassifier(resolver, ClassifierConfig{Workers: 5, LogFn: func(string, string) {}})
	summary, err := c.Summarize(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Successful != 5 || summary.Failed != 5 {
		t.Errorf("Summarize() = %+v", summary)
	}
	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Errorf("shard fetched %d times, want 1", n)
	}
}

func TestResultName(t *testing.T) {
	if got := ResultName(ResultRetry); got != "retry" {
		t.Errorf("ResultName(5) = %q", got)
	}
	if got := ResultName(42); got != "unknown" {
		t.Errorf("ResultName(42) = %q", got)
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		Success: "success", Failure: "failure", Pending: "pending",
		Running: "running", Coalesced: "coalesced", Unknown: "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}

func TestJobJSON(t *testing.T) {
	raw := `{"build_id": 1, "buildername": "b", "starttime": 10, "requests": [{"request_id": 5, "complete_at": 20}]}`
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if job.StartTime == nil || *job.StartTime != 10 || job.EndTime != nil || job.Status != nil {
		t.Errorf("job = %+v", job)
	}
	if len(job.Requests) != 1 || job.Requests[0].CompleteAt != 20 {
		t.Errorf("requests = %+v", job.Requests)
	}
}
