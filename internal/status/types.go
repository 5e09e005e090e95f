// Package status classifies BuildAPI jobs by looking up their buildjson
// record, and summarizes a collection of jobs by state.
package status

// Job is a build as reported by BuildAPI for a revision.
type Job struct {
	BuildID       int64     `json:"build_id"`
	Status        *int      `json:"status,omitempty"`
	Branch        string    `json:"branch"`
	BuilderName   string    `json:"buildername"`
	ClaimedByName string    `json:"claimed_by_name,omitempty"`
	BuildNumber   int64     `json:"buildnumber"`
	StartTime     *int64    `json:"starttime,omitempty"`
	EndTime       *int64    `json:"endtime,omitempty"`
	Revision      string    `json:"revision"`
	Requests      []Request `json:"requests"`
}

// Request is one build request attached to a Job.
type Request struct {
	RequestID  int64  `json:"request_id"`
	CompleteAt int64  `json:"complete_at"`
	Complete   int    `json:"complete"`
	ClaimedAt  int64  `json:"claimed_at,omitempty"`
	SubmitTime int64  `json:"submittime"`
	Priority   int    `json:"priority"`
	Reason     string `json:"reason,omitempty"`
	Branch     string `json:"branch"`
	Revision   string `json:"revision"`
}

// State is the classification of a job.
type State int

const (
	Unknown State = iota
	Success
	Failure
	Pending
	Running
	Coalesced
)

func (s State) String() string {
	switch s {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Coalesced:
		return "coalesced"
	default:
		return "unknown"
	}
}

// Buildbot result codes as published in buildjson "result".
const (
	ResultSuccess   = 0
	ResultWarnings  = 1
	ResultFailure   = 2
	ResultSkipped   = 3
	ResultException = 4
	ResultRetry     = 5
	ResultCancelled = 6
)

var resultNames = map[int]string{
	ResultSuccess:   "success",
	ResultWarnings:  "warnings",
	ResultFailure:   "failure",
	ResultSkipped:   "skipped",
	ResultException: "exception",
	ResultRetry:     "retry",
	ResultCancelled: "cancelled",
}

// ResultName returns the buildbot name of a result code.
func ResultName(result int) string {
	if name, ok := resultNames[result]; ok {
		return name
	}
	return "unknown"
}

// Summary counts jobs per state.
type Summary struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Pending    int `json:"pending"`
	Running    int `json:"running"`
	Coalesced  int `json:"coalesced"`
	Unknown    int `json:"unknown"`
}

// Total returns the number of jobs counted.
func (s Summary) Total() int {
	return s.Successful + s.Failed + s.Pending + s.Running + s.Coalesced + s.Unknown
}

func (s *Summary) add(state State) {
	switch state {
	case Success:
		s.Successful++
	case Failure:
		s.Failed++
	case Pending:
		s.Pending++
	case Running:
		s.Running++
	case Coalesced:
		s.Coalesced++
	default:
		s.Unknown++
	}
}
