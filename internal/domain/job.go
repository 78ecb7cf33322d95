package domain

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// JobStatus enumerates the lifecycle of an asynchronous provider job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobSucceeded  JobStatus = "succeeded"
	JobFailed     JobStatus = "failed"
	JobTimedOut   JobStatus = "timed_out"
)

// JobEvent is an observation that moves a job through its lifecycle.
type JobEvent string

const (
	EventStart      JobEvent = "start"
	EventInProgress JobEvent = "in_progress"
	EventSucceeded  JobEvent = "succeeded"
	EventFailed     JobEvent = "failed"
	EventExhausted  JobEvent = "exhausted"
)

// jobTransitions is the full set of legal moves. Anything not listed is an
// error.
var jobTransitions = map[JobStatus]map[JobEvent]JobStatus{
	JobPending: {
		EventStart: JobProcessing,
	},
	JobProcessing: {
		EventInProgress: JobProcessing,
		EventSucceeded:  JobSucceeded,
		EventFailed:     JobFailed,
		EventExhausted:  JobTimedOut,
	},
}

// NextJobStatus looks up the status reached from s on ev.
func NextJobStatus(s JobStatus, ev JobEvent) (JobStatus, bool) {
	next, ok := jobTransitions[s][ev]
	return next, ok
}

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return len(jobTransitions[s]) == 0
}

// PollableJob is a provider job handle owned by a single request.
type PollableJob struct {
	ID                 string
	Service            string
	Label              string
	CandidateEndpoints []string
	Header             http.Header
	Status             JobStatus
	Attempt            int
	Result             *MediaLocator
	Error              string
}

// NewPollableJob creates a pending job. Endpoint templates may contain {id}.
func NewPollableJob(service, id string, endpoints []string, header http.Header) *PollableJob {
	if header == nil {
		header = http.Header{}
	}
	return &PollableJob{
		ID:                 strings.TrimSpace(id),
		Service:            service,
		CandidateEndpoints: endpoints,
		Header:             header,
		Status:             JobPending,
	}
}

// Apply moves the job along the transition table.
func (j *PollableJob) Apply(ev JobEvent) error {
	next, ok := NextJobStatus(j.Status, ev)
	if !ok {
		return fmt.Errorf("job %s: illegal transition %s --%s-->", j.ID, j.Status, ev)
	}
	j.Status = next
	return nil
}

// Endpoint expands the i-th candidate template.
func (j *PollableJob) Endpoint(i int) string {
	return strings.ReplaceAll(j.CandidateEndpoints[i], "{id}", url.PathEscape(j.ID))
}
