package publer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// JobState is a server-side job status. The wire values are case-sensitive.
type JobState string

const (
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// Terminal reports whether the state can no longer change.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobRecord is one immutable snapshot of a server-side asynchronous job.
// Repeated polls produce new snapshots until a terminal state is observed.
type JobRecord struct {
	JobID       string         `json:"job_id"`
	Status      JobState       `json:"status"`
	Payload     map[string]any `json:"payload"`
	Failures    map[string]any `json:"failures"`
	CreatedAt   *time.Time     `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at"`
}

func (r JobRecord) validate() error {
	if r.JobID == "" {
		return missingField("job_id")
	}
	if r.Status == "" {
		return missingField("status")
	}
	return nil
}

// JobRef is the immediate response of an asynchronous create operation.
type JobRef struct {
	JobID string `json:"job_id"`
}

func (r JobRef) validate() error {
	if r.JobID == "" {
		return missingField("job_id")
	}
	return nil
}

// pollDecision is the output of the pure poll transition.
type pollDecision int

const (
	pollContinue pollDecision = iota
	pollSucceeded
	pollFailed
	pollExpired
)

// pollStep decides what to do with one snapshot. Terminal states win over
// the deadline, so a job that completes on the final tick is still a
// success. The deadline check happens before any sleep, never after.
func pollStep(rec *JobRecord, elapsed, deadline time.Duration) pollDecision {
	switch rec.Status {
	case JobCompleted:
		return pollSucceeded
	case JobFailed:
		return pollFailed
	}
	if elapsed > deadline {
		return pollExpired
	}
	return pollContinue
}

// Default polling cadence. The interval is a constant, independent of the
// deadline, so callers get a predictable tick cadence.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 60 * time.Second
)

// Poller drives a job to a terminal state by fixed-interval polling of
// GET /job_status/{id}. It borrows the Session for the duration of one
// wait and owns no state across calls.
//
// HTTP-level failures of any individual tick propagate immediately; only
// "job not yet terminal" is retried.
type Poller struct {
	// Interval between polls.
	Interval time.Duration

	// Timeout is the overall deadline measured from the start of a wait.
	Timeout time.Duration

	session *Session
	log     *slog.Logger
}

// NewPoller creates a Poller with the default cadence. The fields can be
// adjusted before the first wait.
func NewPoller(s *Session) *Poller {
	return &Poller{
		Interval: DefaultPollInterval,
		Timeout:  DefaultPollTimeout,
		session:  s,
		log:      s.log,
	}
}

// fetchJob retrieves one job snapshot.
func fetchJob(ctx context.Context, s *Session, jobID string) (*JobRecord, error) {
	raw, err := s.Request(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   "/job_status/" + jobID,
	})
	if err != nil {
		return nil, err
	}
	rec, err := decodeRecord[JobRecord](raw)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Wait blocks the calling goroutine until the job reaches a terminal
// state or the timeout elapses.
func (p *Poller) Wait(jobID string) (*JobRecord, error) {
	return p.wait(context.Background(), jobID, func(d time.Duration) error {
		time.Sleep(d)
		return nil
	})
}

// WaitContext polls cooperatively: both the status fetch and the
// inter-poll wait respect ctx. Caller cancellation is reported as a
// job_timed_out APIError wrapping ctx.Err(), so errors.Is can still
// distinguish the cause; retry semantics are identical to a timeout.
func (p *Poller) WaitContext(ctx context.Context, jobID string) (*JobRecord, error) {
	return p.wait(ctx, jobID, func(d time.Duration) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// wait is the shared polling loop; only the sleeping primitive differs
// between the blocking and cooperative entry points.
func (p *Poller) wait(ctx context.Context, jobID string, sleep func(time.Duration) error) (*JobRecord, error) {
	start := time.Now()

	for {
		rec, err := fetchJob(ctx, p.session, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, p.timedOut(jobID, time.Since(start), ctx.Err())
			}
			return nil, err
		}

		elapsed := time.Since(start)
		switch pollStep(rec, elapsed, p.Timeout) {
		case pollSucceeded:
			p.log.Debug("job completed", "job_id", jobID, "elapsed", elapsed)
			return rec, nil
		case pollFailed:
			return rec, &APIError{
				Kind:    ErrJobFailed,
				Message: fmt.Sprintf("job %s failed", jobID),
				Body:    rec.Failures,
			}
		case pollExpired:
			return rec, p.timedOut(jobID, elapsed, nil)
		}

		if err := sleep(p.Interval); err != nil {
			return rec, p.timedOut(jobID, time.Since(start), err)
		}
	}
}

func (p *Poller) timedOut(jobID string, elapsed time.Duration, cause error) *APIError {
	return &APIError{
		Kind:    ErrJobTimedOut,
		Message: fmt.Sprintf("job %s did not complete within %s (waited %s)", jobID, p.Timeout, elapsed.Round(time.Millisecond)),
		cause:   cause,
	}
}
