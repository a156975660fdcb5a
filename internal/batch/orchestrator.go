package batch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// JobAPI is the batch surface the poller needs; tests fake it.
type JobAPI interface {
	GetJob(ctx context.Context, batchID string) (Job, error)
}

// TerminalError is returned when a batch reaches a terminal state other
// than completed. The job is carried along so callers can report the
// status and error file distinctly from an ordinary failure.
type TerminalError struct {
	Job Job
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("batch %s finished with status %q", e.Job.ID, e.Job.Status)
}

// ErrPollBudget is returned when the wait budget runs out before the
// batch reaches a terminal state. The batch keeps running remotely; a
// later run can resume polling by id.
var ErrPollBudget = errors.New("poll budget exhausted before batch finished")

// PollOptions bound the wait. Interval defaults to 5s; a zero MaxWait
// means the caller's context is the only bound.
type PollOptions struct {
	Interval time.Duration
	MaxWait  time.Duration
	// OnStatus, when set, is invoked after every status check.
	OnStatus func(job Job)
}

// WaitForJob polls at a fixed interval until the batch reaches a
// terminal state, the context is cancelled, or the wait budget is
// spent. Completed jobs are returned as-is; other terminal states come
// back as a TerminalError.
func WaitForJob(ctx context.Context, api JobAPI, batchID string, opts PollOptions) (Job, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if opts.MaxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.MaxWait)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := api.GetJob(ctx, batchID)
		if err != nil {
			return Job{}, err
		}
		if opts.OnStatus != nil {
			opts.OnStatus(job)
		}
		if IsTerminal(job.Status) {
			if job.Status != StatusCompleted {
				return job, &TerminalError{Job: job}
			}
			return job, nil
		}

		select {
		case <-ctx.Done():
			if opts.MaxWait > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return job, fmt.Errorf("%w: batch %s still %q", ErrPollBudget, batchID, job.Status)
			}
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}
