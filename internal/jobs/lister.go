package jobs

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"scrape-portal/internal/batch"
	"scrape-portal/pkg/identity"
)

var (
	// ErrListing marks failures of the upstream job listing.
	ErrListing = errors.New("job listing failed")

	// ErrUnknownState rejects state names the batch service does not use.
	ErrUnknownState = errors.New("unknown job state")
)

var (
	// ActiveStates are the states of jobs that have not finished.
	ActiveStates = []batch.State{batch.StateQueued, batch.StateScheduled, batch.StateRunning}

	// CompletedStates are the terminal states shown as history.
	CompletedStates = []batch.State{batch.StateSucceeded, batch.StateFailed}
)

var knownStates = map[batch.State]bool{
	batch.StateUnspecified:            true,
	batch.StateQueued:                 true,
	batch.StateScheduled:              true,
	batch.StateRunning:                true,
	batch.StateSucceeded:              true,
	batch.StateFailed:                 true,
	batch.StateDeletionInProgress:     true,
	batch.StateCancellationInProgress: true,
	batch.StateCancelled:              true,
}

// ParseStates resolves the lowercase presets "active" and "completed", or a
// comma separated list of state names (case-insensitive). An empty string
// means every state.
func ParseStates(s string) ([]batch.State, error) {
	switch strings.TrimSpace(s) {
	case "":
		return nil, nil
	case "active":
		return ActiveStates, nil
	case "completed":
		return CompletedStates, nil
	}

	var states []batch.State
	for _, part := range strings.Split(s, ",") {
		name := batch.State(strings.ToUpper(strings.TrimSpace(part)))
		if name == "" {
			continue
		}
		if !knownStates[name] {
			return nil, errors.Wrapf(ErrUnknownState, "%q", part)
		}
		states = append(states, name)
	}
	return states, nil
}

// Summary is a job as shown to its owner.
type Summary struct {
	Name       string            `json:"name"`
	ID         string            `json:"id"`
	State      batch.State       `json:"state"`
	Labels     map[string]string `json:"labels"`
	CreateTime time.Time         `json:"create_time"`
}

// Lister filters the batch service's job listing down to one user.
type Lister struct {
	service batch.Service
}

func NewLister(service batch.Service) *Lister {
	return &Lister{service: service}
}

// ListByState returns the caller's jobs whose state is one of states, in
// the order the service listed them. No states means any state.
//
// The service returns every job in scope, so each call costs a full scan.
// Ownership is decided only by the job's user label.
func (l *Lister) ListByState(ctx context.Context, email string, states ...batch.State) ([]Summary, error) {
	all, err := l.service.ListJobs(ctx)
	if err != nil {
		err = errors.Mark(errors.Wrap(err, "list jobs"), ErrListing)
		return nil, errors.WithHint(err, "job status could not be fetched; refresh to try again")
	}

	owner := identity.Normalize(email)
	wanted := make(map[batch.State]bool, len(states))
	for _, s := range states {
		wanted[s] = true
	}

	out := make([]Summary, 0)
	for _, job := range all {
		if label, ok := job.Labels[batch.LabelUser]; !ok || label != owner {
			continue
		}
		if len(wanted) > 0 && !wanted[job.State] {
			continue
		}
		out = append(out, Summary{
			Name:       job.Name,
			ID:         job.ID(),
			State:      job.State,
			Labels:     job.Labels,
			CreateTime: job.CreateTime,
		})
	}
	return out, nil
}
