package batch

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Memory is an in-process Service. Jobs start QUEUED and only change state
// through SetState. It backs tests and credential-less local runs.
type Memory struct {
	parent string

	mu    sync.Mutex
	jobs  []Job
	specs map[string]*JobSpec
	now   func() time.Time

	// CreateErr and ListErr, when set, are returned by the next calls.
	CreateErr error
	ListErr   error

	// Creates and Lists count the calls made, including failed ones.
	Creates int
	Lists   int
}

var _ Service = (*Memory)(nil)

// NewMemory returns an empty store scoped like a real project/region.
func NewMemory(projectID, region string) *Memory {
	return &Memory{
		parent: Parent(projectID, region),
		specs:  make(map[string]*JobSpec),
		now:    time.Now,
	}
}

func (m *Memory) CreateJob(_ context.Context, jobID string, spec *JobSpec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Creates++
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	if err := spec.Validate(); err != nil {
		return "", err
	}

	name := m.parent + "/jobs/" + jobID
	if _, ok := m.specs[name]; ok {
		return "", errors.Mark(errors.Newf("job %s already exists", name), ErrAlreadyExists)
	}

	stored := *spec
	stored.Commands = append([]string(nil), spec.Commands...)
	stored.Labels = copyLabels(spec.Labels)
	m.specs[name] = &stored

	m.jobs = append(m.jobs, Job{
		Name:       name,
		UID:        uuid.NewString(),
		Labels:     copyLabels(spec.Labels),
		State:      StateQueued,
		CreateTime: m.now().UTC(),
	})
	return name, nil
}

func (m *Memory) ListJobs(_ context.Context) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Lists++
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	out := make([]Job, len(m.jobs))
	for i, j := range m.jobs {
		j.Labels = copyLabels(j.Labels)
		out[i] = j
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

// Add inserts a job as if another client had created it.
func (m *Memory) Add(job Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Labels = copyLabels(job.Labels)
	m.jobs = append(m.jobs, job)
}

// SetState moves the named job to state. It reports whether the job exists.
func (m *Memory) SetState(name string, state State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.jobs {
		if m.jobs[i].Name == name {
			m.jobs[i].State = state
			return true
		}
	}
	return false
}

// Spec returns a copy of the spec a job was created with.
func (m *Memory) Spec(name string) (*JobSpec, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, ok := m.specs[name]
	if !ok {
		return nil, false
	}
	cp := *spec
	cp.Commands = append([]string(nil), spec.Commands...)
	cp.Labels = copyLabels(spec.Labels)
	return &cp, true
}
