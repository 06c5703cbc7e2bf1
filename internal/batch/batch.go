// Package batch is the boundary to the managed batch-compute service.
//
// Jobs are created from a JobSpec describing a single container run and are
// read back as Job values carrying labels and the service-reported state.
// Nothing here mutates a job after creation.
package batch

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// State is a job lifecycle state as reported by the batch service. Values
// use the service's enum names so unknown future states pass through intact.
type State string

const (
	StateUnspecified            State = "STATE_UNSPECIFIED"
	StateQueued                 State = "QUEUED"
	StateScheduled              State = "SCHEDULED"
	StateRunning                State = "RUNNING"
	StateSucceeded              State = "SUCCEEDED"
	StateFailed                 State = "FAILED"
	StateDeletionInProgress     State = "DELETION_IN_PROGRESS"
	StateCancellationInProgress State = "CANCELLATION_IN_PROGRESS"
	StateCancelled              State = "CANCELLED"
)

func (s State) String() string {
	return string(s)
}

// LogDestination selects where job output is captured.
type LogDestination string

const (
	LogsCloudLogging LogDestination = "CLOUD_LOGGING"
	LogsPath         LogDestination = "PATH"
)

// Label keys set on every submitted job.
const (
	LabelEnv  = "env"
	LabelUser = "user"
)

// JobSpec describes one job with a single container runnable.
type JobSpec struct {
	ImageURI       string
	Entrypoint     string
	Commands       []string
	MaxRunDuration time.Duration
	MachineType    string
	Labels         map[string]string
	LogDestination LogDestination
}

// Validate rejects specs the service would refuse outright.
func (s *JobSpec) Validate() error {
	if s == nil {
		return errors.Mark(errors.New("job spec is nil"), ErrInvalidSpec)
	}
	if len(s.Commands) == 0 {
		return errors.Mark(errors.New("job spec has no commands"), ErrInvalidSpec)
	}
	if s.MaxRunDuration <= 0 {
		return errors.Mark(errors.New("max run duration must be positive"), ErrInvalidSpec)
	}
	return nil
}

// Job is a job as listed by the service.
type Job struct {
	// Name is the fully qualified resource name,
	// projects/<p>/locations/<r>/jobs/<id>.
	Name       string
	UID        string
	Labels     map[string]string
	State      State
	CreateTime time.Time
}

// ID returns the last segment of the resource name.
func (j Job) ID() string {
	if i := strings.LastIndex(j.Name, "/"); i >= 0 {
		return j.Name[i+1:]
	}
	return j.Name
}

// Service creates and lists jobs in one project/region scope.
type Service interface {
	// CreateJob submits spec under jobID and returns the fully qualified
	// job name assigned by the service.
	CreateJob(ctx context.Context, jobID string, spec *JobSpec) (string, error)

	// ListJobs returns every job in scope, regardless of owner.
	ListJobs(ctx context.Context) ([]Job, error)

	Close() error
}

var (
	// ErrInvalidSpec marks specs rejected before any remote call.
	ErrInvalidSpec = errors.New("invalid job spec")

	// ErrAlreadyExists is returned when a job id is reused.
	ErrAlreadyExists = errors.New("job already exists")
)

// Parent renders the scope used in every request.
func Parent(projectID, region string) string {
	return "projects/" + projectID + "/locations/" + region
}
