// Package jobs submits scraping jobs to the batch service and reads back the
// jobs that belong to a user.
package jobs

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"scrape-portal/internal/batch"
	"scrape-portal/internal/logger"
	"scrape-portal/internal/models"
	"scrape-portal/pkg/identity"
	"scrape-portal/pkg/keywords"
)

var (
	// ErrNoKeywords rejects a submission before any remote call.
	ErrNoKeywords = errors.New("at least one keyword is required")

	// ErrSubmission marks failures reported by the batch service on create.
	ErrSubmission = errors.New("job submission failed")
)

// Policy holds the per-deployment constants of every submitted job.
type Policy struct {
	ImageURI       string
	Entrypoint     string
	Script         string
	MachineType    string
	MaxRunDuration time.Duration
	EnvLabel       string
	LogDestination batch.LogDestination
}

// DefaultPolicy mirrors the production settings: python scraper.py on an
// e2-small with a two hour ceiling, logging to Cloud Logging.
func DefaultPolicy(imageURI string) Policy {
	return Policy{
		ImageURI:       imageURI,
		Entrypoint:     "python",
		Script:         "scraper.py",
		MachineType:    "e2-small",
		MaxRunDuration: 2 * time.Hour,
		EnvLabel:       "prod",
		LogDestination: batch.LogsCloudLogging,
	}
}

// Recorder persists submission attempts. It is optional.
type Recorder interface {
	RecordSubmission(ctx context.Context, s *models.Submission) error
}

// Submitted describes a job accepted by the batch service.
type Submitted struct {
	JobID    string   `json:"job_id"`
	JobName  string   `json:"job_name"`
	Identity string   `json:"identity"`
	Keywords []string `json:"keywords"`
}

// Submitter turns keyword lists into batch jobs.
type Submitter struct {
	service  batch.Service
	policy   Policy
	recorder Recorder
	now      func() time.Time
}

// NewSubmitter builds a Submitter. recorder may be nil.
func NewSubmitter(service batch.Service, policy Policy, recorder Recorder) *Submitter {
	return &Submitter{
		service:  service,
		policy:   policy,
		recorder: recorder,
		now:      time.Now,
	}
}

// Spec builds the job spec for an owner and keyword list. The command is the
// script, the owner's identity, then every keyword in order.
func (s *Submitter) Spec(owner string, kws []string) *batch.JobSpec {
	commands := make([]string, 0, len(kws)+2)
	commands = append(commands, s.policy.Script, owner)
	commands = append(commands, kws...)

	return &batch.JobSpec{
		ImageURI:       s.policy.ImageURI,
		Entrypoint:     s.policy.Entrypoint,
		Commands:       commands,
		MaxRunDuration: s.policy.MaxRunDuration,
		MachineType:    s.policy.MachineType,
		Labels: map[string]string{
			batch.LabelEnv:  s.policy.EnvLabel,
			batch.LabelUser: owner,
		},
		LogDestination: s.policy.LogDestination,
	}
}

// Submit creates one job for user, which must be the authenticated caller:
// its normalized email becomes the job's user label. An email that is
// already normalized yields the same label.
//
// Every call creates a new job; nothing is retried.
func (s *Submitter) Submit(ctx context.Context, user models.User, kws []string) (*Submitted, error) {
	kws = keywords.Clean(kws)
	if len(kws) == 0 {
		return nil, ErrNoKeywords
	}

	owner := identity.Normalize(user.Email)
	jobID := NewJobID(kws[0], s.now())
	spec := s.Spec(owner, kws)

	log := logger.Logger.With("job_id", jobID, "user", owner)

	name, err := s.service.CreateJob(ctx, jobID, spec)
	if err != nil {
		log.Warnw("Job submission failed", "error", err)
		s.record(ctx, user, owner, jobID, "", kws, err)
		err = errors.Mark(errors.Wrapf(err, "submit job %s", jobID), ErrSubmission)
		return nil, errors.WithHint(err, "the job was not started; check the details and submit again")
	}

	log.Infow("Job submitted", "job_name", name, "keywords", len(kws))
	s.record(ctx, user, owner, jobID, name, kws, nil)

	return &Submitted{
		JobID:    jobID,
		JobName:  name,
		Identity: owner,
		Keywords: kws,
	}, nil
}

func (s *Submitter) record(ctx context.Context, user models.User, owner, jobID, name string, kws []string, submitErr error) {
	if s.recorder == nil {
		return
	}

	sub := &models.Submission{
		UserID:    user.ID,
		UserEmail: user.Email,
		Identity:  owner,
		JobID:     jobID,
		JobName:   name,
		Keywords:  kws,
		Status:    models.SubmissionSubmitted,
	}
	if submitErr != nil {
		sub.Status = models.SubmissionRejected
		sub.ErrorMessage = submitErr.Error()
	}

	if err := s.recorder.RecordSubmission(ctx, sub); err != nil {
		// The remote job exists either way.
		logger.Logger.Warnw("Failed to record submission", "job_id", jobID, "error", err)
	}
}
