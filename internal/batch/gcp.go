package batch

import (
	"context"

	gcpbatch "cloud.google.com/go/batch/apiv1"
	"cloud.google.com/go/batch/apiv1/batchpb"
	"github.com/cockroachdb/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
)

// GCPConfig scopes a Cloud Batch client.
type GCPConfig struct {
	ProjectID       string
	Region          string
	CredentialsFile string
	CredentialsJSON string
}

// GCP implements Service on Google Cloud Batch.
type GCP struct {
	client *gcpbatch.Client
	parent string
}

var _ Service = (*GCP)(nil)

// NewGCP dials Cloud Batch. Explicit credentials win over application
// default credentials.
func NewGCP(ctx context.Context, cfg GCPConfig) (*GCP, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, errors.New("cloud batch: project and region are required")
	}

	client, err := gcpbatch.NewClient(ctx, ClientOptions(cfg.CredentialsFile, cfg.CredentialsJSON)...)
	if err != nil {
		return nil, errors.Wrap(err, "cloud batch: failed to create client")
	}

	return &GCP{
		client: client,
		parent: Parent(cfg.ProjectID, cfg.Region),
	}, nil
}

// ClientOptions turns configured credentials into client options shared by
// the Google clients.
func ClientOptions(credentialsFile, credentialsJSON string) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case credentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	return opts
}

// CreateJob submits spec as a single-task job.
func (g *GCP) CreateJob(ctx context.Context, jobID string, spec *JobSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	job, err := g.client.CreateJob(ctx, &batchpb.CreateJobRequest{
		Parent: g.parent,
		JobId:  jobID,
		Job:    toProtoJob(spec),
	})
	if err != nil {
		return "", wrapGRPCError(err, "create job %s", jobID)
	}
	return job.GetName(), nil
}

// ListJobs pages through every job in the configured scope.
func (g *GCP) ListJobs(ctx context.Context) ([]Job, error) {
	it := g.client.ListJobs(ctx, &batchpb.ListJobsRequest{Parent: g.parent})

	var jobs []Job
	for {
		pb, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, wrapGRPCError(err, "list jobs in %s", g.parent)
		}
		jobs = append(jobs, fromProtoJob(pb))
	}
	return jobs, nil
}

func (g *GCP) Close() error {
	return g.client.Close()
}

func toProtoJob(spec *JobSpec) *batchpb.Job {
	runnable := &batchpb.Runnable{
		Executable: &batchpb.Runnable_Container_{
			Container: &batchpb.Runnable_Container{
				ImageUri:   spec.ImageURI,
				Entrypoint: spec.Entrypoint,
				Commands:   append([]string(nil), spec.Commands...),
			},
		},
	}

	taskGroup := &batchpb.TaskGroup{
		TaskSpec: &batchpb.TaskSpec{
			Runnables:      []*batchpb.Runnable{runnable},
			MaxRunDuration: durationpb.New(spec.MaxRunDuration),
		},
	}

	job := &batchpb.Job{
		TaskGroups: []*batchpb.TaskGroup{taskGroup},
		Labels:     copyLabels(spec.Labels),
		LogsPolicy: &batchpb.LogsPolicy{
			Destination: logDestination(spec.LogDestination),
		},
	}

	if spec.MachineType != "" {
		job.AllocationPolicy = &batchpb.AllocationPolicy{
			Instances: []*batchpb.AllocationPolicy_InstancePolicyOrTemplate{{
				PolicyTemplate: &batchpb.AllocationPolicy_InstancePolicyOrTemplate_Policy{
					Policy: &batchpb.AllocationPolicy_InstancePolicy{
						MachineType: spec.MachineType,
					},
				},
			}},
		}
	}

	return job
}

func fromProtoJob(pb *batchpb.Job) Job {
	job := Job{
		Name:   pb.GetName(),
		UID:    pb.GetUid(),
		Labels: copyLabels(pb.GetLabels()),
		State:  State(pb.GetStatus().GetState().String()),
	}
	if ts := pb.GetCreateTime(); ts != nil {
		job.CreateTime = ts.AsTime()
	}
	return job
}

func logDestination(d LogDestination) batchpb.LogsPolicy_Destination {
	switch d {
	case LogsCloudLogging:
		return batchpb.LogsPolicy_CLOUD_LOGGING
	case LogsPath:
		return batchpb.LogsPolicy_PATH
	default:
		return batchpb.LogsPolicy_DESTINATION_UNSPECIFIED
	}
}

func copyLabels(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func wrapGRPCError(err error, format string, args ...interface{}) error {
	wrapped := errors.Wrapf(err, "cloud batch: "+format, args...)
	switch status.Code(err) {
	case codes.AlreadyExists:
		return errors.Mark(wrapped, ErrAlreadyExists)
	case codes.InvalidArgument:
		return errors.Mark(wrapped, ErrInvalidSpec)
	case codes.ResourceExhausted:
		return errors.WithHint(wrapped, "the batch quota for this project is exhausted; try again later")
	case codes.PermissionDenied, codes.Unauthenticated:
		return errors.WithHint(wrapped, "check the service account credentials and its Batch permissions")
	}
	return wrapped
}
