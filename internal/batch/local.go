package batch

import (
	"bytes"
	"context"
	"os/exec"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"scrape-portal/internal/logger"
)

// Local runs each job's container command as a host process instead of on a
// batch service. The image and machine type are ignored; the entrypoint is
// resolved on PATH and executed with the job's commands as arguments inside
// Workdir. It is meant for development against a checkout of the scraper.
type Local struct {
	*Memory
	Workdir string

	// ctx is the parent of every job process; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Service = (*Local)(nil)

func NewLocal(workdir string) *Local {
	ctx, cancel := context.WithCancel(context.Background())
	return &Local{
		Memory:  NewMemory("local", "local"),
		Workdir: workdir,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// CreateJob records the job and starts it in the background. The process is
// killed once MaxRunDuration elapses or Close is called.
func (l *Local) CreateJob(ctx context.Context, jobID string, spec *JobSpec) (string, error) {
	name, err := l.Memory.CreateJob(ctx, jobID, spec)
	if err != nil {
		return "", err
	}

	stored, _ := l.Spec(name)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.run(name, stored)
	}()
	return name, nil
}

func (l *Local) run(name string, spec *JobSpec) {
	log := logger.Logger.With(zap.String("job", name))

	ctx, cancel := context.WithTimeout(l.ctx, spec.MaxRunDuration)
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.Entrypoint, spec.Commands...)
	cmd.Dir = l.Workdir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	l.SetState(name, StateRunning)
	log.Infow("Local job started", "entrypoint", spec.Entrypoint, "args", spec.Commands)

	if err := cmd.Run(); err != nil {
		if errors.Is(l.ctx.Err(), context.Canceled) {
			l.SetState(name, StateCancelled)
			log.Infow("Local job cancelled")
			return
		}
		l.SetState(name, StateFailed)
		log.Warnw("Local job failed", "error", err, "stderr", stderr.String())
		return
	}

	l.SetState(name, StateSucceeded)
	log.Infow("Local job succeeded", "stdout_bytes", stdout.Len())
}

// Wait blocks until every started job has exited.
func (l *Local) Wait() {
	l.wg.Wait()
}

// Close kills running jobs and waits for them to exit. Callers that want the
// jobs to finish call Wait first.
func (l *Local) Close() error {
	l.cancel()
	l.wg.Wait()
	return nil
}
