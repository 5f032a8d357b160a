package fusionbrain

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/phoenixlab/rewriter/internal/logger"
	"github.com/phoenixlab/rewriter/internal/metrics"
)

// JobStatus is the lifecycle state of a generation job. Transitions
// only move forward: submitted -> processing -> done | failed |
// timed_out.
type JobStatus string

const (
	JobSubmitted  JobStatus = "submitted"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
	JobTimedOut   JobStatus = "timed_out"
)

const (
	defaultPollDelay   = 5 * time.Second
	defaultMaxAttempts = 20
)

// Job tracks a single generation request through polling.
type Job struct {
	UUID   string
	Status JobStatus
}

// Poller waits out generation jobs and lands the produced image in the
// artifact store.
type Poller struct {
	client    *Client
	artifacts *ArtifactStore

	delay       time.Duration
	maxAttempts int
}

func NewPoller(client *Client, artifacts *ArtifactStore) *Poller {
	return &Poller{
		client:      client,
		artifacts:   artifacts,
		delay:       defaultPollDelay,
		maxAttempts: defaultMaxAttempts,
	}
}

// Generate submits a prompt and polls until the job resolves. On
// success it returns the public URL of the stored image.
func (p *Poller) Generate(ctx context.Context, prompt string) (string, error) {
	pipelineID, err := p.client.Pipeline(ctx)
	if err != nil {
		return "", err
	}

	uuid, err := p.client.Run(ctx, pipelineID, prompt)
	if err != nil {
		return "", err
	}
	job := &Job{UUID: uuid, Status: JobSubmitted}
	logger.Info("image generation submitted", "uuid", uuid)

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.delay):
		}

		status, err := p.client.Status(ctx, uuid)
		if err != nil {
			logger.Warn("generation status check failed", "uuid", uuid, "attempt", attempt, "error", err)
			continue
		}

		switch status.Status {
		case "DONE":
			job.Status = JobDone
			if len(status.Result.Files) == 0 {
				return "", fmt.Errorf("fusionbrain: job %s done without files", uuid)
			}
			data, err := base64.StdEncoding.DecodeString(status.Result.Files[0])
			if err != nil {
				return "", fmt.Errorf("fusionbrain: decode image: %w", err)
			}
			return p.artifacts.Save(data)
		case "FAIL":
			job.Status = JobFailed
			return "", fmt.Errorf("fusionbrain: generation failed: %s", status.ErrorDescription)
		case "INITIAL", "PROCESSING":
			job.Status = JobProcessing
		default:
			logger.Warn("unknown generation status", "uuid", uuid, "status", status.Status)
		}
	}

	job.Status = JobTimedOut
	metrics.Global.IncrementGenerationTimeouts()
	return "", fmt.Errorf("fusionbrain: job %s timed out after %d attempts", uuid, p.maxAttempts)
}
