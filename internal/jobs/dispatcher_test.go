package jobs

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecoach/codecoach/internal/core"
)

type countingJob struct {
	mu     sync.Mutex
	events []*core.ReviewEvent
}

func (j *countingJob) Run(_ context.Context, event *core.ReviewEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherProcessesQueuedEvents(t *testing.T) {
	job := &countingJob{}
	d := NewDispatcher(job, 3, discardLogger())

	for i := range 10 {
		err := d.Dispatch(context.Background(), &core.ReviewEvent{
			Kind:         core.EventPullRequestOpened,
			RepoOwner:    "octo",
			RepoName:     "demo",
			RepoFullName: "octo/demo",
			PRNumber:     i + 1,
		})
		require.NoError(t, err)
	}

	// Stop drains the queue and waits for the workers
	d.Stop()

	job.mu.Lock()
	defer job.mu.Unlock()
	assert.Len(t, job.events, 10)
}

func TestDispatcherDefaultsToOneWorker(t *testing.T) {
	job := &countingJob{}
	d := NewDispatcher(job, 0, discardLogger())

	require.NoError(t, d.Dispatch(context.Background(), &core.ReviewEvent{
		Kind: core.EventPullRequestOpened, RepoOwner: "octo", RepoName: "demo", PRNumber: 1,
	}))
	d.Stop()

	assert.Len(t, job.events, 1)
}

func TestValidateEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   *core.ReviewEvent
		wantErr bool
	}{
		{
			name:    "nil event",
			event:   nil,
			wantErr: true,
		},
		{
			name:  "ignored event passes",
			event: &core.ReviewEvent{Kind: core.EventIgnored},
		},
		{
			name: "valid opened event",
			event: &core.ReviewEvent{
				Kind: core.EventPullRequestOpened, RepoOwner: "octo", RepoName: "demo", PRNumber: 7,
			},
		},
		{
			name: "missing owner",
			event: &core.ReviewEvent{
				Kind: core.EventPullRequestOpened, RepoName: "demo", PRNumber: 7,
			},
			wantErr: true,
		},
		{
			name: "non-positive PR number",
			event: &core.ReviewEvent{
				Kind: core.EventPullRequestOpened, RepoOwner: "octo", RepoName: "demo",
			},
			wantErr: true,
		},
		{
			name: "comment event without comment ID",
			event: &core.ReviewEvent{
				Kind: core.EventCommentCreated, RepoOwner: "octo", RepoName: "demo", PRNumber: 7,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEvent(tt.event)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
