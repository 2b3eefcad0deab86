package core

import "context"

// JobDispatcher accepts review events and queues them for asynchronous
// processing. It decouples the webhook handler from job execution and
// provides backpressure when the queue is full. Stop drains the queue and
// waits for in-flight jobs before returning.
type JobDispatcher interface {
	Dispatch(ctx context.Context, event *ReviewEvent) error
	Stop()
}

// Job is a single executable unit of work triggered by a ReviewEvent.
type Job interface {
	Run(ctx context.Context, event *ReviewEvent) error
}
