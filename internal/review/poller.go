package review

import (
	"context"
	"log/slog"
	"time"
)

// Poller periodically runs the reconciliation sweep. It is the safety net
// that catches triggers created while webhook delivery was down.
type Poller struct {
	orchestrator *Orchestrator
	interval     time.Duration
	logger       *slog.Logger
	done         chan struct{}
}

// NewPoller creates a poller. An interval of zero disables it; Start then
// returns immediately.
func NewPoller(orchestrator *Orchestrator, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		orchestrator: orchestrator,
		interval:     interval,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is canceled. It blocks and is
// meant to be launched in its own goroutine.
func (p *Poller) Start(ctx context.Context) {
	defer close(p.done)

	if p.interval <= 0 {
		p.logger.Info("polling disabled")
		return
	}

	p.logger.Info("starting reconciliation poller", "interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("reconciliation poller stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if err := p.orchestrator.CheckExistingPullRequests(ctx); err != nil {
				p.logger.Error("reconciliation sweep failed", "error", err)
				continue
			}
			p.logger.Info("reconciliation sweep completed", "duration", time.Since(start))
		}
	}
}

// Wait blocks until the poll loop has exited.
func (p *Poller) Wait() {
	<-p.done
}
