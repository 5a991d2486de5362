package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/jonesrussell/feedback-insight/internal/logging"
)

const defaultPollInterval = 5 * time.Minute

// Poller triggers an analysis run on a fixed interval. Runs never
// overlap: each tick executes synchronously inside the loop goroutine.
type Poller struct {
	pipeline *Pipeline
	logger   logging.Logger

	pollInterval time.Duration
	running      bool
	stopChan     chan struct{}
}

// PollerConfig holds poller configuration
type PollerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" env:"PIPELINE_POLL_INTERVAL"`
}

// NewPoller creates a poller around a pipeline.
func NewPoller(p *Pipeline, logger logging.Logger, cfg PollerConfig) *Poller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Poller{
		pipeline:     p,
		logger:       logger,
		pollInterval: cfg.PollInterval,
		stopChan:     make(chan struct{}),
	}
}

// Start launches the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	if p.running {
		return errors.New("poller is already running")
	}

	p.running = true
	p.logger.Info("poller starting",
		logging.String("poll_interval", p.pollInterval.String()))

	go p.run(ctx)
	return nil
}

// Stop stops the poller.
func (p *Poller) Stop() {
	if !p.running {
		return
	}

	p.logger.Info("poller stopping")
	close(p.stopChan)
	p.running = false
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// Analyze immediately on start
	p.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped due to context cancellation")
			return
		case <-p.stopChan:
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	report := p.pipeline.Run(ctx, false)
	if !report.Success {
		p.logger.Error("scheduled analysis run failed",
			logging.Strings("errors", report.Errors))
	}
}

// IsRunning returns whether the poller is currently running.
func (p *Poller) IsRunning() bool {
	return p.running
}

// Stats returns poller statistics for the health surface.
func (p *Poller) Stats() map[string]any {
	return map[string]any{
		"running":       p.running,
		"poll_interval": p.pollInterval.String(),
	}
}
