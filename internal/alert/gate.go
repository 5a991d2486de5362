// Package alert decides when a cluster is severe enough to notify a human
// and guarantees each cluster alerts at most once.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/feedback-insight/internal/domain"
	"github.com/jonesrussell/feedback-insight/internal/logging"
)

// Notifier delivers one alert for a cluster. Formatting and transport are
// the collaborator's concern; the gate only cares about the outcome.
type Notifier interface {
	Notify(ctx context.Context, cluster *domain.Cluster) error
}

// Gate applies the threshold and the exactly-once guard.
type Gate struct {
	notifier Notifier
	logger   logging.Logger
	now      func() time.Time
}

// NewGate creates an alert gate.
func NewGate(notifier Notifier, logger logging.Logger) *Gate {
	return &Gate{notifier: notifier, logger: logger, now: time.Now}
}

// MaybeAlert fires a notification when the cluster's aggregate severity
// meets the threshold and no alert has been sent yet. Delivery failure
// leaves the cluster unchanged so a later run retries; success marks the
// cluster exactly once.
func (g *Gate) MaybeAlert(ctx context.Context, cluster *domain.Cluster, threshold int) (bool, error) {
	if cluster.AlertSent {
		return false, nil
	}
	if cluster.AggregateSeverity < threshold {
		return false, nil
	}

	if err := g.notifier.Notify(ctx, cluster); err != nil {
		g.logger.Warn("alert delivery failed, will retry next run",
			logging.String("cluster_id", cluster.ID),
			logging.Int("aggregate_severity", cluster.AggregateSeverity),
			logging.Error(err))
		return false, fmt.Errorf("deliver alert for cluster %s: %w", cluster.ID, err)
	}

	now := g.now()
	cluster.AlertSent = true
	cluster.AlertSentAt = &now

	g.logger.Info("alert sent",
		logging.String("cluster_id", cluster.ID),
		logging.String("priority", string(cluster.Priority)),
		logging.Int("aggregate_severity", cluster.AggregateSeverity))
	return true, nil
}
