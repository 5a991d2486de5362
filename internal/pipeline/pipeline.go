// Package pipeline orchestrates one analysis run over pending feedback:
// fetch, classify, cluster, trend, alert, report. Stage failures after the
// fetch are recorded and do not abort the run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/feedback-insight/internal/alert"
	"github.com/jonesrussell/feedback-insight/internal/classifier"
	"github.com/jonesrussell/feedback-insight/internal/cluster"
	"github.com/jonesrussell/feedback-insight/internal/domain"
	"github.com/jonesrussell/feedback-insight/internal/logging"
	"github.com/jonesrussell/feedback-insight/internal/telemetry"
)

const (
	defaultBatchLimit     = 100
	defaultAlertThreshold = 90
)

// ItemStore is the persistence contract for feedback items.
type ItemStore interface {
	// FetchPending returns up to limit items with status pending,
	// oldest first.
	FetchPending(ctx context.Context, limit int) ([]*domain.FeedbackItem, error)

	// SaveItems persists classification and clustering mutations.
	SaveItems(ctx context.Context, items []*domain.FeedbackItem) error
}

// ClusterStore is the persistence contract for clusters.
type ClusterStore interface {
	// ActiveClusters returns clusters in a non-terminal status.
	ActiveClusters(ctx context.Context) ([]*domain.Cluster, error)

	// ClusterMembers loads the member items for the given clusters,
	// keyed by cluster id. Missing members are simply absent.
	ClusterMembers(ctx context.Context, clusterIDs []string) (map[string][]*domain.FeedbackItem, error)

	// SaveClusters persists created and updated clusters.
	SaveClusters(ctx context.Context, clusters []*domain.Cluster) error
}

// Indexer pushes touched clusters into the search read model. Optional;
// a nil indexer disables indexing.
type Indexer interface {
	IndexClusters(ctx context.Context, clusters []*domain.Cluster) error
}

// Config holds pipeline tuning knobs.
type Config struct {
	// BatchLimit caps how many pending items one run fetches.
	BatchLimit int `yaml:"batch_limit" env:"PIPELINE_BATCH_LIMIT"`

	// AlertThreshold is the minimum aggregate severity that fires an
	// alert.
	AlertThreshold int `yaml:"alert_threshold" env:"PIPELINE_ALERT_THRESHOLD"`
}

func (c Config) withDefaults() Config {
	if c.BatchLimit <= 0 {
		c.BatchLimit = defaultBatchLimit
	}
	if c.AlertThreshold <= 0 {
		c.AlertThreshold = defaultAlertThreshold
	}
	return c
}

// Pipeline wires the analysis stages together. It performs no locking;
// callers serialize runs.
type Pipeline struct {
	items      ItemStore
	clusters   ClusterStore
	classifier *classifier.Classifier
	assembler  *cluster.Assembler
	gate       *alert.Gate
	indexer    Indexer
	telemetry  *telemetry.Provider
	logger     logging.Logger
	cfg        Config
}

// New creates a pipeline. indexer and telemetry may be nil.
func New(
	items ItemStore,
	clusters ClusterStore,
	cls *classifier.Classifier,
	asm *cluster.Assembler,
	gate *alert.Gate,
	indexer Indexer,
	tel *telemetry.Provider,
	logger logging.Logger,
	cfg Config,
) *Pipeline {
	return &Pipeline{
		items:      items,
		clusters:   clusters,
		classifier: cls,
		assembler:  asm,
		gate:       gate,
		indexer:    indexer,
		telemetry:  tel,
		logger:     logger,
		cfg:        cfg.withDefaults(),
	}
}

// Run executes one analysis pass. Success is false only when fetching
// pending items fails before any work starts; every later failure is
// accumulated into the report's Errors with Success left true. Repeated
// runs over the same data are safe: already-clustered items are skipped
// and alerted clusters never re-fire.
func (p *Pipeline) Run(ctx context.Context, skipAlerts bool) domain.AnalysisReport {
	report := domain.AnalysisReport{StartedAt: time.Now()}

	items, err := p.items.FetchPending(ctx, p.cfg.BatchLimit)
	if err != nil {
		report.Success = false
		report.Errors = append(report.Errors, fmt.Sprintf("fetch pending items: %v", err))
		report.FinishedAt = time.Now()
		p.recordRun(report)
		p.logger.Error("analysis run aborted", logging.Error(err))
		return report
	}

	report.Success = true
	if p.telemetry != nil {
		p.telemetry.SetPendingBacklog(len(items))
	}

	if len(items) == 0 {
		p.logger.Debug("no pending feedback")
	} else {
		p.logger.Info("analysis run started",
			logging.Int("pending_items", len(items)),
			logging.Bool("skip_alerts", skipAlerts))
	}

	out := p.classifier.ClassifyAll(ctx, items)
	report.ItemsClassified = out.Classified
	report.Errors = append(report.Errors, out.Errors...)
	p.recordClassified(items, len(out.Errors))

	// The cluster and alert stages run even on an empty backlog so a
	// cluster whose alert delivery failed last run gets retried.
	changed := p.clusterStage(ctx, items, out.Summaries, skipAlerts, &report)

	p.persist(ctx, items, changed, &report)

	report.FinishedAt = time.Now()
	p.recordRun(report)
	p.logger.Info("analysis run finished",
		logging.Int("items_classified", report.ItemsClassified),
		logging.Int("clusters_created", report.ClustersCreated),
		logging.Int("alerts_sent", report.AlertsSent),
		logging.Int("errors", len(report.Errors)))
	return report
}

// clusterStage groups classified items, refreshes trends, and runs the
// alert gate. Returns the clusters whose state changed and must be
// persisted.
func (p *Pipeline) clusterStage(
	ctx context.Context,
	items []*domain.FeedbackItem,
	summaries map[string]string,
	skipAlerts bool,
	report *domain.AnalysisReport,
) []*domain.Cluster {
	existing, err := p.clusters.ActiveClusters(ctx)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("load active clusters: %v", err))
		return nil
	}

	ids := make([]string, len(existing))
	for i, c := range existing {
		ids[i] = c.ID
	}
	members, err := p.clusters.ClusterMembers(ctx, ids)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("load cluster members: %v", err))
		members = make(map[string][]*domain.FeedbackItem)
	}

	res := p.assembler.Assemble(items, existing, members, summaries)
	report.ClustersCreated = len(res.Created)
	if p.telemetry != nil {
		p.telemetry.RecordAssembly(len(res.Created), len(res.Touched))
	}

	for _, c := range res.Touched {
		trend := cluster.UpdateTrend(c, members[c.ID])
		if p.telemetry != nil {
			p.telemetry.RecordClusterState(string(c.Priority), c.AggregateSeverity, string(trend))
		}
	}

	changed := make(map[string]*domain.Cluster, len(res.Touched))
	for _, c := range res.Touched {
		changed[c.ID] = c
	}
	if !skipAlerts {
		for _, c := range p.alertStage(ctx, existing, res.Created, report) {
			changed[c.ID] = c
		}
	}

	out := make([]*domain.Cluster, 0, len(changed))
	for _, c := range changed {
		out = append(out, c)
	}
	return out
}

// alertStage evaluates the gate over every live cluster, not only those
// touched this run, so a delivery that failed last run is retried.
// Returns the clusters that alerted.
func (p *Pipeline) alertStage(ctx context.Context, existing, created []*domain.Cluster, report *domain.AnalysisReport) []*domain.Cluster {
	candidates := make([]*domain.Cluster, 0, len(existing)+len(created))
	candidates = append(candidates, existing...)
	candidates = append(candidates, created...)

	var alerted []*domain.Cluster
	for _, c := range candidates {
		if c.Status.Terminal() {
			continue
		}
		sent, err := p.gate.MaybeAlert(ctx, c, p.cfg.AlertThreshold)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
		}
		if sent {
			report.AlertsSent++
			alerted = append(alerted, c)
		}
		if p.telemetry != nil {
			p.telemetry.RecordAlert(sent, err != nil)
		}
	}
	return alerted
}

func (p *Pipeline) persist(ctx context.Context, items []*domain.FeedbackItem, touched []*domain.Cluster, report *domain.AnalysisReport) {
	if len(items) > 0 {
		if err := p.items.SaveItems(ctx, items); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("save items: %v", err))
		}
	}
	if len(touched) == 0 {
		return
	}
	if err := p.clusters.SaveClusters(ctx, touched); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("save clusters: %v", err))
	}
	if p.indexer != nil {
		if err := p.indexer.IndexClusters(ctx, touched); err != nil {
			// The search read model lags until the next run; the database
			// stays authoritative.
			p.logger.Warn("cluster indexing failed", logging.Error(err))
			report.Errors = append(report.Errors, fmt.Sprintf("index clusters: %v", err))
		}
	}
}

// recordClassified emits per-item classification metrics. An item touched
// by a successful batch has a sentiment score set, including fallbacks.
func (p *Pipeline) recordClassified(items []*domain.FeedbackItem, failedBatches int) {
	if p.telemetry == nil {
		return
	}
	for _, item := range items {
		if item.SentimentScore != nil {
			p.telemetry.RecordClassified(string(item.Source), string(item.FeedbackType))
		}
	}
	for i := 0; i < failedBatches; i++ {
		p.telemetry.RecordClassificationFailure()
	}
}

func (p *Pipeline) recordRun(report domain.AnalysisReport) {
	if p.telemetry == nil {
		return
	}
	p.telemetry.RecordRun(report.Success, report.FinishedAt.Sub(report.StartedAt))
}
