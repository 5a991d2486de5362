// Package cluster groups classified feedback items into actionable issue
// clusters and keeps their aggregate metrics consistent with membership.
package cluster

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/feedback-insight/internal/domain"
	"github.com/jonesrussell/feedback-insight/internal/logging"
)

const (
	// Aggregate severity weights: the worst single report dominates so one
	// severe outlier elevates priority even in a large, otherwise mild
	// cluster.
	avgWeight = 0.4
	maxWeight = 0.6

	maxDescriptionChars = 500

	placeholderAnalysis = "Pending analysis"
)

// Assembler turns classified items into clusters.
type Assembler struct {
	grouper Grouper
	logger  logging.Logger
	now     func() time.Time
}

// NewAssembler creates an assembler. A nil grouper degrades to one cluster
// per item.
func NewAssembler(grouper Grouper, logger logging.Logger) *Assembler {
	if grouper == nil {
		grouper = OnePerItem{}
	}
	return &Assembler{grouper: grouper, logger: logger, now: time.Now}
}

// Result reports what one Assemble pass did. Touched is the deduplicated
// set of clusters whose membership changed, including the created ones.
type Result struct {
	Created []*domain.Cluster
	Touched []*domain.Cluster
}

// Assemble assigns each qualifying item to a cluster, creating clusters as
// needed, and recomputes metrics for every touched cluster. Items already
// clustered or in a terminal status are skipped, which makes repeated runs
// over the same inputs safe. Summaries come from the classification pass;
// an item without one gets a source-derived title.
func (a *Assembler) Assemble(items []*domain.FeedbackItem, existing []*domain.Cluster, members map[string][]*domain.FeedbackItem, summaries map[string]string) Result {
	var res Result
	if members == nil {
		members = make(map[string][]*domain.FeedbackItem)
	}

	candidates := make([]*domain.Cluster, len(existing))
	copy(candidates, existing)
	byID := make(map[string]*domain.Cluster, len(existing))
	for _, c := range existing {
		byID[c.ID] = c
	}

	touched := make(map[string]*domain.Cluster)
	for _, item := range items {
		if item.Status != domain.ItemStatusPending {
			continue
		}

		targetID := a.grouper.Assign(item, candidates, members)
		var target *domain.Cluster
		if targetID != "" {
			target = byID[targetID]
		}
		if target == nil {
			target = a.newCluster(item, summaries[item.ID])
			candidates = append(candidates, target)
			byID[target.ID] = target
			res.Created = append(res.Created, target)
		} else {
			target.ItemIDs = append(target.ItemIDs, item.ID)
		}

		item.Status = domain.ItemStatusClustered
		id := target.ID
		item.ClusterID = &id
		members[target.ID] = append(members[target.ID], item)
		touched[target.ID] = target
	}

	for _, c := range touched {
		RecomputeMetrics(c, members[c.ID])
		res.Touched = append(res.Touched, c)
	}

	if a.logger != nil {
		a.logger.Info("cluster assembly complete",
			logging.Int("clusters_created", len(res.Created)),
			logging.Int("clusters_touched", len(res.Touched)))
	}
	return res
}

func (a *Assembler) newCluster(item *domain.FeedbackItem, summary string) *domain.Cluster {
	title := summary
	if title == "" {
		title = fmt.Sprintf("Issue reported via %s", item.Source)
	}
	now := a.now()
	return &domain.Cluster{
		ID: uuid.NewString(),
		Summary: domain.ClusterSummary{
			Title:        title,
			Description:  truncate(item.Content, maxDescriptionChars),
			RootCause:    placeholderAnalysis,
			SuggestedFix: placeholderAnalysis,
		},
		Status:    domain.ClusterStatusActive,
		ItemIDs:   []string{item.ID},
		AlertSent: false,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RecomputeMetrics rebuilds a cluster's aggregates from its current
// members. It is idempotent: two passes over unchanged membership yield
// identical metrics. Member ids without a loaded item are excluded from
// aggregation rather than aborting the recompute.
func RecomputeMetrics(c *domain.Cluster, members []*domain.FeedbackItem) {
	if len(members) == 0 {
		c.Metrics.TotalItems = 0
		c.AggregateSeverity = 0
		c.Priority = domain.PriorityFor(0)
		return
	}

	var (
		sum       int
		maxSev    int
		sources   = make(map[string]bool)
		firstSeen = members[0].CreatedAt
		lastSeen  = members[0].CreatedAt
	)
	for _, m := range members {
		sum += m.NormalizedSeverity
		if m.NormalizedSeverity > maxSev {
			maxSev = m.NormalizedSeverity
		}
		sources[string(m.Source)] = true
		if m.CreatedAt.Before(firstSeen) {
			firstSeen = m.CreatedAt
		}
		if m.CreatedAt.After(lastSeen) {
			lastSeen = m.CreatedAt
		}
	}

	avg := float64(sum) / float64(len(members))

	c.Metrics.TotalItems = len(members)
	c.Metrics.AvgSeverity = int(math.Round(avg))
	c.Metrics.MaxSeverity = maxSev
	c.Metrics.Sources = sortedKeys(sources)
	c.Metrics.FirstSeen = firstSeen
	c.Metrics.LastSeen = lastSeen

	c.AggregateSeverity = int(math.Round(avg*avgWeight + float64(maxSev)*maxWeight))
	c.Priority = domain.PriorityFor(c.AggregateSeverity)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
