package cluster

import (
	"sort"

	"github.com/jonesrussell/feedback-insight/internal/domain"
)

const (
	// minTrendSample is the smallest membership worth a trend call; below
	// it the existing trend value is left unchanged.
	minTrendSample = 5

	// trendBand is the hysteresis band around zero that reads as stable,
	// so noisy small samples do not flap between rising and declining.
	trendBand = 10.0
)

// UpdateTrend recomputes a cluster's directional trend from its member
// history and stores it on the cluster. It returns the resulting trend,
// which is the prior value when the sample is too small.
func UpdateTrend(c *domain.Cluster, members []*domain.FeedbackItem) domain.Trend {
	if len(members) < minTrendSample {
		return c.Metrics.Trend
	}

	sorted := make([]*domain.FeedbackItem, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	// The older half absorbs the remainder on odd counts.
	half := len(sorted) / 2
	recentMean := meanSeverity(sorted[:half])
	olderMean := meanSeverity(sorted[half:])

	diff := recentMean - olderMean
	switch {
	case diff > trendBand:
		c.Metrics.Trend = domain.TrendRising
	case diff < -trendBand:
		c.Metrics.Trend = domain.TrendDeclining
	default:
		c.Metrics.Trend = domain.TrendStable
	}
	return c.Metrics.Trend
}

func meanSeverity(items []*domain.FeedbackItem) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := 0
	for _, item := range items {
		sum += item.NormalizedSeverity
	}
	return float64(sum) / float64(len(items))
}
