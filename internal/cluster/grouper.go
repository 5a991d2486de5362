package cluster

import (
	"github.com/jonesrussell/feedback-insight/internal/domain"
)

// Grouper decides which existing cluster, if any, a freshly classified
// item belongs to. Returning an empty id means a new cluster should be
// created for the item.
type Grouper interface {
	Assign(item *domain.FeedbackItem, candidates []*domain.Cluster, members map[string][]*domain.FeedbackItem) string
}

// OnePerItem never groups: every item becomes its own cluster. This is the
// minimum guaranteed behavior and a useful baseline for comparing groupers.
type OnePerItem struct{}

// Assign always requests a new cluster.
func (OnePerItem) Assign(*domain.FeedbackItem, []*domain.Cluster, map[string][]*domain.FeedbackItem) string {
	return ""
}

// KeywordGrouper assigns an item to the active cluster whose member
// keywords overlap the item's keywords most, provided the Jaccard
// similarity clears the threshold. Items without keywords always start
// their own cluster.
type KeywordGrouper struct {
	Threshold float64
}

// defaultSimilarityThreshold keeps grouping conservative: only clearly
// related items share a cluster, everything borderline stays separate and
// remains triageable on its own.
const defaultSimilarityThreshold = 0.5

// NewKeywordGrouper builds a grouper with the default threshold when t is
// not in (0,1].
func NewKeywordGrouper(t float64) *KeywordGrouper {
	if t <= 0 || t > 1 {
		t = defaultSimilarityThreshold
	}
	return &KeywordGrouper{Threshold: t}
}

// Assign scans candidates and picks the best keyword match.
func (g *KeywordGrouper) Assign(item *domain.FeedbackItem, candidates []*domain.Cluster, members map[string][]*domain.FeedbackItem) string {
	if len(item.Keywords) == 0 {
		return ""
	}

	itemSet := toSet(item.Keywords)

	bestID := ""
	bestScore := g.Threshold
	for _, cand := range candidates {
		if cand.Status.Terminal() {
			continue
		}
		clusterSet := make(map[string]bool)
		for _, member := range members[cand.ID] {
			for _, kw := range member.Keywords {
				clusterSet[kw] = true
			}
		}
		if score := jaccard(itemSet, clusterSet); score >= bestScore {
			bestScore = score
			bestID = cand.ID
		}
	}
	return bestID
}

func toSet(vals []string) map[string]bool {
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for v := range a {
		if b[v] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
