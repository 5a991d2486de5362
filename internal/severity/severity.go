package severity

import (
	"math"
	"time"

	"github.com/jonesrussell/feedback-insight/internal/domain"
)

// Score bounds and shared base values.
const (
	minScore = 0
	maxScore = 100

	defaultBase = 50
)

// subredditBoosts multiplies the reddit base score for communities where a
// complaint carries more signal than the raw vote count suggests.
var subredditBoosts = map[string]float64{
	"bugs":           1.3,
	"techsupport":    1.2,
	"sysadmin":       1.15,
	"webdev":         1.1,
	"programming":    1.05,
	"softwaregore":   1.2,
	"crashreporting": 1.3,
}

// Context carries the optional cross-source inputs to Normalize. Sentiment
// is only available after classification, so ingestion-time calls leave it
// nil.
type Context struct {
	Sentiment *float64 // -1..1
	PostedAt  *time.Time
	Content   string
	Now       time.Time // zero means time.Now()
}

// Normalizer computes the unified 0-100 severity score. It holds only the
// keyword matcher, so a single instance is safe for concurrent use.
type Normalizer struct {
	booster *Booster
}

// NewNormalizer builds a normalizer with the fixed keyword table.
func NewNormalizer() *Normalizer {
	return &Normalizer{booster: NewBooster()}
}

// Normalize maps source-specific signals onto the unified scale. It is
// referentially transparent: identical inputs always produce the same
// integer.
func (n *Normalizer) Normalize(source domain.FeedbackSource, meta domain.SourceMetadata, sctx Context) int {
	score := baseScore(source, meta)

	now := sctx.Now
	if now.IsZero() {
		now = time.Now()
	}
	postedAt := sctx.PostedAt
	if postedAt == nil {
		postedAt = meta.PostedAt
	}
	score += recencyBoost(postedAt, now)

	if sctx.Sentiment != nil {
		// Negative sentiment pushes the score up, positive pulls it down.
		score += (1 - *sctx.Sentiment) / 2 * 15
	}

	score += float64(n.booster.Boost(sctx.Content))

	return clamp(int(math.Round(score)))
}

// baseScore selects the per-source formula.
func baseScore(source domain.FeedbackSource, meta domain.SourceMetadata) float64 {
	switch source {
	case domain.SourceAppStore:
		return appStoreBase(meta.AppStore)
	case domain.SourceProductHunt:
		return productHuntBase(meta.ProductHunt)
	case domain.SourceReddit:
		return redditBase(meta.Reddit)
	case domain.SourceStackOverflow:
		return stackOverflowBase(meta.StackOverflow)
	case domain.SourceQuora:
		return quoraBase(meta.Quora)
	default:
		// manual_upload, custom, or anything unrecognized.
		return defaultBase
	}
}

// appStoreBase: low star ratings are acute complaints.
func appStoreBase(m *domain.AppStoreMeta) float64 {
	if m == nil {
		return defaultBase
	}
	switch m.StarRating {
	case 1:
		return 95
	case 2:
		return 75
	case 3:
		return 50
	case 4:
		return 25
	case 5:
		return 10
	default:
		return defaultBase
	}
}

func productHuntBase(m *domain.ProductHuntMeta) float64 {
	if m == nil {
		return defaultBase
	}
	score := 40 + math.Min(float64(m.Upvotes)*0.8, 40)
	if m.MakerReply {
		score -= 10
	}
	return score
}

func redditBase(m *domain.RedditMeta) float64 {
	if m == nil {
		return defaultBase
	}
	score := 35 + math.Log10(float64(m.Score)+1)*8 + math.Min(float64(m.Comments)*0.3, 20)
	if boost, ok := subredditBoosts[m.Subreddit]; ok {
		score *= boost
	}
	return score
}

func stackOverflowBase(m *domain.StackOverflowMeta) float64 {
	if m == nil {
		return defaultBase
	}
	score := 30 + float64(m.Score)*3 + math.Min(float64(m.Views)*0.005, 30)
	if m.AcceptedAnswer {
		score -= 25
	}
	return score
}

func quoraBase(m *domain.QuoraMeta) float64 {
	if m == nil {
		return defaultBase
	}
	score := 35 + math.Min(float64(m.Upvotes)*0.5, 35)
	if m.AuthorFollowers >= 1000 {
		score += 10
	}
	return score
}

func recencyBoost(postedAt *time.Time, now time.Time) float64 {
	if postedAt == nil {
		return 0
	}
	age := now.Sub(*postedAt)
	switch {
	case age <= 24*time.Hour:
		return 10
	case age <= 7*24*time.Hour:
		return 5
	default:
		return 0
	}
}

func clamp(v int) int {
	if v < minScore {
		return minScore
	}
	if v > maxScore {
		return maxScore
	}
	return v
}
