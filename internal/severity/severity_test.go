package severity_test

import (
	"testing"
	"time"

	"github.com/jonesrussell/feedback-insight/internal/domain"
	"github.com/jonesrussell/feedback-insight/internal/severity"
)

func TestNormalize_AppStoreStarMonotonicity(t *testing.T) {
	n := severity.NewNormalizer()

	expected := map[int]int{1: 95, 2: 75, 3: 50, 4: 25, 5: 10}

	prev := 101
	for stars := 1; stars <= 5; stars++ {
		meta := domain.SourceMetadata{AppStore: &domain.AppStoreMeta{StarRating: stars}}
		got := n.Normalize(domain.SourceAppStore, meta, severity.Context{})
		if got != expected[stars] {
			t.Errorf("stars=%d: got %d, want %d", stars, got, expected[stars])
		}
		if got >= prev {
			t.Errorf("stars=%d: score %d did not decrease from %d", stars, got, prev)
		}
		prev = got
	}
}

func TestNormalize_AppStoreMissingRating(t *testing.T) {
	n := severity.NewNormalizer()

	got := n.Normalize(domain.SourceAppStore, domain.SourceMetadata{}, severity.Context{})
	if got != 50 {
		t.Errorf("missing rating: got %d, want 50", got)
	}
}

func TestNormalize_PerSourceFormulas(t *testing.T) {
	n := severity.NewNormalizer()

	testCases := []struct {
		name   string
		source domain.FeedbackSource
		meta   domain.SourceMetadata
		want   int
	}{
		{
			name:   "product hunt upvotes capped",
			source: domain.SourceProductHunt,
			meta:   domain.SourceMetadata{ProductHunt: &domain.ProductHuntMeta{Upvotes: 1000}},
			want:   80, // 40 + min(800, 40)
		},
		{
			name:   "product hunt maker reply discount",
			source: domain.SourceProductHunt,
			meta:   domain.SourceMetadata{ProductHunt: &domain.ProductHuntMeta{Upvotes: 10, MakerReply: true}},
			want:   38, // 40 + 8 - 10
		},
		{
			name:   "reddit zero score",
			source: domain.SourceReddit,
			meta:   domain.SourceMetadata{Reddit: &domain.RedditMeta{}},
			want:   35, // 35 + log10(1)*8 + 0
		},
		{
			name:   "reddit comments capped",
			source: domain.SourceReddit,
			meta:   domain.SourceMetadata{Reddit: &domain.RedditMeta{Score: 99, Comments: 500}},
			want:   71, // 35 + 2*8 + min(150, 20)
		},
		{
			name:   "stack overflow accepted answer discount",
			source: domain.SourceStackOverflow,
			meta:   domain.SourceMetadata{StackOverflow: &domain.StackOverflowMeta{Score: 10, Views: 10000, AcceptedAnswer: true}},
			want:   65, // 30 + 30 + min(50, 30) - 25
		},
		{
			name:   "quora follower bonus",
			source: domain.SourceQuora,
			meta:   domain.SourceMetadata{Quora: &domain.QuoraMeta{Upvotes: 20, AuthorFollowers: 1500}},
			want:   55, // 35 + 10 + 10
		},
		{
			name:   "manual upload constant",
			source: domain.SourceManualUpload,
			meta:   domain.SourceMetadata{},
			want:   50,
		},
		{
			name:   "custom source constant",
			source: domain.SourceCustom,
			meta:   domain.SourceMetadata{},
			want:   50,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := n.Normalize(tc.source, tc.meta, severity.Context{})
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestNormalize_RecencyBoost(t *testing.T) {
	n := severity.NewNormalizer()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		postedAt time.Time
		want     int
	}{
		{"posted one hour ago", now.Add(-time.Hour), 60},
		{"posted three days ago", now.Add(-72 * time.Hour), 55},
		{"posted a month ago", now.Add(-30 * 24 * time.Hour), 50},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			posted := tc.postedAt
			got := n.Normalize(domain.SourceManualUpload, domain.SourceMetadata{}, severity.Context{
				PostedAt: &posted,
				Now:      now,
			})
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestNormalize_SentimentBoost(t *testing.T) {
	n := severity.NewNormalizer()

	negative := -1.0
	positive := 1.0

	gotNegative := n.Normalize(domain.SourceManualUpload, domain.SourceMetadata{}, severity.Context{Sentiment: &negative})
	if gotNegative != 65 { // 50 + (1 - (-1))/2 * 15
		t.Errorf("negative sentiment: got %d, want 65", gotNegative)
	}

	gotPositive := n.Normalize(domain.SourceManualUpload, domain.SourceMetadata{}, severity.Context{Sentiment: &positive})
	if gotPositive != 50 { // boost is zero at sentiment 1
		t.Errorf("positive sentiment: got %d, want 50", gotPositive)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	n := severity.NewNormalizer()

	sentiment := -0.4
	posted := time.Date(2026, 2, 28, 9, 30, 0, 0, time.UTC)
	meta := domain.SourceMetadata{Reddit: &domain.RedditMeta{Score: 42, Comments: 17, Subreddit: "bugs"}}
	sctx := severity.Context{
		Sentiment: &sentiment,
		PostedAt:  &posted,
		Content:   "app crashes with a timeout error on startup",
		Now:       posted.Add(6 * time.Hour),
	}

	first := n.Normalize(domain.SourceReddit, meta, sctx)
	for i := 0; i < 10; i++ {
		if got := n.Normalize(domain.SourceReddit, meta, sctx); got != first {
			t.Fatalf("run %d: got %d, want %d", i, got, first)
		}
	}
}

func TestNormalize_Bounds(t *testing.T) {
	n := severity.NewNormalizer()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	sentiment := -1.0
	posted := now.Add(-time.Hour)

	testCases := []struct {
		name   string
		source domain.FeedbackSource
		meta   domain.SourceMetadata
		sctx   severity.Context
	}{
		{
			name:   "everything stacked high",
			source: domain.SourceAppStore,
			meta:   domain.SourceMetadata{AppStore: &domain.AppStoreMeta{StarRating: 1}},
			sctx: severity.Context{
				Sentiment: &sentiment,
				PostedAt:  &posted,
				Content:   "fatal crash with data loss, security breach",
				Now:       now,
			},
		},
		{
			name:   "five stars nothing else",
			source: domain.SourceAppStore,
			meta:   domain.SourceMetadata{AppStore: &domain.AppStoreMeta{StarRating: 5}},
			sctx:   severity.Context{Now: now},
		},
		{
			name:   "huge reddit thread",
			source: domain.SourceReddit,
			meta:   domain.SourceMetadata{Reddit: &domain.RedditMeta{Score: 1000000, Comments: 100000, Subreddit: "bugs"}},
			sctx:   severity.Context{Now: now},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := n.Normalize(tc.source, tc.meta, tc.sctx)
			if got < 0 || got > 100 {
				t.Errorf("score %d out of [0,100]", got)
			}
		})
	}
}
