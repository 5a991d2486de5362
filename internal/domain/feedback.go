// Package domain holds the core data model for the feedback insight engine.
package domain

import (
	"time"

	"github.com/lib/pq"
)

// FeedbackSource identifies where a piece of feedback was ingested from.
type FeedbackSource string

const (
	SourceAppStore      FeedbackSource = "app_store"
	SourceProductHunt   FeedbackSource = "product_hunt"
	SourceReddit        FeedbackSource = "reddit"
	SourceQuora         FeedbackSource = "quora"
	SourceStackOverflow FeedbackSource = "stack_overflow"
	SourceManualUpload  FeedbackSource = "manual_upload"
	SourceCustom        FeedbackSource = "custom"
)

// Valid reports whether the source is one of the known enumeration values.
func (s FeedbackSource) Valid() bool {
	switch s {
	case SourceAppStore, SourceProductHunt, SourceReddit, SourceQuora,
		SourceStackOverflow, SourceManualUpload, SourceCustom:
		return true
	}
	return false
}

// FeedbackType is the classified category of a feedback item.
type FeedbackType string

const (
	TypeBug            FeedbackType = "bug"
	TypeFeatureRequest FeedbackType = "feature_request"
	TypeComplaint      FeedbackType = "complaint"
	TypePraise         FeedbackType = "praise"
	TypeQuestion       FeedbackType = "question"
	TypeUnknown        FeedbackType = "unknown"
)

// Valid reports whether the type is a known enumeration value.
func (t FeedbackType) Valid() bool {
	switch t {
	case TypeBug, TypeFeatureRequest, TypeComplaint, TypePraise, TypeQuestion, TypeUnknown:
		return true
	}
	return false
}

// ItemStatus tracks a feedback item through the analysis lifecycle.
// pending -> clustered -> resolved; ignored is an absorbing alternate
// terminal state.
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusClustered ItemStatus = "clustered"
	ItemStatusResolved  ItemStatus = "resolved"
	ItemStatusIgnored   ItemStatus = "ignored"
)

// Terminal reports whether the status permits no further transitions.
func (s ItemStatus) Terminal() bool {
	return s == ItemStatusResolved || s == ItemStatusIgnored
}

// SourceMetadata is the per-source signal bag attached to a feedback item.
// Only the variant matching the item's Source is populated; the scoring
// formulas switch on the source so unused variants stay nil.
type SourceMetadata struct {
	AppStore      *AppStoreMeta      `db:"-" json:"app_store,omitempty"`
	ProductHunt   *ProductHuntMeta   `db:"-" json:"product_hunt,omitempty"`
	Reddit        *RedditMeta        `db:"-" json:"reddit,omitempty"`
	StackOverflow *StackOverflowMeta `db:"-" json:"stack_overflow,omitempty"`
	Quora         *QuoraMeta         `db:"-" json:"quora,omitempty"`

	PostedAt *time.Time     `db:"-" json:"posted_at,omitempty"`
	Extra    map[string]any `db:"-" json:"extra,omitempty"`
}

// AppStoreMeta carries app store review signals.
type AppStoreMeta struct {
	StarRating int `json:"star_rating"` // 1-5, 0 means absent
}

// ProductHuntMeta carries Product Hunt post signals.
type ProductHuntMeta struct {
	Upvotes    int  `json:"upvotes"`
	MakerReply bool `json:"maker_reply"`
}

// RedditMeta carries Reddit post signals.
type RedditMeta struct {
	Score     int    `json:"score"`
	Comments  int    `json:"comments"`
	Subreddit string `json:"subreddit,omitempty"`
}

// StackOverflowMeta carries Stack Overflow question signals.
type StackOverflowMeta struct {
	Score          int  `json:"score"`
	Views          int  `json:"views"`
	AcceptedAnswer bool `json:"accepted_answer"`
}

// QuoraMeta carries Quora answer/question signals.
type QuoraMeta struct {
	Upvotes         int `json:"upvotes"`
	AuthorFollowers int `json:"author_followers"`
}

// FeedbackItem is one atomic piece of ingested feedback.
type FeedbackItem struct {
	ID                 string         `db:"id"                  json:"id"`
	Source             FeedbackSource `db:"source"              json:"source"`
	Content            string         `db:"content"             json:"content"`
	Metadata           SourceMetadata `db:"-"                   json:"source_metadata"`
	NormalizedSeverity int            `db:"normalized_severity" json:"normalized_severity"` // 0-100
	FeedbackType       FeedbackType   `db:"feedback_type"       json:"feedback_type"`
	Status             ItemStatus     `db:"status"              json:"status"`
	SentimentScore     *float64       `db:"sentiment_score"     json:"sentiment_score,omitempty"` // -1..1, classifier-set
	Keywords           pq.StringArray `db:"keywords"            json:"keywords"`
	ClusterID          *string        `db:"cluster_id"          json:"cluster_id,omitempty"`
	CreatedAt          time.Time      `db:"created_at"          json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"          json:"updated_at"`
}

// MergeKeywords unions newly classified keywords into the item's keyword
// set, dropping duplicates. Order is not significant.
func (f *FeedbackItem) MergeKeywords(extra []string) {
	seen := make(map[string]bool, len(f.Keywords)+len(extra))
	for _, kw := range f.Keywords {
		seen[kw] = true
	}
	for _, kw := range extra {
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		f.Keywords = append(f.Keywords, kw)
	}
}
