package domain

import (
	"time"

	"github.com/lib/pq"
)

// ClusterStatus tracks a cluster through triage.
// active is initial; resolved, wont_fix and rejected are terminal for the
// automated pipeline.
type ClusterStatus string

const (
	ClusterStatusActive     ClusterStatus = "active"
	ClusterStatusReviewed   ClusterStatus = "reviewed"
	ClusterStatusInProgress ClusterStatus = "in_progress"
	ClusterStatusResolved   ClusterStatus = "resolved"
	ClusterStatusWontFix    ClusterStatus = "wont_fix"
	ClusterStatusRejected   ClusterStatus = "rejected"
)

// Valid reports whether the status is a known enumeration value.
func (s ClusterStatus) Valid() bool {
	switch s {
	case ClusterStatusActive, ClusterStatusReviewed, ClusterStatusInProgress,
		ClusterStatusResolved, ClusterStatusWontFix, ClusterStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether automated processing should skip the cluster.
func (s ClusterStatus) Terminal() bool {
	switch s {
	case ClusterStatusResolved, ClusterStatusWontFix, ClusterStatusRejected:
		return true
	}
	return false
}

// Priority is the four-level bucket derived from aggregate severity.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Aggregate severity thresholds, inclusive lower bounds checked in
// descending order.
const (
	criticalThreshold = 90
	highThreshold     = 75
	mediumThreshold   = 50
)

// PriorityFor maps an aggregate severity to its priority bucket.
func PriorityFor(aggregateSeverity int) Priority {
	switch {
	case aggregateSeverity >= criticalThreshold:
		return PriorityCritical
	case aggregateSeverity >= highThreshold:
		return PriorityHigh
	case aggregateSeverity >= mediumThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Trend is the directional classification of a cluster's recent severity
// trajectory.
type Trend string

const (
	TrendRising    Trend = "rising"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// ClusterMetrics are the aggregates recomputed from cluster membership.
type ClusterMetrics struct {
	TotalItems  int            `db:"total_items"  json:"total_items"`
	AvgSeverity int            `db:"avg_severity" json:"avg_severity"`
	MaxSeverity int            `db:"max_severity" json:"max_severity"`
	Sources     pq.StringArray `db:"sources"      json:"sources"`
	FirstSeen   time.Time      `db:"first_seen"   json:"first_seen"`
	LastSeen    time.Time      `db:"last_seen"    json:"last_seen"`
	Trend       Trend          `db:"trend"        json:"trend"`
}

// ClusterSummary is the human-readable description of the grouped issue.
type ClusterSummary struct {
	Title        string `db:"title"         json:"title"`
	Description  string `db:"description"   json:"description"`
	RootCause    string `db:"root_cause"    json:"root_cause,omitempty"`
	SuggestedFix string `db:"suggested_fix" json:"suggested_fix,omitempty"`
	AffectedArea string `db:"affected_area" json:"affected_area,omitempty"`
}

// Cluster groups related feedback items into one actionable issue.
// AggregateSeverity and Priority are derived from Metrics and must never be
// set directly; RecomputeMetrics in the cluster package keeps them
// consistent after any membership change.
type Cluster struct {
	ID                string         `db:"id" json:"id"`
	Summary           ClusterSummary `json:"summary"`
	Metrics           ClusterMetrics `json:"metrics"`
	AggregateSeverity int            `db:"aggregate_severity" json:"aggregate_severity"` // 0-100, derived
	Priority          Priority       `db:"priority"           json:"priority"`
	Status            ClusterStatus  `db:"status"             json:"status"`
	ItemIDs           pq.StringArray `db:"item_ids"           json:"feedback_items"`
	AlertSent         bool           `db:"alert_sent"         json:"alert_sent"`
	AlertSentAt       *time.Time     `db:"alert_sent_at"      json:"alert_sent_at,omitempty"`
	CreatedAt         time.Time      `db:"created_at"         json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"         json:"updated_at"`
}
