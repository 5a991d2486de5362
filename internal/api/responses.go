package api

import (
	"github.com/jonesrussell/feedback-insight/internal/database"
	"github.com/jonesrussell/feedback-insight/internal/domain"
)

// IngestRequest is the body of POST /api/v1/feedback.
type IngestRequest struct {
	Source   domain.FeedbackSource `json:"source"  binding:"required"`
	Content  string                `json:"content" binding:"required"`
	Metadata domain.SourceMetadata `json:"source_metadata"`
}

// IngestResponse returns the stored item with its ingestion-time severity.
type IngestResponse struct {
	Item *domain.FeedbackItem `json:"item"`
}

// AnalyzeRequest is the optional body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	SkipAlerts bool `json:"skip_alerts"`
}

// ClustersListResponse is a filtered page of clusters.
type ClustersListResponse struct {
	Clusters []*domain.Cluster `json:"clusters"`
	Total    int               `json:"total"`
}

// ClusterDetailResponse is one cluster with its member items.
type ClusterDetailResponse struct {
	Cluster *domain.Cluster        `json:"cluster"`
	Items   []*domain.FeedbackItem `json:"items"`
}

// ItemsListResponse is a filtered page of feedback items.
type ItemsListResponse struct {
	Items []*domain.FeedbackItem `json:"items"`
	Total int                    `json:"total"`
}

// UpdateClusterStatusRequest is the body of PUT /api/v1/clusters/:id/status.
type UpdateClusterStatusRequest struct {
	Status domain.ClusterStatus `json:"status" binding:"required"`
}

// StatsResponse is the dashboard rollup.
type StatsResponse struct {
	Clusters *database.ClusterStats `json:"clusters"`
	Sources  []database.SourceStats `json:"sources"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
