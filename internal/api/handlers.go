package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jonesrussell/feedback-insight/internal/database"
	"github.com/jonesrussell/feedback-insight/internal/domain"
	"github.com/jonesrussell/feedback-insight/internal/logging"
	"github.com/jonesrussell/feedback-insight/internal/severity"
	"github.com/jonesrussell/feedback-insight/internal/telemetry"
)

const (
	maxContentLength = 10000
	dedupPrefixLen   = 200
	readyTimeout     = 2 * time.Second
	defaultPageSize  = 50
	maxPageSize      = 500
)

// FeedbackStore is the item persistence surface the handlers need.
type FeedbackStore interface {
	Create(ctx context.Context, item *domain.FeedbackItem) error
	GetByID(ctx context.Context, id string) (*domain.FeedbackItem, error)
	HasRecentDuplicate(ctx context.Context, source domain.FeedbackSource, contentPrefix string) (bool, error)
	List(ctx context.Context, f database.ItemFilter) ([]*domain.FeedbackItem, error)
	MembersFor(ctx context.Context, clusterIDs []string) (map[string][]*domain.FeedbackItem, error)
	StatsBySource(ctx context.Context) ([]database.SourceStats, error)
}

// ClusterStore is the cluster persistence surface the handlers need.
type ClusterStore interface {
	GetByID(ctx context.Context, id string) (*domain.Cluster, error)
	List(ctx context.Context, f database.ClusterFilter) ([]*domain.Cluster, error)
	UpdateStatus(ctx context.Context, id string, status domain.ClusterStatus) error
	ResetAlert(ctx context.Context, id string) error
	Stats(ctx context.Context) (*database.ClusterStats, error)
}

// AnalysisRunner triggers a synchronous analysis pass.
type AnalysisRunner interface {
	Run(ctx context.Context, skipAlerts bool) domain.AnalysisReport
}

// Pinger reports backend connectivity for the readiness probe.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler bundles the HTTP endpoints and their dependencies.
type Handler struct {
	items      FeedbackStore
	clusters   ClusterStore
	runner     AnalysisRunner
	normalizer *severity.Normalizer
	booster    *severity.Booster
	pinger     Pinger
	telemetry  *telemetry.Provider
	logger     logging.Logger
	version    string
}

// NewHandler creates the API handler set.
func NewHandler(
	items FeedbackStore,
	clusters ClusterStore,
	runner AnalysisRunner,
	pinger Pinger,
	tel *telemetry.Provider,
	logger logging.Logger,
	version string,
) *Handler {
	return &Handler{
		items:      items,
		clusters:   clusters,
		runner:     runner,
		normalizer: severity.NewNormalizer(),
		booster:    severity.NewBooster(),
		pinger:     pinger,
		telemetry:  tel,
		logger:     logger,
		version:    version,
	}
}

// IngestFeedback handles POST /api/v1/feedback. The item is stored with
// its formula-derived severity and waits for the next analysis pass.
func (h *Handler) IngestFeedback(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	if !req.Source.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown source: " + string(req.Source)})
		return
	}
	if len(req.Content) > maxContentLength {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "content exceeds maximum length"})
		return
	}

	prefix := req.Content
	if len(prefix) > dedupPrefixLen {
		prefix = prefix[:dedupPrefixLen]
	}

	dup, err := h.items.HasRecentDuplicate(c.Request.Context(), req.Source, prefix)
	if err != nil {
		h.logger.Error("duplicate check failed", logging.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to store feedback"})
		return
	}
	if dup {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "duplicate feedback within retention window"})
		return
	}

	score := h.normalizer.Normalize(req.Source, req.Metadata, severity.Context{
		PostedAt: req.Metadata.PostedAt,
		Content:  req.Content,
	})

	item := &domain.FeedbackItem{
		ID:                 uuid.NewString(),
		Source:             req.Source,
		Content:            req.Content,
		Metadata:           req.Metadata,
		NormalizedSeverity: score,
		FeedbackType:       domain.TypeUnknown,
		Status:             domain.ItemStatusPending,
	}

	if err := h.items.Create(c.Request.Context(), item); err != nil {
		h.logger.Error("failed to store feedback item",
			logging.String("source", string(req.Source)),
			logging.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to store feedback"})
		return
	}

	if h.telemetry != nil {
		h.telemetry.RecordSeverity(string(req.Source), score, h.booster.Boost(req.Content) > 0)
		if req.Metadata.PostedAt != nil {
			h.telemetry.RecordIngestLag(*req.Metadata.PostedAt)
		}
	}

	h.logger.Info("feedback ingested",
		logging.String("item_id", item.ID),
		logging.String("source", string(item.Source)),
		logging.Int("severity", score))

	c.JSON(http.StatusCreated, IngestResponse{Item: item})
}

// Analyze handles POST /api/v1/analyze, running a full pass inline.
func (h *Handler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
	}

	report := h.runner.Run(c.Request.Context(), req.SkipAlerts)
	if !report.Success {
		c.JSON(http.StatusInternalServerError, report)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListClusters handles GET /api/v1/clusters.
func (h *Handler) ListClusters(c *gin.Context) {
	filter := database.ClusterFilter{
		Status:      domain.ClusterStatus(c.Query("status")),
		Priority:    domain.Priority(c.Query("priority")),
		MinSeverity: intQuery(c, "min_severity", 0),
		Limit:       pageLimit(c),
		Offset:      intQuery(c, "offset", 0),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown status: " + string(filter.Status)})
		return
	}

	clusters, err := h.clusters.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list clusters", logging.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list clusters"})
		return
	}
	c.JSON(http.StatusOK, ClustersListResponse{Clusters: clusters, Total: len(clusters)})
}

// GetCluster handles GET /api/v1/clusters/:id, including member items.
func (h *Handler) GetCluster(c *gin.Context) {
	id := c.Param("id")

	cluster, err := h.clusters.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "cluster not found"})
			return
		}
		h.logger.Error("failed to load cluster", logging.String("cluster_id", id), logging.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load cluster"})
		return
	}

	members, err := h.items.MembersFor(c.Request.Context(), []string{id})
	if err != nil {
		h.logger.Error("failed to load cluster members", logging.String("cluster_id", id), logging.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load cluster"})
		return
	}

	items := members[id]
	if items == nil {
		items = []*domain.FeedbackItem{}
	}
	c.JSON(http.StatusOK, ClusterDetailResponse{Cluster: cluster, Items: items})
}

// UpdateClusterStatus handles PUT /api/v1/clusters/:id/status. Moving a
// cluster to resolved cascades to its member items.
func (h *Handler) UpdateClusterStatus(c *gin.Context) {
	id := c.Param("id")

	var req UpdateClusterStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown status: " + string(req.Status)})
		return
	}

	if err := h.clusters.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "cluster not found"})
			return
		}
		h.logger.Error("failed to update cluster status",
			logging.String("cluster_id", id),
			logging.String("status", string(req.Status)),
			logging.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to update cluster"})
		return
	}

	cluster, err := h.clusters.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to reload cluster", logging.String("cluster_id", id), logging.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load cluster"})
		return
	}
	c.JSON(http.StatusOK, cluster)
}

// ResetClusterAlert handles POST /api/v1/clusters/:id/reset-alert,
// re-arming the alert gate for a cluster.
func (h *Handler) ResetClusterAlert(c *gin.Context) {
	id := c.Param("id")

	if err := h.clusters.ResetAlert(c.Request.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "cluster not found"})
			return
		}
		h.logger.Error("failed to reset alert", logging.String("cluster_id", id), logging.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to reset alert"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListFeedback handles GET /api/v1/feedback.
func (h *Handler) ListFeedback(c *gin.Context) {
	filter := database.ItemFilter{
		Status:      domain.ItemStatus(c.Query("status")),
		Source:      domain.FeedbackSource(c.Query("source")),
		MinSeverity: intQuery(c, "min_severity", 0),
		ClusterID:   c.Query("cluster_id"),
		Limit:       pageLimit(c),
		Offset:      intQuery(c, "offset", 0),
	}
	if filter.Source != "" && !filter.Source.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown source: " + string(filter.Source)})
		return
	}

	items, err := h.items.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list feedback", logging.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list feedback"})
		return
	}
	c.JSON(http.StatusOK, ItemsListResponse{Items: items, Total: len(items)})
}

// GetFeedback handles GET /api/v1/feedback/:id.
func (h *Handler) GetFeedback(c *gin.Context) {
	id := c.Param("id")

	item, err := h.items.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "feedback item not found"})
			return
		}
		h.logger.Error("failed to load feedback item", logging.String("item_id", id), logging.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load feedback item"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// GetStats handles GET /api/v1/stats.
func (h *Handler) GetStats(c *gin.Context) {
	clusterStats, err := h.clusters.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load cluster stats", logging.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load stats"})
		return
	}

	sourceStats, err := h.items.StatsBySource(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load source stats", logging.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, StatsResponse{Clusters: clusterStats, Sources: sourceStats})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": h.version,
	})
}

// Ready handles GET /ready, checking database connectivity.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	if err := h.pinger.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func pageLimit(c *gin.Context) int {
	limit := intQuery(c, "limit", defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit
}
