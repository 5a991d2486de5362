package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/feedback-insight/internal/database"
	"github.com/jonesrussell/feedback-insight/internal/domain"
	"github.com/jonesrussell/feedback-insight/internal/logging"
)

type fakeItems struct {
	created   []*domain.FeedbackItem
	byID      map[string]*domain.FeedbackItem
	members   map[string][]*domain.FeedbackItem
	listed    []*domain.FeedbackItem
	stats     []database.SourceStats
	duplicate bool
	createErr error
}

func (f *fakeItems) Create(_ context.Context, item *domain.FeedbackItem) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, item)
	return nil
}

func (f *fakeItems) GetByID(_ context.Context, id string) (*domain.FeedbackItem, error) {
	item, ok := f.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return item, nil
}

func (f *fakeItems) HasRecentDuplicate(_ context.Context, _ domain.FeedbackSource, _ string) (bool, error) {
	return f.duplicate, nil
}

func (f *fakeItems) List(_ context.Context, _ database.ItemFilter) ([]*domain.FeedbackItem, error) {
	return f.listed, nil
}

func (f *fakeItems) MembersFor(_ context.Context, _ []string) (map[string][]*domain.FeedbackItem, error) {
	return f.members, nil
}

func (f *fakeItems) StatsBySource(_ context.Context) ([]database.SourceStats, error) {
	return f.stats, nil
}

type fakeClusters struct {
	byID      map[string]*domain.Cluster
	listed    []*domain.Cluster
	stats     *database.ClusterStats
	updateErr error
	updated   map[string]domain.ClusterStatus
	resets    []string
}

func (f *fakeClusters) GetByID(_ context.Context, id string) (*domain.Cluster, error) {
	cluster, ok := f.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cluster, nil
}

func (f *fakeClusters) List(_ context.Context, _ database.ClusterFilter) ([]*domain.Cluster, error) {
	return f.listed, nil
}

func (f *fakeClusters) UpdateStatus(_ context.Context, id string, status domain.ClusterStatus) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.byID[id]; !ok {
		return database.ErrNotFound
	}
	if f.updated == nil {
		f.updated = make(map[string]domain.ClusterStatus)
	}
	f.updated[id] = status
	return nil
}

func (f *fakeClusters) ResetAlert(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return database.ErrNotFound
	}
	f.resets = append(f.resets, id)
	return nil
}

func (f *fakeClusters) Stats(_ context.Context) (*database.ClusterStats, error) {
	return f.stats, nil
}

type fakeRunner struct {
	report     domain.AnalysisReport
	skipAlerts bool
	calls      int
}

func (f *fakeRunner) Run(_ context.Context, skipAlerts bool) domain.AnalysisReport {
	f.calls++
	f.skipAlerts = skipAlerts
	return f.report
}

type fakePinger struct {
	err error
}

func (f *fakePinger) PingContext(_ context.Context) error {
	return f.err
}

func newTestRouter(items *fakeItems, clusters *fakeClusters, runner *fakeRunner, pinger *fakePinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(items, clusters, runner, pinger, nil, logging.NewNop(), "test")
	router := gin.New()
	SetupRoutes(router, handler)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIngestFeedback(t *testing.T) {
	items := &fakeItems{}
	router := newTestRouter(items, &fakeClusters{}, &fakeRunner{}, &fakePinger{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/feedback", IngestRequest{
		Source:  domain.SourceAppStore,
		Content: "one star, the new update made everything worse",
		Metadata: domain.SourceMetadata{
			AppStore: &domain.AppStoreMeta{StarRating: 1},
		},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, items.created, 1)

	item := items.created[0]
	require.NotEmpty(t, item.ID)
	require.Equal(t, domain.SourceAppStore, item.Source)
	require.Equal(t, domain.ItemStatusPending, item.Status)
	require.Equal(t, 95, item.NormalizedSeverity)

	var resp IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, item.ID, resp.Item.ID)
}

func TestIngestFeedback_UnknownSource(t *testing.T) {
	router := newTestRouter(&fakeItems{}, &fakeClusters{}, &fakeRunner{}, &fakePinger{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/feedback", IngestRequest{
		Source:  "carrier_pigeon",
		Content: "something broke",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestFeedback_MissingContent(t *testing.T) {
	router := newTestRouter(&fakeItems{}, &fakeClusters{}, &fakeRunner{}, &fakePinger{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/feedback", IngestRequest{
		Source: domain.SourceReddit,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestFeedback_Duplicate(t *testing.T) {
	items := &fakeItems{duplicate: true}
	router := newTestRouter(items, &fakeClusters{}, &fakeRunner{}, &fakePinger{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/feedback", IngestRequest{
		Source:  domain.SourceReddit,
		Content: "the app crashed again",
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Empty(t, items.created)
}

func TestAnalyze(t *testing.T) {
	runner := &fakeRunner{report: domain.AnalysisReport{Success: true, ItemsClassified: 3}}
	router := newTestRouter(&fakeItems{}, &fakeClusters{}, runner, &fakePinger{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/analyze", AnalyzeRequest{SkipAlerts: true})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, runner.calls)
	require.True(t, runner.skipAlerts)

	var report domain.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, 3, report.ItemsClassified)
}

func TestAnalyze_FetchFailure(t *testing.T) {
	runner := &fakeRunner{report: domain.AnalysisReport{
		Success: false,
		Errors:  []string{"fetch pending items: connection refused"},
	}}
	router := newTestRouter(&fakeItems{}, &fakeClusters{}, runner, &fakePinger{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/analyze", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListClusters(t *testing.T) {
	clusters := &fakeClusters{listed: []*domain.Cluster{
		{ID: "c1", Priority: domain.PriorityCritical},
		{ID: "c2", Priority: domain.PriorityHigh},
	}}
	router := newTestRouter(&fakeItems{}, clusters, &fakeRunner{}, &fakePinger{})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/clusters?priority=critical&min_severity=50", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ClustersListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Total)
}

func TestListClusters_BadStatus(t *testing.T) {
	router := newTestRouter(&fakeItems{}, &fakeClusters{}, &fakeRunner{}, &fakePinger{})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/clusters?status=bogus", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCluster(t *testing.T) {
	cluster := &domain.Cluster{ID: "c1", AggregateSeverity: 88}
	items := &fakeItems{members: map[string][]*domain.FeedbackItem{
		"c1": {{ID: "i1"}, {ID: "i2"}},
	}}
	clusters := &fakeClusters{byID: map[string]*domain.Cluster{"c1": cluster}}
	router := newTestRouter(items, clusters, &fakeRunner{}, &fakePinger{})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/clusters/c1", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ClusterDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "c1", resp.Cluster.ID)
	require.Len(t, resp.Items, 2)
}

func TestGetCluster_NotFound(t *testing.T) {
	router := newTestRouter(&fakeItems{}, &fakeClusters{}, &fakeRunner{}, &fakePinger{})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/clusters/missing", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateClusterStatus(t *testing.T) {
	cluster := &domain.Cluster{ID: "c1", Status: domain.ClusterStatusActive}
	clusters := &fakeClusters{byID: map[string]*domain.Cluster{"c1": cluster}}
	router := newTestRouter(&fakeItems{}, clusters, &fakeRunner{}, &fakePinger{})

	rec := doJSON(t, router, http.MethodPut, "/api/v1/clusters/c1/status",
		UpdateClusterStatusRequest{Status: domain.ClusterStatusResolved})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.ClusterStatusResolved, clusters.updated["c1"])
}

func TestUpdateClusterStatus_InvalidStatus(t *testing.T) {
	router := newTestRouter(&fakeItems{}, &fakeClusters{}, &fakeRunner{}, &fakePinger{})

	rec := doJSON(t, router, http.MethodPut, "/api/v1/clusters/c1/status",
		UpdateClusterStatusRequest{Status: "escalated_to_mars"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetClusterAlert(t *testing.T) {
	clusters := &fakeClusters{byID: map[string]*domain.Cluster{"c1": {ID: "c1"}}}
	router := newTestRouter(&fakeItems{}, clusters, &fakeRunner{}, &fakePinger{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/clusters/c1/reset-alert", nil)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []string{"c1"}, clusters.resets)
}

func TestGetFeedback_NotFound(t *testing.T) {
	router := newTestRouter(&fakeItems{byID: map[string]*domain.FeedbackItem{}}, &fakeClusters{}, &fakeRunner{}, &fakePinger{})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/feedback/missing", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStats(t *testing.T) {
	items := &fakeItems{stats: []database.SourceStats{
		{Source: domain.SourceReddit, Total: 10, AvgSeverity: 42.5},
	}}
	clusters := &fakeClusters{stats: &database.ClusterStats{Total: 4, Active: 3}}
	router := newTestRouter(items, clusters, &fakeRunner{}, &fakePinger{})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/stats", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 4, resp.Clusters.Total)
	require.Len(t, resp.Sources, 1)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeItems{}, &fakeClusters{}, &fakeRunner{}, &fakePinger{})

	rec := doJSON(t, router, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReady_DatabaseDown(t *testing.T) {
	pinger := &fakePinger{err: errors.New("connection refused")}
	router := newTestRouter(&fakeItems{}, &fakeClusters{}, &fakeRunner{}, pinger)

	rec := doJSON(t, router, http.MethodGet, "/ready", nil)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
