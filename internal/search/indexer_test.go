package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/feedback-insight/internal/domain"
	"github.com/jonesrussell/feedback-insight/internal/logging"
)

func esTestServer(t *testing.T, handler http.HandlerFunc) *es.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := es.NewClient(es.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func sampleCluster() *domain.Cluster {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Cluster{
		ID: "c-1",
		Summary: domain.ClusterSummary{
			Title:       "Crash on login",
			Description: "App exits after tapping sign in",
		},
		Metrics: domain.ClusterMetrics{
			TotalItems:  4,
			AvgSeverity: 70,
			MaxSeverity: 100,
			Sources:     []string{"app_store", "reddit"},
			FirstSeen:   now.Add(-48 * time.Hour),
			LastSeen:    now,
			Trend:       domain.TrendRising,
		},
		AggregateSeverity: 88,
		Priority:          domain.PriorityHigh,
		Status:            domain.ClusterStatusActive,
		UpdatedAt:         now,
	}
}

func TestToDocument(t *testing.T) {
	doc := toDocument(sampleCluster())

	require.Equal(t, "c-1", doc.ID)
	require.Equal(t, "Crash on login", doc.Title)
	require.Equal(t, 88, doc.AggregateSeverity)
	require.Equal(t, "high", doc.Priority)
	require.Equal(t, "rising", doc.Trend)
	require.NotNil(t, doc.FirstSeen)
	require.NotNil(t, doc.LastSeen)
}

func TestToDocument_ZeroTimesOmitted(t *testing.T) {
	c := sampleCluster()
	c.Metrics.FirstSeen = time.Time{}
	c.Metrics.LastSeen = time.Time{}

	doc := toDocument(c)
	require.Nil(t, doc.FirstSeen)
	require.Nil(t, doc.LastSeen)
}

func TestClusterMappingJSON(t *testing.T) {
	raw, err := NewClusterMapping().GetJSON()
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &parsed))

	mappings, ok := parsed["mappings"].(map[string]any)
	require.True(t, ok)
	props, ok := mappings["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, "aggregate_severity")
	require.Contains(t, props, "priority")
	require.Contains(t, props, "alert_sent")
}

func TestIndexClusters_SendsBulkBody(t *testing.T) {
	var gotPath string
	var lines []json.RawMessage

	client := esTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		dec := json.NewDecoder(r.Body)
		for {
			var line json.RawMessage
			if err := dec.Decode(&line); err != nil {
				break
			}
			lines = append(lines, line)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
	})

	idx := NewIndexer(client, "feedback_clusters", logging.NewNop())
	err := idx.IndexClusters(context.Background(), []*domain.Cluster{sampleCluster()})
	require.NoError(t, err)

	require.Equal(t, "/_bulk", gotPath)
	require.Len(t, lines, 2) // action line plus document line

	var action struct {
		Index struct {
			Index string `json:"_index"`
			ID    string `json:"_id"`
		} `json:"index"`
	}
	require.NoError(t, json.Unmarshal(lines[0], &action))
	require.Equal(t, "feedback_clusters", action.Index.Index)
	require.Equal(t, "c-1", action.Index.ID)
}

func TestIndexClusters_EmptyIsNoop(t *testing.T) {
	called := false
	client := esTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	idx := NewIndexer(client, "feedback_clusters", logging.NewNop())
	require.NoError(t, idx.IndexClusters(context.Background(), nil))
	require.False(t, called)
}

func TestEnsureIndex_SkipsExisting(t *testing.T) {
	var methods []string
	client := esTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.WriteHeader(http.StatusOK)
	})

	idx := NewIndexer(client, "feedback_clusters", logging.NewNop())
	require.NoError(t, idx.EnsureIndex(context.Background()))
	require.Equal(t, []string{http.MethodHead}, methods)
}

func TestEnsureIndex_CreatesMissing(t *testing.T) {
	client := esTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/feedback_clusters", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	})

	idx := NewIndexer(client, "feedback_clusters", logging.NewNop())
	require.NoError(t, idx.EnsureIndex(context.Background()))
}
