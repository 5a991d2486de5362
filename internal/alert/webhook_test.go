package alert_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/feedback-insight/internal/alert"
	"github.com/jonesrussell/feedback-insight/internal/domain"
	"github.com/jonesrussell/feedback-insight/internal/logging"
)

func webhookCluster() *domain.Cluster {
	return &domain.Cluster{
		ID: "c-1",
		Summary: domain.ClusterSummary{
			Title:       "Crash on login",
			Description: "App exits after sign in",
		},
		Metrics: domain.ClusterMetrics{
			TotalItems: 3,
			Sources:    []string{"app_store"},
			Trend:      domain.TrendRising,
		},
		AggregateSeverity: 92,
		Priority:          domain.PriorityCritical,
	}
}

func TestWebhookNotifier_PostsPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := alert.NewWebhookNotifier(srv.URL, 0)
	require.NoError(t, n.Notify(context.Background(), webhookCluster()))

	require.Equal(t, "c-1", got["cluster_id"])
	require.Equal(t, "critical", got["priority"])
	require.Equal(t, float64(92), got["aggregate_severity"])
}

func TestWebhookNotifier_ServerErrorIsDeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := alert.NewWebhookNotifier(srv.URL, 0)
	err := n.Notify(context.Background(), webhookCluster())
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}

func TestWebhookNotifier_UnreachableEndpoint(t *testing.T) {
	n := alert.NewWebhookNotifier("http://127.0.0.1:1", 0)
	require.Error(t, n.Notify(context.Background(), webhookCluster()))
}

func TestLogNotifier_AlwaysSucceeds(t *testing.T) {
	n := alert.NewLogNotifier(logging.NewNop())
	require.NoError(t, n.Notify(context.Background(), webhookCluster()))
}
