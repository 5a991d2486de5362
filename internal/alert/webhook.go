package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonesrussell/feedback-insight/internal/domain"
	"github.com/jonesrussell/feedback-insight/internal/logging"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookNotifier delivers alerts as JSON POSTs to a configured endpoint.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier creates a webhook notifier. A zero timeout uses the
// default.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// webhookPayload is the alert body posted to the endpoint.
type webhookPayload struct {
	ClusterID         string   `json:"cluster_id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Priority          string   `json:"priority"`
	AggregateSeverity int      `json:"aggregate_severity"`
	TotalItems        int      `json:"total_items"`
	Sources           []string `json:"sources"`
	Trend             string   `json:"trend"`
}

// Notify posts the cluster alert. Any transport error or non-2xx response
// is a delivery failure; the gate leaves the cluster unmarked so the next
// run retries.
func (n *WebhookNotifier) Notify(ctx context.Context, c *domain.Cluster) error {
	payload := webhookPayload{
		ClusterID:         c.ID,
		Title:             c.Summary.Title,
		Description:       c.Summary.Description,
		Priority:          string(c.Priority),
		AggregateSeverity: c.AggregateSeverity,
		TotalItems:        c.Metrics.TotalItems,
		Sources:           c.Metrics.Sources,
		Trend:             string(c.Metrics.Trend),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("alert endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier writes alerts to the service log. Used when no webhook is
// configured so alert bookkeeping still works.
type LogNotifier struct {
	logger logging.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the alert and always succeeds.
func (n *LogNotifier) Notify(_ context.Context, c *domain.Cluster) error {
	n.logger.Warn("cluster alert",
		logging.String("cluster_id", c.ID),
		logging.String("title", c.Summary.Title),
		logging.String("priority", string(c.Priority)),
		logging.Int("aggregate_severity", c.AggregateSeverity),
		logging.Int("total_items", c.Metrics.TotalItems))
	return nil
}
