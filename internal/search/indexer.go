package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/feedback-insight/internal/domain"
	"github.com/jonesrussell/feedback-insight/internal/logging"
)

// Indexer writes cluster snapshots into the search index.
type Indexer struct {
	client *es.Client
	index  string
	logger logging.Logger
}

// NewIndexer creates an indexer for the given index name.
func NewIndexer(client *es.Client, index string, logger logging.Logger) *Indexer {
	return &Indexer{client: client, index: index, logger: logger}
}

// clusterDocument is the flattened search projection of a cluster.
type clusterDocument struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	RootCause    string `json:"root_cause,omitempty"`
	SuggestedFix string `json:"suggested_fix,omitempty"`
	AffectedArea string `json:"affected_area,omitempty"`

	TotalItems  int        `json:"total_items"`
	AvgSeverity int        `json:"avg_severity"`
	MaxSeverity int        `json:"max_severity"`
	Sources     []string   `json:"sources"`
	FirstSeen   *time.Time `json:"first_seen,omitempty"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
	Trend       string     `json:"trend"`

	AggregateSeverity int       `json:"aggregate_severity"`
	Priority          string    `json:"priority"`
	Status            string    `json:"status"`
	AlertSent         bool      `json:"alert_sent"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toDocument(c *domain.Cluster) clusterDocument {
	doc := clusterDocument{
		ID:                c.ID,
		Title:             c.Summary.Title,
		Description:       c.Summary.Description,
		RootCause:         c.Summary.RootCause,
		SuggestedFix:      c.Summary.SuggestedFix,
		AffectedArea:      c.Summary.AffectedArea,
		TotalItems:        c.Metrics.TotalItems,
		AvgSeverity:       c.Metrics.AvgSeverity,
		MaxSeverity:       c.Metrics.MaxSeverity,
		Sources:           c.Metrics.Sources,
		Trend:             string(c.Metrics.Trend),
		AggregateSeverity: c.AggregateSeverity,
		Priority:          string(c.Priority),
		Status:            string(c.Status),
		AlertSent:         c.AlertSent,
		UpdatedAt:         c.UpdatedAt,
	}
	if !c.Metrics.FirstSeen.IsZero() {
		first := c.Metrics.FirstSeen
		doc.FirstSeen = &first
	}
	if !c.Metrics.LastSeen.IsZero() {
		last := c.Metrics.LastSeen
		doc.LastSeen = &last
	}
	return doc
}

// EnsureIndex creates the cluster index with its mapping if it does not
// exist yet.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists(
		[]string{i.index},
		i.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping, err := NewClusterMapping().GetJSON()
	if err != nil {
		return fmt.Errorf("failed to build mapping: %w", err)
	}

	createRes, err := i.client.Indices.Create(
		i.index,
		i.client.Indices.Create.WithContext(ctx),
		i.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("error creating index: %s", createRes.String())
	}

	i.logger.Info("search index created", logging.String("index", i.index))
	return nil
}

// IndexClusters bulk-indexes cluster snapshots, overwriting earlier
// versions of the same cluster.
func (i *Indexer) IndexClusters(ctx context.Context, clusters []*domain.Cluster) error {
	if len(clusters) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, c := range clusters {
		meta := map[string]any{
			"index": map[string]any{
				"_index": i.index,
				"_id":    c.ID,
			},
		}

		if err := json.NewEncoder(&buf).Encode(meta); err != nil {
			return fmt.Errorf("failed to encode meta: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(toDocument(c)); err != nil {
			return fmt.Errorf("failed to encode cluster %s: %w", c.ID, err)
		}
	}

	res, err := i.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		i.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk indexing error: %s", res.String())
	}

	i.logger.Debug("clusters indexed", logging.Int("count", len(clusters)))
	return nil
}
