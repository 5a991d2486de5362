package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/feedback-insight/internal/domain"
)

const clusterColumns = `id, title, description, root_cause, suggested_fix, affected_area,
       total_items, avg_severity, max_severity, sources, first_seen, last_seen, trend,
       aggregate_severity, priority, status, item_ids, alert_sent, alert_sent_at,
       created_at, updated_at`

// ClusterRepository handles database operations for clusters.
type ClusterRepository struct {
	db    *sqlx.DB
	items *FeedbackRepository
}

// NewClusterRepository creates a new cluster repository. The feedback
// repository is needed for the resolved-status cascade.
func NewClusterRepository(db *sqlx.DB, items *FeedbackRepository) *ClusterRepository {
	return &ClusterRepository{db: db, items: items}
}

// ActiveClusters returns all clusters in a non-terminal status.
func (r *ClusterRepository) ActiveClusters(ctx context.Context) ([]*domain.Cluster, error) {
	query := `
		SELECT ` + clusterColumns + `
		FROM clusters
		WHERE status NOT IN ($1, $2, $3)
		ORDER BY aggregate_severity DESC
	`

	return r.queryClusters(ctx, query,
		domain.ClusterStatusResolved, domain.ClusterStatusWontFix, domain.ClusterStatusRejected)
}

// ClusterMembers loads member items for the given clusters.
func (r *ClusterRepository) ClusterMembers(ctx context.Context, clusterIDs []string) (map[string][]*domain.FeedbackItem, error) {
	return r.items.MembersFor(ctx, clusterIDs)
}

// GetByID retrieves a cluster by its id.
func (r *ClusterRepository) GetByID(ctx context.Context, id string) (*domain.Cluster, error) {
	query := `SELECT ` + clusterColumns + ` FROM clusters WHERE id = $1`

	c, err := scanCluster(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cluster %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cluster: %w", err)
	}
	return c, nil
}

// SaveClusters upserts created and updated clusters in one transaction.
func (r *ClusterRepository) SaveClusters(ctx context.Context, clusters []*domain.Cluster) error {
	if len(clusters) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save clusters: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO clusters (id, title, description, root_cause, suggested_fix, affected_area,
		                      total_items, avg_severity, max_severity, sources, first_seen, last_seen,
		                      trend, aggregate_severity, priority, status, item_ids, alert_sent, alert_sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			root_cause = EXCLUDED.root_cause,
			suggested_fix = EXCLUDED.suggested_fix,
			affected_area = EXCLUDED.affected_area,
			total_items = EXCLUDED.total_items,
			avg_severity = EXCLUDED.avg_severity,
			max_severity = EXCLUDED.max_severity,
			sources = EXCLUDED.sources,
			first_seen = EXCLUDED.first_seen,
			last_seen = EXCLUDED.last_seen,
			trend = EXCLUDED.trend,
			aggregate_severity = EXCLUDED.aggregate_severity,
			priority = EXCLUDED.priority,
			item_ids = EXCLUDED.item_ids,
			alert_sent = EXCLUDED.alert_sent,
			alert_sent_at = EXCLUDED.alert_sent_at,
			updated_at = NOW()
	`

	for _, c := range clusters {
		if _, err = tx.ExecContext(
			ctx,
			query,
			c.ID,
			c.Summary.Title,
			c.Summary.Description,
			c.Summary.RootCause,
			c.Summary.SuggestedFix,
			c.Summary.AffectedArea,
			c.Metrics.TotalItems,
			c.Metrics.AvgSeverity,
			c.Metrics.MaxSeverity,
			pq.Array(c.Metrics.Sources),
			c.Metrics.FirstSeen,
			c.Metrics.LastSeen,
			c.Metrics.Trend,
			c.AggregateSeverity,
			c.Priority,
			c.Status,
			pq.Array(c.ItemIDs),
			c.AlertSent,
			c.AlertSentAt,
		); err != nil {
			return fmt.Errorf("failed to save cluster %s: %w", c.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save clusters: %w", err)
	}
	return nil
}

// ClusterFilter narrows List results. Zero values mean no constraint.
type ClusterFilter struct {
	Status      domain.ClusterStatus
	Priority    domain.Priority
	MinSeverity int
	Limit       int
	Offset      int
}

// List retrieves clusters with optional filtering, most severe first.
func (r *ClusterRepository) List(ctx context.Context, f ClusterFilter) ([]*domain.Cluster, error) {
	query := `SELECT ` + clusterColumns + ` FROM clusters`

	var clauses []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Priority != "" {
		add("priority = $%d", f.Priority)
	}
	if f.MinSeverity > 0 {
		add("aggregate_severity >= $%d", f.MinSeverity)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY aggregate_severity DESC, created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return r.queryClusters(ctx, query, args...)
}

// UpdateStatus transitions a cluster to a new status. Moving to resolved
// cascades the resolved status down to member items in the same
// transaction.
func (r *ClusterRepository) UpdateStatus(ctx context.Context, id string, status domain.ClusterStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE clusters SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("failed to update cluster status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cluster %s: %w", id, ErrNotFound)
	}

	if status == domain.ClusterStatusResolved {
		if err = r.items.ResolveByCluster(ctx, tx, id); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit status update: %w", err)
	}
	return nil
}

// ResetAlert clears the alert guard so the next run may re-fire, used
// after an operator confirms a regression.
func (r *ClusterRepository) ResetAlert(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clusters SET alert_sent = FALSE, alert_sent_at = NULL, updated_at = NOW() WHERE id = $1`,
		id)
	if err != nil {
		return fmt.Errorf("failed to reset alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cluster %s: %w", id, ErrNotFound)
	}
	return nil
}

// ClusterStats is the dashboard-level rollup of the cluster table.
type ClusterStats struct {
	Total      int `db:"total"       json:"total"`
	Active     int `db:"active"      json:"active"`
	Critical   int `db:"critical"    json:"critical"`
	AlertsSent int `db:"alerts_sent" json:"alerts_sent"`
	Resolved   int `db:"resolved"    json:"resolved"`
}

// Stats aggregates cluster counts for the stats endpoint.
func (r *ClusterRepository) Stats(ctx context.Context) (*ClusterStats, error) {
	query := `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE status NOT IN ('resolved', 'wont_fix', 'rejected')) AS active,
		       COUNT(*) FILTER (WHERE priority = 'critical') AS critical,
		       COUNT(*) FILTER (WHERE alert_sent) AS alerts_sent,
		       COUNT(*) FILTER (WHERE status = 'resolved') AS resolved
		FROM clusters
	`

	var stats ClusterStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to load cluster stats: %w", err)
	}
	return &stats, nil
}

func scanCluster(row rowScanner) (*domain.Cluster, error) {
	var c domain.Cluster

	err := row.Scan(
		&c.ID,
		&c.Summary.Title,
		&c.Summary.Description,
		&c.Summary.RootCause,
		&c.Summary.SuggestedFix,
		&c.Summary.AffectedArea,
		&c.Metrics.TotalItems,
		&c.Metrics.AvgSeverity,
		&c.Metrics.MaxSeverity,
		pq.Array(&c.Metrics.Sources),
		&c.Metrics.FirstSeen,
		&c.Metrics.LastSeen,
		&c.Metrics.Trend,
		&c.AggregateSeverity,
		&c.Priority,
		&c.Status,
		pq.Array(&c.ItemIDs),
		&c.AlertSent,
		&c.AlertSentAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClusterRepository) queryClusters(ctx context.Context, query string, args ...any) ([]*domain.Cluster, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clusters: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var clusters []*domain.Cluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cluster: %w", err)
		}
		clusters = append(clusters, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clusters: %w", err)
	}
	return clusters, nil
}
