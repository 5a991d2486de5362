package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/feedback-insight/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const feedbackColumns = `id, source, content, metadata, normalized_severity,
       feedback_type, status, sentiment_score, keywords, cluster_id,
       created_at, updated_at`

// FeedbackRepository handles database operations for feedback items.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository creates a new feedback repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts a new feedback item.
func (r *FeedbackRepository) Create(ctx context.Context, item *domain.FeedbackItem) error {
	meta, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	query := `
		INSERT INTO feedback_items (id, source, content, metadata, normalized_severity,
		                            feedback_type, status, sentiment_score, keywords, cluster_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRowContext(
		ctx,
		query,
		item.ID,
		item.Source,
		item.Content,
		meta,
		item.NormalizedSeverity,
		item.FeedbackType,
		item.Status,
		item.SentimentScore,
		pq.Array(item.Keywords),
		item.ClusterID,
	).Scan(&item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create feedback item: %w", err)
	}

	return nil
}

// GetByID retrieves a feedback item by its id.
func (r *FeedbackRepository) GetByID(ctx context.Context, id string) (*domain.FeedbackItem, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback_items WHERE id = $1`

	item, err := scanFeedbackItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("feedback item %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get feedback item: %w", err)
	}
	return item, nil
}

// FetchPending returns up to limit pending items, oldest first.
func (r *FeedbackRepository) FetchPending(ctx context.Context, limit int) ([]*domain.FeedbackItem, error) {
	query := `
		SELECT ` + feedbackColumns + `
		FROM feedback_items
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	return r.queryItems(ctx, query, domain.ItemStatusPending, limit)
}

// SaveItems persists classification and clustering mutations for a batch
// of items in one transaction.
func (r *FeedbackRepository) SaveItems(ctx context.Context, items []*domain.FeedbackItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save items: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE feedback_items
		SET normalized_severity = $1, feedback_type = $2, status = $3,
		    sentiment_score = $4, keywords = $5, cluster_id = $6, updated_at = NOW()
		WHERE id = $7
	`

	for _, item := range items {
		if _, err = tx.ExecContext(
			ctx,
			query,
			item.NormalizedSeverity,
			item.FeedbackType,
			item.Status,
			item.SentimentScore,
			pq.Array(item.Keywords),
			item.ClusterID,
			item.ID,
		); err != nil {
			return fmt.Errorf("failed to save feedback item %s: %w", item.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save items: %w", err)
	}
	return nil
}

// HasRecentDuplicate reports whether an item from the same source already
// exists whose content starts with the given prefix. Used by ingestion to
// drop exact resubmissions.
func (r *FeedbackRepository) HasRecentDuplicate(ctx context.Context, source domain.FeedbackSource, contentPrefix string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM feedback_items
			WHERE source = $1 AND left(content, $2) = $3
			  AND created_at > NOW() - INTERVAL '7 days'
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, source, len(contentPrefix), contentPrefix).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check duplicates: %w", err)
	}
	return exists, nil
}

// ItemFilter narrows List results. Zero values mean no constraint.
type ItemFilter struct {
	Status      domain.ItemStatus
	Source      domain.FeedbackSource
	MinSeverity int
	ClusterID   string
	Limit       int
	Offset      int
}

// List retrieves feedback items with optional filtering, most severe
// first.
func (r *FeedbackRepository) List(ctx context.Context, f ItemFilter) ([]*domain.FeedbackItem, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback_items`

	var clauses []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Source != "" {
		add("source = $%d", f.Source)
	}
	if f.MinSeverity > 0 {
		add("normalized_severity >= $%d", f.MinSeverity)
	}
	if f.ClusterID != "" {
		add("cluster_id = $%d", f.ClusterID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY normalized_severity DESC, created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return r.queryItems(ctx, query, args...)
}

// MembersFor loads the member items of the given clusters, keyed by
// cluster id.
func (r *FeedbackRepository) MembersFor(ctx context.Context, clusterIDs []string) (map[string][]*domain.FeedbackItem, error) {
	members := make(map[string][]*domain.FeedbackItem, len(clusterIDs))
	if len(clusterIDs) == 0 {
		return members, nil
	}

	query := `
		SELECT ` + feedbackColumns + `
		FROM feedback_items
		WHERE cluster_id = ANY($1)
		ORDER BY created_at ASC
	`

	items, err := r.queryItems(ctx, query, pq.Array(clusterIDs))
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.ClusterID != nil {
			members[*item.ClusterID] = append(members[*item.ClusterID], item)
		}
	}
	return members, nil
}

// ResolveByCluster cascades a cluster resolution down to its member
// items, skipping items already in a terminal status.
func (r *FeedbackRepository) ResolveByCluster(ctx context.Context, tx *sqlx.Tx, clusterID string) error {
	query := `
		UPDATE feedback_items
		SET status = $1, updated_at = NOW()
		WHERE cluster_id = $2 AND status NOT IN ($3, $4)
	`

	if _, err := tx.ExecContext(ctx, query,
		domain.ItemStatusResolved, clusterID,
		domain.ItemStatusResolved, domain.ItemStatusIgnored,
	); err != nil {
		return fmt.Errorf("failed to resolve cluster members: %w", err)
	}
	return nil
}

// SourceStats is one row of the per-source ingestion breakdown.
type SourceStats struct {
	Source      domain.FeedbackSource `db:"source"       json:"source"`
	Total       int                   `db:"total"        json:"total"`
	AvgSeverity float64               `db:"avg_severity" json:"avg_severity"`
	Pending     int                   `db:"pending"      json:"pending"`
}

// StatsBySource aggregates item counts and severities per source.
func (r *FeedbackRepository) StatsBySource(ctx context.Context) ([]SourceStats, error) {
	query := `
		SELECT source,
		       COUNT(*) AS total,
		       COALESCE(AVG(normalized_severity), 0) AS avg_severity,
		       COUNT(*) FILTER (WHERE status = 'pending') AS pending
		FROM feedback_items
		GROUP BY source
		ORDER BY total DESC
	`

	var stats []SourceStats
	if err := r.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to load source stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedbackItem(row rowScanner) (*domain.FeedbackItem, error) {
	var item domain.FeedbackItem
	var meta []byte

	err := row.Scan(
		&item.ID,
		&item.Source,
		&item.Content,
		&meta,
		&item.NormalizedSeverity,
		&item.FeedbackType,
		&item.Status,
		&item.SentimentScore,
		pq.Array(&item.Keywords),
		&item.ClusterID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &item.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", item.ID, err)
		}
	}
	return &item, nil
}

func (r *FeedbackRepository) queryItems(ctx context.Context, query string, args ...any) ([]*domain.FeedbackItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback items: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var items []*domain.FeedbackItem
	for rows.Next() {
		item, err := scanFeedbackItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback item: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback items: %w", err)
	}
	return items, nil
}
