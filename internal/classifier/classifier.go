// Package classifier blends model-driven classification into the
// heuristic severity scores carried by pending feedback items.
package classifier

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/feedback-insight/internal/domain"
	"github.com/jonesrussell/feedback-insight/internal/llm"
	"github.com/jonesrussell/feedback-insight/internal/logging"
)

const (
	// maxBatchSize bounds how many items go to the capability per call.
	maxBatchSize = 10

	// Severity blend weights: the model's technical severity dominates,
	// the ingestion-time heuristic score anchors it.
	techWeight  = 0.7
	priorWeight = 0.3
)

// Classifier batches pending items to the classification capability and
// folds the results back into the items.
type Classifier struct {
	client  llm.Client
	limiter *rate.Limiter
	logger  logging.Logger
}

// Config holds classifier tuning.
type Config struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
}

// New creates a classifier. A zero rate falls back to one request per
// second, which respects typical capability rate limits across sequential
// batches.
func New(client llm.Client, cfg Config, logger logging.Logger) *Classifier {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Classifier{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		logger:  logger,
	}
}

// Outcome reports one ClassifyAll pass. Summaries maps item id to the
// model's one-line issue summary; items from failed batches are absent.
// Errors are diagnostics, not a failure of the run.
type Outcome struct {
	Classified int
	Summaries  map[string]string
	Errors     []string
}

// ClassifyAll processes items in sequential batches of at most ten.
// A failed batch is skipped, logged and recorded; processing continues
// with the next batch.
func (c *Classifier) ClassifyAll(ctx context.Context, items []*domain.FeedbackItem) Outcome {
	out := Outcome{Summaries: make(map[string]string)}
	for start := 0; start < len(items); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		if err := c.classifyBatch(ctx, batch, out.Summaries); err != nil {
			c.logger.Warn("classification batch failed, skipping",
				logging.Int("batch_start", start),
				logging.Int("batch_size", len(batch)),
				logging.Error(err))
			out.Errors = append(out.Errors, fmt.Sprintf("classify batch %d-%d: %v", start, end-1, err))
			continue
		}
		out.Classified += len(batch)
	}
	return out
}

// classifyBatch sends one batch and applies the aligned results. An
// unparsable response applies the documented fallback to every item in the
// batch instead of failing it.
func (c *Classifier) classifyBatch(ctx context.Context, batch []*domain.FeedbackItem, summaries map[string]string) error {
	if len(batch) == 0 {
		return nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	user, err := buildUserPrompt(batch)
	if err != nil {
		return err
	}

	response, err := c.client.Complete(ctx, systemPrompt, user)
	if err != nil {
		return fmt.Errorf("classification call: %w", err)
	}

	results, err := parseResults(response, len(batch))
	if err != nil {
		c.logger.Warn("classification response unparsable, applying fallback",
			logging.Int("batch_size", len(batch)),
			logging.Error(err))
		results = make([]domain.ClassificationResult, len(batch))
		for i := range results {
			results[i] = domain.FallbackClassification()
		}
	}

	for i, item := range batch {
		Apply(item, results[i])
		if results[i].Summary != "" {
			summaries[item.ID] = results[i].Summary
		}
	}
	return nil
}

// Apply folds one classification result into an item: type, sentiment,
// keyword union, and the severity blend. The blend only runs when the
// model expressed an opinion (technical severity above zero).
func Apply(item *domain.FeedbackItem, result domain.ClassificationResult) {
	item.FeedbackType = result.FeedbackType
	sentiment := result.SentimentScore
	item.SentimentScore = &sentiment
	item.MergeKeywords(result.Keywords)

	if result.TechnicalSeverity > 0 {
		blended := float64(result.TechnicalSeverity)*techWeight + float64(item.NormalizedSeverity)*priorWeight
		item.NormalizedSeverity = int(math.Round(blended))
	}
}
