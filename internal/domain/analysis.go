package domain

import "time"

// ClassificationResult is the per-item output of the classification
// capability, aligned by position with the submitted batch.
type ClassificationResult struct {
	FeedbackType      FeedbackType `json:"feedback_type"`
	SentimentScore    float64      `json:"sentiment_score"`    // -1..1
	TechnicalSeverity int          `json:"technical_severity"` // 0-100, 0 means no opinion
	Keywords          []string     `json:"keywords"`
	Summary           string       `json:"summary"`
}

// FallbackClassification is the documented fail-closed result used when a
// classification response cannot be parsed as the expected structure.
func FallbackClassification() ClassificationResult {
	return ClassificationResult{
		FeedbackType:      TypeUnknown,
		SentimentScore:    0,
		TechnicalSeverity: 50,
		Keywords:          []string{},
		Summary:           "",
	}
}

// AnalysisReport is the outcome of one pipeline run.
// Success is false only when an unrecoverable error prevented started work
// from running at all; per-item and per-batch failures keep Success true
// with entries in Errors.
type AnalysisReport struct {
	Success         bool      `json:"success"`
	ItemsClassified int       `json:"items_classified"`
	ClustersCreated int       `json:"clusters_created"`
	AlertsSent      int       `json:"alerts_sent"`
	Errors          []string  `json:"errors"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}
