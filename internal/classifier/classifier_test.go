package classifier_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/feedback-insight/internal/classifier"
	"github.com/jonesrussell/feedback-insight/internal/domain"
	"github.com/jonesrussell/feedback-insight/internal/logging"
)

// scriptedClient returns canned responses per call, in order.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedClient) Complete(_ context.Context, _, _ string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func pendingItems(n int) []*domain.FeedbackItem {
	items := make([]*domain.FeedbackItem, n)
	for i := range items {
		items[i] = &domain.FeedbackItem{
			ID:                 fmt.Sprintf("item-%d", i),
			Source:             domain.SourceManualUpload,
			Content:            fmt.Sprintf("feedback number %d", i),
			NormalizedSeverity: 50,
			FeedbackType:       domain.TypeUnknown,
			Status:             domain.ItemStatusPending,
		}
	}
	return items
}

func validResponse(n int, severity int) string {
	out := "["
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"feedback_type":"bug","sentiment_score":-0.5,"technical_severity":%d,"keywords":["login"],"summary":"login failure"}`, severity)
	}
	return out + "]"
}

func newClassifier(client *scriptedClient, cfg classifier.Config) *classifier.Classifier {
	return classifier.New(client, cfg, logging.NewNop())
}

func TestClassifyAll_BlendsSeverity(t *testing.T) {
	items := pendingItems(1)
	items[0].NormalizedSeverity = 90

	client := &scriptedClient{responses: []string{validResponse(1, 80)}}
	c := newClassifier(client, classifier.Config{RequestsPerSecond: 1000})

	out := c.ClassifyAll(context.Background(), items)
	require.Empty(t, out.Errors)
	require.Equal(t, 1, out.Classified)
	require.Equal(t, "login failure", out.Summaries[items[0].ID])

	// round(80*0.7 + 90*0.3) = round(83) = 83
	require.Equal(t, 83, items[0].NormalizedSeverity)
	require.Equal(t, domain.TypeBug, items[0].FeedbackType)
	require.NotNil(t, items[0].SentimentScore)
	require.InDelta(t, -0.5, *items[0].SentimentScore, 1e-9)
	require.Contains(t, []string(items[0].Keywords), "login")
}

func TestClassifyAll_ZeroTechnicalSeverityKeepsScore(t *testing.T) {
	items := pendingItems(1)
	items[0].NormalizedSeverity = 72

	client := &scriptedClient{responses: []string{validResponse(1, 0)}}
	c := newClassifier(client, classifier.Config{RequestsPerSecond: 1000})

	out := c.ClassifyAll(context.Background(), items)
	require.Empty(t, out.Errors)
	require.Equal(t, 72, items[0].NormalizedSeverity)
}

func TestClassifyAll_FailedMiddleBatchIsIsolated(t *testing.T) {
	items := pendingItems(25) // batches of 10, 10, 5

	client := &scriptedClient{
		responses: []string{validResponse(10, 60), "", validResponse(5, 60)},
		errs:      []error{nil, errors.New("capability unavailable"), nil},
	}
	c := newClassifier(client, classifier.Config{RequestsPerSecond: 1000})

	out := c.ClassifyAll(context.Background(), items)
	require.Equal(t, 15, out.Classified)
	require.Len(t, out.Errors, 1)
	require.Contains(t, out.Errors[0], "classify batch 10-19")

	// Batch 1 and 3 classified, batch 2 untouched.
	require.Equal(t, domain.TypeBug, items[0].FeedbackType)
	require.Equal(t, domain.TypeUnknown, items[12].FeedbackType)
	require.Equal(t, domain.TypeBug, items[24].FeedbackType)
}

func TestClassifyAll_UnparsableResponseAppliesFallback(t *testing.T) {
	items := pendingItems(2)
	items[0].NormalizedSeverity = 80

	client := &scriptedClient{responses: []string{"sorry, I cannot help with that"}}
	c := newClassifier(client, classifier.Config{RequestsPerSecond: 1000})

	out := c.ClassifyAll(context.Background(), items)
	require.Empty(t, out.Errors) // fallback is not a batch failure
	require.Equal(t, 2, out.Classified)

	// Fallback: unknown type, sentiment 0, technical severity 50 blended in.
	require.Equal(t, domain.TypeUnknown, items[0].FeedbackType)
	require.NotNil(t, items[0].SentimentScore)
	require.Zero(t, *items[0].SentimentScore)
	// round(50*0.7 + 80*0.3) = 59
	require.Equal(t, 59, items[0].NormalizedSeverity)
}

func TestClassifyAll_KeywordUnion(t *testing.T) {
	items := pendingItems(1)
	items[0].Keywords = []string{"login", "crash"}

	client := &scriptedClient{responses: []string{
		`[{"feedback_type":"bug","sentiment_score":0,"technical_severity":0,"keywords":["crash","startup"],"summary":"s"}]`,
	}}
	c := newClassifier(client, classifier.Config{RequestsPerSecond: 1000})

	out := c.ClassifyAll(context.Background(), items)
	require.Empty(t, out.Errors)
	require.ElementsMatch(t, []string{"login", "crash", "startup"}, []string(items[0].Keywords))
}
