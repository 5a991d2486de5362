package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonesrussell/feedback-insight/internal/domain"
)

// maxContentChars bounds how much of each item's content is sent to the
// classification capability.
const maxContentChars = 500

const systemPrompt = `You are a product feedback triage engine. You receive a JSON array of feedback items, each with "source" and "content". Respond with ONLY a JSON array of the same length and order, one object per input item, with exactly these fields:
  "feedback_type": one of "bug", "feature_request", "complaint", "praise", "question", "unknown"
  "sentiment_score": number between -1 and 1
  "technical_severity": integer between 0 and 100 (0 if you have no opinion)
  "keywords": array of up to 8 short lowercase strings
  "summary": one sentence describing the issue
No prose, no markdown, no trailing commentary.`

type promptItem struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// buildUserPrompt serializes a batch into the request payload.
func buildUserPrompt(items []*domain.FeedbackItem) (string, error) {
	payload := make([]promptItem, len(items))
	for i, item := range items {
		payload[i] = promptItem{
			Source:  string(item.Source),
			Content: truncate(item.Content, maxContentChars),
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal classification payload: %w", err)
	}
	return string(data), nil
}

// rawResult mirrors the expected response object. Pointer fields let the
// validator distinguish absent from zero.
type rawResult struct {
	FeedbackType      *string  `json:"feedback_type"`
	SentimentScore    *float64 `json:"sentiment_score"`
	TechnicalSeverity *int     `json:"technical_severity"`
	Keywords          []string `json:"keywords"`
	Summary           *string  `json:"summary"`
}

// parseResults validates a model response against the expected schema. It
// fails closed: any structural problem returns an error and the caller
// substitutes the documented fallback for the whole batch, never partially
// trusting a malformed structure.
func parseResults(response string, want int) ([]domain.ClassificationResult, error) {
	cleaned := stripCodeFence(strings.TrimSpace(response))

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.DisallowUnknownFields()

	var raw []rawResult
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode classification response: %w", err)
	}
	if len(raw) != want {
		return nil, fmt.Errorf("classification response has %d entries, want %d", len(raw), want)
	}

	results := make([]domain.ClassificationResult, len(raw))
	for i, r := range raw {
		if r.FeedbackType == nil || r.SentimentScore == nil || r.TechnicalSeverity == nil || r.Summary == nil {
			return nil, fmt.Errorf("entry %d: missing required field", i)
		}
		ft := domain.FeedbackType(*r.FeedbackType)
		if !ft.Valid() {
			return nil, fmt.Errorf("entry %d: invalid feedback_type %q", i, *r.FeedbackType)
		}
		if *r.SentimentScore < -1 || *r.SentimentScore > 1 {
			return nil, fmt.Errorf("entry %d: sentiment_score %v out of [-1,1]", i, *r.SentimentScore)
		}
		if *r.TechnicalSeverity < 0 || *r.TechnicalSeverity > 100 {
			return nil, fmt.Errorf("entry %d: technical_severity %d out of [0,100]", i, *r.TechnicalSeverity)
		}
		keywords := r.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		results[i] = domain.ClassificationResult{
			FeedbackType:      ft,
			SentimentScore:    *r.SentimentScore,
			TechnicalSeverity: *r.TechnicalSeverity,
			Keywords:          keywords,
			Summary:           *r.Summary,
		}
	}
	return results, nil
}

// stripCodeFence removes a single surrounding markdown fence. Models wrap
// JSON in fences often enough that this is a transport artifact, not a
// schema violation.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
