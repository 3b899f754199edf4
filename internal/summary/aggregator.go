// Package summary aggregates a session's evaluated exchanges into a final
// verdict via the scoring model.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/preptalk/preptalk/internal/interview"
	"github.com/preptalk/preptalk/internal/llm"
)

const systemPrompt = `You are reviewing a complete mock interview.
Given every question, the candidate's transcribed answer, and its scores,
write an overall assessment. Reply with ONLY a JSON object:
{"overall_feedback": "<3-6 sentences>", "strengths": "<2-4 sentences>", "improvements": "<2-4 sentences>"}
Ground every claim in the transcript; do not invent answers the candidate never gave.`

type Aggregator struct {
	client llm.Client
	sleep  func(time.Duration)
}

func New(client llm.Client) *Aggregator {
	return &Aggregator{client: client, sleep: time.Sleep}
}

// Summarize handles any number of evaluated exchanges, including exactly one.
func (a *Aggregator) Summarize(ctx context.Context, role string, exchanges []interview.Exchange) (interview.Summary, error) {
	if len(exchanges) == 0 {
		return interview.Summary{}, fmt.Errorf("no evaluated exchanges to summarize")
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildTranscript(role, exchanges)},
	}

	backoff := []time.Duration{1 * time.Second, 4 * time.Second, 16 * time.Second}
	var lastErr error
	for attempt := range backoff {
		result, err := a.client.Complete(ctx, messages)
		if err == nil {
			sum, parseErr := parseSummary(result)
			if parseErr == nil {
				return sum, nil
			}
			err = parseErr
		}
		lastErr = err
		if attempt < len(backoff)-1 {
			a.sleep(backoff[attempt])
		}
	}
	return interview.Summary{}, fmt.Errorf("summarize session failed after retries: %w", lastErr)
}

func buildTranscript(role string, exchanges []interview.Exchange) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Role: %s\nExchanges: %d\n", role, len(exchanges))

	for i, ex := range exchanges {
		fmt.Fprintf(&b, "\nQ%d: %s\n", i+1, ex.Question)
		fmt.Fprintf(&b, "A%d: %s\n", i+1, ex.Transcript)
		if ex.Evaluation != nil {
			fmt.Fprintf(&b, "Scores: relevance %d/10, clarity %d/10, correctness %d/10\n",
				ex.Evaluation.Relevance, ex.Evaluation.Clarity, ex.Evaluation.Correctness)
			fmt.Fprintf(&b, "Per-answer feedback: %s\n", ex.Evaluation.Feedback)
		}
	}
	return b.String()
}

func parseSummary(raw string) (interview.Summary, error) {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}

	var sum interview.Summary
	if err := json.Unmarshal([]byte(cleaned), &sum); err != nil {
		return interview.Summary{}, fmt.Errorf("parse summary JSON: %w", err)
	}
	if strings.TrimSpace(sum.OverallFeedback) == "" {
		return interview.Summary{}, fmt.Errorf("summary has no overall feedback")
	}
	return sum, nil
}
