// Package score turns a question/answer pair into a structured evaluation by
// prompting a language model for strict JSON.
package score

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/preptalk/preptalk/internal/interview"
	"github.com/preptalk/preptalk/internal/llm"
)

const systemPrompt = `You are a strict technical interviewer scoring one answer.
Reply with ONLY a JSON object in this exact shape, no markdown, no commentary:
{"relevance": <0-10 integer>, "clarity": <0-10 integer>, "correctness": <0-10 integer>, "feedback": "<2-4 sentences of concrete feedback>"}
Score 0 across the board when the answer is empty or unrelated to the question.`

type Scorer struct {
	client llm.Client
	sleep  func(time.Duration)
}

func New(client llm.Client) *Scorer {
	return &Scorer{client: client, sleep: time.Sleep}
}

func (s *Scorer) Evaluate(ctx context.Context, role, question, answer string) (interview.Evaluation, error) {
	userContent := fmt.Sprintf("Role: %s\n\nQuestion: %s\n\nCandidate answer: %s", role, question, answer)
	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userContent},
	}

	backoff := []time.Duration{1 * time.Second, 4 * time.Second, 16 * time.Second}
	var lastErr error
	for attempt := range backoff {
		result, err := s.client.Complete(ctx, messages)
		if err == nil {
			eval, parseErr := parseEvaluation(result)
			if parseErr == nil {
				return eval, nil
			}
			err = parseErr
		}
		lastErr = err
		if attempt < len(backoff)-1 {
			s.sleep(backoff[attempt])
		}
	}
	return interview.Evaluation{}, fmt.Errorf("evaluate answer failed after retries: %w", lastErr)
}

// parseEvaluation decodes the model reply, tolerating markdown code fences,
// and clamps each score into [0,10]. A reply without usable JSON or without
// feedback text is rejected so the caller retries.
func parseEvaluation(raw string) (interview.Evaluation, error) {
	cleaned := stripFences(raw)

	var eval interview.Evaluation
	if err := json.Unmarshal([]byte(cleaned), &eval); err != nil {
		return interview.Evaluation{}, fmt.Errorf("parse evaluation JSON: %w", err)
	}
	if strings.TrimSpace(eval.Feedback) == "" {
		return interview.Evaluation{}, fmt.Errorf("evaluation has no feedback text")
	}

	eval.Relevance = clampScore(eval.Relevance)
	eval.Clarity = clampScore(eval.Clarity)
	eval.Correctness = clampScore(eval.Correctness)
	return eval, nil
}

func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	// Some models wrap JSON in prose despite instructions; cut to the
	// outermost object.
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}
	return cleaned
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
