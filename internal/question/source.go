// Package question produces role-specific interview questions, either from a
// language model or from a static bank when no model is configured.
package question

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/preptalk/preptalk/internal/interview"
	"github.com/preptalk/preptalk/internal/llm"
)

// DedupScope controls how much question history conditions generation.
type DedupScope string

const (
	// DedupAll feeds the full question history to the model.
	DedupAll DedupScope = "all"
	// DedupLast conditions only on the immediately preceding question.
	DedupLast DedupScope = "last"
)

const systemPrompt = `You are conducting a spoken mock interview.
Ask exactly one interview question suited to the candidate's target role.
Keep it answerable in about two minutes of speech. Reply with the question
text only: no numbering, no preamble, no quotation marks.`

type Source struct {
	client llm.Client
	scope  DedupScope
	sleep  func(time.Duration)
}

func NewSource(client llm.Client, scope DedupScope) *Source {
	if scope != DedupLast {
		scope = DedupAll
	}
	return &Source{client: client, scope: scope, sleep: time.Sleep}
}

func (s *Source) NextQuestion(ctx context.Context, role string, history []interview.Exchange) (string, error) {
	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: s.buildPrompt(role, history)},
	}

	backoff := []time.Duration{1 * time.Second, 4 * time.Second}
	var lastErr error
	for attempt := range backoff {
		result, err := s.client.Complete(ctx, messages)
		if err == nil {
			question := strings.TrimSpace(strings.Trim(strings.TrimSpace(result), `"`))
			if question != "" {
				return question, nil
			}
			err = fmt.Errorf("model returned an empty question")
		}
		lastErr = err
		if attempt < len(backoff)-1 {
			s.sleep(backoff[attempt])
		}
	}
	return "", fmt.Errorf("generate question failed after retries: %w", lastErr)
}

func (s *Source) buildPrompt(role string, history []interview.Exchange) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target role: %s\n", role)

	asked := askedQuestions(history)
	if s.scope == DedupLast && len(asked) > 1 {
		asked = asked[len(asked)-1:]
	}

	if len(asked) > 0 {
		b.WriteString("\nAlready asked, do not repeat or rephrase:\n")
		for _, q := range asked {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	b.WriteString("\nAsk the next question.")
	return b.String()
}

func askedQuestions(history []interview.Exchange) []string {
	asked := make([]string, 0, len(history))
	for _, ex := range history {
		if strings.TrimSpace(ex.Question) != "" {
			asked = append(asked, ex.Question)
		}
	}
	return asked
}

// Bank is a deterministic fallback question source used when no LLM is
// configured for question generation. It cycles through a fixed set of
// role-templated prompts.
type Bank struct {
	templates []string
}

func NewBank() *Bank {
	return &Bank{templates: []string{
		"Walk me through a recent project you are proud of and your role in it, as a %s.",
		"Describe a hard technical problem you solved as a %s. What made it hard?",
		"As a %s, how do you decide what to test before shipping a change?",
		"Tell me about a time you disagreed with a teammate about a %s design decision.",
		"What would you improve about the last system you worked on as a %s?",
	}}
}

func (b *Bank) NextQuestion(_ context.Context, role string, history []interview.Exchange) (string, error) {
	if len(b.templates) == 0 {
		return "", fmt.Errorf("question bank is empty")
	}
	idx := len(history) % len(b.templates)
	return fmt.Sprintf(b.templates[idx], role), nil
}
