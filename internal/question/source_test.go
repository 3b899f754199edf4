package question

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/preptalk/preptalk/internal/interview"
	"github.com/preptalk/preptalk/internal/llm"
)

type clientMock struct {
	reply string
	err   error
	calls int

	lastPrompt string
}

func (c *clientMock) Complete(_ context.Context, messages []llm.Message) (string, error) {
	c.calls++
	c.lastPrompt = messages[len(messages)-1].Content
	return c.reply, c.err
}

func historyOf(questions ...string) []interview.Exchange {
	history := make([]interview.Exchange, 0, len(questions))
	for _, q := range questions {
		history = append(history, interview.Exchange{Question: q})
	}
	return history
}

func newTestSource(client llm.Client, scope DedupScope) *Source {
	s := NewSource(client, scope)
	s.sleep = func(time.Duration) {}
	return s
}

func TestNextQuestionTrimsReply(t *testing.T) {
	mock := &clientMock{reply: "\n \"What does idempotency mean in an API?\" \n"}
	s := newTestSource(mock, DedupAll)

	got, err := s.NextQuestion(context.Background(), "Backend Engineer", nil)
	if err != nil {
		t.Fatalf("NextQuestion failed: %v", err)
	}
	if got != "What does idempotency mean in an API?" {
		t.Fatalf("unexpected question %q", got)
	}
	if !strings.Contains(mock.lastPrompt, "Backend Engineer") {
		t.Fatalf("role missing from prompt: %q", mock.lastPrompt)
	}
}

func TestDedupScopeAllIncludesFullHistory(t *testing.T) {
	mock := &clientMock{reply: "Next question"}
	s := newTestSource(mock, DedupAll)

	history := historyOf("first question", "second question", "third question")
	if _, err := s.NextQuestion(context.Background(), "SRE", history); err != nil {
		t.Fatalf("NextQuestion failed: %v", err)
	}

	for _, q := range []string{"first question", "second question", "third question"} {
		if !strings.Contains(mock.lastPrompt, q) {
			t.Fatalf("expected %q in prompt, got %q", q, mock.lastPrompt)
		}
	}
}

func TestDedupScopeLastIncludesOnlyPreviousQuestion(t *testing.T) {
	mock := &clientMock{reply: "Next question"}
	s := newTestSource(mock, DedupLast)

	history := historyOf("first question", "second question", "third question")
	if _, err := s.NextQuestion(context.Background(), "SRE", history); err != nil {
		t.Fatalf("NextQuestion failed: %v", err)
	}

	if !strings.Contains(mock.lastPrompt, "third question") {
		t.Fatalf("expected last question in prompt, got %q", mock.lastPrompt)
	}
	for _, q := range []string{"first question", "second question"} {
		if strings.Contains(mock.lastPrompt, q) {
			t.Fatalf("did not expect %q in prompt, got %q", q, mock.lastPrompt)
		}
	}
}

func TestUnknownScopeFallsBackToAll(t *testing.T) {
	s := NewSource(&clientMock{}, DedupScope("everything"))
	if s.scope != DedupAll {
		t.Fatalf("expected fallback to DedupAll, got %q", s.scope)
	}
}

func TestNextQuestionRetriesEmptyReply(t *testing.T) {
	mock := &clientMock{reply: "   "}
	s := newTestSource(mock, DedupAll)

	_, err := s.NextQuestion(context.Background(), "PM", nil)
	if err == nil {
		t.Fatal("expected error for persistently empty replies, got nil")
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", mock.calls)
	}
}

func TestNextQuestionProviderError(t *testing.T) {
	providerErr := errors.New("provider down")
	mock := &clientMock{err: providerErr}
	s := newTestSource(mock, DedupAll)

	_, err := s.NextQuestion(context.Background(), "PM", nil)
	if !errors.Is(err, providerErr) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestBankCyclesByHistoryLength(t *testing.T) {
	bank := NewBank()
	ctx := context.Background()

	first, err := bank.NextQuestion(ctx, "Backend Engineer", nil)
	if err != nil {
		t.Fatalf("NextQuestion failed: %v", err)
	}
	second, err := bank.NextQuestion(ctx, "Backend Engineer", historyOf(first))
	if err != nil {
		t.Fatalf("NextQuestion failed: %v", err)
	}

	if first == second {
		t.Fatalf("expected distinct consecutive questions, both were %q", first)
	}
	if !strings.Contains(first, "Backend Engineer") {
		t.Fatalf("expected role in question, got %q", first)
	}
}
