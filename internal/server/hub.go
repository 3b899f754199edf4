package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/preptalk/preptalk/internal/interview"
)

// Hub fans interview lifecycle events out to subscribed websocket clients.
// Slow clients are dropped rather than blocking the broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *Hub) BroadcastInterviewStarted(sessionID, role string) {
	h.broadcastEvent(InterviewStartedEvent{
		Event:       newEvent("interview_started", time.Now().UTC()),
		InterviewID: sessionID,
		Role:        role,
	})
}

func (h *Hub) BroadcastQuestionAsked(sessionID string, position int, question string) {
	h.broadcastEvent(QuestionAskedEvent{
		Event:       newEvent("question_asked", time.Now().UTC()),
		InterviewID: sessionID,
		Position:    position,
		Question:    question,
	})
}

func (h *Hub) BroadcastAnswerEvaluated(sessionID string, position int, eval interview.Evaluation) {
	h.broadcastEvent(AnswerEvaluatedEvent{
		Event:       newEvent("answer_evaluated", time.Now().UTC()),
		InterviewID: sessionID,
		Position:    position,
		Relevance:   eval.Relevance,
		Clarity:     eval.Clarity,
		Correctness: eval.Correctness,
		Feedback:    eval.Feedback,
	})
}

func (h *Hub) BroadcastSummaryReady(sessionID string, sum interview.Summary) {
	h.broadcastEvent(SummaryReadyEvent{
		Event:           newEvent("summary_ready", time.Now().UTC()),
		InterviewID:     sessionID,
		OverallFeedback: sum.OverallFeedback,
		Strengths:       sum.Strengths,
		Improvements:    sum.Improvements,
	})
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("event marshal failed", "error", err)
		return
	}
	h.Broadcast(payload)
}
