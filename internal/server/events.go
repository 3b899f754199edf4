package server

import "time"

const EventVersion = 1

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type InterviewStartedEvent struct {
	Event
	InterviewID string `json:"interview_id"`
	Role        string `json:"role"`
}

type QuestionAskedEvent struct {
	Event
	InterviewID string `json:"interview_id"`
	Position    int    `json:"position"`
	Question    string `json:"question"`
}

type AnswerEvaluatedEvent struct {
	Event
	InterviewID string `json:"interview_id"`
	Position    int    `json:"position"`
	Relevance   int    `json:"relevance"`
	Clarity     int    `json:"clarity"`
	Correctness int    `json:"correctness"`
	Feedback    string `json:"feedback"`
}

type SummaryReadyEvent struct {
	Event
	InterviewID     string `json:"interview_id"`
	OverallFeedback string `json:"overall_feedback"`
	Strengths       string `json:"strengths"`
	Improvements    string `json:"improvements"`
}

type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
