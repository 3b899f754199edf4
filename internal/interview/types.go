package interview

import (
	"context"
	"time"
)

// Session status values. Completed is terminal and stored explicitly: it
// records the client's decision to end the interview, which cannot be derived
// from the exchange list alone.
const (
	StatusAwaitingAnswer = "awaiting_answer"
	StatusEvaluated      = "evaluated"
	StatusCompleted      = "completed"
)

// Evaluation holds the structured scores for one answered question.
// Scores are integers in [0,10].
type Evaluation struct {
	Relevance   int    `json:"relevance"`
	Clarity     int    `json:"clarity"`
	Correctness int    `json:"correctness"`
	Feedback    string `json:"feedback"`
}

// Exchange is one question/answer/evaluation triple. QuestionAudio and
// AnswerAudio are opaque filename references into the audio store; empty
// means no artifact exists (narration failed, or no answer yet).
type Exchange struct {
	Question      string      `json:"question"`
	QuestionAudio string      `json:"question_audio,omitempty"`
	AnswerAudio   string      `json:"answer_audio,omitempty"`
	Transcript    string      `json:"transcript,omitempty"`
	Evaluation    *Evaluation `json:"evaluation,omitempty"`
}

// Answered reports whether this exchange has a completed evaluation.
func (e Exchange) Answered() bool {
	return e.Evaluation != nil
}

// Summary is the aggregated verdict over a whole session.
type Summary struct {
	OverallFeedback string `json:"overall_feedback"`
	Strengths       string `json:"strengths"`
	Improvements    string `json:"improvements"`
}

// Session is one end-to-end interview for a given role. Exchanges are
// append-only in question order; at most the last one is unanswered.
type Session struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	Exchanges []Exchange `json:"exchanges"`
	Summary   *Summary   `json:"summary,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Store is the durable session store the manager mutates. Implementations
// must keep ids unique for the store's lifetime.
type Store interface {
	CreateSession(sess Session) error
	GetSession(id string) (Session, error)
	AppendExchange(sessionID string, position int, ex Exchange, status string) error
	RecordAnswer(sessionID string, position int, ex Exchange, status string) error
	SetSummary(sessionID string, sum Summary, status string) error
}

// Transcriber converts a complete answer recording to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Scorer evaluates one question/answer pair.
type Scorer interface {
	Evaluate(ctx context.Context, role, question, answer string) (Evaluation, error)
}

// Narrator synthesizes question text into an audio artifact and returns its
// filename reference. Narration failure never blocks a lifecycle transition.
type Narrator interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// QuestionSource produces the next role-specific question, conditioned on the
// prior exchanges so questions are not repeated.
type QuestionSource interface {
	NextQuestion(ctx context.Context, role string, history []Exchange) (string, error)
}

// Aggregator produces the final summary over all answered exchanges.
type Aggregator interface {
	Summarize(ctx context.Context, role string, exchanges []Exchange) (Summary, error)
}

// AnswerStore persists raw answer uploads and returns a filename reference.
type AnswerStore interface {
	SaveAnswer(data []byte) (string, error)
}

// EventBroadcaster pushes lifecycle events to connected observers. All
// methods are fire-and-forget.
type EventBroadcaster interface {
	BroadcastInterviewStarted(sessionID, role string)
	BroadcastQuestionAsked(sessionID string, position int, question string)
	BroadcastAnswerEvaluated(sessionID string, position int, eval Evaluation)
	BroadcastSummaryReady(sessionID string, sum Summary)
}

// StartResult is the response contract for Start.
type StartResult struct {
	SessionID string `json:"interview_id"`
	Question  string `json:"question"`
	AudioFile string `json:"audio_file,omitempty"`
}

// AnswerResult is the response contract for SubmitAnswer.
type AnswerResult struct {
	Transcript string     `json:"transcript"`
	Evaluation Evaluation `json:"evaluation"`
}

// QuestionResult is the response contract for NextQuestion.
type QuestionResult struct {
	Question  string `json:"question"`
	AudioFile string `json:"audio_file,omitempty"`
}
