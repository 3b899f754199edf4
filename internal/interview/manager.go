package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultGatewayTimeout = 30 * time.Second
	defaultLockTimeout    = 10 * time.Second
)

// Deps are the collaborators a Manager orchestrates. Store and Questions are
// required; the remaining gateways may be nil, in which case the operations
// that need them fail with the matching taxonomy error (narration and answer
// archiving degrade silently instead).
type Deps struct {
	Store       Store
	Questions   QuestionSource
	Transcriber Transcriber
	Scorer      Scorer
	Narrator    Narrator
	Aggregator  Aggregator
	Answers     AnswerStore
	Hub         EventBroadcaster
}

// Manager owns the per-session state machine. Every mutating operation runs
// under the session's exclusive lock so check-then-act on session status is
// atomic; sessions are otherwise independent.
type Manager struct {
	deps Deps

	locks          *lockTable
	gatewayTimeout time.Duration
	lockTimeout    time.Duration

	newID func() string
	now   func() time.Time
}

func NewManager(deps Deps, gatewayTimeout, lockTimeout time.Duration) *Manager {
	if gatewayTimeout <= 0 {
		gatewayTimeout = defaultGatewayTimeout
	}
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}

	return &Manager{
		deps:           deps,
		locks:          newLockTable(),
		gatewayTimeout: gatewayTimeout,
		lockTimeout:    lockTimeout,
		newID:          uuid.NewString,
		now:            time.Now,
	}
}

// Start creates a session for the given role with its first question posed.
func (m *Manager) Start(ctx context.Context, role string) (StartResult, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return StartResult{}, fmt.Errorf("%w: role must not be blank", ErrInvalidInput)
	}

	question, err := m.generateQuestion(ctx, role, nil)
	if err != nil {
		return StartResult{}, err
	}
	audioRef := m.narrate(ctx, question)

	sess := Session{
		ID:        m.newID(),
		Role:      role,
		Status:    StatusAwaitingAnswer,
		Exchanges: []Exchange{{Question: question, QuestionAudio: audioRef}},
		CreatedAt: m.now().UTC(),
	}
	if err := m.deps.Store.CreateSession(sess); err != nil {
		return StartResult{}, fmt.Errorf("create session: %w", err)
	}

	if m.deps.Hub != nil {
		m.deps.Hub.BroadcastInterviewStarted(sess.ID, role)
		m.deps.Hub.BroadcastQuestionAsked(sess.ID, 0, question)
	}

	return StartResult{SessionID: sess.ID, Question: question, AudioFile: audioRef}, nil
}

// SubmitAnswer transcribes and scores an answer recording for the open
// question. Any gateway failure leaves the session in AwaitingAnswer with no
// partial state, so the client can retry with new audio.
func (m *Manager) SubmitAnswer(ctx context.Context, id string, audio []byte) (AnswerResult, error) {
	if len(audio) == 0 {
		return AnswerResult{}, fmt.Errorf("%w: audio payload has no content", ErrEmptyAudio)
	}

	if err := m.locks.acquire(ctx, id, m.lockTimeout); err != nil {
		return AnswerResult{}, err
	}
	defer m.locks.release(id)

	sess, err := m.deps.Store.GetSession(id)
	if err != nil {
		return AnswerResult{}, err
	}
	if sess.Status != StatusAwaitingAnswer {
		return AnswerResult{}, fmt.Errorf("%w: session %s is %s, not awaiting an answer", ErrInvalidState, id, sess.Status)
	}

	position := len(sess.Exchanges) - 1
	current := sess.Exchanges[position]

	transcript, err := m.transcribe(ctx, audio)
	if err != nil {
		return AnswerResult{}, err
	}

	eval, err := m.evaluate(ctx, sess.Role, current.Question, transcript)
	if err != nil {
		return AnswerResult{}, err
	}

	if m.deps.Answers != nil {
		ref, saveErr := m.deps.Answers.SaveAnswer(audio)
		if saveErr != nil {
			slog.Warn("answer audio not archived", "session", id, "error", saveErr)
		} else {
			current.AnswerAudio = ref
		}
	}
	current.Transcript = transcript
	current.Evaluation = &eval

	if err := m.deps.Store.RecordAnswer(id, position, current, StatusEvaluated); err != nil {
		return AnswerResult{}, fmt.Errorf("record answer: %w", err)
	}

	if m.deps.Hub != nil {
		m.deps.Hub.BroadcastAnswerEvaluated(id, position, eval)
	}

	return AnswerResult{Transcript: transcript, Evaluation: eval}, nil
}

// NextQuestion appends a fresh question to an evaluated session and moves it
// back to AwaitingAnswer.
func (m *Manager) NextQuestion(ctx context.Context, id string) (QuestionResult, error) {
	if err := m.locks.acquire(ctx, id, m.lockTimeout); err != nil {
		return QuestionResult{}, err
	}
	defer m.locks.release(id)

	sess, err := m.deps.Store.GetSession(id)
	if err != nil {
		return QuestionResult{}, err
	}
	if sess.Status != StatusEvaluated {
		return QuestionResult{}, fmt.Errorf("%w: session %s is %s, expected an evaluated answer first", ErrInvalidState, id, sess.Status)
	}

	question, err := m.generateQuestion(ctx, sess.Role, sess.Exchanges)
	if err != nil {
		return QuestionResult{}, err
	}
	audioRef := m.narrate(ctx, question)

	position := len(sess.Exchanges)
	ex := Exchange{Question: question, QuestionAudio: audioRef}
	if err := m.deps.Store.AppendExchange(id, position, ex, StatusAwaitingAnswer); err != nil {
		return QuestionResult{}, fmt.Errorf("append exchange: %w", err)
	}

	if m.deps.Hub != nil {
		m.deps.Hub.BroadcastQuestionAsked(id, position, question)
	}

	return QuestionResult{Question: question, AudioFile: audioRef}, nil
}

// Summary aggregates all answered exchanges into a final verdict and marks
// the session Completed. Repeat calls on a completed session return the
// stored result without recomputing.
func (m *Manager) Summary(ctx context.Context, id string) (Summary, error) {
	if err := m.locks.acquire(ctx, id, m.lockTimeout); err != nil {
		return Summary{}, err
	}
	defer m.locks.release(id)

	sess, err := m.deps.Store.GetSession(id)
	if err != nil {
		return Summary{}, err
	}

	if sess.Status == StatusCompleted && sess.Summary != nil {
		return *sess.Summary, nil
	}
	if sess.Status == StatusAwaitingAnswer {
		return Summary{}, fmt.Errorf("%w: session %s has no evaluated exchange to summarize", ErrInvalidState, id)
	}

	answered := make([]Exchange, 0, len(sess.Exchanges))
	for _, ex := range sess.Exchanges {
		if ex.Answered() {
			answered = append(answered, ex)
		}
	}

	sum, err := m.summarize(ctx, sess.Role, answered)
	if err != nil {
		return Summary{}, err
	}

	if err := m.deps.Store.SetSummary(id, sum, StatusCompleted); err != nil {
		return Summary{}, fmt.Errorf("set summary: %w", err)
	}

	if m.deps.Hub != nil {
		m.deps.Hub.BroadcastSummaryReady(id, sum)
	}

	return sum, nil
}

// Get returns a read-only snapshot of a session. Clients use it to refresh
// their view; the manager stays the sole source of truth for session state.
func (m *Manager) Get(id string) (Session, error) {
	return m.deps.Store.GetSession(id)
}

func (m *Manager) generateQuestion(ctx context.Context, role string, history []Exchange) (string, error) {
	if m.deps.Questions == nil {
		return "", fmt.Errorf("%w: no question source configured", ErrQuestionGeneration)
	}

	gctx, cancel := context.WithTimeout(ctx, m.gatewayTimeout)
	defer cancel()

	question, err := m.deps.Questions.NextQuestion(gctx, role, history)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrQuestionGeneration, err)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: source returned an empty question", ErrQuestionGeneration)
	}
	return question, nil
}

func (m *Manager) transcribe(ctx context.Context, audio []byte) (string, error) {
	if m.deps.Transcriber == nil {
		return "", fmt.Errorf("%w: no transcriber configured", ErrTranscription)
	}

	gctx, cancel := context.WithTimeout(ctx, m.gatewayTimeout)
	defer cancel()

	transcript, err := m.deps.Transcriber.Transcribe(gctx, audio)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	return strings.TrimSpace(transcript), nil
}

func (m *Manager) evaluate(ctx context.Context, role, question, answer string) (Evaluation, error) {
	if m.deps.Scorer == nil {
		return Evaluation{}, fmt.Errorf("%w: no scorer configured", ErrEvaluation)
	}

	gctx, cancel := context.WithTimeout(ctx, m.gatewayTimeout)
	defer cancel()

	eval, err := m.deps.Scorer.Evaluate(gctx, role, question, answer)
	if err != nil {
		return Evaluation{}, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}
	return eval, nil
}

func (m *Manager) summarize(ctx context.Context, role string, answered []Exchange) (Summary, error) {
	if m.deps.Aggregator == nil {
		return Summary{}, fmt.Errorf("%w: no aggregator configured", ErrEvaluation)
	}

	gctx, cancel := context.WithTimeout(ctx, m.gatewayTimeout)
	defer cancel()

	sum, err := m.deps.Aggregator.Summarize(gctx, role, answered)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}
	return sum, nil
}

// narrate synthesizes question audio. Failure degrades to text-only delivery
// and never blocks the lifecycle transition.
func (m *Manager) narrate(ctx context.Context, question string) string {
	if m.deps.Narrator == nil {
		return ""
	}

	gctx, cancel := context.WithTimeout(ctx, m.gatewayTimeout)
	defer cancel()

	ref, err := m.deps.Narrator.Synthesize(gctx, question)
	if err != nil {
		slog.Warn("question narration failed, delivering text only", "error", err)
		return ""
	}
	return ref
}
