package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/preptalk/preptalk/internal/audio"
	"github.com/preptalk/preptalk/internal/interview"
)

type serviceStub struct {
	startResult  interview.StartResult
	startErr     error
	answerResult interview.AnswerResult
	answerErr    error
	nextResult   interview.QuestionResult
	nextErr      error
	summary      interview.Summary
	summaryErr   error
	session      interview.Session
	sessionErr   error

	lastRole  string
	lastID    string
	lastAudio []byte
}

func (s *serviceStub) Start(ctx context.Context, role string) (interview.StartResult, error) {
	s.lastRole = role
	return s.startResult, s.startErr
}

func (s *serviceStub) SubmitAnswer(ctx context.Context, id string, audioData []byte) (interview.AnswerResult, error) {
	s.lastID = id
	s.lastAudio = audioData
	return s.answerResult, s.answerErr
}

func (s *serviceStub) NextQuestion(ctx context.Context, id string) (interview.QuestionResult, error) {
	s.lastID = id
	return s.nextResult, s.nextErr
}

func (s *serviceStub) Summary(ctx context.Context, id string) (interview.Summary, error) {
	s.lastID = id
	return s.summary, s.summaryErr
}

func (s *serviceStub) Get(id string) (interview.Session, error) {
	s.lastID = id
	return s.session, s.sessionErr
}

func testAudioStore(t *testing.T) *audio.Store {
	t.Helper()
	return audio.NewStore(t.TempDir())
}

func testHandler(t *testing.T, svc InterviewService) http.Handler {
	t.Helper()
	return Handler(NewHub(), svc, testAudioStore(t), 10<<20)
}

func multipartAudio(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "answer.webm")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func TestStartInterview(t *testing.T) {
	svc := &serviceStub{
		startResult: interview.StartResult{
			SessionID: "sess-1",
			Question:  "Tell me about goroutines.",
			AudioFile: "audio_q1.mp3",
		},
	}
	h := testHandler(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/interview/start?role=backend+engineer", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rr.Code, rr.Body.String())
	}
	if svc.lastRole != "backend engineer" {
		t.Errorf("role = %q, want %q", svc.lastRole, "backend engineer")
	}

	var got interview.StartResult
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.SessionID != "sess-1" {
		t.Errorf("interview_id = %q", got.SessionID)
	}
	if got.AudioFile != "audio_q1.mp3" {
		t.Errorf("audio_file = %q", got.AudioFile)
	}
}

func TestStartInterviewRoleFromBody(t *testing.T) {
	svc := &serviceStub{startResult: interview.StartResult{SessionID: "sess-1", Question: "q"}}
	h := testHandler(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/interview/start", strings.NewReader(`{"role":"data scientist"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rr.Code)
	}
	if svc.lastRole != "data scientist" {
		t.Errorf("role = %q, want %q", svc.lastRole, "data scientist")
	}
}

func TestStartInterviewInvalidRole(t *testing.T) {
	svc := &serviceStub{startErr: fmt.Errorf("%w: role is required", interview.ErrInvalidInput)}
	h := testHandler(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/interview/start", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "error") {
		t.Errorf("expected error payload, got %s", rr.Body.String())
	}
}

func TestSubmitAnswer(t *testing.T) {
	svc := &serviceStub{
		answerResult: interview.AnswerResult{
			Transcript: "They are lightweight threads.",
			Evaluation: interview.Evaluation{Relevance: 8, Clarity: 7, Correctness: 9, Feedback: "Solid."},
		},
	}
	h := testHandler(t, svc)

	body, contentType := multipartAudio(t, "audio", []byte("fake-webm-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/interview/sess-1/answer", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rr.Code, rr.Body.String())
	}
	if svc.lastID != "sess-1" {
		t.Errorf("id = %q, want sess-1", svc.lastID)
	}
	if string(svc.lastAudio) != "fake-webm-bytes" {
		t.Errorf("audio bytes = %q", svc.lastAudio)
	}

	var got interview.AnswerResult
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Evaluation.Correctness != 9 {
		t.Errorf("correctness = %d, want 9", got.Evaluation.Correctness)
	}
}

func TestSubmitAnswerMissingField(t *testing.T) {
	svc := &serviceStub{}
	h := testHandler(t, svc)

	body, contentType := multipartAudio(t, "wrong_field", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/interview/sess-1/answer", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestSubmitAnswerWrongState(t *testing.T) {
	svc := &serviceStub{answerErr: fmt.Errorf("%w: already evaluated", interview.ErrInvalidState)}
	h := testHandler(t, svc)

	body, contentType := multipartAudio(t, "audio", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/interview/sess-1/answer", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
}

func TestNextQuestion(t *testing.T) {
	svc := &serviceStub{nextResult: interview.QuestionResult{Question: "How do channels work?", AudioFile: "audio_q2.mp3"}}
	h := testHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/interview/sess-1/next", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "How do channels work?") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestNextQuestionUnknownSession(t *testing.T) {
	svc := &serviceStub{nextErr: fmt.Errorf("%w: sess-x", interview.ErrNotFound)}
	h := testHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/interview/sess-x/next", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	svc := &serviceStub{summary: interview.Summary{
		OverallFeedback: "Strong fundamentals.",
		Strengths:       "Concurrency.",
		Improvements:    "System design.",
	}}
	h := testHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/interview/sess-1/summary", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var got interview.Summary
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.OverallFeedback != "Strong fundamentals." {
		t.Errorf("overall_feedback = %q", got.OverallFeedback)
	}
}

func TestSummaryBusy(t *testing.T) {
	svc := &serviceStub{summaryErr: fmt.Errorf("%w: sess-1", interview.ErrSessionBusy)}
	h := testHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/interview/sess-1/summary", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
}

func TestGetInterview(t *testing.T) {
	svc := &serviceStub{session: interview.Session{
		ID:     "sess-1",
		Role:   "backend engineer",
		Status: interview.StatusAwaitingAnswer,
	}}
	h := testHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/interview/sess-1", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "backend engineer") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestGatewayErrorMapsToBadGateway(t *testing.T) {
	svc := &serviceStub{answerErr: fmt.Errorf("%w: provider timeout", interview.ErrTranscription)}
	h := testHandler(t, svc)

	body, contentType := multipartAudio(t, "audio", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/interview/sess-1/answer", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
}

func TestServeAudioArtifact(t *testing.T) {
	store := testAudioStore(t)
	name, err := store.SaveNarration([]byte("mp3-bytes"))
	if err != nil {
		t.Fatalf("SaveNarration() error = %v", err)
	}

	h := Handler(NewHub(), &serviceStub{}, store, 10<<20)

	req := httptest.NewRequest(http.MethodGet, "/audio/"+name, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("Content-Type = %q, want audio/mpeg", got)
	}
	if rr.Body.String() != "mp3-bytes" {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestServeAudioRejectsTraversal(t *testing.T) {
	store := testAudioStore(t)
	h := Handler(NewHub(), &serviceStub{}, store, 10<<20)

	// PathValue never matches an encoded slash segment as a traversal, but a
	// dotted name with no extension must still be rejected.
	req := httptest.NewRequest(http.MethodGet, "/audio/..%2Fsecret.mp3", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code == http.StatusOK {
		t.Fatal("expected traversal request to be rejected")
	}
}

func TestServeAudioMissingFile(t *testing.T) {
	store := testAudioStore(t)
	h := Handler(NewHub(), &serviceStub{}, store, 10<<20)

	req := httptest.NewRequest(http.MethodGet, "/audio/audio_missing.mp3", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := testHandler(t, &serviceStub{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "ok") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestStatusForErrorUnknown(t *testing.T) {
	if got := statusForError(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("statusForError = %d, want 500", got)
	}
}

func TestAudioArtifactOnDisk(t *testing.T) {
	store := testAudioStore(t)
	name, err := store.SaveAnswer([]byte("webm"))
	if err != nil {
		t.Fatalf("SaveAnswer() error = %v", err)
	}

	path, err := store.Path(name)
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("artifact missing on disk: %v", err)
	}
	if filepath.Ext(path) != ".webm" {
		t.Errorf("ext = %q, want .webm", filepath.Ext(path))
	}
}
