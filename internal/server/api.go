package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/preptalk/preptalk/internal/audio"
	"github.com/preptalk/preptalk/internal/interview"
)

// InterviewService is the slice of the interview manager the HTTP layer needs.
type InterviewService interface {
	Start(ctx context.Context, role string) (interview.StartResult, error)
	SubmitAnswer(ctx context.Context, id string, audio []byte) (interview.AnswerResult, error)
	NextQuestion(ctx context.Context, id string) (interview.QuestionResult, error)
	Summary(ctx context.Context, id string) (interview.Summary, error)
	Get(id string) (interview.Session, error)
}

// AudioFiles resolves bare artifact filenames to paths on disk.
type AudioFiles interface {
	Path(name string) (string, error)
}

func registerAPIRoutes(mux *http.ServeMux, svc InterviewService, files AudioFiles, maxUploadBytes int64) {
	mux.HandleFunc("POST /interview/start", func(w http.ResponseWriter, r *http.Request) {
		role := r.URL.Query().Get("role")
		if role == "" {
			// Fall back to a JSON body for clients that prefer one.
			var body struct {
				Role string `json:"role"`
			}
			if r.Body != nil {
				_ = json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body)
			}
			role = body.Role
		}

		result, err := svc.Start(r.Context(), role)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	})

	mux.HandleFunc("POST /interview/{id}/answer", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		if maxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		}
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("parse upload: %v", err))
			return
		}

		file, _, err := r.FormFile("audio")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "missing audio upload field")
			return
		}
		defer func() { _ = file.Close() }()

		data, err := io.ReadAll(file)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
			return
		}

		result, err := svc.SubmitAnswer(r.Context(), id, data)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	mux.HandleFunc("GET /interview/{id}/next", func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.NextQuestion(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	mux.HandleFunc("GET /interview/{id}/summary", func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Summary(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	mux.HandleFunc("GET /interview/{id}", func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Get(r.PathValue("id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	})

	mux.HandleFunc("GET /audio/{file}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("file")
		path, err := files.Path(name)
		if err != nil {
			writeJSONError(w, http.StatusForbidden, "invalid audio filename")
			return
		}

		f, err := os.Open(path)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "audio file not found")
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("stat audio: %v", err))
			return
		}

		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Header().Set("Content-Type", audio.ContentType(name))
		http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeJSONError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, interview.ErrInvalidInput), errors.Is(err, interview.ErrEmptyAudio):
		return http.StatusBadRequest
	case errors.Is(err, interview.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, interview.ErrInvalidState), errors.Is(err, interview.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, interview.ErrTranscription),
		errors.Is(err, interview.ErrEvaluation),
		errors.Is(err, interview.ErrQuestionGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
