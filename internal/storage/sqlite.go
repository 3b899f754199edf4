package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/preptalk/preptalk/internal/interview"
)

// SQLiteStore persists sessions and their exchanges. It is the single writer
// behind the manager's per-session locks, so one connection suffices.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "preptalk.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			role TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL,
			overall_feedback TEXT,
			strengths TEXT,
			improvements TEXT
		);
	`); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS exchanges (
			session_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			question TEXT NOT NULL,
			question_audio TEXT NOT NULL DEFAULT '',
			answer_audio TEXT NOT NULL DEFAULT '',
			transcript TEXT NOT NULL DEFAULT '',
			relevance INTEGER,
			clarity INTEGER,
			correctness INTEGER,
			feedback TEXT,
			PRIMARY KEY(session_id, position),
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create exchanges table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at)"); err != nil {
		return fmt.Errorf("create sessions index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) CreateSession(sess interview.Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return errors.New("session id is required")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin create session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`INSERT INTO sessions(id, role, status, created_at) VALUES(?, ?, ?, ?)`,
		sess.ID,
		sess.Role,
		sess.Status,
		sess.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create session %s: %w", sess.ID, err)
	}

	for i, ex := range sess.Exchanges {
		if err := insertExchange(tx, sess.ID, i, ex); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(id string) (interview.Session, error) {
	row := s.db.QueryRow(
		`SELECT id, role, status, created_at, overall_feedback, strengths, improvements
		 FROM sessions WHERE id = ?`,
		id,
	)

	var sess interview.Session
	var createdAt string
	var overall, strengths, improvements sql.NullString
	if err := row.Scan(&sess.ID, &sess.Role, &sess.Status, &createdAt, &overall, &strengths, &improvements); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return interview.Session{}, fmt.Errorf("%w: %s", interview.ErrNotFound, id)
		}
		return interview.Session{}, fmt.Errorf("query session %s: %w", id, err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return interview.Session{}, fmt.Errorf("parse session %s created_at: %w", id, err)
	}
	sess.CreatedAt = parsed

	if overall.Valid {
		sess.Summary = &interview.Summary{
			OverallFeedback: overall.String,
			Strengths:       strengths.String,
			Improvements:    improvements.String,
		}
	}

	exchanges, err := s.getExchanges(id)
	if err != nil {
		return interview.Session{}, err
	}
	sess.Exchanges = exchanges

	return sess, nil
}

func (s *SQLiteStore) AppendExchange(sessionID string, position int, ex interview.Exchange, status string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin append exchange: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertExchange(tx, sessionID, position, ex); err != nil {
		return err
	}
	if err := updateStatus(tx, sessionID, status); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append exchange: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordAnswer(sessionID string, position int, ex interview.Exchange, status string) error {
	if ex.Evaluation == nil {
		return fmt.Errorf("record answer for session %s: evaluation is required", sessionID)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin record answer: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`UPDATE exchanges
		 SET answer_audio = ?, transcript = ?, relevance = ?, clarity = ?, correctness = ?, feedback = ?
		 WHERE session_id = ? AND position = ?`,
		ex.AnswerAudio,
		strings.TrimSpace(ex.Transcript),
		ex.Evaluation.Relevance,
		ex.Evaluation.Clarity,
		ex.Evaluation.Correctness,
		ex.Evaluation.Feedback,
		sessionID,
		position,
	)
	if err != nil {
		return fmt.Errorf("record answer for session %s: %w", sessionID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record answer rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: session %s exchange %d", interview.ErrNotFound, sessionID, position)
	}

	if err := updateStatus(tx, sessionID, status); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record answer: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetSummary(sessionID string, sum interview.Summary, status string) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET overall_feedback = ?, strengths = ?, improvements = ?, status = ? WHERE id = ?`,
		sum.OverallFeedback,
		sum.Strengths,
		sum.Improvements,
		status,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("set summary for session %s: %w", sessionID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set summary rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", interview.ErrNotFound, sessionID)
	}
	return nil
}

// ListSessions returns all sessions without their exchanges, newest first.
func (s *SQLiteStore) ListSessions() ([]interview.Session, error) {
	rows, err := s.db.Query(
		`SELECT id, role, status, created_at FROM sessions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]interview.Session, 0, 16)
	for rows.Next() {
		var sess interview.Session
		var createdAt string
		if err := rows.Scan(&sess.ID, &sess.Role, &sess.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		sess.CreatedAt = parsed
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions rows: %w", err)
	}

	return sessions, nil
}

func (s *SQLiteStore) getExchanges(sessionID string) ([]interview.Exchange, error) {
	rows, err := s.db.Query(
		`SELECT question, question_audio, answer_audio, transcript, relevance, clarity, correctness, feedback
		 FROM exchanges
		 WHERE session_id = ?
		 ORDER BY position ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query exchanges for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	exchanges := make([]interview.Exchange, 0, 8)
	for rows.Next() {
		var ex interview.Exchange
		var relevance, clarity, correctness sql.NullInt64
		var feedback sql.NullString
		if err := rows.Scan(&ex.Question, &ex.QuestionAudio, &ex.AnswerAudio, &ex.Transcript, &relevance, &clarity, &correctness, &feedback); err != nil {
			return nil, fmt.Errorf("scan exchange for session %s: %w", sessionID, err)
		}

		if relevance.Valid {
			ex.Evaluation = &interview.Evaluation{
				Relevance:   int(relevance.Int64),
				Clarity:     int(clarity.Int64),
				Correctness: int(correctness.Int64),
				Feedback:    feedback.String,
			}
		}

		exchanges = append(exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchange rows for session %s: %w", sessionID, err)
	}

	return exchanges, nil
}

func insertExchange(tx *sql.Tx, sessionID string, position int, ex interview.Exchange) error {
	_, err := tx.Exec(
		`INSERT INTO exchanges(session_id, position, question, question_audio) VALUES(?, ?, ?, ?)`,
		sessionID,
		position,
		strings.TrimSpace(ex.Question),
		ex.QuestionAudio,
	)
	if err != nil {
		return fmt.Errorf("insert exchange %d for session %s: %w", position, sessionID, err)
	}
	return nil
}

func updateStatus(tx *sql.Tx, sessionID, status string) error {
	res, err := tx.Exec(`UPDATE sessions SET status = ? WHERE id = ?`, status, sessionID)
	if err != nil {
		return fmt.Errorf("update status for session %s: %w", sessionID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", interview.ErrNotFound, sessionID)
	}
	return nil
}
