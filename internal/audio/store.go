// Package audio owns the on-disk artifact directory: synthesized question
// narration and archived answer uploads, addressed by opaque filename.
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/google/uuid"
)

var filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+\.[a-zA-Z0-9]+$`)

type Store struct {
	dir string
	mu  sync.Mutex
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// SaveNarration writes synthesized question audio and returns its filename.
func (s *Store) SaveNarration(data []byte) (string, error) {
	return s.save("audio_"+uuid.NewString()+".mp3", data)
}

// SaveAnswer archives a raw answer upload and returns its filename.
func (s *Store) SaveAnswer(data []byte) (string, error) {
	return s.save("answer_"+uuid.NewString()+".webm", data)
}

func (s *Store) save(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return name, nil
}

// Path resolves a filename reference to its absolute location, rejecting
// anything that could escape the audio directory.
func (s *Store) Path(name string) (string, error) {
	if !ValidFilename(name) {
		return "", fmt.Errorf("invalid audio filename %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// ValidFilename reports whether name is a bare artifact filename with no
// path separators or traversal.
func ValidFilename(name string) bool {
	return filenamePattern.MatchString(name)
}

// ContentType maps an artifact filename to its MIME type.
func ContentType(name string) string {
	switch filepath.Ext(name) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".webm":
		return "audio/webm"
	case ".ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
