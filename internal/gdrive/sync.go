// Package gdrive backs up the session database and audio artifacts to a
// Google Drive folder using a service account.
package gdrive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type Syncer struct {
	service  *drive.Service
	folderID string
	fileIDs  map[string]string
	mu       sync.Mutex
}

func NewSyncer(ctx context.Context, credPath, folderID string) (*Syncer, error) {
	creds, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	config, err := google.CredentialsFromJSONWithTypeAndParams(ctx, creds, google.ServiceAccount, google.CredentialsParams{Scopes: []string{drive.DriveFileScope}})
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(config))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Syncer{
		service:  svc,
		folderID: folderID,
		fileIDs:  make(map[string]string),
	}, nil
}

// SyncFile uploads localPath as-is, creating the remote file on first sync
// and updating it in place afterwards. Remote names carry a preptalk- prefix
// so shared folders stay legible.
func (s *Syncer) SyncFile(localPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	name := "preptalk-" + filepath.Base(localPath)

	if fileID, ok := s.fileIDs[name]; ok {
		_, err = s.service.Files.Update(fileID, &drive.File{}).Media(f).Do()
		if err != nil {
			return fmt.Errorf("drive update %s: %w", name, err)
		}
		return nil
	}

	created, err := s.service.Files.Create(&drive.File{
		Name:    name,
		Parents: []string{s.folderID},
	}).Media(f).Do()
	if err != nil {
		return fmt.Errorf("drive create %s: %w", name, err)
	}

	s.fileIDs[name] = created.Id
	return nil
}

// SyncDir uploads every regular file directly under dir. Errors are collected
// so one bad artifact does not stop the rest of the backup.
func (s *Syncer) SyncDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}

	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := s.SyncFile(filepath.Join(dir, entry.Name())); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
