package tokenstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FileStore keeps the credential pair in a JSON file. Default backend for the
// CLI; the file survives process restarts until explicitly cleared.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// NewFileStore builds a file-backed store at path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Get reads the stored pair. A missing, unreadable, or partially written file
// reads as empty.
func (s *FileStore) Get() (Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("token store read failed", zap.Error(err))
		}
		return Credentials{}, false
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		s.logger.Warn("token store corrupt, treating as empty", zap.Error(err))
		return Credentials{}, false
	}
	if creds.AccessToken == "" {
		return Credentials{}, false
	}
	return creds, true
}

// Set persists the pair.
func (s *FileStore) Set(creds Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(creds)
}

// SetAccessToken replaces only the access slot.
func (s *FileStore) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds := Credentials{AccessToken: token}
	if data, err := os.ReadFile(s.path); err == nil {
		var prev Credentials
		if json.Unmarshal(data, &prev) == nil {
			creds.RefreshToken = prev.RefreshToken
		}
	}
	s.write(creds)
}

// Clear removes the file; clearing an empty store is a no-op.
func (s *FileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("token store clear failed", zap.Error(err))
	}
}

func (s *FileStore) write(creds Credentials) {
	data, err := json.Marshal(creds)
	if err != nil {
		s.logger.Warn("token store encode failed", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		s.logger.Warn("token store mkdir failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.logger.Warn("token store write failed", zap.Error(err))
	}
}
