package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileHistoryStore persists session transcripts as JSON files on disk. It is
// the fallback persistence layer when no database is configured, so sessions
// survive restarts.
type FileHistoryStore struct {
	dir string
}

func NewFileHistoryStore(dir string) *FileHistoryStore {
	return &FileHistoryStore{dir: dir}
}

type sessionFile struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}

func (f *FileHistoryStore) path(sessionID string) string {
	// Session ids are UUIDs; reject anything that could escape the directory.
	return filepath.Join(f.dir, sessionID+".json")
}

func validSessionID(sessionID string) bool {
	return sessionID != "" &&
		!strings.ContainsAny(sessionID, "/\\") &&
		sessionID != "." && sessionID != ".."
}

// Read loads a session transcript. A missing file yields (nil, nil).
func (f *FileHistoryStore) Read(sessionID string) ([]Message, error) {
	if !validSessionID(sessionID) {
		return nil, fmt.Errorf("invalid session id %q", sessionID)
	}
	b, err := os.ReadFile(f.path(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var sf sessionFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return nil, err
	}
	return sf.Messages, nil
}

// Write stores the full transcript for a session, replacing any prior file.
func (f *FileHistoryStore) Write(sessionID string, msgs []Message) error {
	if !validSessionID(sessionID) {
		return fmt.Errorf("invalid session id %q", sessionID)
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(sessionFile{SessionID: sessionID, Messages: msgs}, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path(sessionID) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path(sessionID))
}

// Clear removes a persisted session; missing files are not an error.
func (f *FileHistoryStore) Clear(sessionID string) error {
	if !validSessionID(sessionID) {
		return fmt.Errorf("invalid session id %q", sessionID)
	}
	if err := os.Remove(f.path(sessionID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
