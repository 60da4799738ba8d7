package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"xcreator/pkg/domain"
)

const sessionFilename = "session.json"

// FileStore keeps the session as a JSON file under a base directory, the
// closest server-side analog to browser local storage.
type FileStore struct {
	path string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(baseDir string) (*FileStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("session base dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{path: filepath.Join(baseDir, sessionFilename)}, nil
}

func (f *FileStore) Save(s domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (f *FileStore) Load() (domain.Session, bool, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("read session file: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// A corrupt file is the same as no session.
		return domain.Session{}, false, nil
	}
	if sess.Token == "" {
		return domain.Session{}, false, nil
	}
	return sess, true, nil
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
