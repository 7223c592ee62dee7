package browser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileDeviceStore keeps the device id in a small file, the headless
// equivalent of the page's local storage entry.
type FileDeviceStore struct {
	Path string
	Log  *zap.SugaredLogger

	once sync.Once
	id   string
}

// ID returns the cached id, loading or creating it on first use.
func (s *FileDeviceStore) ID() string {
	s.once.Do(func() { s.id = s.LoadOrCreate() })
	return s.id
}

// LoadOrCreate returns the stored id or persists a new one. When storage is
// unusable it falls back to an ephemeral id.
func (s *FileDeviceStore) LoadOrCreate() string {
	if s.Path != "" {
		if b, err := os.ReadFile(s.Path); err == nil {
			if id := strings.TrimSpace(string(b)); id != "" {
				return id
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			s.warn(err)
			return uuid.NewString()
		}
	}
	id := uuid.NewString()
	if s.Path == "" {
		return id
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		s.warn(err)
		return id
	}
	if err := os.WriteFile(s.Path, []byte(id+"\n"), 0o600); err != nil {
		s.warn(err)
	}
	return id
}

func (s *FileDeviceStore) warn(err error) {
	if s.Log != nil {
		s.Log.Warnw("falling back to ephemeral chatkit device id", "path", s.Path, "err", err)
	}
}
