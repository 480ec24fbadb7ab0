package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
)

const (
	AppName  = "go_adb_apps"
	FileName = "config.json"
)

// Config is the persisted user configuration. An empty AdbPath means auto-detect.
type Config struct {
	AdbPath string `json:"adb_path"`
}

// Parse reads a config document. Unknown keys are ignored.
func Parse(data []byte) (Config, error) {
	if len(data) == 0 {
		return Config{}, nil
	}
	if !gjson.ValidBytes(data) {
		return Config{}, errors.New("invalid config: not a JSON document")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Config{}, errors.New("invalid config: expected a JSON object")
	}
	return Config{AdbPath: root.Get("adb_path").String()}, nil
}

// DefaultPath returns <user config dir>/go_adb_apps/config.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName, FileName), nil
}

// Store is a config file on disk with its last loaded value.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// Open loads the config at path. A missing file yields an empty config.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Load(); err != nil {
		return s, err
	}
	return s, nil
}

func OpenDefault() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.set(Config{})
		return nil
	}
	if err != nil {
		return err
	}

	cfg, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}
	s.set(cfg)
	return nil
}

// Save writes the current config atomically.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.Config(), "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+FileName+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Store) AdbPath() string {
	return s.Config().AdbPath
}

// SetAdbPath updates and persists the adb path.
func (s *Store) SetAdbPath(path string) error {
	s.mu.Lock()
	s.cfg.AdbPath = path
	s.mu.Unlock()
	return s.Save()
}

func (s *Store) set(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}
