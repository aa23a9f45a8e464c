package config

import (
	"fmt"
	"sync"
)

// FileStore keeps the motion settings in memory and persists them to the
// YAML file they were loaded from. An empty path keeps them in memory only.
type FileStore struct {
	mu   sync.Mutex
	path string
	cfg  *Config
}

// NewFileStore wraps cfg, saving to path on every SaveMotion.
func NewFileStore(path string, cfg *Config) *FileStore {
	return &FileStore{path: path, cfg: cfg}
}

// Motion returns the current motion settings.
func (s *FileStore) Motion() MotionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Motion
}

// SaveMotion validates m and stores it. The file on disk is re-read and
// only its motion section replaced, so env and command-line overrides held
// in memory are never written back.
func (s *FileStore) SaveMotion(m MotionConfig) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("save motion: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		disk, err := Load(s.path)
		if err != nil {
			return fmt.Errorf("save motion: %w", err)
		}
		disk.Motion = m
		if err := Save(s.path, disk); err != nil {
			return err
		}
	}
	s.cfg.Motion = m
	return nil
}
