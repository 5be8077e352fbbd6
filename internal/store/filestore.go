package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-activity/internal/config"
)

// FileStore persists the three documents as JSON files. Every save writes to
// a temporary file and renames it over the target so a crash mid-write never
// truncates a document.
type FileStore struct {
	activityPath string
	messagesPath string
	configPath   string
	logger       *zap.Logger
}

// NewFileStore prepares the data directory and returns a file-backed store.
func NewFileStore(cfg config.StorageConfig, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{
		activityPath: filepath.Join(cfg.DataDir, cfg.ActivityFile),
		messagesPath: filepath.Join(cfg.DataDir, cfg.MessagesFile),
		configPath:   filepath.Join(cfg.DataDir, cfg.ConfigFile),
		logger:       logger,
	}, nil
}

// LoadActivity reads the activity document, falling back to an empty
// snapshot when the file is missing or unreadable.
func (s *FileStore) LoadActivity(_ context.Context, fallbackGuild int64) (*ActivitySnapshot, error) {
	data, err := s.readFile(s.activityPath)
	if err != nil {
		return nil, err
	}
	snap, err := decodeActivity(data, fallbackGuild)
	if err != nil {
		s.logger.Warn("activity document unreadable; starting fresh",
			zap.String("path", s.activityPath), zap.Error(err))
		return NewActivitySnapshot(), nil
	}
	return snap, nil
}

// SaveActivity writes the activity document atomically.
func (s *FileStore) SaveActivity(_ context.Context, snap *ActivitySnapshot) error {
	data, err := encodeActivity(snap)
	if err != nil {
		return err
	}
	return s.writeAtomic(s.activityPath, data)
}

// LoadMessages reads the message-log document.
func (s *FileStore) LoadMessages(_ context.Context) (MessageLog, error) {
	data, err := s.readFile(s.messagesPath)
	if err != nil {
		return nil, err
	}
	log, err := decodeMessages(data)
	if err != nil {
		s.logger.Warn("message log unreadable; starting fresh",
			zap.String("path", s.messagesPath), zap.Error(err))
		return make(MessageLog), nil
	}
	return log, nil
}

// SaveMessages writes the message-log document atomically.
func (s *FileStore) SaveMessages(_ context.Context, log MessageLog) error {
	data, err := encodeMessages(log)
	if err != nil {
		return err
	}
	return s.writeAtomic(s.messagesPath, data)
}

// LoadConfig reads the config document, creating the default one on first
// run so the file exists for operators to inspect.
func (s *FileStore) LoadConfig(ctx context.Context) (*Config, error) {
	data, err := s.readFile(s.configPath)
	if err != nil {
		return nil, err
	}
	if data == nil {
		cfg := DefaultConfig()
		if err := s.SaveConfig(ctx, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	cfg, err := decodeConfig(data)
	if err != nil {
		s.logger.Warn("config document unreadable; using defaults",
			zap.String("path", s.configPath), zap.Error(err))
		return DefaultConfig(), nil
	}
	return cfg, nil
}

// SaveConfig writes the config document atomically.
func (s *FileStore) SaveConfig(_ context.Context, cfg *Config) error {
	data, err := encodeConfig(cfg)
	if err != nil {
		return err
	}
	return s.writeAtomic(s.configPath, data)
}

// Ping reports whether the data directory is writable.
func (s *FileStore) Ping(context.Context) error {
	dir := filepath.Dir(s.activityPath)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func (s *FileStore) readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (s *FileStore) writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
