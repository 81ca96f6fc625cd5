package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// DefaultSyncIntervalHours is used when the stored interval is absent.
	DefaultSyncIntervalHours = 12
	// MinSyncIntervalHours and MaxSyncIntervalHours bound the poll cycle.
	MinSyncIntervalHours = 1
	MaxSyncIntervalHours = 24
)

// KioskConfig is the kiosk runtime configuration persisted as config.json
// in the agent's data directory. Field names are part of the on-disk
// contract shared with the backend config endpoints.
type KioskConfig struct {
	APIURL       string     `json:"apiUrl"`
	KioskID      string     `json:"kioskId"`
	PosID        string     `json:"posId"`
	KioskNo      int        `json:"kioskNo"`
	DownloadPath string     `json:"downloadPath"`
	AutoSync     bool       `json:"autoSync"`
	SyncInterval int        `json:"syncInterval"`
	LastSync     *time.Time `json:"lastSync"`
}

// SyncIntervalHours returns the interval clamped to the allowed range.
func (k *KioskConfig) SyncIntervalHours() int {
	switch {
	case k.SyncInterval < MinSyncIntervalHours:
		return DefaultSyncIntervalHours
	case k.SyncInterval > MaxSyncIntervalHours:
		return MaxSyncIntervalHours
	default:
		return k.SyncInterval
	}
}

// Configured reports whether the kiosk identity has been set up.
func (k *KioskConfig) Configured() bool {
	return k.APIURL != "" && k.KioskID != ""
}

// Store loads and saves the kiosk configuration file. The agent is the
// only process touching the file, so no file locking is used.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store for <dataDir>/config.json.
func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, "config.json")}
}

// Path returns the config file location.
func (s *Store) Path() string { return s.path }

// Load reads the config file, creating and persisting a default one when
// it does not exist yet.
func (s *Store) Load() (*KioskConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		cfg := &KioskConfig{
			APIURL:       "http://localhost:8080/api",
			DownloadPath: filepath.Join(filepath.Dir(s.path), "videos"),
			AutoSync:     true,
			SyncInterval: DefaultSyncIntervalHours,
		}
		if err := s.write(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read kiosk config: %w", err)
	}

	var cfg KioskConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse kiosk config: %w", err)
	}
	return &cfg, nil
}

// Save persists the config. The write goes through a temp file and rename
// so a crash mid-write never leaves a truncated config behind.
func (s *Store) Save(cfg *KioskConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(cfg)
}

func (s *Store) write(cfg *KioskConfig) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode kiosk config: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write kiosk config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace kiosk config: %w", err)
	}
	return nil
}
