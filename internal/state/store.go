// Package state persists the tool's notion of "the container I was using
// last" between sessions: tracked container records plus the defaults seeded
// from them. The record lives as a JSON file under the user config dir. A
// missing or corrupt file must never prevent the tool from starting, so Load
// degrades to defaults instead of failing.
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultHostPort seeds the port prompt when no record exists yet.
const DefaultHostPort = 8090

// ContainerRecord is the persisted identity and configuration of one
// managed container. Identity fields are written once at creation and only
// mutated by the session that owns the store.
type ContainerRecord struct {
	ID        string `json:"id" mapstructure:"id"`
	Name      string `json:"name" mapstructure:"name"`
	Image     string `json:"image" mapstructure:"image"`
	HostPort  int    `json:"host_port" mapstructure:"host_port"`
	DataDir   string `json:"data_dir,omitempty" mapstructure:"data_dir"`
	Mode      string `json:"mode" mapstructure:"mode"`
	LastStart string `json:"last_start,omitempty" mapstructure:"last_start"`
}

// Preferences is the full persisted record: every tracked container plus
// which one the operator used last.
type Preferences struct {
	Containers map[string]ContainerRecord `json:"containers" mapstructure:"containers"`
	LastUsed   string                     `json:"last_used,omitempty" mapstructure:"last_used"`
}

// DefaultPreferences returns an empty, usable record.
func DefaultPreferences() Preferences {
	return Preferences{Containers: map[string]ContainerRecord{}}
}

// Put tracks a record and marks it as last used.
func (p *Preferences) Put(rec ContainerRecord) {
	if p.Containers == nil {
		p.Containers = map[string]ContainerRecord{}
	}
	p.Containers[rec.ID] = rec
	p.LastUsed = rec.ID
}

// Remove drops a record. The last-used pointer is cleared when it referred
// to the removed container.
func (p *Preferences) Remove(containerID string) {
	delete(p.Containers, containerID)
	if p.LastUsed == containerID {
		p.LastUsed = ""
	}
}

// LastUsedRecord returns the record the operator used last, if it is still
// tracked.
func (p *Preferences) LastUsedRecord() (ContainerRecord, bool) {
	rec, ok := p.Containers[p.LastUsed]
	return rec, ok && p.LastUsed != ""
}

// DefaultSettings seeds the configuration prompts from the most recently
// started record, falling back to the stock defaults.
func (p *Preferences) DefaultSettings() (hostPort int, dataDir, mode string) {
	hostPort, dataDir, mode = DefaultHostPort, "", "background"

	var newest string
	for _, rec := range p.Containers {
		// RFC3339 strings compare chronologically; empty sorts first.
		if rec.LastStart >= newest && rec.LastStart != "" {
			newest = rec.LastStart
			hostPort, dataDir, mode = rec.HostPort, rec.DataDir, rec.Mode
		}
	}
	return hostPort, dataDir, mode
}

// Store reads and writes the preferences file. It is a single-writer
// resource: one session mutates it sequentially, so no locking happens here.
type Store struct {
	path string
}

// NewStore opens a store at the given path, or at the platform default
// location when path is empty.
func NewStore(path string) (*Store, error) {
	if path == "" {
		def, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = def
	}
	return &Store{path: path}, nil
}

// DefaultPath is the platform config location for the preferences record.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	return filepath.Join(base, "flok", "config.json"), nil
}

// Path returns the file backing this store.
func (s *Store) Path() string {
	return s.path
}

// Load reads the preferences record. Any failure — missing file, unreadable
// file, malformed content — degrades to default preferences.
func (s *Store) Load() Preferences {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return DefaultPreferences()
	}

	var prefs Preferences
	if err := v.Unmarshal(&prefs); err != nil {
		return DefaultPreferences()
	}
	if prefs.Containers == nil {
		prefs.Containers = map[string]ContainerRecord{}
	}
	return prefs
}

// Save writes the record. The in-memory state is authoritative even when the
// write fails; the next successful save reconciles.
func (s *Store) Save(prefs Preferences) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	v.Set("containers", prefs.Containers)
	v.Set("last_used", prefs.LastUsed)

	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}
