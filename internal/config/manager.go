package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/crane-dl/crane/internal/types"
)

// Manager loads, persists, and merges the TOML configuration document.
type Manager struct {
	path   string
	config AppConfig
}

// Load reads the config at path, creating it with defaults if it does
// not yet exist.
func Load(path string) (*Manager, error) {
	if _, err := os.Stat(path); err == nil {
		contents, err := os.ReadFile(path)
		if err != nil {
			return nil, types.WrapError(types.ErrConfig, "failed to read config at "+path, err)
		}
		cfg := DefaultAppConfig()
		if _, err := toml.Decode(string(contents), &cfg); err != nil {
			return nil, types.WrapError(types.ErrConfig, "failed to parse config at "+path, err)
		}
		return &Manager{path: path, config: cfg}, nil
	} else if !os.IsNotExist(err) {
		return nil, types.WrapError(types.ErrConfig, "failed to stat config at "+path, err)
	}

	m := &Manager{path: path, config: DefaultAppConfig()}
	if err := m.Save(); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadSettings loads the config from the default location
// (GetConfigPath), the convenience entry point used by the CLI shell.
func LoadSettings() (*AppConfig, error) {
	m, err := Load(GetConfigPath())
	if err != nil {
		return nil, err
	}
	cfg := m.Get()
	return &cfg, nil
}

// Save writes the current configuration to its path, creating parent
// directories as needed.
func (m *Manager) Save() error {
	if parent := filepath.Dir(m.path); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return types.WrapError(types.ErrConfig, "failed to create config directory "+parent, err)
		}
	}

	f, err := os.Create(m.path)
	if err != nil {
		return types.WrapError(types.ErrConfig, "failed to write config to "+m.path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(m.config); err != nil {
		return types.WrapError(types.ErrConfig, "failed to serialize config", err)
	}
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() AppConfig { return m.config }

// Path returns the config file path this manager reads/writes.
func (m *Manager) Path() string { return m.path }

// Update deep-merges partial into the current config and saves it.
// partial is a JSON-shaped map (e.g. {"downloads": {"default_connections": 16}})
// so that only the named leaves are overwritten; unnamed fields are left
// untouched. Unknown keys are ignored.
func (m *Manager) Update(partial map[string]interface{}) error {
	currentJSON, err := json.Marshal(m.config)
	if err != nil {
		return types.WrapError(types.ErrConfig, "failed to serialize current config", err)
	}

	var current map[string]interface{}
	if err := json.Unmarshal(currentJSON, &current); err != nil {
		return types.WrapError(types.ErrConfig, "failed to decode current config", err)
	}

	mergeJSON(current, partial)

	mergedJSON, err := json.Marshal(current)
	if err != nil {
		return types.WrapError(types.ErrConfig, "failed to re-encode merged config", err)
	}

	var merged AppConfig
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return types.WrapError(types.ErrConfig, "failed to apply config update", err)
	}

	m.config = merged
	return m.Save()
}

// mergeJSON recursively merges source into target: nested objects merge
// key-by-key; any other value in source overwrites the corresponding
// value in target.
func mergeJSON(target, source map[string]interface{}) {
	for key, sourceVal := range source {
		if sourceMap, ok := sourceVal.(map[string]interface{}); ok {
			if targetMap, ok := target[key].(map[string]interface{}); ok {
				mergeJSON(targetMap, sourceMap)
				continue
			}
			target[key] = sourceMap
			continue
		}
		target[key] = sourceVal
	}
}

// Reset restores the default configuration and saves it.
func (m *Manager) Reset() error {
	m.config = DefaultAppConfig()
	return m.Save()
}

// ExportTo writes the current configuration to a different path without
// changing the manager's own path.
func (m *Manager) ExportTo(path string) error {
	if parent := filepath.Dir(path); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return types.WrapError(types.ErrConfig, "failed to create export directory "+parent, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return types.WrapError(types.ErrConfig, "failed to export config to "+path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(m.config); err != nil {
		return types.WrapError(types.ErrConfig, "failed to serialize config", err)
	}
	return nil
}

// ImportFrom loads configuration from path and saves it to the manager's
// own path.
func (m *Manager) ImportFrom(path string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return types.WrapError(types.ErrConfig, "failed to read import file "+path, err)
	}
	var cfg AppConfig
	if _, err := toml.Decode(string(contents), &cfg); err != nil {
		return types.WrapError(types.ErrConfig, "failed to parse import file "+path, err)
	}
	m.config = cfg
	return m.Save()
}
