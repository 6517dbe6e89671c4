package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// VirtualPortConfig names the port the host application opens
type VirtualPortConfig struct {
	Name       string `json:"name"`
	BufferSize int    `json:"bufferSize"`
}

// Config is the main configuration structure
type Config struct {
	LastDevice  string            `json:"lastDevice,omitempty"`
	AutoResume  bool              `json:"autoResume"`
	VirtualPort VirtualPortConfig `json:"virtualPort"`
	Palette     string            `json:"palette,omitempty"` // GIMP .gpl file for the TUI
	Debug       bool              `json:"debug,omitempty"`

	path string
	mu   sync.Mutex
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		AutoResume: true,
		VirtualPort: VirtualPortConfig{
			Name:       "Virtual LPD8VMCL",
			BufferSize: 65535,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "vmidi-bridge"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path; a missing file yields defaults that
// will be saved to path.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Fill what an older or hand-edited file left out
	def := DefaultConfig()
	if cfg.VirtualPort.Name == "" {
		cfg.VirtualPort.Name = def.VirtualPort.Name
	}
	if cfg.VirtualPort.BufferSize <= 0 {
		cfg.VirtualPort.BufferSize = def.VirtualPort.BufferSize
	}

	return cfg, nil
}

// Path is where Save writes
func (c *Config) Path() string {
	return c.path
}

// Save writes the config to disk
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save()
}

func (c *Config) save() error {
	path := c.path
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// RememberDevice persists the device of a successfully started session
func (c *Config) RememberDevice(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastDevice = name
	return c.save()
}

// ForgetDevice removes the persisted device after a reset
func (c *Config) ForgetDevice() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastDevice = ""
	return c.save()
}

// ResumeDevice returns the device to start automatically, if any
func (c *Config) ResumeDevice() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.AutoResume || c.LastDevice == "" {
		return "", false
	}
	return c.LastDevice, true
}
