package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type GestureConfig struct {
	Modifier string   `toml:"modifier"` // alt, ctrl, shift or meta
	Keys     []string `toml:"keys"`     // key codes that arm the gesture
}

type VaultConfig struct {
	Root         string   `toml:"root"`
	Extensions   []string `toml:"extensions"`
	PollInterval int      `toml:"poll_interval"` // seconds, 0 disables polling
}

func (v VaultConfig) PollDuration() time.Duration {
	if v.PollInterval > 0 {
		return time.Duration(v.PollInterval) * time.Second
	}
	return 0
}

// IsDocument reports whether path has one of the markdown extensions.
func (v VaultConfig) IsDocument(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range v.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

type LogConfig struct {
	Level       string `toml:"level"` // none, normal or debug
	Destination string `toml:"destination"`
}

type Config struct {
	Gesture GestureConfig `toml:"gesture"`
	Vault   VaultConfig   `toml:"vault"`
	Log     LogConfig     `toml:"log"`
}

func defaultConfig() *Config {
	return &Config{
		Gesture: GestureConfig{
			Modifier: "alt",
			Keys:     []string{"AltLeft"},
		},
		Vault: VaultConfig{
			Root:       ".",
			Extensions: []string{".md"},
		},
		Log: LogConfig{
			Level: "normal",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if !(Modifiers{Alt: true, Ctrl: true, Shift: true, Meta: true}).Held(c.Gesture.Modifier) {
		return fmt.Errorf("unknown gesture modifier %q", c.Gesture.Modifier)
	}
	if len(c.Gesture.Keys) == 0 {
		return errors.New("gesture needs at least one key")
	}
	for _, key := range c.Gesture.Keys {
		if !modifierKey(c.Gesture.Modifier, key) {
			return fmt.Errorf("gesture key %q is not a %s key", key, c.Gesture.Modifier)
		}
	}
	if len(c.Vault.Extensions) == 0 {
		return errors.New("vault needs at least one document extension")
	}
	switch c.Log.Level {
	case "none", "normal", "debug":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// modifierKeyPrefixes maps a modifier name to the key codes that produce it.
var modifierKeyPrefixes = map[string][]string{
	"alt":     {"Alt"},
	"ctrl":    {"Control"},
	"control": {"Control"},
	"shift":   {"Shift"},
	"meta":    {"Meta", "OS"},
	"cmd":     {"Meta", "OS"},
}

// modifierKey reports whether key code sets the modifier flag. A key that
// does not would arm the gesture and then fail the check on every wheel tick.
func modifierKey(modifier, key string) bool {
	for _, prefix := range modifierKeyPrefixes[strings.ToLower(modifier)] {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		switch strings.TrimPrefix(key, prefix) {
		case "", "Left", "Right":
			return true
		}
	}
	return false
}

// DumpConfig writes cfg as TOML.
func DumpConfig(w io.Writer, cfg *Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}
