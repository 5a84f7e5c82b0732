package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultService = "https://bsky.social"
	DefaultAPI     = "https://api.aeolius.p8.lu"
)

// Prefs is what the terminal client remembers between runs. The app
// password is kept in plain text, the file is only readable by its owner.
type Prefs struct {
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Service  string `yaml:"service"`
	API      string `yaml:"api"`
}

// DefaultPrefs points at the public Bluesky PDS and Aeolius manager.
func DefaultPrefs() Prefs {
	return Prefs{Service: DefaultService, API: DefaultAPI}
}

// DefaultPrefsPath returns prefs.yaml in the user's config directory.
func DefaultPrefsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not find config directory: %w", err)
	}
	return filepath.Join(dir, "aeolius", "prefs.yaml"), nil
}

// LoadPrefs reads prefs from path. A missing file yields DefaultPrefs; blank
// fields are filled from DefaultPrefs.
func LoadPrefs(path string) (Prefs, error) {
	p := DefaultPrefs()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return Prefs{}, fmt.Errorf("could not read prefs: %w", err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prefs{}, fmt.Errorf("could not parse prefs %s: %w", path, err)
	}

	if p.Service == "" {
		p.Service = DefaultService
	}
	if p.API == "" {
		p.API = DefaultAPI
	}
	return p, nil
}

// Save writes p to path, creating its directory.
func (p Prefs) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("could not create prefs directory: %w", err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("could not encode prefs: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("could not write prefs: %w", err)
	}
	return nil
}

// ForgetPassword clears the saved app password. The username is kept to
// prefill the next login.
func (p *Prefs) ForgetPassword() {
	p.Password = ""
}
