package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the external POS record.
	ConfigFileName = "config.json"
	// SettingsFileName holds orchestrator settings.
	SettingsFileName = "kiosk.yaml"
)

// ConfigPath returns config.json inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}

// SettingsPath returns kiosk.yaml inside dataDir.
func SettingsPath(dataDir string) string {
	return filepath.Join(dataDir, SettingsFileName)
}

// LoadSettings reads kiosk.yaml from path on top of the defaults. A missing
// file yields the defaults; unknown keys are an error.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := decodeStrictYAML(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return s, nil
}

// MarshalSettings renders settings as YAML, for `flickpos config show`.
func MarshalSettings(s *Settings) ([]byte, error) {
	return yaml.Marshal(s)
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}
