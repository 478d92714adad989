package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Keys of the persisted record.
const (
	keyAccount     = "account"
	keyPosID       = "posId"
	keyAccessToken = "accessToken"
	keyScreen1Mode = "screen1Mode"
	keyScreen1URL  = "screen1Url"
	keyScreen2URL  = "screen2Url"
)

// legacyKeys are secrets older builds wrote into the record. Save strips them.
var legacyKeys = []string{"displayKey", "pinHash", "pin"}

// Fields are the user-editable configuration values.
type Fields struct {
	Account     string `json:"account"`
	PosID       string `json:"posId"`
	AccessToken string `json:"accessToken"`
	Screen1Mode string `json:"screen1Mode"`
}

// Record is the persisted document: the fields plus the derived URLs.
type Record struct {
	Fields
	URLs
}

// UIConfig is what the settings panel receives from getConfig.
type UIConfig struct {
	Account     string `json:"account"`
	PosID       string `json:"posId"`
	AccessToken string `json:"accessToken"`
	Screen1Mode string `json:"screen1Mode"`
	HasPin      bool   `json:"hasPin"`
}

// Runtime is what the window manager needs to boot the surfaces.
type Runtime struct {
	Screen1Mode string
	URLs
}

// Store reads and writes config.json. The file is the single source of
// truth; URLs in it are always re-derived from the fields.
type Store struct {
	path        string
	defaultPage string
}

// NewStore creates a store for the JSON document at path. defaultPage is
// the URL used when no target URL can be derived or read.
func NewStore(path, defaultPage string) *Store {
	return &Store{path: path, defaultPage: defaultPage}
}

// Path returns the config.json path.
func (s *Store) Path() string {
	return s.path
}

// Ensure writes an empty record when the file does not exist yet.
func (s *Store) Ensure() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	empty := map[string]any{
		keyAccount:     "",
		keyPosID:       "",
		keyAccessToken: "",
		keyScreen1Mode: ModePOS,
		keyScreen1URL:  "",
		keyScreen2URL:  "",
	}
	return s.write(empty)
}

// Read returns the persisted record. A missing or corrupt file yields an
// empty record alongside the error so callers can fall back and log.
func (s *Store) Read() (Record, error) {
	raw, err := s.readRaw()
	return recordFromRaw(raw), err
}

// LoadUI returns the settings-panel view of the configuration.
func (s *Store) LoadUI() UIConfig {
	rec, _ := s.Read()
	return UIConfig{
		Account:     strings.TrimSpace(rec.Account),
		PosID:       strings.TrimSpace(rec.PosID),
		AccessToken: strings.TrimSpace(rec.AccessToken),
		Screen1Mode: NormalizeMode(rec.Screen1Mode),
		HasPin:      true,
	}
}

// LoadRuntime returns the URLs to boot with. Derived URLs win over
// persisted ones; the default page fills anything still empty.
func (s *Store) LoadRuntime() Runtime {
	rec, _ := s.Read()
	mode := NormalizeMode(rec.Screen1Mode)
	derived := BuildURLs(rec.Account, rec.PosID, mode, rec.AccessToken)

	return Runtime{
		Screen1Mode: mode,
		URLs: URLs{
			Screen1: firstNonEmpty(derived.Screen1, rec.Screen1, s.defaultPage),
			Screen2: firstNonEmpty(derived.Screen2, rec.Screen2, s.defaultPage),
		},
	}
}

// Save persists f and the URLs derived from it, keeping unrelated keys of
// the existing document and dropping legacy secret keys.
func (s *Store) Save(f Fields) (Record, error) {
	f = Fields{
		Account:     strings.TrimSpace(f.Account),
		PosID:       strings.TrimSpace(f.PosID),
		AccessToken: strings.TrimSpace(f.AccessToken),
		Screen1Mode: NormalizeMode(f.Screen1Mode),
	}
	urls := BuildURLs(f.Account, f.PosID, f.Screen1Mode, f.AccessToken)

	existing, err := s.readRaw()
	if err != nil {
		existing = map[string]any{}
	}
	existing[keyAccount] = f.Account
	existing[keyPosID] = f.PosID
	existing[keyAccessToken] = f.AccessToken
	existing[keyScreen1Mode] = f.Screen1Mode
	existing[keyScreen1URL] = urls.Screen1
	existing[keyScreen2URL] = urls.Screen2
	for _, k := range legacyKeys {
		delete(existing, k)
	}

	if err := s.write(existing); err != nil {
		return Record{}, err
	}
	return Record{Fields: f, URLs: urls}, nil
}

func (s *Store) readRaw() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]any{}, err
	}

	raw := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[string]any{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return raw, nil
}

func (s *Store) write(doc map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

func recordFromRaw(raw map[string]any) Record {
	return Record{
		Fields: Fields{
			Account:     stringField(raw, keyAccount),
			PosID:       stringField(raw, keyPosID),
			AccessToken: stringField(raw, keyAccessToken),
			Screen1Mode: strings.TrimSpace(stringField(raw, keyScreen1Mode)),
		},
		URLs: URLs{
			Screen1: stringField(raw, keyScreen1URL),
			Screen2: stringField(raw, keyScreen2URL),
		},
	}
}

// stringField reads a string value, formatting numbers the way the web
// panel might have stored a numeric POS id.
func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
