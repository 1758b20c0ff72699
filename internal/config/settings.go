package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

type SettingsFormat string

const (
	SettingsFormatTOML SettingsFormat = "toml"
	SettingsFormatJSON SettingsFormat = "json"
)

type Settings struct {
	DefaultTheme       string         `json:"default_theme"       toml:"default_theme"`
	DefaultEnvironment string         `json:"default_environment" toml:"default_environment"`
	Proxy              string         `json:"proxy"               toml:"proxy"`
	InsecureTLS        bool           `json:"insecure_tls"        toml:"insecure_tls"`
	HandshakeTimeoutMS int            `json:"handshake_timeout_ms" toml:"handshake_timeout_ms"`
	Layout             LayoutSettings `json:"layout"              toml:"layout"`
}

// SettingsHandle remembers which file settings came from so a later save
// writes back to the same place in the same format.
type SettingsHandle struct {
	Path   string
	Format SettingsFormat
}

// LoadSettings reads settings.toml or settings.json from the config dir, TOML
// preferred. A missing file skips to the next candidate; a file that exists
// but fails to parse is an error, never silently replaced with defaults.
func LoadSettings() (Settings, SettingsHandle, error) {
	dir := Dir()
	candidates := []SettingsHandle{
		{Path: filepath.Join(dir, "settings.toml"), Format: SettingsFormatTOML},
		{Path: filepath.Join(dir, "settings.json"), Format: SettingsFormatJSON},
	}

	var readErrs error
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			readErrs = errors.Join(readErrs, fmt.Errorf("read settings %q: %w", candidate.Path, err))
			continue
		}

		var settings Settings
		if err := unmarshalSettings(data, candidate.Format, &settings); err != nil {
			return Settings{}, SettingsHandle{}, fmt.Errorf("parse settings %q: %w", candidate.Path, err)
		}
		settings.Layout = NormaliseLayoutSettings(settings.Layout)
		return settings, candidate, nil
	}

	if readErrs != nil {
		return Settings{}, SettingsHandle{}, readErrs
	}
	return Settings{Layout: DefaultLayoutSettings()}, candidates[0], nil
}

// SaveSettings persists settings to the handle's file, defaulting to
// settings.toml in the config dir. The write goes through a temp file and
// rename so a crash mid-write never leaves a truncated settings file.
func SaveSettings(settings Settings, handle SettingsHandle) error {
	settings.Layout = NormaliseLayoutSettings(settings.Layout)
	if handle.Path == "" {
		handle.Path = filepath.Join(Dir(), "settings.toml")
	}
	if handle.Format == "" {
		handle.Format = SettingsFormatTOML
	}

	if err := os.MkdirAll(filepath.Dir(handle.Path), 0o755); err != nil {
		return fmt.Errorf("ensure settings directory: %w", err)
	}

	data, err := marshalSettings(settings, handle.Format)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := writeFileAtomic(handle.Path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %q: %w", handle.Path, err)
	}
	return nil
}

func unmarshalSettings(data []byte, format SettingsFormat, out *Settings) error {
	switch format {
	case SettingsFormatTOML:
		return toml.Unmarshal(data, out)
	case SettingsFormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(out)
	default:
		return fmt.Errorf("unsupported settings format %q", format)
	}
}

func marshalSettings(settings Settings, format SettingsFormat) ([]byte, error) {
	switch format {
	case SettingsFormatTOML:
		return toml.Marshal(settings)
	case SettingsFormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(settings); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported settings format %q", format)
	}
}

func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wsterm-settings-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, writeErr := tmp.Write(data)
	if writeErr == nil {
		writeErr = tmp.Chmod(perm)
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return writeErr
	}
	return os.Rename(tmpPath, path)
}
