package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the root configuration for grindsync, stored in
// ~/.grindsync/config.json. The file supports single-line // comments
// for documentation purposes.
type Config struct {
	// HoursPerWorkday is the overtime baseline: a month's expected total
	// is workdays × this value.
	HoursPerWorkday float64 `json:"hours_per_workday"`
	// DefaultConnection is the connection name used when a command is
	// run without --connection.
	DefaultConnection string `json:"default_connection"`
	// Timezone is the IANA timezone for report day boundaries
	// (e.g. "Europe/Brussels"). Empty = local time.
	Timezone string `json:"timezone"`
}

// DefaultHoursPerWorkday is the expected logged hours per workday.
const DefaultHoursPerWorkday = 8

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig() Config {
	return Config{
		HoursPerWorkday: DefaultHoursPerWorkday,
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// grindsync configuration – ~/.grindsync/config.json
//
// All settings are optional; the built-in defaults shown below work out
// of the box. Edit this file to customise grindsync behaviour.
{
  // Expected logged hours per workday. The monthly overview computes
  // overtime as: total − (workdays × hours_per_workday).
  "hours_per_workday": 8,

  // Connection name used when --connection is not given.
  // Manage connections with: grindsync connection add
  "default_connection": "",

  // IANA timezone for report day boundaries, e.g. "Europe/Brussels".
  // Leave empty to use the system local time.
  "timezone": ""
}
`

// BaseDir returns the root data directory (~/.grindsync).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".grindsync"), nil
}

// configFilePath returns the path to ~/.grindsync/config.json.
func configFilePath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads ~/.grindsync/config.json, creating it with annotated
// defaults on first run. Lines starting with // are treated as comments
// and stripped before JSON parsing.
func Load() (Config, error) {
	path, err := configFilePath()
	if err != nil {
		return defaultConfig(), err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return defaultConfig(), nil
	}
	if err != nil {
		return defaultConfig(), fmt.Errorf("reading config file %s: %w", path, err)
	}

	cleaned := stripLineComments(data)
	var cfg Config
	if err := json.Unmarshal(cleaned, &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}

	// Fill zero-value fields with built-in defaults so callers always get
	// a usable Config even if the user only partially fills in the file.
	if cfg.HoursPerWorkday <= 0 {
		cfg.HoursPerWorkday = DefaultHoursPerWorkday
	}

	return cfg, nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
