// Package config loads triage settings from .triage/config.toml.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed templates/config.tmpl
var configTemplateText string

const (
	// StateDir is the directory holding the config file, override database and debug log.
	StateDir = ".triage"
	// FileName is the name of the config file inside StateDir.
	FileName = "config.toml"
)

// Config represents the triage configuration.
type Config struct {
	Catalog CatalogConfig `toml:"catalog"`
	Output  OutputConfig  `toml:"output"`
	Input   InputConfig   `toml:"input"`
	Watch   WatchConfig   `toml:"watch"`
}

// CatalogConfig controls where response messages come from beyond the built-in set.
type CatalogConfig struct {
	// Path is an optional TOML file whose [responses] override the built-in ones.
	Path string `toml:"path"`

	// DB is the SQLite database holding responses edited with `triage catalog set`.
	// Relative paths are resolved against the state directory.
	// Defaults to "catalog.db" when not specified.
	DB string `toml:"db"`
}

// GetDB returns the override database path relative to stateDir.
func (c *CatalogConfig) GetDB(stateDir string) string {
	db := c.DB
	if db == "" {
		db = "catalog.db"
	}
	if filepath.IsAbs(db) {
		return db
	}
	return filepath.Join(stateDir, db)
}

// OutputConfig controls how reports are printed.
type OutputConfig struct {
	// Format is one of "text", "json", "yaml". Defaults to "text".
	Format string `toml:"format"`

	// Width is the wrap width for text output. Defaults to 80.
	Width int `toml:"width"`

	// Color enables colored text output. Defaults to true.
	Color *bool `toml:"color"`
}

// GetFormat returns the configured format, falling back to "text" for unknown values.
func (o *OutputConfig) GetFormat() string {
	switch strings.ToLower(o.Format) {
	case "json", "yaml":
		return strings.ToLower(o.Format)
	default:
		return "text"
	}
}

// GetWidth returns the wrap width.
func (o *OutputConfig) GetWidth() int {
	if o.Width <= 0 {
		return 80
	}
	return o.Width
}

// UseColor returns true if text output should be colored.
func (o *OutputConfig) UseColor() bool {
	if o.Color == nil {
		return true
	}
	return *o.Color
}

// InputConfig controls log preprocessing.
type InputConfig struct {
	// Normalize converts line endings and strips terminal escapes before checking.
	// Defaults to true.
	Normalize *bool `toml:"normalize"`
}

// ShouldNormalize returns true if logs should be normalized before evaluation.
func (i *InputConfig) ShouldNormalize() bool {
	if i.Normalize == nil {
		return true
	}
	return *i.Normalize
}

// WatchConfig contains `triage watch` timing.
type WatchConfig struct {
	// DebounceMillis coalesces bursts of writes. Defaults to 250.
	DebounceMillis *int `toml:"debounce_ms"`

	// DedupeMinutes is how long an unchanged file is remembered so rewrites with
	// identical content are not reported again. Defaults to 10.
	DedupeMinutes *int `toml:"dedupe_minutes"`
}

// GetDebounce returns the debounce interval.
func (w *WatchConfig) GetDebounce() time.Duration {
	if w.DebounceMillis != nil && *w.DebounceMillis > 0 {
		return time.Duration(*w.DebounceMillis) * time.Millisecond
	}
	return 250 * time.Millisecond
}

// GetDedupeTTL returns how long file digests are remembered.
func (w *WatchConfig) GetDedupeTTL() time.Duration {
	if w.DedupeMinutes != nil && *w.DedupeMinutes > 0 {
		return time.Duration(*w.DedupeMinutes) * time.Minute
	}
	return 10 * time.Minute
}

// LoadConfig reads and parses a config.toml file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("failed to parse config: unknown key %q", undecoded[0].String())
	}
	return &cfg, nil
}

// LoadOrDefault loads path, returning an empty config when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}

// DefaultPath returns the config path inside stateDir.
func DefaultPath(stateDir string) string {
	return filepath.Join(stateDir, FileName)
}

// configTemplateData holds the data used to render the config template.
type configTemplateData struct {
	CatalogPath string
	CatalogDB   string
	Format      string
	Width       int
	Color       bool
	Normalize   bool
	DebounceMS  int
	DedupeMin   int
}

// tomlString formats a string for TOML output with proper escaping.
func tomlString(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}

var configTemplate = template.Must(template.New("config").Funcs(template.FuncMap{
	"tomlString": tomlString,
}).Parse(configTemplateText))

// GenerateDocumentedConfig renders the config with comments describing every option.
func (c *Config) GenerateDocumentedConfig() (string, error) {
	data := configTemplateData{
		CatalogPath: c.Catalog.Path,
		CatalogDB:   c.Catalog.DB,
		Format:      c.Output.GetFormat(),
		Width:       c.Output.GetWidth(),
		Color:       c.Output.UseColor(),
		Normalize:   c.Input.ShouldNormalize(),
		DebounceMS:  int(c.Watch.GetDebounce() / time.Millisecond),
		DedupeMin:   int(c.Watch.GetDedupeTTL() / time.Minute),
	}
	if data.CatalogDB == "" {
		data.CatalogDB = "catalog.db"
	}

	var buf bytes.Buffer
	if err := configTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	return buf.String(), nil
}

// SaveDocumentedConfig writes the documented config to path, creating parent directories.
func (c *Config) SaveDocumentedConfig(path string) error {
	content, err := c.GenerateDocumentedConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0644)
}
