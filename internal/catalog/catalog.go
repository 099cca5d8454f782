// Package catalog holds the response messages that detector rules resolve by key.
// A Catalog is built once and never modified afterwards, so it can be shared
// between goroutines without locking.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

//go:embed responses.toml
var defaultResponses []byte

// ErrEmptyMessage is returned when a catalog document maps a key to empty text.
var ErrEmptyMessage = errors.New("empty response message")

// Catalog is an immutable key to message mapping.
type Catalog struct {
	entries map[string]string
}

// document is the on-disk shape of a catalog file.
type document struct {
	Responses map[string]string `toml:"responses"`
}

// Build creates a catalog from one or more layers of entries.
// Later layers override earlier ones for the same key.
func Build(layers ...map[string]string) *Catalog {
	entries := make(map[string]string)
	for _, layer := range layers {
		for key, text := range layer {
			entries[key] = text
		}
	}
	return &Catalog{entries: entries}
}

// Lookup returns the message for key. The boolean is false when the key is absent.
func (c *Catalog) Lookup(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	text, ok := c.entries[key]
	return text, ok
}

// Keys returns all keys in sorted order.
func (c *Catalog) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Parse decodes a TOML catalog document with a [responses] table.
func Parse(data []byte) (map[string]string, error) {
	var doc document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for key, text := range doc.Responses {
		if text == "" {
			return nil, fmt.Errorf("key %q: %w", key, ErrEmptyMessage)
		}
	}
	if doc.Responses == nil {
		return map[string]string{}, nil
	}
	return doc.Responses, nil
}

// LoadFile reads and parses a catalog document from path.
func LoadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Defaults returns the stock responses shipped with the binary.
func Defaults() (map[string]string, error) {
	return Parse(defaultResponses)
}
