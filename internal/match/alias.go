// Package match resolves free-text catalog item names to reference quotes
// through a versioned alias table with a direct-name fallback.
package match

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var defaultAliasYAML []byte

// Entry maps one canonical commodity key to its known name variants.
type Entry struct {
	Key     string   `yaml:"key"`
	Aliases []string `yaml:"names"`
}

// Table is an ordered, immutable alias table. Entry order is significant:
// the matcher honours declaration order when a name could hit several groups.
type Table struct {
	entries []Entry
}

// Entries returns the entries in declaration order.
func (t *Table) Entries() []Entry {
	return t.entries
}

// Len reports the number of alias groups.
func (t *Table) Len() int {
	return len(t.entries)
}

type tableFile struct {
	Aliases []Entry `yaml:"aliases"`
}

// ParseTable decodes an alias table from YAML, normalising keys and aliases
// to lowercase trimmed form.
func ParseTable(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse alias table: %w", err)
	}
	if len(file.Aliases) == 0 {
		return nil, fmt.Errorf("alias table has no entries")
	}

	entries := make([]Entry, 0, len(file.Aliases))
	seen := make(map[string]struct{}, len(file.Aliases))
	for i, raw := range file.Aliases {
		key := strings.ToLower(strings.TrimSpace(raw.Key))
		if key == "" {
			return nil, fmt.Errorf("alias entry %d has an empty key", i)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("alias key %q declared twice", key)
		}
		seen[key] = struct{}{}

		if len(raw.Aliases) == 0 {
			return nil, fmt.Errorf("alias key %q has no names", key)
		}
		aliases := make([]string, 0, len(raw.Aliases))
		for _, a := range raw.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" {
				return nil, fmt.Errorf("alias key %q has an empty name", key)
			}
			aliases = append(aliases, a)
		}
		entries = append(entries, Entry{Key: key, Aliases: aliases})
	}

	return &Table{entries: entries}, nil
}

// LoadTableFile reads an alias table from a YAML file on disk.
func LoadTableFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias table: %w", err)
	}
	return ParseTable(data)
}

var defaultTable *Table

func init() {
	table, err := ParseTable(defaultAliasYAML)
	if err != nil {
		panic("embedded alias table is malformed: " + err.Error())
	}
	defaultTable = table
}

// DefaultTable returns the embedded alias table.
func DefaultTable() *Table {
	return defaultTable
}
