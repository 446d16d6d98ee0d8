// Package envfile reads the shared .env file and builds the environment handed
// to provisioning and launched plugins.
package envfile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alexisbeaulieu97/plugdeck/internal/textenc"
)

// Entry is one KEY=VALUE assignment from a .env file.
type Entry struct {
	Key   string
	Value string
	Line  int
}

// Parse reads flat KEY=VALUE text. Blank lines and lines starting with # are
// ignored, as are lines without "=". The first "=" separates key and value and
// both sides are trimmed. Quotes are kept as written. A repeated key keeps the
// last value but its first position.
func Parse(raw []byte) ([]Entry, error) {
	text, err := textenc.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode env file: %w", err)
	}

	var entries []Entry
	index := make(map[string]int)
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		entry := Entry{Key: key, Value: strings.TrimSpace(value), Line: i + 1}
		if pos, seen := index[key]; seen {
			entries[pos].Value = entry.Value
			continue
		}
		index[key] = len(entries)
		entries = append(entries, entry)
	}
	return entries, nil
}

// Load parses the file at path. A missing file yields no entries.
func Load(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	entries, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Keys returns the keys of entries in file order.
func Keys(entries []Entry) []string {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	return keys
}
