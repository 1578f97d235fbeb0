// Package history persists the recall list of submitted inputs between
// runs: one entry per line, oldest first, bounded in size.
package history

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxEntries bounds the persisted list when no maximum is given.
const DefaultMaxEntries = 1000

// Load reads at most limit entries from path, keeping the newest. A missing
// file yields an empty list.
func Load(path string, limit int) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		entries = append(entries, Unescape(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return Bound(entries, limit), nil
}

// Save writes the newest limit entries to path, replacing its contents.
func Save(path string, entries []string, limit int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".history-*")
	if err != nil {
		return fmt.Errorf("create history file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	for _, e := range Bound(entries, limit) {
		if strings.TrimSpace(e) == "" {
			continue
		}
		if _, err := w.WriteString(Escape(e) + "\n"); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write history: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close history: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Append adds entry to the list, dropping a duplicate of the previous
// entry, and bounds the result.
func Append(entries []string, entry string, limit int) []string {
	if strings.TrimSpace(entry) == "" {
		return entries
	}
	if n := len(entries); n > 0 && entries[n-1] == entry {
		return entries
	}
	return Bound(append(entries, entry), limit)
}

// Bound keeps the newest limit entries. limit <= 0 means DefaultMaxEntries.
func Bound(entries []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxEntries
	}
	if len(entries) <= limit {
		return entries
	}
	return append([]string(nil), entries[len(entries)-limit:]...)
}

// Escape encodes an entry onto a single line.
func Escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
	return r.Replace(s)
}

// Unescape reverses Escape.
func Unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
