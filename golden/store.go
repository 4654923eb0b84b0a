// Package golden persists accepted scenario outputs and compares new runs
// against them. All records for one artifact id live in a single file and
// are flushed after every comparison that mutates them, so a crash
// mid-suite loses at most the in-flight record.
package golden

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Mode selects how Compare treats existing records.
type Mode int

const (
	// ModeNew accepts missing records and compares existing ones.
	ModeNew Mode = iota
	// ModeAll overwrites every record with the incoming value.
	ModeAll
)

// ParseMode maps the external switch value onto a Mode. Anything other
// than "all" is the safe comparison mode.
func ParseMode(s string) Mode {
	if s == "all" {
		return ModeAll
	}
	return ModeNew
}

// Outcome is the result of one comparison.
type Outcome struct {
	Pass    bool
	Updated bool   // a record was written (first run or update mode)
	Diff    string // human-readable diff, set on mismatch
}

// Store holds the golden records for one artifact id, keyed by scenario
// title. Titles are independent of each other.
type Store struct {
	path    string
	mode    Mode
	records map[string]string
}

// Open loads, or initialises, the record set for artifact in dir.
func Open(dir, artifact string, mode Mode) (*Store, error) {
	s := &Store{
		path:    filepath.Join(dir, artifact+".snap.json"),
		mode:    mode,
		records: map[string]string{},
	}
	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		// First run for this artifact.
	case err != nil:
		return nil, fmt.Errorf("golden: open %s: %w", s.path, err)
	default:
		if err := json.Unmarshal(data, &s.records); err != nil {
			return nil, fmt.Errorf("golden: parse %s: %w", s.path, err)
		}
	}
	return s, nil
}

// Compare checks actual against the record stored under title. In ModeNew
// a missing record is accepted and written; an existing one must be
// byte-equal. In ModeAll the record is always overwritten.
func (s *Store) Compare(actual, title string) (Outcome, error) {
	prev, exists := s.records[title]

	if s.mode == ModeAll || !exists {
		if exists && prev == actual {
			return Outcome{Pass: true}, nil
		}
		s.records[title] = actual
		if err := s.flush(); err != nil {
			return Outcome{}, err
		}
		return Outcome{Pass: true, Updated: true}, nil
	}

	if prev == actual {
		return Outcome{Pass: true}, nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(prev, actual, false)
	return Outcome{Diff: dmp.DiffPrettyText(diffs)}, nil
}

// Titles returns the recorded scenario titles in sorted order.
func (s *Store) Titles() []string {
	out := make([]string, 0, len(s.records))
	for k := range s.records {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Store) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("golden: mkdir %s: %w", filepath.Dir(s.path), err)
	}
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("golden: marshal: %w", err)
	}
	// Write-then-rename keeps prior records intact if the write dies.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("golden: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("golden: rename %s: %w", s.path, err)
	}
	return nil
}
