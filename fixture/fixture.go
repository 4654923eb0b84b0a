// Package fixture loads the named HTML documents that drive harness
// scenarios. Fixtures are read once per suite and are immutable for the
// suite's lifetime.
package fixture

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// IgnoreSuffix marks editor backup files. Entries carrying it are skipped
// at load time so a half-edited fixture never runs as a scenario.
const IgnoreSuffix = "~"

// Fixture is one named markup input. Name is the slash-separated path
// relative to the fixture root and identifies the fixture.
type Fixture struct {
	Name       string
	Path       string
	Content    string
	Title      string // document <title>, empty if none
	HasDoctype bool
}

// List loads every .html fixture under dir, ordered by name. Backup
// entries and non-HTML files are excluded.
func List(dir string) ([]Fixture, error) {
	var out []Fixture
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		base := d.Name()
		if strings.HasSuffix(base, IgnoreSuffix) || !strings.HasSuffix(base, ".html") {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		f := Fixture{
			Name:    filepath.ToSlash(rel),
			Path:    p,
			Content: string(data),
		}
		f.Title, f.HasDoctype = probe(f.Content)
		out = append(out, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fixture: list %s: %w", dir, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// probe parses the markup once to pick up the document title and whether a
// doctype is present. Parse problems are not fatal: a fixture may be
// deliberately malformed to provoke quirks behaviour.
func probe(content string) (title string, hasDoctype bool) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", false
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.DoctypeNode:
			hasDoctype = true
		case html.ElementNode:
			if n.Data == "title" && title == "" && n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title, hasDoctype
}
