package harness

import (
	"path"
	"strings"

	"github.com/domtrip/domtrip/fixture"
)

// Nav is a navigation strategy.
type Nav int

const (
	// NavServe navigates to the fixture's directory and then injects the
	// raw markup with SetContent. Relative URLs resolve as if the markup
	// were served from that directory, while the markup itself needs no
	// fetchable URL.
	NavServe Nav = iota
	// NavDirect navigates to the fixture's own URL. Required whenever the
	// rendering mode depends on how the document was parsed; SetContent
	// does not reproduce quirks-mode detection faithfully.
	NavDirect
)

// Verify is a result-verification strategy.
type Verify int

const (
	// VerifyGolden routes the result to the golden store.
	VerifyGolden Verify = iota
	// VerifyInline checks the result against literal expectations.
	VerifyInline
)

// Kind selects the driver script evaluated in the page.
type Kind int

const (
	// KindRoundTrip snapshots, rebuilds into the same document and
	// re-serializes; the result is normalized markup.
	KindRoundTrip Kind = iota
	// KindStructured returns the snapshot itself as JSON, without
	// re-serializing; shadow trees and frame content stay visible.
	KindStructured
	// KindQuirks checks rendering-mode propagation through rebuild.
	KindQuirks
	// KindMetric compares a layout metric before and after round-trip.
	KindMetric
)

// Scenario is a stateless description of one executable test unit.
type Scenario struct {
	Title    string
	Path     string // request path under the serve root
	Content  string // raw markup, used by NavServe
	Nav      Nav
	Kind     Kind
	Verify   Verify
	Selector string // measured element, KindMetric only
}

// Derive builds the default round-trip scenario for a fixture. Fixtures
// without a doctype, and those named with the compat-mode prefix, load
// directly so the browser parses them the way a real navigation would.
func Derive(f fixture.Fixture, fixturesDir string) Scenario {
	nav := NavServe
	if !f.HasDoctype || strings.HasPrefix(path.Base(f.Name), "compat-mode") {
		nav = NavDirect
	}
	return Scenario{
		Title:   f.Name,
		Path:    path.Join(fixturesDir, f.Name),
		Content: f.Content,
		Nav:     nav,
		Kind:    KindRoundTrip,
		Verify:  VerifyGolden,
	}
}

// Specials returns the fixed edge-case scenarios rooted under specialDir.
// Each is an independent literal or structured-golden check.
func Specials(specialDir string) []Scenario {
	return []Scenario{
		{
			Title:  "quirks mode propagation",
			Path:   path.Join(specialDir, "quirks-parent.html"),
			Nav:    NavDirect,
			Kind:   KindQuirks,
			Verify: VerifyInline,
		},
		{
			Title:    "compat mode rendering metric",
			Path:     path.Join(specialDir, "compat-mode.html"),
			Nav:      NavDirect,
			Kind:     KindMetric,
			Verify:   VerifyInline,
			Selector: "#measure",
		},
		{
			Title:  "async iframe capture",
			Path:   path.Join(specialDir, "async-iframes.html"),
			Nav:    NavDirect,
			Kind:   KindStructured,
			Verify: VerifyGolden,
		},
		{
			Title:  "shadow dom capture",
			Path:   path.Join(specialDir, "shadow-dom.html"),
			Nav:    NavDirect,
			Kind:   KindStructured,
			Verify: VerifyGolden,
		},
	}
}
