package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/domtrip/domtrip/fixture"
)

func TestDeriveServesFixturesWithDoctype(t *testing.T) {
	sc := Derive(fixture.Fixture{
		Name:       "basic.html",
		Content:    "<!DOCTYPE html><html></html>",
		HasDoctype: true,
	}, "fixtures")

	assert.Equal(t, "basic.html", sc.Title)
	assert.Equal(t, "fixtures/basic.html", sc.Path)
	assert.Equal(t, NavServe, sc.Nav)
	assert.Equal(t, KindRoundTrip, sc.Kind)
	assert.Equal(t, VerifyGolden, sc.Verify)
}

func TestDeriveDoctypelessFixtureLoadsDirect(t *testing.T) {
	// SetContent does not reproduce quirks-mode detection, so parse-mode
	// sensitive fixtures must be fetched from their own URL.
	sc := Derive(fixture.Fixture{
		Name:    "legacy.html",
		Content: "<html></html>",
	}, "fixtures")
	assert.Equal(t, NavDirect, sc.Nav)
}

func TestDeriveCompatModePrefixLoadsDirect(t *testing.T) {
	sc := Derive(fixture.Fixture{
		Name:       "nested/compat-mode-table.html",
		Content:    "<!DOCTYPE html><html></html>",
		HasDoctype: true,
	}, "fixtures")
	assert.Equal(t, NavDirect, sc.Nav)
	assert.Equal(t, "fixtures/nested/compat-mode-table.html", sc.Path)
}

func TestSpecials(t *testing.T) {
	specials := Specials("special")
	assert.Len(t, specials, 4)

	for _, sc := range specials {
		assert.Equal(t, NavDirect, sc.Nav, sc.Title)
	}

	byTitle := map[string]Scenario{}
	for _, sc := range specials {
		byTitle[sc.Title] = sc
	}

	assert.Equal(t, VerifyInline, byTitle["quirks mode propagation"].Verify)
	assert.Equal(t, KindMetric, byTitle["compat mode rendering metric"].Kind)
	assert.NotEmpty(t, byTitle["compat mode rendering metric"].Selector)
	assert.Equal(t, VerifyGolden, byTitle["async iframe capture"].Verify)
	assert.Equal(t, KindStructured, byTitle["shadow dom capture"].Kind)
}
