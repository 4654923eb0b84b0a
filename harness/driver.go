package harness

import (
	_ "embed"
	"strings"
)

// Driver bodies evaluated in the page after the injected bundle. The
// bundle's global name is substituted for __LIB__ at composition time.

//go:embed roundtrip.js
var roundtripJS string

//go:embed structured.js
var structuredJS string

//go:embed quirks.js
var quirksJS string

//go:embed metric.js
var metricJS string

// composeDriver builds the full in-page script for a scenario: one arrow
// function whose body is the bundle source followed by the driver. The
// bundle's global is function-scoped, so nothing leaks into pages that
// outlive the evaluation.
func composeDriver(sc Scenario, bundleSrc, globalName string) string {
	var body string
	switch sc.Kind {
	case KindStructured:
		body = structuredJS
	case KindQuirks:
		body = quirksJS
	case KindMetric:
		body = strings.ReplaceAll(metricJS, "__SELECTOR__", sc.Selector)
	default:
		body = roundtripJS
	}
	body = strings.ReplaceAll(body, "__LIB__", globalName)

	var b strings.Builder
	b.WriteString("() => {\n")
	b.WriteString(bundleSrc)
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n}")
	return b.String()
}
