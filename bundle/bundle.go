// Package bundle compiles the library under test into a single script
// suitable for injection into a page context.
package bundle

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Build compiles entry into one self-contained IIFE exposing its exports
// under globalName. Compilation is expensive; callers run it once per
// suite, never per scenario.
func Build(entry, globalName string) (string, error) {
	result := api.Build(api.BuildOptions{
		EntryPoints: []string{entry},
		Bundle:      true,
		Write:       false,
		Format:      api.FormatIIFE,
		GlobalName:  globalName,
		Platform:    api.PlatformBrowser,
		LogLevel:    api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, m := range result.Errors {
			msgs[i] = m.Text
		}
		return "", fmt.Errorf("bundle: build %s: %s", entry, strings.Join(msgs, "; "))
	}
	if len(result.OutputFiles) == 0 {
		return "", fmt.Errorf("bundle: build %s: no output", entry)
	}
	return string(result.OutputFiles[0].Contents), nil
}
