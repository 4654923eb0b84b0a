package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"
)

// Page is one isolated navigation context.
type Page struct {
	page   *rod.Page
	logger *slog.Logger
}

// Goto navigates to url and suspends until the navigation's load event
// fires, the navigation fails, or ctx expires.
func (p *Page) Goto(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load %s: %w", url, err)
	}
	return nil
}

// SetContent replaces the current document with html directly, bypassing
// navigation, then waits for load. Relative URLs inside html resolve
// against whatever the page last navigated to.
func (p *Page) SetContent(ctx context.Context, html string) error {
	pg := p.page.Context(ctx)
	if err := pg.SetDocumentContent(html); err != nil {
		return fmt.Errorf("browser: set content: %w", err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load after set content: %w", err)
	}
	return nil
}

// Eval executes js, an arrow-function source, in the page's global context
// and returns its completion value marshaled out of the page boundary.
// Returned promises are awaited; a throw inside the page comes back as the
// error. Values that cannot serialize must be JSON-encoded by the script
// itself before crossing.
func (p *Page) Eval(ctx context.Context, js string, args ...any) (gson.JSON, error) {
	res, err := p.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return gson.JSON{}, fmt.Errorf("browser: eval: %w", err)
	}
	return res.Value, nil
}

// Close closes the page. Scenario teardown calls this unconditionally.
func (p *Page) Close() error {
	if err := p.page.Close(); err != nil {
		return fmt.Errorf("browser: close page: %w", err)
	}
	return nil
}
