// Package browser owns the Chrome process and the per-scenario page
// lifecycles. One Session serves a whole suite; pages are ephemeral and
// never reused across scenarios.
package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures a Session.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local headless Chrome via the rod launcher.
	RemoteURL string

	// Stealth opens pages through go-rod/stealth so fixture scripts that
	// sniff headless automation see a regular browser.
	Stealth bool

	Logger *slog.Logger
}

// Session is one browser process.
type Session struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// Open launches Chrome, or attaches to a remote one, and connects.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Session{cfg: cfg}

	wsURL := cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		s.lnch = l
		wsURL = u
		cfg.Logger.Info("browser: launched local chrome", "url", wsURL)
	} else {
		cfg.Logger.Info("browser: connecting to remote", "url", wsURL)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		s.release()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b
	return s, nil
}

// NewPage opens a fresh, isolated page. The caller owns it and closes it
// before the next scenario runs.
func (s *Session) NewPage(ctx context.Context) (*Page, error) {
	if s.browser == nil {
		return nil, fmt.Errorf("browser: session is closed")
	}

	var p *rod.Page
	var err error
	if s.cfg.Stealth {
		p, err = stealth.Page(s.browser)
	} else {
		p, err = s.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	return &Page{page: p.Context(ctx), logger: s.cfg.Logger}, nil
}

// Close terminates the browser and releases every page it owns.
func (s *Session) Close() error {
	return s.release()
}

func (s *Session) release() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return err
}

// Available reports whether a local Chrome binary can be found. Suites use
// it to skip browser scenarios on machines without one.
func Available() bool {
	_, has := launcher.LookPath()
	return has
}
