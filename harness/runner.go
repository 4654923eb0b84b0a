// Package harness orchestrates the round-trip suite: it owns the asset
// server, the browser session, the injected bundle and the golden store,
// and drives every scenario sequentially through them.
package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/domtrip/domtrip/assets"
	"github.com/domtrip/domtrip/browser"
	"github.com/domtrip/domtrip/bundle"
	"github.com/domtrip/domtrip/fixture"
	"github.com/domtrip/domtrip/golden"
	"github.com/domtrip/domtrip/runlog"
)

// Result is the outcome of one scenario.
type Result struct {
	ID       string
	Title    string
	Pass     bool
	Updated  bool
	Detail   string
	Duration time.Duration
}

// Report collects the results of one suite run.
type Report struct {
	RunID   string
	Results []Result
}

// Failures counts failed scenarios.
func (r *Report) Failures() int {
	n := 0
	for _, res := range r.Results {
		if !res.Pass {
			n++
		}
	}
	return n
}

// Suite holds the shared, read-only resources of one run: server, browser
// session, compiled bundle and golden store. Scenarios never run
// concurrently, so no locking is needed.
type Suite struct {
	cfg       Config
	logger    *slog.Logger
	server    *assets.Server
	session   *browser.Session
	store     *golden.Store
	rlog      *runlog.Log
	bundleSrc string
	scenarios []Scenario
}

// NewSuite acquires every suite resource. Any failure here is fatal to the
// suite and happens before the first scenario runs; partially acquired
// resources are released.
func NewSuite(ctx context.Context, cfg Config, logger *slog.Logger) (*Suite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	s := &Suite{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	store, err := golden.Open(cfg.GoldenDir, cfg.Artifact, golden.ParseMode(cfg.Update))
	if err != nil {
		return nil, err
	}
	s.store = store

	s.server = assets.New(cfg.Root, cfg.Port, logger)
	if err := s.server.Start(); err != nil {
		s.server = nil
		return nil, err
	}

	session, err := browser.Open(ctx, browser.Config{
		RemoteURL: cfg.Browser.Remote,
		Stealth:   cfg.Browser.Stealth,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	s.session = session

	src, err := bundle.Build(cfg.Library.Entry, cfg.Library.Global)
	if err != nil {
		return nil, err
	}
	s.bundleSrc = src

	fixtures, err := fixture.List(filepath.Join(cfg.Root, cfg.FixturesDir))
	if err != nil {
		return nil, err
	}
	for _, f := range fixtures {
		s.scenarios = append(s.scenarios, Derive(f, cfg.FixturesDir))
	}
	for _, sc := range Specials(cfg.SpecialDir) {
		if _, err := os.Stat(filepath.Join(cfg.Root, filepath.FromSlash(sc.Path))); err != nil {
			logger.Warn("harness: special fixture missing, scenario skipped",
				"scenario", sc.Title, "path", sc.Path)
			continue
		}
		s.scenarios = append(s.scenarios, sc)
	}

	if cfg.RunLog != "" {
		rlog, err := runlog.Open(cfg.RunLog, logger)
		if err != nil {
			return nil, err
		}
		s.rlog = rlog
	}

	logger.Info("harness: suite ready",
		"scenarios", len(s.scenarios), "update", cfg.Update, "port", cfg.Port)
	ok = true
	return s, nil
}

// Scenarios returns the scenarios the suite will run, in order.
func (s *Suite) Scenarios() []Scenario {
	return s.scenarios
}

// Run executes every scenario sequentially and returns the report. A
// scenario failure never aborts the run; a cancelled ctx does.
func (s *Suite) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	if s.rlog != nil {
		s.rlog.Begin(report.RunID)
	}

	for _, sc := range s.scenarios {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("harness: run aborted: %w", err)
		}
		res := s.RunScenario(ctx, sc)
		report.Results = append(report.Results, res)

		if res.Pass {
			s.logger.Info("harness: scenario passed",
				"scenario", sc.Title, "updated", res.Updated, "duration", res.Duration)
		} else {
			s.logger.Error("harness: scenario failed",
				"scenario", sc.Title, "detail", res.Detail)
		}
		if s.rlog != nil {
			s.rlog.Record(report.RunID, runlog.Entry{
				ResultID: res.ID,
				Title:    res.Title,
				Pass:     res.Pass,
				Updated:  res.Updated,
				Detail:   res.Detail,
				Duration: res.Duration,
			})
		}
	}

	if s.rlog != nil {
		s.rlog.Finish(report.RunID, len(report.Results), report.Failures())
	}
	return report, nil
}

// RunScenario executes one scenario on a fresh page under the per-scenario
// deadline. Every failure mode lands in the Result; nothing here is fatal
// to the suite.
func (s *Suite) RunScenario(ctx context.Context, sc Scenario) Result {
	start := time.Now()
	res := Result{ID: uuid.NewString(), Title: sc.Title}
	done := func() Result {
		res.Duration = time.Since(start)
		return res
	}
	fail := func(err error) Result {
		res.Detail = err.Error()
		return done()
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.ScenarioTimeout))
	defer cancel()

	page, err := s.session.NewPage(ctx)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			// Teardown problems are logged, never allowed to mask the
			// scenario's own outcome.
			s.logger.Warn("harness: close page", "scenario", sc.Title, "error", err)
		}
	}()

	switch sc.Nav {
	case NavDirect:
		err = page.Goto(ctx, s.server.URL(sc.Path))
	default:
		// Land on the fixture's directory first so relative URLs in the
		// injected markup resolve against it.
		if err = page.Goto(ctx, s.server.URL(path.Dir(sc.Path)+"/")); err == nil {
			err = page.SetContent(ctx, sc.Content)
		}
	}
	if err != nil {
		return fail(err)
	}

	val, err := page.Eval(ctx, composeDriver(sc, s.bundleSrc, s.cfg.Library.Global))
	if err != nil {
		return fail(err)
	}

	switch {
	case sc.Verify == VerifyInline:
		if detail := verifyInline(sc, val.Str()); detail != "" {
			res.Detail = detail
			return done()
		}
		res.Pass = true

	case sc.Kind == KindStructured:
		actual, err := canonicalJSON(val.Str())
		if err != nil {
			return fail(err)
		}
		if !s.compare(&res, actual, sc.Title) {
			return done()
		}

	default:
		actual := Normalize(val.Str(), sc.Content)
		if !s.compare(&res, actual, sc.Title) {
			return done()
		}
	}

	return done()
}

// Close releases the suite's resources unconditionally; it is safe after a
// partial setup and after scenario failures.
func (s *Suite) Close() {
	if s.session != nil {
		if err := s.session.Close(); err != nil {
			s.logger.Warn("harness: close session", "error", err)
		}
		s.session = nil
	}
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.server.Stop(ctx); err != nil {
			s.logger.Warn("harness: stop server", "error", err)
		}
		cancel()
		s.server = nil
	}
	if s.rlog != nil {
		if err := s.rlog.Close(); err != nil {
			s.logger.Warn("harness: close runlog", "error", err)
		}
		s.rlog = nil
	}
}

func (s *Suite) compare(res *Result, actual, title string) bool {
	out, err := s.store.Compare(actual, title)
	if err != nil {
		res.Detail = err.Error()
		return false
	}
	res.Pass = out.Pass
	res.Updated = out.Updated
	res.Detail = out.Diff
	return out.Pass
}

// canonicalJSON re-encodes a structured result so key order and spacing
// are deterministic before golden comparison.
func canonicalJSON(raw string) (string, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return "", fmt.Errorf("harness: structured result is not JSON: %w", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("harness: canonicalize: %w", err)
	}
	return string(out), nil
}

// maxBackCompatHeight bounds the measured element's height in BackCompat
// mode; the CSS1Compat rendering of the same fixture exceeds it.
const maxBackCompatHeight = 400

func verifyInline(sc Scenario, raw string) string {
	switch sc.Kind {
	case KindQuirks:
		var v struct {
			ParentMode  string `json:"parentMode"`
			ChildMode   string `json:"childMode"`
			RebuiltMode string `json:"rebuiltMode"`
		}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return fmt.Sprintf("bad quirks payload %q: %v", raw, err)
		}
		if v.ParentMode != "CSS1Compat" {
			return fmt.Sprintf("document with doctype reports %q, want CSS1Compat", v.ParentMode)
		}
		if v.ChildMode != "BackCompat" {
			return fmt.Sprintf("doctype-less frame reports %q, want BackCompat", v.ChildMode)
		}
		if v.RebuiltMode != "BackCompat" {
			return fmt.Sprintf("rebuilt frame reports %q, want BackCompat", v.RebuiltMode)
		}
		return ""

	case KindMetric:
		var v struct {
			BeforeMode   string  `json:"beforeMode"`
			BeforeHeight float64 `json:"beforeHeight"`
			AfterMode    string  `json:"afterMode"`
			AfterHeight  float64 `json:"afterHeight"`
		}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return fmt.Sprintf("bad metric payload %q: %v", raw, err)
		}
		if v.BeforeMode != "BackCompat" {
			return fmt.Sprintf("source reports %q, want BackCompat", v.BeforeMode)
		}
		if v.AfterMode != v.BeforeMode {
			return fmt.Sprintf("rebuilt mode %q differs from source mode %q", v.AfterMode, v.BeforeMode)
		}
		if v.BeforeHeight <= 0 {
			return fmt.Sprintf("measured height %v, want > 0", v.BeforeHeight)
		}
		if v.BeforeHeight >= maxBackCompatHeight {
			return fmt.Sprintf("measured height %v, want < %d in BackCompat", v.BeforeHeight, maxBackCompatHeight)
		}
		if v.AfterHeight != v.BeforeHeight {
			return fmt.Sprintf("rebuilt height %v differs from source height %v", v.AfterHeight, v.BeforeHeight)
		}
		return ""
	}
	return fmt.Sprintf("no inline verification for scenario kind %d", sc.Kind)
}
