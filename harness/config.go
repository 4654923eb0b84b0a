package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML scalars in time.ParseDuration syntax ("5s",
// "250ms") or as integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("harness: invalid duration %q", value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("harness: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the top-level harness configuration.
type Config struct {
	// Root is the directory the asset server exposes. Fixtures and the
	// edge-case pages live under it.
	Root        string `yaml:"root"`
	FixturesDir string `yaml:"fixtures_dir"` // relative to Root, default "fixtures"
	SpecialDir  string `yaml:"special_dir"`  // relative to Root, default "special"

	GoldenDir string `yaml:"golden_dir"` // default <root>/golden
	Artifact  string `yaml:"artifact"`   // golden record-set id, default "roundtrip"

	Port            int      `yaml:"port"`
	ScenarioTimeout Duration `yaml:"scenario_timeout"`

	// Update selects golden-store behaviour: "new" accepts missing records
	// and compares existing ones, "all" rewrites everything.
	Update string `yaml:"update"`

	Library LibraryConfig `yaml:"library"`
	Browser BrowserConfig `yaml:"browser"`

	// RunLog is the path of the run-history database. Empty disables it.
	RunLog string `yaml:"runlog"`
}

// LibraryConfig points at the DOM-serialization library under test.
type LibraryConfig struct {
	// Entry is the module the bundle provider compiles.
	Entry string `yaml:"entry"`
	// Global is the name the bundle exposes in the page context.
	Global string `yaml:"global"`
}

// BrowserConfig controls the browser session.
type BrowserConfig struct {
	Remote  string `yaml:"remote"` // ControlURL of an external Chrome
	Stealth bool   `yaml:"stealth"`
}

// Load reads a YAML configuration file. The SNAPSHOT_UPDATE environment
// switch, when set, overrides the file's update mode; it is consulted here
// once and never again mid-run.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("harness: read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("harness: parse config %s: %w", path, err)
	}
	if v := os.Getenv("SNAPSHOT_UPDATE"); v != "" {
		cfg.Update = v
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.FixturesDir == "" {
		c.FixturesDir = "fixtures"
	}
	if c.SpecialDir == "" {
		c.SpecialDir = "special"
	}
	if c.GoldenDir == "" {
		c.GoldenDir = filepath.Join(c.Root, "golden")
	}
	if c.Artifact == "" {
		c.Artifact = "roundtrip"
	}
	if c.Port <= 0 {
		c.Port = 3030
	}
	if c.ScenarioTimeout <= 0 {
		c.ScenarioTimeout = Duration(5 * time.Second)
	}
	if c.Update == "" {
		c.Update = "new"
	}
	if c.Library.Global == "" {
		c.Library.Global = "DOMSnap"
	}
}
