package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures run options sourced from files, the environment or flags.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Format  string        `yaml:"format"`
	Timeout time.Duration `yaml:"timeout"`

	LoginEmail    string `yaml:"login_email"`
	LoginPassword string `yaml:"login_password"`
	NodeID        string `yaml:"node_id"`
	RootMarker    string `yaml:"root_marker"`
	HealthMarker  string `yaml:"health_marker"`

	OnlyGroups []string `yaml:"only_group"`
	SkipGroups []string `yaml:"skip_group"`
	Extended   bool     `yaml:"extended"`
	Journey    bool     `yaml:"e2e"`

	Verbose      bool   `yaml:"verbose"`
	LogRequests  bool   `yaml:"log_requests"`
	LogResponses bool   `yaml:"log_responses"`
	MetricsFile  string `yaml:"metrics_file"`
}

const (
	// DefaultBaseURL is where a locally started API listens.
	DefaultBaseURL = "http://localhost:3000"

	// FormatPretty renders colourised human readable output.
	FormatPretty = "pretty"
	// FormatPlain renders human readable output without escape codes.
	FormatPlain = "plain"
	// FormatJSON renders machine readable output.
	FormatJSON = "json"

	// EnvPrefix prefixes every environment variable the tool reads.
	EnvPrefix = "APIPROBE_"
)

// Formats lists the accepted values of Format.
var Formats = []string{FormatPretty, FormatPlain, FormatJSON}

// Default returns the baseline configuration used when no other source
// specifies values.
func Default() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		Format:        FormatPretty,
		LoginEmail:    "test@example.com",
		LoginPassword: "password123",
		NodeID:        "1",
		RootMarker:    "ok",
		HealthMarker:  "healthy",
	}
}

// Load applies the YAML file at path over base. An empty path leaves base
// unchanged.
func Load(base Config, path string) (Config, error) {
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config %q: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return base, fmt.Errorf("parse config %q: %w", path, err)
	}
	return merge(base, fileCfg), nil
}

func merge(base, override Config) Config {
	out := base

	if override.BaseURL != "" {
		out.BaseURL = override.BaseURL
	}
	if override.Format != "" {
		out.Format = override.Format
	}
	if override.Timeout != 0 {
		out.Timeout = override.Timeout
	}
	if override.LoginEmail != "" {
		out.LoginEmail = override.LoginEmail
	}
	if override.LoginPassword != "" {
		out.LoginPassword = override.LoginPassword
	}
	if override.NodeID != "" {
		out.NodeID = override.NodeID
	}
	if override.RootMarker != "" {
		out.RootMarker = override.RootMarker
	}
	if override.HealthMarker != "" {
		out.HealthMarker = override.HealthMarker
	}
	if len(override.OnlyGroups) > 0 {
		out.OnlyGroups = append([]string{}, override.OnlyGroups...)
	}
	if len(override.SkipGroups) > 0 {
		out.SkipGroups = append([]string{}, override.SkipGroups...)
	}
	if override.MetricsFile != "" {
		out.MetricsFile = override.MetricsFile
	}
	if override.Extended {
		out.Extended = true
	}
	if override.Journey {
		out.Journey = true
	}
	if override.Verbose {
		out.Verbose = true
	}
	if override.LogRequests {
		out.LogRequests = true
	}
	if override.LogResponses {
		out.LogResponses = true
	}

	return out
}

// envValues mirrors Config for environment lookup. Pointers stay nil when
// the variable is unset, so only variables that are present override.
type envValues struct {
	BaseURL       *string        `env:"BASE_URL"`
	Format        *string        `env:"FORMAT"`
	Timeout       *time.Duration `env:"TIMEOUT"`
	LoginEmail    *string        `env:"LOGIN_EMAIL"`
	LoginPassword *string        `env:"LOGIN_PASSWORD"`
	NodeID        *string        `env:"NODE_ID"`
	RootMarker    *string        `env:"ROOT_MARKER"`
	HealthMarker  *string        `env:"HEALTH_MARKER"`
	OnlyGroups    []string       `env:"ONLY_GROUP" envSeparator:","`
	SkipGroups    []string       `env:"SKIP_GROUP" envSeparator:","`
	Extended      *bool          `env:"EXTENDED"`
	Journey       *bool          `env:"E2E"`
	Verbose       *bool          `env:"VERBOSE"`
	LogRequests   *bool          `env:"LOG_REQUESTS"`
	LogResponses  *bool          `env:"LOG_RESPONSES"`
	MetricsFile   *string        `env:"METRICS_FILE"`
}

// ApplyEnv overlays APIPROBE_* variables onto cfg. Variables from the
// dotenv file at dotenvPath, when given, are visible too but lose to the
// process environment in environ.
func ApplyEnv(cfg *Config, dotenvPath string, environ []string) error {
	vars := make(map[string]string)
	if dotenvPath != "" {
		fromFile, err := godotenv.Read(dotenvPath)
		if err != nil {
			return fmt.Errorf("read env file %q: %w", dotenvPath, err)
		}
		for k, v := range fromFile {
			vars[k] = v
		}
	}
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	var values envValues
	if err := env.ParseWithOptions(&values, env.Options{
		Prefix:      EnvPrefix,
		Environment: vars,
	}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString(&cfg.BaseURL, values.BaseURL)
	setString(&cfg.Format, values.Format)
	if values.Timeout != nil {
		cfg.Timeout = *values.Timeout
	}
	setString(&cfg.LoginEmail, values.LoginEmail)
	setString(&cfg.LoginPassword, values.LoginPassword)
	setString(&cfg.NodeID, values.NodeID)
	setString(&cfg.RootMarker, values.RootMarker)
	setString(&cfg.HealthMarker, values.HealthMarker)
	if len(values.OnlyGroups) > 0 {
		cfg.OnlyGroups = trimList(values.OnlyGroups)
	}
	if len(values.SkipGroups) > 0 {
		cfg.SkipGroups = trimList(values.SkipGroups)
	}
	setBool(&cfg.Extended, values.Extended)
	setBool(&cfg.Journey, values.Journey)
	setBool(&cfg.Verbose, values.Verbose)
	setBool(&cfg.LogRequests, values.LogRequests)
	setBool(&cfg.LogResponses, values.LogResponses)
	setString(&cfg.MetricsFile, values.MetricsFile)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ApplyFlags mutates cfg by applying values from CLI flags when they are present.
func ApplyFlags(cfg *Config, flags FlagValues) {
	if flags.BaseURL.Set {
		cfg.BaseURL = flags.BaseURL.Value
	}
	if flags.Format.Set {
		cfg.Format = flags.Format.Value
	}
	if flags.Timeout.Set {
		cfg.Timeout = flags.Timeout.Value
	}
	if flags.LoginEmail.Set {
		cfg.LoginEmail = flags.LoginEmail.Value
	}
	if flags.LoginPassword.Set {
		cfg.LoginPassword = flags.LoginPassword.Value
	}
	if flags.NodeID.Set {
		cfg.NodeID = flags.NodeID.Value
	}
	if len(flags.OnlyGroups.Values) > 0 {
		cfg.OnlyGroups = append([]string{}, flags.OnlyGroups.Values...)
	}
	if len(flags.SkipGroups.Values) > 0 {
		cfg.SkipGroups = append([]string{}, flags.SkipGroups.Values...)
	}
	if flags.Extended.Set {
		cfg.Extended = flags.Extended.Value
	}
	if flags.Journey.Set {
		cfg.Journey = flags.Journey.Value
	}
	if flags.Verbose.Set {
		cfg.Verbose = flags.Verbose.Value
	}
	if flags.MetricsFile.Set {
		cfg.MetricsFile = flags.MetricsFile.Value
	}
}

// Validate reports the first setting that cannot drive a run.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base url %q: %w", c.BaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base url %q: want an absolute http(s) URL", c.BaseURL)
	}
	if !slices.Contains(Formats, strings.ToLower(c.Format)) {
		return fmt.Errorf("unsupported format %q (want one of %s)", c.Format, strings.Join(Formats, ", "))
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.NodeID == "" {
		return errors.New("node id must not be empty")
	}
	return nil
}

// FlagValues captures CLI flag state with knowledge of whether each flag was set explicitly.
type FlagValues struct {
	BaseURL       StringFlag
	Format        StringFlag
	Timeout       DurationFlag
	LoginEmail    StringFlag
	LoginPassword StringFlag
	NodeID        StringFlag
	OnlyGroups    SliceFlag
	SkipGroups    SliceFlag
	Extended      BoolFlag
	Journey       BoolFlag
	Verbose       BoolFlag
	MetricsFile   StringFlag
}

// StringFlag represents a string flag and whether it was set.
type StringFlag struct {
	Value string
	Set   bool
}

// SliceFlag represents a slice flag and whether it captured values via CLI.
type SliceFlag struct {
	Values []string
}

// BoolFlag represents a bool flag and whether it was set.
type BoolFlag struct {
	Value bool
	Set   bool
}

// DurationFlag represents a duration flag and whether it was set.
type DurationFlag struct {
	Value time.Duration
	Set   bool
}
