package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/EmpoweredVote/wahlkreis/internal/chart"
	"github.com/EmpoweredVote/wahlkreis/internal/election"
	"github.com/EmpoweredVote/wahlkreis/internal/geo"
	"github.com/EmpoweredVote/wahlkreis/internal/results"
)

var (
	ErrMissingSource    = errors.New("one of RESULTS_URL or RESULTS_FILE is required")
	ErrMissingShapefile = errors.New("MAP_REQUIRED is set but SHAPEFILE_PATH is empty")
	ErrBadTokenHash     = errors.New("RELOAD_TOKEN_HASH is not a bcrypt hash")
)

const (
	DefaultPort          = "8051"
	DefaultFetchTimeout  = 30 * time.Second
	DefaultReloadEvery   = time.Minute
	DefaultSourceText    = "Quelle: © Der Bundeswahlleiter, Wiesbaden 2021"
	DefaultMapSourceText = "Quelle: © Bundesamt für Kartographie und Geodäsie, Frankfurt am Main, 2021; Wahlkreiseinteilung: © Der Bundeswahlleiter, Wiesbaden 2020"

	// DefaultSummary describes the 2021 outcome below the national chart.
	DefaultSummary = "Im Jahr 2021 geht die SPD als Wahlsieger heraus. Zusammen mit den Grünen und der FDP gründen sie die erste Ampelkoalition " +
		"in der Geschichte der Bundesrepublik Deutschland. Die Union geht dabei als klarer Verlierer aus der Wahl heraus. " +
		"Die Linke schafft es gerade so durch drei Direktmandate in den Bundestag und die AfD gewinnt weiter an Zuspruch. " +
		"Eine weitere Besonderheit ist der Südschleswigsche Wählerverband (SSW), der durch die Vertretung einer nationalen " +
		"Minderheit nach 1961 wieder in den Bundestag einzieht."
)

// Election groups the positional contract and the presentation choices of
// the aggregation.
type Election struct {
	Year         int                      `yaml:"year" validate:"gte=1949,lte=2100"`
	Layout       results.Layout           `yaml:"layout"`
	National     election.NationalOptions `yaml:"national"`
	DisplayNames map[string]string        `yaml:"display_names"`
}

// Config holds everything the dashboard reads at startup.
type Config struct {
	Port string `yaml:"port" validate:"required,numeric"`

	ResultsURL   string `yaml:"results_url" validate:"omitempty,url"`
	ResultsFile  string `yaml:"results_file"`
	FetchTimeout string `yaml:"fetch_timeout"`

	ShapefilePath string      `yaml:"shapefile_path"`
	MapRequired   bool        `yaml:"map_required"`
	Map           geo.Options `yaml:"map"`

	DatabaseURL string `yaml:"database_url"`

	ReloadTokenHash string `yaml:"reload_token_hash"`
	ReloadInterval  string `yaml:"reload_interval"`
	ReloadEvery     string `yaml:"reload_every"`

	AllowedOrigins []string `yaml:"allowed_origins"`
	LogLevel       string   `yaml:"log_level" validate:"oneof=debug info warn error"`

	SourceText    string        `yaml:"source_text"`
	MapSourceText string        `yaml:"map_source_text"`
	Summary       string        `yaml:"summary"`
	Palette       chart.Palette `yaml:"palette"`
	Election      Election      `yaml:"election"`

	// Parsed from the string fields above by Load.
	FetchTimeoutDur   time.Duration `yaml:"-"`
	ReloadIntervalDur time.Duration `yaml:"-"`
	ReloadEveryDur    time.Duration `yaml:"-"`
}

// Default returns the configuration of the 2021 dashboard.
func Default() Config {
	s := election.DefaultSettings()
	return Config{
		Port:          DefaultPort,
		ResultsURL:    results.DefaultURL,
		FetchTimeout:  DefaultFetchTimeout.String(),
		ReloadEvery:   DefaultReloadEvery.String(),
		Map:           geo.DefaultOptions(),
		LogLevel:      "info",
		SourceText:    DefaultSourceText,
		MapSourceText: DefaultMapSourceText,
		Summary:       DefaultSummary,
		Election: Election{
			Year:         s.Year,
			Layout:       s.Layout,
			National:     s.National,
			DisplayNames: s.Names,
		},
	}
}

// Load reads the optional YAML file named by DASHBOARD_CONFIG, overlays the
// environment and validates the result.
//
// Environment variables:
//   - PORT: listen port (default: 8051)
//   - RESULTS_URL: results document URL (default: the 2021 Bundeswahlleiter file)
//   - RESULTS_FILE: local copy of the document, takes precedence over RESULTS_URL
//   - FETCH_TIMEOUT: HTTP timeout for the document (default: 30s)
//   - SHAPEFILE_PATH, MAP_REQUIRED: district outlines for the map
//   - DATABASE_URL: enables the snapshot archive
//   - RELOAD_TOKEN_HASH: bcrypt hash guarding POST /api/admin/reload
//   - RELOAD_INTERVAL: scheduled reload period, 0 disables (default: 0)
//   - RELOAD_EVERY: minimum spacing of reloads (default: 1m)
//   - ALLOWED_ORIGINS: comma separated CORS allow-list
//   - LOG_LEVEL: debug, info, warn or error (default: info)
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("DASHBOARD_CONFIG")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.overlayEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.parseDurations(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) overlayEnv() error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("RESULTS_URL", &c.ResultsURL)
	str("RESULTS_FILE", &c.ResultsFile)
	str("FETCH_TIMEOUT", &c.FetchTimeout)
	str("SHAPEFILE_PATH", &c.ShapefilePath)
	str("DATABASE_URL", &c.DatabaseURL)
	str("RELOAD_TOKEN_HASH", &c.ReloadTokenHash)
	str("RELOAD_INTERVAL", &c.ReloadInterval)
	str("RELOAD_EVERY", &c.ReloadEvery)
	str("LOG_LEVEL", &c.LogLevel)
	c.LogLevel = strings.ToLower(c.LogLevel)

	if v := strings.TrimSpace(os.Getenv("MAP_REQUIRED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MAP_REQUIRED: %w", err)
		}
		c.MapRequired = b
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}
	return nil
}

func (c *Config) parseDurations() error {
	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"FETCH_TIMEOUT", c.FetchTimeout, &c.FetchTimeoutDur},
		{"RELOAD_INTERVAL", c.ReloadInterval, &c.ReloadIntervalDur},
		{"RELOAD_EVERY", c.ReloadEvery, &c.ReloadEveryDur},
	} {
		if d.raw == "" || d.raw == "0" {
			*d.dst = 0
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the cross-field rules.
func (c Config) Validate() error {
	if c.ResultsURL == "" && c.ResultsFile == "" {
		return ErrMissingSource
	}
	if c.MapRequired && c.ShapefilePath == "" {
		return ErrMissingShapefile
	}
	if c.ReloadTokenHash != "" && !strings.HasPrefix(c.ReloadTokenHash, "$2") {
		return ErrBadTokenHash
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Source returns the configured result source. A local file wins over the URL.
func (c Config) Source() results.Source {
	if c.ResultsFile != "" {
		return results.FileSource{Path: c.ResultsFile}
	}
	return results.URLSource{Client: results.NewClient(c.FetchTimeoutDur), URL: c.ResultsURL}
}

// Settings returns the aggregation settings.
func (c Config) Settings() election.Settings {
	return election.Settings{
		Layout:   c.Election.Layout,
		National: c.Election.National,
		Names:    election.DisplayNames(c.Election.DisplayNames),
		Year:     c.Election.Year,
	}
}

// ChartPalette returns the default palette with the configured overrides.
func (c Config) ChartPalette() chart.Palette {
	return chart.DefaultPalette().Merge(c.Palette)
}
