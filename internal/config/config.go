// Package config loads runtime settings from defaults, an optional .env.<APP_ENV>
// file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	BoundaryPath      string `mapstructure:"BOUNDARY_PATH"`
	BoundaryURL       string `mapstructure:"BOUNDARY_URL"`
	ClassificationURL string `mapstructure:"CLASSIFICATION_URL"`
	ReportsURL        string `mapstructure:"REPORTS_URL"`
	ReportsDB         string `mapstructure:"REPORTS_DB"`

	NearestRadiusM  float64 `mapstructure:"NEAREST_RADIUS_M"`
	NearestLimit    int     `mapstructure:"NEAREST_LIMIT"`
	DefaultAreaZoom float64 `mapstructure:"DEFAULT_AREA_ZOOM"`
	DefaultPinZoom  float64 `mapstructure:"DEFAULT_PIN_ZOOM"`

	SearchDebounce  time.Duration `mapstructure:"SEARCH_DEBOUNCE"`
	FeedTimeout     time.Duration `mapstructure:"FEED_TIMEOUT"`
	FeedRetries     int           `mapstructure:"FEED_RETRIES"`
	RefreshInterval time.Duration `mapstructure:"REFRESH_INTERVAL"`

	ClusterThreshold int `mapstructure:"CLUSTER_THRESHOLD"`
	ClusterPrecision int `mapstructure:"CLUSTER_PRECISION"`

	LogPath string `mapstructure:"LOG_PATH"`
}

var defaults = map[string]any{
	"BOUNDARY_PATH":      "",
	"BOUNDARY_URL":       "",
	"CLASSIFICATION_URL": "",
	"REPORTS_URL":        "",
	"REPORTS_DB":         "",
	"NEAREST_RADIUS_M":   1000.0,
	"NEAREST_LIMIT":      5,
	"DEFAULT_AREA_ZOOM":  15.0,
	"DEFAULT_PIN_ZOOM":   17.0,
	"SEARCH_DEBOUNCE":    "300ms",
	"FEED_TIMEOUT":       "10s",
	"FEED_RETRIES":       3,
	"REFRESH_INTERVAL":   "0s",
	"CLUSTER_THRESHOLD":  20,
	"CLUSTER_PRECISION":  7,
	"LOG_PATH":           "denguemap.log",
}

// Load reads the configuration from the working directory.
func Load() (Config, error) {
	return LoadFrom(".")
}

// LoadFrom reads .env.<APP_ENV> (development when unset) from dir. A missing
// file is not an error.
func LoadFrom(dir string) (c Config, err error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetConfigName(fmt.Sprintf(".env.%s", env))
	v.SetConfigType("env")
	v.AddConfigPath(dir)

	// Environment variables take precedence over the file.
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding config: %w", err)
	}
	return c, c.Validate()
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.NearestRadiusM < 0 {
		errs = append(errs, fmt.Errorf("NEAREST_RADIUS_M must not be negative"))
	}
	if c.NearestLimit < 0 {
		errs = append(errs, fmt.Errorf("NEAREST_LIMIT must not be negative"))
	}
	if c.ClusterPrecision < 1 || c.ClusterPrecision > 12 {
		errs = append(errs, fmt.Errorf("CLUSTER_PRECISION must be between 1 and 12"))
	}
	if c.RefreshInterval < 0 {
		errs = append(errs, fmt.Errorf("REFRESH_INTERVAL must not be negative"))
	}
	return errors.Join(errs...)
}
