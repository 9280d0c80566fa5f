// Package config loads the settings of the pandoc wrapper from defaults, an
// optional yaml file and PANDOC_ prefixed environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/aexvir/pandoc"
	"github.com/aexvir/pandoc/install"
)

// ErrInvalid is returned when the loaded settings can't be used.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all the settings
type Config struct {
	// Release feed
	FeedURL        string `mapstructure:"feed_url"`
	GitHubToken    string `mapstructure:"github_token"`
	MinimumVersion string `mapstructure:"minimum_version"`

	// Installation
	InstallDir string            `mapstructure:"install_dir"`
	Layouts    map[string]string `mapstructure:"layouts"`

	// Downloads
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	Attempts       int           `mapstructure:"attempts"`
	Backoff        time.Duration `mapstructure:"backoff"`

	// Execution
	Binary      string        `mapstructure:"binary"`
	Wait        time.Duration `mapstructure:"wait"`
	ExecTimeout time.Duration `mapstructure:"exec_timeout"`
}

// Load reads the configuration.
// When file is empty a pandoc.yaml is looked up in the current directory and
// in the user configuration directory, and it's fine for none to exist.
func Load(file string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PANDOC")
	v.AutomaticEnv()
	// the usual token variable works too, the prefixed one wins
	if err := v.BindEnv("github_token", "PANDOC_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	} else {
		v.SetConfigName("pandoc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "pandocw"))
		}

		if err := v.ReadInConfig(); err != nil {
			var notfound viper.ConfigFileNotFoundError
			if !errors.As(err, &notfound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("feed_url", install.DefaultFeedURL)
	v.SetDefault("github_token", "")
	v.SetDefault("minimum_version", "")

	v.SetDefault("install_dir", install.DefaultDirectory)

	v.SetDefault("connect_timeout", install.DefaultTimeout)
	v.SetDefault("read_timeout", install.DefaultTimeout)
	v.SetDefault("attempts", install.DefaultAttempts)
	v.SetDefault("backoff", install.DefaultBackoff)

	v.SetDefault("binary", pandoc.DefaultBinary)
	v.SetDefault("wait", pandoc.DefaultWait)
	v.SetDefault("exec_timeout", time.Duration(0))
}

// Validate reports every setting that can't be used at once.
func (c *Config) Validate() error {
	var errs []error

	if c.FeedURL == "" {
		errs = append(errs, errors.New("feed_url can't be empty"))
	}
	if c.InstallDir == "" {
		errs = append(errs, errors.New("install_dir can't be empty"))
	}
	if c.Binary == "" {
		errs = append(errs, errors.New("binary can't be empty"))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout))
	}
	if c.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout))
	}
	if c.Attempts <= 0 {
		errs = append(errs, fmt.Errorf("attempts must be positive, got %d", c.Attempts))
	}
	if c.Backoff < 0 {
		errs = append(errs, fmt.Errorf("backoff can't be negative, got %s", c.Backoff))
	}
	if c.Wait < 0 {
		errs = append(errs, fmt.Errorf("wait can't be negative, got %s", c.Wait))
	}
	if c.ExecTimeout < 0 {
		errs = append(errs, fmt.Errorf("exec_timeout can't be negative, got %s", c.ExecTimeout))
	}
	for key := range c.Layouts {
		if _, err := install.ParsePlatform(key); err != nil {
			errs = append(errs, fmt.Errorf("layouts: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Catalog builds the release feed client.
func (c *Config) Catalog() *install.Catalog {
	return install.NewCatalog(
		c.FeedURL,
		install.WithToken(c.GitHubToken),
		install.WithMinimumVersion(c.MinimumVersion),
	)
}

// Fetcher builds the archive downloader.
func (c *Config) Fetcher() *install.Fetcher {
	return install.NewFetcher(
		install.WithTimeouts(c.ConnectTimeout, c.ReadTimeout),
		install.WithAttempts(c.Attempts),
		install.WithBackoff(c.Backoff),
	)
}

// InstallOptions returns the installer options matching the configuration.
func (c *Config) InstallOptions() ([]install.Option, error) {
	opts := []install.Option{
		install.WithDirectory(c.InstallDir),
		install.WithFeed(c.Catalog()),
		install.WithFetcher(c.Fetcher()),
	}

	for key, layout := range c.Layouts {
		platform, err := install.ParsePlatform(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		opts = append(opts, install.WithLayout(platform, layout))
	}

	return opts, nil
}

// RunnerOpts returns the options applied to every pandoc invocation.
func (c *Config) RunnerOpts() []pandoc.RunnerOpt {
	return []pandoc.RunnerOpt{
		pandoc.WithWait(c.Wait),
		pandoc.WithTimeout(c.ExecTimeout),
	}
}
