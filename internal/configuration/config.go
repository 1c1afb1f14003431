package configuration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const FilePath = "configuration/configuration.yaml"

const (
	EnvApiKey   = "METASCAN_API_KEY"
	EnvBaseUrl  = "METASCAN_BASE_URL"
	EnvLogLevel = "METASCAN_LOG_LEVEL"
)

const (
	DefaultBaseUrl            = "https://api.metadefender.com/v4"
	DefaultMultipartThreshold = 10 * 1024 * 1024 // 10 MiB
)

type Config struct {
	MetadefenderClientSettings MetadefenderClientSettings `yaml:"metadefender_client_settings"`
	PollSettings               PollSettings               `yaml:"poll_settings"`
	UploadSettings             UploadSettings             `yaml:"upload_settings"`
	LoggingSettings            LoggingSettings            `yaml:"logging_settings"`
}

type MetadefenderClientSettings struct {
	BaseUrl        string        `yaml:"base_url"`
	ApiKey         string        `yaml:"api_key"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type PollSettings struct {
	Timeout  time.Duration `yaml:"timeout"`
	Interval time.Duration `yaml:"interval"`
	Backoff  string        `yaml:"backoff"`
	Jitter   time.Duration `yaml:"jitter"`
}

type UploadSettings struct {
	MultipartThreshold int64 `yaml:"multipart_threshold"`
	Confirm            bool  `yaml:"confirm"`
}

type LoggingSettings struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

func Default() *Config {
	return &Config{
		MetadefenderClientSettings: MetadefenderClientSettings{
			BaseUrl:        DefaultBaseUrl,
			RequestTimeout: 1 * time.Minute,
		},
		PollSettings: PollSettings{
			Timeout:  60 * time.Second,
			Interval: 10 * time.Second,
			Backoff:  BackoffFixed,
		},
		UploadSettings: UploadSettings{
			MultipartThreshold: DefaultMultipartThreshold,
		},
		LoggingSettings: LoggingSettings{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the yaml file at path (if present),
// the user settings written by the setup command and finally the environment.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("configuration error: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
		}
	}

	userSettings, err := ReadUserSettings(UserSettingsPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if userSettings != nil {
		userSettings.apply(config)
	}

	applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func applyEnv(config *Config) {
	if v := os.Getenv(EnvApiKey); v != "" {
		config.MetadefenderClientSettings.ApiKey = v
	}
	if v := os.Getenv(EnvBaseUrl); v != "" {
		config.MetadefenderClientSettings.BaseUrl = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.LoggingSettings.Level = v
	}
}

// Validate checks values that would otherwise fail much later in a scan.
// A missing api key is not checked here so that commands which never
// reach the service (setup, hash) still work.
func (c *Config) Validate() error {
	if c.MetadefenderClientSettings.BaseUrl == "" {
		return fmt.Errorf("configuration error: base url is empty")
	}
	if c.PollSettings.Interval <= 0 {
		return fmt.Errorf("configuration error: poll interval must be positive, got %s", c.PollSettings.Interval)
	}
	if c.PollSettings.Timeout <= 0 {
		return fmt.Errorf("configuration error: poll timeout must be positive, got %s", c.PollSettings.Timeout)
	}
	switch c.PollSettings.Backoff {
	case BackoffFixed, BackoffExponential:
	default:
		return fmt.Errorf("configuration error: unknown poll backoff %q", c.PollSettings.Backoff)
	}
	if c.UploadSettings.MultipartThreshold <= 0 {
		return fmt.Errorf("configuration error: multipart threshold must be positive")
	}

	return nil
}
