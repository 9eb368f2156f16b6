package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort              = 16181
	defaultShutdownTimeoutMS = 10000
	defaultDataTimeoutMS     = 5000
	defaultServicePath       = "/odata.svc"
)

// DefaultContentTypes are served when the configuration lists none.
var DefaultContentTypes = []string{"application/xml", "application/atom+xml", "application/json"}

// SearchPaths are tried in order by LoadAppConfig.
var SearchPaths = []string{"config.yml", "./config/config.yml"}

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads and validates the application configuration from the
// first config.yml found on SearchPaths and stores it in Config.
func LoadAppConfig() (string, error) {
	var lastErr error
	for _, p := range SearchPaths {
		cfg, err := Load(p)
		if errors.Is(err, fs.ErrNotExist) {
			lastErr = err
			continue
		}
		if err != nil {
			return p, err
		}
		Config = *cfg
		return p, nil
	}
	return "", fmt.Errorf("no configuration file found: %w", lastErr)
}

// Load reads and validates the configuration file at path.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document, fills defaults and validates the result.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and the cross-references validator cannot express.
func Validate(cfg *AppConfig) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	defaults := 0
	for _, c := range cfg.Metadata.Containers {
		if c.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("invalid config: %d default containers, at most one allowed", defaults)
	}

	types := make(map[string]bool, len(cfg.Metadata.EntityTypes))
	for _, t := range cfg.Metadata.EntityTypes {
		if types[t.Name] {
			return fmt.Errorf("invalid config: duplicate entity type %q", t.Name)
		}
		types[t.Name] = true
	}
	for _, c := range cfg.Metadata.Containers {
		for _, s := range c.EntitySets {
			if !types[s.EntityType] {
				return fmt.Errorf("invalid config: entity set %s.%s references unknown type %q",
					c.Name, s.Name, s.EntityType)
			}
		}
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.ShutdownTimeoutMS == 0 {
		cfg.Server.ShutdownTimeoutMS = defaultShutdownTimeoutMS
	}
	if cfg.Service.Path == "" {
		cfg.Service.Path = defaultServicePath
	}
	if len(cfg.Service.ContentTypes) == 0 {
		cfg.Service.ContentTypes = append([]string(nil), DefaultContentTypes...)
	}
	if cfg.Data.TimeoutMS == 0 {
		cfg.Data.TimeoutMS = defaultDataTimeoutMS
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	// a single container is the default one
	if len(cfg.Metadata.Containers) == 1 {
		cfg.Metadata.Containers[0].Default = true
	}
}
