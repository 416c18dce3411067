package platform

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes Go duration strings ("15s", "2m") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// EndpointConfig holds the transport settings for one platform's API.
type EndpointConfig struct {
	BaseURL  string   `yaml:"base_url"`
	TokenURL string   `yaml:"token_url"`
	Timeout  Duration `yaml:"timeout"`
}

func (e EndpointConfig) timeout() time.Duration {
	if e.Timeout <= 0 {
		return 15 * time.Second
	}
	return time.Duration(e.Timeout)
}

type Config struct {
	Platforms map[string]EndpointConfig `yaml:"platforms"`
}

// DefaultConfig covers local development against platform sandboxes.
func DefaultConfig() Config {
	return Config{
		Platforms: map[string]EndpointConfig{
			"baemin":      {BaseURL: "https://ceo-api.baemin.com"},
			"yogiyo":      {BaseURL: "https://ceo-api.yogiyo.co.kr"},
			"coupangeats": {BaseURL: "https://api-gateway.coupangeats.com", TokenURL: "https://api-gateway.coupangeats.com/oauth/token"},
		},
	}
}

// LoadConfig reads adapter endpoints from a YAML file, falling back to
// defaults when path is empty. Entries present in the file override defaults
// per platform.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading adapter config: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("parsing adapter config: %w", err)
	}

	for name, ep := range fileCfg.Platforms {
		base := cfg.Platforms[name]
		if ep.BaseURL != "" {
			base.BaseURL = ep.BaseURL
		}
		if ep.TokenURL != "" {
			base.TokenURL = ep.TokenURL
		}
		if ep.Timeout > 0 {
			base.Timeout = ep.Timeout
		}
		cfg.Platforms[name] = base
	}

	return cfg, nil
}

func (c Config) Endpoint(name string) EndpointConfig {
	return c.Platforms[name]
}
