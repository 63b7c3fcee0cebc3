// Package config loads declarative client configuration from YAML,
// letting the configuration knobs in spec.md §6 be driven from a file
// instead of only Go code.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig mirrors the on-disk shape of a client configuration document.
type YAMLConfig struct {
	BaseURL        string            `yaml:"base_url"`
	DefaultHeaders map[string]string `yaml:"default_headers,omitempty"`
	Timeout        string            `yaml:"timeout,omitempty"`
	CachePolicy    string            `yaml:"cache_policy,omitempty"`
	FollowMode     string            `yaml:"follow_mode,omitempty"`
	UnhandledMode  string            `yaml:"unhandled_mode,omitempty"`
	MaxRetries     int               `yaml:"max_retries,omitempty"`
	Security       struct {
		Mode                string   `yaml:"mode,omitempty"`
		ValidatedDomainName bool     `yaml:"validated_domain_name,omitempty"`
		PinnedCertFiles     []string `yaml:"pinned_cert_files,omitempty"`
	} `yaml:"security,omitempty"`
	Stubs []YAMLStubRule `yaml:"stubs,omitempty"`
}

// YAMLStubRule is one declaratively-configured stub rule.
type YAMLStubRule struct {
	URL         string            `yaml:"url,omitempty"`
	URLIgnore   string            `yaml:"url_ignore,omitempty"` // "query" or "path"
	Regex       string            `yaml:"regex,omitempty"`
	RegexField  string            `yaml:"regex_field,omitempty"` // url, body, header-key, header-value
	Method      string            `yaml:"method"`
	StatusCode  int               `yaml:"status_code"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Body        string            `yaml:"body,omitempty"`
	DelayMillis int               `yaml:"delay_ms,omitempty"`
}

// ResolvedConfig is YAMLConfig translated into typed Go values; its
// ClientOptions method turns it into wirehttp.ClientOption values.
type ResolvedConfig struct {
	BaseURL             string
	DefaultHeaders      map[string]string
	Timeout             time.Duration
	CachePolicy         string
	FollowMode          string
	UnhandledMode       string
	MaxRetries          int
	SecurityMode        string
	ValidatedDomainName bool
	PinnedCertFiles     []string
	Stubs               []YAMLStubRule
}

// Load reads path, parses it as YAML, and resolves durations and defaults
// into a ResolvedConfig.
func Load(path string) (*ResolvedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wirehttp/config: read config file: %w", err)
	}

	var raw YAMLConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("wirehttp/config: parse config file: %w", err)
	}

	resolved := &ResolvedConfig{
		BaseURL:             raw.BaseURL,
		DefaultHeaders:      raw.DefaultHeaders,
		CachePolicy:         raw.CachePolicy,
		FollowMode:          raw.FollowMode,
		UnhandledMode:       raw.UnhandledMode,
		MaxRetries:          raw.MaxRetries,
		SecurityMode:        raw.Security.Mode,
		ValidatedDomainName: raw.Security.ValidatedDomainName,
		PinnedCertFiles:     raw.Security.PinnedCertFiles,
		Stubs:               raw.Stubs,
	}

	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return nil, fmt.Errorf("wirehttp/config: parse timeout %q: %w", raw.Timeout, err)
		}
		resolved.Timeout = d
	}

	return resolved, nil
}
