// Package environment resolves the runtime mode and the backend target for
// each service category.
package environment

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/Theruz/8aAscents/client/internal/endpoint"
)

// Mode is the deployment the client talks to.
type Mode string

const (
	ModeMock        Mode = "mock"
	ModeDevelopment Mode = "development"
	ModeIntegration Mode = "integration"
	ModeUAT         Mode = "uat"
	ModeStaging     Mode = "staging"
	ModeProduction  Mode = "production"
)

// ParseMode accepts a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeMock, ModeDevelopment, ModeIntegration, ModeUAT, ModeStaging, ModeProduction:
		return m, nil
	default:
		return "", fmt.Errorf("unknown environment mode %q", s)
	}
}

// Decode lets envconfig parse ASCENTS_MODE.
func (m *Mode) Decode(value string) error {
	parsed, err := ParseMode(value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// UnmarshalYAML lets hosts files use mode names as keys.
func (m *Mode) UnmarshalYAML(node *yaml.Node) error {
	return m.Decode(node.Value)
}

// Environment is what the executor needs to know about the deployment.
type Environment interface {
	Mode() Mode
	Target(endpoint.Category) (endpoint.Target, error)
}

// Config groups the client's tunables. Values are read from environment
// variables with the prefix "ASCENTS_". Example: ASCENTS_MODE=uat.
type Config struct {
	Mode           Mode          `envconfig:"MODE"            default:"development"`
	HostsFile      string        `envconfig:"HOSTS_FILE"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	MockDelay      time.Duration `envconfig:"MOCK_DELAY"      default:"0s"`
	Workers        int           `envconfig:"WORKERS"         default:"4"`
	QueueSize      int           `envconfig:"QUEUE_SIZE"      default:"128"`
	RateLimit      float64       `envconfig:"RATE_LIMIT"      default:"0"`
	UserAgent      string        `envconfig:"USER_AGENT"      default:"ascents-go-client"`
}

// LoadConfig populates Config from environment variables (prefix ASCENTS_).
func LoadConfig() (Config, error) {
	var c Config
	if err := envconfig.Process("ASCENTS", &c); err != nil {
		return Config{}, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if c.MockDelay < 0 {
		return Config{}, fmt.Errorf("ASCENTS_MOCK_DELAY must be >= 0, got %s", c.MockDelay)
	}
	return c, nil
}

// Static is an Environment backed by a fixed host table.
type Static struct {
	mode  Mode
	hosts HostTable
}

// New returns an Environment for mode using hosts. A nil table means the
// built-in defaults.
func New(mode Mode, hosts HostTable) *Static {
	if hosts == nil {
		hosts = DefaultHosts()
	}
	return &Static{mode: mode, hosts: hosts}
}

// FromConfig builds the Environment described by cfg, merging the hosts file
// over the defaults when one is configured.
func FromConfig(cfg Config) (*Static, error) {
	hosts := DefaultHosts()
	if cfg.HostsFile != "" {
		overrides, err := LoadHostsFile(cfg.HostsFile)
		if err != nil {
			return nil, err
		}
		hosts.Merge(overrides)
	}
	log.Debug().
		Str("mode", string(cfg.Mode)).
		Str("hosts_file", cfg.HostsFile).
		Msg("environment resolved")
	return New(cfg.Mode, hosts), nil
}

func (s *Static) Mode() Mode { return s.mode }

// Target returns scheme, host and port for category. Mock mode has no
// target and never fails.
func (s *Static) Target(category endpoint.Category) (endpoint.Target, error) {
	if s.mode == ModeMock {
		return endpoint.Target{}, nil
	}
	mh, ok := s.hosts[s.mode]
	if !ok {
		return endpoint.Target{}, fmt.Errorf("no hosts configured for mode %q", s.mode)
	}
	t := mh.Default
	if ct, ok := mh.Categories[category]; ok {
		t = ct
	}
	if t.Host == "" {
		return endpoint.Target{}, fmt.Errorf("no host configured for %s/%s", s.mode, category)
	}
	return t, nil
}

// ModeHosts is the host configuration of one mode.
type ModeHosts struct {
	Default    endpoint.Target                       `yaml:"default"`
	Categories map[endpoint.Category]endpoint.Target `yaml:"categories"`
}

// HostTable maps each mode to its hosts.
type HostTable map[Mode]ModeHosts

// Merge overlays other onto t. Category entries are merged one by one; a
// non-empty default replaces the existing one.
func (t HostTable) Merge(other HostTable) {
	for mode, mh := range other {
		cur := t[mode]
		if mh.Default.Host != "" || mh.Default.Scheme != "" || mh.Default.Port != 0 {
			cur.Default = mh.Default
		}
		if len(mh.Categories) > 0 && cur.Categories == nil {
			cur.Categories = map[endpoint.Category]endpoint.Target{}
		}
		for c, target := range mh.Categories {
			cur.Categories[c] = target
		}
		t[mode] = cur
	}
}

type hostsFile struct {
	Modes HostTable `yaml:"modes"`
}

// LoadHostsFile reads a YAML hosts file:
//
//	modes:
//	  production:
//	    default: {scheme: https, host: api.example.ch}
//	    categories:
//	      configTool: {scheme: https, host: config.example.ch}
func LoadHostsFile(path string) (HostTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hosts file: %w", err)
	}
	var f hostsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse hosts file %s: %w", path, err)
	}
	return f.Modes, nil
}

// DefaultHosts is the built-in host table.
func DefaultHosts() HostTable {
	configDev := endpoint.Target{Scheme: "https", Host: "config-int.Toto.ch", Port: 8080}
	configInt := endpoint.Target{Scheme: "https", Host: "config-int.Toto.ch"}
	configTest := endpoint.Target{Scheme: "https", Host: "config-test.Toto.ch"}
	return HostTable{
		ModeDevelopment: {
			Default:    endpoint.Target{Scheme: "http", Host: "193.246.34.72", Port: 8080},
			Categories: map[endpoint.Category]endpoint.Target{endpoint.CategoryConfigTool: configDev},
		},
		ModeIntegration: {
			Default:    endpoint.Target{Scheme: "https", Host: "backend-int.Toto.ch"},
			Categories: map[endpoint.Category]endpoint.Target{endpoint.CategoryConfigTool: configInt},
		},
		ModeUAT: {
			Default:    endpoint.Target{Scheme: "https", Host: "backend-test.Toto.ch"},
			Categories: map[endpoint.Category]endpoint.Target{endpoint.CategoryConfigTool: configTest},
		},
		ModeStaging: {
			Default:    endpoint.Target{Scheme: "https", Host: "backend-test.Toto.ch"},
			Categories: map[endpoint.Category]endpoint.Target{endpoint.CategoryConfigTool: configTest},
		},
		// Production hosts are not built in; supply them with a hosts file.
		ModeProduction: {Default: endpoint.Target{Scheme: "https"}},
	}
}
