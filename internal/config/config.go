// Package config loads the CarePath client configuration from the workspace.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/workflow"
	"github.com/cenyuzhangms/MAFCarepath-v2/internal/workspace"
)

// Environment overrides.
const (
	EnvBackend = "CAREPATH_BACKEND"
	EnvToken   = "CAREPATH_TOKEN"
)

// Defaults.
const (
	DefaultBackendURL = "http://localhost:7000"
	DefaultQueueSize  = 256
)

// Config is the client configuration.
type Config struct {
	BackendURL       string    `yaml:"backendURL,omitempty" json:"backendURL,omitempty"`
	Pattern          string    `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Reconnect        Reconnect `yaml:"reconnect,omitempty" json:"reconnect,omitempty"`
	CredentialURL    string    `yaml:"credentialURL,omitempty" json:"credentialURL,omitempty"`
	Persist          *bool     `yaml:"persist,omitempty" json:"persist,omitempty"`
	QueueSize        int       `yaml:"queueSize,omitempty" json:"queueSize,omitempty"`
	HandshakeTimeout Duration  `yaml:"handshakeTimeout,omitempty" json:"handshakeTimeout,omitempty"`
	RequestTimeout   Duration  `yaml:"requestTimeout,omitempty" json:"requestTimeout,omitempty"`

	// Token comes from the environment only and is never read from files.
	Token string `yaml:"-" json:"-"`
}

// Reconnect controls websocket reconnect backoff.
type Reconnect struct {
	Delay    Duration `yaml:"delay,omitempty" json:"delay,omitempty"`
	MaxDelay Duration `yaml:"maxDelay,omitempty" json:"maxDelay,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	ret := &Config{}
	ret.Init()
	return ret
}

// Init fills unset fields with defaults.
func (c *Config) Init() {
	if strings.TrimSpace(c.BackendURL) == "" {
		c.BackendURL = DefaultBackendURL
	}
	if strings.TrimSpace(c.Pattern) == "" {
		c.Pattern = string(workflow.DefaultPattern)
	}
	if c.Reconnect.Delay <= 0 {
		c.Reconnect.Delay = Duration(1500 * time.Millisecond)
	}
	if c.Reconnect.MaxDelay <= 0 {
		c.Reconnect.MaxDelay = Duration(30 * time.Second)
	}
	if c.CredentialURL == "" {
		c.CredentialURL = workspace.File(workspace.TokenFile) + "|blowfish://default"
	}
	if c.Persist == nil {
		enabled := true
		c.Persist = &enabled
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = Duration(10 * time.Second)
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = Duration(30 * time.Second)
	}
}

// Validate checks the backend URL and pattern.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid backendURL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backendURL %q: expected http(s)://host", c.BackendURL)
	}
	if _, err := workflow.ParsePattern(c.Pattern); err != nil {
		return err
	}
	if c.Reconnect.MaxDelay < c.Reconnect.Delay {
		return fmt.Errorf("invalid reconnect: maxDelay %s below delay %s", c.Reconnect.MaxDelay.Std(), c.Reconnect.Delay.Std())
	}
	return nil
}

// PersistEnabled reports whether session events are sent to the session service.
func (c *Config) PersistEnabled() bool {
	return c.Persist == nil || *c.Persist
}

// WorkflowPattern returns the parsed pattern.
func (c *Config) WorkflowPattern() workflow.Pattern {
	p, err := workflow.ParsePattern(c.Pattern)
	if err != nil {
		return workflow.DefaultPattern
	}
	return p
}

// Load reads configuration from URL, or from the workspace config.yaml
// when URL is empty. A missing workspace file yields defaults; a missing
// explicit file is an error. Environment overrides are applied last.
func Load(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	explicit := strings.TrimSpace(URL) != ""
	if !explicit {
		URL = workspace.File(workspace.ConfigFile)
	} else {
		URL = workspace.ExpandUserHome(URL)
	}
	cfg := &Config{}
	ok, err := fs.Exists(ctx, URL)
	switch {
	case err == nil && ok:
		data, err := fs.DownloadWithURL(ctx, URL)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %v: %w", URL, err)
		}
		if cfg, err = Decode(URL, data); err != nil {
			return nil, err
		}
	case explicit:
		return nil, fmt.Errorf("config not found: %v", URL)
	}
	cfg.applyEnv()
	cfg.Init()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses data as YAML, or as JSON with comments when the location
// ends in .json or .jsonc.
func Decode(location string, data []byte) (*Config, error) {
	cfg := &Config{}
	switch strings.ToLower(path.Ext(location)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %v: %w", location, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %v: %w", location, err)
		}
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvBackend)); v != "" {
		c.BackendURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		c.Token = v
	}
}
