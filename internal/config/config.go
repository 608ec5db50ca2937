// ABOUTME: Orchestrator configuration: server command, toolsets, and workflow definitions
// ABOUTME: YAML files merged home-then-project; env values expand $VAR so tokens stay external

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/topgunder/mcp-orchestrator/internal/workflow"
)

// FileName is looked up in the project directory and under ~/.mcp-orchestrator.
const FileName = "orchestrator.yaml"

// Duration wraps time.Duration so YAML accepts "30s"-style values.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// ServerConfig describes how to launch the tool server.
type ServerConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// Config is the top-level orchestrator configuration.
type Config struct {
	Server      ServerConfig               `yaml:"server"`
	CallTimeout Duration                   `yaml:"call_timeout,omitempty"`
	Toolsets    []string                   `yaml:"toolsets,omitempty"`
	Workflows   map[string][]workflow.Step `yaml:"workflows,omitempty"`
}

// Default returns the GitHub MCP server setup the orchestrator was built
// around: dockerized server in stdio mode with command logging and dynamic
// toolsets, token injected from the parent environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Command: "docker",
			Args: []string{
				"run", "--rm", "-i",
				"-e", "GITHUB_PERSONAL_ACCESS_TOKEN=$GITHUB_PERSONAL_ACCESS_TOKEN",
				"-w", "/server",
				"ghcr.io/github/github-mcp-server:latest",
				"./github-mcp-server", "stdio",
				"--enable-command-logging",
				"--dynamic-toolsets",
			},
		},
		CallTimeout: Duration(30 * time.Second),
		Toolsets:    []string{"repos", "pull_requests"},
	}
}

// Load reads and merges configuration. Sources checked in order (later
// sources override): defaults, ~/.mcp-orchestrator/orchestrator.yaml,
// <project>/orchestrator.yaml. Missing files are skipped silently; a file
// that exists but fails to parse is an error.
func Load(projectDir, homeDir string) (*Config, error) {
	cfg := Default()

	sources := []string{
		filepath.Join(homeDir, ".mcp-orchestrator", FileName),
		filepath.Join(projectDir, FileName),
	}
	for _, path := range sources {
		if err := mergeFile(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.expandEnv()
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = Duration(30 * time.Second)
	}
	return cfg, nil
}

// LoadFile reads a single config file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := cfg.merge(data, path); err != nil {
		return nil, err
	}
	cfg.expandEnv()
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = Duration(30 * time.Second)
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil // absent sources are fine
	}
	return cfg.merge(data, path)
}

func (c *Config) merge(data []byte, path string) error {
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if overlay.Server.Command != "" {
		c.Server = overlay.Server
	}
	if overlay.CallTimeout > 0 {
		c.CallTimeout = overlay.CallTimeout
	}
	if len(overlay.Toolsets) > 0 {
		c.Toolsets = overlay.Toolsets
	}
	for name, steps := range overlay.Workflows {
		if c.Workflows == nil {
			c.Workflows = make(map[string][]workflow.Step)
		}
		c.Workflows[name] = steps
	}
	return nil
}

// expandEnv substitutes $VAR in the server command, args, and env values so
// credentials never have to live in the config file itself.
func (c *Config) expandEnv() {
	c.Server.Command = os.ExpandEnv(c.Server.Command)
	for i, a := range c.Server.Args {
		c.Server.Args[i] = os.ExpandEnv(a)
	}
	for k, v := range c.Server.Env {
		c.Server.Env[k] = os.ExpandEnv(v)
	}
}

// ServerEnv returns the child process environment: the parent environment
// plus the configured overrides.
func (c *Config) ServerEnv() []string {
	if len(c.Server.Env) == 0 {
		return nil
	}
	env := os.Environ()
	for k, v := range c.Server.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

// Workflow returns the named workflow's steps.
func (c *Config) Workflow(name string) ([]workflow.Step, error) {
	steps, ok := c.Workflows[name]
	if !ok {
		return nil, fmt.Errorf("workflow %q not defined", name)
	}
	return steps, nil
}
