// Package config provides configuration for the tutor server and client.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tutor configuration.
type Config struct {
	// External scripts
	PythonExecutable string
	InitScript       string
	ChatScript       string
	ScriptDir        string
	ChainInit        bool
	ScriptTimeout    time.Duration

	// Router
	ResetURL string

	// Server settings
	HTTPPort int

	// Optional AWS integrations
	RunTable    string
	ParamPrefix string

	// Client settings
	TutorURL string
}

func defaults() Config {
	return Config{
		PythonExecutable: "python3",
		InitScript:       "./init_data.py",
		ChatScript:       "./main.py",
		ResetURL:         "http://localhost:8080/reset/",
		HTTPPort:         3000,
		TutorURL:         "http://localhost:3000",
	}
}

// Load loads configuration from environment variables.
func Load() *Config {
	c := defaults()
	c.applyEnv()
	return &c
}

// fileConfig mirrors Config in a YAML file. Unset keys keep their defaults.
type fileConfig struct {
	PythonExecutable string `yaml:"python_executable"`
	InitScript       string `yaml:"init_script"`
	ChatScript       string `yaml:"chat_script"`
	ScriptDir        string `yaml:"script_dir"`
	ChainInit        *bool  `yaml:"chain_init"`
	ScriptTimeout    string `yaml:"script_timeout"`
	ResetURL         string `yaml:"reset_url"`
	HTTPPort         int    `yaml:"http_port"`
	RunTable         string `yaml:"run_table"`
	ParamPrefix      string `yaml:"param_prefix"`
	TutorURL         string `yaml:"tutor_url"`
}

// LoadFile loads defaults, then the YAML file at path, then environment
// variables, each overriding the previous. An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	c := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if err := c.applyFile(fc); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	c.applyEnv()
	return &c, nil
}

func (c *Config) applyFile(fc fileConfig) error {
	setString(&c.PythonExecutable, fc.PythonExecutable)
	setString(&c.InitScript, fc.InitScript)
	setString(&c.ChatScript, fc.ChatScript)
	setString(&c.ScriptDir, fc.ScriptDir)
	setString(&c.ResetURL, fc.ResetURL)
	setString(&c.RunTable, fc.RunTable)
	setString(&c.ParamPrefix, fc.ParamPrefix)
	setString(&c.TutorURL, fc.TutorURL)
	if fc.ChainInit != nil {
		c.ChainInit = *fc.ChainInit
	}
	if fc.HTTPPort != 0 {
		c.HTTPPort = fc.HTTPPort
	}
	if fc.ScriptTimeout != "" {
		d, err := time.ParseDuration(fc.ScriptTimeout)
		if err != nil {
			return fmt.Errorf("script_timeout: %w", err)
		}
		c.ScriptTimeout = d
	}
	c.ParamPrefix = strings.TrimRight(c.ParamPrefix, "/")
	return nil
}

func (c *Config) applyEnv() {
	c.PythonExecutable = getEnv("PYTHON_EXECUTABLE", c.PythonExecutable)
	c.InitScript = getEnv("INIT_SCRIPT", c.InitScript)
	c.ChatScript = getEnv("CHAT_SCRIPT", c.ChatScript)
	c.ScriptDir = getEnv("SCRIPT_DIR", c.ScriptDir)
	c.ChainInit = getEnvBool("CHAIN_INIT", c.ChainInit)
	c.ScriptTimeout = getEnvDuration("SCRIPT_TIMEOUT", c.ScriptTimeout)
	c.ResetURL = getEnv("RESET_URL", c.ResetURL)
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.RunTable = getEnv("RUN_TABLE", c.RunTable)
	c.ParamPrefix = strings.TrimRight(getEnv("PARAM_PREFIX", c.ParamPrefix), "/")
	c.TutorURL = getEnv("TUTOR_URL", c.TutorURL)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// ParamLookup fetches parameters by full name; missing names are left out of
// the result.
type ParamLookup interface {
	LookupParameters(ctx context.Context, names []string) (map[string]string, error)
}

// ApplyParams overrides script and router settings with values stored under
// prefix. Parameters that do not exist keep the current value.
func (c *Config) ApplyParams(ctx context.Context, p ParamLookup, prefix string) error {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if p == nil || prefix == "" {
		return nil
	}

	targets := map[string]*string{
		prefix + "/python_executable": &c.PythonExecutable,
		prefix + "/init_script":       &c.InitScript,
		prefix + "/chat_script":       &c.ChatScript,
		prefix + "/reset_url":         &c.ResetURL,
	}
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}

	values, err := p.LookupParameters(ctx, names)
	if err != nil {
		return fmt.Errorf("config: load parameters under %s: %w", prefix, err)
	}
	for name, dst := range targets {
		if v := strings.TrimSpace(values[name]); v != "" {
			*dst = v
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("90s") and plain seconds ("90").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
