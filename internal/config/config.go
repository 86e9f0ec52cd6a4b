// Package config loads csagent settings from defaults, an optional YAML
// file, a .env file and the process environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/flowgraph/csagent/pkg/validation"
)

// Config holds all configuration for both workflows
type Config struct {
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Search     SearchConfig     `mapstructure:"search"`
	Support    SupportConfig    `mapstructure:"support"`
	React      ReactConfig      `mapstructure:"react"`
	Hub        HubConfig        `mapstructure:"hub"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	App        AppConfig        `mapstructure:"app"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key" validate:"required"`
	Model       string  `mapstructure:"model" validate:"required"`
	BaseURL     string  `mapstructure:"base_url" validate:"omitempty,url"`
	Temperature float64 `mapstructure:"temperature" validate:"min=0,max=2"`
}

type SearchConfig struct {
	APIKey     string `mapstructure:"api_key" validate:"required"`
	BaseURL    string `mapstructure:"base_url" validate:"omitempty,url"`
	MaxResults int    `mapstructure:"max_results" validate:"min=1"`
}

type SupportConfig struct {
	Task         string `mapstructure:"task" validate:"required"`
	MaxRevisions int    `mapstructure:"max_revisions" validate:"min=0"`
	ThreadID     string `mapstructure:"thread_id" validate:"required"`
}

// ReactConfig points the ReAct agent at an OpenAI-compatible local server
type ReactConfig struct {
	APIKey           string  `mapstructure:"api_key" validate:"required"`
	Model            string  `mapstructure:"model" validate:"required"`
	BaseURL          string  `mapstructure:"base_url" validate:"required,url"`
	Temperature      float64 `mapstructure:"temperature" validate:"min=0,max=2"`
	Prompt           string  `mapstructure:"prompt" validate:"required,prompt_ref"`
	Question         string  `mapstructure:"question" validate:"required"`
	SearchMaxResults int     `mapstructure:"search_max_results" validate:"min=1"`
	MaxIterations    int     `mapstructure:"max_iterations" validate:"min=1"`
}

type HubConfig struct {
	APIURL string `mapstructure:"api_url" validate:"required,url"`
	APIKey string `mapstructure:"api_key"`
}

type CheckpointConfig struct {
	Backend       string `mapstructure:"backend" validate:"oneof=memory sqlite postgres"`
	DSN           string `mapstructure:"dsn" validate:"required_if=Backend postgres"`
	Codec         string `mapstructure:"codec" validate:"oneof=json msgpack"`
	Compression   string `mapstructure:"compression" validate:"oneof=none gzip zstd"`
	EncryptionKey string `mapstructure:"encryption_key"`
}

type AppConfig struct {
	LogLevel       string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	NodeRetries    int           `mapstructure:"node_retries" validate:"min=0"`
}

var defaults = map[string]interface{}{
	"openai.api_key":     "",
	"openai.model":       "gpt-3.5-turbo",
	"openai.base_url":    "",
	"openai.temperature": 0.0,

	"search.api_key":     "",
	"search.base_url":    "https://api.tavily.com",
	"search.max_results": 2,

	"support.task":          "what is the refund policy of the product apple 16 phone",
	"support.max_revisions": 2,
	"support.thread_id":     "1",

	"react.api_key":            "ollama",
	"react.model":              "mistral",
	"react.base_url":           "http://localhost:11434/v1",
	"react.temperature":        0.0,
	"react.prompt":             "wfh/react-agent-executor",
	"react.question":           "What is Oracle database",
	"react.search_max_results": 1,
	"react.max_iterations":     12,

	"hub.api_url": "https://api.hub.langchain.com",
	"hub.api_key": "",

	"checkpoint.backend":        "sqlite",
	"checkpoint.dsn":            ":memory:",
	"checkpoint.codec":          "msgpack",
	"checkpoint.compression":    "zstd",
	"checkpoint.encryption_key": "",

	"app.log_level":       "info",
	"app.request_timeout": "60s",
	"app.node_retries":    0,
}

// Environment names kept for compatibility with the usual provider variables
var aliases = map[string][]string{
	"search.api_key": {"SEARCH_API_KEY", "TAVILY_API_KEY"},
	"hub.api_key":    {"HUB_API_KEY", "LANGCHAIN_HUB_API_KEY", "LANGCHAIN_API_KEY"},
	"app.log_level":  {"APP_LOG_LEVEL", "LOG_LEVEL"},
}

// New returns a viper instance with defaults and environment binding.
// Keys map to upper-case variables with dots replaced by underscores, so
// openai.api_key reads OPENAI_API_KEY.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, names := range aliases {
		_ = v.BindEnv(append([]string{k}, names...)...)
	}
	return v
}

// Load reads .env (if present) and the optional YAML file into v and
// decodes the result. It does not validate; see ValidateSupport and
// ValidateReact.
func Load(v *viper.Viper, file string) (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &cfg, nil
}

type supportView struct {
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Search     SearchConfig     `mapstructure:"search"`
	Support    SupportConfig    `mapstructure:"support"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	App        AppConfig        `mapstructure:"app"`
}

type reactView struct {
	React      ReactConfig      `mapstructure:"react"`
	Search     SearchConfig     `mapstructure:"search"`
	Hub        HubConfig        `mapstructure:"hub"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	App        AppConfig        `mapstructure:"app"`
}

// ValidateSupport checks the sections the support workflow reads
func (c *Config) ValidateSupport() error {
	if err := validation.ValidateStruct(supportView{c.OpenAI, c.Search, c.Support, c.Checkpoint, c.App}); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateReact checks the sections the ReAct workflow reads
func (c *Config) ValidateReact() error {
	if err := validation.ValidateStruct(reactView{c.React, c.Search, c.Hub, c.Checkpoint, c.App}); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
