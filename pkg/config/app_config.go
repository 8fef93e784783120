package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in general.backend.
const (
	BackendSupabase = "supabase"
	BackendLocal    = "local"
)

type AppConfig struct {
	General    GeneralConfig    `yaml:"general"`
	Agent      AgentConfig      `yaml:"agent"`
	UI         UIConfig         `yaml:"ui"`
	Session    SessionConfig    `yaml:"session"`
	LocalStore LocalStoreConfig `yaml:"local_store"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type GeneralConfig struct {
	Port        int           `yaml:"port"`
	Backend     string        `yaml:"backend"`
	TurnTimeout time.Duration `yaml:"turn_timeout,omitempty"`
}

type AgentConfig struct {
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
	MatchCount     int    `yaml:"match_count"`
	Source         string `yaml:"source"`
	SystemPrompt   string `yaml:"system_prompt,omitempty"`
}

type UIConfig struct {
	Title       string        `yaml:"title"`
	Subtitle    string        `yaml:"subtitle"`
	Placeholder string        `yaml:"placeholder"`
	Sidebar     SidebarConfig `yaml:"sidebar"`
}

type SidebarConfig struct {
	Heading    string `yaml:"heading"`
	About      string `yaml:"about"`
	Link       string `yaml:"link"`
	Author     string `yaml:"author"`
	Contact    string `yaml:"contact"`
	Disclaimer string `yaml:"disclaimer"`
}

type SessionConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	Sweep       string        `yaml:"sweep"`
}

type LocalStoreConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// Default returns the configuration used when no config file exists.
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field with its default.
func (c *AppConfig) ApplyDefaults() {
	setDefault(&c.General.Port, 8501)
	setDefault(&c.General.Backend, BackendSupabase)

	setDefault(&c.Agent.Model, "gpt-4o-mini")
	setDefault(&c.Agent.EmbeddingModel, "text-embedding-3-small")
	setDefault(&c.Agent.MatchCount, 5)
	setDefault(&c.Agent.Source, "dau_docs")

	setDefault(&c.UI.Title, "DAU AI Agentic Chatbot")
	setDefault(&c.UI.Subtitle, "Ask any question about DAU (Dhirubhai Ambani University)")
	setDefault(&c.UI.Placeholder, "What questions do you have about Dhirubhai Ambani University")
	setDefault(&c.UI.Sidebar.Heading, "🧩 Info")
	setDefault(&c.UI.Sidebar.About, "This is Agentic RAG Chatbot for DAU's website.")
	setDefault(&c.UI.Sidebar.Link, "For more details visit dau.ac.in")
	setDefault(&c.UI.Sidebar.Author, "Made by: Parth Patel - M.Tech(ML)")
	setDefault(&c.UI.Sidebar.Contact, "Email: 202411047@dau.ac.in")
	setDefault(&c.UI.Sidebar.Disclaimer, "This project is intended solely for learning and is not associated with any official website.")

	setDefault(&c.Session.IdleTimeout, 30*time.Minute)
	setDefault(&c.Session.Sweep, "@every 1m")

	setDefault(&c.LocalStore.Collection, "site_pages")

	setDefault(&c.Logging.Level, "info")
	setDefault(&c.Logging.Format, "text")
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

func GetConfigDir() (string, error) {
	if dir := os.Getenv("DAUBOT_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "daubot"), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// GetLocalStorePath returns the configured local store path, defaulting to a
// directory next to config.yaml.
func GetLocalStorePath(cfg *AppConfig) (string, error) {
	if cfg.LocalStore.Path != "" {
		return cfg.LocalStore.Path, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "store"), nil
}

func LoadAppConfig() (*AppConfig, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadAppConfigFrom(path)
}

// LoadAppConfigFrom reads the config at path. A missing file yields the
// defaults.
func LoadAppConfigFrom(path string) (*AppConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

func SaveAppConfig(cfg *AppConfig) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
