package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GeminiConfig holds configuration for the Gemini embedding and
// completion client.
type GeminiConfig struct {
	BaseURL         string `yaml:"base_url"`
	APIKeyEnv       string `yaml:"api_key_env"`
	EmbeddingModel  string `yaml:"embedding_model"`
	CompletionModel string `yaml:"completion_model"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
}

// PlacesConfig configures the nearby-places lookup client.
type PlacesConfig struct {
	BaseURL      string            `yaml:"base_url"`
	APIKeyEnv    string            `yaml:"api_key_env"`
	RadiusMeters int               `yaml:"radius_meters"`
	DisplayCap   int               `yaml:"display_cap"`
	TimeoutSecs  int               `yaml:"timeout_secs"`
	Aliases      map[string]string `yaml:"aliases,omitempty"`
}

// RetrievalConfig configures top-k passage retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// KnowledgeConfig points at the property data file produced by the
// offline indexing job. Dimension pins the expected embedding width;
// zero means take it from the first record and enforce consistency.
type KnowledgeConfig struct {
	DataFile  string `yaml:"data_file"`
	Dimension int    `yaml:"dimension"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Places    PlacesConfig    `yaml:"places"`
}

// Load reads a config from the specified path. A missing file is an
// error: the caller asked for that file. LoadDefault handles the
// nothing-configured-yet case.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/staychat/config.yaml.
// If neither exists, it writes defaults to ~/.config/staychat/config.yaml
// and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations the pipeline cannot start with.
func (cfg *AppConfig) Validate() error {
	if cfg.Knowledge.DataFile == "" {
		return errors.New("knowledge.data_file is required")
	}
	if cfg.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Places.RadiusMeters <= 0 {
		return fmt.Errorf("places.radius_meters must be positive, got %d", cfg.Places.RadiusMeters)
	}
	if cfg.Places.DisplayCap <= 0 {
		return fmt.Errorf("places.display_cap must be positive, got %d", cfg.Places.DisplayCap)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "staychat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Knowledge: KnowledgeConfig{DataFile: "data/properties.json"},
		Retrieval: RetrievalConfig{TopK: 7},
		Gemini: GeminiConfig{
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
			APIKeyEnv:       "GEMINI_API_KEY",
			EmbeddingModel:  "text-embedding-004",
			CompletionModel: "gemini-1.5-flash-latest",
			TimeoutSecs:     30,
		},
		Places: PlacesConfig{
			BaseURL:      "https://maps.googleapis.com/maps/api/place",
			APIKeyEnv:    "GOOGLE_PLACES_API_KEY",
			RadiusMeters: 5000,
			DisplayCap:   10,
			TimeoutSecs:  15,
			Aliases:      map[string]string{"gardens": "park"},
		},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Knowledge.DataFile == "" {
		cfg.Knowledge.DataFile = def.Knowledge.DataFile
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Gemini.BaseURL == "" {
		cfg.Gemini.BaseURL = def.Gemini.BaseURL
	}
	if cfg.Gemini.APIKeyEnv == "" {
		cfg.Gemini.APIKeyEnv = def.Gemini.APIKeyEnv
	}
	if cfg.Gemini.EmbeddingModel == "" {
		cfg.Gemini.EmbeddingModel = def.Gemini.EmbeddingModel
	}
	if cfg.Gemini.CompletionModel == "" {
		cfg.Gemini.CompletionModel = def.Gemini.CompletionModel
	}
	if cfg.Gemini.TimeoutSecs == 0 {
		cfg.Gemini.TimeoutSecs = def.Gemini.TimeoutSecs
	}
	if cfg.Places.BaseURL == "" {
		cfg.Places.BaseURL = def.Places.BaseURL
	}
	if cfg.Places.APIKeyEnv == "" {
		cfg.Places.APIKeyEnv = def.Places.APIKeyEnv
	}
	if cfg.Places.RadiusMeters == 0 {
		cfg.Places.RadiusMeters = def.Places.RadiusMeters
	}
	if cfg.Places.DisplayCap == 0 {
		cfg.Places.DisplayCap = def.Places.DisplayCap
	}
	if cfg.Places.TimeoutSecs == 0 {
		cfg.Places.TimeoutSecs = def.Places.TimeoutSecs
	}
}
