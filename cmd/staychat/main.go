package main

import (
	"flag"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"staychat/internal/config"
	"staychat/internal/dispatch"
	"staychat/internal/knowledge"
	"staychat/internal/llm/gemini"
	"staychat/internal/places/google"
	"staychat/internal/service"
	"staychat/internal/session"
	"staychat/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/staychat/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	catalog, err := knowledge.Load(cfg.Knowledge.DataFile, cfg.Knowledge.Dimension)
	if err != nil {
		log.Fatalf("failed to load property data: %v", err)
	}

	llmClient, err := gemini.NewClient(gemini.Config{
		BaseURL:         cfg.Gemini.BaseURL,
		APIKeyEnv:       cfg.Gemini.APIKeyEnv,
		EmbeddingModel:  cfg.Gemini.EmbeddingModel,
		CompletionModel: cfg.Gemini.CompletionModel,
		Timeout:         time.Duration(cfg.Gemini.TimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Fatalf("gemini client init failed: %v", err)
	}

	placesClient, err := google.NewClient(google.Config{
		BaseURL:   cfg.Places.BaseURL,
		APIKeyEnv: cfg.Places.APIKeyEnv,
		Timeout:   time.Duration(cfg.Places.TimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Fatalf("places client init failed: %v", err)
	}

	svc := service.New(
		catalog,
		llmClient,
		llmClient,
		placesClient,
		session.NewStore(),
		dispatch.NewParser(cfg.Places.Aliases),
		dispatch.NewComposer(cfg.Places.DisplayCap),
		service.Options{TopK: cfg.Retrieval.TopK, RadiusMeters: cfg.Places.RadiusMeters},
	)

	m := tui.New(svc)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
