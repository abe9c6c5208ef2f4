package container

import (
	"context"
	"fmt"
	"log"

	"datapulse/adapters/llm"
	"datapulse/adapters/postgres"
	"datapulse/adapters/stats"
	"datapulse/app"
	"datapulse/internal/auth"
	"datapulse/internal/config"
	"datapulse/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	UserRepo     ports.UserRepository
	DatasetRepo  ports.DatasetRepository
	AnalysisRepo ports.AnalysisRepository

	// Services
	AuthService     *auth.Service
	AnalysisService *app.AnalysisService
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{Config: cfg}, nil
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db

	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.UserRepo = postgres.NewUserRepository(db)
	c.DatasetRepo = postgres.NewDatasetRepository(db)
	c.AnalysisRepo = postgres.NewAnalysisRepository(db)

	issuer := auth.NewTokenIssuer(c.Config.Auth.JWTSecret, c.Config.Auth.TokenTTL)
	c.AuthService = auth.NewService(c.UserRepo, issuer)

	detectorConfig := stats.DefaultDetectorConfig()
	detectorConfig.Contamination = c.Config.Analysis.Contamination
	detectorConfig.Seed = c.Config.Analysis.Seed
	detectorConfig.Trees = c.Config.Analysis.ForestTrees
	detectorConfig.SampleSize = c.Config.Analysis.ForestSubsample

	narrator := llm.NewNarrator(llm.NarratorConfig{
		APIKey:      c.Config.AI.OpenAIKey,
		BaseURL:     c.Config.AI.BaseURL,
		Model:       c.Config.AI.OpenAIModel,
		MaxTokens:   c.Config.AI.MaxTokens,
		Temperature: c.Config.AI.Temperature,
		Timeout:     c.Config.AI.Timeout,
	})
	if c.Config.AI.OpenAIKey == "" {
		log.Println("[Container] no OpenAI API key configured, narratives will be unavailable")
	}

	c.AnalysisService = app.NewAnalysisService(
		stats.NewProfiler(),
		stats.NewOutlierDetector(detectorConfig),
		narrator,
		c.DatasetRepo,
		c.AnalysisRepo,
		c.Config.Analysis.MaxConcurrent,
	)

	log.Printf("[Container] initialized with database connection")
	return nil
}

// Shutdown releases container resources
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
