// Package app assembles the digest components from configuration. Both the
// HTTP server and the CLI build their pipeline here.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dgallion1/bookdigest/internal/config"
	"github.com/dgallion1/bookdigest/internal/docstore"
	"github.com/dgallion1/bookdigest/internal/llm"
	"github.com/dgallion1/bookdigest/internal/metrics"
	"github.com/dgallion1/bookdigest/internal/pipeline"
	"github.com/dgallion1/bookdigest/internal/sanitize"
	"github.com/dgallion1/bookdigest/internal/stage"
)

// App holds the wired components.
type App struct {
	Service *pipeline.Service
	Stats   *llm.Stats
	// Docs is set only when the local docx store is selected.
	Docs    *docstore.DocxStore
	Metrics *metrics.Metrics

	closers []func()
}

// NewLogger returns the JSON logger every component shares.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// New builds the backend, sanitizer, generator, store and service for cfg.
func New(cfg config.Config, log *slog.Logger) (*App, error) {
	rules, err := sanitize.LoadRules(cfg.SanitizeRulesFile)
	if err != nil {
		return nil, err
	}
	san, err := sanitize.New(rules)
	if err != nil {
		return nil, fmt.Errorf("compile sanitize rules: %w", err)
	}

	a := &App{Metrics: metrics.New()}

	backend, model, err := a.backend(cfg)
	if err != nil {
		return nil, err
	}
	a.Stats = llm.NewStats(model, 0)
	backend = llm.Instrumented(llm.Limited(backend, cfg.GenerationRateLimit), a.Stats)

	gen, err := stage.NewGenerator(backend, san, rules.HeadingOpeners, stage.Options{
		MaxTokens:   cfg.GenerationMaxTokens,
		Temperature: cfg.GenerationTemperature,
		Timeout:     cfg.GenerationTimeout,
	}, log)
	if err != nil {
		return nil, err
	}

	store, err := a.store(cfg)
	if err != nil {
		return nil, err
	}

	orch := pipeline.NewOrchestrator(gen, cfg.SectionConcurrency, a.Metrics, log)
	a.Service = pipeline.NewService(orch, store, a.Metrics, log)
	log.Info("pipeline ready",
		"provider", cfg.Provider,
		"model", model,
		"document_store", cfg.DocumentStore,
		"section_concurrency", cfg.SectionConcurrency)
	return a, nil
}

func (a *App) backend(cfg config.Config) (llm.Completer, string, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.GenerationTimeout), cfg.OpenAIModel, nil
	case config.ProviderAnthropic:
		c := llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, "", cfg.GenerationTimeout)
		a.closers = append(a.closers, c.Close)
		return c, cfg.AnthropicModel, nil
	}
	return nil, "", fmt.Errorf("unknown generation provider %q", cfg.Provider)
}

func (a *App) store(cfg config.Config) (docstore.Store, error) {
	switch cfg.DocumentStore {
	case config.StoreGoogle:
		return docstore.NewGoogleDocs(cfg.GoogleAccessToken, cfg.GoogleDocsURL, cfg.GenerationTimeout), nil
	case config.StoreDocx:
		s, err := docstore.NewDocxStore(cfg.DocxOutputDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		a.Docs = s
		return s, nil
	}
	return nil, fmt.Errorf("unknown document store %q", cfg.DocumentStore)
}

// Close releases idle backend connections.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}
