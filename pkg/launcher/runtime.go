package launcher

import (
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/agent"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/backend"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/config"
)

// Runtime holds the client handles built once at startup and shared by
// every turn.
type Runtime struct {
	Agent agent.Agent
	Deps  agent.Dependencies
	Pages backend.PageLister
	Local *backend.LocalStore
}

// BuildRuntime creates the completion client and the configured backend.
func BuildRuntime(cfg *config.AppConfig, creds config.Credentials, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := openai.NewClient(creds.OpenAIAPIKey)

	expert := agent.NewExpert(cfg.Agent.Model, cfg.Agent.EmbeddingModel, cfg.Agent.MatchCount)
	if cfg.Agent.SystemPrompt != "" {
		expert.SystemPrompt = cfg.Agent.SystemPrompt
	}
	expert.Logger = logger

	rt := &Runtime{
		Agent: expert,
		Deps:  agent.Dependencies{Completions: client},
	}

	switch cfg.General.Backend {
	case config.BackendSupabase:
		sb := backend.NewSupabase(creds.SupabaseURL, creds.SupabaseServiceKey, cfg.Agent.Source)
		rt.Deps.Backend = sb
		rt.Pages = sb
	case config.BackendLocal:
		store, err := OpenLocalStore(cfg, client)
		if err != nil {
			return nil, err
		}
		logger.Info("opened local store", "documents", store.Count())
		rt.Deps.Backend = store
		rt.Local = store
	default:
		return nil, fmt.Errorf("unknown backend %q (want %q or %q)", cfg.General.Backend, config.BackendSupabase, config.BackendLocal)
	}

	return rt, nil
}

// OpenLocalStore opens the persistent local vector store using OpenAI
// embeddings.
func OpenLocalStore(cfg *config.AppConfig, client *openai.Client) (*backend.LocalStore, error) {
	path, err := config.GetLocalStorePath(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local store path: %w", err)
	}
	embed := backend.OpenAIEmbedder(client, cfg.Agent.EmbeddingModel)
	store, err := backend.OpenLocalStore(path, cfg.LocalStore.Collection, cfg.Agent.Source, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store at %s: %w", path, err)
	}
	return store, nil
}
