package svc

import (
	"context"
	"errors"
	"fmt"

	"github.com/sentryai/sentry/internal/ai"
	"github.com/sentryai/sentry/internal/analysis"
	"github.com/sentryai/sentry/internal/config"
	"github.com/sentryai/sentry/internal/conversation"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/history"
	"github.com/sentryai/sentry/internal/knowledge"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/prompt"
)

// ServiceContext carries the long-lived collaborators every handler and
// logic type needs.
type ServiceContext struct {
	Config config.Config

	DB       *db.Store
	Registry *ai.Registry
	History  *history.Manager
	Policy   *prompt.PolicyStore
	// Index is nil when the knowledge base is disabled.
	Index     *knowledge.Index
	Assembler *prompt.Assembler

	Titler       *conversation.Titler
	Orchestrator *conversation.Orchestrator

	Analyzer *analysis.LLMAnalyzer
	Pool     *analysis.Pool
	Sweeper  *analysis.Sweeper
}

// NewServiceContext opens the database, builds the provider registry and
// starts the analysis pool. Close releases all of it.
func NewServiceContext(ctx context.Context, c config.Config) (*ServiceContext, error) {
	store, err := db.NewSQLite(c.Database.SQLitePath)
	if err != nil {
		return nil, err
	}
	registry, err := ai.NewRegistryFromConfig(ctx, c.Providers)
	if err != nil {
		store.Close()
		return nil, err
	}
	policy, err := prompt.NewPolicyStore(c.Prompt.PolicyPath)
	if err != nil {
		registry.Close()
		store.Close()
		return nil, fmt.Errorf("load policy: %w", err)
	}
	return NewWith(c, store, registry, policy), nil
}

// NewWith assembles a ServiceContext around an already opened store and
// registry.
func NewWith(c config.Config, store *db.Store, registry *ai.Registry, policy *prompt.PolicyStore) *ServiceContext {
	s := &ServiceContext{
		Config:   c,
		DB:       store,
		Registry: registry,
		History:  history.NewManager(store),
		Policy:   policy,
	}

	var retriever prompt.Retriever
	if c.IsKnowledgeEnabled() {
		s.Index = knowledge.NewIndex(store.DB(), knowledge.WithMaxChars(c.Knowledge.ChunkSize))
		retriever = s.Index
	}
	s.Assembler = prompt.NewAssembler(policy, retriever, c.Knowledge.TopK)

	s.Titler = conversation.NewTitler(store, registry, c.Chat.TitleModel, c.Chat.TitleTimeout)
	s.Orchestrator = conversation.NewOrchestrator(conversation.Deps{
		Store:     store,
		History:   s.History,
		Assembler: s.Assembler,
		Resolver:  registry,
		Titler:    s.Titler,
	}, conversation.Options{
		DefaultModel:  c.Chat.DefaultModel,
		HistoryWindow: c.Chat.HistoryWindow,
		MaxTokens:     c.Chat.MaxTokens,
		StreamTimeout: c.Chat.StreamTimeout,
	})

	s.Analyzer = analysis.NewLLMAnalyzer(registry, c.Analysis.Model, c.Analysis.MaxInputChars, c.Chat.MaxTokens)
	s.Pool = analysis.NewPool(s.Analyzer, store, c.Analysis.Workers,
		analysis.WithJobTimeout(c.Analysis.Timeout),
		analysis.WithOnFinish(func(id, status string, err error) {
			if err != nil {
				logging.Errorf("[analysis] contract %s: could not record %s result: %v", id, status, err)
			}
		}),
	)
	s.Sweeper = analysis.NewSweeper(store, s.Pool, c.Analysis.StaleAfter)
	return s
}

// Close stops background work, waiting at most until ctx is done for queued
// analyses, and then closes providers and the database.
func (s *ServiceContext) Close(ctx context.Context) error {
	var errs []error
	s.Sweeper.Stop()
	if err := s.Pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("analysis pool: %w", err))
	}
	s.Titler.Wait()
	if err := s.Registry.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.DB.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
