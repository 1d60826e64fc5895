package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-quest/internal/api"
	"go-quest/internal/config"
	"go-quest/internal/db"
	"go-quest/internal/llm"
	"go-quest/internal/quest"
	redisdb "go-quest/internal/redis"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("storage init: %w", err)
	}

	// Generative service: timer evaluations go through the background queue,
	// graph generation is waited on by a caller and uses the interactive one
	var (
		manager   *llm.Manager
		evaluator quest.Evaluator
		source    quest.GraphSource
	)
	if cfg.Evaluator.URL != "" {
		llmCfg := llm.DefaultConfig()
		llmCfg.MaxConcurrent = cfg.Evaluator.MaxConcurrent
		llmCfg.BreakerThreshold = cfg.Evaluator.BreakerThreshold
		llmCfg.BreakerCooldown = cfg.Evaluator.BreakerCooldown.Std()
		manager = llm.NewManager(llmCfg, llm.NewCircuitBreaker(llmCfg.BreakerThreshold, llmCfg.BreakerCooldown))
		defer manager.Stop()

		evalClient := llm.NewClient(manager, llm.PriorityBackground, cfg.Evaluator.Timeout.Std())
		evaluator = quest.NewGameMaster(evalClient, cfg.Evaluator.URL, cfg.Evaluator.Model)
		if cfg.Evaluator.GenerateGraphs {
			graphClient := llm.NewClient(manager, llm.PriorityInteractive, llmCfg.InteractiveTimeout)
			source = quest.NewGameMaster(graphClient, cfg.Evaluator.URL, cfg.Evaluator.Model)
		}
		log.Printf("[Main] Evaluator enabled (%s, model %s)", cfg.Evaluator.URL, cfg.Evaluator.Model)
	} else {
		log.Printf("[Main] No evaluator configured, quests use the local fallback only")
	}

	orch := quest.NewOrchestrator(quest.OrchestratorConfig{
		Session: quest.SessionConfig{
			Interval: cfg.Evaluator.Interval.Std(),
			Timeout:  cfg.Evaluator.Timeout.Std(),
		},
		Debug: cfg.Debug,
	}, evaluator, source, repo)

	hub := api.NewHub()
	orch.AddObserver(hub)

	var publisher *redisdb.Publisher
	if cfg.Redis.Addr != "" {
		rdb := redisdb.NewClient(cfg)
		defer rdb.Close()
		publisher = redisdb.NewPublisher(rdb, cfg.Redis.Channel, 0)
		orch.AddObserver(publisher)
		log.Printf("[Main] Publishing quest events to redis channel %s", cfg.Redis.Channel)
	}

	// Sessions stop before the publisher drains its queue
	defer func() {
		orch.Shutdown()
		if publisher != nil {
			publisher.Close()
		}
	}()

	if cfg.Templates != "" {
		templates, err := quest.LoadTemplates(cfg.Templates)
		if err != nil {
			return err
		}
		for _, t := range templates {
			if err := orch.RegisterTemplate(t); err != nil {
				return err
			}
		}
		log.Printf("[Main] Loaded %d quest templates", len(templates))
	}

	resumed, err := orch.Resume(ctx)
	if err != nil {
		return fmt.Errorf("resume quests: %w", err)
	}
	log.Printf("[Main] Resumed %d active quests", resumed)

	r := api.SetupRouter(cfg, api.Deps{Orchestrator: orch, Hub: hub, LLM: manager})
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting server on %s%s", addr, cfg.Server.Subpath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("[Main] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openRepository selects the quest store and puts the completed-quest cache in front
func openRepository(ctx context.Context, cfg *config.Config) (quest.Repository, error) {
	var repo quest.Repository
	switch cfg.Storage.Driver {
	case "qdrant":
		client, err := db.NewQdrantClient(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.APIKey)
		if err != nil {
			return nil, err
		}
		qr, err := db.NewQdrantRepository(ctx, client, cfg.Qdrant.Collection)
		if err != nil {
			return nil, err
		}
		repo = qr
	default:
		if err := db.Init(cfg); err != nil {
			return nil, err
		}
		repo = db.NewGormRepository(db.DB)
	}
	return db.NewCachedRepository(repo, cfg.Storage.CacheSize)
}
