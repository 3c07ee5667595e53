package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/howtomakeaname/kizuna-engine/internal/ai"
	"github.com/howtomakeaname/kizuna-engine/internal/config"
	"github.com/howtomakeaname/kizuna-engine/internal/engine"
	"github.com/howtomakeaname/kizuna-engine/internal/handler"
	"github.com/howtomakeaname/kizuna-engine/internal/logger"
	"github.com/howtomakeaname/kizuna-engine/internal/prompts"
	"github.com/howtomakeaname/kizuna-engine/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("warning: could not load .env file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := storage.NewPool(ctx, cfg.GetDSN(), int32(cfg.DBMaxConns), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := storage.ApplyMigrations(pool, log); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	saveRepo := storage.NewSaveRepository(pool, log)
	galleryRepo := storage.NewGalleryRepository(pool, log)
	templates := prompts.NewService(storage.NewPromptTemplateRepository(pool, log), log)

	textModel, err := buildTextModel(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build text provider")
	}
	imageModel := buildImageModel(cfg)
	gateway := ai.NewGateway(textModel, imageModel, templates, cfg.PromptTokenBudget, log)
	log.Info().Str("text_provider", cfg.TextProvider).Str("image_provider", cfg.ImageProvider).Msg("generation backends ready")

	registry := handler.NewRegistry(func(events engine.Events) *engine.Engine {
		return engine.New(gateway, saveRepo, galleryRepo, events, log)
	}, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigin
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-Request-ID")
	if len(corsConfig.AllowOrigins) == 1 && corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowOrigins = nil
	}
	router.Use(cors.New(corsConfig))

	prom := ginprometheus.NewPrometheus("kizuna")
	prom.Use(router)

	handler.New(registry, saveRepo, galleryRepo, templates, log).RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		registry.CloseAll()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("server stopped")
}

func buildTextModel(cfg *config.Config) (ai.TextModel, error) {
	switch cfg.TextProvider {
	case "openai":
		return ai.NewOpenAIModel(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case "ollama":
		return ai.NewOllamaModel(cfg.OllamaHost, cfg.OllamaModel)
	case "siliconflow":
		return ai.NewSiliconFlowModel(cfg.SiliconFlowAPIKey, cfg.SiliconFlowBaseURL, cfg.SiliconFlowModel), nil
	default:
		return nil, fmt.Errorf("unknown text provider %q", cfg.TextProvider)
	}
}

func buildImageModel(cfg *config.Config) ai.ImageModel {
	switch cfg.ImageProvider {
	case "openai":
		return ai.NewOpenAIImageModel(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIImageModel)
	case "siliconflow":
		return ai.NewSiliconFlowImageModel(cfg.SiliconFlowAPIKey, cfg.SiliconFlowBaseURL, cfg.SiliconFlowImageModel)
	default:
		return nil
	}
}
