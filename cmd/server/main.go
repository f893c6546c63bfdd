package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/user/cinefam/internal/config"
	"github.com/user/cinefam/internal/handler"
	"github.com/user/cinefam/internal/repository"
	"github.com/user/cinefam/internal/router"
	"github.com/user/cinefam/internal/service"
	"github.com/user/cinefam/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("[Boot] no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("[Boot] configuration error")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		gin.SetMode(gin.ReleaseMode)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("[Boot] database init failed")
	}
	repos := repository.NewRepositories(db)
	utils.InitCache()

	// One bounded client per provider; the limiter state must not be shared
	// across providers.
	tmdbClient := utils.NewBoundedClient("tmdb", 40, 40)
	openAIClient := utils.NewBoundedClient("openai", 75, 75)

	gateway := service.NewTMDBService(tmdbClient, cfg.TMDBToken)
	embedder := service.NewEmbeddingService(openAIClient, cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDims)
	policy := service.NewPolicyFilter()

	corpus := service.NewCorpusService(repos.Movie, repos.Provider, gateway, embedder, policy, cfg.DefaultRegion)
	taste := service.NewTasteRefresher(repos.Taste)
	searchSvc := service.NewSearchService(repos.Movie, repos.Provider, repos.Prefs, gateway, policy, cfg.DefaultRegion)
	recommendSvc := service.NewRecommendationEngine(repos.Movie, repos.Provider, repos.Prefs, repos.Taste, gateway, corpus, policy, cfg.DefaultRegion)
	watchSvc := service.NewWatchService(repos.Watch, repos.Rating, corpus, taste)
	queueSvc := service.NewQueueService(repos.Queue, corpus)

	h := handler.NewHandler(searchSvc, recommendSvc, watchSvc, queueSvc, repos.Provider, repos.Prefs, cfg.DefaultRegion)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.Setup(h),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("[Boot] server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("[Boot] server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("[Boot] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("[Boot] forced shutdown")
	}
	log.Info().Msg("[Boot] stopped")
}
