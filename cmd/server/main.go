// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/tahcohcat/gamify-web/config"
	"github.com/tahcohcat/gamify-web/internal/api"
	"github.com/tahcohcat/gamify-web/internal/auth"
	"github.com/tahcohcat/gamify-web/internal/catalog"
	"github.com/tahcohcat/gamify-web/internal/database"
	"github.com/tahcohcat/gamify-web/internal/logger"
	"github.com/tahcohcat/gamify-web/internal/progression"
	"github.com/tahcohcat/gamify-web/internal/services"
	"github.com/tahcohcat/gamify-web/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logger.New().WithError(err).Error("Server stopped")
		os.Exit(1)
	}
}

func run() error {
	// Load config from files and environment variables
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.GlobalLogLevel = logger.ParseLevel(cfg.Log.Level)
	log := logger.New()

	// Initialize database
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	list, err := catalog.Load(cfg.Progression.CatalogPath)
	if err != nil {
		return err
	}
	evaluator, err := progression.NewEvaluator(list)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize services
	userService := services.NewUserService(db)
	achievementService := services.NewAchievementService(db)
	if err := achievementService.SyncCatalog(ctx, list); err != nil {
		return err
	}

	opts, err := services.OptionsFromConfig(cfg.Progression)
	if err != nil {
		return err
	}
	progressService := services.NewProgressService(db, achievementService, evaluator, opts)

	hub := websocket.NewHub(cfg.Server.AllowedOrigins)
	progressService.SetNotifier(hub)

	router := api.NewRouter(api.Deps{
		Users:        userService,
		Progress:     progressService,
		Achievements: achievementService,
		Auth:         auth.NewManager(cfg.Auth.SessionSecret, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Push:         hub,
	})

	// CORS setup for browser clients
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("🎮 Gamify server starting on port " + cfg.Server.Port)
		log.With("path", cfg.Database.Path).Info("🗄️ Database ready")
		log.With("achievements", len(list)).Info("🏆 Catalog loaded")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
