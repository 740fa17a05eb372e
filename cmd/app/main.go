package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relay/cmd"
	"relay/internal/adapters/out/postgres"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"gorm.io/gorm"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	configs := getConfigs(logger)

	var gormDB *gorm.DB
	if configs.DatabaseEnabled() {
		db, err := postgres.Open(configs.Database())
		if err != nil {
			log.Fatalf("Error connecting to database: %v", err)
		}
		gormDB = db
	}

	app := cmd.NewCompositionRoot(configs, gormDB, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if warmed, err := app.WarmOrderCache(ctx); err != nil {
		logger.Warn("order cache warmup failed", "error", err)
	} else if warmed > 0 {
		logger.Info("order cache warmed", "orders", warmed)
	}

	jobManager := app.CreateJobManager()
	if err := jobManager.StartAll(); err != nil {
		log.Fatalf("Error starting jobs: %v", err)
	}
	defer jobManager.StopAll()

	listener, source, err := app.CreateOrderChangeListener()
	if err != nil {
		log.Fatalf("Error subscribing to order changes: %v", err)
	}
	if listener != nil {
		defer source.Close()
		go func() {
			if runErr := listener.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				logger.Error("order change listener stopped", "error", runErr)
			}
		}()
	}

	startWebServer(ctx, &app, configs.HTTPPort)
}

func getConfigs(logger *slog.Logger) cmd.Config {
	if err := godotenv.Load(".env"); err != nil {
		logger.Warn("no .env file loaded, using process environment", "error", err)
	}
	config, err := cmd.NewConfig(os.Getenv)
	if err != nil {
		log.Fatalf("Error reading configuration: %v", err)
	}
	return config
}

func startWebServer(ctx context.Context, app *cmd.CompositionRoot, port string) {
	server, err := app.CreateHTTPServer()
	if err != nil {
		log.Fatalf("Error creating HTTP server: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(app.Metrics().Middleware())
	server.Register(e, app.CreateWebSocketHandler(), app.Metrics().Handler())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			e.Logger.Error(shutdownErr)
		}
	}()

	if err = e.Start(fmt.Sprintf("0.0.0.0:%s", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		e.Logger.Fatal(err)
	}
}
