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

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/courtclub/competition-system/brackets"
	"github.com/courtclub/competition-system/config"
	"github.com/courtclub/competition-system/db"
	"github.com/courtclub/competition-system/handlers"
	"github.com/courtclub/competition-system/repositories"
	api "github.com/courtclub/competition-system/routes"
	"github.com/courtclub/competition-system/services"
	"github.com/courtclub/competition-system/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация загрузчика файлов (Cloudflare R2)
	uploader, err := storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	contestRepo := repositories.NewPostgresContestRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	detailRepo := repositories.NewPostgresMatchDetailRepository(dbConn)
	assignmentRepo := repositories.NewPostgresAssignmentRepository(dbConn)
	bookingRepo := repositories.NewPostgresBookingRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	teamCache := services.NewTeamCache(teamRepo)
	authService := services.NewAuthService(userRepo, logger)
	teamService := services.NewTeamService(contestRepo, teamRepo, teamCache, uploader, logger)
	stageService := services.NewStageService(dbConn, contestRepo, teamRepo, assignmentRepo, teamCache, logger)
	contestService := services.NewContestService(dbConn, contestRepo, teamRepo, matchRepo, detailRepo, stageService, teamCache, logger)
	scheduleService := services.NewScheduleService(dbConn, contestRepo, matchRepo, teamRepo, assignmentRepo, teamCache, logger)
	matchService := services.NewMatchService(dbConn, contestRepo, matchRepo, detailRepo, wsHub, logger)
	finishService := services.NewFinishService(
		dbConn,
		contestRepo,
		matchRepo,
		detailRepo,
		assignmentRepo,
		teamRepo,
		teamCache,
		stageService,
		wsHub,
		brackets.FourthPlacePolicy(cfg.FourthPlacePolicy),
		logger,
	)
	bookingService := services.NewBookingService(dbConn, bookingRepo, logger)
	logger.Info("services initialized")

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	contestHandler := handlers.NewContestHandler(contestService, stageService, scheduleService, finishService)
	matchHandler := handlers.NewMatchHandler(matchService)
	teamHandler := handlers.NewTeamHandler(teamService)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, contestService, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		contestHandler,
		matchHandler,
		teamHandler,
		bookingHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
