package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/josephasare/virtual-card-service/internal/application/services"
	"github.com/josephasare/virtual-card-service/internal/chat"
	"github.com/josephasare/virtual-card-service/internal/config"
	"github.com/josephasare/virtual-card-service/internal/infrastructure/notify"
	"github.com/josephasare/virtual-card-service/internal/infrastructure/persistence/postgres"
	"github.com/josephasare/virtual-card-service/internal/infrastructure/provider"
	"github.com/josephasare/virtual-card-service/internal/interfaces/rest/handlers"
	"github.com/josephasare/virtual-card-service/internal/interfaces/rest/middleware"
	"github.com/josephasare/virtual-card-service/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting virtual card service",
		"port", cfg.Server.Port,
		"provider", cfg.Provider.Kind,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	requestRepo := postgres.NewRequestRepository(db)
	studentRepo := postgres.NewStudentRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	gateway, err := provider.New(cfg.Provider)
	if err != nil {
		logger.Error("failed to build provider gateway", "error", err)
		os.Exit(1)
	}

	mailer, err := notify.NewMailer(cfg.Email, logger)
	if err != nil {
		logger.Error("failed to build mailer", "error", err)
		os.Exit(1)
	}

	quote := services.QuoteFromConfig(cfg.Quote)
	lifecycleService := services.NewLifecycleService(requestRepo, studentRepo, gateway, mailer, quote, logger)
	assignmentService := services.NewAssignmentService(requestRepo, studentRepo, mailer, quote, logger)
	queryService := services.NewQueryService(requestRepo, studentRepo, logger)
	studentService := services.NewStudentService(studentRepo, quote, logger)
	contactService := services.NewContactService(messageRepo, mailer, logger)

	adminGuard := middleware.AdminKey(cfg.Admin.Key)

	h := handlers.New(
		lifecycleService,
		assignmentService,
		queryService,
		studentService,
		contactService,
		logger,
	)

	hub := chat.NewHub(contactService, logger)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux, adminGuard)
	mux.HandleFunc("GET /ws/chat", hub.ServeUser)
	mux.Handle("GET /ws/admin", adminGuard(http.HandlerFunc(hub.ServeAdmin)))

	handler := middleware.Recovery(logger)(mux)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweeper := worker.NewExpirySweeper(
		requestRepo,
		assignmentService,
		cfg.Worker.SweepInterval,
		cfg.Worker.BatchSize,
		logger,
	)

	reclaimer := worker.NewStaleReclaimer(
		requestRepo,
		lifecycleService,
		cfg.Worker.SweepInterval,
		cfg.Worker.StaleAfter,
		cfg.Worker.BatchSize,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go hub.Run(workerCtx)
	go sweeper.Start(workerCtx)
	go reclaimer.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
