package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contentpulse/campaign-controller/internal/backend"
	"github.com/contentpulse/campaign-controller/internal/config"
	"github.com/contentpulse/campaign-controller/internal/lifecycle"
	"github.com/contentpulse/campaign-controller/internal/notifications"
	"github.com/contentpulse/campaign-controller/internal/scheduler"
	"github.com/contentpulse/campaign-controller/internal/scheduling"
	"github.com/contentpulse/campaign-controller/internal/storage"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting campaign controller")

	// Initialize snapshot storage: Azure when configured, local otherwise
	store, err := newStorage(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize backend clients
	campaignClient := backend.NewCampaignClient(cfg.BackendURL, cfg.RequestTimeout)
	analysisClient := backend.NewAnalysisClient(cfg.BackendURL, cfg.RequestTimeout)
	contentClient := backend.NewContentClient(cfg.BackendURL, cfg.RequestTimeout)

	// Initialize notification service
	notificationService := notifications.NewService(cfg)

	// Initialize lifecycle controller
	controller := lifecycle.NewController(cfg, campaignClient, analysisClient, store, notificationService)

	// Initialize content queue and publisher
	queue := scheduling.NewQueue(store)
	publisher := scheduling.NewPublisher(queue, contentClient)

	// Prime the campaign list before the first scheduled sweep
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	if err := controller.Refresh(startupCtx); err != nil {
		logrus.Warnf("Initial campaign refresh failed: %v", err)
	}
	cancelStartup()

	// Initialize scheduler
	schedulerService := scheduler.NewService(cfg, controller, publisher)

	// Start scheduler
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server for health checks and manual triggers
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(controller)).Methods("GET")
	router.HandleFunc("/sweep", sweepHandler(controller)).Methods("POST")
	router.HandleFunc("/campaigns/{id}/analyze", analyzeHandler(controller)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down controller...")

	// Stop all poll loops before the process exits
	controller.Supervisor().StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Controller exited")
}

func newStorage(cfg *config.Config) (storage.StorageInterface, error) {
	if cfg.StorageAccount != "" {
		return storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
	}
	logrus.Infof("No storage account configured, using local directory %s", cfg.LocalStorageDir)
	return storage.NewLocalStorage(cfg.LocalStorageDir)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(controller *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(controller.GetMetrics()))
	}
}

func sweepHandler(controller *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := controller.Sweep(ctx); err != nil {
				logrus.Errorf("Manual sweep failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Sweep triggered successfully"}`))
	}
}

func analyzeHandler(controller *lifecycle.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		taskID, err := controller.StartAnalysis(r.Context(), id)
		if err != nil {
			logrus.Errorf("Failed to start analysis for campaign %s: %v", id, err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(fmt.Sprintf(`{"status":"error","error":%q}`, err.Error())))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(fmt.Sprintf(`{"status":"started","task_id":%q}`, taskID)))
	}
}
