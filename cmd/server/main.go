package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"driver_logbook/internal/config"
	"driver_logbook/internal/controllers"
	"driver_logbook/internal/hos"
	"driver_logbook/internal/logger"
	"driver_logbook/internal/middleware"
	"driver_logbook/internal/repository"
	"driver_logbook/internal/routes"
)

func main() {
	cfg := config.LoadServer()

	// Initialize structured logging to file
	log := logger.Setup(logger.Options{File: cfg.LogFile, Level: cfg.LogLevel, Console: true})
	entry := logrus.NewEntry(log).WithField("service", "logbook-api")

	repo, err := openStore(cfg)
	if err != nil {
		entry.WithError(err).Fatal("Failed to open store")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rules := hos.DefaultRules()
	rules.HoursLimit = cfg.HoursLimit
	rules.RefuelMiles = cfg.RefuelMiles

	server := controllers.NewServer(controllers.Options{
		Repo:         repo,
		Tokens:       middleware.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL),
		Rules:        rules,
		LocationRate: cfg.LocationPerSec,
		Registerer:   reg,
		Logger:       entry,
	})
	if cfg.AdminUsername != "" {
		if err := server.SeedAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
			entry.WithError(err).Fatal("Failed to seed admin account")
		}
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := routes.SetupRouter(server, reg)

	// Wrap with CORS
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           middleware.EnableCORS(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		entry.WithFields(logrus.Fields{"addr": cfg.ListenAddr, "store": cfg.Store}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			entry.WithError(err).Fatal("Server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		entry.WithError(err).Error("Graceful shutdown failed")
	}
	entry.Info("Server stopped")
}

func openStore(cfg config.Server) (repository.Repository, error) {
	switch cfg.Store {
	case "postgres":
		db, err := config.InitDB(cfg.DB)
		if err != nil {
			return nil, err
		}
		return repository.NewGorm(db), nil
	case "memory", "":
		return repository.NewMemory(), nil
	default:
		return nil, errors.New("unknown STORE " + cfg.Store + ", want postgres or memory")
	}
}
