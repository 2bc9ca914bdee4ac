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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"custodian/internal/backup"
	"custodian/internal/config"
	"custodian/internal/database"
	"custodian/internal/dump"
	"custodian/internal/httphandlers"
	"custodian/internal/scheduler"
	"custodian/internal/storage"
	"custodian/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Mode); err != nil {
		fmt.Printf("error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	srv, teardown, err := setup(cfg)
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		logger.Info("serving http on " + cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server closed: ", err)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	<-done
	logger.Info("shutting down...")

	if teardown != nil {
		if err := teardown(); err != nil {
			logger.Error("teardown failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %s\n", err)
	}
}

func setup(cfg config.Config) (*http.Server, func() error, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	db, err := database.Open(cfg.CatalogPath)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	store, err := storage.NewObjectStorage(cfg.Storage)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	if err := store.Ping(ctx); err != nil {
		logger.Warn("object storage not reachable at startup", zap.Error(err))
	}

	catalog := database.NewCatalogRepository(db)
	dumper := dump.NewPostgres(cfg.DatabaseURL)

	orchestrator, err := backup.NewOrchestrator(cfg, catalog, store, dumper)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	sched, err := scheduler.New(cfg, orchestrator)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	orchestrator.SetNextRunSource(sched.NextRun)

	if err := sched.Start(ctx); err != nil {
		cancel()
		return nil, nil, err
	}

	apiHandler := httphandlers.NewApiHandler(orchestrator)
	routes := httphandlers.Routes(apiHandler)

	return &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: routes,
		}, func() error {
			if err := sched.Stop(); err != nil {
				logger.Error("scheduler shutdown failed", zap.Error(err))
			}
			sqlDB, _ := db.DB()
			if sqlDB != nil {
				err = sqlDB.Close()
				logger.Info("catalog DB closed", zap.Error(err))
			}
			cancel()
			return nil
		}, nil
}
