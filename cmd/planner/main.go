// Package main is the entry point for the holistic planner service: it
// wires the SQLite-backed planner repository, the beam-search orchestrator,
// and a cron-scheduled job queue, then blocks until SIGINT/SIGTERM.
//
// This binary is the "outer service" named in spec.md §1 — market data,
// broker adapters, and price feeds are external collaborators; this process
// only runs the planning core (batch and incremental modes) on a schedule
// and in response to portfolio/price change events.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/holistic-planner/internal/config"
	"github.com/aristath/holistic-planner/internal/database"
	"github.com/aristath/holistic-planner/internal/events"
	"github.com/aristath/holistic-planner/internal/planner/domain"
	"github.com/aristath/holistic-planner/internal/planner/orchestrator"
	"github.com/aristath/holistic-planner/internal/planner/repository/sqliterepo"
	"github.com/aristath/holistic-planner/internal/planner/service"
	"github.com/aristath/holistic-planner/internal/queue"
	"github.com/aristath/holistic-planner/pkg/logger"
	"github.com/shirou/gopsutil/v3/mem"
)

func main() {
	var dataDirFlag string
	flag.StringVar(&dataDirFlag, "data-dir", "", "planner data directory (overrides TRADER_DATA_DIR environment variable)")
	flag.Parse()

	cfg, err := config.Load(dataDirFlag)
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})
	log.Info().Msg("Starting holistic planner")

	plannerDB, err := database.New(database.Config{
		Path:    cfg.PlannerDBPath(),
		Profile: database.ProfileStandard,
		Name:    "planner",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open planner database")
	}
	defer plannerDB.Close()

	if err := plannerDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate planner schema")
	}

	plannerCfg, err := domain.NewPlannerConfiguration(domain.DefaultPlannerConfiguration())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid planner configuration")
	}

	repo := sqliterepo.New(plannerDB, log)
	orch := orchestrator.New(plannerCfg, repo, log)
	plannerSvc := service.New(orch, log)

	history := queue.NewHistory(plannerDB.Conn())
	memQueue := queue.NewMemoryQueue()
	manager := queue.NewManager(memQueue, history)

	registry := queue.NewRegistry()
	registry.Register(queue.JobTypePlannerBatch, func(job *queue.Job) error {
		return plannerSvc.RunBatch(context.Background(), job.Payload)
	})
	registry.Register(queue.JobTypePlannerIncremental, func(job *queue.Job) error {
		return plannerSvc.RunIncremental(context.Background(), job.Payload)
	})
	registry.Register(queue.JobTypeHealthCheck, func(job *queue.Job) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := plannerDB.HealthCheck(ctx); err != nil {
			return err
		}
		if vm, err := mem.VirtualMemory(); err == nil {
			log.Info().Float64("mem_used_percent", vm.UsedPercent).Msg("health check ok")
		}
		return nil
	})
	registry.Register(queue.JobTypeMaintenance, func(job *queue.Job) error {
		hashes, err := repo.ListDistinctPortfolioHashes()
		if err != nil {
			return err
		}
		log.Info().Int("tracked_portfolio_hashes", len(hashes)).Msg("maintenance sweep complete")
		return plannerDB.WALCheckpoint("TRUNCATE")
	})

	bus := events.NewBus(log)
	eventManager := events.NewManager(bus, log)
	queue.RegisterListeners(bus, manager, registry, log)

	workerPool := queue.NewWorkerPool(manager, registry, 4)
	workerPool.SetLogger(log)
	workerPool.SetEventManager(eventManager)
	workerPool.Start()
	log.Info().Int("workers", 4).Msg("Worker pool started")

	scheduler := queue.NewScheduler(manager)
	scheduler.SetLogger(log)
	scheduler.Start()
	log.Info().Msg("Scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down holistic planner...")
	scheduler.Stop()
	workerPool.Stop()
	log.Info().Msg("Holistic planner stopped")
}
