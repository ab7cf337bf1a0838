package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"library-ledger/internal/config"
	"library-ledger/internal/jobs"
	"library-ledger/internal/logger"
	"library-ledger/internal/repository/file"
	"library-ledger/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file (defaults apply when empty)")
	runOnce := flag.String("run-once", "", "Run a specific report once and exit (e.g., 'overdue-loans', 'outstanding-fines', 'all')")
	flag.Parse()

	// Load configuration
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting ledger report runner...", "log_level", cfg.Log.Level, "users_file", cfg.Data.UsersFile)

	jobRunner := jobs.NewJobRunner(file.NewAccountStore(cfg.Data.UsersFile), cfg)

	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	cronScheduler := scheduler.NewScheduler(jobRunner)
	if !cronScheduler.IsRunning() {
		log.Fatalf("No report jobs could be scheduled; check the scheduler section of the configuration")
	}
	cronScheduler.Start()
	logger.Info("Report scheduler is running. Press Ctrl+C to stop.", "next_runs", cronScheduler.NextRuns())

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down report scheduler...")
	cronScheduler.Stop()
	logger.Info("Report scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "overdue-loans":
		jobRunner.ReportOverdueLoans()
	case "outstanding-fines":
		jobRunner.ReportOutstandingFines()
	case "all":
		jobRunner.RunAllReports()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - overdue-loans\n")
		fmt.Printf("  - outstanding-fines\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
