package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/config"
	"github.com/felixgeelhaar/waypoint/internal/curriculum"
	"github.com/felixgeelhaar/waypoint/internal/sandbox"
)

// cmdInit initializes Waypoint for first-time use
func cmdInit() error {
	fmt.Println("Waypoint - First-Time Setup")
	fmt.Println("===========================")
	fmt.Println()

	fmt.Print("Creating ~/.waypoint directory structure... ")
	if _, err := config.EnsureWaypointDir(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Println("✓")

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Print("Creating default configuration... ")
		if err := config.SaveLocalConfig(config.DefaultLocalConfig()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println("✓")
	} else {
		fmt.Println("Configuration already exists ✓")
	}

	fmt.Print("Checking Docker... ")
	if err := checkDocker(); err != nil {
		fmt.Println("⚠ Not available (heuristic evaluation will be used)")
	} else {
		fmt.Println("✓ (set evaluation.strategy: sandbox to run tests)")
	}

	fmt.Println()
	fmt.Println("Setup Complete!")
	fmt.Println("===============")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. waypoint start            # Start the daemon")
	fmt.Println("  2. waypoint progress         # See your weekly progress")
	fmt.Println("  3. waypoint next basics      # Pick an exercise")
	fmt.Println()
	fmt.Println("For editor integration, configure MCP with 'waypoint mcp'.")

	return nil
}

// checkDocker pings the Docker daemon through the API client
func checkDocker() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	backend, err := sandbox.NewDockerBackend(ctx)
	if err != nil {
		return err
	}
	return backend.Close()
}

// cmdDoctor checks system requirements
func cmdDoctor() error {
	fmt.Println("Checking system requirements...")

	allGood := true

	fmt.Print("Docker:     ")
	if err := checkDocker(); err != nil {
		fmt.Printf("✗ %v\n", err)
	} else {
		fmt.Println("✓ available")
	}

	fmt.Print("Directory:  ")
	dir, err := config.WaypointDir()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	} else if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Println("✗ not created (run 'waypoint init')")
		allGood = false
	} else {
		fmt.Printf("✓ %s\n", dir)
	}

	fmt.Print("Config:     ")
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		return nil
	}
	fmt.Println("✓ loaded")

	fmt.Print("Curriculum: ")
	if model, err := curriculum.Load(cfg.Curriculum.Path); err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	} else {
		fmt.Printf("✓ %s (%d weeks, %d exercises)\n", model.Name(), model.WeekCount(), model.ExerciseCount())
	}

	fmt.Print("Catalog:    ")
	if catalog, err := curriculum.LoadCatalog(cfg.Curriculum.CatalogPath); err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	} else {
		fmt.Printf("✓ %d templates across %d topics\n", catalog.Len(), len(catalog.Topics()))
	}

	if cfg.Evaluation.Strategy == config.StrategySandbox && checkDocker() != nil {
		fmt.Println("            ⚠ sandbox evaluation configured but Docker is unavailable")
	}

	fmt.Print("\nDaemon:     ")
	if newClient(cfg).healthy() {
		fmt.Println("✓ running")
	} else {
		fmt.Println("✗ not running (run 'waypoint start')")
	}

	fmt.Println()
	if allGood {
		fmt.Println("All checks passed! ✓")
	} else {
		fmt.Println("Some checks failed. Please fix the issues above.")
	}

	return nil
}

// cmdConfig shows current configuration
func cmdConfig() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("Waypoint Configuration")

	fmt.Println("\nDaemon:")
	fmt.Printf("  bind: %s\n", cfg.Addr())
	fmt.Printf("  log_level: %s\n", cfg.Daemon.LogLevel)
	fmt.Printf("  user_id: %s\n", cfg.Daemon.UserID)

	fmt.Println("\nStorage:")
	fmt.Printf("  backend: %s\n", cfg.Storage.Backend)
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		fmt.Println("  postgres_url: (set)")
	case config.BackendRedis:
		fmt.Printf("  redis: %s db=%d prefix=%s\n", cfg.Storage.Redis.Addr, cfg.Storage.Redis.DB, cfg.Storage.Redis.KeyPrefix)
	}

	fmt.Println("\nEvaluation:")
	fmt.Printf("  strategy: %s\n", cfg.Evaluation.Strategy)
	fmt.Printf("  timeout: %ds\n", cfg.Evaluation.TimeoutSeconds)
	if cfg.Evaluation.Strategy == config.StrategySandbox {
		fmt.Printf("  image: %s\n", cfg.Evaluation.Sandbox.Image)
		fmt.Printf("  memory: %dMB\n", cfg.Evaluation.Sandbox.MemoryMB)
		fmt.Printf("  resilience: %t (max %d concurrent)\n", cfg.Evaluation.Resilience.Enabled, cfg.Evaluation.Resilience.MaxConcurrent)
	}

	fmt.Println("\nEvents:")
	fmt.Printf("  enabled: %t\n", cfg.Events.Enabled)
	if cfg.Events.Enabled {
		fmt.Printf("  workers: %d\n", cfg.Events.Workers)
	}

	if path, err := config.ConfigPath(); err == nil {
		fmt.Printf("\nConfig path: %s\n", path)
	}
	return nil
}
