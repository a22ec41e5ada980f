package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/config"
)

// daemonClient returns a client for the configured daemon
func daemonClient() (*client, error) {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return newClient(cfg), nil
}

// cmdStart starts the daemon in the background
func cmdStart() error {
	c, err := daemonClient()
	if err != nil {
		return err
	}
	if c.healthy() {
		fmt.Println("✓ Daemon is already running")
		return nil
	}

	dir, err := config.EnsureWaypointDir()
	if err != nil {
		return fmt.Errorf("setup waypoint directory: %w", err)
	}

	daemonPath, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	cmd := exec.Command(daemonPath)
	cmd.Dir = dir
	cmd.Stdout = nil
	cmd.Stderr = nil

	// Detach from parent process (platform-specific)
	detachDaemon(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Print("Starting daemon...")
	for range 30 {
		time.Sleep(100 * time.Millisecond)
		if c.healthy() {
			fmt.Println(" ✓")
			fmt.Printf("Daemon running at %s\n", c.baseURL)
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon failed to start (check logs with 'waypoint logs')")
}

// cmdStop stops the daemon
func cmdStop() error {
	c, err := daemonClient()
	if err != nil {
		return err
	}
	if !c.healthy() {
		fmt.Println("Daemon is not running")
		return nil
	}

	dir, err := config.WaypointDir()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(dir, pidFile))
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parse PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Print("Stopping daemon...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for range 50 {
		time.Sleep(100 * time.Millisecond)
		if !c.healthy() {
			fmt.Println(" ✓")
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon did not stop gracefully")
}

// cmdStatus shows daemon status
func cmdStatus() error {
	c, err := daemonClient()
	if err != nil {
		return err
	}
	if !c.healthy() {
		fmt.Println("Status: stopped")
		return nil
	}

	var status struct {
		Status         string `json:"status"`
		Version        string `json:"version"`
		Storage        string `json:"storage"`
		Strategy       string `json:"strategy"`
		Curriculum     string `json:"curriculum"`
		ActiveLearners int    `json:"active_learners"`
		Async          bool   `json:"async"`
	}
	if err := c.get("/v1/status", &status); err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	fmt.Printf("Status:     %s\n", status.Status)
	fmt.Printf("Version:    %s\n", status.Version)
	fmt.Printf("Curriculum: %s\n", status.Curriculum)
	fmt.Printf("Storage:    %s\n", status.Storage)
	fmt.Printf("Evaluation: %s\n", status.Strategy)
	fmt.Printf("Async jobs: %t\n", status.Async)
	fmt.Printf("Learners:   %d active\n", status.ActiveLearners)
	fmt.Printf("Address:    %s\n", c.baseURL)

	return nil
}

// cmdLogs prints the tail of the daemon log
func cmdLogs() error {
	dir, err := config.WaypointDir()
	if err != nil {
		return err
	}

	logPath := filepath.Join(dir, "logs", "waypointd.log")
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Println("No log file found. Start the daemon first.")
		return nil
	}

	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	// Seek to end and go back ~4KB for recent logs
	info, err := file.Stat()
	if err != nil {
		return err
	}
	offset := max(info.Size()-4096, 0)
	if _, err := file.Seek(offset, 0); err != nil {
		return err
	}

	reader := bufio.NewReader(file)
	// Skip partial first line if we seeked
	if offset > 0 {
		_, _ = reader.ReadString('\n')
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Println(scanner.Text())
	}
	return scanner.Err()
}

// findDaemonBinary locates the waypointd binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath("waypointd"); err == nil {
		return path, nil
	}

	// Check relative to this binary
	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), "waypointd")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	locations := []string{
		"/usr/local/bin/waypointd",
		"./waypointd",
		"./cmd/waypointd/waypointd",
	}
	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("waypointd binary not found (build with 'go build ./cmd/waypointd')")
}
