package main

import (
	"fmt"
	"os"
	"strings"
)

// Version is set at build time via ldflags
var Version = "dev"

const pidFile = "waypointd.pid"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "config":
		err = cmdConfig()
	case "doctor":
		err = cmdDoctor()
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "progress":
		err = withClient(func(c *client) error { return cmdProgress(c) })
	case "stats":
		err = withClient(func(c *client) error { return cmdStats(c) })
	case "week":
		err = withClient(func(c *client) error { return cmdWeek(c, args) })
	case "achievements":
		err = withClient(func(c *client) error { return cmdAchievements(c) })
	case "complete":
		err = withClient(func(c *client) error { return cmdComplete(c, args) })
	case "reset":
		err = withClient(func(c *client) error { return cmdReset(c, args) })
	case "export":
		err = withClient(func(c *client) error { return cmdExport(c, args) })
	case "import":
		err = withClient(func(c *client) error { return cmdImport(c, args) })
	case "settings":
		err = withClient(func(c *client) error { return cmdSettings(c, args) })
	case "exercise":
		err = withClient(func(c *client) error { return cmdExercise(c, args) })
	case "evaluate":
		err = withClient(func(c *client) error { return cmdEvaluate(c, args) })
	case "next":
		err = withClient(func(c *client) error { return cmdNext(c, args) })
	case "difficulty":
		err = withClient(func(c *client) error { return cmdDifficulty(c) })
	case "mcp":
		err = cmdMCP()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("waypoint %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Waypoint - Learning Progress and Achievements

Usage:
  waypoint <command> [arguments]

Setup Commands:
  init                         Initialize Waypoint (first-time setup)
  doctor                       Check system requirements
  config                       Show current configuration

Daemon Commands:
  start                        Start the Waypoint daemon
  stop                         Stop the Waypoint daemon
  status                       Show daemon status
  logs                         View daemon logs

Progress Commands:
  progress                     Show weekly progress
  stats                        Show level, streak and totals
  week <n>                     Show one week's exercises
  achievements                 List achievements
  complete <week> <id> <score> <minutes>
                               Record a completed exercise
  reset --yes                  Reset all progress
  export [file]                Export progress as JSON
  import <file>                Replace progress from an export
  settings [key=value...]      Show or change settings

Exercise Commands:
  exercise list [topic]        List exercise templates
  exercise info <id>           Show an exercise template
  evaluate <file> <id>         Score a solution against an exercise
  next <topic>                 Pick the next exercise on a topic
  difficulty                   Recommend a difficulty tier

Integration Commands:
  mcp                          Start MCP server (for editor integration)

Other:
  help                         Show this help message
  version                      Show version information

Environment:
  WAYPOINT_USER                Learner ID (default: daemon.user_id from config)

Examples:
  waypoint start
  waypoint complete 1 e1 95 20
  waypoint evaluate main.go basics-greeting
  waypoint settings theme=dark difficultyPreference=hard`)
}

// renderProgressBar creates a visual progress bar
func renderProgressBar(value float64, width int) string {
	filled := int(value * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	empty := width - filled

	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}
