package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattgly/sage/internal/agent"
	"github.com/mattgly/sage/internal/config"
	"github.com/mattgly/sage/internal/llm"
	"github.com/mattgly/sage/internal/logging"
	"github.com/mattgly/sage/internal/permissions"
	"github.com/mattgly/sage/internal/tasks"
	"github.com/mattgly/sage/internal/tools"
	"github.com/mattgly/sage/internal/ui"
)

var Version = "dev"

func main() {
	defer logging.Close()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := os.Args[1:]

	// Version and help exit before logging so they never create a log file.
	if len(args) > 0 && (args[0] == "--version" || args[0] == "-v" || args[0] == "version") {
		fmt.Printf("sage version %s\n", Version)
		return nil
	}
	if len(args) > 0 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		printHelp()
		return nil
	}

	logging.Init(logging.ConfigFromEnv())
	logging.LogEvent(logging.EventSessionStart, logging.F("args", strings.Join(args, " ")))

	// Parse --token before config load
	var token string
	for i := 0; i < len(args); i++ {
		if args[i] == "--token" && i+1 < len(args) {
			token = args[i+1]
			args = append(args[:i], args[i+2:]...)
			break
		}
		if strings.HasPrefix(args[i], "--token=") {
			token = strings.TrimPrefix(args[i], "--token=")
			args = append(args[:i], args[i+1:]...)
			break
		}
	}

	// Parse --profile
	profileName := agent.ProfileMain
	for i := 0; i < len(args); i++ {
		if args[i] == "--profile" && i+1 < len(args) {
			profileName = args[i+1]
			args = append(args[:i], args[i+2:]...)
			break
		}
		if strings.HasPrefix(args[i], "--profile=") {
			profileName = strings.TrimPrefix(args[i], "--profile=")
			args = append(args[:i], args[i+1:]...)
			break
		}
	}

	cfg, err := config.LoadWithOptions(config.LoadOptions{TokenOverride: token})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	output := ui.NewHandler()

	var backend llm.Backend = llm.NewAnthropicClient(cfg)
	if cfg.RateLimit.EnableRateLimiting {
		backend = llm.NewRateLimitedBackend(backend, &cfg.RateLimit)
	}
	defer backend.Close()

	profiles := agent.Catalog(cfg)
	registry := agent.NewRegistry(profiles)
	gate := permissions.NewGate(agent.ToolCatalog(profiles))
	toolReg := tools.NewRegistry()
	manager := tasks.NewManager(cfg.Agent.TaskDeadline)
	defer manager.CancelAll()

	executor := agent.NewExecutor(toolReg, gate, manager)
	loop := agent.NewLoop(backend, toolReg, executor, cfg.Agent.MaxCycles)

	app := &app{
		loop:     loop,
		registry: registry,
		manager:  manager,
		output:   output,
		profile:  profileName,
	}

	// One-shot mode if a query was given on the command line.
	if len(args) > 0 {
		return app.runOnce(strings.Join(args, " "))
	}

	return app.runInteractive()
}

// app wires the runtime components behind the command surface.
type app struct {
	loop     *agent.Loop
	registry *agent.Registry
	manager  *tasks.Manager
	output   *ui.Handler
	profile  string
}

func (a *app) runOnce(query string) error {
	profile, session, err := a.registry.Resolve(a.profile)
	if err != nil {
		return err
	}
	_, err = a.loop.Run(context.Background(), profile, session, query, a.output)
	return err
}

func (a *app) runInteractive() error {
	a.output.Info(fmt.Sprintf("sage %s · profile %s · /help for commands", Version, a.profile))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		a.output.Prompt(a.profile)
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := a.handleCommand(line); quit {
				return nil
			}
			continue
		}

		if err := a.runOnce(line); err != nil {
			a.output.Error(err.Error())
		}
	}
}

// handleCommand processes a slash command. Returns true to exit.
func (a *app) handleCommand(line string) bool {
	fields := strings.Fields(line)
	cmd, rest := fields[0], fields[1:]

	switch cmd {
	case "/exit", "/quit":
		return true

	case "/help":
		printInteractiveHelp()

	case "/profiles":
		profiles := a.registry.ListProfiles()
		names := make([]string, 0, len(profiles))
		descriptions := make(map[string]string, len(profiles))
		for _, p := range profiles {
			names = append(names, p.Name)
			descriptions[p.Name] = p.Description
		}
		a.output.ProfileList(names, descriptions, a.profile)

	case "/profile":
		if len(rest) == 0 {
			a.output.Info("current profile: " + a.profile)
			return false
		}
		name := rest[0]
		if _, _, err := a.registry.Resolve(name); err != nil {
			a.output.Error(err.Error())
			return false
		}
		logging.LogEvent(logging.EventProfileSwitch,
			logging.F("from", a.profile), logging.F("to", name))
		a.profile = name

	case "/capabilities":
		name := a.profile
		if len(rest) > 0 {
			name = rest[0]
		}
		caps, err := a.registry.Capabilities(name)
		if err != nil {
			a.output.Error(err.Error())
			return false
		}
		if caps.Description != "" {
			a.output.Info(caps.Description)
		}
		if len(caps.Tools) == 0 {
			a.output.Info(name + " has no tools")
			return false
		}
		a.output.Info(name + ": " + strings.Join(caps.Tools, ", "))

	case "/tasks":
		a.output.TaskList(a.manager.List())

	case "/poll":
		if len(rest) == 0 {
			a.output.Error("usage: /poll <task-id> [wait-seconds]")
			return false
		}
		block := false
		timeout := time.Duration(0)
		if len(rest) > 1 {
			var secs int
			if _, err := fmt.Sscanf(rest[1], "%d", &secs); err == nil && secs > 0 {
				block = true
				timeout = time.Duration(secs) * time.Second
			}
		}
		snap, err := a.manager.Poll(a.resolveTaskID(rest[0]), block, timeout)
		if err != nil {
			a.output.Error(err.Error())
			return false
		}
		a.output.TaskDetail(snap)

	case "/cancel":
		if len(rest) == 0 {
			a.output.Error("usage: /cancel <task-id>")
			return false
		}
		if err := a.manager.Cancel(a.resolveTaskID(rest[0])); err != nil {
			a.output.Error(err.Error())
			return false
		}
		a.output.Info("cancellation requested")

	case "/rm":
		if len(rest) == 0 {
			a.output.Error("usage: /rm <task-id>")
			return false
		}
		if err := a.manager.Remove(a.resolveTaskID(rest[0])); err != nil {
			a.output.Error(err.Error())
			return false
		}

	case "/clear":
		if _, session, err := a.registry.Resolve(a.profile); err == nil {
			session.Clear()
			a.output.Info("conversation cleared")
		}

	default:
		a.output.Error("unknown command " + cmd + ", try /help")
	}
	return false
}

// resolveTaskID expands a unique id prefix to the full task id, so /poll can
// take the short ids /tasks displays.
func (a *app) resolveTaskID(prefix string) string {
	var match string
	for _, snap := range a.manager.List() {
		if strings.HasPrefix(snap.ID, prefix) {
			if match != "" {
				return prefix // ambiguous, let the manager report not-found
			}
			match = snap.ID
		}
	}
	if match == "" {
		return prefix
	}
	return match
}

func printHelp() {
	fmt.Print(`sage - AI coding assistant

Usage:
  sage [query]            Run a one-shot query
  sage                    Start interactive mode
  sage version            Show version
  sage help               Show this help

Flags:
  --token <key>           API key (overrides ANTHROPIC_API_KEY env var)
  --profile <name>        Agent profile to start with (default: main)
  -v, --version           Show version
  -h, --help              Show help

Environment:
  ANTHROPIC_API_KEY       API key (can be overridden with --token flag)
  SAGE_DEBUG              Enable debug console output
  SAGE_LOG_LEVEL          Console log level (debug, info, warn, error)
  SAGE_LOG_DIR            Session log directory (default: .sage/logs)

Config Files (in priority order):
  ./sage.yaml
  ./.sage/config.yaml
  ~/.config/sage/config.yaml
`)
}

func printInteractiveHelp() {
	fmt.Print(`Commands:
  /profiles               List agent profiles
  /profile <name>         Switch to a profile (history is kept per profile)
  /capabilities [name]    Show a profile's tool allowlist
  /tasks                  List background tasks
  /poll <id> [secs]       Show a task's output, optionally waiting for it
  /cancel <id>            Request cooperative cancellation of a task
  /rm <id>                Remove a finished task
  /clear                  Clear the current profile's conversation
  /exit                   Exit
`)
}
