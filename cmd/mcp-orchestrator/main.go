// ABOUTME: CLI entry point for the MCP workflow orchestrator
// ABOUTME: Parses flags, launches the tool server, dispatches to a subcommand

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/topgunder/mcp-orchestrator/internal/config"
	"github.com/topgunder/mcp-orchestrator/internal/log"
	"github.com/topgunder/mcp-orchestrator/internal/mcp"
	"github.com/topgunder/mcp-orchestrator/internal/ui"
	"github.com/topgunder/mcp-orchestrator/internal/workflow"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const usage = `usage: mcp-orchestrator [flags] <command>

commands:
  run <workflow>   execute a workflow defined in orchestrator.yaml
  tools            list the tools the server currently exposes
  toolsets         list available toolsets and their state
  demo-flow        run the canned repository bootstrap flow
                   (requires GITHUB_USERNAME and GITHUB_PERSONAL_ACCESS_TOKEN)

flags:
  --config PATH    use this config file instead of discovery
  --timeout DUR    per-call timeout, e.g. 45s
  --verbose        debug logging
  --version        print version
`

func main() {
	args := parseFlags()

	if args.version {
		fmt.Printf("mcp-orchestrator %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	if err := run(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args cliArgs) error {
	if args.verbose {
		log.SetLevel(log.LevelDebug)
	}

	rest := args.remaining()
	if len(rest) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if args.timeout > 0 {
		cfg.CallTimeout = config.Duration(args.timeout)
	}

	switch rest[0] {
	case "run":
		if len(rest) < 2 {
			return fmt.Errorf("run: workflow name required")
		}
		steps, err := cfg.Workflow(rest[1])
		if err != nil {
			return err
		}
		return withSession(cfg, func(ctx context.Context, mgr *mcp.ToolsetManager) error {
			return runWorkflow(ctx, cfg, mgr, rest[1], steps)
		})

	case "tools":
		return withSession(cfg, func(ctx context.Context, mgr *mcp.ToolsetManager) error {
			tools, err := mgr.Client().ListTools(ctx)
			if err != nil {
				return err
			}
			fmt.Print(ui.RenderTools(tools))
			return nil
		})

	case "toolsets":
		return withSession(cfg, func(ctx context.Context, mgr *mcp.ToolsetManager) error {
			sets, err := mgr.ListToolsets(ctx)
			if err != nil {
				return err
			}
			fmt.Print(ui.RenderToolsets(sets))
			return nil
		})

	case "demo-flow":
		owner := os.Getenv("GITHUB_USERNAME")
		if owner == "" {
			return fmt.Errorf("demo-flow: GITHUB_USERNAME not set")
		}
		flow := workflow.RepoFlow{
			Owner: owner,
			Repo:  fmt.Sprintf("mcp-demo-%d", time.Now().Unix()),
		}
		return withSession(cfg, func(ctx context.Context, mgr *mcp.ToolsetManager) error {
			return runWorkflow(ctx, cfg, mgr, "demo-flow", flow.Steps())
		})

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func loadConfig(args cliArgs) (*config.Config, error) {
	if args.config != "" {
		return config.LoadFile(args.config)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	home, _ := os.UserHomeDir()
	return config.Load(cwd, home)
}

// withSession launches the tool server, runs fn against a toolset manager,
// and shuts the server down afterwards regardless of outcome.
func withSession(cfg *config.Config, fn func(context.Context, *mcp.ToolsetManager) error) error {
	log.Debug("launching server: %s %v", cfg.Server.Command, cfg.Server.Args)
	transport, err := mcp.StartServer(cfg.Server.Command, cfg.Server.Args, cfg.ServerEnv())
	if err != nil {
		return err
	}

	client := mcp.NewClient(transport)
	defer func() {
		if err := client.Close(); err != nil {
			log.Debug("closing client: %v", err)
		}
	}()

	return fn(context.Background(), mcp.NewToolsetManager(client))
}

func runWorkflow(ctx context.Context, cfg *config.Config, mgr *mcp.ToolsetManager, name string, steps []workflow.Step) error {
	// Pre-enable the configured toolsets so step one doesn't pay the
	// activation round-trip inside its own timeout.
	for _, ts := range cfg.Toolsets {
		if err := mgr.EnsureEnabled(ctx, ts); err != nil {
			return err
		}
	}

	runner := workflow.NewRunner(mgr, time.Duration(cfg.CallTimeout))
	res, err := runner.Run(ctx, steps)
	if err != nil {
		return fmt.Errorf("workflow %s: %w", name, err)
	}

	fmt.Print(ui.RenderResult(name, res))
	if res.Status != workflow.StatusComplete {
		return fmt.Errorf("workflow %s did not complete", name)
	}
	return nil
}
