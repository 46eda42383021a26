// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools/prompts/resources that depend on them.
// No business logic lives here — only wiring.
package server

import (
	"fmt"
	"log/slog"

	"github.com/cadlyhq/cadly/internal/catalog"
	"github.com/cadlyhq/cadly/internal/config"
	"github.com/cadlyhq/cadly/internal/costs"
	"github.com/cadlyhq/cadly/internal/dfm"
	"github.com/cadlyhq/cadly/internal/fixes"
	"github.com/cadlyhq/cadly/internal/fusion"
	"github.com/cadlyhq/cadly/internal/geometry"
	"github.com/cadlyhq/cadly/internal/history"
	"github.com/cadlyhq/cadly/internal/prompts"
	"github.com/cadlyhq/cadly/internal/resources"
	"github.com/cadlyhq/cadly/internal/rules"
	"github.com/cadlyhq/cadly/internal/simulate"
	"github.com/cadlyhq/cadly/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts, and
// resources registered. This is the single place where dependencies are
// resolved.
//
// The returned cleanup function closes the history store's database
// connection and must be called on shutdown (typically via defer). It is
// always non-nil and safe to call even if history init failed.
func New(cfg config.Config, log *slog.Logger) (*server.MCPServer, func(), error) {
	if log == nil {
		log = slog.Default()
	}

	// --- Load static data ---

	registry, err := rules.Load()
	if err != nil {
		return nil, noop, fmt.Errorf("loading rule table: %w", err)
	}
	machines, err := catalog.LoadMachines()
	if err != nil {
		return nil, noop, fmt.Errorf("loading machine catalog: %w", err)
	}
	materials, err := catalog.LoadMaterials()
	if err != nil {
		return nil, noop, fmt.Errorf("loading material catalog: %w", err)
	}

	// --- Create shared dependencies ---

	client := fusion.NewClient(fusion.Options{
		BaseURL:    cfg.FusionBaseURL(),
		Timeout:    cfg.FusionTimeout,
		RetryCount: cfg.RetryCount,
		RetryDelay: cfg.RetryDelay,
	})
	builder := geometry.NewBuilder(client)
	engine := rules.NewEngine(registry)
	analyzer := dfm.NewAnalyzer(builder, engine)
	runner := fixes.NewRunner(client, builder, engine, cfg.SettleDelay, log)
	estimator := costs.NewEstimator()
	switcher := simulate.NewSwitcher(builder, analyzer, estimator)

	// History is an independent subsystem: if it fails to initialize, the
	// analysis and fix tools keep working without an audit trail.
	cleanup := noop
	hist, histErr := history.New(history.Config{DataDir: cfg.DataDir})
	if histErr != nil {
		log.Warn("history disabled", "error", histErr)
		hist = nil
	} else {
		cleanup = func() {
			if err := hist.Close(); err != nil {
				log.Warn("history store close", "error", err)
			}
		}
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"cadly",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register tools ---

	analyzeTool := tools.NewAnalyzeTool(analyzer, hist)
	s.AddTool(analyzeTool.Definition(), analyzeTool.Handle)

	fixTool := tools.NewFixTool(runner, hist)
	s.AddTool(fixTool.Definition(), fixTool.Handle)

	fixAllTool := tools.NewFixAllTool(analyzer, runner, hist)
	s.AddTool(fixAllTool.Definition(), fixAllTool.Handle)

	switchTool := tools.NewSimulateSwitchTool(switcher)
	s.AddTool(switchTool.Definition(), switchTool.Handle)

	costsTool := tools.NewEstimateCostsTool(builder, estimator)
	s.AddTool(costsTool.Definition(), costsTool.Handle)

	machinesTool := tools.NewRecommendMachinesTool(builder, machines)
	s.AddTool(machinesTool.Definition(), machinesTool.Handle)

	materialsTool := tools.NewRecommendMaterialsTool(materials)
	s.AddTool(materialsTool.Definition(), materialsTool.Handle)

	connectionTool := tools.NewConnectionTool(client, cfg.FusionBaseURL())
	s.AddTool(connectionTool.Definition(), connectionTool.Handle)

	if hist != nil {
		historyTool := tools.NewHistoryTool(hist)
		s.AddTool(historyTool.Definition(), historyTool.Handle)

		statsTool := tools.NewStatsTool(hist)
		s.AddTool(statsTool.Definition(), statsTool.Handle)
	}

	// --- Register resources ---

	res := resources.NewHandler(registry)
	s.AddResource(res.RulesResource(), res.HandleRules)
	s.AddResource(res.ProcessesResource(), res.HandleProcesses)
	s.AddResource(res.DrillsResource(), res.HandleDrills)

	// --- Register prompts ---

	reviewPrompt := prompts.NewReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	return s, cleanup, nil
}

// noop is the default cleanup when history is disabled.
func noop() {}

// serverInstructions tells the AI how to drive the DFM tools effectively.
func serverInstructions() string {
	return `You have access to Cadly, a Design-for-Manufacturing (DFM) assistant
that talks to a running Fusion 360 instance through its DFM add-in.

## What Cadly does
- Analyzes the ACTIVE Fusion 360 design against manufacturing rules for
  FDM, SLA, CNC machining, and injection molding
- Automatically fixes violations it knows how to fix (small holes, thin
  walls, sharp internal corners), validating every mutation and rolling
  back fixes that did not take effect
- Estimates manufacturing cost per process and quantity
- Simulates switching to a different process without touching the design
- Recommends machines and materials from its catalogs

## Typical workflow
1. dfm_connection — confirm the add-in is reachable before anything else
2. dfm_analyze(process) — get the violation report
3. Discuss the violations with the user; severity "critical" means the
   part cannot be manufactured as designed
4. dfm_fix for individual violations, or dfm_fix_all for a batch pass.
   ALWAYS get the user's consent before mutating their design — fixes
   change geometry, and while each fix is validated and rolled back on
   failure, a confirmed fix is a real edit
5. dfm_estimate_costs(quantity) — ground recommendations in real numbers
6. dfm_simulate_switch when another process might suit the part better —
   it is read-only, so it is always safe to call

## Interpreting fix results
- success=true, state=confirmed: geometry changed and was re-verified
- rolled_back=true: the mutation did not survive validation and was undone
- state=failed_no_rollback: nothing was mutated; the message says why and
  usually names the manual edit needed

## Things to remember
- All measurements are millimeters unless the field name says otherwise
- Violations carry feature IDs (hole_5, wall_0_3, edge_12) — use them when
  talking to the user so they can find the feature
- Fillet fixes may apply a SMALLER radius than requested to protect thin
  adjacent walls; the message notes when a cap was applied
- If tools report the add-in as unreachable, Fusion 360 is not running or
  the add-in is stopped — resolve that before retrying
- dfm_history and dfm_stats (when available) show what was analyzed and
  fixed in earlier sessions`
}
