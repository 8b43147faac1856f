package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/napolitain/upgrade-planner/internal/config"
	"github.com/napolitain/upgrade-planner/internal/efficiency"
	"github.com/napolitain/upgrade-planner/internal/loader"
	"github.com/napolitain/upgrade-planner/internal/models"
	"github.com/napolitain/upgrade-planner/internal/plan"
	"github.com/napolitain/upgrade-planner/internal/repository"
	"github.com/napolitain/upgrade-planner/internal/server"
)

var (
	dataDir    string
	configFile string
	quiet      bool

	entityType string
	entityID   int64
	fromLevel  int
	toLevel    int
	opsLevel   int
	syndicate  int
	selections []string
	owned      []string
	drydock    int64
	addr       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "planner",
		Short: "Upgrade path planner",
		Long: `Resolves every prerequisite of a building or research upgrade and
prices the whole path, with and without the player's cost and speed buffs.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&dataDir, "data", "d", "", "Path to data directory (default: query the API)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Minimal output")

	treeCmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the prerequisite tree and its base cost",
		RunE:  runTree,
	}
	costCmd := &cobra.Command{
		Use:   "cost",
		Short: "Show base and net cost with selected buffs",
		RunE:  runCost,
	}
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve live recalculation over a websocket at /ws",
		RunE:  runServe,
	}

	for _, cmd := range []*cobra.Command{treeCmd, costCmd, serveCmd} {
		cmd.Flags().StringVarP(&entityType, "type", "t", "research", "Requirement type (building, research)")
		cmd.Flags().Int64Var(&entityID, "id", 0, "Entity id")
		cmd.Flags().IntVar(&fromLevel, "from", 0, "Current level")
		cmd.Flags().IntVar(&toLevel, "to", 1, "Target level")
		cmd.Flags().IntVar(&opsLevel, "ops", 0, "Operations level (overrides config)")
		cmd.Flags().StringArrayVar(&owned, "owned", nil, "Exclude levels already owned, as TYPE:ID=LEVEL (repeatable)")
	}
	for _, cmd := range []*cobra.Command{costCmd, serveCmd} {
		cmd.Flags().IntVar(&syndicate, "syndicate", 0, "Syndicate level (overrides config)")
		cmd.Flags().Int64Var(&drydock, "drydock", efficiency.DefaultDrydock, "Selected drydock module id")
	}
	costCmd.Flags().StringArrayVarP(&selections, "select", "s", nil, "Select a buff level, as BUFF=LEVEL (repeatable)")
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")

	rootCmd.AddCommand(treeCmd, costCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds everything a command needs
type app struct {
	cfg     *config.Config
	planner *plan.Planner
	engine  *efficiency.Engine
}

func setup(cmd *cobra.Command, withEngine bool) (*app, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
		if !quiet {
			color.Yellow("📄 Loaded config from %s", configFile)
		}
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if cmd.Flags().Changed("ops") {
		cfg.OpsLevel = opsLevel
	}
	if f := cmd.Flags().Lookup("syndicate"); f != nil && f.Changed {
		cfg.SyndicateLevel = syndicate
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var raw loader.RawSource = loader.Dir(cfg.DataDir)
	if cfg.DataDir == "" {
		raw = cfg.Client()
	}
	src := loader.NewSource(raw)

	a := &app{cfg: cfg}
	if withEngine {
		a.engine = efficiency.New(
			repository.NewBuffs(src, cfg.CacheTTL),
			efficiency.ForRequirements(models.AllRequirementTypes()),
			efficiency.WithSystems(cfg.Systems),
			efficiency.WithRules(cfg.Buckets),
		)
		if err := a.engine.Load(cmd.Context()); err != nil {
			return nil, fmt.Errorf("failed to load buffs: %w", err)
		}
		if !quiet {
			color.Yellow("📦 Loaded %d buffs in %d buckets", a.engine.Index().Len(), len(a.engine.Buckets()))
		}
	}
	a.planner = plan.New(repository.NewRequirements(src, cfg.CacheTTL), a.engine)
	return a, nil
}

func (a *app) build(ctx context.Context) (*plan.Plan, error) {
	t, err := models.ParseRequirementType(entityType)
	if err != nil {
		return nil, err
	}
	have, err := parseOwned(owned)
	if err != nil {
		return nil, err
	}
	return a.planner.Build(ctx, plan.Request{
		Type:    t,
		ID:      entityID,
		From:    fromLevel,
		To:      toLevel,
		Ops:     a.cfg.OpsLevel,
		Drydock: drydock,
		Owned:   have,
	})
}

func banner() {
	if quiet {
		return
	}
	titleColor := color.New(color.FgCyan, color.Bold)
	titleColor.Println("\n╭───────────────────────────╮")
	titleColor.Println("│  Upgrade Path Planner     │")
	titleColor.Println("╰───────────────────────────╯")
	fmt.Println()
}

func runTree(cmd *cobra.Command, args []string) error {
	banner()
	a, err := setup(cmd, false)
	if err != nil {
		return err
	}
	pl, err := a.build(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println(renderTree(pl.Root))
	fmt.Println()
	printCostTable(os.Stdout, pl.Base, false)
	return nil
}

func runCost(cmd *cobra.Command, args []string) error {
	banner()
	a, err := setup(cmd, true)
	if err != nil {
		return err
	}
	pl, err := a.build(cmd.Context())
	if err != nil {
		return err
	}

	levels, err := parseSelections(selections)
	if err != nil {
		return err
	}
	inputs := a.planner.Inputs(pl)
	if a.cfg.OpsLevel > 0 {
		efficiency.SelectAll(inputs, a.cfg.OpsLevel)
	}
	for i := range inputs {
		if lvl, ok := levels[inputs[i].Ref.ID]; ok {
			inputs[i].Select(lvl)
			if !inputs[i].Drydock {
				inputs[i].Active = true
			}
			delete(levels, inputs[i].Ref.ID)
		}
	}
	for id := range levels {
		color.Yellow("Warning: buff #%d does not apply to this upgrade", id)
	}
	if a.cfg.SyndicateLevel > 0 {
		efficiency.LimitSyndicate(inputs, a.cfg.SyndicateLevel)
	}

	summary, err := a.planner.Recalculate(pl, inputs)
	if err != nil {
		return err
	}

	if !quiet {
		printInputs(os.Stdout, inputs)
		fmt.Println()
		printBonuses(os.Stdout, a.planner.Bonuses(pl))
		fmt.Println()
	}
	printCostTable(os.Stdout, summary, true)

	successColor := color.New(color.FgGreen, color.Bold)
	successColor.Printf("\n✓ %d upgrades, auction score %d\n", pl.Root.Len(), auctionScore(summary, a.cfg))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	banner()
	a, err := setup(cmd, true)
	if err != nil {
		return err
	}
	pl, err := a.build(cmd.Context())
	if err != nil {
		return err
	}

	srv := server.New(a.planner, pl, log.Default())
	log.Printf("Serving %d upgrades on %s/ws", pl.Root.Len(), addr)
	return http.ListenAndServe(addr, srv.Handler())
}

// parseSelections parses BUFF=LEVEL pairs
func parseSelections(pairs []string) (map[int64]int, error) {
	out := make(map[int64]int, len(pairs))
	for _, p := range pairs {
		id, lvl, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid selection %q: want BUFF=LEVEL", p)
		}
		buffID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid buff id in %q: %w", p, err)
		}
		level, err := strconv.Atoi(strings.TrimSpace(lvl))
		if err != nil {
			return nil, fmt.Errorf("invalid level in %q: %w", p, err)
		}
		out[buffID] = level
	}
	return out, nil
}

// parseOwned parses TYPE:ID=LEVEL entries
func parseOwned(entries []string) ([]models.Requirement, error) {
	out := make([]models.Requirement, 0, len(entries))
	for _, e := range entries {
		entity, lvl, ok := strings.Cut(e, "=")
		typ, id, ok2 := strings.Cut(entity, ":")
		if !ok || !ok2 {
			return nil, fmt.Errorf("invalid owned level %q: want TYPE:ID=LEVEL", e)
		}
		t, err := models.ParseRequirementType(strings.TrimSpace(typ))
		if err != nil {
			return nil, fmt.Errorf("invalid type in %q: %w", e, err)
		}
		entityID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id in %q: %w", e, err)
		}
		level, err := strconv.Atoi(strings.TrimSpace(lvl))
		if err != nil {
			return nil, fmt.Errorf("invalid level in %q: %w", e, err)
		}
		out = append(out, models.Requirement{Type: t, ID: entityID, Level: level})
	}
	return out, nil
}
