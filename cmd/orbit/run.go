package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/fentz26/orbit/internal/actions"
	"github.com/fentz26/orbit/internal/audit"
	"github.com/fentz26/orbit/internal/connectors/localexec"
	"github.com/fentz26/orbit/internal/estimator"
	"github.com/fentz26/orbit/internal/installer"
	"github.com/fentz26/orbit/internal/runner"
	"github.com/fentz26/orbit/internal/scheduler"
	"github.com/fentz26/orbit/internal/workspace"
)

var runCmd = &cobra.Command{
	Use:   "run <target>... [-- <args>...]",
	Short: "Run targets and their dependencies",
	Long: `Run one or more targets ("project:task"). Targets whose inputs are unchanged
replay their cached output. Arguments after -- are passed to the target's command
and require a single target.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTargets,
}

var (
	reportFormat string
	metricsFile  string
	concurrency  int
)

func init() {
	runCmd.Flags().StringVar(&reportFormat, "report", "", "Print the savings report in this format (json)")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write prometheus metrics to this file")
	runCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Override runner.max_concurrency")
}

// splitRunArgs separates requested targets from passthrough arguments.
// dash is the index returned by cobra's ArgsLenAtDash, -1 when absent.
func splitRunArgs(args []string, dash int) (targets, passthrough []string, err error) {
	targets = args
	if dash >= 0 {
		targets, passthrough = args[:dash], args[dash:]
	}
	if len(targets) == 0 {
		return nil, nil, errors.New("at least one target is required")
	}
	if len(passthrough) > 0 && len(targets) > 1 {
		return nil, nil, errors.New("passthrough arguments require a single target")
	}
	return targets, passthrough, nil
}

func runTargets(cmd *cobra.Command, args []string) error {
	if reportFormat != "" && reportFormat != "json" {
		return fmt.Errorf("unsupported report format %q", reportFormat)
	}
	targets, passthrough, err := splitRunArgs(args, cmd.ArgsLenAtDash())
	if err != nil {
		return err
	}

	root, cwd, err := findRoot()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	conn := localexec.New()
	ws, err := workspace.Load(ctx, root, cwd, conn)
	if err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}
	defer ws.Cache.Close()

	batches, err := scheduler.Plan(ws, targets)
	if err != nil {
		return err
	}

	var primary string
	if len(targets) == 1 {
		primary = targets[0]
	}

	reg := prometheus.NewRegistry()
	pdr := audit.NewPDRWriter(ws.Cache.Store)
	shared := workspace.NewShared(ws)
	r := runner.New(shared, runner.Config{
		Connector:       conn,
		Metrics:         runner.NewMetrics(reg),
		PDR:             pdr,
		PrimaryTarget:   primary,
		PassthroughArgs: passthrough,
	})
	dispatcher := actions.NewDispatcher(r, installer.New(pdr), shared)

	cfg := scheduler.FromRunnerConfig(ws.Config.Runner)
	if concurrency > 0 {
		cfg.MaxConcurrency = concurrency
	}
	result, runErr := scheduler.New(dispatcher, cfg).Run(ctx, batches)
	if result == nil {
		return runErr
	}

	report := estimator.Estimate(result.Actions, result.Duration)
	if reportFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	} else {
		printSummary(os.Stdout, result, report)
	}

	if metricsFile != "" {
		if err := report.Register(reg); err != nil {
			return fmt.Errorf("register estimator metrics: %w", err)
		}
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	return runErr
}
