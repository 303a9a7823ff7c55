package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fentz26/orbit/internal/cache"
	"github.com/fentz26/orbit/internal/config"
	"github.com/fentz26/orbit/internal/tui"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Browse cached target records",
	RunE:  runCache,
}

func runCache(cmd *cobra.Command, args []string) error {
	root, _, err := findRoot()
	if err != nil {
		return err
	}

	// The browser only needs the record store, so skip toolchain resolution.
	cfg, err := config.LoadWorkspaceConfig(filepath.Join(root, config.Dir, config.WorkspaceFile))
	if err != nil {
		return err
	}
	engine, err := cache.NewEngine(cfg.Runner.ResolveCacheDir(root))
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := tui.New(engine.Store).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
