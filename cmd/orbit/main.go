package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/fentz26/orbit/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "orbit",
	Short: "Orbit - monorepo task runner",
	Long:  `Orbit runs project tasks across a monorepo, replaying cached results when a task's inputs have not changed.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !verbose {
			log.SetOutput(io.Discard)
		}
	},
	SilenceUsage: true,
}

var (
	verbose bool
	chdir   string
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug logs")
	rootCmd.PersistentFlags().StringVarP(&chdir, "cwd", "C", "", "Run as if started in this directory")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cacheCmd)
}

// workingDir returns the directory orbit was started in, honoring --cwd.
func workingDir() (string, error) {
	if chdir != "" {
		return chdir, nil
	}
	return os.Getwd()
}

// findRoot locates the workspace containing the working directory.
func findRoot() (root, cwd string, err error) {
	cwd, err = workingDir()
	if err != nil {
		return "", "", err
	}
	root, err = config.FindWorkspaceRoot(cwd)
	if err != nil {
		return "", "", fmt.Errorf("find workspace from %s: %w", cwd, err)
	}
	return root, cwd, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
