// Package command assembles the concrete process invocation of a task.
//
// Two strategies exist: Posix invokes the Node interpreter directly with its
// flags as leading arguments, ShellWrapper runs .cmd wrappers through
// cmd.exe and passes interpreter flags through NODE_OPTIONS. Both compile on
// every platform; New picks one from the host GOOS.
package command

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fentz26/orbit/internal/connectors"
	"github.com/fentz26/orbit/internal/models"
	"github.com/fentz26/orbit/internal/toolchain"
	"github.com/fentz26/orbit/internal/workspace"
)

// Assembler builds the command for a task. Passthrough arguments follow the
// task's own arguments and get the same rewriting. Implementations only read
// the workspace; they never touch the filesystem beyond toolchain lookups.
type Assembler interface {
	Build(ws *workspace.Workspace, project *models.Project, task *models.Task, passthrough []string) (*connectors.Command, error)
}

// New returns the strategy for the given GOOS.
func New(goos string) Assembler {
	if goos == "windows" {
		return &ShellWrapper{}
	}
	return &Posix{}
}

// NodeOptions returns the interpreter flags every node task runs with.
func NodeOptions(task *models.Task) []string {
	return []string{
		"--preserve-symlinks",
		"--title",
		task.Target,
		"--unhandled-rejections",
		"throw",
	}
}

// WorkingDir returns the directory a task runs in.
func WorkingDir(ws *workspace.Workspace, project *models.Project, task *models.Task) string {
	if task.Options.RunFromWorkspaceRoot {
		return ws.Root
	}
	return project.Root
}

// TargetEnv returns the ORBIT_* variables exported to every task process.
func TargetEnv(ws *workspace.Workspace, project *models.Project, task *models.Task, runfile string) map[string]string {
	env := map[string]string{
		"ORBIT_PROJECT_ID":      project.ID,
		"ORBIT_PROJECT_ROOT":    project.Root,
		"ORBIT_PROJECT_SOURCE":  project.Source,
		"ORBIT_RUN_TARGET":      task.Target,
		"ORBIT_WORKSPACE_ROOT":  ws.Root,
		"ORBIT_WORKING_DIR":     ws.WorkingDir,
		"ORBIT_PROJECT_RUNFILE": runfile,
	}
	if ws.Cache != nil {
		env["ORBIT_CACHE_DIR"] = ws.Cache.Dir
	}
	if ws.Toolchain != nil {
		env["ORBIT_TOOLCHAIN_DIR"] = ws.Toolchain.Dir
	}
	return env
}

// nodeRuntime returns the workspace's interpreter or an error when a node
// task cannot run.
func nodeRuntime(ws *workspace.Workspace, task *models.Task) (*toolchain.Node, error) {
	if ws.Toolchain == nil || ws.Toolchain.Node == nil {
		return nil, fmt.Errorf("%s: %w", task.Target, toolchain.ErrNodeNotConfigured)
	}
	return ws.Toolchain.Node, nil
}

// newCommand seeds a command with the fields shared by every strategy.
func newCommand(ws *workspace.Workspace, project *models.Project, task *models.Task, bin string, args []string) *connectors.Command {
	cmd := &connectors.Command{
		Bin:              bin,
		Args:             args,
		Dir:              WorkingDir(ws, project, task),
		NoErrorOnFailure: true,
	}
	cmd.MergeEnv(task.Env)
	if ws.Toolchain != nil && ws.Toolchain.Node != nil {
		cmd.SetEnv("PATH", toolchain.PathEnvVar(ws.Toolchain.Node.BinDir()))
	}
	return cmd
}

// isPackageManager reports whether command names a package manager binary.
func isPackageManager(command string) bool {
	switch command {
	case "npm", "pnpm", "yarn":
		return true
	}
	return false
}

func packageManagerPath(node *toolchain.Node, command string) string {
	switch command {
	case "npm":
		return node.NpmPath()
	case "pnpm":
		return node.PnpmPath()
	default:
		return node.YarnPath()
	}
}

// IsWindowsScript reports whether arg names a file cmd.exe can only run
// through an absolute path.
func IsWindowsScript(arg string) bool {
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".cmd", ".bat", ".ps1":
		return true
	}
	return false
}

// taskArgs returns the task's arguments followed by passthrough, without
// aliasing either slice.
func taskArgs(task *models.Task, passthrough []string) []string {
	args := make([]string, 0, len(task.Args)+len(passthrough))
	args = append(args, task.Args...)
	return append(args, passthrough...)
}
