package command

import (
	"path/filepath"
	"strings"

	"github.com/fentz26/orbit/internal/connectors"
	"github.com/fentz26/orbit/internal/models"
	"github.com/fentz26/orbit/internal/workspace"
)

// Shell is the command interpreter .cmd and .bat wrappers run through.
const Shell = "cmd.exe"

// ShellWrapper builds commands for Windows, where package binaries are .cmd
// wrappers that the interpreter cannot execute. The wrapper is run through
// cmd.exe and interpreter flags travel in NODE_OPTIONS.
type ShellWrapper struct{}

// Build implements Assembler.
func (s *ShellWrapper) Build(ws *workspace.Workspace, project *models.Project, task *models.Task, passthrough []string) (*connectors.Command, error) {
	dir := WorkingDir(ws, project, task)
	args := absoluteScripts(taskArgs(task, passthrough), dir)

	if task.Type != models.TaskTypeNode {
		return wrap(newCommand(ws, project, task, task.Command, args)), nil
	}

	node, err := nodeRuntime(ws, task)
	if err != nil {
		return nil, err
	}

	var bin string
	switch {
	case task.Command == "node":
		bin = node.BinPath()
	case isPackageManager(task.Command):
		bin = packageManagerPath(node, task.Command)
	default:
		bin, err = node.FindPackageBinPath(task.Command, project.Root)
		if err != nil {
			return nil, err
		}
	}

	cmd := newCommand(ws, project, task, bin, args)
	cmd.SetEnv("NODE_OPTIONS", strings.Join(NodeOptions(task), " "))
	return wrap(cmd), nil
}

// wrap routes script wrappers through the shell.
func wrap(cmd *connectors.Command) *connectors.Command {
	switch strings.ToLower(filepath.Ext(cmd.Bin)) {
	case ".cmd", ".bat":
		cmd.Args = append([]string{"/d", "/c", cmd.Bin}, cmd.Args...)
		cmd.Bin = Shell
	}
	return cmd
}

// absoluteScripts rewrites relative script arguments against dir.
func absoluteScripts(args []string, dir string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if IsWindowsScript(arg) && !filepath.IsAbs(arg) {
			out[i] = filepath.Join(dir, arg)
		} else {
			out[i] = arg
		}
	}
	return out
}
