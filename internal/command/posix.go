package command

import (
	"github.com/fentz26/orbit/internal/connectors"
	"github.com/fentz26/orbit/internal/models"
	"github.com/fentz26/orbit/internal/workspace"
)

// Posix runs node tasks through the interpreter binary, e.g.
//
//	~/.orbit/tools/node/bin/node --preserve-symlinks ... /app/node_modules/.bin/eslint --fix
type Posix struct{}

// Build implements Assembler.
func (p *Posix) Build(ws *workspace.Workspace, project *models.Project, task *models.Task, passthrough []string) (*connectors.Command, error) {
	if task.Type != models.TaskTypeNode {
		return newCommand(ws, project, task, task.Command, taskArgs(task, passthrough)), nil
	}

	node, err := nodeRuntime(ws, task)
	if err != nil {
		return nil, err
	}

	bin := node.BinPath()
	var args []string

	switch {
	case task.Command == "node":
		args = append(args, NodeOptions(task)...)
	case isPackageManager(task.Command):
		bin = packageManagerPath(node, task.Command)
	default:
		binPath, err := node.FindPackageBinPath(task.Command, project.Root)
		if err != nil {
			return nil, err
		}
		args = append(args, NodeOptions(task)...)
		args = append(args, binPath)
	}

	args = append(args, taskArgs(task, passthrough)...)
	return newCommand(ws, project, task, bin, args), nil
}
