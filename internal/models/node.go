package models

import "fmt"

// ActionNode describes what a scheduled action does. The set of variants is
// closed to this module; consumers switch on the concrete type and treat
// variants they do not handle as no-ops.
type ActionNode interface {
	Label() string
	actionNode()
}

// RunTargetNode runs a single target.
type RunTargetNode struct {
	Target string
}

// InstallDepsNode installs the workspace's package dependencies.
type InstallDepsNode struct{}

// SyncProjectNode is planned by the scheduler but has no behavior in the
// execution core.
type SyncProjectNode struct {
	Project string
}

func (RunTargetNode) actionNode()   {}
func (InstallDepsNode) actionNode() {}
func (SyncProjectNode) actionNode() {}

func (n RunTargetNode) Label() string   { return fmt.Sprintf("RunTarget(%s)", n.Target) }
func (InstallDepsNode) Label() string   { return "InstallNodeDeps" }
func (n SyncProjectNode) Label() string { return fmt.Sprintf("SyncProject(%s)", n.Project) }
