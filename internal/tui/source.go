package tui

import (
	"github.com/fentz26/orbit/internal/models"
)

// Source provides the records the browser displays. *store.Store satisfies
// it.
type Source interface {
	ListTargetStates() ([]models.TargetState, error)
	GetRunsForTarget(target string) ([]models.Run, error)
	ListPDR(target string) ([]models.PDREntry, error)
}

type errMsg struct {
	err error
}

func (e errMsg) Error() string { return e.err.Error() }
