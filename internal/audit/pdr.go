// Package audit writes Process Decision Records for cache and install gate
// decisions.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"

	"github.com/fentz26/orbit/internal/models"
)

// Decision actions recorded by the gates.
const (
	ActionTargetCached = "target.cached"
	ActionTargetRun    = "target.run"
	ActionDepsInstall  = "deps.install"
	ActionDepsUpToDate = "deps.skip"
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
)

// Sink persists decision records.
type Sink interface {
	WritePDR(action, inputsHash, outcome, target, details string) (*models.PDREntry, error)
}

// PDRWriter writes Process Decision Records for audit trails.
type PDRWriter struct {
	sink Sink
}

// NewPDRWriter creates a new PDR writer. A nil sink disables recording.
func NewPDRWriter(s Sink) *PDRWriter {
	return &PDRWriter{sink: s}
}

// Record writes a PDR entry. Failures are logged and never fail the caller's
// decision.
func (w *PDRWriter) Record(action string, inputs interface{}, outcome, target, details string) *models.PDREntry {
	if w == nil || w.sink == nil {
		return nil
	}
	entry, err := w.sink.WritePDR(action, hashInputs(inputs), outcome, target, details)
	if err != nil {
		log.Printf("[audit] failed to record %s for %s: %v", action, target, err)
		return nil
	}
	return entry
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
