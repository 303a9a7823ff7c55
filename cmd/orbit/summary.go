package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/orbit/internal/estimator"
	"github.com/fentz26/orbit/internal/models"
	"github.com/fentz26/orbit/internal/scheduler"
)

var (
	summaryLabel   = lipgloss.NewStyle().Bold(true).Width(8)
	passedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	cachedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	skippedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

// printSummary writes the action counts, pipeline time and estimated savings.
func printSummary(w io.Writer, result *scheduler.Result, report *estimator.Report) {
	counts := make(map[models.ActionStatus]int)
	for _, a := range result.Actions {
		counts[a.Status]++
	}

	parts := []string{
		passedStyle.Render(fmt.Sprintf("%d passed", counts[models.ActionStatusPassed])),
		cachedStyle.Render(fmt.Sprintf("%d cached", counts[models.ActionStatusCached])),
	}
	if n := counts[models.ActionStatusFailed]; n > 0 {
		parts = append(parts, failedStyle.Render(fmt.Sprintf("%d failed", n)))
	}
	if n := counts[models.ActionStatusSkipped]; n > 0 {
		parts = append(parts, skippedStyle.Render(fmt.Sprintf("%d skipped", n)))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%s\n", summaryLabel.Render("Actions:"), strings.Join(parts, ", "))
	fmt.Fprintf(w, "%s%s\n", summaryLabel.Render("Time:"), formatDuration(result.Duration))
	if report != nil && report.Savings != nil {
		fmt.Fprintf(w, "%s%s\n", summaryLabel.Render("Saved:"), highlightStyle.Render(
			fmt.Sprintf("%s (%.0f%% faster)", formatDuration(*report.Savings), report.SavingsPercent)))
	}

	for _, a := range result.Failed() {
		if a.Error != nil {
			fmt.Fprintf(w, "%s %s: %v\n", failedStyle.Render("✗"), a.Label(), a.Error)
		}
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}
