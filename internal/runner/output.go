package runner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	failedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// Printer writes target labels and captured output. Writes are serialized so
// the label and output of one target are never interleaved with another's.
type Printer struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
}

// NewPrinter creates a printer. Nil writers default to the process streams.
func NewPrinter(stdout, stderr io.Writer) *Printer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Printer{stdout: stdout, stderr: stderr}
}

// Label prints the target header. Failed labels go to stderr.
func (p *Printer) Label(target, comment string, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.label(target, comment, failed)
}

// Output prints captured stderr then stdout, trimmed and followed by a blank
// line. Empty streams are skipped.
func (p *Printer) Output(stderr, stdout string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output(stderr, stdout)
}

// Captured prints a label and the output it belongs to as one unit.
func (p *Printer) Captured(target, comment string, failed bool, stderr, stdout string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.label(target, comment, failed)
	p.output(stderr, stdout)
}

func (p *Printer) label(target, comment string, failed bool) {
	var line string
	if failed {
		line = failedStyle.Render("▪▪▪▪ " + target)
	} else {
		line = labelStyle.Render("▪▪▪▪ " + target)
	}
	if comment != "" {
		line += " " + mutedStyle.Render(comment)
	}

	if failed {
		fmt.Fprintln(p.stderr, line)
	} else {
		fmt.Fprintln(p.stdout, line)
	}
}

func (p *Printer) output(stderr, stdout string) {
	if s := strings.TrimSpace(stderr); s != "" {
		fmt.Fprintf(p.stderr, "%s\n\n", s)
	}
	if s := strings.TrimSpace(stdout); s != "" {
		fmt.Fprintf(p.stdout, "%s\n\n", s)
	}
}
