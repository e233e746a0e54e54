package sweepq

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type LineKind int

const (
	LinePlain LineKind = iota
	LineInfo
	LineWarn
)

// CleanupLogger receives every console line of a run.
type CleanupLogger func(kind LineKind, msg string)

var (
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func StyleLine(kind LineKind, msg string) string {
	switch kind {
	case LineInfo:
		return infoStyle.Render(msg)
	case LineWarn:
		return warnStyle.Render(msg)
	default:
		return msg
	}
}

func DefaultCleanupLogger(kind LineKind, msg string) { fmt.Println(StyleLine(kind, msg)) }

// LineRecorder collects lines in memory. Useful for tests and for callers
// that render the output themselves.
type LineRecorder struct {
	Lines []string
	Kinds []LineKind
}

func (r *LineRecorder) Log(kind LineKind, msg string) {
	r.Lines = append(r.Lines, msg)
	r.Kinds = append(r.Kinds, kind)
}

func (r *LineRecorder) Contains(substr string) bool {
	for _, l := range r.Lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func safeLog(logger CleanupLogger, kind LineKind, msg string) {
	if logger == nil {
		return
	}
	defer func() { _ = recover() }()
	logger(kind, msg)
}

// Summary is the closing line of a run.
func (r *Report) Summary() string {
	if r.DryRun {
		return fmt.Sprintf("DRY RUN: Would delete %d out of %d keys", r.Deleted, r.TotalKeys)
	}
	return fmt.Sprintf("Deleted %d out of %d keys", r.Deleted, r.TotalKeys)
}
