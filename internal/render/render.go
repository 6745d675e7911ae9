// Package render formats change-sets, command history, and plan
// previews for terminal display. Pure formatting over the engine's
// value types; no additional semantics.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jkaninda/clai/internal/diff"
	"github.com/jkaninda/clai/internal/sandbox"
	"github.com/jkaninda/clai/internal/session"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))
	addStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00CC00"))
	delStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444"))
	modStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00CC00")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444")).Bold(true)
)

// maxShownDiffLines bounds the per-file diff excerpt in the summary.
const maxShownDiffLines = 20

// Changes renders a change-set summary grouped by change type.
func Changes(changes []diff.FileChange) string {
	if len(changes) == 0 {
		return dimStyle.Render("No changes detected between original and sandbox.")
	}

	var added, modified, deleted []diff.FileChange
	for _, c := range changes {
		switch c.Type {
		case diff.Added:
			added = append(added, c)
		case diff.Modified:
			modified = append(modified, c)
		case diff.Deleted:
			deleted = append(deleted, c)
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Sandbox changes"))
	b.WriteString("\n\n")

	if len(added) > 0 {
		fmt.Fprintf(&b, "%s\n", addStyle.Render(fmt.Sprintf("Added (%d):", len(added))))
		for _, c := range added {
			fmt.Fprintf(&b, "  %s %s\n", addStyle.Render("+"), c.Path)
		}
		b.WriteString("\n")
	}

	if len(modified) > 0 {
		fmt.Fprintf(&b, "%s\n", modStyle.Render(fmt.Sprintf("Modified (%d):", len(modified))))
		for _, c := range modified {
			fmt.Fprintf(&b, "  %s %s\n", modStyle.Render("~"), c.Path)
			shown := c.DiffLines
			extra := 0
			if len(shown) > maxShownDiffLines {
				extra = len(shown) - maxShownDiffLines
				shown = shown[:maxShownDiffLines]
			}
			for _, line := range shown {
				fmt.Fprintf(&b, "      %s\n", styleDiffLine(line))
			}
			if extra > 0 {
				fmt.Fprintf(&b, "      %s\n", dimStyle.Render(fmt.Sprintf("... (%d more lines)", extra)))
			}
		}
		b.WriteString("\n")
	}

	if len(deleted) > 0 {
		fmt.Fprintf(&b, "%s\n", delStyle.Render(fmt.Sprintf("Deleted (%d):", len(deleted))))
		for _, c := range deleted {
			fmt.Fprintf(&b, "  %s %s\n", delStyle.Render("-"), c.Path)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Total: %d added, %d modified, %d deleted",
		len(added), len(modified), len(deleted))
	return b.String()
}

func styleDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return dimStyle.Render(line)
	case strings.HasPrefix(line, "+"):
		return addStyle.Render(line)
	case strings.HasPrefix(line, "-"):
		return delStyle.Render(line)
	case strings.HasPrefix(line, "@@"):
		return dimStyle.Render(line)
	default:
		return line
	}
}

// History renders the session's command history in execution order.
func History(sessionID string, results []*sandbox.Result) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Command history (session %s)", sessionID)))
	b.WriteString("\n")

	if len(results) == 0 {
		b.WriteString(dimStyle.Render("  (no commands executed yet)"))
		return b.String()
	}
	for i, r := range results {
		mark := okStyle.Render("ok")
		if !r.Success() {
			mark = failStyle.Render("failed")
		}
		fmt.Fprintf(&b, "%d. [%s] %s %s %s\n",
			i+1,
			r.Timestamp.Format("15:04:05"),
			mark,
			strings.Join(r.Command, " "),
			dimStyle.Render(fmt.Sprintf("(exit: %d, %dms)", r.ExitCode, r.Duration.Milliseconds())),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Preview renders a command plan before execution, with safety
// warnings when the command matches known-dangerous patterns.
func Preview(plan *session.Plan, dir string) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Command preview"))
	b.WriteString("\n")

	if plan.Intent != "" {
		fmt.Fprintf(&b, "Intent:    %s\n", plan.Intent)
	}
	if plan.Explain != "" {
		fmt.Fprintf(&b, "Explain:   %s\n", plan.Explain)
	}
	fmt.Fprintf(&b, "Command:   %s\n", strings.Join(plan.Command, " "))
	fmt.Fprintf(&b, "Directory: %s\n", dir)

	if warnings := session.SafetyWarnings(plan.Command); len(warnings) > 0 {
		b.WriteString(warnStyle.Render("Warnings:"))
		b.WriteString("\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "  %s %s\n", warnStyle.Render("!"), w)
		}
	}

	if plan.NeedsClarification && plan.Question != "" {
		fmt.Fprintf(&b, "%s %s\n", warnStyle.Render("Clarification needed:"), plan.Question)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Result renders a single command result with clipped output.
func Result(r *sandbox.Result) string {
	var b strings.Builder
	if r.Success() {
		b.WriteString(okStyle.Render("Command succeeded (exit: 0)"))
	} else if r.Status == sandbox.StatusTimedOut {
		b.WriteString(failStyle.Render("Command timed out"))
	} else {
		b.WriteString(failStyle.Render(fmt.Sprintf("Command failed (exit: %d)", r.ExitCode)))
	}
	b.WriteString("\n")

	if r.Stdout != "" {
		fmt.Fprintf(&b, "%s\n%s\n", dimStyle.Render("stdout:"), clip(r.Stdout, 2000))
		if r.StdoutTruncated {
			b.WriteString(dimStyle.Render("(stdout truncated at output cap)\n"))
		}
	}
	if r.Stderr != "" {
		fmt.Fprintf(&b, "%s\n%s\n", dimStyle.Render("stderr:"), clip(r.Stderr, 500))
		if r.StderrTruncated {
			b.WriteString(dimStyle.Render("(stderr truncated at output cap)\n"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
