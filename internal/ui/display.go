// Package ui renders gitai's terminal output.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/xyue92/gitai/internal/git"
)

const minBoxWidth = 40

// Display writes formatted output. Color is used only when requested and
// the output is a terminal.
type Display struct {
	out     io.Writer
	noColor bool

	bold, title, cyan, green, red, yellow, blue *color.Color
}

// NewDisplay creates a Display on out. Colors are disabled when noColor is
// set, NO_COLOR is present, or out is not a terminal.
func NewDisplay(out io.Writer, noColor bool) *Display {
	if out == nil {
		out = os.Stdout
	}
	d := &Display{
		out:     out,
		noColor: noColor || color.NoColor || !IsTerminal(out),
		bold:    color.New(color.Bold),
		title:   color.New(color.FgCyan, color.Bold),
		cyan:    color.New(color.FgCyan),
		green:   color.New(color.FgGreen, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		yellow:  color.New(color.FgYellow, color.Bold),
		blue:    color.New(color.FgBlue),
	}
	if d.noColor {
		for _, c := range []*color.Color{d.bold, d.title, d.cyan, d.green, d.red, d.yellow, d.blue} {
			c.DisableColor()
		}
	} else {
		for _, c := range []*color.Color{d.bold, d.title, d.cyan, d.green, d.red, d.yellow, d.blue} {
			c.EnableColor()
		}
	}
	return d
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w interface{}) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Out is the underlying writer.
func (d *Display) Out() io.Writer {
	return d.out
}

// icon picks the emoji form only when decorating.
func (d *Display) icon(fancy, plain string) string {
	if d.noColor {
		return plain
	}
	return fancy
}

// Header prints the application banner.
func (d *Display) Header() {
	d.title.Fprintln(d.out, d.icon("📝 ", "")+"Git Commit AI Assistant")
	fmt.Fprintln(d.out)
}

// ChangedFiles lists staged files with their line counts.
func (d *Display) ChangedFiles(files []git.FileChange) {
	if len(files) == 0 {
		return
	}

	d.bold.Fprintf(d.out, "Changed files (%d):\n", len(files))
	for _, f := range files {
		add, del := fmt.Sprint(f.Additions), fmt.Sprint(f.Deletions)
		if f.Binary() {
			add, del = "bin", "bin"
		}
		fmt.Fprintf(d.out, "  ✓ %s (", f.File)
		d.green.Fprintf(d.out, "+%s", add)
		fmt.Fprint(d.out, ", ")
		d.red.Fprintf(d.out, "-%s", del)
		fmt.Fprintln(d.out, ")")
	}
	fmt.Fprintln(d.out)
}

// Generating announces a model call.
func (d *Display) Generating(model string) {
	d.yellow.Fprintf(d.out, "%sGenerating commit message with %s...\n\n", d.icon("🤖 ", ""), model)
}

// CommitMessage prints message inside a box at least 40 cells wide.
func (d *Display) CommitMessage(message string) {
	d.bold.Fprintln(d.out, "Generated message:")
	fmt.Fprint(d.out, Box(message, d.cyan.Sprint))
	fmt.Fprintln(d.out)
}

// Box frames message. paint, when non-nil, decorates each line's text.
func Box(message string, paint func(...interface{}) string) string {
	lines := strings.Split(strings.TrimRight(message, "\n"), "\n")
	width := minBoxWidth
	for _, line := range lines {
		if w := runewidth.StringWidth(line); w > width {
			width = w
		}
	}

	var b strings.Builder
	b.WriteString("┌─" + strings.Repeat("─", width) + "─┐\n")
	for _, line := range lines {
		text := line
		if paint != nil {
			text = paint(line)
		}
		pad := width - runewidth.StringWidth(line)
		b.WriteString("│ " + text + strings.Repeat(" ", pad) + " │\n")
	}
	b.WriteString("└─" + strings.Repeat("─", width) + "─┘\n")
	return b.String()
}

// Success prints a success line.
func (d *Display) Success(message string) {
	d.green.Fprintln(d.out, d.icon("✨ ", "✓ ")+message)
}

// Error prints an error line.
func (d *Display) Error(err error) {
	d.red.Fprint(d.out, d.icon("❌ ", "✗ ")+"Error: ")
	fmt.Fprintln(d.out, err)
}

// Warning prints a warning line.
func (d *Display) Warning(message string) {
	d.yellow.Fprintln(d.out, d.icon("⚠️  ", "⚠ ")+message)
}

// Info prints a plain informational line.
func (d *Display) Info(message string) {
	d.blue.Fprintln(d.out, message)
}

// Println writes an undecorated line.
func (d *Display) Println(a ...interface{}) {
	fmt.Fprintln(d.out, a...)
}

// DryRun announces that no commit will be made.
func (d *Display) DryRun() {
	d.title.Fprintln(d.out, d.icon("🔍 ", "")+"Dry-run mode - no commit will be created")
	fmt.Fprintln(d.out)
}

// CommitSuccess reports the new commit.
func (d *Display) CommitSuccess(entry git.LogEntry, files []string) {
	d.Success("Commit created successfully!")
	fmt.Fprintln(d.out)

	d.bold.Fprintln(d.out, "Commit message:")
	fmt.Fprintln(d.out, entry.Subject)
	if entry.Body != "" {
		fmt.Fprintln(d.out)
		fmt.Fprintln(d.out, entry.Body)
	}
	fmt.Fprintln(d.out)

	if len(files) > 0 {
		d.bold.Fprintln(d.out, "Files changed:")
		for _, f := range files {
			fmt.Fprintf(d.out, "  %s\n", f)
		}
		fmt.Fprintln(d.out)
	}

	short := entry.Hash
	if len(short) > 7 {
		short = short[:7]
	}
	d.Info("View commit: git show " + short)
}
