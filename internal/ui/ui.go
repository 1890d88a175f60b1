// Package ui renders cascade results: one progress line per destination, a
// summary table, the configured-graph tree, and the JSON form for scripting.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"

	"github.com/cool-RR/git-cascade/internal/merge"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Printer writes run output. Construction decides once how to render:
// boxed tables need a terminal, color additionally needs no suppression
// from flag or environment.
type Printer struct {
	out      io.Writer
	json     bool
	terminal bool
	color    bool
}

func NewPrinter(out io.Writer, jsonOutput, noColor bool) *Printer {
	p := &Printer{
		out:      out,
		json:     jsonOutput,
		terminal: IsTerminal(out),
	}
	p.color = p.terminal && !noColor
	if p.color {
		text.EnableColors()
	} else {
		text.DisableColors()
	}
	return p
}

// Result prints one line for a completed destination. JSON mode stays
// silent here; the whole array is emitted by Summary.
func (p *Printer) Result(res merge.Result) {
	if p.json {
		return
	}
	fmt.Fprintf(p.out, "%s: %s\n", res.Destination, p.paint(res.Outcome, describe(res)))
}

// Summary renders the final report: the results array as JSON in JSON mode,
// otherwise a table, boxed on a terminal and plain aligned text elsewhere.
func (p *Printer) Summary(results []merge.Result) error {
	if p.json {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.out, "%s\n", data)
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	if !p.terminal {
		// Plain aligned columns for logs and pipes.
		t.Style().Options.DrawBorder = false
		t.Style().Options.SeparateColumns = false
		t.Style().Options.SeparateHeader = false
		t.Style().Options.SeparateRows = false
	}
	t.AppendHeader(table.Row{"DESTINATION", "OUTCOME", "SOURCE", "COMMIT", "NOTE"})
	for _, res := range results {
		t.AppendRow(table.Row{
			res.Destination,
			p.paint(res.Outcome, res.Outcome.String()),
			res.Source,
			res.Commit.Short(),
			res.Message,
		})
	}
	t.Render()
	return nil
}

func (p *Printer) paint(outcome merge.Outcome, s string) string {
	if !p.color {
		return s
	}
	return outcomeColor(outcome).Sprint(s)
}

func outcomeColor(outcome merge.Outcome) text.Color {
	switch outcome {
	case merge.OutcomeFastForwarded, merge.OutcomeMerged, merge.OutcomeInPlaceMerged:
		return text.FgGreen
	case merge.OutcomeAlreadyAhead:
		return text.FgHiBlack
	case merge.OutcomeAbortedConflict, merge.OutcomeInPlaceConflict, merge.OutcomeFailed:
		return text.FgRed
	case merge.OutcomeSkipped:
		return text.FgYellow
	default: // the would-* family
		return text.FgCyan
	}
}

// describe turns a result into the human phrasing of its outcome.
func describe(res merge.Result) string {
	switch res.Outcome {
	case merge.OutcomeFastForwarded:
		return fmt.Sprintf("fast-forwarded to %s", res.Commit.Short())
	case merge.OutcomeMerged:
		return fmt.Sprintf("merged %s, new commit %s", res.Source, res.Commit.Short())
	case merge.OutcomeInPlaceMerged:
		return fmt.Sprintf("merged %s in place, new commit %s", res.Source, res.Commit.Short())
	case merge.OutcomeAlreadyAhead:
		return fmt.Sprintf("already contains %s", res.Source)
	case merge.OutcomeAbortedConflict:
		return fmt.Sprintf("conflicts with %s, nothing changed", res.Source)
	case merge.OutcomeInPlaceConflict:
		return fmt.Sprintf("conflicts with %s left in working tree", res.Source)
	case merge.OutcomeSkipped:
		return fmt.Sprintf("skipped: %s", res.Message)
	case merge.OutcomeFailed:
		return fmt.Sprintf("failed: %s", res.Message)
	case merge.OutcomeWouldFastForward:
		if res.Commit == "" {
			// Landing on a commit an upstream hop has yet to create.
			return fmt.Sprintf("would fast-forward onto %s", res.Source)
		}
		return fmt.Sprintf("would fast-forward to %s", res.Commit.Short())
	case merge.OutcomeWouldMerge:
		return fmt.Sprintf("would merge %s", res.Source)
	case merge.OutcomeWouldMergeInPlace:
		return fmt.Sprintf("would merge %s in place", res.Source)
	}
	return string(res.Outcome)
}
