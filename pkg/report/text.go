package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/tracecov/pkg/coverage"
)

// noLines is shown in place of percentages for files without executable lines.
const noLines = "-"

// TextOptions configures WriteText.
type TextOptions struct {
	// Lines appends a per-line verdict listing for every file.
	Lines bool
	// Color enables ANSI colors in the line listing.
	Color bool
}

// WriteText renders s as a table with one row per file and a total footer.
func WriteText(w io.Writer, s Summary, opts TextOptions) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Header = text.FormatDefault
	tbl.Style().Format.Footer = text.FormatDefault

	tbl.AppendHeader(table.Row{"File", "Language", "Lines", "Full %", "Some %", "None %", "Dead %"})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	for _, f := range s.Files {
		tbl.AppendRow(append(table.Row{f.Name, f.Language}, tallyCells(f.Tally)...))
	}

	tbl.AppendFooter(append(
		table.Row{fmt.Sprintf("Total (%d files)", s.Overall.Files), ""},
		tallyCells(s.Overall.Tally)...,
	))

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	for _, warning := range s.Warnings {
		_, err = fmt.Fprintf(w, "warning: %s\n", warning)
		if err != nil {
			return fmt.Errorf("write warnings: %w", err)
		}
	}

	if !opts.Lines {
		return nil
	}

	palette := newVerdictPalette(opts.Color)

	for _, f := range s.Files {
		err = writeLineListing(w, f, palette)
		if err != nil {
			return err
		}
	}

	return nil
}

func tallyCells(t coverage.Tally) table.Row {
	total := t.Total()
	if total == 0 {
		return table.Row{"0", noLines, noLines, noLines, noLines}
	}

	return table.Row{
		humanize.Comma(int64(total)),
		coverage.FormatPercent(t.Covered, total),
		coverage.FormatPercent(t.Partial, total),
		coverage.FormatPercent(t.Uncovered, total),
		coverage.FormatPercent(t.Dead, total),
	}
}

type verdictPalette map[string]*color.Color

func newVerdictPalette(enabled bool) verdictPalette {
	palette := verdictPalette{
		coverage.VerdictFull.String(): color.New(color.FgGreen),
		coverage.VerdictSome.String(): color.New(color.FgYellow),
		coverage.VerdictNone.String(): color.New(color.FgRed),
		coverage.VerdictDead.String(): color.New(color.FgHiBlack),
	}

	for _, c := range palette {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return palette
}

func (p verdictPalette) sprint(verdict string) string {
	c, ok := p[verdict]
	if !ok {
		return verdict
	}

	return c.Sprintf("%-4s", verdict)
}

func writeLineListing(w io.Writer, f FileSummary, palette verdictPalette) error {
	_, err := fmt.Fprintf(w, "\n%s\n", f.Name)
	if err != nil {
		return fmt.Errorf("write listing: %w", err)
	}

	for _, entry := range f.Lines {
		_, err = fmt.Fprintf(w, "%6d  %s  %d/%d\n",
			entry.Line, palette.sprint(entry.Verdict), entry.Executed, entry.Instructions)
		if err != nil {
			return fmt.Errorf("write listing: %w", err)
		}
	}

	return nil
}
