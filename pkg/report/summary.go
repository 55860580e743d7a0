// Package report turns a coverage model into its read-only summary and
// renders that summary as a text table, JSON, YAML or a standalone HTML page.
package report

import (
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/tracecov/pkg/coverage"
)

// Percentages are the verdict shares of a line set, in percent.
type Percentages struct {
	Full float64 `json:"full" yaml:"full"`
	Some float64 `json:"some" yaml:"some"`
	None float64 `json:"none" yaml:"none"`
	Dead float64 `json:"dead" yaml:"dead"`
}

// LineEntry describes one executable line.
type LineEntry struct {
	Line         int    `json:"line"         yaml:"line"`
	Verdict      string `json:"verdict"      yaml:"verdict"`
	Instructions int    `json:"instructions" yaml:"instructions"`
	Executed     int    `json:"executed"     yaml:"executed"`
}

// FileSummary is the per-file section of a report.
type FileSummary struct {
	Name            string         `json:"name"             yaml:"name"`
	Language        string         `json:"language"         yaml:"language"`
	ExecutableLines int            `json:"executable_lines" yaml:"executable_lines"`
	Tally           coverage.Tally `json:"tally"            yaml:"tally"`
	Percent         Percentages    `json:"percent"          yaml:"percent"`
	Lines           []LineEntry    `json:"lines"            yaml:"lines"`
}

// Totals aggregates every reported file.
type Totals struct {
	Files           int            `json:"files"            yaml:"files"`
	ExecutableLines int            `json:"executable_lines" yaml:"executable_lines"`
	Tally           coverage.Tally `json:"tally"            yaml:"tally"`
	Percent         Percentages    `json:"percent"          yaml:"percent"`
}

// Summary is the complete report output model.
type Summary struct {
	Files    []FileSummary `json:"files"              yaml:"files"`
	Overall  Totals        `json:"overall"            yaml:"overall"`
	Warnings []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Build summarizes files in the given order.
func Build(files []*coverage.File) Summary {
	summary := Summary{Files: make([]FileSummary, 0, len(files))}

	for _, f := range files {
		summary.Files = append(summary.Files, summarizeFile(f))
	}

	tally := coverage.Overall(files)

	summary.Overall = Totals{
		Files:           len(files),
		ExecutableLines: tally.Total(),
		Tally:           tally,
		Percent:         percentages(tally),
	}

	return summary
}

// WithWarnings returns a copy of s carrying the messages of errs.
func (s Summary) WithWarnings(errs []error) Summary {
	for _, err := range errs {
		s.Warnings = append(s.Warnings, err.Error())
	}

	return s
}

// Hit is the share of executable lines with at least one executed
// instruction, in percent.
func (t Totals) Hit() float64 {
	return coverage.Percent(t.Tally.Covered+t.Tally.Partial, t.Tally.Total())
}

// Below reports whether overall line coverage (full plus partial) is under
// threshold percent. A zero threshold never fails.
func (s Summary) Below(threshold float64) bool {
	if threshold <= 0 {
		return false
	}

	return s.Overall.Hit() < threshold
}

func summarizeFile(f *coverage.File) FileSummary {
	tally := f.Tally()

	fs := FileSummary{
		Name:            f.Name(),
		Language:        Language(f.Name()),
		ExecutableLines: f.ExecutableLines(),
		Tally:           tally,
		Percent:         percentages(tally),
		Lines:           make([]LineEntry, 0, f.ExecutableLines()),
	}

	for _, number := range f.Lines() {
		verdict, ok := f.Verdict(number)
		if !ok {
			continue
		}

		instructions := f.Instructions(number)

		executed := 0

		for _, in := range instructions {
			if in.Count > 0 {
				executed++
			}
		}

		fs.Lines = append(fs.Lines, LineEntry{
			Line:         number,
			Verdict:      verdict.String(),
			Instructions: len(instructions),
			Executed:     executed,
		})
	}

	return fs
}

func percentages(t coverage.Tally) Percentages {
	return Percentages{
		Full: t.Percent(coverage.VerdictFull),
		Some: t.Percent(coverage.VerdictSome),
		None: t.Percent(coverage.VerdictNone),
		Dead: t.Percent(coverage.VerdictDead),
	}
}

// Language names the programming language of a traced file by extension,
// or returns an empty string when enry does not know it.
func Language(name string) string {
	lang, _ := enry.GetLanguageByExtension(name)

	return lang
}
