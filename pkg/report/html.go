package report

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/tracecov/pkg/coverage"
)

// EChartsAsset is the script the HTML page loads the chart runtime from.
const EChartsAsset = "https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"

const (
	chartWidth      = "100%"
	barChartHeight  = "420px"
	pieChartHeight  = "360px"
	pieRadius       = "60%"
	styleTagLen     = len("</style>")
	chartContainer  = `<div class="container">`
	chartBodyCloser = `</body>`
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

// verdictColors are shared by the charts and the line table.
var verdictColors = map[coverage.Verdict]string{
	coverage.VerdictFull: "#91cc75",
	coverage.VerdictSome: "#fac858",
	coverage.VerdictNone: "#ee6666",
	coverage.VerdictDead: "#9a9a9a",
}

// HTMLOptions configures WriteHTML.
type HTMLOptions struct {
	// Title is the page heading. Empty uses a default.
	Title string

	// ReadFile loads source text for the annotated line table. Nil reads
	// from disk; unreadable sources are listed without text.
	ReadFile func(string) ([]byte, error)
}

type htmlLine struct {
	Number  int
	Text    string
	Verdict string
	Detail  string
}

type htmlFile struct {
	Name     string
	Anchor   string
	Language string
	Hit      string
	Lines    []htmlLine
}

type htmlPage struct {
	Title    string
	Asset    string
	Overall  Totals
	Hit      string
	BarChart template.HTML
	PieChart template.HTML
	Files    []htmlFile
	Warnings []string
	Colors   map[string]string
}

// WriteHTML renders s as a standalone page with a stacked verdict chart per
// file, an overall pie and an annotated listing of every reported file.
func WriteHTML(w io.Writer, s Summary, opts HTMLOptions) error {
	readFile := opts.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}

	title := opts.Title
	if title == "" {
		title = "tracecov coverage report"
	}

	barHTML, err := renderChart(verdictBarChart(s))
	if err != nil {
		return err
	}

	pieHTML, err := renderChart(verdictPieChart(s.Overall.Tally))
	if err != nil {
		return err
	}

	page := htmlPage{
		Title:    title,
		Asset:    EChartsAsset,
		Overall:  s.Overall,
		Hit:      formatHit(s.Overall.Tally),
		BarChart: barHTML,
		PieChart: pieHTML,
		Files:    make([]htmlFile, 0, len(s.Files)),
		Warnings: s.Warnings,
		Colors:   make(map[string]string, len(verdictColors)),
	}

	for v, c := range verdictColors {
		page.Colors[v.String()] = c
	}

	for idx, f := range s.Files {
		page.Files = append(page.Files, annotateFile(idx, f, readFile))
	}

	var buf bytes.Buffer

	err = pageTemplate.ExecuteTemplate(&buf, "report.html", page)
	if err != nil {
		return fmt.Errorf("render html report: %w", err)
	}

	_, err = w.Write(buf.Bytes())
	if err != nil {
		return fmt.Errorf("write html report: %w", err)
	}

	return nil
}

func formatHit(t coverage.Tally) string {
	return coverage.FormatPercent(t.Covered+t.Partial, t.Total())
}

func verdictBarChart(s Summary) *charts.Bar {
	bar := charts.NewBar()

	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: barChartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Lines by verdict", Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 30}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "lines"}),
	)

	names := make([]string, len(s.Files))
	for i, f := range s.Files {
		names[i] = path.Base(f.Name)
	}

	bar.SetXAxis(names)

	for _, v := range coverage.Verdicts {
		data := make([]opts.BarData, len(s.Files))
		for i, f := range s.Files {
			data[i] = opts.BarData{Value: f.Tally.Count(v)}
		}

		bar.AddSeries(v.String(), data,
			charts.WithBarChartOpts(opts.BarChart{Stack: "verdict"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: verdictColors[v]}),
		)
	}

	return bar
}

func verdictPieChart(t coverage.Tally) *charts.Pie {
	pie := charts.NewPie()

	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: pieChartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Overall", Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)

	data := make([]opts.PieData, 0, len(coverage.Verdicts))
	for _, v := range coverage.Verdicts {
		data = append(data, opts.PieData{
			Name:      v.String(),
			Value:     t.Count(v),
			ItemStyle: &opts.ItemStyle{Color: verdictColors[v]},
		})
	}

	pie.AddSeries("verdicts", data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c} ({d}%)"}),
			charts.WithPieChartOpts(opts.PieChart{Radius: pieRadius}),
		)

	return pie
}

type renderable interface {
	Render(w io.Writer) error
}

// renderChart renders a chart page and keeps only its container and script,
// so several charts can share one document.
func renderChart(chart renderable) (template.HTML, error) {
	var buf bytes.Buffer

	err := chart.Render(&buf)
	if err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}

	//nolint:gosec // go-echarts output, not user input.
	return template.HTML(extractChartContent(buf.String())), nil
}

func extractChartContent(html string) string {
	start := strings.Index(html, chartContainer)
	if start == -1 {
		return html
	}

	end := strings.Index(html, chartBodyCloser)
	if end == -1 || end < start {
		return html
	}

	return removeStyleTags(html[start:end])
}

func removeStyleTags(content string) string {
	for {
		i := strings.Index(content, `<style>`)
		if i == -1 {
			return content
		}

		j := strings.Index(content[i:], `</style>`)
		if j == -1 {
			return content
		}

		content = content[:i] + content[i+j+styleTagLen:]
	}
}

func annotateFile(idx int, f FileSummary, readFile func(string) ([]byte, error)) htmlFile {
	out := htmlFile{
		Name:     f.Name,
		Anchor:   fmt.Sprintf("file-%d", idx),
		Language: f.Language,
		Hit:      formatHit(f.Tally),
	}

	verdicts := make(map[int]LineEntry, len(f.Lines))
	for _, entry := range f.Lines {
		verdicts[entry.Line] = entry
	}

	source, err := readFile(f.Name)
	if err != nil {
		for _, entry := range f.Lines {
			out.Lines = append(out.Lines, htmlLine{
				Number:  entry.Line,
				Verdict: entry.Verdict,
				Detail:  fmt.Sprintf("%d/%d", entry.Executed, entry.Instructions),
			})
		}

		return out
	}

	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(nil, len(source)+1)

	for number := 1; scanner.Scan(); number++ {
		line := htmlLine{Number: number, Text: scanner.Text()}

		if entry, ok := verdicts[number]; ok {
			line.Verdict = entry.Verdict
			line.Detail = fmt.Sprintf("%d/%d", entry.Executed, entry.Instructions)
		}

		out.Lines = append(out.Lines, line)
	}

	return out
}
