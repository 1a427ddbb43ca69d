package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/FranksOps/quill/internal/storage"
)

// ErrUnknownFormat is returned by Write for an unsupported format name.
var ErrUnknownFormat = errors.New("report: unknown format")

// Formats lists the names accepted by Write.
var Formats = []string{"text", "json", "yaml", "html"}

const titleWidth = 48

// RowLine is the per-row entry of a Summary.
type RowLine struct {
	Row         int            `json:"row" yaml:"row"`
	Title       string         `json:"title" yaml:"title"`
	Status      string         `json:"status" yaml:"status"`
	FailureKind string         `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
	TargetWords int            `json:"target_words" yaml:"target_words"`
	WordCount   int            `json:"word_count" yaml:"word_count"`
	Attempts    int            `json:"attempts" yaml:"attempts"`
	File        string         `json:"file,omitempty" yaml:"file,omitempty"`
	Keywords    []KeywordCount `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// KeywordCount is how often a keyword occurs in a row's article against the
// repetition the prompt asked for.
type KeywordCount struct {
	Keyword   string `json:"keyword" yaml:"keyword"`
	Secondary bool   `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	Count     int    `json:"count" yaml:"count"`
	Want      int    `json:"want" yaml:"want"`
}

// Met counts the keywords that reach their requested repetition.
func (r RowLine) Met() int {
	n := 0
	for _, k := range r.Keywords {
		if k.Count >= k.Want {
			n++
		}
	}
	return n
}

// Underused returns the keywords of the row below their requested repetition.
func (r RowLine) Underused() []KeywordCount {
	var out []KeywordCount
	for _, k := range r.Keywords {
		if k.Count < k.Want {
			out = append(out, k)
		}
	}
	return out
}

// Summary contains aggregated figures about one or more batch runs.
type Summary struct {
	TotalRows      int            `json:"total_rows" yaml:"total_rows"`
	Accepted       int            `json:"accepted" yaml:"accepted"`
	Failed         int            `json:"failed" yaml:"failed"`
	FailuresByKind map[string]int `json:"failures_by_kind" yaml:"failures_by_kind"`
	TotalAttempts  int            `json:"total_attempts" yaml:"total_attempts"`
	TotalWords     int            `json:"total_words" yaml:"total_words"`
	Underused      int            `json:"underused_keywords" yaml:"underused_keywords"`
	StartTime      time.Time      `json:"start_time" yaml:"start_time"`
	EndTime        time.Time      `json:"end_time" yaml:"end_time"`
	Duration       time.Duration  `json:"duration" yaml:"duration"`
	Rows           []RowLine      `json:"rows" yaml:"rows"`
}

// GenerateSummary aggregates row records. Rows are listed in sheet order.
func GenerateSummary(records []*storage.RowRecord) Summary {
	s := Summary{FailuresByKind: make(map[string]int)}
	if len(records) == 0 {
		return s
	}

	s.StartTime = records[0].CreatedAt
	s.EndTime = records[0].CreatedAt

	for _, r := range records {
		s.TotalRows++
		s.TotalAttempts += r.Attempts
		if r.Accepted() {
			s.Accepted++
			s.TotalWords += r.WordCount
		} else {
			s.Failed++
			s.FailuresByKind[r.FailureKind]++
		}

		start := r.CreatedAt.Add(-r.Duration)
		if start.Before(s.StartTime) {
			s.StartTime = start
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}

		line := RowLine{
			Row:         r.Row,
			Title:       r.Title,
			Status:      r.Status,
			FailureKind: r.FailureKind,
			TargetWords: r.TargetWords,
			WordCount:   r.WordCount,
			Attempts:    r.Attempts,
			File:        r.File,
		}
		for _, k := range r.Keywords {
			line.Keywords = append(line.Keywords, KeywordCount(k))
		}
		if r.Accepted() {
			s.Underused += len(line.Underused())
		}
		s.Rows = append(s.Rows, line)
	}

	sort.SliceStable(s.Rows, func(i, j int) bool { return s.Rows[i].Row < s.Rows[j].Row })
	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// Write renders summary in the named format.
func Write(w io.Writer, format string, summary Summary) error {
	switch strings.ToLower(format) {
	case "", "text":
		return WriteText(w, summary)
	case "json":
		return WriteJSON(w, summary)
	case "yaml", "yml":
		return WriteYAML(w, summary)
	case "html":
		return WriteHTML(w, summary)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

// WriteYAML writes the summary to the provided writer in YAML format.
func WriteYAML(w io.Writer, summary Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode yaml: %w", err)
	}
	return enc.Close()
}

// WriteText writes a human-readable summary followed by an aligned table of
// rows. Column widths are measured in terminal cells so Persian titles line
// up.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Quill Batch Summary
-------------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Rows:          {{.TotalRows}}
Accepted:      {{.Accepted}}
Failed:        {{.Failed}}
{{- range $kind, $count := .FailuresByKind}}
  {{$kind}}: {{$count}}
{{- end}}
Attempts:      {{.TotalAttempts}}
Words:         {{.TotalWords}}
Underused:     {{.Underused}}
`

	t, err := texttemplate.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}

	if len(summary.Rows) == 0 {
		return nil
	}

	table := [][]string{{"ROW", "STATUS", "WORDS", "TARGET", "ATTEMPTS", "KEYWORDS", "TITLE"}}
	for _, r := range summary.Rows {
		status := r.Status
		if r.FailureKind != "" {
			status += " (" + r.FailureKind + ")"
		}
		keywords := "-"
		if len(r.Keywords) > 0 {
			keywords = fmt.Sprintf("%d/%d", r.Met(), len(r.Keywords))
		}
		table = append(table, []string{
			strconv.Itoa(r.Row),
			status,
			strconv.Itoa(r.WordCount),
			strconv.Itoa(r.TargetWords),
			strconv.Itoa(r.Attempts),
			keywords,
			runewidth.Truncate(r.Title, titleWidth, "…"),
		})
	}

	widths := make([]int, len(table[0]))
	for _, row := range table {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var b strings.Builder
	b.WriteString("\n")
	for _, row := range table {
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		b.WriteString("\n")
	}

	header := false
	for _, r := range summary.Rows {
		under := r.Underused()
		if len(under) == 0 || r.Status != storage.StatusAccepted {
			continue
		}
		if !header {
			b.WriteString("\nBelow requested keyword repetition:\n")
			header = true
		}
		parts := make([]string, 0, len(under))
		for _, k := range under {
			parts = append(parts, fmt.Sprintf("%s %d/%d", k.Keyword, k.Count, k.Want))
		}
		fmt.Fprintf(&b, "  row %d: %s\n", r.Row, strings.Join(parts, ", "))
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("report: write table: %w", err)
	}
	return nil
}

// WriteHTML writes a basic right-to-left HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html dir="rtl" lang="fa">
<head>
<meta charset="utf-8">
<title>Quill Batch Report</title>
<style>
  body { font-family: Tahoma, sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 0 10px 10px; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: right; }
  th { background: #eaeaea; }
  .failed { color: red; }
</style>
</head>
<body>
  <h1>Quill Batch Report</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Rows</div>
    <div class="stat-val">{{.TotalRows}}</div>
  </div>
  <div class="stat-card">
    <div>Accepted</div>
    <div class="stat-val" style="color: green;">{{.Accepted}}</div>
  </div>
  <div class="stat-card">
    <div>Failed</div>
    <div class="stat-val" style="color: {{if gt .Failed 0}}red{{else}}green{{end}};">{{.Failed}}</div>
  </div>
  <div class="stat-card">
    <div>Attempts</div>
    <div class="stat-val">{{.TotalAttempts}}</div>
  </div>

  <h3>Rows</h3>
  <table>
    <tr><th>Row</th><th>Title</th><th>Status</th><th>Words</th><th>Target</th><th>Attempts</th><th>Keywords</th><th>File</th></tr>
    {{- range .Rows}}
    <tr{{if ne .Status "accepted"}} class="failed"{{end}}><td>{{.Row}}</td><td>{{.Title}}</td><td>{{.Status}}{{with .FailureKind}} ({{.}}){{end}}</td><td>{{.WordCount}}</td><td>{{.TargetWords}}</td><td>{{.Attempts}}</td><td>{{range $i, $k := .Keywords}}{{if $i}}، {{end}}{{$k.Keyword}} {{$k.Count}}/{{$k.Want}}{{end}}</td><td>{{.File}}</td></tr>
    {{- else}}
    <tr><td colspan="8">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`
	t, err := template.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: parse template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}

	return nil
}
