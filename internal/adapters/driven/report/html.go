package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
)

// Ensure HTMLRenderer implements the interface.
var _ driven.ReportRenderer = (*HTMLRenderer)(nil)

//go:embed report.html.tmpl
var reportTemplate string

var htmlTemplate = template.Must(template.New("report").Parse(reportTemplate))

// HTMLRenderer writes a single self-contained HTML page. Styles and the
// column sorting script are inlined so the file can be mailed or archived.
type HTMLRenderer struct {
	title string
}

// NewHTMLRenderer creates an HTML renderer. An empty title uses a default.
func NewHTMLRenderer(title string) *HTMLRenderer {
	if title == "" {
		title = "ANN tuning results"
	}
	return &HTMLRenderer{title: title}
}

// Extension returns ".html".
func (r *HTMLRenderer) Extension() string {
	return ".html"
}

// Render writes the report page.
func (r *HTMLRenderer) Render(w io.Writer, analysis *domain.Analysis) error {
	if analysis == nil {
		return fmt.Errorf("%w: nil analysis", domain.ErrInvalidInput)
	}
	return htmlTemplate.Execute(w, r.view(analysis))
}

type tableView struct {
	ID      string
	Headers []string
	Rows    []row
}

type statusCount struct {
	Status string
	Count  int
}

type highlight struct {
	Label string
	Value string
	Which string
}

type impactView struct {
	Knob  string
	Table tableView
}

type pageView struct {
	Title       string
	Total       int
	Usable      int
	Passing     int
	Statuses    []statusCount
	Ranges      []highlight
	Highlights  []highlight
	Recommended *highlight
	RecPasses   bool
	Top         tableView
	Frontier    tableView
	Impact      []impactView
	All         tableView
}

func (r *HTMLRenderer) view(a *domain.Analysis) pageView {
	s := a.Summary
	v := pageView{
		Title:   r.title,
		Total:   s.Total,
		Usable:  s.Usable,
		Passing: s.Passing,
	}

	for _, st := range domain.AllStatuses() {
		if n := s.ByStatus[st]; n > 0 {
			v.Statuses = append(v.Statuses, statusCount{Status: st.String(), Count: n})
		}
	}

	if s.Usable > 0 {
		v.Ranges = []highlight{
			{Label: "Recall@10", Value: formatFloat(s.Recall10.Min, "4") + " - " + formatFloat(s.Recall10.Max, "4")},
			{Label: "Search (ms)", Value: formatFloat(s.SearchMs.Min, "int") + " - " + formatFloat(s.SearchMs.Max, "int")},
			{Label: "Build (s)", Value: formatFloat(s.BuildMs.Min/1000, "1") + " - " + formatFloat(s.BuildMs.Max/1000, "1")},
		}
	}

	if o := s.BestRecall; o != nil {
		v.Highlights = append(v.Highlights, highlight{
			Label: "Best recall@10",
			Value: formatFloat(o.Metrics.Recall10, "4"),
			Which: o.Configuration.Describe(a.Knobs),
		})
	}
	if o := s.Fastest; o != nil {
		v.Highlights = append(v.Highlights, highlight{
			Label: "Fastest search",
			Value: strconv.FormatInt(o.Metrics.SearchMs, 10) + " ms",
			Which: o.Configuration.Describe(a.Knobs),
		})
	}
	if o := s.BestScore; o != nil {
		v.Highlights = append(v.Highlights, highlight{
			Label: "Best score",
			Value: formatFloat(o.Score.Value, "2"),
			Which: o.Configuration.Describe(a.Knobs),
		})
	}
	if o := s.Recommended; o != nil {
		v.Recommended = &highlight{
			Label: "Recommended",
			Value: formatFloat(o.Score.Value, "2"),
			Which: o.Configuration.Describe(a.Knobs),
		}
		v.RecPasses = o.Pass()
	}

	headers := outcomeHeaders(a.Knobs)
	v.Top = outcomeTable("top", headers, a.Knobs, a.Top)
	v.Frontier = outcomeTable("frontier", headers, a.Knobs, a.Frontier)
	v.All = outcomeTable("all", headers, a.Knobs, a.Outcomes)

	for _, imp := range a.Impact {
		t := tableView{ID: "impact-" + imp.Knob.Name, Headers: impactHeaders(imp.Knob)}
		for _, ir := range imp.Rows {
			t.Rows = append(t.Rows, impactRow(imp.Knob, ir))
		}
		v.Impact = append(v.Impact, impactView{Knob: imp.Knob.DisplayLabel(), Table: t})
	}
	return v
}

func outcomeTable(id string, headers []string, knobs []domain.Knob, outcomes []domain.TrialOutcome) tableView {
	t := tableView{ID: id, Headers: headers}
	for _, o := range outcomes {
		t.Rows = append(t.Rows, outcomeRow(knobs, o))
	}
	return t
}
