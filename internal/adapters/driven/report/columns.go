package report

import (
	"strconv"
	"time"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

// cell is one rendered table value. Sort is the machine-readable form used
// for ordering; it is empty when the value is missing.
type cell struct {
	Text string
	Sort string
}

// row is one rendered table line.
type row struct {
	Class string
	Cells []cell
}

func text(s string) cell {
	return cell{Text: s, Sort: s}
}

func number(v float64, format string) cell {
	return cell{Text: formatFloat(v, format), Sort: strconv.FormatFloat(v, 'g', -1, 64)}
}

func optional(v *float64, format string) cell {
	if v == nil {
		return cell{Text: "-"}
	}
	return number(*v, format)
}

func formatFloat(v float64, format string) string {
	switch format {
	case "int":
		return strconv.FormatInt(int64(v), 10)
	case "1":
		return strconv.FormatFloat(v, 'f', 1, 64)
	case "2":
		return strconv.FormatFloat(v, 'f', 2, 64)
	case "4":
		return strconv.FormatFloat(v, 'f', 4, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// outcomeHeaders returns the columns of an outcome table.
func outcomeHeaders(knobs []domain.Knob) []string {
	headers := []string{"#", "Trial"}
	for _, k := range knobs {
		headers = append(headers, k.DisplayLabel())
	}
	return append(headers,
		"Status", "Build (s)", "Search (ms)", "Avg query (ms)", "Dist comps",
		"Recall@10", "Recall@1", "Score", "Pass")
}

// outcomeRow renders one outcome. Failed trials carry their status and
// dashes for every metric.
func outcomeRow(knobs []domain.Knob, o domain.TrialOutcome) row {
	cells := []cell{
		number(float64(o.Sequence), "int"),
		{Text: shortID(o.ID), Sort: o.ID},
	}
	for _, k := range knobs {
		v, ok := o.Configuration.Get(k.Name)
		if !ok {
			cells = append(cells, cell{Text: "-"})
			continue
		}
		cells = append(cells, cell{Text: k.Format(v), Sort: strconv.FormatFloat(v, 'g', -1, 64)})
	}
	cells = append(cells, text(o.Status.String()))

	r := row{Class: "failed"}
	if m := o.Metrics; m != nil {
		cells = append(cells,
			number(float64(m.BuildMs)/1000, "1"),
			number(float64(m.SearchMs), "int"),
			optional(m.AvgSearchMs, "2"),
			optional(m.DistComps, "int"),
			number(m.Recall10, "4"),
			optional(m.Recall1, "4"),
		)
		r.Class = ""
	} else {
		cells = append(cells, dashes(6)...)
	}

	if s := o.Score; s != nil {
		cells = append(cells, number(s.Value, "2"), text(yesNo(s.Pass)))
		if s.Pass {
			r.Class = "pass"
		}
	} else {
		cells = append(cells, dashes(2)...)
	}

	r.Cells = cells
	return r
}

// impactHeaders returns the columns of a parameter impact table.
func impactHeaders(k domain.Knob) []string {
	return []string{k.DisplayLabel(), "Trials", "Avg recall@10", "Avg recall@1",
		"Avg search (ms)", "Avg build (s)", "Pass rate"}
}

func impactRow(k domain.Knob, r domain.ImpactRow) row {
	return row{Cells: []cell{
		{Text: k.Format(r.Value), Sort: strconv.FormatFloat(r.Value, 'g', -1, 64)},
		number(float64(r.Count), "int"),
		number(r.AvgRecall10, "4"),
		optional(r.AvgRecall1, "4"),
		number(r.AvgSearchMs, "1"),
		number(r.AvgBuildMs/1000, "1"),
		{Text: strconv.FormatFloat(r.PassRate*100, 'f', 0, 64) + "%", Sort: strconv.FormatFloat(r.PassRate, 'g', -1, 64)},
	}}
}

func dashes(n int) []cell {
	out := make([]cell, n)
	for i := range out {
		out[i] = cell{Text: "-"}
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 1, 64)
}
