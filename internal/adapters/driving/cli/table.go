package cli

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
)

// newTable returns a bordered terminal table.
func newTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

func outcomeHeaders(knobs []domain.Knob) []string {
	headers := []string{"#", "Trial"}
	for _, k := range knobs {
		headers = append(headers, k.DisplayLabel())
	}
	return append(headers, "Status", "Recall@10", "Search ms", "Build s", "Score", "Pass")
}

func outcomeCells(knobs []domain.Knob, o domain.TrialOutcome) []string {
	cells := []string{strconv.Itoa(o.Sequence), shortID(o.ID)}
	for _, k := range knobs {
		if v, ok := o.Configuration.Get(k.Name); ok {
			cells = append(cells, k.Format(v))
		} else {
			cells = append(cells, "-")
		}
	}
	cells = append(cells, o.Status.String())

	if m := o.Metrics; m != nil {
		cells = append(cells,
			strconv.FormatFloat(m.Recall10, 'f', 4, 64),
			strconv.FormatInt(m.SearchMs, 10),
			strconv.FormatFloat(float64(m.BuildMs)/1000, 'f', 1, 64),
		)
	} else {
		cells = append(cells, "-", "-", "-")
	}

	if s := o.Score; s != nil {
		cells = append(cells, strconv.FormatFloat(s.Value, 'f', 2, 64), yesNo(s.Pass))
	} else {
		cells = append(cells, "-", "-")
	}
	return cells
}

func outcomeTable(knobs []domain.Knob, outcomes []domain.TrialOutcome) string {
	rows := make([][]string, len(outcomes))
	for i, o := range outcomes {
		rows[i] = outcomeCells(knobs, o)
	}
	return newTable(outcomeHeaders(knobs), rows)
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
