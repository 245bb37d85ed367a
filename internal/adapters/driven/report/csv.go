package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
)

// Ensure CSVRenderer implements the interface.
var _ driven.ReportRenderer = (*CSVRenderer)(nil)

// CSVRenderer writes every stored trial as one row in table order.
// Values are raw so the file re-imports without loss: milliseconds stay
// integers and missing metrics are empty fields.
type CSVRenderer struct{}

// NewCSVRenderer creates a CSV renderer.
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

// Extension returns ".csv".
func (r *CSVRenderer) Extension() string {
	return ".csv"
}

// Render writes the header and one row per outcome.
func (r *CSVRenderer) Render(w io.Writer, analysis *domain.Analysis) error {
	if analysis == nil {
		return fmt.Errorf("%w: nil analysis", domain.ErrInvalidInput)
	}

	cw := csv.NewWriter(w)
	header := []string{"seq", "id", "strategy", "dataset"}
	for _, k := range analysis.Knobs {
		header = append(header, k.Name)
	}
	header = append(header,
		"status", "build_ms", "search_ms", "avg_search_ms", "dist_comps",
		"recall_10", "recall_1", "score", "pass", "timestamp", "duration_s", "rationale")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, o := range analysis.Outcomes {
		if err := cw.Write(csvRecord(analysis.Knobs, o)); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvRecord(knobs []domain.Knob, o domain.TrialOutcome) []string {
	rec := []string{
		strconv.Itoa(o.Sequence),
		o.ID,
		o.Strategy.String(),
		o.Dataset,
	}
	for _, k := range knobs {
		if v, ok := o.Configuration.Get(k.Name); ok {
			rec = append(rec, k.Format(v))
		} else {
			rec = append(rec, "")
		}
	}
	rec = append(rec, o.Status.String())

	if m := o.Metrics; m != nil {
		rec = append(rec,
			strconv.FormatInt(m.BuildMs, 10),
			strconv.FormatInt(m.SearchMs, 10),
			optionalRaw(m.AvgSearchMs),
			optionalRaw(m.DistComps),
			raw(m.Recall10),
			optionalRaw(m.Recall1),
		)
	} else {
		rec = append(rec, "", "", "", "", "", "")
	}

	if s := o.Score; s != nil {
		rec = append(rec, raw(s.Value), strconv.FormatBool(s.Pass))
	} else {
		rec = append(rec, "", "")
	}

	timestamp := ""
	if !o.Timestamp.IsZero() {
		timestamp = o.Timestamp.UTC().Format(time.RFC3339)
	}
	return append(rec, timestamp, seconds(o.Duration), o.Configuration.Rationale)
}

func raw(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func optionalRaw(v *float64) string {
	if v == nil {
		return ""
	}
	return raw(*v)
}
