package jsonl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

// record is the on-disk layout of one trial. Field order is fixed so a
// decoded record re-encodes to the same bytes.
type record struct {
	ID            string        `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	Strategy      string        `json:"strategy"`
	Dataset       string        `json:"dataset"`
	Configuration []knobRecord  `json:"configuration"`
	Rationale     string        `json:"rationale,omitempty"`
	Status        string        `json:"status"`
	Metrics       *metricRecord `json:"metrics"`
	Score         *scoreRecord  `json:"score"`
	Pass          bool          `json:"pass"`
	DurationNs    int64         `json:"duration_ns"`
	Diagnostic    string        `json:"diagnostic,omitempty"`
}

type knobRecord struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type metricRecord struct {
	BuildMs     int64    `json:"build_ms"`
	SearchMs    int64    `json:"search_ms"`
	Recall10    float64  `json:"recall10"`
	AvgSearchMs *float64 `json:"avg_search_ms,omitempty"`
	DistComps   *float64 `json:"dist_comps,omitempty"`
	Recall1     *float64 `json:"recall1,omitempty"`
}

type scoreRecord struct {
	Value         float64 `json:"value"`
	RecallPenalty float64 `json:"recall_penalty"`
	TimePenalty   float64 `json:"time_penalty"`
	RecallOK      bool    `json:"recall_ok"`
	BuildOK       bool    `json:"build_ok"`
	SearchOK      bool    `json:"search_ok"`
}

func toRecord(o domain.TrialOutcome) record {
	r := record{
		ID:            o.ID,
		Timestamp:     o.Timestamp.UTC(),
		Strategy:      string(o.Strategy),
		Dataset:       o.Dataset,
		Configuration: make([]knobRecord, len(o.Configuration.Values)),
		Rationale:     o.Configuration.Rationale,
		Status:        string(o.Status),
		Pass:          o.Pass(),
		DurationNs:    int64(o.Duration),
		Diagnostic:    o.Diagnostic,
	}
	for i, kv := range o.Configuration.Values {
		r.Configuration[i] = knobRecord{Name: kv.Name, Value: kv.Value}
	}
	if m := o.Metrics; m != nil {
		r.Metrics = &metricRecord{
			BuildMs:     m.BuildMs,
			SearchMs:    m.SearchMs,
			Recall10:    m.Recall10,
			AvgSearchMs: m.AvgSearchMs,
			DistComps:   m.DistComps,
			Recall1:     m.Recall1,
		}
	}
	if s := o.Score; s != nil {
		r.Score = &scoreRecord{
			Value:         s.Value,
			RecallPenalty: s.RecallPenalty,
			TimePenalty:   s.TimePenalty,
			RecallOK:      s.RecallOK,
			BuildOK:       s.BuildOK,
			SearchOK:      s.SearchOK,
		}
	}
	return r
}

func (r record) outcome() (domain.TrialOutcome, error) {
	status := domain.TrialStatus(r.Status)
	if !status.IsValid() {
		return domain.TrialOutcome{}, fmt.Errorf("%w: status %q", domain.ErrUnsupportedType, r.Status)
	}

	values := make([]domain.KnobValue, len(r.Configuration))
	for i, kv := range r.Configuration {
		values[i] = domain.KnobValue{Name: kv.Name, Value: kv.Value}
	}

	o := domain.TrialOutcome{
		ID:            r.ID,
		Strategy:      domain.Strategy(r.Strategy),
		Dataset:       r.Dataset,
		Configuration: domain.NewConfiguration(values, r.Rationale),
		Status:        status,
		Timestamp:     r.Timestamp,
		Duration:      time.Duration(r.DurationNs),
		Diagnostic:    r.Diagnostic,
	}
	if m := r.Metrics; m != nil {
		o.Metrics = &domain.MetricsRecord{
			BuildMs:     m.BuildMs,
			SearchMs:    m.SearchMs,
			Recall10:    m.Recall10,
			AvgSearchMs: m.AvgSearchMs,
			DistComps:   m.DistComps,
			Recall1:     m.Recall1,
		}
	}
	if s := r.Score; s != nil {
		o.Score = &domain.Score{
			Value:         s.Value,
			RecallPenalty: s.RecallPenalty,
			TimePenalty:   s.TimePenalty,
			Pass:          r.Pass,
			RecallOK:      s.RecallOK,
			BuildOK:       s.BuildOK,
			SearchOK:      s.SearchOK,
		}
	}
	return o, nil
}

// encode renders one outcome as a newline-terminated JSON line.
func encode(o domain.TrialOutcome) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(toRecord(o)); err != nil {
		return nil, fmt.Errorf("encode outcome %s: %w", o.ID, err)
	}
	return buf.Bytes(), nil
}

// decode parses one JSON line.
func decode(line []byte) (domain.TrialOutcome, error) {
	var r record
	if err := json.Unmarshal(line, &r); err != nil {
		return domain.TrialOutcome{}, err
	}
	return r.outcome()
}
