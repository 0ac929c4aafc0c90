package bias

import (
	"fmt"

	"github.com/fairlens-ai/fairlens/internal/api"
	"github.com/fairlens-ai/fairlens/internal/dataset"
	"github.com/fairlens-ai/fairlens/internal/model"
)

// ModelOptions carries the caller-supplied classifier and its pre-encoded
// feature matrix for the model-assisted parity analysis. Feature rows align
// with dataset rows.
type ModelOptions struct {
	Classifier model.Classifier
	Features   [][]float64
}

// ParityReport holds group selection rates computed from model predictions
// on a held-out split, plus the demographic-parity difference per attribute.
type ParityReport struct {
	HoldoutRows int               `json:"holdout_rows"`
	Attributes  []ParityAttribute `json:"attributes"`
}

// ParityAttribute is the model-assisted analysis of one protected attribute.
type ParityAttribute struct {
	Attribute             string      `json:"attribute"`
	SelectionRates        []GroupStat `json:"selection_rates"`
	DemographicParityDiff float64     `json:"demographic_parity_difference"`
}

// attachParity runs the model-assisted path when the capability is available
// and the caller supplied a classifier; otherwise it records the skip. A
// failure inside the advanced path degrades to a skip with the failure text
// so the basic analysis is never lost.
func (e *Engine) attachParity(report *Report, ds *dataset.Dataset, attrs []string, opts *ModelOptions) {
	if !e.Advanced {
		report.ParitySkipped = "advanced fairness analysis unavailable; skipped"
		return
	}
	if opts == nil || opts.Classifier == nil || len(opts.Features) == 0 {
		report.ParitySkipped = "no fitted classifier or feature matrix supplied; skipped"
		return
	}

	parity, err := e.analyzeParity(ds, attrs, opts)
	if err != nil {
		report.ParitySkipped = fmt.Sprintf("advanced fairness analysis degraded: %v", err)
		return
	}
	report.Parity = parity
}

// analyzeParity computes per-group selection rates from the classifier's
// predictions on a deterministic held-out split: the tail HoldoutFraction of
// rows in original order.
func (e *Engine) analyzeParity(ds *dataset.Dataset, attrs []string, opts *ModelOptions) (*ParityReport, error) {
	n := ds.NumRows()
	if len(opts.Features) != n {
		return nil, fmt.Errorf("feature matrix has %d rows, dataset has %d", len(opts.Features), n)
	}

	start := n - int(float64(n)*e.HoldoutFraction)
	if start >= n {
		start = n - 1
	}
	if start < 0 {
		start = 0
	}
	holdout := n - start
	if holdout == 0 {
		return nil, fmt.Errorf("held-out split is empty")
	}

	preds := make([]float64, 0, holdout)
	for i := start; i < n; i++ {
		p, err := opts.Classifier.Predict(opts.Features[i])
		if err != nil {
			return nil, fmt.Errorf("prediction failed on row %d: %w", i, err)
		}
		preds = append(preds, p)
	}

	parity := &ParityReport{HoldoutRows: holdout}
	for _, attr := range attrs {
		col, ok := ds.Column(attr)
		if !ok {
			continue
		}
		cells := col.Values()

		counts := make(map[string]int)
		selected := make(map[string]float64)
		for i := start; i < n; i++ {
			g := cells[i]
			counts[g]++
			selected[g] += preds[i-start]
		}

		pa := ParityAttribute{Attribute: attr}
		minRate, maxRate := 1.0, 0.0
		for _, g := range sortedGroups(counts) {
			rate := api.Round4(selected[g] / float64(counts[g]))
			pa.SelectionRates = append(pa.SelectionRates, GroupStat{
				Group:        g,
				TotalCases:   counts[g],
				Approvals:    selected[g],
				ApprovalRate: rate,
			})
			if rate < minRate {
				minRate = rate
			}
			if rate > maxRate {
				maxRate = rate
			}
		}
		if len(pa.SelectionRates) > 0 {
			pa.DemographicParityDiff = api.Round4(maxRate - minRate)
			parity.Attributes = append(parity.Attributes, pa)
		}
	}
	return parity, nil
}
