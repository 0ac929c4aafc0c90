package bias

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fairlens-ai/fairlens/internal/api"
	"github.com/fairlens-ai/fairlens/internal/dataset"
)

// Engine computes group-wise approval-rate disparity and disparate-impact
// verdicts for the protected attributes of a dataset.
type Engine struct {
	// Threshold is the disparate-impact flag threshold (four-fifths rule).
	// A ratio strictly below it raises the bias flag.
	Threshold float64

	// Advanced gates the model-assisted parity analysis. When false the
	// engine reports that path as skipped; both paths are testable on
	// their own.
	Advanced bool

	// HoldoutFraction is the tail fraction of rows used as the held-out
	// split for model-assisted analysis.
	HoldoutFraction float64
}

// numericAttrs names inherently numeric protected attributes. When one of
// these is stored as text it is coerced to numeric, dropping unconvertible
// rows for that attribute's analysis only.
var numericAttrs = map[string]bool{
	"age":    true,
	"income": true,
	"salary": true,
}

// NewEngine returns an engine with the standard four-fifths threshold.
func NewEngine(advanced bool) *Engine {
	return &Engine{
		Threshold:       0.8,
		Advanced:        advanced,
		HoldoutFraction: 0.3,
	}
}

// GroupStat holds per-group label statistics for one protected attribute.
type GroupStat struct {
	Group        string  `json:"group"`
	TotalCases   int     `json:"total_cases"`
	Approvals    float64 `json:"approvals"`
	ApprovalRate float64 `json:"approval_rate"`
}

// AttributeReport is the analysis of one protected attribute. A skipped
// attribute carries the reason and no statistics; skipping one attribute
// never aborts the others.
type AttributeReport struct {
	Attribute              string      `json:"attribute"`
	Groups                 []GroupStat `json:"groups,omitempty"`
	DisparateImpact        float64     `json:"disparate_impact_ratio,omitempty"`
	DisparateImpactDefined bool        `json:"disparate_impact_defined"`
	BiasFlagged            bool        `json:"bias_flagged"`
	DroppedRows            int         `json:"dropped_rows,omitempty"`
	Skipped                bool        `json:"skipped,omitempty"`
	SkipReason             string      `json:"skip_reason,omitempty"`
}

// Report is the bias engine's output for one dataset.
type Report struct {
	LabelColumn   string            `json:"label_column"`
	Attributes    []AttributeReport `json:"attributes"`
	Parity        *ParityReport     `json:"model_parity,omitempty"`
	ParitySkipped string            `json:"model_parity_skipped,omitempty"`
}

// Flagged reports whether any attribute raised the bias flag.
func (r *Report) Flagged() bool {
	for _, a := range r.Attributes {
		if a.BiasFlagged {
			return true
		}
	}
	return false
}

// Analyze produces group statistics and a disparate-impact verdict for each
// protected attribute. opts may be nil; when present and the engine's
// Advanced capability is on, the model-assisted parity analysis runs on a
// held-out split.
func (e *Engine) Analyze(ds *dataset.Dataset, label string, attrs []string, opts *ModelOptions) (*Report, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset is required")
	}
	if _, ok := ds.Column(label); !ok {
		return nil, fmt.Errorf("label column %q not found", label)
	}

	labels, labelOK, labelSkip := resolveBinaryLabel(ds, label)

	report := &Report{LabelColumn: label}
	for _, attr := range attrs {
		report.Attributes = append(report.Attributes, e.analyzeAttribute(ds, attr, label, labels, labelOK, labelSkip))
	}

	e.attachParity(report, ds, attrs, opts)
	return report, nil
}

// analyzeAttribute computes group statistics and the disparate-impact ratio
// for a single protected attribute.
func (e *Engine) analyzeAttribute(ds *dataset.Dataset, attr, label string, labels []float64, labelOK []bool, labelSkip string) AttributeReport {
	ar := AttributeReport{Attribute: attr}

	if attr == label {
		ar.Skipped = true
		ar.SkipReason = "protected attribute must be disjoint from the label column"
		return ar
	}
	col, ok := ds.Column(attr)
	if !ok {
		ar.Skipped = true
		ar.SkipReason = fmt.Sprintf("column %q not found in dataset", attr)
		return ar
	}
	if labelSkip != "" {
		ar.Skipped = true
		ar.SkipReason = labelSkip
		return ar
	}

	cells := col.Values()
	groupKey := make([]string, len(cells))
	rowOK := make([]bool, len(cells))
	dropped := 0

	coerce := numericAttrs[strings.ToLower(attr)] && col.Kind() == dataset.KindText
	for i, cell := range cells {
		if !labelOK[i] {
			dropped++
			continue
		}
		if coerce {
			f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				dropped++
				continue
			}
			groupKey[i] = strconv.FormatFloat(f, 'g', -1, 64)
		} else {
			groupKey[i] = cell
		}
		rowOK[i] = true
	}
	ar.DroppedRows = dropped

	counts := make(map[string]int)
	sums := make(map[string]float64)
	for i := range cells {
		if !rowOK[i] {
			continue
		}
		counts[groupKey[i]]++
		sums[groupKey[i]] += labels[i]
	}
	if len(counts) == 0 {
		ar.Skipped = true
		ar.SkipReason = "no rows with a resolvable label and attribute value"
		return ar
	}

	for _, g := range sortedGroups(counts) {
		n := counts[g]
		ar.Groups = append(ar.Groups, GroupStat{
			Group:        g,
			TotalCases:   n,
			Approvals:    sums[g],
			ApprovalRate: api.Round4(sums[g] / float64(n)),
		})
	}

	minRate, maxRate := ar.Groups[0].ApprovalRate, ar.Groups[0].ApprovalRate
	for _, g := range ar.Groups[1:] {
		if g.ApprovalRate < minRate {
			minRate = g.ApprovalRate
		}
		if g.ApprovalRate > maxRate {
			maxRate = g.ApprovalRate
		}
	}

	// The ratio is undefined when no group has a positive rate; no flag
	// is raised in that case. A ratio exactly at the threshold does not
	// flag.
	if maxRate > 0 {
		ar.DisparateImpact = minRate / maxRate
		ar.DisparateImpactDefined = true
		ar.BiasFlagged = ar.DisparateImpact < e.Threshold
	}
	return ar
}

// resolveBinaryLabel maps the label column to 0/1 values. Numeric labels are
// used as-is; a text label with exactly two distinct values is mapped by
// first-seen order. More than two distinct text values is a skip, not an
// error. Rows whose label cannot be resolved are marked not-ok and excluded
// from every attribute's statistics, never coerced to zero.
func resolveBinaryLabel(ds *dataset.Dataset, label string) (vals []float64, ok []bool, skipReason string) {
	col, _ := ds.Column(label)
	if col.Kind() == dataset.KindNumeric {
		vals, ok = col.Floats()
		return vals, ok, ""
	}

	// Labels are compared after trimming so that "yes" and " yes" are
	// one value, not two.
	cells := col.Values()
	mapping := make(map[string]float64, 2)
	order := 0
	for _, raw := range cells {
		cell := strings.TrimSpace(raw)
		if cell == "" {
			continue
		}
		if _, seen := mapping[cell]; !seen {
			if order >= 2 {
				return nil, nil, fmt.Sprintf("label column %q has more than two distinct values; binary analysis skipped", label)
			}
			mapping[cell] = float64(order)
			order++
		}
	}
	if len(mapping) == 0 {
		return nil, nil, fmt.Sprintf("label column %q has no usable values", label)
	}

	vals = make([]float64, len(cells))
	ok = make([]bool, len(cells))
	for i, raw := range cells {
		if v, seen := mapping[strings.TrimSpace(raw)]; seen {
			vals[i] = v
			ok[i] = true
		}
	}
	return vals, ok, ""
}

// sortedGroups orders group keys numerically when every key parses as a
// number, lexically otherwise, so reports are deterministic.
func sortedGroups(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	allNumeric := true
	for k := range counts {
		keys = append(keys, k)
		if _, err := strconv.ParseFloat(k, 64); err != nil {
			allNumeric = false
		}
	}
	if allNumeric {
		sort.Slice(keys, func(i, j int) bool {
			a, _ := strconv.ParseFloat(keys[i], 64)
			b, _ := strconv.ParseFloat(keys[j], 64)
			return a < b
		})
	} else {
		sort.Strings(keys)
	}
	return keys
}
