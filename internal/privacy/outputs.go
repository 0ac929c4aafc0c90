package privacy

import (
	"strings"

	"github.com/fairlens-ai/fairlens/internal/api"
	"github.com/fairlens-ai/fairlens/internal/dataset"
)

// OutputReport is the privacy analysis of a list of free-text model outputs.
type OutputReport struct {
	PIIInOutputs   []PatternCount `json:"pii_in_outputs,omitempty"`
	LeakageRatio   float64        `json:"data_leakage_risk"`
	LeakageFlagged bool           `json:"leakage_flagged"`
	TokensChecked  int            `json:"tokens_checked"`
}

// AnalyzeOutputs scans model outputs for the fixed PII patterns and, when
// the original training data is supplied, computes the fraction of output
// tokens that exactly match a token seen in any text training column, a
// crude membership-leakage ratio. It never fails on malformed input; empty
// outputs yield an empty report.
func (e *Engine) AnalyzeOutputs(outputs []string, training *dataset.Dataset) *OutputReport {
	report := &OutputReport{}
	if len(outputs) == 0 {
		return report
	}

	combined := strings.Join(outputs, " ")
	report.PIIInOutputs = e.scanner.CountMatches(combined)

	if training == nil {
		return report
	}

	trainingTokens := make(map[string]struct{})
	for _, col := range training.Columns() {
		if col.Kind() != dataset.KindText {
			continue
		}
		for _, cell := range col.Values() {
			for _, tok := range strings.Fields(cell) {
				trainingTokens[tok] = struct{}{}
			}
		}
	}

	matches, total := 0, 0
	for _, out := range outputs {
		for _, tok := range strings.Fields(out) {
			total++
			if _, ok := trainingTokens[tok]; ok {
				matches++
			}
		}
	}
	report.TokensChecked = total
	if total > 0 {
		report.LeakageRatio = api.Round4(float64(matches) / float64(total))
	}
	report.LeakageFlagged = report.LeakageRatio > e.LeakageThreshold
	return report
}
