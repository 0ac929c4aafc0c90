// Package report renders an audit result for persistence or display.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/fairlens-ai/fairlens/internal/audit"
)

// WriteJSON renders the result as indented JSON.
func WriteJSON(w io.Writer, result *audit.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

const markdownTemplate = `# Ethics Audit Report

- **Audit ID:** {{.AuditID}}
- **Generated:** {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}
- **Overall status:** {{.Summary.OverallStatus}}
- **Risk level:** {{.Summary.RiskTier}}
- **Compliance score:** {{printf "%.0f" .ComplianceScore}} / 100

## Dataset

| Rows | Columns | Label column |
|------|---------|--------------|
| {{.DatasetInfo.Rows}} | {{.DatasetInfo.Columns}} | {{.DatasetInfo.LabelColumn}} |

Protected attributes: {{join .DatasetInfo.ProtectedAttributes ", "}}

## Bias Analysis
{{if .Bias.Error}}
Stage failed: {{.Bias.Error.Message}}
{{- else if .Bias.Report}}
Label column: {{.Bias.Report.LabelColumn}}
{{range .Bias.Report.Attributes}}
### {{.Attribute}}
{{- if .Skipped}}
Skipped: {{.SkipReason}}
{{- else}}
{{- if .DisparateImpactDefined}}
Disparate impact ratio: {{printf "%.4f" .DisparateImpact}}{{if .BiasFlagged}} **(flagged)**{{end}}
{{- else}}
Disparate impact ratio: undefined (no approvals in any group)
{{- end}}

| Group | Cases | Approvals | Rate |
|-------|-------|-----------|------|
{{- range .Groups}}
| {{.Group}} | {{.TotalCases}} | {{.Approvals}} | {{printf "%.4f" .ApprovalRate}} |
{{- end}}
{{- end}}
{{end}}
{{- end}}

## Explainability
{{if .Explainability.Error}}
Stage failed: {{.Explainability.Error.Message}}
{{- else if .Explainability.Skipped}}
Skipped: {{.Explainability.Skipped}}
{{- else}}
Model kind: {{.Explainability.ModelKind}}
{{- if .Explainability.Rationale}}

{{.Explainability.Rationale}}
{{- end}}
{{- end}}

## Privacy Analysis
{{if .Privacy.Error}}
Stage failed: {{.Privacy.Error.Message}}
{{- else if .Privacy.Dataset}}
{{- if .Privacy.Dataset.PIIFindings}}
PII findings:
{{range .Privacy.Dataset.PIIFindings}}- column ` + "`{{.Column}}`" + `:{{range .Patterns}} {{.Kind}} ({{.Count}}){{end}}
{{end}}
{{- else}}
No PII patterns detected.
{{- end}}
{{- if .Privacy.Dataset.QuasiIdentifiers}}
Quasi-identifiers: {{join .Privacy.Dataset.QuasiIdentifiers ", "}}
{{- end}}
Re-identification risk: {{if .Privacy.Dataset.Reidentification}}elevated{{else}}low{{end}}
{{- end}}

## Factual Reliability
{{if .Factuality.Error}}
Stage failed: {{.Factuality.Error.Message}}
{{- else if .Factuality.Skipped}}
Skipped: {{.Factuality.Skipped}}
{{- else if .Factuality.Report}}
- Prompts analyzed: {{.Factuality.Report.Summary.PromptsAnalyzed}}
- Hallucination rate: {{printf "%.4f" .Factuality.Report.Summary.HallucinationRate}}
- Overall quality: {{.Factuality.Report.Summary.OverallQuality}}
{{- end}}

## Issues
{{if .Summary.Issues}}
{{- range .Summary.Issues}}
- **{{.Category}}**: {{.Message}}
{{- end}}
{{else}}
No issues found.
{{end}}

## Recommendations
{{range .Summary.Recommendations}}
- {{.}}
{{- end}}
`

var markdownTmpl = template.Must(template.New("markdown").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(markdownTemplate))

// WriteMarkdown renders the result as a Markdown report.
func WriteMarkdown(w io.Writer, result *audit.Result) error {
	if err := markdownTmpl.Execute(w, result); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
