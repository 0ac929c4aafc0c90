package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fairlens-ai/fairlens/internal/audit"
	"github.com/fairlens-ai/fairlens/internal/dataset"
)

func runAudit(t *testing.T) *audit.Result {
	t.Helper()
	ds, err := dataset.FromRecords(
		[]string{"gender", "contact", "approved"},
		[][]string{
			{"m", "john.doe@example.com", "1"},
			{"m", "none", "1"},
			{"f", "none", "0"},
			{"f", "none", "0"},
		})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}

	o := audit.NewOrchestrator(audit.Options{})
	result, err := o.Run(context.Background(), &audit.Request{
		Dataset:             ds,
		LabelColumn:         "approved",
		ProtectedAttributes: []string{"gender"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

func TestWriteJSON(t *testing.T) {
	result := runAudit(t)

	var buf bytes.Buffer
	if err := WriteJSON(&buf, result); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	for _, key := range []string{
		"audit_id", "dataset_info", "bias_analysis",
		"explainability_analysis", "privacy_analysis",
		"hallucination_analysis", "summary", "compliance_score",
	} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("JSON report missing key %q", key)
		}
	}
}

func TestWriteMarkdown(t *testing.T) {
	result := runAudit(t)

	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, result); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Ethics Audit Report",
		result.AuditID,
		"## Bias Analysis",
		"## Privacy Analysis",
		"email",
		"Disparate impact ratio",
		"## Recommendations",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown report missing %q", want)
		}
	}

	// Bias is flagged and PII present, so both issues must render.
	if !strings.Contains(out, "Potential bias detected") {
		t.Error("markdown report should list the bias issue")
	}
	if !strings.Contains(out, "PII detected in dataset") {
		t.Error("markdown report should list the privacy issue")
	}
}
