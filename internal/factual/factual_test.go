package factual

import (
	"context"
	"errors"
	"testing"
)

// cannedResponder returns scripted responses keyed by prompt.
type cannedResponder struct {
	responses map[string]string
	failFor   map[string]bool
}

func (r *cannedResponder) Respond(_ context.Context, prompt string) (string, error) {
	if r.failFor[prompt] {
		return "", errors.New("upstream timeout")
	}
	return r.responses[prompt], nil
}

func TestAnalyzeWithReferences(t *testing.T) {
	responder := &cannedResponder{responses: map[string]string{
		"capital of france": "The capital of France is Paris.",
		"boiling point":     "Water freezes at exactly 12 degrees on Mars.",
	}}
	checker := NewChecker(responder)

	refs := map[string]string{
		"capital of france": "The capital of France is Paris.",
		"boiling point":     "Water boils at 100 degrees Celsius at sea level.",
	}
	report, err := checker.Analyze(context.Background(), []string{"capital of france", "boiling point"}, refs)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(report.Individual) != 2 {
		t.Fatalf("len(Individual) = %d, want 2", len(report.Individual))
	}

	exact := report.Individual[0]
	if exact.SimilarityScore != 1.0 {
		t.Errorf("exact match similarity = %f, want 1.0", exact.SimilarityScore)
	}
	if exact.IsHallucination {
		t.Error("exact match must not be a hallucination")
	}

	wrong := report.Individual[1]
	if !wrong.IsHallucination {
		t.Errorf("unrelated response should be a hallucination (similarity %f)", wrong.SimilarityScore)
	}

	if report.Summary.HallucinationRate != 0.5 {
		t.Errorf("HallucinationRate = %f, want 0.5", report.Summary.HallucinationRate)
	}
	if report.Summary.OverallQuality != "moderate" {
		t.Errorf("OverallQuality = %q, want moderate", report.Summary.OverallQuality)
	}
}

func TestAnalyzeWithoutReference(t *testing.T) {
	specific := "Marie Curie won the Nobel Prize in Physics in 1903 and in Chemistry in 1911."
	hedged := "maybe it could possibly be something, it might perhaps be anything really, " +
		"anything anything anything could possibly maybe be true"
	responder := &cannedResponder{responses: map[string]string{
		"specific": specific,
		"hedged":   hedged,
	}}
	checker := NewChecker(responder)

	report, err := checker.Analyze(context.Background(), []string{"specific", "hedged"}, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if report.Individual[0].SimilarityScore <= report.Individual[1].SimilarityScore {
		t.Errorf("specific response (%f) should outscore hedged response (%f)",
			report.Individual[0].SimilarityScore, report.Individual[1].SimilarityScore)
	}
	if report.Individual[0].Reference != "" {
		t.Error("no-reference analysis must not carry a reference")
	}
}

func TestAnalyzeResponderFailure(t *testing.T) {
	responder := &cannedResponder{
		responses: map[string]string{"ok": "The answer is 42."},
		failFor:   map[string]bool{"down": true},
	}
	checker := NewChecker(responder)

	report, err := checker.Analyze(context.Background(), []string{"ok", "down"}, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	failed := report.Individual[1]
	if !failed.IsHallucination || failed.Response != "" {
		t.Errorf("failed prompt should record an empty hallucinated response, got %+v", failed)
	}
	if report.Summary.PromptsAnalyzed != 2 {
		t.Errorf("PromptsAnalyzed = %d, want 2", report.Summary.PromptsAnalyzed)
	}
}

func TestAnalyzeEmptyPrompts(t *testing.T) {
	checker := NewChecker(&cannedResponder{})
	report, err := checker.Analyze(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(report.Individual) != 0 {
		t.Errorf("len(Individual) = %d, want 0", len(report.Individual))
	}
	if report.Summary.OverallQuality != "unknown" {
		t.Errorf("OverallQuality = %q, want unknown", report.Summary.OverallQuality)
	}
}
