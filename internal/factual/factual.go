// Package factual scores generative responses for factual reliability.
// Prompts with a reference fact are compared to it by tokenized shingle
// overlap; prompts without one fall back to a zero-resource consistency
// heuristic over the response text alone.
package factual

import (
	"context"
	"fmt"

	"github.com/fairlens-ai/fairlens/internal/api"
	"github.com/fairlens-ai/fairlens/pkg/text"
)

// DefaultThreshold is the similarity below which a response is treated
// as a hallucination.
const DefaultThreshold = 0.5

// Responder produces one response for one prompt. The conversational
// assistant satisfies it; tests use a canned implementation.
type Responder interface {
	Respond(ctx context.Context, prompt string) (string, error)
}

// PromptAnalysis is the per-prompt verdict.
type PromptAnalysis struct {
	Prompt          string  `json:"prompt"`
	Response        string  `json:"response"`
	Reference       string  `json:"reference,omitempty"`
	SimilarityScore float64 `json:"similarity_score"`
	IsHallucination bool    `json:"is_hallucination"`
}

// Summary aggregates the per-prompt verdicts.
type Summary struct {
	PromptsAnalyzed    int     `json:"prompts_analyzed"`
	HallucinationRate  float64 `json:"hallucination_rate"`
	AverageConsistency float64 `json:"average_consistency"`
	OverallQuality     string  `json:"overall_quality"`
}

// Report is the factuality stage payload.
type Report struct {
	Summary    Summary          `json:"summary"`
	Individual []PromptAnalysis `json:"individual_analyses"`
}

// Checker runs prompts through a responder and scores each response.
type Checker struct {
	responder Responder
	tokenizer *text.Tokenizer
	threshold float64
}

// NewChecker builds a checker with the default similarity threshold.
func NewChecker(r Responder) *Checker {
	return &Checker{
		responder: r,
		tokenizer: text.NewTokenizer(true, false, 2),
		threshold: DefaultThreshold,
	}
}

// SetThreshold overrides the hallucination threshold.
func (c *Checker) SetThreshold(threshold float64) { c.threshold = threshold }

// Analyze scores every prompt. referenceFacts maps a prompt to its
// expected ground truth; prompts absent from the map are scored with
// the no-reference consistency heuristic.
func (c *Checker) Analyze(ctx context.Context, prompts []string, referenceFacts map[string]string) (*Report, error) {
	if c.responder == nil {
		return nil, fmt.Errorf("factuality checker needs a responder")
	}

	report := &Report{Individual: make([]PromptAnalysis, 0, len(prompts))}
	if len(prompts) == 0 {
		report.Summary.OverallQuality = qualityLabel(0, 0)
		return report, nil
	}

	hallucinations := 0
	sumSimilarity := 0.0
	for _, prompt := range prompts {
		analysis := PromptAnalysis{Prompt: prompt}

		response, err := c.responder.Respond(ctx, prompt)
		if err != nil {
			analysis.IsHallucination = true
			report.Individual = append(report.Individual, analysis)
			hallucinations++
			continue
		}
		analysis.Response = response

		if ref, ok := referenceFacts[prompt]; ok && ref != "" {
			analysis.Reference = ref
			analysis.SimilarityScore = api.Round4(c.tokenizer.ComputeOverlap(response, ref))
		} else {
			analysis.SimilarityScore = api.Round4(responseConsistency(response))
		}
		analysis.IsHallucination = analysis.SimilarityScore < c.threshold

		if analysis.IsHallucination {
			hallucinations++
		}
		sumSimilarity += analysis.SimilarityScore
		report.Individual = append(report.Individual, analysis)
	}

	n := len(prompts)
	report.Summary.PromptsAnalyzed = n
	report.Summary.HallucinationRate = api.Round4(float64(hallucinations) / float64(n))
	report.Summary.AverageConsistency = api.Round4(sumSimilarity / float64(n))
	report.Summary.OverallQuality = qualityLabel(report.Summary.HallucinationRate, n)
	return report, nil
}

func qualityLabel(rate float64, prompts int) string {
	switch {
	case prompts == 0:
		return "unknown"
	case rate <= 0.2:
		return "good"
	case rate <= 0.5:
		return "moderate"
	default:
		return "poor"
	}
}
