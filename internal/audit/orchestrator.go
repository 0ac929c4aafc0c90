// Package audit orchestrates the analysis stages over one request and
// assembles their payloads into a single result.
package audit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairlens-ai/fairlens/internal/api"
	"github.com/fairlens-ai/fairlens/internal/bias"
	"github.com/fairlens-ai/fairlens/internal/explain"
	"github.com/fairlens-ai/fairlens/internal/factual"
	"github.com/fairlens-ai/fairlens/internal/metrics"
	"github.com/fairlens-ai/fairlens/internal/privacy"
	"github.com/fairlens-ai/fairlens/pkg/otel"
)

const tracerName = "fairlens/audit"

// hallucinationRateLimit is the summary-stage threshold above which the
// factuality payload raises an issue.
const hallucinationRateLimit = 0.2

// globalSampleLimit caps the batch used for the global explanation.
const globalSampleLimit = 100

// Options configures an Orchestrator.
type Options struct {
	// AdvancedBias enables the model-based demographic parity pass in
	// addition to the always-on observed-outcome analysis.
	AdvancedBias bool

	// BiasThreshold overrides the four-fifths disparate impact
	// threshold. Zero keeps the default.
	BiasThreshold float64

	// Responder supplies responses for the factuality stage. When nil,
	// the stage is skipped unless the request carries no prompts anyway.
	Responder factual.Responder

	// SimilarityThreshold overrides the response-to-fact similarity
	// below which a response counts as a hallucination. Zero keeps the
	// default.
	SimilarityThreshold float64

	// Metrics may be nil; the orchestrator then runs unobserved.
	Metrics *metrics.Metrics
}

// Orchestrator runs the five audit stages in order. Each stage fails
// independently; a stage failure is recorded in the result and never
// halts the sequence. Orchestrators are stateless across runs and safe
// for concurrent use.
type Orchestrator struct {
	bias    *bias.Engine
	privacy *privacy.Engine
	factual *factual.Checker
	metrics *metrics.Metrics
}

// NewOrchestrator builds an orchestrator from options.
func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		bias:    bias.NewEngine(opts.AdvancedBias),
		privacy: privacy.NewEngine(),
		metrics: opts.Metrics,
	}
	if opts.BiasThreshold > 0 {
		o.bias.Threshold = opts.BiasThreshold
	}
	if opts.Responder != nil {
		o.factual = factual.NewChecker(opts.Responder)
		if opts.SimilarityThreshold > 0 {
			o.factual.SetThreshold(opts.SimilarityThreshold)
		}
	}
	return o
}

// Run executes a complete audit. It returns an error only for request
// precondition violations, before any stage runs; stage failures are
// recorded inside the result.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("audit request is nil")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	if o.metrics != nil {
		o.metrics.AuditsTotal.Inc()
	}

	result := &Result{
		AuditID:     uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		DatasetInfo: DatasetInfo{
			Rows:                req.Dataset.NumRows(),
			Columns:             req.Dataset.NumColumns(),
			ColumnNames:         req.Dataset.ColumnNames(),
			LabelColumn:         req.LabelColumn,
			ProtectedAttributes: req.ProtectedAttributes,
		},
	}

	o.runStage(ctx, "bias", func(ctx context.Context) error {
		report, err := o.runBias(req)
		if err != nil {
			return err
		}
		result.Bias.Report = report
		return nil
	}, func(se *api.StageError) { result.Bias.Error = se })

	o.runStage(ctx, "explainability", func(ctx context.Context) error {
		stage, err := o.runExplain(req)
		if err != nil {
			return err
		}
		result.Explainability = *stage
		return nil
	}, func(se *api.StageError) { result.Explainability = ExplainStage{Error: se} })

	o.runStage(ctx, "privacy", func(ctx context.Context) error {
		result.Privacy.Dataset = o.privacy.AnalyzeDataset(req.Dataset)
		return nil
	}, func(se *api.StageError) { result.Privacy = PrivacyStage{Error: se} })

	o.runStage(ctx, "factuality", func(ctx context.Context) error {
		stage, err := o.runFactual(ctx, req)
		if err != nil {
			return err
		}
		result.Factuality = *stage
		return nil
	}, func(se *api.StageError) { result.Factuality = FactualStage{Error: se} })

	result.Summary = o.summarize(result)
	result.ComplianceScore = api.ComplianceScore(&result.Summary)

	o.observe(result, time.Since(start))
	return result, nil
}

// runStage executes one stage with panic isolation. A panic or returned
// error becomes a stage error marker via fail; the next stage still runs.
func (o *Orchestrator) runStage(ctx context.Context, name string, fn func(context.Context) error, fail func(*api.StageError)) {
	ctx, span := otel.StartSpan(ctx, tracerName, "audit.stage",
		attribute.String("audit.stage", name))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			otel.RecordError(span, err, name+" stage panicked")
			o.failStage(name, err, fail)
		}
	}()

	if err := fn(ctx); err != nil {
		otel.RecordError(span, err, name+" stage failed")
		o.failStage(name, err, fail)
	}
}

func (o *Orchestrator) failStage(name string, err error, fail func(*api.StageError)) {
	log.Printf("[audit] %s stage failed: %v", name, err)
	if o.metrics != nil {
		o.metrics.StageFailures.WithLabelValues(name).Inc()
	}
	fail(&api.StageError{Stage: name, Message: err.Error()})
}

func (o *Orchestrator) runBias(req *Request) (*bias.Report, error) {
	var opts *bias.ModelOptions
	if req.Classifier != nil {
		opts = &bias.ModelOptions{Classifier: req.Classifier, Features: req.Features}
	}
	return o.bias.Analyze(req.Dataset, req.LabelColumn, req.ProtectedAttributes, opts)
}

func (o *Orchestrator) runExplain(req *Request) (*ExplainStage, error) {
	if req.Classifier == nil {
		return &ExplainStage{Skipped: "no model supplied"}, nil
	}

	explainer, err := explain.New(req.Classifier, req.Features, req.FeatureNames)
	if err != nil {
		return nil, err
	}

	batch := req.Features
	if len(batch) > globalSampleLimit {
		batch = batch[:globalSampleLimit]
	}

	stage := &ExplainStage{
		Global:    explainer.ExplainGlobal(batch),
		ModelKind: explainer.Kind().String(),
	}
	if len(req.Features) > 0 {
		stage.Sample = explainer.ExplainOne(req.Features[0])
		stage.Rationale = stage.Sample.ToText()
	}
	return stage, nil
}

func (o *Orchestrator) runFactual(ctx context.Context, req *Request) (*FactualStage, error) {
	if len(req.Prompts) == 0 {
		return &FactualStage{Skipped: "no test prompts provided"}, nil
	}
	if o.factual == nil {
		return &FactualStage{Skipped: "no assistant configured"}, nil
	}

	report, err := o.factual.Analyze(ctx, req.Prompts, req.ReferenceFacts)
	if err != nil {
		return nil, err
	}
	return &FactualStage{Report: report}, nil
}

// summarize derives the verdict from whatever stage payloads exist.
// Failed stages contribute nothing; the summary still always renders.
func (o *Orchestrator) summarize(result *Result) api.Summary {
	summary := api.Summary{
		OverallStatus:   api.StatusPassed,
		RiskTier:        api.RiskLow,
		Issues:          []api.Issue{},
		Recommendations: []string{},
	}

	if r := result.Bias.Report; r != nil && r.Flagged() {
		summary.Issues = append(summary.Issues, api.Issue{
			Category: api.IssueBias,
			Message:  "Potential bias detected",
		})
		summary.OverallStatus = api.StatusFailed
		summary.RiskTier = summary.RiskTier.Escalate(api.RiskHigh)
	}

	if r := result.Privacy.Dataset; r != nil && r.PIIDetected() {
		summary.Issues = append(summary.Issues, api.Issue{
			Category: api.IssuePrivacy,
			Message:  "PII detected in dataset",
		})
		summary.RiskTier = summary.RiskTier.Escalate(api.RiskMedium)
	}

	if r := result.Factuality.Report; r != nil && r.Summary.HallucinationRate > hallucinationRateLimit {
		summary.Issues = append(summary.Issues, api.Issue{
			Category: api.IssueFactuality,
			Message:  "High hallucination rate detected",
		})
		summary.OverallStatus = api.StatusFailed
	}

	if len(summary.Issues) > 0 {
		summary.Recommendations = []string{
			"Review and address identified bias patterns",
			"Implement data anonymization for PII",
			"Add fact-checking mechanisms for model outputs",
			"Consider retraining models with bias mitigation techniques",
		}
	} else {
		summary.Recommendations = []string{
			"Continue monitoring for emerging ethical issues",
			"Regular re-auditing recommended",
			"Consider implementing continuous monitoring",
		}
	}
	return summary
}

func (o *Orchestrator) observe(result *Result, elapsed time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.AuditDuration.Observe(elapsed.Seconds())
	o.metrics.ComplianceScore.Observe(result.ComplianceScore)
	if result.Summary.OverallStatus == api.StatusFailed {
		o.metrics.AuditsFailed.Inc()
	}
	for _, issue := range result.Summary.Issues {
		o.metrics.IssuesFound.WithLabelValues(string(issue.Category)).Inc()
	}
}
