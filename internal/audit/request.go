package audit

import (
	"fmt"

	"github.com/fairlens-ai/fairlens/internal/dataset"
	"github.com/fairlens-ai/fairlens/internal/model"
)

// Request carries everything one audit run needs. The dataset is
// read-only shared state across stages; engines that need a filtered
// view copy it rather than mutating it.
type Request struct {
	Dataset             *dataset.Dataset
	LabelColumn         string
	ProtectedAttributes []string

	// Pre-encoded numeric view of the dataset, supplied by the caller
	// alongside a fitted classifier. All three are optional together.
	Features     [][]float64
	FeatureNames []string
	Classifier   model.Classifier

	// Generative-text inputs for the factuality stage.
	Prompts        []string
	ReferenceFacts map[string]string
}

// Validate checks caller-facing preconditions. These are the only
// conditions treated as fatal; everything else degrades inside a stage.
func (r *Request) Validate() error {
	if r.Dataset == nil {
		return fmt.Errorf("audit request needs a dataset")
	}
	if r.LabelColumn == "" {
		return fmt.Errorf("audit request needs a label column")
	}
	if r.Classifier != nil {
		if len(r.Features) == 0 {
			return fmt.Errorf("classifier supplied without feature rows")
		}
		if len(r.FeatureNames) == 0 {
			return fmt.Errorf("classifier supplied without feature names")
		}
		for i, row := range r.Features {
			if len(row) != len(r.FeatureNames) {
				return fmt.Errorf("feature row %d has %d values, want %d", i, len(row), len(r.FeatureNames))
			}
		}
	}
	return nil
}
