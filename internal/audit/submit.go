package audit

import (
	"fmt"

	"github.com/fairlens-ai/fairlens/internal/api"
	"github.com/fairlens-ai/fairlens/internal/dataset"
)

// FromSubmit converts a wire submission into a runnable request. The
// returned request has already passed Validate.
func FromSubmit(sub *api.SubmitRequest) (*Request, error) {
	if sub == nil {
		return nil, fmt.Errorf("submission is nil")
	}

	ds, err := dataset.FromRecords(sub.Columns, sub.Rows)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}

	req := &Request{
		Dataset:             ds,
		LabelColumn:         sub.LabelColumn,
		ProtectedAttributes: sub.ProtectedAttributes,
		Features:            sub.Features,
		FeatureNames:        sub.FeatureNames,
		Prompts:             sub.Prompts,
		ReferenceFacts:      sub.ReferenceFacts,
	}

	if sub.Model != nil {
		clf, err := sub.Model.Build()
		if err != nil {
			return nil, fmt.Errorf("invalid model spec: %w", err)
		}
		req.Classifier = clf
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}
