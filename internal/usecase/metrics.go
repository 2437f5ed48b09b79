package usecase

import (
	"context"

	"github.com/example/hasface/internal/repository"
)

// MetricsSummary represents aggregated face check insights.
type MetricsSummary struct {
	TotalChecks   int64   `json:"total_checks"`
	FacesFound    int64   `json:"faces_found"`
	NoFace        int64   `json:"no_face"`
	Failures      int64   `json:"failures"`
	DetectionRate float64 `json:"detection_rate"`
}

// GetMetricsSummary aggregates face check outcomes from persisted checks.
// DetectionRate only counts checks the detection API answered.
func (uc *AvatarUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	counts, err := uc.repo.CountOutcomes(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalChecks: counts.Total(),
		FacesFound:  counts[repository.OutcomeFace],
		NoFace:      counts[repository.OutcomeNoFace],
		Failures:    counts[repository.OutcomeError],
	}

	if answered := summary.FacesFound + summary.NoFace; answered > 0 {
		summary.DetectionRate = float64(summary.FacesFound) / float64(answered)
	}

	return summary, nil
}
