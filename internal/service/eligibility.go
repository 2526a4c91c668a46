package service

import (
	"github.com/samber/lo"

	"github.com/noah-isme/ondemand-reports-api/internal/models"
)

// EndDateRule selects how the batch end date affects eligibility.
type EndDateRule int

const (
	// EndDateRuleInert ignores the batch end date. This is the behaviour the
	// panel has always shipped with.
	EndDateRuleInert EndDateRule = iota
	// EndDateRuleEnforced denies a new request while the latest request for the
	// dataset was submitted before the batch end date.
	EndDateRuleEnforced
)

// EligibilityEvaluator decides whether a new report request may be submitted.
type EligibilityEvaluator struct {
	endDateRule EndDateRule
}

// NewEligibilityEvaluator constructs an evaluator using rule for the end-date check.
func NewEligibilityEvaluator(rule EndDateRule) *EligibilityEvaluator {
	return &EligibilityEvaluator{endDateRule: rule}
}

// Allowed reports whether dataset may be requested again given the current records.
// Only records of the same dataset are considered; the latest by submission time
// decides, ties going to the later record in list order.
func (e *EligibilityEvaluator) Allowed(records []models.ReportRecord, dataset string, batch *models.BatchRef) bool {
	latest, ok := LatestForDataset(records, dataset)
	if !ok {
		return true
	}
	if latest.Status == models.ReportStatusSubmitted {
		return false
	}
	if e != nil && e.endDateRule == EndDateRuleEnforced {
		if end, hasEnd := batch.EndDateMillis(); hasEnd && latest.HasSubmittedAt() && latest.SubmittedAtMillis() < end {
			return false
		}
	}
	return true
}

// LatestForDataset returns the most recently submitted record for dataset.
func LatestForDataset(records []models.ReportRecord, dataset string) (models.ReportRecord, bool) {
	matching := lo.Filter(records, func(record models.ReportRecord, _ int) bool {
		return record.Dataset == dataset
	})
	if len(matching) == 0 {
		return models.ReportRecord{}, false
	}
	latest := lo.Reduce(matching[1:], func(current models.ReportRecord, candidate models.ReportRecord, _ int) models.ReportRecord {
		if candidate.SubmittedAtMillis() >= current.SubmittedAtMillis() {
			return candidate
		}
		return current
	}, matching[0])
	return latest, true
}
