package models

import "time"

// SubmissionOutcome enumerates how a report submission attempt ended.
type SubmissionOutcome string

const (
	SubmissionOutcomeSubmitted SubmissionOutcome = "SUBMITTED"
	SubmissionOutcomeDenied    SubmissionOutcome = "DENIED"
	SubmissionOutcomeInvalid   SubmissionOutcome = "INVALID"
	SubmissionOutcomeFailed    SubmissionOutcome = "FAILED"
)

// SubmissionAudit is an audit trail row for a report submission attempt.
// The encryption key is never part of it.
type SubmissionAudit struct {
	ID          string            `db:"id" json:"id"`
	Tag         string            `db:"tag" json:"tag"`
	Dataset     string            `db:"dataset" json:"dataset"`
	BatchID     string            `db:"batch_id" json:"batch_id"`
	RequestedBy string            `db:"requested_by" json:"requested_by"`
	Outcome     SubmissionOutcome `db:"outcome" json:"outcome"`
	RequestID   *string           `db:"request_id" json:"request_id,omitempty"`
	Encrypted   bool              `db:"encrypted" json:"encrypted"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}
