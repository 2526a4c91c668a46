package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ondemand-reports-api/internal/models"
)

// SubmissionAuditRepository persists report submission attempts.
type SubmissionAuditRepository struct {
	db *sqlx.DB
}

// NewSubmissionAuditRepository constructs the repository.
func NewSubmissionAuditRepository(db *sqlx.DB) *SubmissionAuditRepository {
	return &SubmissionAuditRepository{db: db}
}

// Create inserts an audit row with generated defaults.
func (r *SubmissionAuditRepository) Create(ctx context.Context, audit *models.SubmissionAudit) error {
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_request_audits (id, tag, dataset, batch_id, requested_by, outcome, request_id, encrypted, created_at)
VALUES (:id, :tag, :dataset, :batch_id, :requested_by, :outcome, :request_id, :encrypted, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, audit); err != nil {
		return fmt.Errorf("create submission audit: %w", err)
	}
	return nil
}

// ListByTag returns the latest audit rows for tag, newest first.
func (r *SubmissionAuditRepository) ListByTag(ctx context.Context, tag string, limit int) ([]models.SubmissionAudit, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const query = `SELECT id, tag, dataset, batch_id, requested_by, outcome, request_id, encrypted, created_at
FROM report_request_audits WHERE tag = $1 ORDER BY created_at DESC LIMIT $2`
	var audits []models.SubmissionAudit
	if err := r.db.SelectContext(ctx, &audits, query, tag, limit); err != nil {
		return nil, fmt.Errorf("list submission audits: %w", err)
	}
	return audits, nil
}
