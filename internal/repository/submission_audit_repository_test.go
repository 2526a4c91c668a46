package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ondemand-reports-api/internal/models"
)

func newAuditRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSubmissionAuditRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()
	repo := NewSubmissionAuditRepository(db)

	requestID := "req-1"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_request_audits")).
		WithArgs(sqlmock.AnyArg(), "tag-1", "userinfo", "batch-1", "user-1", "SUBMITTED", "req-1", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	audit := &models.SubmissionAudit{
		Tag:         "tag-1",
		Dataset:     "userinfo",
		BatchID:     "batch-1",
		RequestedBy: "user-1",
		Outcome:     models.SubmissionOutcomeSubmitted,
		RequestID:   &requestID,
		Encrypted:   true,
	}
	require.NoError(t, repo.Create(context.Background(), audit))
	require.NotEmpty(t, audit.ID)
	require.False(t, audit.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionAuditRepositoryCreateError(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()
	repo := NewSubmissionAuditRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_request_audits")).
		WillReturnError(errors.New("boom"))

	err := repo.Create(context.Background(), &models.SubmissionAudit{Tag: "t", Outcome: models.SubmissionOutcomeDenied})
	require.ErrorContains(t, err, "create submission audit")
}

func TestSubmissionAuditRepositoryListByTag(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()
	repo := NewSubmissionAuditRepository(db)

	rows := sqlmock.NewRows([]string{"id", "tag", "dataset", "batch_id", "requested_by", "outcome", "request_id", "encrypted", "created_at"}).
		AddRow("a1", "tag-1", "progress", "batch-1", "user-1", "DENIED", nil, false, time.Now()).
		AddRow("a0", "tag-1", "progress", "batch-1", "user-1", "SUBMITTED", "req-0", false, time.Now().Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_request_audits WHERE tag = $1 ORDER BY created_at DESC LIMIT $2")).
		WithArgs("tag-1", 20).
		WillReturnRows(rows)

	audits, err := repo.ListByTag(context.Background(), "tag-1", 0)
	require.NoError(t, err)
	require.Len(t, audits, 2)
	require.Equal(t, models.SubmissionOutcomeDenied, audits[0].Outcome)
	require.Nil(t, audits[0].RequestID)
	require.Equal(t, "req-0", *audits[1].RequestID)
	require.NoError(t, mock.ExpectationsWereMet())
}
