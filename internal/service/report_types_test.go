package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/ondemand-reports-api/internal/models"
	"github.com/noah-isme/ondemand-reports-api/pkg/config"
)

func TestReportTypesFromConfig(t *testing.T) {
	types := ReportTypesFromConfig([]config.ReportTypeConfig{
		{Dataset: "progress"},
		{Dataset: "userinfo", Encrypt: "true", Title: "User info"},
		{Dataset: "progress", Encrypt: "true"},
	})
	assert.Equal(t, []models.ReportType{
		{Dataset: "progress", Title: "progress"},
		{Dataset: "userinfo", Encrypt: "true", Title: "User info"},
	}, types)
	assert.True(t, types[1].Encrypted())
}

func TestRolesFromConfig(t *testing.T) {
	assert.Equal(t, []models.UserRole{models.RoleAdmin, models.RoleCourseMentor}, RolesFromConfig([]string{"ADMIN", "COURSE_MENTOR"}))
}
