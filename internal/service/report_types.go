package service

import (
	"github.com/samber/lo"

	"github.com/noah-isme/ondemand-reports-api/internal/models"
	"github.com/noah-isme/ondemand-reports-api/pkg/config"
)

// ReportTypesFromConfig converts configured report types, dropping duplicate datasets.
func ReportTypesFromConfig(items []config.ReportTypeConfig) []models.ReportType {
	unique := lo.UniqBy(items, func(item config.ReportTypeConfig) string { return item.Dataset })
	return lo.Map(unique, func(item config.ReportTypeConfig, _ int) models.ReportType {
		title := item.Title
		if title == "" {
			title = item.Dataset
		}
		return models.ReportType{Dataset: item.Dataset, Encrypt: item.Encrypt, Title: title}
	})
}

// RolesFromConfig converts configured role names.
func RolesFromConfig(names []string) []models.UserRole {
	return lo.Map(names, func(name string, _ int) models.UserRole { return models.UserRole(name) })
}
