package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/ondemand-reports-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "reports",
		Password: `it's secret`,
		Name:     "ondemand_reports",
		SSLMode:  "disable",
	})
	assert.Equal(t, `host=db port=5432 user=reports password='it\'s secret' dbname=ondemand_reports sslmode=disable`, dsn)
}

func TestDSNSkipsEmptyValues(t *testing.T) {
	assert.Equal(t, "host=localhost port=5432", DSN(config.DatabaseConfig{Host: "localhost", Port: 5432}))
}
