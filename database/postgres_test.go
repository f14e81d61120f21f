package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresConfigDSN(t *testing.T) {
	cfg := PostgresConfig{User: "story", Password: "pw", DB: "orders"}
	assert.Equal(t, "host=localhost user=story password=pw dbname=orders port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())

	cfg.Host, cfg.Port, cfg.SSLMode, cfg.TimeZone = "db", "6543", "require", "Asia/Kolkata"
	assert.Equal(t, "host=db user=story password=pw dbname=orders port=6543 sslmode=require TimeZone=Asia/Kolkata", cfg.DSN())
}

func TestModelsCoversLedger(t *testing.T) {
	assert.Len(t, Models(), 8)
}
