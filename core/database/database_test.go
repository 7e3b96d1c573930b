package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

func TestConfigForms(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "p@ss", Name: "servicebot"}

	assert.Equal(t, "user=bot password=p@ss host=db port=5432 dbname=servicebot sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://bot:p%40ss@db:5432/servicebot?sslmode=disable", cfg.URL())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.URL(), "sslmode=require")
}

func TestUpFilesAndBetween(t *testing.T) {
	src := fstest.MapFS{
		"000010_orders.up.sql":           {},
		"000002_auth_cache_index.up.sql": {},
		"000001_auth_cache.up.sql":       {},
		"000001_auth_cache.down.sql":     {},
		"README.md":                      {},
	}
	files := upFiles(src)
	assert.Equal(t, []string{
		"000001_auth_cache.up.sql",
		"000002_auth_cache_index.up.sql",
		"000010_orders.up.sql",
	}, files)

	assert.Equal(t, []string{"000002_auth_cache_index.up.sql", "000010_orders.up.sql"}, between(files, 1, 10))
	assert.Empty(t, between(files, 10, 10))
	assert.Equal(t, uint64(0), version("README.md"))
}
