package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sharescan.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
credentials = "/secrets/sa.json"
subject     = "audit@example.com"
application = "corp-sharescan"

crawl {
  concurrency   = 400
  page_size     = 250
  retry_seconds = 120
}

analyze {
  concurrency = 64
  separator   = " > "
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/secrets/sa.json", cfg.Credentials)
	assert.Equal(t, "audit@example.com", cfg.Subject)
	assert.Equal(t, "corp-sharescan", cfg.Application)
	assert.Equal(t, 400, cfg.Crawl.Concurrency)
	assert.Equal(t, 250, cfg.Crawl.PageSize)
	assert.Equal(t, 120, cfg.Crawl.RetrySeconds)
	assert.Equal(t, 64, cfg.Analyze.Concurrency)
	assert.Equal(t, " > ", cfg.Analyze.Separator)
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	path := writeConfig(t, `
credentials = "sa.json"

crawl {
  concurrency = 10
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sharescan", cfg.Application)
	assert.Equal(t, 10, cfg.Crawl.Concurrency)
	assert.Equal(t, 1000, cfg.Crawl.PageSize)
	require.NotNil(t, cfg.Analyze)
	assert.Equal(t, 1000, cfg.Analyze.Concurrency)
	assert.Equal(t, "/", cfg.Analyze.Separator)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, `crawl {`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1500, cfg.Crawl.Concurrency)
	assert.Equal(t, 1000, cfg.Analyze.Concurrency)
	assert.Equal(t, "/", cfg.Analyze.Separator)
}
