package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "eng", cfg.Documents.Language)
	assert.Equal(t, 25, cfg.Documents.ZoomMin)
	assert.Equal(t, 300, cfg.Documents.ZoomMax)
	assert.Equal(t, 40, cfg.Documents.RecentCount)
	assert.Equal(t, 10, cfg.Worker.Concurrency)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DOCUMENTS_ZOOM_MAX", "500")
	t.Setenv("DOCUMENTS_LANGUAGE", "deu")
	t.Setenv("STORAGE_BACKEND", "s3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Documents.ZoomMax)
	assert.Equal(t, "deu", cfg.Documents.Language)
	assert.Equal(t, "s3", cfg.Storage.Backend)
}

func TestLoadRejectsMalformedInt(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "lots")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/docvault")
	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestValidateMissingDatabaseURL(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Database.URL = ""
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL")
}

func TestValidateS3Credentials(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/docvault")
	t.Setenv("STORAGE_BACKEND", "s3")

	cfg, err := Load()
	require.NoError(t, err)
	err = cfg.Validate()
	assert.ErrorContains(t, err, "STORAGE_S3_ENDPOINT")
	assert.ErrorContains(t, err, "STORAGE_S3_ACCESS_KEY")
}

func TestValidateZoomRange(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/docvault")
	t.Setenv("DOCUMENTS_ZOOM_MIN", "200")
	t.Setenv("DOCUMENTS_ZOOM_MAX", "100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "zoom range")
}
