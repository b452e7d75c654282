package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kheops-album-tools/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const systemJSON = `{
	"kheops_url": "https://kheops.example.org/api",
	"kheops_access_token": "static-token",
	"mongo_uri": "mongodb://localhost:27017",
	"source_folder_location": "/data/source",
	"keycloak": {
		"uri": "https://keycloak.example.org",
		"realm": "kheops",
		"client_id": "loginConnect",
		"username": "alice",
		"password": "secret"
	},
	"http": {"timeout_ms": 2500}
}`

func writeConfig(t *testing.T, content string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "system.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, systemJSON))
	require.NoError(t, err)

	url, err := cfg.KheopsURL()
	assert.NoError(t, err)
	assert.Equal(t, "https://kheops.example.org/api", url)
	assert.Equal(t, "PRODUCTION", cfg.Env())
	assert.Equal(t, constants.AuthModeStatic, cfg.AuthMode())
	assert.Equal(t, 2500*time.Millisecond, cfg.HTTPTimeout())

	kc, err := cfg.Keycloak()
	require.NoError(t, err)
	assert.Equal(t, "kheops", kc.Realm)
	assert.Equal(t, "alice", kc.Username)
	assert.Equal(t, "", kc.ClientSecret)
}

func TestMissingKey(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{"kheops_url": "http://x"}`))
	require.NoError(t, err)

	_, err = cfg.SubsetFolder()
	assert.True(t, errors.Is(err, ErrMissingKey))
	assert.Contains(t, err.Error(), "subset_folder_location")

	_, err = cfg.Keycloak()
	assert.True(t, errors.Is(err, ErrMissingKey))
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestMetadataBackends(t *testing.T) {
	{
		cfg, err := Load(writeConfig(t, systemJSON))
		require.NoError(t, err)
		mc, err := cfg.Metadata()
		require.NoError(t, err)
		assert.Equal(t, constants.BackendMongo, mc.Backend)
		assert.Equal(t, constants.DefaultMetadataDatabase, mc.Database)
		assert.Equal(t, constants.DefaultMetadataCollection, mc.Collection)
	}
	{
		cfg, err := Load(writeConfig(t, `{
			"metadata": {"backend": "elasticsearch"},
			"elasticsearch": {"uris": ["http://es1:9200", "http://es2:9200"], "index_prefix": "dicom"}
		}`))
		require.NoError(t, err)
		mc, err := cfg.Metadata()
		require.NoError(t, err)
		assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, mc.ESAddresses)
		assert.Equal(t, "dicom", mc.IndexPrefix)
	}
	{
		cfg, err := Load(writeConfig(t, `{"metadata": {"backend": "sqlite"}}`))
		require.NoError(t, err)
		_, err = cfg.Metadata()
		assert.Error(t, err)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("KEYCLOAK__REALM", "override")
	cfg, err := Load(writeConfig(t, systemJSON))
	require.NoError(t, err)

	kc, err := cfg.Keycloak()
	require.NoError(t, err)
	assert.Equal(t, "override", kc.Realm)
}

func TestDotEnv(t *testing.T) {
	path := writeConfig(t, systemJSON)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte("SUBSET_FOLDER_LOCATION=/data/subset\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SUBSET_FOLDER_LOCATION") })

	cfg, err := Load(path)
	require.NoError(t, err)

	subset, err := cfg.SubsetFolder()
	assert.NoError(t, err)
	assert.Equal(t, "/data/subset", subset)
}

func TestMinIO(t *testing.T) {
	{
		cfg, err := Load(writeConfig(t, systemJSON))
		require.NoError(t, err)
		_, ok := cfg.MinIO()
		assert.False(t, ok)
	}
	{
		cfg, err := Load(writeConfig(t, `{"minio": {"uri": "localhost:9000", "bucket_name": "subsets"}}`))
		require.NoError(t, err)
		mc, ok := cfg.MinIO()
		assert.True(t, ok)
		assert.Equal(t, "subsets", mc.BucketName)
	}
}
