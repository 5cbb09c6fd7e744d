package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perceptionx/collector/internal/config"
)

func TestDetectStorageType(t *testing.T) {
	assert.Equal(t, StorageTypeR2, detectStorageType("https://acct.r2.cloudflarestorage.com"))
	assert.Equal(t, StorageTypeS3, detectStorageType("s3.eu-west-1.amazonaws.com"))
	assert.Equal(t, StorageTypeSupabase, detectStorageType("https://proj.supabase.co"))
	assert.Equal(t, StorageTypeS3Compatible, detectStorageType("localhost:9000"))
	assert.Equal(t, StorageTypeMemory, detectStorageType(""))
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "proj.supabase.co", normalizeEndpoint("https://proj.supabase.co/storage/v1/s3"))
	assert.Equal(t, "localhost:9000", normalizeEndpoint("http://localhost:9000/"))
}

func TestS3StorageURL(t *testing.T) {
	s, err := NewS3Storage(&S3Config{Type: StorageTypeS3Compatible, Endpoint: "localhost:9000", Bucket: "reports", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/reports/acme/report.json", s.URL("acme/report.json"))

	s.publicURL = "https://cdn.example.com"
	assert.Equal(t, "https://cdn.example.com/acme/report.json", s.URL("acme/report.json"))
}

func TestNewStorage(t *testing.T) {
	s, err := NewStorage(&config.StorageConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = NewStorage(&config.StorageConfig{Enabled: true, Type: "memory"})
	require.NoError(t, err)
	require.NotNil(t, s)

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k", []byte("v"), "text/plain"))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
