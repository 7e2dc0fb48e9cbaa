package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/ottgen/internal/domain"
)

type memStorage struct {
	objects      map[string][]byte
	contentTypes map[string]string
	err          error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memStorage) Upload(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(b)) != size {
		return errors.New("size mismatch")
	}
	m.objects[key] = b
	m.contentTypes[key] = contentType
	return nil
}

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{"https://abc.r2.cloudflarestorage.com", StorageTypeR2},
		{"s3.ap-northeast-2.amazonaws.com", StorageTypeS3},
		{"localhost:9000", StorageTypeS3Compatible},
		{"", StorageTypeS3Compatible},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, detectStorageType(tt.endpoint))
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "minio:9000", normalizeEndpoint("http://minio:9000/bucket/path"))
	assert.Equal(t, "s3.amazonaws.com", normalizeEndpoint("https://s3.amazonaws.com"))
	assert.Equal(t, "", normalizeEndpoint(""))
}

func TestResolveRegion(t *testing.T) {
	assert.Equal(t, "auto", resolveRegion(StorageTypeR2, ""))
	assert.Equal(t, "us-east-1", resolveRegion(StorageTypeS3Compatible, ""))
	assert.Equal(t, "ap-northeast-2", resolveRegion(StorageTypeS3, "ap-northeast-2"))
}

func TestNewS3Storage_RequiresBucket(t *testing.T) {
	_, err := NewS3Storage(&S3Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

func TestPayloadArchive_Key(t *testing.T) {
	a := NewPayloadArchive(newMemStorage(), "/payloads/")
	at := time.Date(2026, 3, 14, 23, 30, 0, 0, time.FixedZone("KST", 9*3600))
	assert.Equal(t, "payloads/2026-03-14/7-603.json", a.Key(7, 603, at))
}

func TestPayloadArchive_Put(t *testing.T) {
	mem := newMemStorage()
	a := NewPayloadArchive(mem, "payloads")
	c := &domain.Candidate{ID: 7, CatalogID: 603}
	at := time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC)

	key, err := a.Put(context.Background(), c, map[string]string{"title": "The Matrix"}, at)
	require.NoError(t, err)
	assert.Equal(t, "payloads/2026-03-14/7-603.json", key)
	assert.Equal(t, "application/json", mem.contentTypes[key])

	var got map[string]string
	require.NoError(t, json.Unmarshal(mem.objects[key], &got))
	assert.Equal(t, "The Matrix", got["title"])
}

func TestPayloadArchive_PutError(t *testing.T) {
	mem := newMemStorage()
	mem.err = errors.New("bucket gone")
	a := NewPayloadArchive(mem, "")

	_, err := a.Put(context.Background(), &domain.Candidate{ID: 1, CatalogID: 2}, struct{}{}, time.Now())
	assert.ErrorContains(t, err, "bucket gone")
}
