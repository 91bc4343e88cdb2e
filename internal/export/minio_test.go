package export

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	buckets map[string]bool
	puts    map[string]string
	fail    bool
}

func (f *fakeStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeStore) FPutObject(_ context.Context, bucket, object, _ string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.fail {
		return minio.UploadInfo{}, errors.New("disk full")
	}
	f.puts[bucket+"/"+object] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: 10}, nil
}

func TestExporterCreatesBucketAndUploads(t *testing.T) {
	store := &fakeStore{buckets: map[string]bool{}, puts: map[string]string{}}
	e, err := NewExporter(context.Background(), store, "coastal")
	require.NoError(t, err)
	assert.True(t, store.buckets["coastal"])

	objects, err := e.Upload(context.Background(), "runs/abc", "/tmp/out/classes.tif", "/tmp/out/band.geojson")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "coastal/runs/abc/classes.tif", objects[0].String())
	assert.Equal(t, "image/tiff", store.puts["coastal/runs/abc/classes.tif"])
	assert.Equal(t, "application/geo+json", store.puts["coastal/runs/abc/band.geojson"])
}

func TestExporterUploadError(t *testing.T) {
	store := &fakeStore{buckets: map[string]bool{"coastal": true}, puts: map[string]string{}, fail: true}
	e, err := NewExporter(context.Background(), store, "coastal")
	require.NoError(t, err)

	_, err = e.Upload(context.Background(), "runs/abc", "/tmp/out/classes.tif")
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", ContentType("series.CSV"))
	assert.Equal(t, "video/x-msvideo", ContentType("frames.avi"))
	assert.Equal(t, "application/octet-stream", ContentType("notes"))
}
