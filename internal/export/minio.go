// Package export uploads the files of a run to object storage.
package export

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/properties"
	"github.com/ges-coastal/coastal-monitor/internal/utils"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the part of *minio.Client used by Exporter.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Object struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Size   int64  `json:"size"`
}

func (o Object) String() string {
	return o.Bucket + "/" + o.Key
}

type Exporter struct {
	store  ObjectStore
	bucket string
}

// NewMinioExporter connects to MinIO, checks the connection and makes sure
// the bucket exists.
func NewMinioExporter(ctx context.Context, cfg properties.Minio) (*Exporter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is not configured")
	}
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := client.ListBuckets(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO server: %w", err)
	}
	utils.Log.WithField("endpoint", cfg.Endpoint).Info("connected to MinIO")

	return NewExporter(ctx, client, cfg.Bucket)
}

func NewExporter(ctx context.Context, store ObjectStore, bucket string) (*Exporter, error) {
	e := &Exporter{store: store, bucket: bucket}
	if err := e.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Exporter) ensureBucket(ctx context.Context) error {
	exists, err := e.store.BucketExists(ctx, e.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := e.store.MakeBucket(ctx, e.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("error creating bucket %s: %w", e.bucket, err)
	}
	utils.Log.WithField("bucket", e.bucket).Info("created bucket")
	return nil
}

// Upload puts every file under prefix, keyed by its base name.
func (e *Exporter) Upload(ctx context.Context, prefix string, files ...string) ([]Object, error) {
	objects := make([]Object, 0, len(files))
	for _, file := range files {
		key := path.Join(prefix, filepath.Base(file))
		info, err := e.store.FPutObject(ctx, e.bucket, key, file, minio.PutObjectOptions{
			ContentType: ContentType(file),
		})
		if err != nil {
			return objects, fmt.Errorf("failed to upload %s: %w", file, err)
		}
		objects = append(objects, Object{Bucket: e.bucket, Key: key, Size: info.Size})
	}
	utils.Log.WithField("objects", len(objects)).Info("uploaded run outputs")
	return objects, nil
}

func ContentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".tif", ".tiff":
		return "image/tiff"
	case ".png":
		return "image/png"
	case ".geojson":
		return "application/geo+json"
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}
