package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store is an explicitly constructed artifact-store capability backed by
// MinIO/S3. It is built once in main and injected; nothing looks it up
// ambiently.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// UploadDirectory implementasi ArtifactStore: pushes every file under
// localPath (minus .git) to the bucket under keyPrefix. The local copy is
// never deleted here, success or not.
func (s *Store) UploadDirectory(ctx context.Context, localPath, keyPrefix string) (string, error) {
	err := filepath.WalkDir(localPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(localPath, path)
		if err != nil {
			return err
		}
		key := keyPrefix + "/" + filepath.ToSlash(rel)
		return s.putFile(ctx, path, key)
	})
	if err != nil {
		return "", fmt.Errorf("upload directory %s: %w", localPath, err)
	}

	return fmt.Sprintf("minio://%s/%s/", s.bucketName, keyPrefix), nil
}

func (s *Store) putFile(ctx context.Context, localPath, key string) error {
	if _, err := os.Stat(localPath); err != nil {
		return err
	}

	// mimeType sederhana
	contentType := "application/octet-stream"
	switch filepath.Ext(localPath) {
	case ".json":
		contentType = "application/json"
	case ".html":
		contentType = "text/html"
	case ".md", ".txt":
		contentType = "text/plain"
	}

	_, err := s.client.FPutObject(ctx, s.bucketName, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}
