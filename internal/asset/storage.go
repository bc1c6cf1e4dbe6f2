package asset

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStorage is append-only from the core's point of view: there is no
// delete and object keys are never reused.
type ObjectStorage interface {
	Put(ctx context.Context, objectKey string, data []byte, contentType string, meta map[string]string) (publicURL string, err error)
	Bucket() string
}

type minioStorage struct {
	client     *minio.Client
	bucketName string
	publicURL  string
}

func hashSHA256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// NewMinioStorage connects to MinIO and makes sure the bucket exists. publicURL
// is the base used to build links handed to workers; it defaults to the endpoint.
func NewMinioStorage(endpoint, accessKey, secretKey string, useSSL bool, bucket, publicURL string) (ObjectStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, errBucket := client.BucketExists(ctx, bucket)
	if errBucket != nil {
		return nil, errBucket
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + endpoint
	}

	return &minioStorage{
		client:     client,
		bucketName: bucket,
		publicURL:  strings.TrimRight(publicURL, "/"),
	}, nil
}

func (s *minioStorage) Put(ctx context.Context, objectKey string, data []byte, contentType string, meta map[string]string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucketName, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: meta,
	})
	if err != nil {
		return "", err
	}
	return s.objectURL(objectKey), nil
}

func (s *minioStorage) Bucket() string {
	return s.bucketName
}

func (s *minioStorage) objectURL(objectKey string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, url.PathEscape(s.bucketName), objectKey)
}
