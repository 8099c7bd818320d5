// Package minio reads index artifacts from an S3-compatible object store,
// used when the indexing job runs on a different host than the service.
package minio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/domain"
)

type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// credentialsFile is the JSON shape written by the provisioning scripts.
type credentialsFile struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// New connects and verifies the bucket up front, so a bad endpoint or key
// fails at startup instead of on the first query. prefix scopes all object
// keys under a project directory inside the bucket; empty means bucket root.
func New(ctx context.Context, endpoint, bucket, prefix, credentialsPath string, useSSL bool) (*Store, error) {
	creds, err := loadCredentials(credentialsPath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "load object store credentials", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKey, creds.SecretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "build object store client", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "check artifact bucket", err)
	}
	if !exists {
		return nil, domain.WrapError(domain.ErrConfiguration, "check artifact bucket",
			fmt.Errorf("bucket %q does not exist", bucket))
	}

	return &Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	key = s.objectKey(key)
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", key, err)
	}
	// GetObject is lazy; Stat forces the first request so missing objects
	// surface here, not on the first Read.
	if _, err := object.Stat(); err != nil {
		_ = object.Close()
		return nil, fmt.Errorf("stat artifact %s: %w", key, err)
	}
	return object, nil
}

func (s *Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func loadCredentials(path string) (credentialsFile, error) {
	if strings.TrimSpace(path) == "" {
		return credentialsFile{}, errors.New("credentials path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return credentialsFile{}, fmt.Errorf("read credentials file: %w", err)
	}

	var creds credentialsFile
	if err := json.Unmarshal(raw, &creds); err != nil {
		return credentialsFile{}, fmt.Errorf("parse credentials file: %w", err)
	}
	if creds.AccessKey == "" || creds.SecretKey == "" {
		return credentialsFile{}, errors.New("credentials file is missing access_key or secret_key")
	}
	return creds, nil
}
