// s3.go — S3/MinIO реализация Store.
// Ключи объектов: {uuid}/{sanitized-filename} в одном бакете.
package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config — параметры подключения к S3/MinIO.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Store — хранение содержимого в S3-совместимом хранилище.
type S3Store struct {
	client *minio.Client
	bucket string
	region string
}

// NewS3Store создаёт клиент MinIO и проверяет (создаёт) бакет.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации minio-клиента: %w", err)
	}

	s := &S3Store{client: client, bucket: cfg.Bucket, region: cfg.Region}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки бакета %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("ошибка создания бакета %s: %w", cfg.Bucket, err)
		}
	}

	return s, nil
}

// Put загружает содержимое в бакет.
func (s *S3Store) Put(ctx context.Context, reader io.Reader, originalFilename, contentType string, size int64) (*PutResult, error) {
	base := filepath.Base(originalFilename)
	ext := filepath.Ext(base)
	name := sanitize(strings.TrimSuffix(base, ext))
	key := path.Join(uuid.New().String(), name+ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, reader, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки объекта %s: %w", key, err)
	}

	return &PutResult{
		StorageKey: key,
		Size:       info.Size,
		Checksum:   info.ETag,
	}, nil
}

// Get открывает объект для чтения.
// MinIO отдаёт ошибку лениво, поэтому выполняем Stat до возврата reader.
func (s *S3Store) Get(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, storageKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения объекта %s: %w", storageKey, err)
	}

	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения метаданных объекта %s: %w", storageKey, err)
	}

	return obj, nil
}

// Delete удаляет объект. Отсутствующий объект — не ошибка (S3 сам идемпотентен).
func (s *S3Store) Delete(ctx context.Context, storageKey string) error {
	err := s.client.RemoveObject(ctx, s.bucket, storageKey, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("ошибка удаления объекта %s: %w", storageKey, err)
	}
	return nil
}

// isNoSuchKey проверяет, является ли ошибка отсутствием объекта в S3.
func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return false
}
