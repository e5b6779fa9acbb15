package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

var (
	ErrConfigInvalid = errors.New("storage config invalid")
	ErrKeyInvalid    = errors.New("storage key invalid")
	ErrNotFound      = errors.New("storage object not found")
)

// Object 已存储对象
type Object struct {
	ID  string `json:"id"`  // 存储键，删除时使用
	URL string `json:"url"` // 对外访问地址
}

// Store 对象存储接口
type Store interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (Object, error)
	Delete(ctx context.Context, id string) error
}

// Config 对象存储配置
type Config struct {
	BucketURL     string
	PublicBaseURL string
}

// BlobStore 基于 gocloud blob 的实现
type BlobStore struct {
	bucket  *blob.Bucket
	baseURL string
}

// Open 打开 bucket，支持 file:// mem:// s3://
func Open(ctx context.Context, cfg Config) (*BlobStore, error) {
	bucketURL := strings.TrimSpace(cfg.BucketURL)
	if bucketURL == "" {
		return nil, fmt.Errorf("%w: bucket_url is required", ErrConfigInvalid)
	}
	if strings.HasPrefix(bucketURL, "file://") && !strings.Contains(bucketURL, "create_dir") {
		sep := "?"
		if strings.Contains(bucketURL, "?") {
			sep = "&"
		}
		bucketURL += sep + "create_dir=true"
	}
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return &BlobStore{
		bucket:  bucket,
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}, nil
}

// Upload 写入对象
func (s *BlobStore) Upload(ctx context.Context, key string, data []byte, contentType string) (Object, error) {
	key = sanitizeKey(key)
	if key == "" {
		return Object{}, ErrKeyInvalid
	}
	if err := s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType}); err != nil {
		return Object{}, err
	}
	return Object{ID: key, URL: s.PublicURL(key)}, nil
}

// Delete 删除对象，不存在时返回 ErrNotFound
func (s *BlobStore) Delete(ctx context.Context, id string) error {
	key := sanitizeKey(id)
	if key == "" {
		return ErrKeyInvalid
	}
	if err := s.bucket.Delete(ctx, key); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Exists 对象是否存在
func (s *BlobStore) Exists(ctx context.Context, id string) (bool, error) {
	return s.bucket.Exists(ctx, sanitizeKey(id))
}

// PublicURL 拼接对外地址
func (s *BlobStore) PublicURL(key string) string {
	if s.baseURL == "" {
		return "/" + key
	}
	return s.baseURL + "/" + key
}

// Close 关闭 bucket
func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

// sanitizeKey 去除路径穿越片段
func sanitizeKey(key string) string {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	parts := strings.Split(key, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		out = append(out, p)
	}
	return path.Join(out...)
}
