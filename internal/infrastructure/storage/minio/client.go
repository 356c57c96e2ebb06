// Package minio reads and publishes dataset objects (the policy document and
// the reference CSV tables) in a MinIO or S3 bucket.
package minio

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	"github.com/haebom/tariff/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrBucketNotFound = errors.New(errors.ErrCodeSourceUnavailable, "bucket not found")
	ErrClientClosed   = errors.New(errors.ErrCodeServiceUnavailable, "minio client is closed")
)

// ObjectAPI is the part of *minio.Client used here.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// Config locates the dataset bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
	// CreateBucket makes the bucket when it does not exist yet.
	CreateBucket bool
}

func (c *Config) validate() error {
	if c.Endpoint == "" {
		return errors.InvalidParam("minio endpoint required")
	}
	if c.Bucket == "" {
		return errors.InvalidParam("minio bucket required")
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	return nil
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

func toObjectInfo(oi minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          oi.Key,
		Size:         oi.Size,
		ETag:         strings.Trim(oi.ETag, `"`),
		ContentType:  oi.ContentType,
		LastModified: oi.LastModified,
	}
}

// Client is bound to a single bucket.
type Client struct {
	api    ObjectAPI
	bucket string
	logger logging.Logger

	mu     sync.RWMutex
	closed bool
}

// NewClient connects and checks the bucket.
func NewClient(ctx context.Context, cfg Config, log logging.Logger) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	c := NewClientWithAPI(api, cfg.Bucket, log)
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.ensureBucket(checkCtx, cfg.CreateBucket); err != nil {
		return nil, err
	}

	log.Info("minio client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI wraps an existing API implementation.
func NewClientWithAPI(api ObjectAPI, bucket string, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{api: api, bucket: bucket, logger: log}
}

func (c *Client) ensureBucket(ctx context.Context, create bool) error {
	ok, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "failed to reach minio")
	}
	if ok {
		return nil
	}
	if !create {
		return ErrBucketNotFound.WithDetail(c.bucket)
	}
	if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "failed to create bucket")
	}
	c.logger.Info("created bucket", logging.String("bucket", c.bucket))
	return nil
}

// Bucket returns the bound bucket name.
func (c *Client) Bucket() string { return c.bucket }

// Stat returns metadata for key.  Missing keys yield ErrObjectNotFound.
func (c *Client) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	api, err := c.conn()
	if err != nil {
		return ObjectInfo{}, err
	}
	oi, err := api.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, mapError(err, key)
	}
	return toObjectInfo(oi), nil
}

// Open streams the object at key.  The caller closes the reader.
func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	api, err := c.conn()
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	obj, err := api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, mapError(err, key)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	oi, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, ObjectInfo{}, mapError(err, key)
	}
	return obj, toObjectInfo(oi), nil
}

// Put uploads r under key.  size may be -1 when unknown.
func (c *Client) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (ObjectInfo, error) {
	api, err := c.conn()
	if err != nil {
		return ObjectInfo{}, err
	}
	info, err := api.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return ObjectInfo{}, errors.Wrap(err, errors.ErrCodeExternalService, "failed to upload object").WithDetail(key)
	}
	c.logger.Info("object uploaded", logging.String("key", key), logging.Int64("size", info.Size))
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         strings.Trim(info.ETag, `"`),
		ContentType:  contentType,
		LastModified: info.LastModified,
	}, nil
}

// List returns the objects under prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	api, err := c.conn()
	if err != nil {
		return nil, err
	}
	var out []ObjectInfo
	for oi := range api.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if oi.Err != nil {
			return nil, errors.Wrap(oi.Err, errors.ErrCodeExternalService, "failed to list objects")
		}
		out = append(out, toObjectInfo(oi))
	}
	return out, nil
}

// HealthCheck reports whether the bucket is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	api, err := c.conn()
	if err != nil {
		return err
	}
	ok, err := api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "minio unreachable")
	}
	if !ok {
		return ErrBucketNotFound.WithDetail(c.bucket)
	}
	return nil
}

// Close marks the client closed.  minio-go holds no long-lived connections
// that need releasing.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *Client) conn() (ObjectAPI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	return c.api, nil
}

func mapError(err error, key string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey":
		return ErrObjectNotFound.WithDetail(key)
	case "NoSuchBucket":
		return ErrBucketNotFound.WithCause(err)
	}
	return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "object storage error").WithDetail(key)
}
