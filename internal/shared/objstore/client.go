// Package objstore 封装 MinIO 对象存储客户端
//
// 商品图片和用户头像都托管在这里。上传返回 (外链 URL, 对象 key)，
// 替换图片时由调用方用旧 key 做尽力而为的删除。
package objstore

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"student-market/internal/config"
)

var uploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "student_market",
		Name:      "image_uploads_total",
		Help:      "Total images uploaded to the object store",
	},
	[]string{"folder"},
)

// Client MinIO 客户端封装
type Client struct {
	mc        *minio.Client
	bucket    string
	publicURL string
}

// NewClient 创建 MinIO 客户端
func NewClient(cfg config.MinIOConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio access_key and secret_key are required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "student-market"
	}

	return &Client{mc: mc, bucket: bucket, publicURL: cfg.PublicURL}, nil
}

// EnsureBucket 确保 bucket 存在
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		log.Printf("[objstore] Created bucket: %s", c.bucket)
	}
	return nil
}

// UploadImage 上传图片并返回 (外链 URL, 对象 key)
//
// folder: "users" 或 "products"；ext 含点，如 ".png"
func (c *Client) UploadImage(ctx context.Context, folder, ext, contentType string, data []byte) (string, string, error) {
	key := fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), ext)
	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", "", fmt.Errorf("upload %s: %w", key, err)
	}
	uploadsTotal.WithLabelValues(folder).Inc()
	return c.URL(key), key, nil
}

// Delete 删除对象
// 调用方按"尽力而为"语义使用：失败只记日志，不中断业务流程
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
}

// URL 返回对象的外链地址
func (c *Client) URL(key string) string {
	return fmt.Sprintf("%s/%s/%s", c.publicURL, c.bucket, key)
}
