package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Mirror keeps an offsite copy of local files under bucket/prefix.
type S3Mirror struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Mirror(ctx context.Context, bucket, prefix string) (*S3Mirror, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Mirror{client: client, bucket: bucket, prefix: prefix}, nil
}

func (m *S3Mirror) key(name string) string {
	return path.Join(m.prefix, name)
}

// Upload copies the local file to the bucket, keyed by its base name.
func (m *S3Mirror) Upload(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	key := m.key(filepath.Base(localPath))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s to bucket %s: %w", key, m.bucket, err)
	}
	return nil
}

// Download writes the named object to outStream.
func (m *S3Mirror) Download(ctx context.Context, name string, outStream io.Writer) error {
	key := m.key(name)
	resp, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get object %s from bucket %s: %w", key, m.bucket, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(outStream, resp.Body); err != nil {
		return fmt.Errorf("failed to copy object %s from bucket %s: %w", key, m.bucket, err)
	}
	return nil
}

// Delete removes the named object.
func (m *S3Mirror) Delete(ctx context.Context, name string) error {
	key := m.key(name)
	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s from bucket %s: %w", key, m.bucket, err)
	}
	return nil
}

// List returns the base names of every object under the prefix.
func (m *S3Mirror) List(ctx context.Context) ([]string, error) {
	var names []string

	paginator := s3.NewListObjectsV2Paginator(m.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.bucket),
		Prefix: aws.String(m.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in bucket %s: %w", m.bucket, err)
		}

		for _, obj := range page.Contents {
			if obj.Key != nil {
				names = append(names, path.Base(*obj.Key))
			}
		}
	}

	return names, nil
}
