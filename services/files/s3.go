package filesvc

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/trezcool/college/core"
)

// putObjectAPI is the part of *s3.Client used here.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Storage struct {
	client  putObjectAPI
	bucket  string
	baseURL string
}

var _ core.FileStorage = (*s3Storage)(nil)

// NewS3Storage stores files in conf.Uploads.S3Bucket. A custom endpoint (MinIO) switches to path-style URLs.
func NewS3Storage(ctx context.Context, conf *core.Config) (core.FileStorage, error) {
	up := conf.Uploads
	opts := []func(*config.LoadOptions) error{config.WithRegion(up.S3Region)}
	if up.S3AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(up.S3AccessKey, up.S3SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if up.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(up.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Storage(client, conf), nil
}

func newS3Storage(client putObjectAPI, conf *core.Config) *s3Storage {
	up := conf.Uploads
	baseURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", up.S3Bucket, up.S3Region)
	if up.S3Endpoint != "" {
		baseURL = joinURL(up.S3Endpoint, up.S3Bucket)
	}
	return &s3Storage{client: client, bucket: up.S3Bucket, baseURL: baseURL}
}

func (st *s3Storage) Save(ctx context.Context, dir, filename string, r io.Reader, contentType string) (core.StoredFile, error) {
	name := StoredName(filename)
	in := &s3.PutObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(path.Join(dir, name)),
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := st.client.PutObject(ctx, in); err != nil {
		return core.StoredFile{}, errors.Wrap(err, "uploading to S3")
	}
	return core.StoredFile{Name: name, URL: st.URL(dir, name), ContentType: contentType}, nil
}

func (st *s3Storage) URL(dir, name string) string {
	return joinURL(st.baseURL, dir, name)
}
