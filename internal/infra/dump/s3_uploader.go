package dump

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client the uploader uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Uploader struct {
	client     S3API
	bucketName string
}

func NewS3Uploader(cfg aws.Config, bucketName string) *S3Uploader {
	return &S3Uploader{client: s3.NewFromConfig(cfg), bucketName: bucketName}
}

func NewS3UploaderWithClient(client S3API, bucketName string) *S3Uploader {
	return &S3Uploader{client: client, bucketName: bucketName}
}

func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("failed to put dump object to S3: %w", err)
	}
	return nil
}
