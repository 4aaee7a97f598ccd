// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
)

// ObjectPutter is the slice of the S3 client the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Archiver writes JSON documents into a Cloudflare R2 bucket.
type R2Archiver struct {
	client ObjectPutter
	bucket string
}

func NewR2Archiver(client ObjectPutter, bucket string) *R2Archiver {
	return &R2Archiver{client: client, bucket: bucket}
}

// NewR2ArchiverFromConfig builds an S3 client pointed at the account's R2 endpoint.
func NewR2ArchiverFromConfig(ctx context.Context, cfg Config) (*R2Archiver, error) {
	accountID := cfg.CloudflareAccountID
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.R2AccessKeyID, cfg.R2AccessKeySecret, "",
		)),
		awsconfig.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID),
				}, nil
			}),
		),
	)
	if err != nil {
		return nil, eris.Wrap(err, "failed to load R2 config")
	}
	return NewR2Archiver(s3.NewFromConfig(awsCfg), cfg.R2BucketName), nil
}

func (a *R2Archiver) PutJSON(ctx context.Context, key string, body []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return eris.Wrapf(err, "failed to upload %s to R2", key)
	}
	return nil
}
