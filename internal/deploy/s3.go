package deploy

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bedasa/dataport/sdk"
	"github.com/pinpt/go-common/v10/log"
)

// s3API is the subset of the S3 client the publisher uses, narrowed for tests
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads produced files to an S3 bucket. The deployment's Path
// is used as the key prefix.
type S3Publisher struct {
	client s3API
}

var _ Publisher = (*S3Publisher)(nil)

// NewS3Publisher creates an S3 deployment publisher honoring env
// configuration. Env support: AWS_REGION, AWS_ENDPOINT_URL_S3,
// AWS_S3_FORCE_PATH_STYLE.
func NewS3Publisher(ctx context.Context) (*S3Publisher, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if ep := os.Getenv("AWS_ENDPOINT_URL_S3"); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
		if strings.EqualFold(os.Getenv("AWS_S3_FORCE_PATH_STYLE"), "true") {
			o.UsePathStyle = true
		}
	})
	return &S3Publisher{client: client}, nil
}

// Type returns the deployment target type this publisher serves
func (p *S3Publisher) Type() sdk.DeploymentType {
	return sdk.DeploymentS3
}

// Publish uploads each file under the deployment's key prefix
func (p *S3Publisher) Publish(ctx context.Context, dc *Context) error {
	if dc.Deployment.Bucket == "" {
		return fmt.Errorf("s3 deployment %q has no bucket", dc.Deployment.Name)
	}
	for _, fn := range dc.Files {
		f, err := os.Open(fn)
		if err != nil {
			return fmt.Errorf("error opening %s: %w", filepath.Base(fn), err)
		}
		key := path.Join(dc.Deployment.Path, filepath.Base(fn))
		_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(dc.Deployment.Bucket),
			Key:    aws.String(key),
			Body:   f,
		}, func(o *s3.Options) {
			if dc.Deployment.Region != "" {
				o.Region = dc.Deployment.Region
			}
		})
		f.Close()
		if err != nil {
			return fmt.Errorf("error uploading %s: %w", filepath.Base(fn), err)
		}
		log.Debug(dc.Logger, "uploaded file", "bucket", dc.Deployment.Bucket, "key", key)
	}
	return nil
}
