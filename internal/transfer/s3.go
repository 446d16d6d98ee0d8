package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

// S3Location is a parsed s3://bucket/key URL.
type S3Location struct {
	Bucket string
	Key    string
}

func (l S3Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// IsS3URL reports whether raw uses the s3 scheme.
func IsS3URL(raw string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "s3://")
}

// ParseS3URL splits an s3://bucket/key URL.
func ParseS3URL(raw string) (S3Location, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !strings.EqualFold(u.Scheme, "s3") || u.Host == "" {
		return S3Location{}, fmt.Errorf("%w: %q is not an s3://bucket/key URL", pderrors.ErrInvalidURL, raw)
	}
	return S3Location{Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}, nil
}

// S3API is the subset of the S3 client used for imports and exports.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds client construction parameters. Credentials fall back to
// the default AWS chain when no static keys are given.
type S3Config struct {
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	HTTPClient      *http.Client
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws configuration: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	}), nil
}

// S3Provider creates the client on first use so configurations that never
// touch s3:// do not need AWS credentials.
type S3Provider struct {
	factory func(ctx context.Context) (S3API, error)

	once   sync.Once
	client S3API
	err    error
}

// NewS3Provider wraps a client factory.
func NewS3Provider(factory func(ctx context.Context) (S3API, error)) *S3Provider {
	return &S3Provider{factory: factory}
}

// S3ProviderFromConfig returns a provider building a real client from cfg.
func S3ProviderFromConfig(cfg S3Config) *S3Provider {
	return NewS3Provider(func(ctx context.Context) (S3API, error) {
		return NewS3Client(ctx, cfg)
	})
}

func (p *S3Provider) get(ctx context.Context) (S3API, error) {
	p.once.Do(func() {
		p.client, p.err = p.factory(ctx)
	})
	return p.client, p.err
}

// Download opens the object at loc. The size is -1 when unknown.
func (p *S3Provider) Download(ctx context.Context, loc S3Location) (io.ReadCloser, int64, error) {
	client, err := p.get(ctx)
	if err != nil {
		return nil, 0, pderrors.NewNetworkError(loc.String(), 0, err)
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(loc.Bucket), Key: aws.String(loc.Key)})
	if err != nil {
		return nil, 0, pderrors.NewNetworkError(loc.String(), 0, err)
	}
	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}

// Upload stores body at loc.
func (p *S3Provider) Upload(ctx context.Context, loc S3Location, body io.ReadSeeker) error {
	client, err := p.get(ctx)
	if err != nil {
		return pderrors.NewNetworkError(loc.String(), 0, err)
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        body,
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return pderrors.NewNetworkError(loc.String(), 0, err)
	}
	return nil
}
