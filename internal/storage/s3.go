package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3API is the subset of the S3 client used by the store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

// S3 stores objects under "<folder>/<uuid>.<ext>"; the key is the public id.
type S3 struct {
	client    S3API
	bucket    string
	publicURL string
}

func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := opts.PublicURL
	if publicURL == "" {
		if opts.Endpoint != "" {
			publicURL = strings.TrimSuffix(opts.Endpoint, "/") + "/" + opts.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
		}
	}
	return NewS3WithClient(client, opts.Bucket, publicURL), nil
}

func NewS3WithClient(client S3API, bucket, publicURL string) *S3 {
	return &S3{client: client, bucket: bucket, publicURL: strings.TrimSuffix(publicURL, "/")}
}

func (s *S3) Upload(ctx context.Context, in UploadInput) (*Object, error) {
	format := Extension(in.Filename)
	key := strings.TrimSuffix(in.Folder, "/") + "/" + uuid.NewString()
	if format != "" {
		key += "." + format
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        in.Body,
		ContentType: aws.String(in.ContentType),
		Metadata: map[string]string{
			"display-name":  in.DisplayName,
			"resource-type": in.ResourceType,
		},
	}
	if in.Size > 0 {
		input.ContentLength = aws.Int64(in.Size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, err
	}

	return &Object{
		PublicID:     key,
		URL:          s.publicURL + "/" + key,
		Format:       format,
		ResourceType: in.ResourceType,
		Bytes:        in.Size,
	}, nil
}

func (s *S3) Destroy(ctx context.Context, publicID, resourceType string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return ErrNotFound
	}
	return err
}

// List returns objects under the prefix. The bucket has no notion of resource type, so
// it is derived from each key's extension and in.ResourceType filters on it.
func (s *S3) List(ctx context.Context, in ListInput) (*Listing, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(in.Prefix),
	}
	if in.MaxResults > 0 {
		input.MaxKeys = aws.Int32(int32(in.MaxResults))
	}
	if in.Cursor != "" {
		input.ContinuationToken = aws.String(in.Cursor)
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, err
	}

	listing := &Listing{Objects: make([]Object, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		format := Extension(key)
		resourceType := ResourceTypeFor(mime.TypeByExtension("." + format))
		if in.ResourceType != "" && in.ResourceType != resourceType {
			continue
		}
		listing.Objects = append(listing.Objects, Object{
			PublicID:     key,
			URL:          s.publicURL + "/" + key,
			Format:       format,
			ResourceType: resourceType,
			Bytes:        aws.ToInt64(obj.Size),
			CreatedAt:    aws.ToTime(obj.LastModified),
		})
	}
	if aws.ToBool(out.IsTruncated) {
		listing.NextCursor = aws.ToString(out.NextContinuationToken)
	}
	listing.Total = len(listing.Objects)
	return listing, nil
}
