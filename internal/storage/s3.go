// Package storage keeps uploaded resumes and assignment files in S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"hirelane/pipeline-service/internal/pipeline"
)

// Putter is the part of the S3 client used here.
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner is the part of the S3 presign client used here.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// LinkTTL is how long a document link stays valid.
const LinkTTL = 15 * time.Minute

// S3Store implements pipeline.FileStore and pipeline.FileLinker. References
// have the form s3://bucket/key.
type S3Store struct {
	client  Putter
	presign Presigner
	bucket  string
	newID   func() string
}

// NewS3Store builds an S3 client from the default AWS config chain. A
// non-empty endpoint (MinIO, LocalStack) switches to path-style addressing.
func NewS3Store(ctx context.Context, bucket, region, endpoint string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClient(client, s3.NewPresignClient(client), bucket), nil
}

// NewS3StoreWithClient wraps existing clients.
func NewS3StoreWithClient(client Putter, presign Presigner, bucket string) *S3Store {
	return &S3Store{client: client, presign: presign, bucket: bucket, newID: uuid.NewString}
}

var (
	_ pipeline.FileStore  = (*S3Store)(nil)
	_ pipeline.FileLinker = (*S3Store)(nil)
)

func (s *S3Store) Save(ctx context.Context, kind pipeline.FileKind, filename, contentType string, data []byte) (string, error) {
	key := objectKey(kind, s.newID(), filename)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

// Link returns a presigned GET URL for ref, valid for LinkTTL.
func (s *S3Store) Link(ctx context.Context, ref string) (string, error) {
	key, err := s.keyOf(ref)
	if err != nil {
		return "", err
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String("inline"),
	}, s3.WithPresignExpires(LinkTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// keyOf extracts the object key from a reference in this store's bucket.
func (s *S3Store) keyOf(ref string) (string, error) {
	rest, ok := strings.CutPrefix(ref, "s3://")
	if !ok {
		return "", fmt.Errorf("not an s3 reference: %q", ref)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket != s.bucket || key == "" {
		return "", fmt.Errorf("reference %q is outside bucket %s", ref, s.bucket)
	}
	return key, nil
}

func objectKey(kind pipeline.FileKind, id, filename string) string {
	return string(kind) + "/" + id + "-" + safeName(filename)
}

// safeName keeps the base name and replaces anything outside [A-Za-z0-9._-].
func safeName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
