package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Options configures the S3-compatible client.
type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client builds a path-style client, which also works against MinIO.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// S3Store maps directories onto key prefixes inside one bucket.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store creates a store writing below prefix (may be empty) in bucket.
func NewS3Store(client S3API, bucket, prefix string) (*S3Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	clean, err := CleanDir(prefix)
	if err != nil {
		return nil, fmt.Errorf("s3 prefix: %w", err)
	}
	return &S3Store{client: client, bucket: bucket, prefix: clean}, nil
}

func (s *S3Store) key(dir, name string) (string, error) {
	if !ValidName(name) {
		return "", ErrInvalidKey
	}
	clean, err := CleanDir(dir)
	if err != nil {
		return "", err
	}
	return JoinKey(s.prefix, JoinKey(clean, name)), nil
}

func (s *S3Store) dirPrefix(dir string) (string, error) {
	clean, err := CleanDir(dir)
	if err != nil {
		return "", err
	}
	p := JoinKey(s.prefix, clean)
	if p != "" {
		p += "/"
	}
	return p, nil
}

// EnsureDir only validates dir; object stores have no directories.
func (s *S3Store) EnsureDir(ctx context.Context, dir string) error {
	_, err := CleanDir(dir)
	return err
}

func (s *S3Store) Save(ctx context.Context, dir, name string, r io.Reader) (int64, error) {
	key, err := s.key(dir, name)
	if err != nil {
		return 0, err
	}
	// Buffer so a failed or oversized stream never reaches the bucket and the SDK gets a seekable body
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return n, err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(n),
	})
	if err != nil {
		return n, fmt.Errorf("put object %s: %w", key, err)
	}
	return n, nil
}

func (s *S3Store) List(ctx context.Context, dir string) ([]Object, error) {
	prefix, err := s.dirPrefix(dir)
	if err != nil {
		return nil, err
	}
	objects := []Object{}
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if !ValidName(name) {
				continue
			}
			modified := aws.ToTime(obj.LastModified)
			objects = append(objects, Object{
				Name:       name,
				Size:       aws.ToInt64(obj.Size),
				CreatedAt:  modified,
				ModifiedAt: modified,
			})
		}
	}
	return objects, nil
}

func (s *S3Store) Stat(ctx context.Context, dir, name string) (Object, error) {
	key, err := s.key(dir, name)
	if err != nil {
		return Object{}, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return Object{}, ErrNotExist
		}
		return Object{}, fmt.Errorf("head object %s: %w", key, err)
	}
	return headObject(name, aws.ToInt64(out.ContentLength), out.LastModified), nil
}

// Move copies then deletes; S3 has no rename.
func (s *S3Store) Move(ctx context.Context, dir, from, to string) error {
	src, err := s.key(dir, from)
	if err != nil {
		return err
	}
	dst, err := s.key(dir, to)
	if err != nil {
		return err
	}
	source := (&url.URL{Path: s.bucket + "/" + src}).EscapedPath()
	if _, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dst),
		CopySource: aws.String(source),
	}); err != nil {
		if isS3NotFound(err) {
			return ErrNotExist
		}
		return fmt.Errorf("copy object %s: %w", src, err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(src),
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", src, err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, dir, name string) error {
	if _, err := s.Stat(ctx, dir, name); err != nil {
		return err
	}
	key, _ := s.key(dir, name)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	clean, err := CleanDir(key)
	if err != nil || clean == "" {
		return nil, Object{}, ErrInvalidKey
	}
	full := JoinKey(s.prefix, clean)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(full),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, Object{}, ErrNotExist
		}
		return nil, Object{}, fmt.Errorf("get object %s: %w", full, err)
	}
	name := clean[strings.LastIndex(clean, "/")+1:]
	return out.Body, headObject(name, aws.ToInt64(out.ContentLength), out.LastModified), nil
}

func headObject(name string, size int64, lastModified *time.Time) Object {
	modified := aws.ToTime(lastModified)
	return Object{Name: name, Size: size, CreatedAt: modified, ModifiedAt: modified}
}

func isS3NotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}
