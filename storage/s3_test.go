package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory bucket implementing S3API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = b
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(b))), LastModified: aws.Time(time.Now())}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(b)),
		ContentLength: aws.Int64(int64(len(b))),
		LastModified:  aws.Time(time.Now()),
	}, nil
}

func (f *fakeS3) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	source, err := url.PathUnescape(aws.ToString(in.CopySource))
	if err != nil {
		return nil, err
	}
	_, key, _ := strings.Cut(source, "/")
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	f.objects[aws.ToString(in.Key)] = b
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := aws.ToString(in.Prefix)
	out := &s3.ListObjectsV2Output{}
	for k, b := range f.objects {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok || strings.Contains(rest, "/") {
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(b))),
			LastModified: aws.Time(time.Now()),
		})
	}
	return out, nil
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(newFakeS3(), " ", "")
	assert.Error(t, err)
	_, err = NewS3Store(newFakeS3(), "media", "../up")
	assert.Error(t, err)
}

func TestS3StoreRoundTrip(t *testing.T) {
	fake := newFakeS3()
	s, err := NewS3Store(fake, "media", "site")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.EnsureDir(ctx, "blog"))
	n, err := s.Save(ctx, "blog", "a.png", strings.NewReader("abcd"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Contains(t, fake.objects, "site/blog/a.png")

	fake.objects["site/blog/nested/deep.png"] = []byte("x")
	objs, err := s.List(ctx, "blog")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, names(objs))

	obj, err := s.Stat(ctx, "blog", "a.png")
	require.NoError(t, err)
	assert.Equal(t, int64(4), obj.Size)

	require.NoError(t, s.Move(ctx, "blog", "a.png", "b.png"))
	_, err = s.Stat(ctx, "blog", "a.png")
	assert.ErrorIs(t, err, ErrNotExist)

	rc, obj, err := s.Open(ctx, "blog/b.png")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "abcd", string(b))
	assert.Equal(t, "b.png", obj.Name)

	require.NoError(t, s.Delete(ctx, "blog", "b.png"))
	assert.ErrorIs(t, s.Delete(ctx, "blog", "b.png"), ErrNotExist)
	_, _, err = s.Open(ctx, "blog/b.png")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestS3StoreFailedStreamIsNotUploaded(t *testing.T) {
	fake := newFakeS3()
	s, err := NewS3Store(fake, "media", "")
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "blog", "a.png", &failingReader{})
	require.Error(t, err)
	assert.Equal(t, 0, fake.puts)
}

func TestS3StoreListEmptyPrefix(t *testing.T) {
	s, err := NewS3Store(newFakeS3(), "media", "")
	require.NoError(t, err)
	objs, err := s.List(context.Background(), "avatars")
	require.NoError(t, err)
	assert.NotNil(t, objs)
	assert.Empty(t, objs)
}
