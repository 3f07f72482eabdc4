package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/hasker/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	put     *s3.PutObjectInput
	body    []byte
	deleted *s3.DeleteObjectInput
	err     error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = in
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresign struct {
	key string
	err error
}

func (f *fakePresign) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = aws.ToString(in.Key)
	return &v4.PresignedHTTPRequest{URL: "https://bucket.example/" + f.key + "?sig=1"}, nil
}

func TestS3Storage_Operations(t *testing.T) {
	ctx := context.Background()
	objs := &fakeObjects{}
	pre := &fakePresign{}
	s := &S3Storage{bucket: "hasker", client: objs, presign: pre}

	require.NoError(t, s.Put(ctx, "avatars/a.png", []byte("img"), "image/png"))
	assert.Equal(t, "hasker", aws.ToString(objs.put.Bucket))
	assert.Equal(t, "avatars/a.png", aws.ToString(objs.put.Key))
	assert.Equal(t, "image/png", aws.ToString(objs.put.ContentType))
	assert.Equal(t, []byte("img"), objs.body)

	u, err := s.URL(ctx, "avatars/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example/avatars/a.png?sig=1", u)

	require.NoError(t, s.Delete(ctx, "avatars/a.png"))
	assert.Equal(t, "avatars/a.png", aws.ToString(objs.deleted.Key))
}

func TestS3Storage_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	s := &S3Storage{bucket: "b", client: &fakeObjects{err: boom}, presign: &fakePresign{err: boom}}

	assert.ErrorIs(t, s.Put(ctx, "k", nil, ""), boom)
	assert.ErrorIs(t, s.Delete(ctx, "k"), boom)
	_, err := s.URL(ctx, "k")
	assert.ErrorIs(t, err, boom)
}

func TestNewS3Storage_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	defer func() { loadDefaultAWSConfig = orig }()

	_, err := NewS3Storage(context.Background(), &config.Config{S3Region: "us-east-1"})
	assert.Error(t, err)
}

func TestNewS3Storage_BuildsClient(t *testing.T) {
	var gotEndpoint string
	orig := newS3ClientFromConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		o := s3.Options{}
		for _, fn := range optFns {
			fn(&o)
		}
		gotEndpoint = aws.ToString(o.BaseEndpoint)
		return s3.NewFromConfig(cfg, optFns...)
	}
	defer func() { newS3ClientFromConfig = orig }()

	s, err := NewS3Storage(context.Background(), &config.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "u",
		S3RootPassword: "p",
		S3Bucket:       "hasker",
		S3BaseEndpoint: "http://127.0.0.1:9000/",
	})
	require.NoError(t, err)
	assert.Equal(t, "hasker", s.bucket)
	assert.Equal(t, "http://127.0.0.1:9000/", gotEndpoint)
}
