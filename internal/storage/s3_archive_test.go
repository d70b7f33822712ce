package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/diogopython/Nuvemhost/internal/config"
)

type fakeObjects struct {
	putKey  string
	putBody []byte
	delKey  string
	err     error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.putKey = aws.ToString(in.Key)
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.putBody = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.delKey = aws.ToString(in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestArchiveStorePutDelete(t *testing.T) {
	fake := &fakeObjects{}
	s := &ArchiveStore{client: fake, bucket: "sites"}
	data := []byte("PK\x03\x04 fake zip")

	require.NoError(t, s.Put(context.Background(), "abc", bytes.NewReader(data), int64(len(data))))
	assert.Equal(t, "archives/abc.zip", fake.putKey)
	assert.Equal(t, data, fake.putBody)

	require.NoError(t, s.Delete(context.Background(), "abc"))
	assert.Equal(t, "archives/abc.zip", fake.delKey)
}

func TestArchiveStoreErrorsWrapped(t *testing.T) {
	boom := errors.New("boom")
	s := &ArchiveStore{client: &fakeObjects{err: boom}, bucket: "sites"}

	err := s.Put(context.Background(), "abc", bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.Delete(context.Background(), "abc"), boom)
}

func TestNewS3ArchiveStoreAppliesOptions(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(_ context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "sa-east-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}
	var opts s3.Options
	newS3ClientFromConfig = func(_ aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	s, err := NewS3ArchiveStore(context.Background(), appconfig.ArchiveStoreConfig{
		Bucket:       "sites",
		Region:       "sa-east-1",
		Endpoint:     "http://127.0.0.1:9000",
		AccessKey:    "minio",
		SecretKey:    "minio123",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "sites", s.bucket)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3ArchiveStoreLoadError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}

	_, err := NewS3ArchiveStore(context.Background(), appconfig.ArchiveStoreConfig{Bucket: "b"})
	assert.Error(t, err)
}
