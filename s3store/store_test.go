package s3store_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sagarc03/cannedreports"
	"github.com/sagarc03/cannedreports/s3store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAPI is a mock implementation of s3store.API
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadBucketOutput)
	return out, args.Error(1)
}

func (m *MockAPI) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CreateBucketOutput)
	return out, args.Error(1)
}

func (m *MockAPI) PutBucketVersioning(ctx context.Context, in *s3.PutBucketVersioningInput, _ ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutBucketVersioningOutput)
	return out, args.Error(1)
}

func (m *MockAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *MockAPI) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *MockAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *MockAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func (m *MockAPI) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

func (m *MockAPI) ListObjectVersions(ctx context.Context, in *s3.ListObjectVersionsInput, _ ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListObjectVersionsOutput)
	return out, args.Error(1)
}

const bucket = "canned-reports"

func newStore(t *testing.T, region string) (*s3store.Store, *MockAPI) {
	t.Helper()
	api := new(MockAPI)
	t.Cleanup(func() { api.AssertExpectations(t) })
	return s3store.NewWithClient(api, bucket, region), api
}

func version(key, id string) types.ObjectVersion {
	return types.ObjectVersion{Key: aws.String(key), VersionId: aws.String(id)}
}

func TestStore_EnsureCollection(t *testing.T) {
	t.Run("existing bucket only enables versioning", func(t *testing.T) {
		store, api := newStore(t, "us-east-1")
		api.On("HeadBucket", mock.Anything, mock.Anything).Return(&s3.HeadBucketOutput{}, nil)
		api.On("PutBucketVersioning", mock.Anything, mock.MatchedBy(func(in *s3.PutBucketVersioningInput) bool {
			return in.VersioningConfiguration.Status == types.BucketVersioningStatusEnabled
		})).Return(&s3.PutBucketVersioningOutput{}, nil)

		require.NoError(t, store.EnsureCollection(context.Background()))
	})

	t.Run("missing bucket is created in region", func(t *testing.T) {
		store, api := newStore(t, "eu-west-1")
		api.On("HeadBucket", mock.Anything, mock.Anything).Return(nil, &types.NotFound{})
		api.On("CreateBucket", mock.Anything, mock.MatchedBy(func(in *s3.CreateBucketInput) bool {
			return aws.ToString(in.Bucket) == bucket &&
				in.CreateBucketConfiguration.LocationConstraint == types.BucketLocationConstraint("eu-west-1")
		})).Return(&s3.CreateBucketOutput{}, nil)
		api.On("PutBucketVersioning", mock.Anything, mock.Anything).Return(&s3.PutBucketVersioningOutput{}, nil)

		require.NoError(t, store.EnsureCollection(context.Background()))
	})

	t.Run("access denied is reported", func(t *testing.T) {
		store, api := newStore(t, "us-east-1")
		api.On("HeadBucket", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "AccessDenied"})

		err := store.EnsureCollection(context.Background())
		assert.ErrorContains(t, err, "AccessDenied")
	})
}

func TestStore_PutObject(t *testing.T) {
	t.Run("known length streams the body", func(t *testing.T) {
		store, api := newStore(t, "")
		api.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return aws.ToString(in.Key) == "r1" &&
				aws.ToInt64(in.ContentLength) == 5 &&
				aws.ToString(in.ContentType) == "text/csv" &&
				in.Metadata[cannedreports.MetaKeyName] == "Q3+%C3%A9t%C3%A9"
		})).Return(&s3.PutObjectOutput{VersionId: aws.String("v1")}, nil)

		res, err := store.PutObject(context.Background(), "r1", strings.NewReader("a,b,c"), cannedreports.ObjectMetadata{
			ContentType:   "text/csv",
			ContentLength: 5,
			User:          map[string]string{cannedreports.MetaKeyName: "Q3 été"},
		})
		require.NoError(t, err)
		assert.Equal(t, cannedreports.PutResult{VersionID: "v1", Size: 5}, res)
	})

	t.Run("unknown length is buffered", func(t *testing.T) {
		store, api := newStore(t, "")
		api.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return aws.ToInt64(in.ContentLength) == 7 && in.ContentType == nil
		})).Return(&s3.PutObjectOutput{VersionId: aws.String("v2")}, nil)

		res, err := store.PutObject(context.Background(), "r1", strings.NewReader("1234567"), cannedreports.ObjectMetadata{})
		require.NoError(t, err)
		assert.Equal(t, int64(7), res.Size)
	})
}

func TestStore_GetObjectMetadata(t *testing.T) {
	store, api := newStore(t, "")
	api.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return aws.ToString(in.Key) == "r1" && in.VersionId == nil
	})).Return(&s3.HeadObjectOutput{
		ContentType:   aws.String("text/csv"),
		ContentLength: aws.Int64(5),
		Metadata:      map[string]string{cannedreports.MetaKeyName: "Q3+%C3%A9t%C3%A9"},
	}, nil)
	api.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return aws.ToString(in.Key) == "missing"
	})).Return(nil, &types.NotFound{})
	api.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return aws.ToString(in.VersionId) == "gone"
	})).Return(nil, &smithy.GenericAPIError{Code: "NoSuchVersion"})

	ctx := context.Background()

	meta, err := store.GetObjectMetadata(ctx, "r1", "")
	require.NoError(t, err)
	assert.Equal(t, "Q3 été", meta.Name())
	assert.Equal(t, int64(5), meta.ContentLength)

	_, err = store.GetObjectMetadata(ctx, "missing", "")
	assert.ErrorIs(t, err, cannedreports.ErrNotFound)

	_, err = store.GetObjectMetadata(ctx, "r1", "gone")
	assert.ErrorIs(t, err, cannedreports.ErrNotFound)
}

func TestStore_GetObject(t *testing.T) {
	store, api := newStore(t, "")
	api.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.VersionId) == "v1"
	})).Return(&s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader("hello")),
		ContentLength: aws.Int64(5),
		VersionId:     aws.String("v1"),
	}, nil)
	api.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.VersionId) == "v2"
	})).Return(nil, &types.NoSuchKey{})

	obj, err := store.GetObject(context.Background(), "r1", "v1")
	require.NoError(t, err)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "v1", obj.VersionID)

	_, err = store.GetObject(context.Background(), "r1", "v2")
	assert.ErrorIs(t, err, cannedreports.ErrNotFound)
}

func TestStore_DeleteObject(t *testing.T) {
	store, api := newStore(t, "")
	api.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return in.VersionId == nil
	})).Return(&s3.DeleteObjectOutput{DeleteMarker: aws.Bool(true)}, nil).Once()
	api.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return aws.ToString(in.VersionId) == "v1"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	require.NoError(t, store.DeleteObject(context.Background(), "r1", ""))
	require.NoError(t, store.DeleteObject(context.Background(), "r1", "v1"))
}

func TestStore_ListVersions(t *testing.T) {
	t.Run("filters prefix matches and orders oldest first", func(t *testing.T) {
		store, api := newStore(t, "")
		api.On("ListObjectVersions", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectVersionsInput) bool {
			return aws.ToString(in.Prefix) == "r1" && aws.ToInt32(in.MaxKeys) == cannedreports.MaxVersionListing
		})).Return(&s3.ListObjectVersionsOutput{
			Versions: []types.ObjectVersion{
				version("r1", "v3"),
				version("r1", "v2"),
				version("r1", "v1"),
				version("r10", "x1"),
			},
		}, nil)

		versions, err := store.ListVersions(context.Background(), "r1")
		require.NoError(t, err)
		assert.Equal(t, []string{"v1", "v2", "v3"}, versions)
	})

	t.Run("follows truncation within the key", func(t *testing.T) {
		store, api := newStore(t, "")
		api.On("ListObjectVersions", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectVersionsInput) bool {
			return in.KeyMarker == nil
		})).Return(&s3.ListObjectVersionsOutput{
			Versions:            []types.ObjectVersion{version("r1", "v3")},
			IsTruncated:         aws.Bool(true),
			NextKeyMarker:       aws.String("r1"),
			NextVersionIdMarker: aws.String("v3"),
		}, nil).Once()
		api.On("ListObjectVersions", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectVersionsInput) bool {
			return aws.ToString(in.VersionIdMarker) == "v3"
		})).Return(&s3.ListObjectVersionsOutput{
			Versions: []types.ObjectVersion{version("r1", "v2"), version("r1", "v1")},
		}, nil).Once()

		versions, err := store.ListVersions(context.Background(), "r1")
		require.NoError(t, err)
		assert.Equal(t, []string{"v1", "v2", "v3"}, versions)
	})

	t.Run("failure is wrapped", func(t *testing.T) {
		store, api := newStore(t, "")
		api.On("ListObjectVersions", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

		_, err := store.ListVersions(context.Background(), "r1")
		assert.ErrorContains(t, err, "list versions: boom")
	})
}

func TestStore_ListKeys(t *testing.T) {
	store, api := newStore(t, "")
	api.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return in.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		Contents:              []types.Object{{Key: aws.String("a")}},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("page2"),
	}, nil).Once()
	api.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.ContinuationToken) == "page2"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{{Key: aws.String("b")}, {Key: aws.String("raced")}},
	}, nil).Once()

	head := func(key, name string) {
		api.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
			return aws.ToString(in.Key) == key
		})).Return(&s3.HeadObjectOutput{
			ContentLength: aws.Int64(1),
			Metadata:      map[string]string{cannedreports.MetaKeyName: name},
		}, nil)
	}
	head("a", "Alpha")
	head("b", "Beta")
	api.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return aws.ToString(in.Key) == "raced"
	})).Return(nil, &types.NotFound{})

	keys, err := store.ListKeys(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "Alpha", keys[0].Metadata.Name())
	assert.Equal(t, "b", keys[1].Key)
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := s3store.New(context.Background(), s3store.Config{})
	assert.Error(t, err)
}

func TestNew_CustomEndpoint(t *testing.T) {
	store, err := s3store.New(context.Background(), s3store.Config{
		Bucket:          bucket,
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	require.NoError(t, err)
	assert.NotNil(t, store)
}
