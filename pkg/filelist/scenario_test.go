package filelist

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/bucketdeck/pkg/provider"
	"github.com/3leaps/bucketdeck/pkg/provider/s3"
)

type photosBucket struct {
	deleted []string
}

func (b *photosBucket) ListObjectsV2(ctx context.Context, in *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	newer := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	older := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var out []types.Object
	for _, o := range []types.Object{
		{Key: aws.String("2024/"), Size: aws.Int64(0), LastModified: aws.Time(older)},
		{Key: aws.String("2024/b.txt"), Size: aws.Int64(5), LastModified: aws.Time(older)},
		{Key: aws.String("2024/a.png"), Size: aws.Int64(7), LastModified: aws.Time(newer)},
	} {
		if !containsKey(b.deleted, aws.ToString(o.Key)) {
			out = append(out, o)
		}
	}
	return &awss3.ListObjectsV2Output{Contents: out}, nil
}

func (b *photosBucket) DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	b.deleted = append(b.deleted, aws.ToString(in.Key))
	return &awss3.DeleteObjectOutput{}, nil
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func TestScenario_PhotosBucket(t *testing.T) {
	bucket := &photosBucket{}
	f := FactoryFunc(func(cfg provider.StorageConfig) (provider.Provider, error) {
		return s3.NewWithClient(s3.ConfigFrom(cfg, nil), bucket)
	})
	m := newManager(t, f, WithConfirmer(AllowAll))

	cfg := provider.StorageConfig{
		Type:     provider.ProviderS3,
		Bucket:   "photos",
		Endpoint: "https://s3.amazonaws.com",
		Path:     "2024/",
	}
	require.NoError(t, m.SetConfig(context.Background(), cfg))

	snap := m.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "2024/a.png", snap.Items[0].Key)
	assert.True(t, snap.Items[0].IsImage)
	assert.Equal(t, "https://photos.s3.amazonaws.com/2024/a.png", snap.Items[0].URL)
	assert.Equal(t, "2024/b.txt", snap.Items[1].Key)
	assert.False(t, snap.Items[1].IsImage)

	require.NoError(t, m.DeleteFile(context.Background(), snap.Items[0]))
	assert.Equal(t, []string{"2024/a.png"}, bucket.deleted)
	assert.Equal(t, []string{"2024/b.txt"}, keysOf(m.Snapshot().Items))

	require.NoError(t, m.FetchFiles(context.Background()))
	assert.Equal(t, []string{"2024/b.txt"}, keysOf(m.Snapshot().Items))
}
