package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
)

func TestLocalArtifactStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "call_3_result.txt")
	store := NewLocalArtifactStore()

	found, err := store.Exists(context.Background(), path)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, os.WriteFile(path, []byte("insights"), 0644))
	found, err = store.Exists(context.Background(), path)
	require.NoError(t, err)
	require.True(t, found)
}

type fakeHeadObject struct {
	objects map[string]bool
	err     error
	gotKey  string
}

func (f *fakeHeadObject) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.gotKey = aws.ToString(params.Key)
	if f.err != nil {
		return nil, f.err
	}
	if !f.objects[f.gotKey] {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3ArtifactStore(t *testing.T) {
	client := &fakeHeadObject{objects: map[string]bool{
		"exported_results/call_3_result.txt": true,
	}}
	store := NewS3ArtifactStoreWithClient(client, "insights")

	found, err := store.Exists(context.Background(), "./exported_results/call_3_result.txt")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "exported_results/call_3_result.txt", client.gotKey)

	found, err = store.Exists(context.Background(), "exported_results/other.txt")
	require.NoError(t, err)
	require.False(t, found)
}

func TestS3ArtifactStorePropagatesErrors(t *testing.T) {
	store := NewS3ArtifactStoreWithClient(&fakeHeadObject{err: errors.New("access denied")}, "insights")

	_, err := store.Exists(context.Background(), "result.txt")
	require.ErrorContains(t, err, "access denied")
	require.ErrorContains(t, err, "s3://insights/result.txt")
}

func TestObjectKey(t *testing.T) {
	require.Equal(t, "a/b.txt", ObjectKey("/a/b.txt"))
	require.Equal(t, "a/b.txt", ObjectKey("a/./b.txt"))
}

func TestNewArtifactStoreRejectsUnknownType(t *testing.T) {
	_, err := NewArtifactStore(context.Background(), "ftp", "")
	require.Error(t, err)

	store, err := NewArtifactStore(context.Background(), "local", "")
	require.NoError(t, err)
	require.IsType(t, &LocalArtifactStore{}, store)
}
