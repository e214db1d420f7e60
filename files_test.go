package b2

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cplaiasu/b2/b2types"
	"github.com/cplaiasu/b2/errors"
	"github.com/cplaiasu/b2/internal/b2api"
	"github.com/cplaiasu/b2/internal/testutil"
)

func TestUploadDownloadRoundTrip(t *testing.T) {
	client, fake := newFakeClient(t)
	ctx := context.Background()
	bucket := fake.Bucket("round-trip")

	content := []byte("four score and seven years ago")
	info := b2types.CustomInfo{}
	require.NoError(t, info.Set("author", "ana maria"))

	file, err := client.UploadFile(ctx, bucket.BucketID, "docs/speech.txt", bytes.NewReader(content),
		WithContentType("text/plain"),
		WithCustomInfo(info),
	)
	require.NoError(t, err)
	assert.Equal(t, "docs/speech.txt", file.FileName)
	assert.Equal(t, int64(len(content)), file.ContentLength)
	assert.Equal(t, testutil.SHA1Hex(content), file.ContentSha1)

	dl, err := client.DownloadFileByName(ctx, "round-trip", "docs/speech.txt")
	require.NoError(t, err)
	defer dl.Body.Close()

	got, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, "docs/speech.txt", dl.File.FileName)
	assert.Equal(t, "text/plain", dl.File.ContentType)

	author, ok := dl.File.FileInfo.Get("author")
	assert.True(t, ok)
	assert.Equal(t, "ana maria", author)

	byID, err := client.DownloadFileByID(ctx, file.FileID)
	require.NoError(t, err)
	defer byID.Body.Close()
	got, err = io.ReadAll(byID.Body)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDownloadRange(t *testing.T) {
	client, fake := newFakeClient(t)
	ctx := context.Background()
	bucket := fake.Bucket("ranged")

	_, err := client.UploadFile(ctx, bucket.BucketID, "lyrics.txt",
		strings.NewReader("hello world of ranges"))
	require.NoError(t, err)

	dl, err := client.DownloadFileByName(ctx, "ranged", "lyrics.txt",
		WithRange("bytes=6-10"))
	require.NoError(t, err)
	defer dl.Body.Close()

	got, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "world", string(got))
}

func TestDownloadMissingFile(t *testing.T) {
	client, fake := newFakeClient(t)
	fake.Bucket("empty-bucket")

	_, err := client.DownloadFileByName(context.Background(), "empty-bucket", "nope.txt")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestUploadFileValidatesNameLocally(t *testing.T) {
	client, fake := newFakeClient(t)

	_, err := client.UploadFile(context.Background(), "bkt-1", "/leading-slash.txt",
		strings.NewReader("x"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
	assert.Equal(t, 0, fake.AuthCalls)
}

func TestUploadFileSurvivesExpiredGrant(t *testing.T) {
	client, fake := newFakeClient(t)
	ctx := context.Background()
	bucket := fake.Bucket("flaky-grants")

	content := []byte("retried past an expired upload grant")
	fake.ExpireGrantsOnce = true

	file, err := client.UploadFile(ctx, bucket.BucketID, "resilient.txt", bytes.NewReader(content))
	require.NoError(t, err)

	stored, ok := fake.FileContent(file.FileID)
	require.True(t, ok)
	assert.Equal(t, content, stored)
}

func TestUploadFileFromDetectsContentType(t *testing.T) {
	client, fake := newFakeClient(t)
	ctx := context.Background()
	bucket := fake.Bucket("local-files")

	memfs := billy.NewInMemoryFS()
	pngHeader := append([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, make([]byte, 64)...)
	require.NoError(t, memfs.WriteFile("/photos/pixel.png", pngHeader, 0o644))
	client.SetFilesystem(memfs)

	file, err := client.UploadFileFrom(ctx, bucket.BucketID, "photos/pixel.png", "/photos/pixel.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", file.ContentType)

	stored, ok := fake.FileContent(file.FileID)
	require.True(t, ok)
	assert.Equal(t, pngHeader, stored)
}

func TestUploadFileFromMissingPath(t *testing.T) {
	client, fake := newFakeClient(t)
	client.SetFilesystem(billy.NewInMemoryFS())
	fake.Bucket("local-files")

	_, err := client.UploadFileFrom(context.Background(), "bkt-1", "gone.txt", "/gone.txt")
	require.Error(t, err)
}

func TestListFileNamesPagination(t *testing.T) {
	client, fake := newFakeClient(t)
	ctx := context.Background()
	bucket := fake.Bucket("listing")

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		_, err := client.UploadFile(ctx, bucket.BucketID, name, strings.NewReader(name))
		require.NoError(t, err)
	}

	files, next, err := client.ListFileNames(ctx, bucket.BucketID, WithMaxFileCount(2))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].FileName)
	assert.Equal(t, "b.txt", files[1].FileName)
	assert.Equal(t, "c.txt", next)

	files, next, err = client.ListFileNames(ctx, bucket.BucketID,
		WithMaxFileCount(2), WithStartFileName(next))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "c.txt", files[0].FileName)
	assert.Empty(t, next)
}

func TestListFileNamesPagerDrainsAllPages(t *testing.T) {
	client, fake := newFakeClient(t)
	ctx := context.Background()
	bucket := fake.Bucket("paged")

	want := []string{"one.txt", "three.txt", "two.txt"}
	for _, name := range want {
		_, err := client.UploadFile(ctx, bucket.BucketID, name, strings.NewReader(name))
		require.NoError(t, err)
	}

	pager := client.ListFileNamesPager(bucket.BucketID, WithMaxFileCount(1))
	all, err := pager.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, name := range want {
		assert.Equal(t, name, all[i].FileName)
	}
	assert.True(t, pager.Done())
}

func TestListFileNamesPagerWalksLargeListing(t *testing.T) {
	gen := testutil.NewTestDataGenerator(11)
	bucketID := "bkt-" + gen.BucketName()
	listing := gen.GenerateFileList(7, bucketID, "logs/")

	mock := &testutil.MockB2API{
		ListFileNamesFunc: func(_ context.Context, in *b2api.ListFileNamesInput) (*b2api.ListFileNamesOutput, error) {
			assert.Equal(t, bucketID, in.BucketID)
			start := 0
			for start < len(listing) && listing[start].FileName < in.StartFileName.ValueOrZero() {
				start++
			}
			end := start + in.MaxFileCount
			if end > len(listing) {
				end = len(listing)
			}
			out := &b2api.ListFileNamesOutput{Files: listing[start:end]}
			if end < len(listing) {
				out.NextFileName = null.StringFrom(listing[end].FileName)
			}
			return out, nil
		},
	}
	client := NewWithAPI(mock)

	pager := client.ListFileNamesPager(bucketID, WithMaxFileCount(3))
	all, err := pager.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, len(listing))
	for i, file := range all {
		assert.Equal(t, listing[i].FileName, file.FileName)
		assert.Equal(t, listing[i].ContentSha1, file.ContentSha1)
	}
}

func TestHideAndDeleteFileVersion(t *testing.T) {
	client, fake := newFakeClient(t)
	ctx := context.Background()
	bucket := fake.Bucket("mutations")

	file, err := client.UploadFile(ctx, bucket.BucketID, "doomed.txt", strings.NewReader("bye"))
	require.NoError(t, err)

	hidden, err := client.HideFile(ctx, bucket.BucketID, "doomed.txt")
	require.NoError(t, err)
	assert.Equal(t, b2types.ActionHide, hidden.Action)

	require.NoError(t, client.DeleteFileVersion(ctx, "doomed.txt", file.FileID))

	_, err = client.GetFileInfo(ctx, file.FileID)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDownloadFileTo(t *testing.T) {
	client, fake := newFakeClient(t)
	ctx := context.Background()
	bucket := fake.Bucket("to-disk")

	memfs := billy.NewInMemoryFS()
	client.SetFilesystem(memfs)

	content := []byte("saved to the local filesystem")
	_, err := client.UploadFile(ctx, bucket.BucketID, "notes.txt", bytes.NewReader(content))
	require.NoError(t, err)

	file, err := client.DownloadFileTo(ctx, "to-disk", "notes.txt", "/downloads/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", file.FileName)

	got, err := memfs.ReadFile("/downloads/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestCopyFileMetadataDirective(t *testing.T) {
	var got *b2api.CopyFileInput
	mock := &testutil.MockB2API{
		CopyFileFunc: func(_ context.Context, in *b2api.CopyFileInput) (*b2types.File, error) {
			got = in
			return &b2types.File{FileID: "copy-1", FileName: in.FileName}, nil
		},
	}
	client := NewWithAPI(mock)
	ctx := context.Background()

	_, err := client.CopyFile(ctx, "src-1", "plain-copy.txt")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.MetadataDirective, "plain copies keep source metadata")

	info := b2types.CustomInfo{}
	require.NoError(t, info.Set("origin", "copy"))
	_, err = client.CopyFile(ctx, "src-1", "replaced-copy.txt",
		WithCopyMetadata("text/plain", info),
		WithCopyDestinationBucket("bkt-dest"))
	require.NoError(t, err)
	assert.Equal(t, "REPLACE", got.MetadataDirective)
	assert.Equal(t, "text/plain", got.ContentType.ValueOrZero())
	assert.Equal(t, "bkt-dest", got.DestinationBucketID.ValueOrZero())
	assert.Equal(t, map[string]string{"origin": "copy"}, got.FileInfo)
}

func TestGetDownloadAuthorization(t *testing.T) {
	client, fake := newFakeClient(t)
	bucket := fake.Bucket("shared")

	auth, err := client.GetDownloadAuthorization(context.Background(), bucket.BucketID, "public/", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, bucket.BucketID, auth.BucketID)
	assert.Equal(t, "public/", auth.FileNamePrefix)
	assert.NotEmpty(t, auth.AuthorizationToken)
}
