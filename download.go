package b2

import (
	"context"
	"io"
	"time"

	"github.com/cplaiasu/b2/b2types"
	"github.com/cplaiasu/b2/errors"
	"github.com/cplaiasu/b2/internal/b2api"
	"github.com/cplaiasu/b2/internal/operations/download"
)

// DownloadFileByName downloads the newest version of a file by bucket and
// file name. The caller owns closing the returned Body.
func (c *Client) DownloadFileByName(ctx context.Context, bucketName, fileName string, opts ...b2types.DownloadOption) (*b2types.Download, error) {
	cfg := b2types.DownloadOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	out, err := c.api.DownloadFileByName(ctx, &b2api.DownloadByNameInput{
		BucketName: bucketName,
		FileName:   fileName,
		Range:      cfg.RangeSpec,
		SSEHeaders: sseHeaders(cfg.SSE),
	})
	if err != nil {
		return nil, errors.NewBucketError("downloadFileByName", bucketName, err)
	}
	return download.FromOutput(out)
}

// DownloadFileByID downloads a specific file version by ID. The caller owns
// closing the returned Body.
func (c *Client) DownloadFileByID(ctx context.Context, fileID string, opts ...b2types.DownloadOption) (*b2types.Download, error) {
	cfg := b2types.DownloadOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	out, err := c.api.DownloadFileByID(ctx, &b2api.DownloadByIDInput{
		FileID:     fileID,
		Range:      cfg.RangeSpec,
		SSEHeaders: sseHeaders(cfg.SSE),
	})
	if err != nil {
		return nil, errors.NewFileError("downloadFileByID", fileID, err)
	}
	return download.FromOutput(out)
}

// DownloadFileTo downloads a file by bucket and name and writes it to path
// on the client's filesystem. Returns the file descriptor from the
// response headers.
func (c *Client) DownloadFileTo(ctx context.Context, bucketName, fileName, path string, opts ...b2types.DownloadOption) (*b2types.File, error) {
	dl, err := c.DownloadFileByName(ctx, bucketName, fileName, opts...)
	if err != nil {
		return nil, err
	}
	defer dl.Body.Close()

	f, err := c.fs.Create(path)
	if err != nil {
		return nil, errors.NewBucketError("downloadFileTo", bucketName, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, dl.Body); err != nil {
		return nil, errors.NewBucketError("downloadFileTo", bucketName, err)
	}
	file := dl.File
	return &file, nil
}

// GetDownloadAuthorization issues a token that authorizes downloads of
// files under fileNamePrefix for the given duration, for handing to
// clients that hold no account credentials.
func (c *Client) GetDownloadAuthorization(ctx context.Context, bucketID, fileNamePrefix string, validFor time.Duration) (*b2types.DownloadAuthorization, error) {
	auth, err := c.api.GetDownloadAuthorization(ctx, &b2api.GetDownloadAuthorizationInput{
		BucketID:               bucketID,
		FileNamePrefix:         fileNamePrefix,
		ValidDurationInSeconds: int64(validFor / time.Second),
	})
	if err != nil {
		return nil, errors.NewBucketError("getDownloadAuthorization", bucketID, err)
	}
	return auth, nil
}
