package b2

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"github.com/guregu/null/v6"

	"github.com/cplaiasu/b2/b2types"
	"github.com/cplaiasu/b2/errors"
	"github.com/cplaiasu/b2/internal/b2api"
	"github.com/cplaiasu/b2/internal/operations/largefile"
)

// LargeFile is an in-progress large file upload. It records the parts the
// service acknowledged and finishes with their checksums in part order; a
// failed part upload leaves the recorded list untouched. LargeFile is safe
// for concurrent part uploads.
type LargeFile struct {
	session *largefile.Session
}

// StartLargeFile begins a large file upload in the bucket. Without
// WithContentType the service picks a type when the file is finished.
func (c *Client) StartLargeFile(ctx context.Context, bucketID, fileName string, opts ...b2types.UploadOption) (*LargeFile, error) {
	cfg := b2types.UploadOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	in := largefile.StartInput{
		BucketID:    bucketID,
		FileName:    fileName,
		ContentType: cfg.ContentType,
		LegalHold:   cfg.LegalHold,
		Retention:   cfg.Retention,
		SSE:         cfg.SSE,
	}
	if cfg.CustomInfo.Len() > 0 {
		info := cfg.CustomInfo
		in.CustomInfo = &info
	}

	session, err := c.largeFiles.Start(ctx, in)
	if err != nil {
		return nil, err
	}
	return &LargeFile{session: session}, nil
}

// ResumeLargeFile reattaches to an unfinished large file by ID, rebuilding
// the recorded part list from the service.
func (c *Client) ResumeLargeFile(ctx context.Context, fileID string) (*LargeFile, error) {
	session, err := c.largeFiles.Resume(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return &LargeFile{session: session}, nil
}

// FileID returns the large file identifier.
func (l *LargeFile) FileID() string { return l.session.FileID() }

// File returns the descriptor the upload was started or resumed with.
func (l *LargeFile) File() b2types.File { return l.session.File() }

// Parts returns the successfully recorded parts in ascending part order.
func (l *LargeFile) Parts() []b2types.Part { return l.session.Parts() }

// UploadPart hashes and uploads one part under the given part number,
// between 1 and 10000. Parts may be uploaded in any order and part numbers
// are never reassigned; the same contiguous numbering the caller chose is
// what Finish validates. An expired upload grant is refreshed once
// transparently.
func (l *LargeFile) UploadPart(ctx context.Context, partNumber int, r io.Reader) (*b2types.Part, error) {
	return l.session.UploadPart(ctx, partNumber, r)
}

// UploadPartWithGrant uploads one part against a caller-held grant from
// GetUploadPartURL. An expired grant surfaces as Unauthorized for the
// caller to re-request.
func (l *LargeFile) UploadPartWithGrant(ctx context.Context, grant *b2types.PartUploadURL, partNumber int, r io.Reader) (*b2types.Part, error) {
	return l.session.UploadPartWithGrant(ctx, grant, partNumber, r)
}

// CopyPart copies a byte range of an existing file into this upload as the
// given part.
func (l *LargeFile) CopyPart(ctx context.Context, sourceFileID string, partNumber int, opts ...b2types.CopyPartOption) (*b2types.Part, error) {
	cfg := b2types.CopyPartOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return l.session.CopyPart(ctx, sourceFileID, partNumber,
		null.NewString(cfg.RangeSpec, cfg.RangeSpec != ""))
}

// Finish completes the large file from the recorded parts. Their part
// numbers must be contiguous from 1.
func (l *LargeFile) Finish(ctx context.Context) (*b2types.File, error) {
	return l.session.Finish(ctx)
}

// FinishWithHashes completes the large file with a caller-supplied
// checksum list ordered by ascending part number.
func (l *LargeFile) FinishWithHashes(ctx context.Context, partSha1s []string) (*b2types.File, error) {
	return l.session.FinishWithHashes(ctx, partSha1s)
}

// Cancel aborts the upload and discards any stored parts. Canceling twice,
// or canceling an upload with no parts, succeeds.
func (l *LargeFile) Cancel(ctx context.Context) error {
	return l.session.Cancel(ctx)
}

// ListParts returns one page of this upload's recorded parts from the
// service, with the continuation part number for the next page (zero when
// done).
func (l *LargeFile) ListParts(ctx context.Context, opts ...b2types.ListPartsOption) ([]b2types.Part, int, error) {
	cfg := b2types.ListPartsOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	start := null.Int64{}
	if cfg.StartPartNumber > 0 {
		start = null.IntFrom(int64(cfg.StartPartNumber))
	}

	parts, next, err := l.session.ListParts(ctx, start, cfg.MaxPartCount)
	if err != nil {
		return nil, 0, err
	}
	return parts, int(next.ValueOrZero()), nil
}

// ListPartsPager returns a pager over all of this upload's recorded parts.
func (l *LargeFile) ListPartsPager(pageSize int) *b2types.Pager[b2types.Part] {
	return b2types.NewPager(func(ctx context.Context, cursor string) ([]b2types.Part, string, error) {
		opts := []b2types.ListPartsOption{WithMaxPartCount(pageSize)}
		if cursor != "" {
			start, err := strconv.Atoi(cursor)
			if err != nil {
				return nil, "", errors.NewError("listParts",
					errors.NewValidationError("cursor", "malformed part number cursor"))
			}
			opts = append(opts, WithStartPartNumber(start))
		}
		parts, next, err := l.ListParts(ctx, opts...)
		if err != nil {
			return nil, "", err
		}
		if next == 0 {
			return parts, "", nil
		}
		return parts, strconv.Itoa(next), nil
	}, "")
}

// GetUploadPartURL requests a raw part upload URL grant for callers that
// manage their own part transfers.
func (c *Client) GetUploadPartURL(ctx context.Context, fileID string) (*b2types.PartUploadURL, error) {
	grant, err := c.api.GetUploadPartURL(ctx, &b2api.GetUploadPartURLInput{FileID: fileID})
	if err != nil {
		return nil, errors.NewFileError("getUploadPartURL", fileID, err)
	}
	return grant, nil
}

// ListUnfinishedLargeFiles returns one page of in-progress large files in
// the bucket with the continuation file ID for the next page.
func (c *Client) ListUnfinishedLargeFiles(ctx context.Context, bucketID string, opts ...b2types.ListUnfinishedOption) ([]b2types.File, string, error) {
	cfg := b2types.ListUnfinishedOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	files, next, err := c.largeFiles.ListUnfinished(ctx, bucketID,
		null.NewString(cfg.NamePrefix, cfg.NamePrefix != ""),
		null.NewString(cfg.StartFileID, cfg.StartFileID != ""),
		cfg.MaxFileCount)
	if err != nil {
		return nil, "", err
	}
	return files, next.ValueOrZero(), nil
}

// ListUnfinishedLargeFilesPager returns a pager over all in-progress large
// files in the bucket.
func (c *Client) ListUnfinishedLargeFilesPager(bucketID string, opts ...b2types.ListUnfinishedOption) *b2types.Pager[b2types.File] {
	return b2types.NewPager(func(ctx context.Context, cursor string) ([]b2types.File, string, error) {
		pageOpts := opts
		if cursor != "" {
			pageOpts = append(append([]b2types.ListUnfinishedOption{}, opts...), WithUnfinishedStartFileID(cursor))
		}
		return c.ListUnfinishedLargeFiles(ctx, bucketID, pageOpts...)
	}, "")
}

// UploadLargeFile streams r as a large file, splitting it into sequential
// parts of the configured part size (the account's recommended size when
// unset). On any failure the session is canceled and no file remains.
func (c *Client) UploadLargeFile(ctx context.Context, bucketID, fileName string, r io.Reader, opts ...b2types.UploadOption) (*b2types.File, error) {
	partSize := c.cfg.PartSize
	if partSize <= 0 {
		auth, err := c.api.Account(ctx)
		if err != nil {
			return nil, errors.NewBucketError("uploadLargeFile", bucketID, err)
		}
		partSize = auth.RecommendedPartSize
	}
	if partSize <= 0 {
		return nil, errors.NewBucketError("uploadLargeFile", bucketID,
			errors.NewValidationError("partSize", "no part size configured or recommended"))
	}

	lf, err := c.StartLargeFile(ctx, bucketID, fileName, opts...)
	if err != nil {
		return nil, err
	}

	abort := func(cause error) error {
		if cerr := lf.Cancel(ctx); cerr != nil {
			c.log.Warn("b2: canceling failed large file upload",
				"fileId", lf.FileID(), "error", cerr)
		}
		return cause
	}

	for partNumber := 1; ; partNumber++ {
		var chunk bytes.Buffer
		n, err := io.CopyN(&chunk, r, partSize)
		if err != nil && err != io.EOF {
			return nil, abort(errors.NewBucketError("uploadLargeFile", bucketID, err))
		}
		if n == 0 {
			if partNumber == 1 {
				return nil, abort(errors.NewBucketError("uploadLargeFile", bucketID,
					errors.NewValidationError("body", "empty source")))
			}
			break
		}

		if _, err := lf.UploadPart(ctx, partNumber, bytes.NewReader(chunk.Bytes())); err != nil {
			return nil, abort(err)
		}

		if n < partSize {
			break
		}
	}

	file, err := lf.Finish(ctx)
	if err != nil {
		return nil, abort(err)
	}
	return file, nil
}
