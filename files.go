package b2

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/guregu/null/v6"

	"github.com/cplaiasu/b2/b2types"
	"github.com/cplaiasu/b2/errors"
	"github.com/cplaiasu/b2/internal/b2api"
	"github.com/cplaiasu/b2/internal/validation"
)

// stagedBody is an upload body whose checksum and length are known before
// transmission and that can be reopened for retry replay.
type stagedBody struct {
	sha    string
	length int64
	data   []byte        // set when the source was buffered
	rs     io.ReadSeeker // set when the source was seekable
	start  int64
}

func (s *stagedBody) open() (io.ReadCloser, error) {
	if s.rs != nil {
		if _, err := s.rs.Seek(s.start, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewinding upload body: %w", err)
		}
		return io.NopCloser(s.rs), nil
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// sniff returns a prefix of the content for type detection.
func (s *stagedBody) sniff(n int) ([]byte, error) {
	if s.rs == nil {
		if n > len(s.data) {
			n = len(s.data)
		}
		return s.data[:n], nil
	}
	body, err := s.open()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(body, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

// stageBody hashes a source. Seekable sources are hashed in place and
// rewound; anything else is buffered once in memory.
func stageBody(r io.Reader) (*stagedBody, error) {
	h := sha1.New()

	if rs, ok := r.(io.ReadSeeker); ok {
		start, err := rs.Seek(0, io.SeekCurrent)
		if err == nil {
			n, err := io.Copy(h, rs)
			if err != nil {
				return nil, fmt.Errorf("hashing upload body: %w", err)
			}
			return &stagedBody{
				sha:    hex.EncodeToString(h.Sum(nil)),
				length: n,
				rs:     rs,
				start:  start,
			}, nil
		}
	}

	var buf bytes.Buffer
	n, err := io.Copy(io.MultiWriter(&buf, h), r)
	if err != nil {
		return nil, fmt.Errorf("staging upload body: %w", err)
	}
	return &stagedBody{
		sha:    hex.EncodeToString(h.Sum(nil)),
		length: n,
		data:   buf.Bytes(),
	}, nil
}

// UploadFile uploads the contents of r as fileName in the bucket. The
// checksum and length are computed before transmission, so non-seekable
// sources are buffered once in memory; prefer seekable sources for large
// content, or the large file workflow.
//
// Without WithContentType the service picks a type from the name and
// content. If the upload URL grant has expired, one fresh grant is obtained
// and the upload retried before the error surfaces.
func (c *Client) UploadFile(ctx context.Context, bucketID, fileName string, r io.Reader, opts ...b2types.UploadOption) (*b2types.File, error) {
	if err := validation.ValidateFileName(fileName); err != nil {
		return nil, err
	}

	cfg := b2types.UploadOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validation.ValidateCustomInfo(cfg.CustomInfo); err != nil {
		return nil, err
	}

	st, err := stageBody(r)
	if err != nil {
		return nil, errors.NewBucketError("uploadFile", bucketID, err)
	}
	if cfg.ContentSha1 != "" {
		st.sha = cfg.ContentSha1
	}

	contentType := cfg.ContentType
	if contentType == "" {
		contentType = b2types.ContentTypeAuto
	}

	infoHeaders := cfg.CustomInfo.Headers()
	if !cfg.LastModified.IsZero() {
		if infoHeaders == nil {
			infoHeaders = map[string]string{}
		}
		infoHeaders["X-Bz-Info-src_last_modified_millis"] =
			strconv.FormatInt(cfg.LastModified.UnixMilli(), 10)
	}

	extra := uploadExtraHeaders(cfg.LegalHold, cfg.Retention, cfg.SSE)

	grant, err := c.api.GetUploadURL(ctx, &b2api.GetUploadURLInput{BucketID: bucketID})
	if err != nil {
		return nil, errors.NewBucketError("uploadFile", bucketID, err)
	}

	attempt := func(g *b2types.UploadURL) (*b2types.File, error) {
		body, err := st.open()
		if err != nil {
			return nil, err
		}
		defer body.Close()
		return c.api.UploadFile(ctx, &b2api.UploadFileInput{
			URL:                g.UploadURL,
			AuthorizationToken: g.AuthorizationToken,
			FileName:           fileName,
			ContentType:        contentType,
			ContentLength:      st.length,
			ContentSha1:        st.sha,
			InfoHeaders:        infoHeaders,
			ExtraHeaders:       extra,
			Body:               body,
			GetBody:            st.open,
		})
	}

	file, err := attempt(grant)
	if err != nil && errors.IsUnauthorized(err) {
		c.log.Warn("b2: upload grant expired, refreshing", "bucketId", bucketID)
		grant, gerr := c.api.GetUploadURL(ctx, &b2api.GetUploadURLInput{BucketID: bucketID})
		if gerr != nil {
			return nil, errors.NewBucketError("uploadFile", bucketID, gerr)
		}
		file, err = attempt(grant)
	}
	if err != nil {
		return nil, errors.NewBucketError("uploadFile", bucketID, err)
	}

	c.log.Debug("b2: file uploaded",
		"fileId", file.FileID, "fileName", fileName, "contentLength", st.length)
	return file, nil
}

// UploadFileFrom uploads a file from the client's filesystem. The content
// type is detected from the content when not set explicitly.
func (c *Client) UploadFileFrom(ctx context.Context, bucketID, fileName, path string, opts ...b2types.UploadOption) (*b2types.File, error) {
	f, err := c.fs.Open(path)
	if err != nil {
		return nil, errors.NewBucketError("uploadFile", bucketID, err)
	}
	defer f.Close()

	cfg := b2types.UploadOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.ContentType == "" {
		st, err := stageBody(f)
		if err != nil {
			return nil, errors.NewBucketError("uploadFile", bucketID, err)
		}
		head, err := st.sniff(3072)
		if err != nil {
			return nil, errors.NewBucketError("uploadFile", bucketID, err)
		}
		opts = append(opts, WithContentType(mimetype.Detect(head).String()))
		body, err := st.open()
		if err != nil {
			return nil, errors.NewBucketError("uploadFile", bucketID, err)
		}
		return c.UploadFile(ctx, bucketID, fileName, body, opts...)
	}

	return c.UploadFile(ctx, bucketID, fileName, f, opts...)
}

// GetFileInfo fetches the descriptor of a file version by ID.
func (c *Client) GetFileInfo(ctx context.Context, fileID string) (*b2types.File, error) {
	file, err := c.api.GetFileInfo(ctx, &b2api.GetFileInfoInput{FileID: fileID})
	if err != nil {
		return nil, errors.NewFileError("getFileInfo", fileID, err)
	}
	return file, nil
}

// ListFileNames returns one page of the newest file versions by name,
// with the continuation token for the next page.
func (c *Client) ListFileNames(ctx context.Context, bucketID string, opts ...b2types.ListOption) ([]b2types.File, string, error) {
	cfg := b2types.ListOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	out, err := c.api.ListFileNames(ctx, &b2api.ListFileNamesInput{
		BucketID:      bucketID,
		StartFileName: null.NewString(cfg.StartFileName, cfg.StartFileName != ""),
		MaxFileCount:  clampFileCount(cfg.MaxFileCount),
		Prefix:        null.NewString(cfg.Prefix, cfg.Prefix != ""),
		Delimiter:     null.NewString(cfg.Delimiter, cfg.Delimiter != ""),
	})
	if err != nil {
		return nil, "", errors.NewBucketError("listFileNames", bucketID, err)
	}
	return out.Files, out.NextFileName.ValueOrZero(), nil
}

// ListFileNamesPager returns a pager over all file names in the bucket.
func (c *Client) ListFileNamesPager(bucketID string, opts ...b2types.ListOption) *b2types.Pager[b2types.File] {
	return b2types.NewPager(func(ctx context.Context, cursor string) ([]b2types.File, string, error) {
		pageOpts := opts
		if cursor != "" {
			pageOpts = append(append([]b2types.ListOption{}, opts...), WithStartFileName(cursor))
		}
		return c.ListFileNames(ctx, bucketID, pageOpts...)
	}, "")
}

// ListFileVersions returns one page of all file versions, with the
// name and ID continuation tokens for the next page.
func (c *Client) ListFileVersions(ctx context.Context, bucketID string, opts ...b2types.ListOption) ([]b2types.File, string, string, error) {
	cfg := b2types.ListOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	out, err := c.api.ListFileVersions(ctx, &b2api.ListFileVersionsInput{
		BucketID:      bucketID,
		StartFileName: null.NewString(cfg.StartFileName, cfg.StartFileName != ""),
		StartFileID:   null.NewString(cfg.StartFileID, cfg.StartFileID != ""),
		MaxFileCount:  clampFileCount(cfg.MaxFileCount),
		Prefix:        null.NewString(cfg.Prefix, cfg.Prefix != ""),
		Delimiter:     null.NewString(cfg.Delimiter, cfg.Delimiter != ""),
	})
	if err != nil {
		return nil, "", "", errors.NewBucketError("listFileVersions", bucketID, err)
	}
	return out.Files, out.NextFileName.ValueOrZero(), out.NextFileID.ValueOrZero(), nil
}

// DeleteFileVersion permanently deletes one version of a file.
func (c *Client) DeleteFileVersion(ctx context.Context, fileName, fileID string) error {
	_, err := c.api.DeleteFileVersion(ctx, &b2api.DeleteFileVersionInput{
		FileName: fileName,
		FileID:   fileID,
	})
	if err != nil {
		return errors.NewFileError("deleteFileVersion", fileID, err)
	}
	c.log.Debug("b2: file version deleted", "fileId", fileID, "fileName", fileName)
	return nil
}

// HideFile hides a file name so downloads of it return not found while
// older versions remain.
func (c *Client) HideFile(ctx context.Context, bucketID, fileName string) (*b2types.File, error) {
	file, err := c.api.HideFile(ctx, &b2api.HideFileInput{
		BucketID: bucketID,
		FileName: fileName,
	})
	if err != nil {
		return nil, errors.NewBucketError("hideFile", bucketID, err)
	}
	return file, nil
}

// CopyFile copies a file server side. Without WithCopyMetadata the copy
// keeps the source's content type and info.
func (c *Client) CopyFile(ctx context.Context, sourceFileID, fileName string, opts ...b2types.CopyOption) (*b2types.File, error) {
	if err := validation.ValidateFileName(fileName); err != nil {
		return nil, err
	}

	cfg := b2types.CopyOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	in := &b2api.CopyFileInput{
		SourceFileID:        sourceFileID,
		FileName:            fileName,
		DestinationBucketID: null.NewString(cfg.DestinationBucketID, cfg.DestinationBucketID != ""),
		Range:               null.NewString(cfg.RangeSpec, cfg.RangeSpec != ""),
		SourceSSE:           cfg.SourceSSE,
		DestSSE:             cfg.DestSSE,
	}
	if cfg.ContentType != "" || cfg.CustomInfo.Len() > 0 {
		in.MetadataDirective = "REPLACE"
		in.ContentType = null.NewString(cfg.ContentType, cfg.ContentType != "")
		in.FileInfo = cfg.CustomInfo.Map()
	}

	file, err := c.api.CopyFile(ctx, in)
	if err != nil {
		return nil, errors.NewFileError("copyFile", sourceFileID, err)
	}
	return file, nil
}

// clampFileCount bounds a listing page size to the service maximum.
func clampFileCount(n int) int {
	const maxFileCount = 10000
	if n < 0 {
		return 0
	}
	if n > maxFileCount {
		return maxFileCount
	}
	return n
}

// uploadExtraHeaders renders legal hold, retention, and encryption settings
// as upload headers.
func uploadExtraHeaders(legalHold null.String, retention *b2types.RetentionSetting, sse *b2types.ServerSideEncryption) map[string]string {
	h := map[string]string{}
	if legalHold.Valid {
		h["X-Bz-File-Legal-Hold"] = legalHold.String
	}
	if retention != nil && retention.Mode.Valid {
		h["X-Bz-File-Retention-Mode"] = retention.Mode.String
		if retention.RetainUntilTimestamp.Valid {
			h["X-Bz-File-Retention-Retain-Until-Timestamp"] =
				strconv.FormatInt(retention.RetainUntilTimestamp.Int64, 10)
		}
	}
	for k, v := range sseHeaders(sse) {
		h[k] = v
	}
	if len(h) == 0 {
		return nil
	}
	return h
}

// sseHeaders renders server-side encryption settings as request headers.
func sseHeaders(sse *b2types.ServerSideEncryption) map[string]string {
	if sse == nil {
		return nil
	}
	h := map[string]string{}
	switch sse.Mode {
	case "SSE-B2":
		h["X-Bz-Server-Side-Encryption"] = sse.Algorithm
	case "SSE-C":
		h["X-Bz-Server-Side-Encryption-Customer-Algorithm"] = sse.Algorithm
		h["X-Bz-Server-Side-Encryption-Customer-Key"] = sse.CustomerKey
		h["X-Bz-Server-Side-Encryption-Customer-Key-Md5"] = sse.CustomerKeyMd5
	}
	if len(h) == 0 {
		return nil
	}
	return h
}
