// Package download converts raw download responses into file descriptors
// with their metadata rebuilt from the response headers.
package download

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/cplaiasu/b2/b2types"
	"github.com/cplaiasu/b2/errors"
	"github.com/cplaiasu/b2/internal/b2api"
)

// FileFromHeaders rebuilds the stored file descriptor from the X-Bz-*
// headers of a download response.
func FileFromHeaders(h http.Header) (b2types.File, error) {
	name, err := url.PathUnescape(h.Get(b2api.HeaderFileName))
	if err != nil {
		return b2types.File{}, errors.NewError("download",
			errors.NewValidationError("fileName", "malformed file name header"))
	}

	info, err := b2types.CustomInfoFromHeaders(h)
	if err != nil {
		return b2types.File{}, errors.NewError("download", err)
	}

	var ts int64
	if raw := h.Get(b2api.HeaderUploadTimestamp); raw != "" {
		ts, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return b2types.File{}, errors.NewError("download",
				errors.NewValidationError("uploadTimestamp", "malformed timestamp header"))
		}
	}

	var length int64
	if raw := h.Get("Content-Length"); raw != "" {
		// best effort; the body stream is authoritative
		length, _ = strconv.ParseInt(raw, 10, 64)
	}

	return b2types.File{
		Action:          b2types.ActionUpload,
		FileID:          h.Get(b2api.HeaderFileID),
		FileName:        name,
		ContentLength:   length,
		ContentType:     h.Get("Content-Type"),
		ContentSha1:     h.Get(b2api.HeaderContentSha1),
		FileInfo:        info,
		UploadTimestamp: ts,
	}, nil
}

// FromOutput wraps a transport download into a Download whose File carries
// the header metadata. Ownership of the body passes to the caller; on
// mapping failure the body is closed here.
func FromOutput(out *b2api.DownloadOutput) (*b2types.Download, error) {
	file, err := FileFromHeaders(out.Header)
	if err != nil {
		out.Body.Close()
		return nil, err
	}
	if file.ContentLength == 0 && out.ContentLength > 0 {
		file.ContentLength = out.ContentLength
	}
	return &b2types.Download{File: file, Body: out.Body}, nil
}
