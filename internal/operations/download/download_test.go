package download

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cplaiasu/b2/internal/b2api"
)

func TestFileFromHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("X-Bz-File-Id", "file-1")
	h.Set("X-Bz-File-Name", "docs/ana%20maria.txt")
	h.Set("X-Bz-Content-Sha1", "da39a3ee5e6b4b0d3255bfef95601890afd80709")
	h.Set("X-Bz-Upload-Timestamp", "1714000000000")
	h.Set("X-Bz-Info-author", "ana%20maria")
	h.Set("Content-Type", "text/plain")
	h.Set("Content-Length", "42")

	file, err := FileFromHeaders(h)
	require.NoError(t, err)

	assert.Equal(t, "file-1", file.FileID)
	assert.Equal(t, "docs/ana maria.txt", file.FileName)
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", file.ContentSha1)
	assert.Equal(t, "text/plain", file.ContentType)
	assert.EqualValues(t, 42, file.ContentLength)
	assert.EqualValues(t, 1714000000000, file.UploadTimestamp)

	author, ok := file.FileInfo.Get("author")
	require.True(t, ok)
	assert.Equal(t, "ana maria", author)
}

func TestFileFromHeadersMalformed(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad file name escape", "X-Bz-File-Name", "bad%zz"},
		{"bad timestamp", "X-Bz-Upload-Timestamp", "yesterday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set(tt.key, tt.value)
			_, err := FileFromHeaders(h)
			assert.Error(t, err)
		})
	}
}

func TestFromOutput(t *testing.T) {
	h := http.Header{}
	h.Set("X-Bz-File-Id", "file-1")
	h.Set("X-Bz-File-Name", "a.txt")

	out := &b2api.DownloadOutput{
		Status:        http.StatusOK,
		Header:        h,
		ContentLength: 5,
		Body:          io.NopCloser(strings.NewReader("hello")),
	}

	dl, err := FromOutput(out)
	require.NoError(t, err)
	defer dl.Body.Close()

	assert.Equal(t, "file-1", dl.File.FileID)
	assert.EqualValues(t, 5, dl.File.ContentLength)

	body, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestFromOutputClosesBodyOnError(t *testing.T) {
	h := http.Header{}
	h.Set("X-Bz-File-Name", "bad%zz")

	closed := false
	out := &b2api.DownloadOutput{
		Header: h,
		Body:   closeTracker{Reader: strings.NewReader(""), closed: &closed},
	}

	_, err := FromOutput(out)
	require.Error(t, err)
	assert.True(t, closed)
}

type closeTracker struct {
	io.Reader
	closed *bool
}

func (c closeTracker) Close() error {
	*c.closed = true
	return nil
}
