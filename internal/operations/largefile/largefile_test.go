package largefile

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cplaiasu/b2/b2types"
	"github.com/cplaiasu/b2/errors"
	"github.com/cplaiasu/b2/internal/b2api"
	"github.com/cplaiasu/b2/internal/testutil"
)

func newTestManager(api b2api.B2API) *Manager {
	return NewManager(api, nil, 2)
}

// startedSession wires a mock that accepts start and grant requests and
// returns a fresh session.
func startedSession(t *testing.T, mock *testutil.MockB2API) *Session {
	t.Helper()
	if mock.StartLargeFileFunc == nil {
		mock.StartLargeFileFunc = func(_ context.Context, in *b2api.StartLargeFileInput) (*b2types.File, error) {
			return &b2types.File{
				Action:      b2types.ActionStart,
				BucketID:    in.BucketID,
				FileID:      "large-1",
				FileName:    in.FileName,
				ContentType: in.ContentType,
			}, nil
		}
	}
	if mock.GetUploadPartURLFunc == nil {
		mock.GetUploadPartURLFunc = func(_ context.Context, in *b2api.GetUploadPartURLInput) (*b2types.PartUploadURL, error) {
			return &b2types.PartUploadURL{
				FileID:             in.FileID,
				UploadURL:          "https://pod.example/part/" + in.FileID,
				AuthorizationToken: "grant-1",
			}, nil
		}
	}

	s, err := newTestManager(mock).Start(context.Background(), StartInput{
		BucketID: "bkt-1",
		FileName: "movie.mp4",
	})
	require.NoError(t, err)
	return s
}

func TestStartDefaultsContentType(t *testing.T) {
	var got *b2api.StartLargeFileInput
	mock := &testutil.MockB2API{
		StartLargeFileFunc: func(_ context.Context, in *b2api.StartLargeFileInput) (*b2types.File, error) {
			got = in
			return &b2types.File{Action: b2types.ActionStart, FileID: "large-1", FileName: in.FileName}, nil
		},
	}

	info := b2types.CustomInfo{}
	require.NoError(t, info.Set("author", "ana"))

	s, err := newTestManager(mock).Start(context.Background(), StartInput{
		BucketID:   "bkt-1",
		FileName:   "movie.mp4",
		CustomInfo: &info,
	})
	require.NoError(t, err)
	assert.Equal(t, "large-1", s.FileID())

	assert.Equal(t, b2types.ContentTypeAuto, got.ContentType)
	assert.Equal(t, map[string]string{"author": "ana"}, got.FileInfo)
}

func TestStartRejectsBadFileNameLocally(t *testing.T) {
	called := false
	mock := &testutil.MockB2API{
		StartLargeFileFunc: func(_ context.Context, _ *b2api.StartLargeFileInput) (*b2types.File, error) {
			called = true
			return nil, nil
		},
	}

	_, err := newTestManager(mock).Start(context.Background(), StartInput{
		BucketID: "bkt-1",
		FileName: "/leading-slash.mp4",
	})
	require.Error(t, err)
	assert.False(t, called, "no request may be sent for an invalid name")
}

func TestUploadPartRecordsOnSuccess(t *testing.T) {
	payload := []byte("part one payload")
	var gotSha string
	var gotLen int64
	mock := &testutil.MockB2API{
		UploadPartFunc: func(_ context.Context, in *b2api.UploadPartInput) (*b2types.Part, error) {
			gotSha = in.ContentSha1
			gotLen = in.ContentLength
			body, err := io.ReadAll(in.Body)
			require.NoError(t, err)
			assert.Equal(t, payload, body)
			return &b2types.Part{
				FileID:        "large-1",
				PartNumber:    in.PartNumber,
				ContentLength: in.ContentLength,
				ContentSha1:   in.ContentSha1,
			}, nil
		},
	}
	s := startedSession(t, mock)

	part, err := s.UploadPart(context.Background(), 1, bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 1, part.PartNumber)

	// checksum and length must be computed before transmission
	assert.Equal(t, testutil.SHA1Hex(payload), gotSha)
	assert.EqualValues(t, len(payload), gotLen)

	parts := s.Parts()
	require.Len(t, parts, 1)
	assert.Equal(t, testutil.SHA1Hex(payload), parts[0].ContentSha1)
}

// nonSeeker hides the Seek method so staging takes the buffering path.
type nonSeeker struct{ r io.Reader }

func (n nonSeeker) Read(p []byte) (int, error) { return n.r.Read(p) }

func TestUploadPartBuffersNonSeekableSource(t *testing.T) {
	payload := []byte("streamed payload")
	mock := &testutil.MockB2API{
		UploadPartFunc: func(_ context.Context, in *b2api.UploadPartInput) (*b2types.Part, error) {
			assert.Equal(t, testutil.SHA1Hex(payload), in.ContentSha1)
			body, _ := io.ReadAll(in.Body)
			assert.Equal(t, payload, body)
			return &b2types.Part{PartNumber: in.PartNumber, ContentSha1: in.ContentSha1}, nil
		},
	}
	s := startedSession(t, mock)

	_, err := s.UploadPart(context.Background(), 1, nonSeeker{bytes.NewReader(payload)})
	require.NoError(t, err)
}

func TestUploadPartFailureNotRecorded(t *testing.T) {
	mock := &testutil.MockB2API{
		UploadPartFunc: func(_ context.Context, _ *b2api.UploadPartInput) (*b2types.Part, error) {
			return nil, &errors.APIError{Status: 503, Code: "service_unavailable", Message: "busy"}
		},
	}
	s := startedSession(t, mock)

	_, err := s.UploadPart(context.Background(), 1, strings.NewReader("data"))
	require.Error(t, err)
	assert.Empty(t, s.Parts(), "failed part must not be recorded")
}

func TestUploadPartInvalidNumber(t *testing.T) {
	s := startedSession(t, &testutil.MockB2API{})

	for _, n := range []int{0, -1, MaxPartNumber + 1} {
		_, err := s.UploadPart(context.Background(), n, strings.NewReader("x"))
		assert.True(t, errors.IsInvalidInput(err), "part number %d", n)
	}
}

func TestUploadPartGrantRefreshedExactlyOnce(t *testing.T) {
	var uploadCalls, grantCalls int
	mock := &testutil.MockB2API{
		GetUploadPartURLFunc: func(_ context.Context, in *b2api.GetUploadPartURLInput) (*b2types.PartUploadURL, error) {
			grantCalls++
			return &b2types.PartUploadURL{
				FileID:             in.FileID,
				UploadURL:          "https://pod.example/part",
				AuthorizationToken: "grant-" + strings.Repeat("i", grantCalls),
			}, nil
		},
		UploadPartFunc: func(_ context.Context, in *b2api.UploadPartInput) (*b2types.Part, error) {
			uploadCalls++
			if uploadCalls == 1 {
				return nil, &errors.APIError{Status: 401, Code: "expired_auth_token", Message: "expired"}
			}
			// the retry must carry the fresh grant token
			assert.Equal(t, "grant-ii", in.AuthorizationToken)
			return &b2types.Part{PartNumber: in.PartNumber, ContentSha1: in.ContentSha1}, nil
		},
	}
	s := startedSession(t, mock)

	part, err := s.UploadPart(context.Background(), 1, strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, 1, part.PartNumber)
	assert.Equal(t, 2, uploadCalls)
	assert.Equal(t, 2, grantCalls)
	assert.Len(t, s.Parts(), 1)
}

func TestUploadPartPersistentUnauthorized(t *testing.T) {
	var uploadCalls int
	mock := &testutil.MockB2API{
		UploadPartFunc: func(_ context.Context, _ *b2api.UploadPartInput) (*b2types.Part, error) {
			uploadCalls++
			return nil, &errors.APIError{Status: 401, Code: "expired_auth_token", Message: "expired"}
		},
	}
	s := startedSession(t, mock)

	_, err := s.UploadPart(context.Background(), 1, strings.NewReader("data"))
	require.Error(t, err)
	assert.True(t, errors.IsUnauthorized(err))
	// one attempt plus one refreshed attempt, never more
	assert.Equal(t, 2, uploadCalls)
	assert.Empty(t, s.Parts())
}

func TestUploadPartWithGrantNoAutoRefresh(t *testing.T) {
	mock := &testutil.MockB2API{
		UploadPartFunc: func(_ context.Context, _ *b2api.UploadPartInput) (*b2types.Part, error) {
			return nil, &errors.APIError{Status: 401, Code: "expired_auth_token", Message: "expired"}
		},
	}
	s := startedSession(t, mock)

	var grantCalls int
	mock.GetUploadPartURLFunc = func(_ context.Context, _ *b2api.GetUploadPartURLInput) (*b2types.PartUploadURL, error) {
		grantCalls++
		return &b2types.PartUploadURL{}, nil
	}

	grant := &b2types.PartUploadURL{UploadURL: "https://pod.example/part", AuthorizationToken: "stale"}
	_, err := s.UploadPartWithGrant(context.Background(), grant, 1, strings.NewReader("data"))
	require.Error(t, err)
	assert.True(t, errors.IsUnauthorized(err))
	assert.Zero(t, grantCalls, "caller-held grants are the caller's to refresh")
}

func TestFinishSendsHashesInPartOrder(t *testing.T) {
	var got *b2api.FinishLargeFileInput
	mock := &testutil.MockB2API{
		UploadPartFunc: func(_ context.Context, in *b2api.UploadPartInput) (*b2types.Part, error) {
			return &b2types.Part{PartNumber: in.PartNumber, ContentSha1: in.ContentSha1}, nil
		},
		FinishLargeFileFunc: func(_ context.Context, in *b2api.FinishLargeFileInput) (*b2types.File, error) {
			got = in
			return &b2types.File{Action: b2types.ActionUpload, FileID: in.FileID}, nil
		},
	}
	s := startedSession(t, mock)

	partTwo := []byte("second half")
	partOne := []byte("first half!")

	// upload out of order; finish must still send hashes ascending
	_, err := s.UploadPart(context.Background(), 2, bytes.NewReader(partTwo))
	require.NoError(t, err)
	_, err = s.UploadPart(context.Background(), 1, bytes.NewReader(partOne))
	require.NoError(t, err)

	file, err := s.Finish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "large-1", file.FileID)

	require.Equal(t, []string{
		testutil.SHA1Hex(partOne),
		testutil.SHA1Hex(partTwo),
	}, got.PartSha1Array)
}

func TestFinishRejectsGappyParts(t *testing.T) {
	mock := &testutil.MockB2API{
		UploadPartFunc: func(_ context.Context, in *b2api.UploadPartInput) (*b2types.Part, error) {
			return &b2types.Part{PartNumber: in.PartNumber, ContentSha1: in.ContentSha1}, nil
		},
	}
	s := startedSession(t, mock)

	_, err := s.UploadPart(context.Background(), 2, strings.NewReader("only part two"))
	require.NoError(t, err)

	_, err = s.Finish(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestFinishWithNoParts(t *testing.T) {
	s := startedSession(t, &testutil.MockB2API{})

	_, err := s.Finish(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestSessionTerminalAfterFinish(t *testing.T) {
	mock := &testutil.MockB2API{
		UploadPartFunc: func(_ context.Context, in *b2api.UploadPartInput) (*b2types.Part, error) {
			return &b2types.Part{PartNumber: in.PartNumber, ContentSha1: in.ContentSha1}, nil
		},
		FinishLargeFileFunc: func(_ context.Context, in *b2api.FinishLargeFileInput) (*b2types.File, error) {
			return &b2types.File{FileID: in.FileID}, nil
		},
	}
	s := startedSession(t, mock)

	_, err := s.UploadPart(context.Background(), 1, strings.NewReader("data"))
	require.NoError(t, err)
	_, err = s.Finish(context.Background())
	require.NoError(t, err)

	_, err = s.UploadPart(context.Background(), 2, strings.NewReader("late"))
	assert.True(t, errors.IsInvalidInput(err))
	require.Error(t, s.Cancel(context.Background()))
}

func TestCancelIdempotent(t *testing.T) {
	var cancelCalls int
	mock := &testutil.MockB2API{
		CancelLargeFileFunc: func(_ context.Context, in *b2api.CancelLargeFileInput) (*b2types.File, error) {
			cancelCalls++
			return &b2types.File{FileID: in.FileID}, nil
		},
	}
	s := startedSession(t, mock)

	// canceling a session with no uploaded parts succeeds
	require.NoError(t, s.Cancel(context.Background()))
	assert.Empty(t, s.Parts())

	// and canceling again is a local no-op
	require.NoError(t, s.Cancel(context.Background()))
	assert.Equal(t, 1, cancelCalls)
}

func TestCancelDiscardsRecordedParts(t *testing.T) {
	mock := &testutil.MockB2API{
		UploadPartFunc: func(_ context.Context, in *b2api.UploadPartInput) (*b2types.Part, error) {
			return &b2types.Part{PartNumber: in.PartNumber, ContentSha1: in.ContentSha1}, nil
		},
		CancelLargeFileFunc: func(_ context.Context, in *b2api.CancelLargeFileInput) (*b2types.File, error) {
			return &b2types.File{FileID: in.FileID}, nil
		},
	}
	s := startedSession(t, mock)

	_, err := s.UploadPart(context.Background(), 1, strings.NewReader("data"))
	require.NoError(t, err)
	require.NoError(t, s.Cancel(context.Background()))
	assert.Empty(t, s.Parts())
}

func TestCopyPartRecorded(t *testing.T) {
	mock := &testutil.MockB2API{
		CopyPartFunc: func(_ context.Context, in *b2api.CopyPartInput) (*b2types.Part, error) {
			assert.Equal(t, "large-1", in.LargeFileID)
			assert.Equal(t, "src-file", in.SourceFileID)
			return &b2types.Part{FileID: in.LargeFileID, PartNumber: in.PartNumber, ContentSha1: "cafe"}, nil
		},
	}
	s := startedSession(t, mock)

	part, err := s.CopyPart(context.Background(), "src-file", 1, null.StringFrom("bytes=0-99"))
	require.NoError(t, err)
	assert.Equal(t, 1, part.PartNumber)
	assert.Len(t, s.Parts(), 1)
}

func TestResumeRebuildsPartsAcrossPages(t *testing.T) {
	gen := testutil.NewTestDataGenerator(7)
	fileID := gen.FileID()
	recorded := gen.GeneratePartList(fileID, 5, 64)

	mock := &testutil.MockB2API{
		GetFileInfoFunc: func(_ context.Context, in *b2api.GetFileInfoInput) (*b2types.File, error) {
			return &b2types.File{Action: b2types.ActionStart, FileID: in.FileID, FileName: "movie.mp4"}, nil
		},
		ListPartsFunc: func(_ context.Context, in *b2api.ListPartsInput) (*b2api.ListPartsOutput, error) {
			start := int(in.StartPartNumber.ValueOrZero())
			if start < 1 {
				start = 1
			}
			out := &b2api.ListPartsOutput{}
			// serve two parts per page
			for _, p := range recorded {
				if p.PartNumber >= start && len(out.Parts) < 2 {
					out.Parts = append(out.Parts, p)
				}
			}
			if last := out.Parts[len(out.Parts)-1].PartNumber; last < len(recorded) {
				out.NextPartNumber = null.IntFrom(int64(last + 1))
			}
			return out, nil
		},
	}

	s, err := newTestManager(mock).Resume(context.Background(), fileID)
	require.NoError(t, err)

	parts := s.Parts()
	require.Len(t, parts, len(recorded))
	for i, part := range parts {
		assert.Equal(t, recorded[i].PartNumber, part.PartNumber)
		assert.Equal(t, recorded[i].ContentSha1, part.ContentSha1)
	}
}

func TestResumeRejectsFinishedFile(t *testing.T) {
	mock := &testutil.MockB2API{
		GetFileInfoFunc: func(_ context.Context, in *b2api.GetFileInfoInput) (*b2types.File, error) {
			return &b2types.File{Action: b2types.ActionUpload, FileID: in.FileID}, nil
		},
	}

	_, err := newTestManager(mock).Resume(context.Background(), "done-file")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestListPartsClampsPageSize(t *testing.T) {
	var got int
	mock := &testutil.MockB2API{
		ListPartsFunc: func(_ context.Context, in *b2api.ListPartsInput) (*b2api.ListPartsOutput, error) {
			got = in.MaxPartCount
			return &b2api.ListPartsOutput{}, nil
		},
	}
	m := newTestManager(mock)

	_, _, err := m.ListParts(context.Background(), "large-1", null.Int64{}, 50000)
	require.NoError(t, err)
	assert.Equal(t, maxPartCount, got)
}

func TestListUnfinishedClampsPageSize(t *testing.T) {
	var got int
	mock := &testutil.MockB2API{
		ListUnfinishedLargeFilesFunc: func(_ context.Context, in *b2api.ListUnfinishedLargeFilesInput) (*b2api.ListUnfinishedLargeFilesOutput, error) {
			got = in.MaxFileCount
			return &b2api.ListUnfinishedLargeFilesOutput{}, nil
		},
	}
	m := newTestManager(mock)

	_, _, err := m.ListUnfinished(context.Background(), "bkt-1", null.String{}, null.String{}, 500)
	require.NoError(t, err)
	assert.Equal(t, maxFileCount, got)
}
