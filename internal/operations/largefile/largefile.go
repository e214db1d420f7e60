// Package largefile orchestrates the B2 large file upload workflow:
// starting a session, uploading parts against pooled URL grants, finishing
// with the ordered checksum list, and recovering interrupted sessions.
package largefile

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/guregu/null/v6"

	"github.com/cplaiasu/b2/b2types"
	"github.com/cplaiasu/b2/errors"
	"github.com/cplaiasu/b2/internal/b2api"
	"github.com/cplaiasu/b2/internal/pool"
	"github.com/cplaiasu/b2/internal/validation"
)

const (
	// MaxPartNumber is the highest part number the service accepts.
	MaxPartNumber = 10000

	// maxPartCount caps a single b2_list_parts page.
	maxPartCount = 10000

	// maxFileCount caps a single b2_list_unfinished_large_files page.
	maxFileCount = 100
)

// Manager creates and recovers large file sessions.
type Manager struct {
	api      b2api.B2API
	log      *slog.Logger
	poolSize int
	buffers  *pool.BufferPool
}

// NewManager creates a large file manager. poolSize bounds the per-session
// grant pool; zero selects the default.
func NewManager(api b2api.B2API, log *slog.Logger, poolSize int) *Manager {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		api:      api,
		log:      log,
		poolSize: poolSize,
		buffers:  pool.NewBufferPool(),
	}
}

// StartInput describes a new large file.
type StartInput struct {
	BucketID    string
	FileName    string
	ContentType string
	CustomInfo  *b2types.CustomInfo
	LegalHold   null.String
	Retention   *b2types.RetentionSetting
	SSE         *b2types.ServerSideEncryption
}

// Start begins a large file upload. The file name and custom info are
// validated locally before any request is sent; an empty content type asks
// the service to sniff one.
func (m *Manager) Start(ctx context.Context, in StartInput) (*Session, error) {
	if err := validation.ValidateFileName(in.FileName); err != nil {
		return nil, err
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = b2types.ContentTypeAuto
	}

	req := &b2api.StartLargeFileInput{
		BucketID:      in.BucketID,
		FileName:      in.FileName,
		ContentType:   contentType,
		LegalHold:     in.LegalHold,
		FileRetention: in.Retention,
		SSE:           in.SSE,
	}
	if in.CustomInfo != nil && in.CustomInfo.Len() > 0 {
		req.FileInfo = in.CustomInfo.Map()
	}

	file, err := m.api.StartLargeFile(ctx, req)
	if err != nil {
		return nil, errors.NewBucketError("startLargeFile", in.BucketID, err)
	}

	m.log.Debug("b2: large file started",
		"fileId", file.FileID, "fileName", file.FileName)
	return m.newSession(*file), nil
}

// Resume reattaches to an unfinished large file, rebuilding the recorded
// part list from the service.
func (m *Manager) Resume(ctx context.Context, fileID string) (*Session, error) {
	file, err := m.api.GetFileInfo(ctx, &b2api.GetFileInfoInput{FileID: fileID})
	if err != nil {
		return nil, errors.NewFileError("resumeLargeFile", fileID, err)
	}
	if file.Action != b2types.ActionStart {
		return nil, errors.NewFileError("resumeLargeFile", fileID,
			errors.NewValidationError("fileId", "not an unfinished large file"))
	}

	s := m.newSession(*file)

	start := null.Int64{}
	for {
		out, err := m.api.ListParts(ctx, &b2api.ListPartsInput{
			FileID:          fileID,
			StartPartNumber: start,
			MaxPartCount:    1000,
		})
		if err != nil {
			return nil, errors.NewFileError("resumeLargeFile", fileID, err)
		}
		for _, p := range out.Parts {
			s.parts[p.PartNumber] = p
		}
		if !out.NextPartNumber.Valid {
			break
		}
		start = out.NextPartNumber
	}

	m.log.Debug("b2: large file resumed",
		"fileId", fileID, "recordedParts", len(s.parts))
	return s, nil
}

// ListParts fetches one page of recorded parts for an unfinished large
// file. maxCount is clamped to the service page limit; zero selects it.
func (m *Manager) ListParts(ctx context.Context, fileID string, startPartNumber null.Int64, maxCount int) ([]b2types.Part, null.Int64, error) {
	if maxCount <= 0 || maxCount > maxPartCount {
		maxCount = maxPartCount
	}
	out, err := m.api.ListParts(ctx, &b2api.ListPartsInput{
		FileID:          fileID,
		StartPartNumber: startPartNumber,
		MaxPartCount:    maxCount,
	})
	if err != nil {
		return nil, null.Int64{}, errors.NewFileError("listParts", fileID, err)
	}
	return out.Parts, out.NextPartNumber, nil
}

// ListUnfinished fetches one page of in-progress large files in a bucket.
func (m *Manager) ListUnfinished(ctx context.Context, bucketID string, namePrefix, startFileID null.String, maxCount int) ([]b2types.File, null.String, error) {
	if maxCount <= 0 || maxCount > maxFileCount {
		maxCount = maxFileCount
	}
	out, err := m.api.ListUnfinishedLargeFiles(ctx, &b2api.ListUnfinishedLargeFilesInput{
		BucketID:     bucketID,
		NamePrefix:   namePrefix,
		StartFileID:  startFileID,
		MaxFileCount: maxCount,
	})
	if err != nil {
		return nil, null.String{}, errors.NewBucketError("listUnfinishedLargeFiles", bucketID, err)
	}
	return out.Files, out.NextFileID, nil
}

func (m *Manager) newSession(file b2types.File) *Session {
	s := &Session{
		mgr:   m,
		file:  file,
		parts: map[int]b2types.Part{},
	}
	s.grants = pool.NewGrantPool(func(ctx context.Context) (*b2types.PartUploadURL, error) {
		return m.api.GetUploadPartURL(ctx, &b2api.GetUploadPartURLInput{FileID: file.FileID})
	}, m.poolSize)
	return s
}

// Session state.
type sessionState int

const (
	stateActive sessionState = iota
	stateFinished
	stateCanceled
)

// Session tracks one in-progress large file. Only parts the service
// acknowledged are recorded; a failed upload leaves the part list untouched.
// Sessions are safe for concurrent part uploads.
type Session struct {
	mgr    *Manager
	file   b2types.File
	grants *pool.GrantPool

	mu    sync.Mutex
	state sessionState
	parts map[int]b2types.Part
}

// FileID returns the large file identifier.
func (s *Session) FileID() string { return s.file.FileID }

// File returns the descriptor the session was started or resumed with.
func (s *Session) File() b2types.File { return s.file }

// Parts returns the successfully recorded parts in ascending part order.
func (s *Session) Parts() []b2types.Part {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]b2types.Part, 0, len(s.parts))
	for _, p := range s.parts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartNumber < out[j].PartNumber })
	return out
}

// GrantStats exposes the session's grant pool statistics.
func (s *Session) GrantStats() pool.Stats {
	return s.grants.Stats()
}

func (s *Session) checkActive(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateFinished:
		return errors.NewFileError(op, s.file.FileID,
			errors.NewValidationError("session", "large file already finished"))
	case stateCanceled:
		return errors.NewFileError(op, s.file.FileID,
			errors.NewValidationError("session", "large file canceled"))
	}
	return nil
}

// staged is a part body whose checksum and length are known up front and
// that can be reopened for transmission and retry replay.
type staged struct {
	sha     string
	length  int64
	open    func() (io.ReadCloser, error)
	cleanup func()
}

// stage prepares a part source. Seekable sources are hashed in place and
// rewound; anything else is buffered once through the buffer pool.
func (m *Manager) stage(r io.Reader) (*staged, error) {
	h := sha1.New()

	if rs, ok := r.(io.ReadSeeker); ok {
		start, err := rs.Seek(0, io.SeekCurrent)
		if err == nil {
			return stageSeekable(rs, start, h)
		}
		// fall through and buffer sources that report a position error
	}

	buf := m.buffers.Get()
	n, err := io.Copy(io.MultiWriter(buf, h), r)
	if err != nil {
		m.buffers.Put(buf)
		return nil, fmt.Errorf("staging part body: %w", err)
	}
	data := buf.Bytes()
	return &staged{
		sha:    hex.EncodeToString(h.Sum(nil)),
		length: n,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
		cleanup: func() { m.buffers.Put(buf) },
	}, nil
}

func stageSeekable(rs io.ReadSeeker, start int64, h hash.Hash) (*staged, error) {
	n, err := io.Copy(h, rs)
	if err != nil {
		return nil, fmt.Errorf("hashing part body: %w", err)
	}
	open := func() (io.ReadCloser, error) {
		if _, err := rs.Seek(start, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewinding part body: %w", err)
		}
		return io.NopCloser(rs), nil
	}
	return &staged{
		sha:     hex.EncodeToString(h.Sum(nil)),
		length:  n,
		open:    open,
		cleanup: func() {},
	}, nil
}

// UploadPart hashes and uploads one part under the given part number. The
// checksum and length are computed before any bytes reach the wire. If the
// pooled grant is rejected as expired, exactly one fresh grant is obtained
// and the upload retried; a second rejection surfaces to the caller. On
// failure nothing is recorded.
func (s *Session) UploadPart(ctx context.Context, partNumber int, r io.Reader) (*b2types.Part, error) {
	if err := s.checkActive("uploadPart"); err != nil {
		return nil, err
	}
	if partNumber < 1 || partNumber > MaxPartNumber {
		return nil, errors.NewFileError("uploadPart", s.file.FileID,
			errors.NewValidationError("partNumber",
				fmt.Sprintf("must be between 1 and %d", MaxPartNumber)))
	}

	st, err := s.mgr.stage(r)
	if err != nil {
		return nil, errors.NewFileError("uploadPart", s.file.FileID, err)
	}
	defer st.cleanup()

	grant, err := s.grants.Get(ctx)
	if err != nil {
		return nil, errors.NewFileError("uploadPart", s.file.FileID, err)
	}

	part, err := s.uploadWithGrant(ctx, grant, partNumber, st)
	if err == nil {
		s.record(*part)
		s.grants.Put(grant)
		return part, nil
	}

	if !errors.IsUnauthorized(err) {
		// grant is still presumed valid; the failure was elsewhere
		s.grants.Put(grant)
		return nil, err
	}

	// expired grant: fetch a fresh one and retry once
	s.grants.Discard(grant)
	s.mgr.log.Warn("b2: part upload grant expired, refreshing",
		"fileId", s.file.FileID, "partNumber", partNumber)

	fresh, ferr := s.mgr.api.GetUploadPartURL(ctx, &b2api.GetUploadPartURLInput{
		FileID: s.file.FileID,
	})
	if ferr != nil {
		return nil, errors.NewFileError("uploadPart", s.file.FileID, ferr)
	}

	part, err = s.uploadWithGrant(ctx, fresh, partNumber, st)
	if err != nil {
		return nil, err
	}
	s.record(*part)
	s.grants.Put(fresh)
	return part, nil
}

// UploadPartWithGrant uploads one part against a caller-held grant. No
// grant refresh happens here; an expired grant surfaces as Unauthorized and
// the caller re-requests via GetUploadPartURL.
func (s *Session) UploadPartWithGrant(ctx context.Context, grant *b2types.PartUploadURL, partNumber int, r io.Reader) (*b2types.Part, error) {
	if err := s.checkActive("uploadPart"); err != nil {
		return nil, err
	}

	st, err := s.mgr.stage(r)
	if err != nil {
		return nil, errors.NewFileError("uploadPart", s.file.FileID, err)
	}
	defer st.cleanup()

	part, err := s.uploadWithGrant(ctx, grant, partNumber, st)
	if err != nil {
		return nil, err
	}
	s.record(*part)
	return part, nil
}

func (s *Session) uploadWithGrant(ctx context.Context, grant *b2types.PartUploadURL, partNumber int, st *staged) (*b2types.Part, error) {
	body, err := st.open()
	if err != nil {
		return nil, errors.NewFileError("uploadPart", s.file.FileID, err)
	}
	defer body.Close()

	return s.mgr.api.UploadPart(ctx, &b2api.UploadPartInput{
		URL:                grant.UploadURL,
		AuthorizationToken: grant.AuthorizationToken,
		PartNumber:         partNumber,
		ContentLength:      st.length,
		ContentSha1:        st.sha,
		Body:               body,
		GetBody:            st.open,
	})
}

func (s *Session) record(part b2types.Part) {
	s.mu.Lock()
	s.parts[part.PartNumber] = part
	s.mu.Unlock()
}

// CopyPart copies a byte range of an existing file into this large file as
// the given part. The recorded part list is updated on success.
func (s *Session) CopyPart(ctx context.Context, sourceFileID string, partNumber int, rangeSpec null.String) (*b2types.Part, error) {
	if err := s.checkActive("copyPart"); err != nil {
		return nil, err
	}

	part, err := s.mgr.api.CopyPart(ctx, &b2api.CopyPartInput{
		SourceFileID: sourceFileID,
		LargeFileID:  s.file.FileID,
		PartNumber:   partNumber,
		Range:        rangeSpec,
	})
	if err != nil {
		return nil, errors.NewFileError("copyPart", s.file.FileID, err)
	}
	s.record(*part)
	return part, nil
}

// Finish completes the large file from the session's recorded parts. The
// recorded part numbers must be contiguous from 1; their checksums are sent
// in ascending part order.
func (s *Session) Finish(ctx context.Context) (*b2types.File, error) {
	if err := s.checkActive("finishLargeFile"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	shas := make([]string, 0, len(s.parts))
	for i := 1; i <= len(s.parts); i++ {
		part, ok := s.parts[i]
		if !ok {
			s.mu.Unlock()
			return nil, errors.NewFileError("finishLargeFile", s.file.FileID,
				errors.NewValidationError("parts",
					fmt.Sprintf("part %d missing; recorded parts must be contiguous from 1", i)))
		}
		shas = append(shas, part.ContentSha1)
	}
	s.mu.Unlock()

	if len(shas) == 0 {
		return nil, errors.NewFileError("finishLargeFile", s.file.FileID,
			errors.NewValidationError("parts", "no parts recorded"))
	}

	return s.FinishWithHashes(ctx, shas)
}

// FinishWithHashes completes the large file with a caller-supplied ordered
// checksum list, for callers that tracked parts themselves.
func (s *Session) FinishWithHashes(ctx context.Context, partSha1s []string) (*b2types.File, error) {
	if err := s.checkActive("finishLargeFile"); err != nil {
		return nil, err
	}

	file, err := s.mgr.api.FinishLargeFile(ctx, &b2api.FinishLargeFileInput{
		FileID:        s.file.FileID,
		PartSha1Array: partSha1s,
	})
	if err != nil {
		return nil, errors.NewFileError("finishLargeFile", s.file.FileID, err)
	}

	s.mu.Lock()
	s.state = stateFinished
	s.mu.Unlock()
	s.grants.Close()

	s.mgr.log.Debug("b2: large file finished",
		"fileId", file.FileID, "parts", len(partSha1s))
	return file, nil
}

// Cancel aborts the large file and discards any uploaded parts. Canceling
// an already canceled session, or one with no parts, is a no-op success.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	if s.state == stateCanceled {
		s.mu.Unlock()
		return nil
	}
	if s.state == stateFinished {
		s.mu.Unlock()
		return errors.NewFileError("cancelLargeFile", s.file.FileID,
			errors.NewValidationError("session", "large file already finished"))
	}
	s.mu.Unlock()

	_, err := s.mgr.api.CancelLargeFile(ctx, &b2api.CancelLargeFileInput{
		FileID: s.file.FileID,
	})
	if err != nil && !errors.IsNotFound(err) {
		return errors.NewFileError("cancelLargeFile", s.file.FileID, err)
	}

	s.mu.Lock()
	s.state = stateCanceled
	s.parts = map[int]b2types.Part{}
	s.mu.Unlock()
	s.grants.Close()

	s.mgr.log.Debug("b2: large file canceled", "fileId", s.file.FileID)
	return nil
}

// ListParts pages this session's recorded parts from the service.
func (s *Session) ListParts(ctx context.Context, startPartNumber null.Int64, maxCount int) ([]b2types.Part, null.Int64, error) {
	return s.mgr.ListParts(ctx, s.file.FileID, startPartNumber, maxCount)
}
