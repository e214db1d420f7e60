package testutil

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cplaiasu/b2/b2types"
)

// FakeB2 is an in-memory B2 service behind an httptest server. It implements
// the subset of the native JSON API the client exercises: account
// authorization, bucket and key CRUD, single file upload and download, and
// the large file workflow with part listing.
type FakeB2 struct {
	*httptest.Server

	mu         sync.Mutex
	accountID  string
	authToken  string
	buckets    map[string]*b2types.Bucket
	files      map[string]*fakeFile
	keys       map[string]*b2types.Key
	largeFiles map[string]*fakeLargeFile
	seq        int

	// AuthCalls counts b2_authorize_account requests.
	AuthCalls int

	// ExpireGrantsOnce makes the next upload to a grant URL fail with 401,
	// simulating an expired grant.
	ExpireGrantsOnce bool

	// FailNextPartUpload makes the next part upload fail with 503.
	FailNextPartUpload bool
}

type fakeFile struct {
	b2types.File
	content []byte
	info    map[string]string
}

type fakeLargeFile struct {
	file  b2types.File
	parts map[int]*fakePart
}

type fakePart struct {
	b2types.Part
	content []byte
}

// NewFakeB2 starts a fake B2 service. Callers own closing it, typically via
// t.Cleanup(f.Close).
func NewFakeB2() *FakeB2 {
	f := &FakeB2{
		accountID:  "acct-fake",
		buckets:    map[string]*b2types.Bucket{},
		files:      map[string]*fakeFile{},
		keys:       map[string]*b2types.Key{},
		largeFiles: map[string]*fakeLargeFile{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.route))
	return f
}

// Bucket registers a bucket directly, bypassing the API.
func (f *FakeB2) Bucket(name string) *b2types.Bucket {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := &b2types.Bucket{
		AccountID:  f.accountID,
		BucketID:   f.nextID("bkt"),
		BucketName: name,
		BucketType: b2types.BucketTypeAllPrivate,
	}
	f.buckets[b.BucketID] = b
	return b
}

// FileContent returns the stored content of a finished file.
func (f *FakeB2) FileContent(fileID string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[fileID]
	if !ok {
		return nil, false
	}
	return file.content, true
}

// UnfinishedCount returns the number of in-progress large files.
func (f *FakeB2) UnfinishedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.largeFiles)
}

func (f *FakeB2) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%04d", prefix, f.seq)
}

func (f *FakeB2) route(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/b2api/v2/b2_authorize_account":
		f.handleAuthorize(w, r)
	case strings.HasPrefix(r.URL.Path, "/b2api/v2/b2_download_file_by_id"):
		f.handleDownloadByID(w, r)
	case strings.HasPrefix(r.URL.Path, "/file/"):
		f.handleDownloadByName(w, r)
	case strings.HasPrefix(r.URL.Path, "/fake/upload/"):
		f.handleUploadFile(w, r)
	case strings.HasPrefix(r.URL.Path, "/fake/part/"):
		f.handleUploadPart(w, r)
	case strings.HasPrefix(r.URL.Path, "/b2api/v2/"):
		f.handleJSON(w, r, strings.TrimPrefix(r.URL.Path, "/b2api/v2/"))
	default:
		f.fail(w, 404, "not_found", "unknown path "+r.URL.Path)
	}
}

func (f *FakeB2) fail(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status": status, "code": code, "message": message,
	})
}

func (f *FakeB2) reply(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func (f *FakeB2) checkAuth(w http.ResponseWriter, r *http.Request) bool {
	f.mu.Lock()
	token := f.authToken
	f.mu.Unlock()
	if token == "" || r.Header.Get("Authorization") != token {
		f.fail(w, 401, "expired_auth_token", "authorization token has expired")
		return false
	}
	return true
}

func (f *FakeB2) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := r.BasicAuth(); !ok {
		f.fail(w, 401, "unauthorized", "missing credentials")
		return
	}
	f.mu.Lock()
	f.AuthCalls++
	f.authToken = "fake-token-" + strconv.Itoa(f.AuthCalls)
	token := f.authToken
	f.mu.Unlock()

	f.reply(w, map[string]any{
		"accountId":               f.accountID,
		"authorizationToken":      token,
		"apiUrl":                  f.URL,
		"downloadUrl":             f.URL,
		"recommendedPartSize":     100_000_000,
		"absoluteMinimumPartSize": 5_000_000,
		"allowed": map[string]any{
			"capabilities": []string{"listBuckets", "writeFiles", "readFiles"},
		},
	})
}

func (f *FakeB2) handleJSON(w http.ResponseWriter, r *http.Request, op string) {
	if !f.checkAuth(w, r) {
		return
	}
	body, _ := io.ReadAll(r.Body)
	var in map[string]any
	json.Unmarshal(body, &in)

	switch op {
	case "b2_create_bucket":
		f.createBucket(w, in)
	case "b2_update_bucket":
		f.updateBucket(w, in)
	case "b2_delete_bucket":
		f.deleteBucket(w, in)
	case "b2_list_buckets":
		f.listBuckets(w, in)
	case "b2_get_upload_url":
		f.getUploadURL(w, in)
	case "b2_get_file_info":
		f.getFileInfo(w, in)
	case "b2_list_file_names":
		f.listFileNames(w, in)
	case "b2_list_file_versions":
		f.listFileNames(w, in) // versions and names share the fake's flat state
	case "b2_delete_file_version":
		f.deleteFileVersion(w, in)
	case "b2_hide_file":
		f.hideFile(w, in)
	case "b2_create_key":
		f.createKey(w, in)
	case "b2_delete_key":
		f.deleteKey(w, in)
	case "b2_list_keys":
		f.listKeys(w, in)
	case "b2_get_download_authorization":
		f.getDownloadAuthorization(w, in)
	case "b2_start_large_file":
		f.startLargeFile(w, in)
	case "b2_get_upload_part_url":
		f.getUploadPartURL(w, in)
	case "b2_finish_large_file":
		f.finishLargeFile(w, in)
	case "b2_cancel_large_file":
		f.cancelLargeFile(w, in)
	case "b2_list_parts":
		f.listParts(w, in)
	case "b2_list_unfinished_large_files":
		f.listUnfinished(w, in)
	default:
		f.fail(w, 400, "bad_request", "unsupported operation "+op)
	}
}

func str(in map[string]any, key string) string {
	s, _ := in[key].(string)
	return s
}

func num(in map[string]any, key string) int {
	n, _ := in[key].(float64)
	return int(n)
}

func (f *FakeB2) createBucket(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	name := str(in, "bucketName")
	for _, b := range f.buckets {
		if b.BucketName == name {
			f.mu.Unlock()
			f.fail(w, 400, "duplicate_bucket_name", "bucket name is already in use")
			return
		}
	}
	b := &b2types.Bucket{
		AccountID:  f.accountID,
		BucketID:   f.nextID("bkt"),
		BucketName: name,
		BucketType: str(in, "bucketType"),
		Revision:   1,
	}
	f.buckets[b.BucketID] = b
	f.mu.Unlock()
	f.reply(w, b)
}

func (f *FakeB2) updateBucket(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	b, ok := f.buckets[str(in, "bucketId")]
	if !ok {
		f.mu.Unlock()
		f.fail(w, 400, "bad_bucket_id", "no such bucket")
		return
	}
	if t := str(in, "bucketType"); t != "" {
		b.BucketType = t
	}
	b.Revision++
	out := *b
	f.mu.Unlock()
	f.reply(w, out)
}

func (f *FakeB2) deleteBucket(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	id := str(in, "bucketId")
	b, ok := f.buckets[id]
	if !ok {
		f.mu.Unlock()
		f.fail(w, 400, "bad_bucket_id", "no such bucket")
		return
	}
	delete(f.buckets, id)
	out := *b
	f.mu.Unlock()
	f.reply(w, out)
}

func (f *FakeB2) listBuckets(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	wantName := str(in, "bucketName")
	var out []b2types.Bucket
	for _, b := range f.buckets {
		if wantName != "" && b.BucketName != wantName {
			continue
		}
		out = append(out, *b)
	}
	f.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].BucketName < out[j].BucketName })
	f.reply(w, map[string]any{"buckets": out})
}

func (f *FakeB2) getUploadURL(w http.ResponseWriter, in map[string]any) {
	bucketID := str(in, "bucketId")
	f.mu.Lock()
	_, ok := f.buckets[bucketID]
	f.mu.Unlock()
	if !ok {
		f.fail(w, 400, "bad_bucket_id", "no such bucket")
		return
	}
	f.reply(w, map[string]any{
		"bucketId":           bucketID,
		"uploadUrl":          f.URL + "/fake/upload/" + bucketID,
		"authorizationToken": "grant-" + uuid.NewString(),
	})
}

func (f *FakeB2) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	if f.ExpireGrantsOnce {
		f.ExpireGrantsOnce = false
		f.mu.Unlock()
		f.fail(w, 401, "expired_auth_token", "upload grant expired")
		return
	}
	f.mu.Unlock()

	bucketID := strings.TrimPrefix(r.URL.Path, "/fake/upload/")
	content, _ := io.ReadAll(r.Body)

	name, err := url.PathUnescape(r.Header.Get("X-Bz-File-Name"))
	if err != nil {
		f.fail(w, 400, "bad_request", "malformed file name")
		return
	}
	sha := r.Header.Get("X-Bz-Content-Sha1")
	if got := sha1.Sum(content); sha != "do_not_verify" && sha != hex.EncodeToString(got[:]) {
		f.fail(w, 400, "bad_request", "checksum did not match data received")
		return
	}

	info := map[string]string{}
	for k, vs := range r.Header {
		if strings.HasPrefix(k, "X-Bz-Info-") && len(vs) > 0 {
			key := strings.ToLower(strings.TrimPrefix(k, "X-Bz-Info-"))
			val, _ := url.PathUnescape(vs[0])
			info[key] = val
		}
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == b2types.ContentTypeAuto || contentType == "" {
		contentType = "application/octet-stream"
	}

	customInfo, err := b2types.NewCustomInfo(info)
	if err != nil {
		f.fail(w, 400, "bad_request", "too many file info entries")
		return
	}

	f.mu.Lock()
	file := &fakeFile{
		File: b2types.File{
			Action:          b2types.ActionUpload,
			AccountID:       f.accountID,
			BucketID:        bucketID,
			FileID:          f.nextID("file"),
			FileName:        name,
			ContentLength:   int64(len(content)),
			ContentType:     contentType,
			ContentSha1:     sha,
			FileInfo:        customInfo,
			UploadTimestamp: time.Now().UnixMilli(),
		},
		content: content,
		info:    info,
	}
	f.files[file.FileID] = file
	out := file.File
	f.mu.Unlock()
	f.reply(w, out)
}

func (f *FakeB2) getFileInfo(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := str(in, "fileId")
	if file, ok := f.files[id]; ok {
		f.reply(w, file.File)
		return
	}
	if lf, ok := f.largeFiles[id]; ok {
		f.reply(w, lf.file)
		return
	}
	f.fail(w, 404, "file_not_present", "no such file")
}

func (f *FakeB2) listFileNames(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	bucketID := str(in, "bucketId")
	prefix := str(in, "prefix")
	start := str(in, "startFileName")
	maxCount := num(in, "maxFileCount")
	if maxCount <= 0 || maxCount > 100 {
		maxCount = 100
	}

	var all []b2types.File
	for _, file := range f.files {
		if file.BucketID != bucketID || !strings.HasPrefix(file.FileName, prefix) {
			continue
		}
		if start != "" && file.FileName < start {
			continue
		}
		all = append(all, file.File)
	}
	f.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].FileName < all[j].FileName })

	next := any(nil)
	if len(all) > maxCount {
		next = all[maxCount].FileName
		all = all[:maxCount]
	}
	f.reply(w, map[string]any{"files": all, "nextFileName": next})
}

func (f *FakeB2) deleteFileVersion(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	id := str(in, "fileId")
	file, ok := f.files[id]
	if !ok {
		f.mu.Unlock()
		f.fail(w, 404, "file_not_present", "no such file")
		return
	}
	delete(f.files, id)
	name := file.FileName
	f.mu.Unlock()
	f.reply(w, map[string]any{"fileId": id, "fileName": name})
}

func (f *FakeB2) hideFile(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	file := &fakeFile{
		File: b2types.File{
			Action:          b2types.ActionHide,
			BucketID:        str(in, "bucketId"),
			FileID:          f.nextID("file"),
			FileName:        str(in, "fileName"),
			UploadTimestamp: time.Now().UnixMilli(),
		},
	}
	f.files[file.FileID] = file
	out := file.File
	f.mu.Unlock()
	f.reply(w, out)
}

func (f *FakeB2) createKey(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	key := &b2types.Key{
		AccountID:        f.accountID,
		ApplicationKeyID: f.nextID("key"),
		KeyName:          str(in, "keyName"),
		Capabilities:     []string{"listBuckets"},
	}
	f.keys[key.ApplicationKeyID] = key
	out := *key
	f.mu.Unlock()
	out.ApplicationKey = "secret-" + out.ApplicationKeyID
	f.reply(w, out)
}

func (f *FakeB2) deleteKey(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	id := str(in, "applicationKeyId")
	key, ok := f.keys[id]
	if !ok {
		f.mu.Unlock()
		f.fail(w, 400, "bad_request", "no such key")
		return
	}
	delete(f.keys, id)
	out := *key
	f.mu.Unlock()
	f.reply(w, out)
}

func (f *FakeB2) listKeys(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	var out []b2types.Key
	for _, k := range f.keys {
		out = append(out, *k)
	}
	f.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ApplicationKeyID < out[j].ApplicationKeyID })
	f.reply(w, map[string]any{"keys": out, "nextApplicationKeyId": nil})
}

func (f *FakeB2) getDownloadAuthorization(w http.ResponseWriter, in map[string]any) {
	f.reply(w, map[string]any{
		"bucketId":           str(in, "bucketId"),
		"fileNamePrefix":     str(in, "fileNamePrefix"),
		"authorizationToken": "dl-" + uuid.NewString(),
	})
}

func (f *FakeB2) startLargeFile(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	bucketID := str(in, "bucketId")
	if _, ok := f.buckets[bucketID]; !ok {
		f.mu.Unlock()
		f.fail(w, 400, "bad_bucket_id", "no such bucket")
		return
	}
	lf := &fakeLargeFile{
		file: b2types.File{
			Action:          b2types.ActionStart,
			AccountID:       f.accountID,
			BucketID:        bucketID,
			FileID:          f.nextID("large"),
			FileName:        str(in, "fileName"),
			ContentType:     str(in, "contentType"),
			UploadTimestamp: time.Now().UnixMilli(),
		},
		parts: map[int]*fakePart{},
	}
	f.largeFiles[lf.file.FileID] = lf
	out := lf.file
	f.mu.Unlock()
	f.reply(w, out)
}

func (f *FakeB2) getUploadPartURL(w http.ResponseWriter, in map[string]any) {
	fileID := str(in, "fileId")
	f.mu.Lock()
	_, ok := f.largeFiles[fileID]
	f.mu.Unlock()
	if !ok {
		f.fail(w, 400, "bad_request", "no such large file")
		return
	}
	f.reply(w, map[string]any{
		"fileId":             fileID,
		"uploadUrl":          f.URL + "/fake/part/" + fileID,
		"authorizationToken": "grant-" + uuid.NewString(),
	})
}

func (f *FakeB2) handleUploadPart(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	if f.ExpireGrantsOnce {
		f.ExpireGrantsOnce = false
		f.mu.Unlock()
		f.fail(w, 401, "expired_auth_token", "part grant expired")
		return
	}
	if f.FailNextPartUpload {
		f.FailNextPartUpload = false
		f.mu.Unlock()
		f.fail(w, 503, "service_unavailable", "storage pod unavailable")
		return
	}
	f.mu.Unlock()

	fileID := strings.TrimPrefix(r.URL.Path, "/fake/part/")
	partNumber, err := strconv.Atoi(r.Header.Get("X-Bz-Part-Number"))
	if err != nil || partNumber < 1 || partNumber > 10000 {
		f.fail(w, 400, "bad_request", "invalid part number")
		return
	}
	content, _ := io.ReadAll(r.Body)
	sha := r.Header.Get("X-Bz-Content-Sha1")
	if got := sha1.Sum(content); sha != hex.EncodeToString(got[:]) {
		f.fail(w, 400, "bad_request", "checksum did not match data received")
		return
	}

	f.mu.Lock()
	lf, ok := f.largeFiles[fileID]
	if !ok {
		f.mu.Unlock()
		f.fail(w, 400, "bad_request", "no such large file")
		return
	}
	part := &fakePart{
		Part: b2types.Part{
			FileID:          fileID,
			PartNumber:      partNumber,
			ContentLength:   int64(len(content)),
			ContentSha1:     sha,
			UploadTimestamp: time.Now().UnixMilli(),
		},
		content: content,
	}
	lf.parts[partNumber] = part
	out := part.Part
	f.mu.Unlock()
	f.reply(w, out)
}

func (f *FakeB2) finishLargeFile(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	fileID := str(in, "fileId")
	lf, ok := f.largeFiles[fileID]
	if !ok {
		f.mu.Unlock()
		f.fail(w, 400, "bad_request", "no such large file")
		return
	}

	shas, _ := in["partSha1Array"].([]any)
	if len(shas) != len(lf.parts) {
		f.mu.Unlock()
		f.fail(w, 400, "bad_request", "part count mismatch")
		return
	}
	var content []byte
	for i := 1; i <= len(shas); i++ {
		part, ok := lf.parts[i]
		if !ok || part.ContentSha1 != shas[i-1] {
			f.mu.Unlock()
			f.fail(w, 400, "bad_request", fmt.Sprintf("part %d checksum mismatch", i))
			return
		}
		content = append(content, part.content...)
	}

	file := &fakeFile{File: lf.file, content: content}
	file.Action = b2types.ActionUpload
	file.ContentLength = int64(len(content))
	file.ContentSha1 = "none"
	delete(f.largeFiles, fileID)
	f.files[fileID] = file
	out := file.File
	f.mu.Unlock()
	f.reply(w, out)
}

func (f *FakeB2) cancelLargeFile(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	fileID := str(in, "fileId")
	lf, ok := f.largeFiles[fileID]
	if !ok {
		f.mu.Unlock()
		f.fail(w, 400, "file_not_present", "no such unfinished large file")
		return
	}
	delete(f.largeFiles, fileID)
	out := map[string]any{
		"fileId":   fileID,
		"fileName": lf.file.FileName,
		"bucketId": lf.file.BucketID,
	}
	f.mu.Unlock()
	f.reply(w, out)
}

func (f *FakeB2) listParts(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	fileID := str(in, "fileId")
	lf, ok := f.largeFiles[fileID]
	if !ok {
		f.mu.Unlock()
		f.fail(w, 400, "bad_request", "no such large file")
		return
	}
	start := num(in, "startPartNumber")
	if start < 1 {
		start = 1
	}
	maxCount := num(in, "maxPartCount")
	if maxCount <= 0 || maxCount > 1000 {
		maxCount = 1000
	}

	var all []b2types.Part
	for n, p := range lf.parts {
		if n >= start {
			all = append(all, p.Part)
		}
	}
	f.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].PartNumber < all[j].PartNumber })

	next := any(nil)
	if len(all) > maxCount {
		next = all[maxCount].PartNumber
		all = all[:maxCount]
	}
	f.reply(w, map[string]any{"parts": all, "nextPartNumber": next})
}

func (f *FakeB2) listUnfinished(w http.ResponseWriter, in map[string]any) {
	f.mu.Lock()
	bucketID := str(in, "bucketId")
	var all []b2types.File
	for _, lf := range f.largeFiles {
		if lf.file.BucketID == bucketID {
			all = append(all, lf.file)
		}
	}
	f.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].FileID < all[j].FileID })
	f.reply(w, map[string]any{"files": all, "nextFileId": nil})
}

// checkDownloadAuth accepts the account token or a download authorization
// token minted by b2_get_download_authorization.
func (f *FakeB2) checkDownloadAuth(w http.ResponseWriter, r *http.Request) bool {
	if strings.HasPrefix(r.Header.Get("Authorization"), "dl-") {
		return true
	}
	return f.checkAuth(w, r)
}

func (f *FakeB2) handleDownloadByName(w http.ResponseWriter, r *http.Request) {
	if !f.checkDownloadAuth(w, r) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/file/")
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		f.fail(w, 400, "bad_request", "missing file name")
		return
	}
	bucketName, fileName := rest[:slash], rest[slash+1:]

	f.mu.Lock()
	var found *fakeFile
	for _, file := range f.files {
		b := f.buckets[file.BucketID]
		if b != nil && b.BucketName == bucketName && file.FileName == fileName {
			found = file
			break
		}
	}
	f.mu.Unlock()

	if found == nil {
		f.fail(w, 404, "not_found", "no such file")
		return
	}
	f.serveContent(w, r, found)
}

func (f *FakeB2) handleDownloadByID(w http.ResponseWriter, r *http.Request) {
	if !f.checkDownloadAuth(w, r) {
		return
	}
	f.mu.Lock()
	found := f.files[r.URL.Query().Get("fileId")]
	f.mu.Unlock()
	if found == nil {
		f.fail(w, 404, "not_found", "no such file")
		return
	}
	f.serveContent(w, r, found)
}

func (f *FakeB2) serveContent(w http.ResponseWriter, r *http.Request, file *fakeFile) {
	w.Header().Set("X-Bz-File-Id", file.FileID)
	w.Header().Set("X-Bz-File-Name", url.PathEscape(file.FileName))
	w.Header().Set("X-Bz-Content-Sha1", file.ContentSha1)
	w.Header().Set("X-Bz-Upload-Timestamp", strconv.FormatInt(file.UploadTimestamp, 10))
	w.Header().Set("Content-Type", file.ContentType)
	for k, v := range file.info {
		w.Header().Set("X-Bz-Info-"+k, url.PathEscape(v))
	}

	content := file.content
	if spec := r.Header.Get("Range"); spec != "" {
		var lo, hi int
		if _, err := fmt.Sscanf(spec, "bytes=%d-%d", &lo, &hi); err != nil || lo < 0 || hi >= len(content) || lo > hi {
			f.fail(w, 416, "range_not_satisfiable", "bad range")
			return
		}
		w.Header().Set("Content-Range",
			fmt.Sprintf("bytes %d-%d/%d", lo, hi, len(content)))
		w.Header().Set("Content-Length", strconv.Itoa(hi-lo+1))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(content[lo : hi+1])
		return
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Write(content)
}
