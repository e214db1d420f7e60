package b2api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cplaiasu/b2/b2types"
	"github.com/cplaiasu/b2/errors"
)

// DefaultAuthHost is the account authorization endpoint host.
const DefaultAuthHost = "https://api.backblazeb2.com"

// apiPath is the path prefix shared by all JSON endpoints.
const apiPath = "/b2api/v2/"

// Transport headers specific to the B2 API.
const (
	HeaderFileName        = "X-Bz-File-Name"
	HeaderFileID          = "X-Bz-File-Id"
	HeaderContentSha1     = "X-Bz-Content-Sha1"
	HeaderPartNumber      = "X-Bz-Part-Number"
	HeaderUploadTimestamp = "X-Bz-Upload-Timestamp"
	HeaderInfoPrefix      = "X-Bz-Info-"
)

// Config holds the settings for the HTTP transport.
type Config struct {
	KeyID          string
	ApplicationKey string

	// AuthHost overrides DefaultAuthHost, mainly for tests
	AuthHost string

	// HTTPClient defaults to http.DefaultClient
	HTTPClient *http.Client

	// MaxRetries and RetryInterval configure the linear retry policy
	MaxRetries    int
	RetryInterval time.Duration

	// Logger defaults to a discard logger
	Logger *slog.Logger

	// UserAgent is sent with every request
	UserAgent string
}

// HTTPClient implements B2API over the B2 native JSON API.
//
// It authorizes lazily on first use and holds the account authorization
// behind a mutex; a 401 on any API call triggers exactly one transparent
// re-authorization before the error surfaces.
type HTTPClient struct {
	cfg Config

	// apiDoer is the full pipeline: auth refresh wrapping retry
	apiDoer Doer

	// grantDoer is retry only, for calls authorized by grant tokens or
	// download authorization tokens where the account token cannot help
	grantDoer Doer

	mu   sync.RWMutex
	auth *b2types.AccountAuth
}

var _ B2API = (*HTTPClient)(nil)

// New creates an HTTP transport for the given credentials.
func New(cfg Config) *HTTPClient {
	if cfg.AuthHost == "" {
		cfg.AuthHost = DefaultAuthHost
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}

	c := &HTTPClient{cfg: cfg}
	base := DoerFunc(cfg.HTTPClient.Do)
	retry := Retry(RetryPolicy{MaxRetries: cfg.MaxRetries, Interval: cfg.RetryInterval}, cfg.Logger)
	c.apiDoer = Chain(base, AuthRefresh(c.token, c.refreshAuth, cfg.Logger), retry)
	c.grantDoer = Chain(base, retry)
	return c
}

// Account returns the account authorization, performing it on first use.
func (c *HTTPClient) Account(ctx context.Context) (b2types.AccountAuth, error) {
	c.mu.RLock()
	if c.auth != nil {
		auth := *c.auth
		c.mu.RUnlock()
		return auth, nil
	}
	c.mu.RUnlock()

	if err := c.authorize(ctx); err != nil {
		return b2types.AccountAuth{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return *c.auth, nil
}

// authorize performs b2_authorize_account and stores the result.
func (c *HTTPClient) authorize(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.AuthHost+apiPath+"b2_authorize_account", nil)
	if err != nil {
		return errors.NewError("authorizeAccount", err)
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.ApplicationKey)
	c.setCommonHeaders(req)

	res, err := c.grantDoer.Do(req)
	if err != nil {
		return errors.NewError("authorizeAccount", c.liftTransient(err))
	}
	if res.StatusCode != http.StatusOK {
		return errors.NewError("authorizeAccount", responseError(res))
	}
	defer res.Body.Close()

	var auth b2types.AccountAuth
	if err := json.NewDecoder(res.Body).Decode(&auth); err != nil {
		return errors.NewError("authorizeAccount", err)
	}

	c.mu.Lock()
	c.auth = &auth
	c.mu.Unlock()

	c.cfg.Logger.Debug("b2: account authorized",
		"accountId", auth.AccountID, "apiUrl", auth.APIURL)
	return nil
}

// refreshAuth discards the stored authorization and obtains a new one.
// Used by the auth-refresh interceptor after a 401.
func (c *HTTPClient) refreshAuth(req *http.Request) error {
	c.mu.Lock()
	c.auth = nil
	c.mu.Unlock()
	return c.authorize(req.Context())
}

// token returns the current account token, or "" before authorization.
func (c *HTTPClient) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.auth == nil {
		return ""
	}
	return c.auth.AuthorizationToken
}

func (c *HTTPClient) setCommonHeaders(req *http.Request) {
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
}

// callJSON POSTs a JSON body to the named endpoint and decodes the response
// into out when out is non-nil.
func (c *HTTPClient) callJSON(ctx context.Context, op string, in, out any) error {
	auth, err := c.Account(ctx)
	if err != nil {
		return err
	}

	buf, err := json.Marshal(in)
	if err != nil {
		return errors.NewError(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		auth.APIURL+apiPath+op, bytes.NewReader(buf))
	if err != nil {
		return errors.NewError(op, err)
	}
	req.Header.Set("Authorization", auth.AuthorizationToken)
	req.Header.Set("Content-Type", "application/json")
	c.setCommonHeaders(req)

	c.cfg.Logger.Debug("b2: api call", "op", op)

	res, err := c.apiDoer.Do(req)
	if err != nil {
		return errors.NewError(op, c.liftTransient(err))
	}
	if res.StatusCode != http.StatusOK {
		return errors.NewError(op, responseError(res))
	}
	defer res.Body.Close()

	if out == nil {
		io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.NewError(op, err)
	}
	return nil
}

// liftTransient converts a retry-exhausted 5xx marker into an APIError so
// callers see the final response body instead of a bare status.
func (c *HTTPClient) liftTransient(err error) error {
	var tse *transientStatusError
	if stderrors.As(err, &tse) {
		return parseAPIError(tse.Status, tse.Body)
	}
	return err
}

// parseAPIError builds an APIError from a status code and raw error body.
func parseAPIError(status int, body []byte) *errors.APIError {
	apiErr := &errors.APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	apiErr.Status = status
	apiErr.Body = body
	return apiErr
}

// responseError consumes a non-2xx response into an APIError.
func responseError(res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	res.Body.Close()
	return parseAPIError(res.StatusCode, body)
}

// escapeFileName percent-encodes each path segment of a file name while
// keeping the separators, matching the service's header encoding.
func escapeFileName(name string) string {
	segments := strings.Split(name, "/")
	for i := range segments {
		segments[i] = url.PathEscape(segments[i])
	}
	return strings.Join(segments, "/")
}

// CreateBucket implements B2API.
func (c *HTTPClient) CreateBucket(ctx context.Context, in *CreateBucketInput) (*b2types.Bucket, error) {
	out := &b2types.Bucket{}
	if err := c.callJSON(ctx, "b2_create_bucket", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateBucket implements B2API.
func (c *HTTPClient) UpdateBucket(ctx context.Context, in *UpdateBucketInput) (*b2types.Bucket, error) {
	out := &b2types.Bucket{}
	if err := c.callJSON(ctx, "b2_update_bucket", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBucket implements B2API.
func (c *HTTPClient) DeleteBucket(ctx context.Context, in *DeleteBucketInput) (*b2types.Bucket, error) {
	out := &b2types.Bucket{}
	if err := c.callJSON(ctx, "b2_delete_bucket", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBuckets implements B2API.
func (c *HTTPClient) ListBuckets(ctx context.Context, in *ListBucketsInput) (*ListBucketsOutput, error) {
	out := &ListBucketsOutput{}
	if err := c.callJSON(ctx, "b2_list_buckets", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUploadURL implements B2API.
func (c *HTTPClient) GetUploadURL(ctx context.Context, in *GetUploadURLInput) (*b2types.UploadURL, error) {
	out := &b2types.UploadURL{}
	if err := c.callJSON(ctx, "b2_get_upload_url", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadFile implements B2API. The upload POST goes straight to the grant
// URL; a 401 here means the grant expired and the caller must obtain a new
// one, so the account auth-refresh interceptor is not in this path.
func (c *HTTPClient) UploadFile(ctx context.Context, in *UploadFileInput) (*b2types.File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, in.URL, in.Body)
	if err != nil {
		return nil, errors.NewError("uploadFile", err)
	}
	req.ContentLength = in.ContentLength
	if in.GetBody != nil {
		req.GetBody = in.GetBody
	}
	req.Header.Set("Authorization", in.AuthorizationToken)
	req.Header.Set(HeaderFileName, escapeFileName(in.FileName))
	req.Header.Set("Content-Type", in.ContentType)
	req.Header.Set(HeaderContentSha1, in.ContentSha1)
	for k, v := range in.InfoHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range in.ExtraHeaders {
		req.Header.Set(k, v)
	}
	c.setCommonHeaders(req)

	res, err := c.grantDoer.Do(req)
	if err != nil {
		return nil, errors.NewError("uploadFile", c.liftTransient(err))
	}
	if res.StatusCode != http.StatusOK {
		return nil, errors.NewError("uploadFile", responseError(res))
	}
	defer res.Body.Close()

	out := &b2types.File{}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return nil, errors.NewError("uploadFile", err)
	}
	return out, nil
}

// GetFileInfo implements B2API.
func (c *HTTPClient) GetFileInfo(ctx context.Context, in *GetFileInfoInput) (*b2types.File, error) {
	out := &b2types.File{}
	if err := c.callJSON(ctx, "b2_get_file_info", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFileNames implements B2API.
func (c *HTTPClient) ListFileNames(ctx context.Context, in *ListFileNamesInput) (*ListFileNamesOutput, error) {
	out := &ListFileNamesOutput{}
	if err := c.callJSON(ctx, "b2_list_file_names", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFileVersions implements B2API.
func (c *HTTPClient) ListFileVersions(ctx context.Context, in *ListFileVersionsInput) (*ListFileVersionsOutput, error) {
	out := &ListFileVersionsOutput{}
	if err := c.callJSON(ctx, "b2_list_file_versions", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteFileVersion implements B2API.
func (c *HTTPClient) DeleteFileVersion(ctx context.Context, in *DeleteFileVersionInput) (*DeleteFileVersionOutput, error) {
	out := &DeleteFileVersionOutput{}
	if err := c.callJSON(ctx, "b2_delete_file_version", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// HideFile implements B2API.
func (c *HTTPClient) HideFile(ctx context.Context, in *HideFileInput) (*b2types.File, error) {
	out := &b2types.File{}
	if err := c.callJSON(ctx, "b2_hide_file", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CopyFile implements B2API.
func (c *HTTPClient) CopyFile(ctx context.Context, in *CopyFileInput) (*b2types.File, error) {
	out := &b2types.File{}
	if err := c.callJSON(ctx, "b2_copy_file", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DownloadFileByName implements B2API.
func (c *HTTPClient) DownloadFileByName(ctx context.Context, in *DownloadByNameInput) (*DownloadOutput, error) {
	auth, err := c.Account(ctx)
	if err != nil {
		return nil, err
	}
	uri := auth.DownloadURL + "/file/" + url.PathEscape(in.BucketName) + "/" + escapeFileName(in.FileName)
	return c.download(ctx, "downloadFileByName", uri, in.AuthorizationToken, in.Range, in.SSEHeaders)
}

// DownloadFileByID implements B2API.
func (c *HTTPClient) DownloadFileByID(ctx context.Context, in *DownloadByIDInput) (*DownloadOutput, error) {
	auth, err := c.Account(ctx)
	if err != nil {
		return nil, err
	}
	uri := auth.DownloadURL + apiPath + "b2_download_file_by_id?fileId=" + url.QueryEscape(in.FileID)
	return c.download(ctx, "downloadFileByID", uri, in.AuthorizationToken, in.Range, in.SSEHeaders)
}

// download performs an authorized GET of uri. Requests carrying a download
// authorization token skip account auth refresh; a 401 on such a token
// cannot be fixed by re-authorizing the account.
func (c *HTTPClient) download(ctx context.Context, op, uri, token, rangeSpec string, sseHeaders map[string]string) (*DownloadOutput, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errors.NewError(op, err)
	}

	doer := c.apiDoer
	if token == "" {
		token = c.token()
	} else {
		doer = c.grantDoer
	}
	req.Header.Set("Authorization", token)
	if rangeSpec != "" {
		req.Header.Set("Range", rangeSpec)
	}
	for k, v := range sseHeaders {
		req.Header.Set(k, v)
	}
	c.setCommonHeaders(req)

	res, err := doer.Do(req)
	if err != nil {
		return nil, errors.NewError(op, c.liftTransient(err))
	}
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusPartialContent {
		return nil, errors.NewError(op, responseError(res))
	}

	return &DownloadOutput{
		Status:        res.StatusCode,
		Header:        res.Header,
		ContentLength: res.ContentLength,
		Body:          res.Body,
	}, nil
}

// GetDownloadAuthorization implements B2API.
func (c *HTTPClient) GetDownloadAuthorization(ctx context.Context, in *GetDownloadAuthorizationInput) (*b2types.DownloadAuthorization, error) {
	out := &b2types.DownloadAuthorization{}
	if err := c.callJSON(ctx, "b2_get_download_authorization", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateKey implements B2API.
func (c *HTTPClient) CreateKey(ctx context.Context, in *CreateKeyInput) (*b2types.Key, error) {
	out := &b2types.Key{}
	if err := c.callJSON(ctx, "b2_create_key", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteKey implements B2API.
func (c *HTTPClient) DeleteKey(ctx context.Context, in *DeleteKeyInput) (*b2types.Key, error) {
	out := &b2types.Key{}
	if err := c.callJSON(ctx, "b2_delete_key", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListKeys implements B2API.
func (c *HTTPClient) ListKeys(ctx context.Context, in *ListKeysInput) (*ListKeysOutput, error) {
	out := &ListKeysOutput{}
	if err := c.callJSON(ctx, "b2_list_keys", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// StartLargeFile implements B2API.
func (c *HTTPClient) StartLargeFile(ctx context.Context, in *StartLargeFileInput) (*b2types.File, error) {
	out := &b2types.File{}
	if err := c.callJSON(ctx, "b2_start_large_file", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUploadPartURL implements B2API.
func (c *HTTPClient) GetUploadPartURL(ctx context.Context, in *GetUploadPartURLInput) (*b2types.PartUploadURL, error) {
	out := &b2types.PartUploadURL{}
	if err := c.callJSON(ctx, "b2_get_upload_part_url", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadPart implements B2API. Like UploadFile, the POST targets the grant
// URL directly and a 401 surfaces to the caller for grant refresh.
func (c *HTTPClient) UploadPart(ctx context.Context, in *UploadPartInput) (*b2types.Part, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, in.URL, in.Body)
	if err != nil {
		return nil, errors.NewError("uploadPart", err)
	}
	req.ContentLength = in.ContentLength
	if in.GetBody != nil {
		req.GetBody = in.GetBody
	}
	req.Header.Set("Authorization", in.AuthorizationToken)
	req.Header.Set(HeaderPartNumber, strconv.Itoa(in.PartNumber))
	req.Header.Set(HeaderContentSha1, in.ContentSha1)
	for k, v := range in.SSEHeaders {
		req.Header.Set(k, v)
	}
	c.setCommonHeaders(req)

	c.cfg.Logger.Debug("b2: uploading part",
		"partNumber", in.PartNumber, "contentLength", in.ContentLength)

	res, err := c.grantDoer.Do(req)
	if err != nil {
		return nil, errors.NewError("uploadPart", c.liftTransient(err))
	}
	if res.StatusCode != http.StatusOK {
		return nil, errors.NewError("uploadPart", responseError(res))
	}
	defer res.Body.Close()

	out := &b2types.Part{}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return nil, errors.NewError("uploadPart", err)
	}
	return out, nil
}

// CopyPart implements B2API.
func (c *HTTPClient) CopyPart(ctx context.Context, in *CopyPartInput) (*b2types.Part, error) {
	out := &b2types.Part{}
	if err := c.callJSON(ctx, "b2_copy_part", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// FinishLargeFile implements B2API.
func (c *HTTPClient) FinishLargeFile(ctx context.Context, in *FinishLargeFileInput) (*b2types.File, error) {
	out := &b2types.File{}
	if err := c.callJSON(ctx, "b2_finish_large_file", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelLargeFile implements B2API.
func (c *HTTPClient) CancelLargeFile(ctx context.Context, in *CancelLargeFileInput) (*b2types.File, error) {
	out := &b2types.File{}
	if err := c.callJSON(ctx, "b2_cancel_large_file", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListParts implements B2API.
func (c *HTTPClient) ListParts(ctx context.Context, in *ListPartsInput) (*ListPartsOutput, error) {
	out := &ListPartsOutput{}
	if err := c.callJSON(ctx, "b2_list_parts", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListUnfinishedLargeFiles implements B2API.
func (c *HTTPClient) ListUnfinishedLargeFiles(ctx context.Context, in *ListUnfinishedLargeFilesInput) (*ListUnfinishedLargeFilesOutput, error) {
	out := &ListUnfinishedLargeFilesOutput{}
	if err := c.callJSON(ctx, "b2_list_unfinished_large_files", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// String implements fmt.Stringer for debugging without leaking credentials.
func (c *HTTPClient) String() string {
	return fmt.Sprintf("b2api.HTTPClient(keyID=%s)", c.cfg.KeyID)
}
