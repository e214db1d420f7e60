package b2api

import (
	"context"
	"io"
	"net/http"

	"github.com/guregu/null/v6"

	"github.com/cplaiasu/b2/b2types"
)

// B2API is the surface of the B2 native API consumed by the SDK, one method
// per endpoint. The concrete implementation is HTTPClient; tests substitute
// a mock.
type B2API interface {
	// Account returns the current account authorization, authorizing lazily
	// on first use.
	Account(ctx context.Context) (b2types.AccountAuth, error)

	// Buckets
	CreateBucket(ctx context.Context, in *CreateBucketInput) (*b2types.Bucket, error)
	UpdateBucket(ctx context.Context, in *UpdateBucketInput) (*b2types.Bucket, error)
	DeleteBucket(ctx context.Context, in *DeleteBucketInput) (*b2types.Bucket, error)
	ListBuckets(ctx context.Context, in *ListBucketsInput) (*ListBucketsOutput, error)

	// Files
	GetUploadURL(ctx context.Context, in *GetUploadURLInput) (*b2types.UploadURL, error)
	UploadFile(ctx context.Context, in *UploadFileInput) (*b2types.File, error)
	GetFileInfo(ctx context.Context, in *GetFileInfoInput) (*b2types.File, error)
	ListFileNames(ctx context.Context, in *ListFileNamesInput) (*ListFileNamesOutput, error)
	ListFileVersions(ctx context.Context, in *ListFileVersionsInput) (*ListFileVersionsOutput, error)
	DeleteFileVersion(ctx context.Context, in *DeleteFileVersionInput) (*DeleteFileVersionOutput, error)
	HideFile(ctx context.Context, in *HideFileInput) (*b2types.File, error)
	CopyFile(ctx context.Context, in *CopyFileInput) (*b2types.File, error)

	// Downloads
	DownloadFileByName(ctx context.Context, in *DownloadByNameInput) (*DownloadOutput, error)
	DownloadFileByID(ctx context.Context, in *DownloadByIDInput) (*DownloadOutput, error)
	GetDownloadAuthorization(ctx context.Context, in *GetDownloadAuthorizationInput) (*b2types.DownloadAuthorization, error)

	// Application keys
	CreateKey(ctx context.Context, in *CreateKeyInput) (*b2types.Key, error)
	DeleteKey(ctx context.Context, in *DeleteKeyInput) (*b2types.Key, error)
	ListKeys(ctx context.Context, in *ListKeysInput) (*ListKeysOutput, error)

	// Large files
	StartLargeFile(ctx context.Context, in *StartLargeFileInput) (*b2types.File, error)
	GetUploadPartURL(ctx context.Context, in *GetUploadPartURLInput) (*b2types.PartUploadURL, error)
	UploadPart(ctx context.Context, in *UploadPartInput) (*b2types.Part, error)
	CopyPart(ctx context.Context, in *CopyPartInput) (*b2types.Part, error)
	FinishLargeFile(ctx context.Context, in *FinishLargeFileInput) (*b2types.File, error)
	CancelLargeFile(ctx context.Context, in *CancelLargeFileInput) (*b2types.File, error)
	ListParts(ctx context.Context, in *ListPartsInput) (*ListPartsOutput, error)
	ListUnfinishedLargeFiles(ctx context.Context, in *ListUnfinishedLargeFilesInput) (*ListUnfinishedLargeFilesOutput, error)
}

// CreateBucketInput is the request body for b2_create_bucket.
type CreateBucketInput struct {
	AccountID      string                  `json:"accountId"`
	BucketName     string                  `json:"bucketName"`
	BucketType     string                  `json:"bucketType"`
	BucketInfo     map[string]string       `json:"bucketInfo,omitempty"`
	CorsRules      []b2types.CorsRule      `json:"corsRules,omitempty"`
	LifecycleRules []b2types.LifecycleRule `json:"lifecycleRules,omitempty"`
}

// UpdateBucketInput is the request body for b2_update_bucket.
// Unset optional fields are omitted so the service leaves them unchanged.
type UpdateBucketInput struct {
	AccountID      string                  `json:"accountId"`
	BucketID       string                  `json:"bucketId"`
	BucketType     string                  `json:"bucketType,omitempty"`
	BucketInfo     map[string]string       `json:"bucketInfo,omitempty"`
	CorsRules      []b2types.CorsRule      `json:"corsRules,omitempty"`
	LifecycleRules []b2types.LifecycleRule `json:"lifecycleRules,omitempty"`
	IfRevisionIs   null.Int64              `json:"ifRevisionIs,omitzero"`
}

// DeleteBucketInput is the request body for b2_delete_bucket.
type DeleteBucketInput struct {
	AccountID string `json:"accountId"`
	BucketID  string `json:"bucketId"`
}

// ListBucketsInput is the request body for b2_list_buckets.
type ListBucketsInput struct {
	AccountID   string      `json:"accountId"`
	BucketID    null.String `json:"bucketId,omitzero"`
	BucketName  null.String `json:"bucketName,omitzero"`
	BucketTypes []string    `json:"bucketTypes,omitempty"`
}

// ListBucketsOutput is the response body of b2_list_buckets.
type ListBucketsOutput struct {
	Buckets []b2types.Bucket `json:"buckets"`
}

// GetUploadURLInput is the request body for b2_get_upload_url.
type GetUploadURLInput struct {
	BucketID string `json:"bucketId"`
}

// UploadFileInput describes a binary upload POST to an upload URL grant.
// It is not a JSON body; the metadata travels as headers.
type UploadFileInput struct {
	URL                string
	AuthorizationToken string

	// FileName is the raw name; the transport percent-encodes it
	FileName      string
	ContentType   string
	ContentLength int64
	ContentSha1   string

	// InfoHeaders are prebuilt X-Bz-Info-* headers
	InfoHeaders map[string]string

	// ExtraHeaders carry legal hold, retention, and encryption headers
	ExtraHeaders map[string]string

	Body io.Reader

	// GetBody, when set, allows the transport to replay the body on retry
	GetBody func() (io.ReadCloser, error)
}

// GetFileInfoInput is the request body for b2_get_file_info.
type GetFileInfoInput struct {
	FileID string `json:"fileId"`
}

// ListFileNamesInput is the request body for b2_list_file_names.
type ListFileNamesInput struct {
	BucketID      string      `json:"bucketId"`
	StartFileName null.String `json:"startFileName,omitzero"`
	MaxFileCount  int         `json:"maxFileCount,omitempty"`
	Prefix        null.String `json:"prefix,omitzero"`
	Delimiter     null.String `json:"delimiter,omitzero"`
}

// ListFileNamesOutput is the response body of b2_list_file_names.
type ListFileNamesOutput struct {
	Files        []b2types.File `json:"files"`
	NextFileName null.String    `json:"nextFileName"`
}

// ListFileVersionsInput is the request body for b2_list_file_versions.
type ListFileVersionsInput struct {
	BucketID      string      `json:"bucketId"`
	StartFileName null.String `json:"startFileName,omitzero"`
	StartFileID   null.String `json:"startFileId,omitzero"`
	MaxFileCount  int         `json:"maxFileCount,omitempty"`
	Prefix        null.String `json:"prefix,omitzero"`
	Delimiter     null.String `json:"delimiter,omitzero"`
}

// ListFileVersionsOutput is the response body of b2_list_file_versions.
type ListFileVersionsOutput struct {
	Files        []b2types.File `json:"files"`
	NextFileName null.String    `json:"nextFileName"`
	NextFileID   null.String    `json:"nextFileId"`
}

// DeleteFileVersionInput is the request body for b2_delete_file_version.
type DeleteFileVersionInput struct {
	FileName         string `json:"fileName"`
	FileID           string `json:"fileId"`
	BypassGovernance bool   `json:"bypassGovernance,omitempty"`
}

// DeleteFileVersionOutput is the response body of b2_delete_file_version.
type DeleteFileVersionOutput struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
}

// HideFileInput is the request body for b2_hide_file.
type HideFileInput struct {
	BucketID string `json:"bucketId"`
	FileName string `json:"fileName"`
}

// CopyFileInput is the request body for b2_copy_file.
type CopyFileInput struct {
	SourceFileID        string                        `json:"sourceFileId"`
	FileName            string                        `json:"fileName"`
	DestinationBucketID null.String                   `json:"destinationBucketId,omitzero"`
	Range               null.String                   `json:"range,omitzero"`
	MetadataDirective   string                        `json:"metadataDirective,omitempty"`
	ContentType         null.String                   `json:"contentType,omitzero"`
	FileInfo            map[string]string             `json:"fileInfo,omitempty"`
	SourceSSE           *b2types.ServerSideEncryption `json:"sourceServerSideEncryption,omitempty"`
	DestSSE             *b2types.ServerSideEncryption `json:"destinationServerSideEncryption,omitempty"`
}

// DownloadByNameInput describes a GET of /file/<bucket>/<name>.
type DownloadByNameInput struct {
	BucketName string
	FileName   string
	Range      string
	// AuthorizationToken overrides the account token, for download
	// authorization tokens; empty uses the account token
	AuthorizationToken string
	SSEHeaders         map[string]string
}

// DownloadByIDInput describes a GET of b2_download_file_by_id.
type DownloadByIDInput struct {
	FileID             string
	Range              string
	AuthorizationToken string
	SSEHeaders         map[string]string
}

// DownloadOutput is a raw download response: headers plus the content stream.
// The caller owns closing Body.
type DownloadOutput struct {
	Status        int
	Header        http.Header
	ContentLength int64
	Body          io.ReadCloser
}

// GetDownloadAuthorizationInput is the request body for b2_get_download_authorization.
type GetDownloadAuthorizationInput struct {
	BucketID               string `json:"bucketId"`
	FileNamePrefix         string `json:"fileNamePrefix"`
	ValidDurationInSeconds int64  `json:"validDurationInSeconds"`
}

// CreateKeyInput is the request body for b2_create_key.
type CreateKeyInput struct {
	AccountID              string      `json:"accountId"`
	Capabilities           []string    `json:"capabilities"`
	KeyName                string      `json:"keyName"`
	ValidDurationInSeconds null.Int64  `json:"validDurationInSeconds,omitzero"`
	BucketID               null.String `json:"bucketId,omitzero"`
	NamePrefix             null.String `json:"namePrefix,omitzero"`
}

// DeleteKeyInput is the request body for b2_delete_key.
type DeleteKeyInput struct {
	ApplicationKeyID string `json:"applicationKeyId"`
}

// ListKeysInput is the request body for b2_list_keys.
type ListKeysInput struct {
	AccountID             string      `json:"accountId"`
	MaxKeyCount           int         `json:"maxKeyCount,omitempty"`
	StartApplicationKeyID null.String `json:"startApplicationKeyId,omitzero"`
}

// ListKeysOutput is the response body of b2_list_keys.
type ListKeysOutput struct {
	Keys                 []b2types.Key `json:"keys"`
	NextApplicationKeyID null.String   `json:"nextApplicationKeyId"`
}

// StartLargeFileInput is the request body for b2_start_large_file.
type StartLargeFileInput struct {
	BucketID      string                        `json:"bucketId"`
	FileName      string                        `json:"fileName"`
	ContentType   string                        `json:"contentType"`
	FileInfo      map[string]string             `json:"fileInfo,omitempty"`
	FileRetention *b2types.RetentionSetting     `json:"fileRetention,omitempty"`
	LegalHold     null.String                   `json:"legalHold,omitzero"`
	SSE           *b2types.ServerSideEncryption `json:"serverSideEncryption,omitempty"`
}

// GetUploadPartURLInput is the request body for b2_get_upload_part_url.
type GetUploadPartURLInput struct {
	FileID string `json:"fileId"`
}

// UploadPartInput describes a binary part upload POST to a part URL grant.
// It is not a JSON body; the part metadata travels as headers.
type UploadPartInput struct {
	URL                string
	AuthorizationToken string

	PartNumber    int
	ContentLength int64
	ContentSha1   string

	// SSEHeaders carry SSE-C headers when the large file uses a customer key
	SSEHeaders map[string]string

	Body io.Reader

	// GetBody, when set, allows the transport to replay the body on retry
	GetBody func() (io.ReadCloser, error)
}

// CopyPartInput is the request body for b2_copy_part.
type CopyPartInput struct {
	SourceFileID string                        `json:"sourceFileId"`
	LargeFileID  string                        `json:"largeFileId"`
	PartNumber   int                           `json:"partNumber"`
	Range        null.String                   `json:"range,omitzero"`
	SourceSSE    *b2types.ServerSideEncryption `json:"sourceServerSideEncryption,omitempty"`
	DestSSE      *b2types.ServerSideEncryption `json:"destinationServerSideEncryption,omitempty"`
}

// FinishLargeFileInput is the request body for b2_finish_large_file.
// PartSha1Array must hold the part hashes in ascending part number order.
type FinishLargeFileInput struct {
	FileID        string   `json:"fileId"`
	PartSha1Array []string `json:"partSha1Array"`
}

// CancelLargeFileInput is the request body for b2_cancel_large_file.
type CancelLargeFileInput struct {
	FileID string `json:"fileId"`
}

// ListPartsInput is the request body for b2_list_parts.
type ListPartsInput struct {
	FileID          string     `json:"fileId"`
	StartPartNumber null.Int64 `json:"startPartNumber,omitzero"`
	MaxPartCount    int        `json:"maxPartCount,omitempty"`
}

// ListPartsOutput is the response body of b2_list_parts.
type ListPartsOutput struct {
	Parts          []b2types.Part `json:"parts"`
	NextPartNumber null.Int64     `json:"nextPartNumber"`
}

// ListUnfinishedLargeFilesInput is the request body for b2_list_unfinished_large_files.
type ListUnfinishedLargeFilesInput struct {
	BucketID     string      `json:"bucketId"`
	NamePrefix   null.String `json:"namePrefix,omitzero"`
	StartFileID  null.String `json:"startFileId,omitzero"`
	MaxFileCount int         `json:"maxFileCount,omitempty"`
}

// ListUnfinishedLargeFilesOutput is the response body of b2_list_unfinished_large_files.
type ListUnfinishedLargeFilesOutput struct {
	Files      []b2types.File `json:"files"`
	NextFileID null.String    `json:"nextFileId"`
}
