// Package b2types provides configuration types for functional options.
package b2types

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/guregu/null/v6"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
)

// ClientConfig holds configuration for the B2 client.
type ClientConfig struct {
	// AuthHost overrides the account authorization host, mainly for tests
	AuthHost string

	// HTTPClient performs all HTTP calls; defaults to http.DefaultClient
	HTTPClient *http.Client

	// MaxRetries bounds transport retries for transient failures
	MaxRetries int

	// RetryInterval is the base interval for linear retry backoff
	// (delay = attempt count x interval)
	RetryInterval time.Duration

	// Logger receives debug and retry logging; defaults to a discard logger
	Logger *slog.Logger

	// UserAgent is sent with every request
	UserAgent string

	// GrantPoolSize bounds the number of part upload URLs kept for reuse
	GrantPoolSize int

	// PartSize overrides the service-recommended part size for helpers
	// that split files into parts
	PartSize int64

	// Filesystem is the filesystem abstraction for file-path helpers
	Filesystem fs.Filesystem
}

// UploadOptionConfig holds configuration for upload operations via functional options.
type UploadOptionConfig struct {
	ContentType string
	CustomInfo  CustomInfo
	// ContentSha1 lets the caller supply a precomputed hash and skip local hashing
	ContentSha1 string
	// LastModified populates the src_last_modified_millis info entry
	LastModified time.Time
	LegalHold    null.String
	Retention    *RetentionSetting
	SSE          *ServerSideEncryption
}

// DownloadOptionConfig holds configuration for download operations via functional options.
type DownloadOptionConfig struct {
	// RangeSpec is an HTTP Range header value such as "bytes=0-99"
	RangeSpec string
	SSE       *ServerSideEncryption
}

// ListOptionConfig holds configuration for file listing operations via functional options.
type ListOptionConfig struct {
	Prefix        string
	Delimiter     string
	StartFileName string
	StartFileID   string
	MaxFileCount  int
}

// BucketOptionConfig holds configuration for bucket operations via functional options.
type BucketOptionConfig struct {
	BucketInfo     map[string]string
	CorsRules      []CorsRule
	LifecycleRules []LifecycleRule
	// IfRevisionIs guards updates against concurrent modification
	IfRevisionIs null.Int64
}

// KeyOptionConfig holds configuration for application key creation via functional options.
type KeyOptionConfig struct {
	ValidDuration time.Duration
	BucketID      string
	NamePrefix    string
}

// CopyOptionConfig holds configuration for server-side file copies via functional options.
type CopyOptionConfig struct {
	DestinationBucketID string
	RangeSpec           string
	// ContentType set along with CustomInfo replaces metadata on the copy;
	// leaving both unset copies the source metadata
	ContentType string
	CustomInfo  CustomInfo
	SourceSSE   *ServerSideEncryption
	DestSSE     *ServerSideEncryption
}

// CopyPartOptionConfig holds configuration for server-side part copies via functional options.
type CopyPartOptionConfig struct {
	RangeSpec string
	SourceSSE *ServerSideEncryption
	DestSSE   *ServerSideEncryption
}

// ListPartsOptionConfig holds configuration for part listing via functional options.
type ListPartsOptionConfig struct {
	StartPartNumber int
	MaxPartCount    int
}

// ListUnfinishedOptionConfig holds configuration for unfinished large file
// listing via functional options.
type ListUnfinishedOptionConfig struct {
	NamePrefix   string
	StartFileID  string
	MaxFileCount int
}

// Option is a functional option for configuring the B2 client.
type (
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring upload operations.
	UploadOption func(*UploadOptionConfig)
	// DownloadOption is a functional option for configuring download operations.
	DownloadOption func(*DownloadOptionConfig)
	// ListOption is a functional option for configuring file listing operations.
	ListOption func(*ListOptionConfig)
	// BucketOption is a functional option for configuring bucket operations.
	BucketOption func(*BucketOptionConfig)
	// KeyOption is a functional option for configuring key creation.
	KeyOption func(*KeyOptionConfig)
	// CopyOption is a functional option for configuring file copies.
	CopyOption func(*CopyOptionConfig)
	// CopyPartOption is a functional option for configuring part copies.
	CopyPartOption func(*CopyPartOptionConfig)
	// ListPartsOption is a functional option for configuring part listing.
	ListPartsOption func(*ListPartsOptionConfig)
	// ListUnfinishedOption is a functional option for configuring unfinished
	// large file listing.
	ListUnfinishedOption func(*ListUnfinishedOptionConfig)
)
