package b2

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/guregu/null/v6"
	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/cplaiasu/b2/b2types"
)

// WithHTTPClient sets a custom HTTP client for all requests.
func WithHTTPClient(client *http.Client) b2types.Option {
	return func(cfg *b2types.ClientConfig) {
		cfg.HTTPClient = client
	}
}

// WithMaxRetries bounds transport retries for transient failures.
func WithMaxRetries(n int) b2types.Option {
	return func(cfg *b2types.ClientConfig) {
		cfg.MaxRetries = n
	}
}

// WithRetryInterval sets the base interval of the linear retry backoff;
// the nth retry waits n times this interval.
func WithRetryInterval(d time.Duration) b2types.Option {
	return func(cfg *b2types.ClientConfig) {
		cfg.RetryInterval = d
	}
}

// WithLogger attaches a structured logger. Without one the client is silent.
func WithLogger(logger *slog.Logger) b2types.Option {
	return func(cfg *b2types.ClientConfig) {
		cfg.Logger = logger
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) b2types.Option {
	return func(cfg *b2types.ClientConfig) {
		cfg.UserAgent = ua
	}
}

// WithAuthHost overrides the account authorization endpoint, mainly for
// pointing the client at a test server.
func WithAuthHost(host string) b2types.Option {
	return func(cfg *b2types.ClientConfig) {
		cfg.AuthHost = host
	}
}

// WithGrantPoolSize bounds how many part upload URLs a large file session
// keeps for reuse.
func WithGrantPoolSize(n int) b2types.Option {
	return func(cfg *b2types.ClientConfig) {
		cfg.GrantPoolSize = n
	}
}

// WithPartSize overrides the service-recommended part size used by
// UploadLargeFile when splitting a source into parts.
func WithPartSize(size int64) b2types.Option {
	return func(cfg *b2types.ClientConfig) {
		cfg.PartSize = size
	}
}

// WithFilesystem sets the filesystem abstraction used by path-based
// helpers such as UploadFileFrom.
func WithFilesystem(filesystem fs.Filesystem) b2types.Option {
	return func(cfg *b2types.ClientConfig) {
		cfg.Filesystem = filesystem
	}
}

// WithContentType sets an explicit content type for an upload. Without it
// the client sniffs the type from the content and file name.
func WithContentType(contentType string) b2types.UploadOption {
	return func(cfg *b2types.UploadOptionConfig) {
		cfg.ContentType = contentType
	}
}

// WithCustomInfo attaches custom file info to an upload.
func WithCustomInfo(info b2types.CustomInfo) b2types.UploadOption {
	return func(cfg *b2types.UploadOptionConfig) {
		cfg.CustomInfo = info
	}
}

// WithContentSha1 supplies a precomputed content checksum, skipping local
// hashing of the upload body.
func WithContentSha1(sha string) b2types.UploadOption {
	return func(cfg *b2types.UploadOptionConfig) {
		cfg.ContentSha1 = sha
	}
}

// WithLastModified records the source modification time in the standard
// src_last_modified_millis info entry.
func WithLastModified(t time.Time) b2types.UploadOption {
	return func(cfg *b2types.UploadOptionConfig) {
		cfg.LastModified = t
	}
}

// WithLegalHold sets the legal hold flag on an upload ("on" or "off").
func WithLegalHold(value string) b2types.UploadOption {
	return func(cfg *b2types.UploadOptionConfig) {
		cfg.LegalHold = null.StringFrom(value)
	}
}

// WithRetention sets the retention mode and period on an upload.
func WithRetention(r *b2types.RetentionSetting) b2types.UploadOption {
	return func(cfg *b2types.UploadOptionConfig) {
		cfg.Retention = r
	}
}

// WithSSE sets server-side encryption parameters on an upload.
func WithSSE(sse *b2types.ServerSideEncryption) b2types.UploadOption {
	return func(cfg *b2types.UploadOptionConfig) {
		cfg.SSE = sse
	}
}

// WithRange restricts a download to a byte range, e.g. "bytes=0-99".
func WithRange(spec string) b2types.DownloadOption {
	return func(cfg *b2types.DownloadOptionConfig) {
		cfg.RangeSpec = spec
	}
}

// WithDownloadSSE supplies the customer key for downloading SSE-C content.
func WithDownloadSSE(sse *b2types.ServerSideEncryption) b2types.DownloadOption {
	return func(cfg *b2types.DownloadOptionConfig) {
		cfg.SSE = sse
	}
}

// WithPrefix restricts a file listing to names under a prefix.
func WithPrefix(prefix string) b2types.ListOption {
	return func(cfg *b2types.ListOptionConfig) {
		cfg.Prefix = prefix
	}
}

// WithDelimiter folds file names at the delimiter into folder entries.
func WithDelimiter(delimiter string) b2types.ListOption {
	return func(cfg *b2types.ListOptionConfig) {
		cfg.Delimiter = delimiter
	}
}

// WithStartFileName starts a file listing at the given name.
func WithStartFileName(name string) b2types.ListOption {
	return func(cfg *b2types.ListOptionConfig) {
		cfg.StartFileName = name
	}
}

// WithStartFileID starts a version listing at the given file ID; only
// meaningful together with WithStartFileName.
func WithStartFileID(id string) b2types.ListOption {
	return func(cfg *b2types.ListOptionConfig) {
		cfg.StartFileID = id
	}
}

// WithMaxFileCount caps the page size of a file listing.
func WithMaxFileCount(n int) b2types.ListOption {
	return func(cfg *b2types.ListOptionConfig) {
		cfg.MaxFileCount = n
	}
}

// WithBucketInfo attaches bucket info entries on create or update.
func WithBucketInfo(info map[string]string) b2types.BucketOption {
	return func(cfg *b2types.BucketOptionConfig) {
		cfg.BucketInfo = info
	}
}

// WithCorsRules sets the bucket CORS rules on create or update.
func WithCorsRules(rules []b2types.CorsRule) b2types.BucketOption {
	return func(cfg *b2types.BucketOptionConfig) {
		cfg.CorsRules = rules
	}
}

// WithLifecycleRules sets the bucket lifecycle rules on create or update.
func WithLifecycleRules(rules []b2types.LifecycleRule) b2types.BucketOption {
	return func(cfg *b2types.BucketOptionConfig) {
		cfg.LifecycleRules = rules
	}
}

// WithIfRevisionIs guards a bucket update against concurrent modification;
// the update fails if the stored revision differs.
func WithIfRevisionIs(revision int64) b2types.BucketOption {
	return func(cfg *b2types.BucketOptionConfig) {
		cfg.IfRevisionIs = null.IntFrom(revision)
	}
}

// WithKeyDuration limits a new application key's lifetime.
func WithKeyDuration(d time.Duration) b2types.KeyOption {
	return func(cfg *b2types.KeyOptionConfig) {
		cfg.ValidDuration = d
	}
}

// WithKeyBucket restricts a new application key to one bucket.
func WithKeyBucket(bucketID string) b2types.KeyOption {
	return func(cfg *b2types.KeyOptionConfig) {
		cfg.BucketID = bucketID
	}
}

// WithKeyNamePrefix restricts a new application key to file names under a
// prefix.
func WithKeyNamePrefix(prefix string) b2types.KeyOption {
	return func(cfg *b2types.KeyOptionConfig) {
		cfg.NamePrefix = prefix
	}
}

// WithCopyDestinationBucket copies into a different bucket than the source.
func WithCopyDestinationBucket(bucketID string) b2types.CopyOption {
	return func(cfg *b2types.CopyOptionConfig) {
		cfg.DestinationBucketID = bucketID
	}
}

// WithCopyRange copies only a byte range of the source file.
func WithCopyRange(spec string) b2types.CopyOption {
	return func(cfg *b2types.CopyOptionConfig) {
		cfg.RangeSpec = spec
	}
}

// WithCopyMetadata replaces the metadata on the copy instead of carrying
// the source's over.
func WithCopyMetadata(contentType string, info b2types.CustomInfo) b2types.CopyOption {
	return func(cfg *b2types.CopyOptionConfig) {
		cfg.ContentType = contentType
		cfg.CustomInfo = info
	}
}

// WithCopyPartRange copies only a byte range of the source into the part.
func WithCopyPartRange(spec string) b2types.CopyPartOption {
	return func(cfg *b2types.CopyPartOptionConfig) {
		cfg.RangeSpec = spec
	}
}

// WithStartPartNumber starts a part listing at the given part number.
func WithStartPartNumber(n int) b2types.ListPartsOption {
	return func(cfg *b2types.ListPartsOptionConfig) {
		cfg.StartPartNumber = n
	}
}

// WithMaxPartCount caps the page size of a part listing.
func WithMaxPartCount(n int) b2types.ListPartsOption {
	return func(cfg *b2types.ListPartsOptionConfig) {
		cfg.MaxPartCount = n
	}
}

// WithUnfinishedNamePrefix restricts an unfinished large file listing to
// names under a prefix.
func WithUnfinishedNamePrefix(prefix string) b2types.ListUnfinishedOption {
	return func(cfg *b2types.ListUnfinishedOptionConfig) {
		cfg.NamePrefix = prefix
	}
}

// WithUnfinishedStartFileID starts an unfinished large file listing at the
// given file ID.
func WithUnfinishedStartFileID(id string) b2types.ListUnfinishedOption {
	return func(cfg *b2types.ListUnfinishedOptionConfig) {
		cfg.StartFileID = id
	}
}

// WithUnfinishedMaxCount caps the page size of an unfinished large file
// listing.
func WithUnfinishedMaxCount(n int) b2types.ListUnfinishedOption {
	return func(cfg *b2types.ListUnfinishedOptionConfig) {
		cfg.MaxFileCount = n
	}
}
