// Package b2types provides shared type definitions for the B2 module.
package b2types

import (
	"encoding/json"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/cplaiasu/b2/errors"
)

// ContentTypeAuto asks the service to pick a content type from the file
// name and contents instead of the caller supplying one.
const ContentTypeAuto = "b2/x-auto"

// MaxCustomInfoEntries is the maximum number of custom file info pairs a
// single file may carry.
const MaxCustomInfoEntries = 10

// customInfoHeaderPrefix is the transport header prefix for file info pairs.
const customInfoHeaderPrefix = "X-Bz-Info-"

// Bucket types accepted by the service.
const (
	// BucketTypeAllPrivate requires an authorization token for downloads
	BucketTypeAllPrivate = "allPrivate"

	// BucketTypeAllPublic allows anonymous downloads
	BucketTypeAllPublic = "allPublic"

	// BucketTypeSnapshot is reserved for account snapshots
	BucketTypeSnapshot = "snapshot"
)

// File actions reported by the service.
const (
	// ActionUpload marks a finished file
	ActionUpload = "upload"

	// ActionStart marks an unfinished large file
	ActionStart = "start"

	// ActionHide marks a hide marker
	ActionHide = "hide"

	// ActionFolder marks a virtual folder in file name listings
	ActionFolder = "folder"
)

// CustomInfo is user-supplied metadata attached to a file, capped at
// MaxCustomInfoEntries pairs. The cap is enforced on construction and on
// every insert; a failed insert never mutates the collection.
type CustomInfo struct {
	entries map[string]string
}

// NewCustomInfo builds a CustomInfo from a plain map.
// It fails with ErrCustomInfoTooLarge when the map holds more than
// MaxCustomInfoEntries pairs.
func NewCustomInfo(m map[string]string) (CustomInfo, error) {
	if len(m) > MaxCustomInfoEntries {
		return CustomInfo{}, errors.NewError("newCustomInfo", errors.ErrCustomInfoTooLarge)
	}
	ci := CustomInfo{entries: make(map[string]string, len(m))}
	for k, v := range m {
		ci.entries[k] = v
	}
	return ci, nil
}

// Set inserts or replaces one pair. Inserting a new key beyond the cap fails
// without mutating the collection.
func (c *CustomInfo) Set(key, value string) error {
	if c.entries == nil {
		c.entries = make(map[string]string, 1)
	}
	if _, exists := c.entries[key]; !exists && len(c.entries) >= MaxCustomInfoEntries {
		return errors.NewError("customInfo.set", errors.ErrCustomInfoTooLarge).
			WithMessage("cannot insert key " + key)
	}
	c.entries[key] = value
	return nil
}

// Get returns the value for key and whether it is present.
func (c CustomInfo) Get(key string) (string, bool) {
	v, ok := c.entries[key]
	return v, ok
}

// Len returns the number of pairs.
func (c CustomInfo) Len() int {
	return len(c.entries)
}

// Map returns a copy of the pairs as a plain map. Returns nil when empty.
func (c CustomInfo) Map() map[string]string {
	if len(c.entries) == 0 {
		return nil
	}
	m := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		m[k] = v
	}
	return m
}

// Headers renders the pairs as transport headers: one X-Bz-Info-<key> header
// per pair with a percent-encoded value.
func (c CustomInfo) Headers() map[string]string {
	if len(c.entries) == 0 {
		return nil
	}
	h := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		h[customInfoHeaderPrefix+k] = url.PathEscape(v)
	}
	return h
}

// CustomInfoFromHeaders rebuilds a CustomInfo from response headers, the
// inverse of Headers.
func CustomInfoFromHeaders(headers map[string][]string) (CustomInfo, error) {
	var ci CustomInfo
	for k, vals := range headers {
		if !strings.HasPrefix(k, customInfoHeaderPrefix) || len(vals) == 0 {
			continue
		}
		val, err := url.PathUnescape(vals[0])
		if err != nil {
			val = vals[0]
		}
		// the service stores info keys lowercased; header transport
		// canonicalization must not resurface them capitalized
		key := strings.ToLower(strings.TrimPrefix(k, customInfoHeaderPrefix))
		if err := ci.Set(key, val); err != nil {
			return CustomInfo{}, err
		}
	}
	return ci, nil
}

// MarshalJSON renders the pairs as a plain JSON object.
func (c CustomInfo) MarshalJSON() ([]byte, error) {
	if c.entries == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.entries)
}

// UnmarshalJSON parses a plain JSON object, enforcing the entry cap.
func (c *CustomInfo) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	ci, err := NewCustomInfo(m)
	if err != nil {
		return err
	}
	*c = ci
	return nil
}

// LegalHold is the legal hold state of a file as reported by the service.
type LegalHold struct {
	// IsClientAuthorizedToRead reports whether the current key may read the value
	IsClientAuthorizedToRead bool `json:"isClientAuthorizedToRead"`

	// Value is "on" or "off"; null when the key is not authorized to read it
	Value null.String `json:"value"`
}

// RetentionSetting is a file retention mode and deadline.
type RetentionSetting struct {
	// Mode is "governance" or "compliance"; null when unset
	Mode null.String `json:"mode"`

	// RetainUntilTimestamp is the retention deadline in unix milliseconds
	RetainUntilTimestamp null.Int64 `json:"retainUntilTimestamp"`
}

// FileRetention is the retention state of a file as reported by the service.
type FileRetention struct {
	// IsClientAuthorizedToRead reports whether the current key may read the value
	IsClientAuthorizedToRead bool `json:"isClientAuthorizedToRead"`

	// Value holds the retention setting; null when the key may not read it
	Value *RetentionSetting `json:"value"`
}

// ServerSideEncryption describes how file contents are encrypted at rest.
// Mode "SSE-B2" uses service-managed keys; "SSE-C" uses a customer key
// supplied as a base64 string with its MD5.
type ServerSideEncryption struct {
	Mode           string `json:"mode"`
	Algorithm      string `json:"algorithm,omitempty"`
	CustomerKey    string `json:"customerKey,omitempty"`
	CustomerKeyMd5 string `json:"customerKeyMd5,omitempty"`
}

// File is an immutable snapshot of a stored file as returned by each
// operation. Identity is FileID once assigned by the service.
type File struct {
	// Action is the file state: "upload", "start", "hide", or "folder"
	Action string `json:"action"`

	// AccountID is the owning account
	AccountID string `json:"accountId,omitempty"`

	// BucketID is the containing bucket
	BucketID string `json:"bucketId"`

	// FileID is the service-assigned identity of the file
	FileID string `json:"fileId"`

	// FileName is the full name within the bucket
	FileName string `json:"fileName"`

	// ContentLength is the file size in bytes
	ContentLength int64 `json:"contentLength"`

	// ContentType is the MIME type stored with the file
	ContentType string `json:"contentType"`

	// ContentSha1 is the hex SHA-1 of the contents; "none" for large files
	ContentSha1 string `json:"contentSha1"`

	// ContentMd5 is the hex MD5 of the contents when the service computed one
	ContentMd5 null.String `json:"contentMd5,omitzero"`

	// FileInfo is the custom metadata attached at upload time
	FileInfo CustomInfo `json:"fileInfo"`

	// LegalHold is the legal hold state, when reported
	LegalHold *LegalHold `json:"legalHold,omitempty"`

	// FileRetention is the retention state, when reported
	FileRetention *FileRetention `json:"fileRetention,omitempty"`

	// ServerSideEncryption describes at-rest encryption, when reported
	ServerSideEncryption *ServerSideEncryption `json:"serverSideEncryption,omitempty"`

	// UploadTimestamp is when the file was uploaded, unix milliseconds
	UploadTimestamp int64 `json:"uploadTimestamp"`
}

// UploadedAt returns the upload timestamp as a time.Time.
func (f *File) UploadedAt() time.Time {
	return time.UnixMilli(f.UploadTimestamp)
}

// Part is one uploaded byte range of a large file.
type Part struct {
	// FileID is the large file the part belongs to
	FileID string `json:"fileId"`

	// PartNumber is the caller-assigned position, 1 through 10000
	PartNumber int `json:"partNumber"`

	// ContentLength is the part size in bytes
	ContentLength int64 `json:"contentLength"`

	// ContentSha1 is the hex SHA-1 of the part contents
	ContentSha1 string `json:"contentSha1"`

	// UploadTimestamp is when the part was stored, unix milliseconds
	UploadTimestamp int64 `json:"uploadTimestamp,omitempty"`
}

// UploadURL is a short-lived URL and token pair authorizing single-call
// file uploads into a bucket.
type UploadURL struct {
	BucketID           string `json:"bucketId"`
	UploadURL          string `json:"uploadUrl"`
	AuthorizationToken string `json:"authorizationToken"`
}

// PartUploadURL is a short-lived URL and token pair authorizing part
// uploads for one large file. It expires server-side after inactivity;
// expiry is handled by requesting a fresh one.
type PartUploadURL struct {
	FileID             string `json:"fileId"`
	UploadURL          string `json:"uploadUrl"`
	AuthorizationToken string `json:"authorizationToken"`
}

// Download is a downloaded file: the metadata recovered from response
// headers plus the content stream. The caller owns closing Body.
type Download struct {
	File File
	Body io.ReadCloser
}

// LifecycleRule controls automatic hiding and deletion of files by prefix.
type LifecycleRule struct {
	DaysFromHidingToDeleting  null.Int64 `json:"daysFromHidingToDeleting"`
	DaysFromUploadingToHiding null.Int64 `json:"daysFromUploadingToHiding"`
	FileNamePrefix            string     `json:"fileNamePrefix"`
}

// CorsRule controls cross-origin access to a bucket.
type CorsRule struct {
	CorsRuleName      string   `json:"corsRuleName"`
	AllowedOrigins    []string `json:"allowedOrigins"`
	AllowedOperations []string `json:"allowedOperations"`
	AllowedHeaders    []string `json:"allowedHeaders,omitempty"`
	ExposeHeaders     []string `json:"exposeHeaders,omitempty"`
	MaxAgeSeconds     int      `json:"maxAgeSeconds"`
}

// Bucket is a bucket as returned by the service.
type Bucket struct {
	AccountID      string            `json:"accountId"`
	BucketID       string            `json:"bucketId"`
	BucketName     string            `json:"bucketName"`
	BucketType     string            `json:"bucketType"`
	BucketInfo     map[string]string `json:"bucketInfo,omitempty"`
	CorsRules      []CorsRule        `json:"corsRules,omitempty"`
	LifecycleRules []LifecycleRule   `json:"lifecycleRules,omitempty"`
	Options        []string          `json:"options,omitempty"`
	Revision       int64             `json:"revision,omitempty"`
}

// Key is an application key as returned by the service.
// ApplicationKey (the secret) is only present on the create response.
type Key struct {
	AccountID           string      `json:"accountId"`
	ApplicationKeyID    string      `json:"applicationKeyId"`
	ApplicationKey      string      `json:"applicationKey,omitempty"`
	KeyName             string      `json:"keyName"`
	Capabilities        []string    `json:"capabilities"`
	BucketID            null.String `json:"bucketId,omitzero"`
	NamePrefix          null.String `json:"namePrefix,omitzero"`
	ExpirationTimestamp null.Int64  `json:"expirationTimestamp,omitzero"`
	Options             []string    `json:"options,omitempty"`
}

// Allowed describes the restrictions attached to an authorization token.
type Allowed struct {
	Capabilities []string    `json:"capabilities"`
	BucketID     null.String `json:"bucketId,omitzero"`
	BucketName   null.String `json:"bucketName,omitzero"`
	NamePrefix   null.String `json:"namePrefix,omitzero"`
}

// AccountAuth is the state established by account authorization.
type AccountAuth struct {
	AccountID               string  `json:"accountId"`
	AuthorizationToken      string  `json:"authorizationToken"`
	APIURL                  string  `json:"apiUrl"`
	DownloadURL             string  `json:"downloadUrl"`
	RecommendedPartSize     int64   `json:"recommendedPartSize"`
	AbsoluteMinimumPartSize int64   `json:"absoluteMinimumPartSize"`
	Allowed                 Allowed `json:"allowed"`
}

// DownloadAuthorization is a token authorizing downloads of files matching
// a name prefix from a private bucket.
type DownloadAuthorization struct {
	BucketID           string `json:"bucketId"`
	FileNamePrefix     string `json:"fileNamePrefix"`
	AuthorizationToken string `json:"authorizationToken"`
}
