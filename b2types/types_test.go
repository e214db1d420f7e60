package b2types

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	b2errors "github.com/cplaiasu/b2/errors"
)

func TestNewCustomInfo_EnforcesCap(t *testing.T) {
	m := make(map[string]string)
	for i := 0; i < MaxCustomInfoEntries; i++ {
		m[fmt.Sprintf("key-%d", i)] = "v"
	}

	ci, err := NewCustomInfo(m)
	require.NoError(t, err)
	assert.Equal(t, MaxCustomInfoEntries, ci.Len())

	m["one-too-many"] = "v"
	_, err = NewCustomInfo(m)
	assert.ErrorIs(t, err, b2errors.ErrCustomInfoTooLarge)
}

func TestCustomInfo_SetBeyondCapDoesNotMutate(t *testing.T) {
	var ci CustomInfo
	for i := 0; i < MaxCustomInfoEntries; i++ {
		require.NoError(t, ci.Set(fmt.Sprintf("key-%d", i), "v"))
	}
	require.Equal(t, MaxCustomInfoEntries, ci.Len())

	err := ci.Set("eleventh", "v")
	assert.ErrorIs(t, err, b2errors.ErrCustomInfoTooLarge)
	assert.Equal(t, MaxCustomInfoEntries, ci.Len())
	_, present := ci.Get("eleventh")
	assert.False(t, present)

	// Replacing an existing key is always allowed.
	require.NoError(t, ci.Set("key-0", "replaced"))
	v, _ := ci.Get("key-0")
	assert.Equal(t, "replaced", v)
	assert.Equal(t, MaxCustomInfoEntries, ci.Len())
}

func TestCustomInfo_Headers(t *testing.T) {
	var ci CustomInfo
	require.NoError(t, ci.Set("author", "ana maria"))
	require.NoError(t, ci.Set("large_file_sha1", "a1b2"))

	h := ci.Headers()
	assert.Equal(t, "ana%20maria", h["X-Bz-Info-author"])
	assert.Equal(t, "a1b2", h["X-Bz-Info-large_file_sha1"])

	back, err := CustomInfoFromHeaders(map[string][]string{
		"X-Bz-Info-author":          {"ana%20maria"},
		"X-Bz-Info-large_file_sha1": {"a1b2"},
		"Content-Type":              {"text/plain"},
	})
	require.NoError(t, err)
	assert.Equal(t, ci.Map(), back.Map())
}

func TestCustomInfo_JSONCapOnUnmarshal(t *testing.T) {
	body := "{"
	for i := 0; i < MaxCustomInfoEntries+1; i++ {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf("%q:%q", fmt.Sprintf("k%d", i), "v")
	}
	body += "}"

	var ci CustomInfo
	err := json.Unmarshal([]byte(body), &ci)
	assert.ErrorIs(t, err, b2errors.ErrCustomInfoTooLarge)
}

func TestFile_JSONRoundTrip(t *testing.T) {
	info, err := NewCustomInfo(map[string]string{"author": "ana", "kind": "movie"})
	require.NoError(t, err)

	orig := File{
		Action:        ActionUpload,
		AccountID:     "acct-1",
		BucketID:      "bucket-1",
		FileID:        "4_z27c88f1d182b150646ff0b16_f200ec353a2184825_d20260830_m000000",
		FileName:      "movie.mp4",
		ContentLength: 10485760,
		ContentType:   "video/mp4",
		ContentSha1:   "none",
		FileInfo:      info,
		LegalHold: &LegalHold{
			IsClientAuthorizedToRead: true,
			Value:                    null.StringFrom("off"),
		},
		FileRetention: &FileRetention{
			IsClientAuthorizedToRead: true,
			Value: &RetentionSetting{
				Mode:                 null.StringFrom("governance"),
				RetainUntilTimestamp: null.IntFrom(1893456000000),
			},
		},
		UploadTimestamp: 1756512000000,
	}

	buf, err := json.Marshal(&orig)
	require.NoError(t, err)

	var parsed File
	require.NoError(t, json.Unmarshal(buf, &parsed))
	assert.Equal(t, orig, parsed)
	assert.Equal(t, orig.FileInfo.Map(), parsed.FileInfo.Map())
}

func TestFile_UploadedAt(t *testing.T) {
	f := File{UploadTimestamp: 1756512000123}
	assert.Equal(t, int64(1756512000), f.UploadedAt().Unix())
	assert.Equal(t, 123000000, f.UploadedAt().Nanosecond())
}

func TestFile_OptionalFieldsOmitted(t *testing.T) {
	f := File{
		Action:      ActionStart,
		BucketID:    "bucket-1",
		FileID:      "4_z1",
		FileName:    "a.bin",
		ContentType: ContentTypeAuto,
		ContentSha1: "none",
	}
	buf, err := json.Marshal(&f)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf, &raw))
	assert.NotContains(t, raw, "contentMd5")
	assert.NotContains(t, raw, "legalHold")
	assert.NotContains(t, raw, "fileRetention")
	assert.NotContains(t, raw, "accountId")
}

func TestKey_OptionalFieldsOmitted(t *testing.T) {
	k := Key{
		AccountID:        "acct-1",
		ApplicationKeyID: "key-1",
		KeyName:          "deploy",
		Capabilities:     []string{"listBuckets", "readFiles"},
	}
	buf, err := json.Marshal(&k)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf, &raw))
	assert.NotContains(t, raw, "bucketId")
	assert.NotContains(t, raw, "namePrefix")
	assert.NotContains(t, raw, "expirationTimestamp")

	k.BucketID = null.StringFrom("bucket-1")
	buf, err = json.Marshal(&k)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(buf, &raw))
	assert.Contains(t, raw, "bucketId")
}
