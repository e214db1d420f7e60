package testutil

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/cplaiasu/b2/b2types"
)

// TestDataGenerator provides methods for generating test data.
type TestDataGenerator struct {
	rand *rand.Rand
}

// NewTestDataGenerator creates a new test data generator with a seeded random source.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// BucketName generates a valid bucket name.
func (g *TestDataGenerator) BucketName() string {
	return fmt.Sprintf("test-bucket-%06d", g.rand.Intn(1000000))
}

// FileID generates a unique file identifier.
func (g *TestDataGenerator) FileID() string {
	return "4_z" + uuid.NewString()
}

// Content generates a deterministic payload of the given size.
func (g *TestDataGenerator) Content(size int) []byte {
	buf := make([]byte, size)
	g.rand.Read(buf)
	return buf
}

// GenerateFileList generates a list of file versions under a prefix.
func (g *TestDataGenerator) GenerateFileList(count int, bucketID, prefix string) []b2types.File {
	files := make([]b2types.File, count)
	baseTime := time.Now().Add(-24 * time.Hour)

	for i := 0; i < count; i++ {
		content := g.Content(g.rand.Intn(4096) + 1)
		files[i] = b2types.File{
			Action:          b2types.ActionUpload,
			BucketID:        bucketID,
			FileID:          g.FileID(),
			FileName:        fmt.Sprintf("%sfile-%04d.txt", prefix, i),
			ContentLength:   int64(len(content)),
			ContentType:     "text/plain",
			ContentSha1:     SHA1Hex(content),
			UploadTimestamp: baseTime.Add(time.Duration(i) * time.Minute).UnixMilli(),
		}
	}

	return files
}

// GeneratePartList generates the recorded parts of a large file in order.
func (g *TestDataGenerator) GeneratePartList(fileID string, count int, partSize int) []b2types.Part {
	parts := make([]b2types.Part, count)
	baseTime := time.Now().Add(-time.Hour)

	for i := 0; i < count; i++ {
		content := g.Content(partSize)
		parts[i] = b2types.Part{
			FileID:          fileID,
			PartNumber:      i + 1,
			ContentLength:   int64(len(content)),
			ContentSha1:     SHA1Hex(content),
			UploadTimestamp: baseTime.Add(time.Duration(i) * time.Second).UnixMilli(),
		}
	}

	return parts
}

// SHA1Hex returns the lowercase hex SHA1 of data, the checksum format the
// service expects.
func SHA1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
