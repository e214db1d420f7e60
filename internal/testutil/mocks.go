// Package testutil provides shared test doubles for the client packages.
package testutil

import (
	"context"

	"github.com/cplaiasu/b2/b2types"
	"github.com/cplaiasu/b2/internal/b2api"
)

// MockB2API implements b2api.B2API with overridable function fields.
// Methods whose field is nil return zero values, so tests only wire the
// calls they exercise.
type MockB2API struct {
	AccountFunc      func(ctx context.Context) (b2types.AccountAuth, error)
	CreateBucketFunc func(ctx context.Context, in *b2api.CreateBucketInput) (*b2types.Bucket, error)
	UpdateBucketFunc func(ctx context.Context, in *b2api.UpdateBucketInput) (*b2types.Bucket, error)
	DeleteBucketFunc func(ctx context.Context, in *b2api.DeleteBucketInput) (*b2types.Bucket, error)
	ListBucketsFunc  func(ctx context.Context, in *b2api.ListBucketsInput) (*b2api.ListBucketsOutput, error)

	GetUploadURLFunc      func(ctx context.Context, in *b2api.GetUploadURLInput) (*b2types.UploadURL, error)
	UploadFileFunc        func(ctx context.Context, in *b2api.UploadFileInput) (*b2types.File, error)
	GetFileInfoFunc       func(ctx context.Context, in *b2api.GetFileInfoInput) (*b2types.File, error)
	ListFileNamesFunc     func(ctx context.Context, in *b2api.ListFileNamesInput) (*b2api.ListFileNamesOutput, error)
	ListFileVersionsFunc  func(ctx context.Context, in *b2api.ListFileVersionsInput) (*b2api.ListFileVersionsOutput, error)
	DeleteFileVersionFunc func(ctx context.Context, in *b2api.DeleteFileVersionInput) (*b2api.DeleteFileVersionOutput, error)
	HideFileFunc          func(ctx context.Context, in *b2api.HideFileInput) (*b2types.File, error)
	CopyFileFunc          func(ctx context.Context, in *b2api.CopyFileInput) (*b2types.File, error)

	DownloadFileByNameFunc       func(ctx context.Context, in *b2api.DownloadByNameInput) (*b2api.DownloadOutput, error)
	DownloadFileByIDFunc         func(ctx context.Context, in *b2api.DownloadByIDInput) (*b2api.DownloadOutput, error)
	GetDownloadAuthorizationFunc func(ctx context.Context, in *b2api.GetDownloadAuthorizationInput) (*b2types.DownloadAuthorization, error)

	CreateKeyFunc func(ctx context.Context, in *b2api.CreateKeyInput) (*b2types.Key, error)
	DeleteKeyFunc func(ctx context.Context, in *b2api.DeleteKeyInput) (*b2types.Key, error)
	ListKeysFunc  func(ctx context.Context, in *b2api.ListKeysInput) (*b2api.ListKeysOutput, error)

	StartLargeFileFunc           func(ctx context.Context, in *b2api.StartLargeFileInput) (*b2types.File, error)
	GetUploadPartURLFunc         func(ctx context.Context, in *b2api.GetUploadPartURLInput) (*b2types.PartUploadURL, error)
	UploadPartFunc               func(ctx context.Context, in *b2api.UploadPartInput) (*b2types.Part, error)
	CopyPartFunc                 func(ctx context.Context, in *b2api.CopyPartInput) (*b2types.Part, error)
	FinishLargeFileFunc          func(ctx context.Context, in *b2api.FinishLargeFileInput) (*b2types.File, error)
	CancelLargeFileFunc          func(ctx context.Context, in *b2api.CancelLargeFileInput) (*b2types.File, error)
	ListPartsFunc                func(ctx context.Context, in *b2api.ListPartsInput) (*b2api.ListPartsOutput, error)
	ListUnfinishedLargeFilesFunc func(ctx context.Context, in *b2api.ListUnfinishedLargeFilesInput) (*b2api.ListUnfinishedLargeFilesOutput, error)
}

var _ b2api.B2API = (*MockB2API)(nil)

func (m *MockB2API) Account(ctx context.Context) (b2types.AccountAuth, error) {
	if m.AccountFunc != nil {
		return m.AccountFunc(ctx)
	}
	return b2types.AccountAuth{AccountID: "test-account"}, nil
}

func (m *MockB2API) CreateBucket(ctx context.Context, in *b2api.CreateBucketInput) (*b2types.Bucket, error) {
	if m.CreateBucketFunc != nil {
		return m.CreateBucketFunc(ctx, in)
	}
	return &b2types.Bucket{}, nil
}

func (m *MockB2API) UpdateBucket(ctx context.Context, in *b2api.UpdateBucketInput) (*b2types.Bucket, error) {
	if m.UpdateBucketFunc != nil {
		return m.UpdateBucketFunc(ctx, in)
	}
	return &b2types.Bucket{}, nil
}

func (m *MockB2API) DeleteBucket(ctx context.Context, in *b2api.DeleteBucketInput) (*b2types.Bucket, error) {
	if m.DeleteBucketFunc != nil {
		return m.DeleteBucketFunc(ctx, in)
	}
	return &b2types.Bucket{}, nil
}

func (m *MockB2API) ListBuckets(ctx context.Context, in *b2api.ListBucketsInput) (*b2api.ListBucketsOutput, error) {
	if m.ListBucketsFunc != nil {
		return m.ListBucketsFunc(ctx, in)
	}
	return &b2api.ListBucketsOutput{}, nil
}

func (m *MockB2API) GetUploadURL(ctx context.Context, in *b2api.GetUploadURLInput) (*b2types.UploadURL, error) {
	if m.GetUploadURLFunc != nil {
		return m.GetUploadURLFunc(ctx, in)
	}
	return &b2types.UploadURL{}, nil
}

func (m *MockB2API) UploadFile(ctx context.Context, in *b2api.UploadFileInput) (*b2types.File, error) {
	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, in)
	}
	return &b2types.File{}, nil
}

func (m *MockB2API) GetFileInfo(ctx context.Context, in *b2api.GetFileInfoInput) (*b2types.File, error) {
	if m.GetFileInfoFunc != nil {
		return m.GetFileInfoFunc(ctx, in)
	}
	return &b2types.File{}, nil
}

func (m *MockB2API) ListFileNames(ctx context.Context, in *b2api.ListFileNamesInput) (*b2api.ListFileNamesOutput, error) {
	if m.ListFileNamesFunc != nil {
		return m.ListFileNamesFunc(ctx, in)
	}
	return &b2api.ListFileNamesOutput{}, nil
}

func (m *MockB2API) ListFileVersions(ctx context.Context, in *b2api.ListFileVersionsInput) (*b2api.ListFileVersionsOutput, error) {
	if m.ListFileVersionsFunc != nil {
		return m.ListFileVersionsFunc(ctx, in)
	}
	return &b2api.ListFileVersionsOutput{}, nil
}

func (m *MockB2API) DeleteFileVersion(ctx context.Context, in *b2api.DeleteFileVersionInput) (*b2api.DeleteFileVersionOutput, error) {
	if m.DeleteFileVersionFunc != nil {
		return m.DeleteFileVersionFunc(ctx, in)
	}
	return &b2api.DeleteFileVersionOutput{}, nil
}

func (m *MockB2API) HideFile(ctx context.Context, in *b2api.HideFileInput) (*b2types.File, error) {
	if m.HideFileFunc != nil {
		return m.HideFileFunc(ctx, in)
	}
	return &b2types.File{}, nil
}

func (m *MockB2API) CopyFile(ctx context.Context, in *b2api.CopyFileInput) (*b2types.File, error) {
	if m.CopyFileFunc != nil {
		return m.CopyFileFunc(ctx, in)
	}
	return &b2types.File{}, nil
}

func (m *MockB2API) DownloadFileByName(ctx context.Context, in *b2api.DownloadByNameInput) (*b2api.DownloadOutput, error) {
	if m.DownloadFileByNameFunc != nil {
		return m.DownloadFileByNameFunc(ctx, in)
	}
	return &b2api.DownloadOutput{}, nil
}

func (m *MockB2API) DownloadFileByID(ctx context.Context, in *b2api.DownloadByIDInput) (*b2api.DownloadOutput, error) {
	if m.DownloadFileByIDFunc != nil {
		return m.DownloadFileByIDFunc(ctx, in)
	}
	return &b2api.DownloadOutput{}, nil
}

func (m *MockB2API) GetDownloadAuthorization(ctx context.Context, in *b2api.GetDownloadAuthorizationInput) (*b2types.DownloadAuthorization, error) {
	if m.GetDownloadAuthorizationFunc != nil {
		return m.GetDownloadAuthorizationFunc(ctx, in)
	}
	return &b2types.DownloadAuthorization{}, nil
}

func (m *MockB2API) CreateKey(ctx context.Context, in *b2api.CreateKeyInput) (*b2types.Key, error) {
	if m.CreateKeyFunc != nil {
		return m.CreateKeyFunc(ctx, in)
	}
	return &b2types.Key{}, nil
}

func (m *MockB2API) DeleteKey(ctx context.Context, in *b2api.DeleteKeyInput) (*b2types.Key, error) {
	if m.DeleteKeyFunc != nil {
		return m.DeleteKeyFunc(ctx, in)
	}
	return &b2types.Key{}, nil
}

func (m *MockB2API) ListKeys(ctx context.Context, in *b2api.ListKeysInput) (*b2api.ListKeysOutput, error) {
	if m.ListKeysFunc != nil {
		return m.ListKeysFunc(ctx, in)
	}
	return &b2api.ListKeysOutput{}, nil
}

func (m *MockB2API) StartLargeFile(ctx context.Context, in *b2api.StartLargeFileInput) (*b2types.File, error) {
	if m.StartLargeFileFunc != nil {
		return m.StartLargeFileFunc(ctx, in)
	}
	return &b2types.File{}, nil
}

func (m *MockB2API) GetUploadPartURL(ctx context.Context, in *b2api.GetUploadPartURLInput) (*b2types.PartUploadURL, error) {
	if m.GetUploadPartURLFunc != nil {
		return m.GetUploadPartURLFunc(ctx, in)
	}
	return &b2types.PartUploadURL{}, nil
}

func (m *MockB2API) UploadPart(ctx context.Context, in *b2api.UploadPartInput) (*b2types.Part, error) {
	if m.UploadPartFunc != nil {
		return m.UploadPartFunc(ctx, in)
	}
	return &b2types.Part{}, nil
}

func (m *MockB2API) CopyPart(ctx context.Context, in *b2api.CopyPartInput) (*b2types.Part, error) {
	if m.CopyPartFunc != nil {
		return m.CopyPartFunc(ctx, in)
	}
	return &b2types.Part{}, nil
}

func (m *MockB2API) FinishLargeFile(ctx context.Context, in *b2api.FinishLargeFileInput) (*b2types.File, error) {
	if m.FinishLargeFileFunc != nil {
		return m.FinishLargeFileFunc(ctx, in)
	}
	return &b2types.File{}, nil
}

func (m *MockB2API) CancelLargeFile(ctx context.Context, in *b2api.CancelLargeFileInput) (*b2types.File, error) {
	if m.CancelLargeFileFunc != nil {
		return m.CancelLargeFileFunc(ctx, in)
	}
	return &b2types.File{}, nil
}

func (m *MockB2API) ListParts(ctx context.Context, in *b2api.ListPartsInput) (*b2api.ListPartsOutput, error) {
	if m.ListPartsFunc != nil {
		return m.ListPartsFunc(ctx, in)
	}
	return &b2api.ListPartsOutput{}, nil
}

func (m *MockB2API) ListUnfinishedLargeFiles(ctx context.Context, in *b2api.ListUnfinishedLargeFilesInput) (*b2api.ListUnfinishedLargeFilesOutput, error) {
	if m.ListUnfinishedLargeFilesFunc != nil {
		return m.ListUnfinishedLargeFilesFunc(ctx, in)
	}
	return &b2api.ListUnfinishedLargeFilesOutput{}, nil
}
