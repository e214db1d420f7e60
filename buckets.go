package b2

import (
	"context"

	"github.com/guregu/null/v6"

	"github.com/cplaiasu/b2/b2types"
	"github.com/cplaiasu/b2/errors"
	"github.com/cplaiasu/b2/internal/b2api"
	"github.com/cplaiasu/b2/internal/validation"
)

// CreateBucket creates a bucket with the given name and type. The name is
// validated locally against the service rules before any request is sent.
func (c *Client) CreateBucket(ctx context.Context, name, bucketType string, opts ...b2types.BucketOption) (*b2types.Bucket, error) {
	if err := validation.ValidateBucketName(name); err != nil {
		return nil, err
	}

	cfg := b2types.BucketOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	accountID, err := c.accountid(ctx)
	if err != nil {
		return nil, errors.NewBucketError("createBucket", name, err)
	}

	bucket, err := c.api.CreateBucket(ctx, &b2api.CreateBucketInput{
		AccountID:      accountID,
		BucketName:     name,
		BucketType:     bucketType,
		BucketInfo:     cfg.BucketInfo,
		CorsRules:      cfg.CorsRules,
		LifecycleRules: cfg.LifecycleRules,
	})
	if err != nil {
		return nil, errors.NewBucketError("createBucket", name, err)
	}

	c.log.Debug("b2: bucket created", "bucketId", bucket.BucketID, "bucketName", name)
	return bucket, nil
}

// UpdateBucket changes a bucket's type or metadata. Pass an empty
// bucketType to leave it unchanged; use WithIfRevisionIs to guard against
// concurrent updates.
func (c *Client) UpdateBucket(ctx context.Context, bucketID, bucketType string, opts ...b2types.BucketOption) (*b2types.Bucket, error) {
	cfg := b2types.BucketOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	accountID, err := c.accountid(ctx)
	if err != nil {
		return nil, errors.NewBucketError("updateBucket", bucketID, err)
	}

	bucket, err := c.api.UpdateBucket(ctx, &b2api.UpdateBucketInput{
		AccountID:      accountID,
		BucketID:       bucketID,
		BucketType:     bucketType,
		BucketInfo:     cfg.BucketInfo,
		CorsRules:      cfg.CorsRules,
		LifecycleRules: cfg.LifecycleRules,
		IfRevisionIs:   cfg.IfRevisionIs,
	})
	if err != nil {
		return nil, errors.NewBucketError("updateBucket", bucketID, err)
	}
	return bucket, nil
}

// DeleteBucket deletes a bucket. The bucket must be empty.
func (c *Client) DeleteBucket(ctx context.Context, bucketID string) (*b2types.Bucket, error) {
	accountID, err := c.accountid(ctx)
	if err != nil {
		return nil, errors.NewBucketError("deleteBucket", bucketID, err)
	}

	bucket, err := c.api.DeleteBucket(ctx, &b2api.DeleteBucketInput{
		AccountID: accountID,
		BucketID:  bucketID,
	})
	if err != nil {
		return nil, errors.NewBucketError("deleteBucket", bucketID, err)
	}

	c.log.Debug("b2: bucket deleted", "bucketId", bucketID)
	return bucket, nil
}

// ListBuckets returns the account's buckets.
func (c *Client) ListBuckets(ctx context.Context) ([]b2types.Bucket, error) {
	accountID, err := c.accountid(ctx)
	if err != nil {
		return nil, errors.NewError("listBuckets", err)
	}

	out, err := c.api.ListBuckets(ctx, &b2api.ListBucketsInput{AccountID: accountID})
	if err != nil {
		return nil, errors.NewError("listBuckets", err)
	}
	return out.Buckets, nil
}

// BucketByName looks a bucket up by its unique name. Returns an error
// matching errors.IsNotFound when no such bucket exists.
func (c *Client) BucketByName(ctx context.Context, name string) (*b2types.Bucket, error) {
	accountID, err := c.accountid(ctx)
	if err != nil {
		return nil, errors.NewBucketError("bucketByName", name, err)
	}

	out, err := c.api.ListBuckets(ctx, &b2api.ListBucketsInput{
		AccountID:  accountID,
		BucketName: null.StringFrom(name),
	})
	if err != nil {
		return nil, errors.NewBucketError("bucketByName", name, err)
	}
	if len(out.Buckets) == 0 {
		return nil, errors.NewBucketError("bucketByName", name, errors.ErrNotFound)
	}
	bucket := out.Buckets[0]
	return &bucket, nil
}
