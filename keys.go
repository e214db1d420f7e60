package b2

import (
	"context"
	"time"

	"github.com/guregu/null/v6"

	"github.com/cplaiasu/b2/b2types"
	"github.com/cplaiasu/b2/errors"
	"github.com/cplaiasu/b2/internal/b2api"
)

// CreateKey creates an application key with the given capabilities. The
// returned Key is the only place the secret ApplicationKey is ever exposed.
func (c *Client) CreateKey(ctx context.Context, keyName string, capabilities []string, opts ...b2types.KeyOption) (*b2types.Key, error) {
	if keyName == "" || len(capabilities) == 0 {
		return nil, errors.NewError("createKey",
			errors.NewValidationError("key", "name and capabilities are required"))
	}

	cfg := b2types.KeyOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	accountID, err := c.accountid(ctx)
	if err != nil {
		return nil, errors.NewError("createKey", err)
	}

	in := &b2api.CreateKeyInput{
		AccountID:    accountID,
		KeyName:      keyName,
		Capabilities: capabilities,
		BucketID:     null.NewString(cfg.BucketID, cfg.BucketID != ""),
		NamePrefix:   null.NewString(cfg.NamePrefix, cfg.NamePrefix != ""),
	}
	if cfg.ValidDuration > 0 {
		in.ValidDurationInSeconds = null.IntFrom(int64(cfg.ValidDuration / time.Second))
	}

	key, err := c.api.CreateKey(ctx, in)
	if err != nil {
		return nil, errors.NewError("createKey", err)
	}

	c.log.Debug("b2: application key created", "applicationKeyId", key.ApplicationKeyID)
	return key, nil
}

// DeleteKey deletes an application key.
func (c *Client) DeleteKey(ctx context.Context, applicationKeyID string) (*b2types.Key, error) {
	key, err := c.api.DeleteKey(ctx, &b2api.DeleteKeyInput{
		ApplicationKeyID: applicationKeyID,
	})
	if err != nil {
		return nil, errors.NewError("deleteKey", err)
	}
	return key, nil
}

// ListKeys returns one page of the account's application keys with the
// continuation token for the next page.
func (c *Client) ListKeys(ctx context.Context, maxKeyCount int, startApplicationKeyID string) ([]b2types.Key, string, error) {
	accountID, err := c.accountid(ctx)
	if err != nil {
		return nil, "", errors.NewError("listKeys", err)
	}

	out, err := c.api.ListKeys(ctx, &b2api.ListKeysInput{
		AccountID:             accountID,
		MaxKeyCount:           maxKeyCount,
		StartApplicationKeyID: null.NewString(startApplicationKeyID, startApplicationKeyID != ""),
	})
	if err != nil {
		return nil, "", errors.NewError("listKeys", err)
	}
	return out.Keys, out.NextApplicationKeyID.ValueOrZero(), nil
}

// ListKeysPager returns a pager over all of the account's application keys.
func (c *Client) ListKeysPager(pageSize int) *b2types.Pager[b2types.Key] {
	return b2types.NewPager(func(ctx context.Context, cursor string) ([]b2types.Key, string, error) {
		return c.ListKeys(ctx, pageSize, cursor)
	}, "")
}
