package b2

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"

	"github.com/cplaiasu/b2/b2types"
	"github.com/cplaiasu/b2/errors"
	"github.com/cplaiasu/b2/internal/b2api"
	"github.com/cplaiasu/b2/internal/operations/largefile"
)

// Client is a Backblaze B2 API client. It is safe for concurrent use.
//
// Authorization happens lazily on the first operation; an expired account
// token is refreshed transparently exactly once per request.
type Client struct {
	// api is the underlying transport
	api b2api.B2API

	// cfg holds the applied client configuration
	cfg b2types.ClientConfig

	// log receives debug and retry logging
	log *slog.Logger

	// fs is the filesystem abstraction for path-based helpers
	fs fs.Filesystem

	// largeFiles orchestrates the large file workflow
	largeFiles *largefile.Manager

	// mu protects the cached account identity
	mu        sync.RWMutex
	accountID string
}

// New creates a B2 client for the given application key credentials.
//
// Example:
//
//	client, err := b2.New(keyID, applicationKey,
//	    b2.WithMaxRetries(5),
//	    b2.WithRetryInterval(2*time.Second),
//	)
func New(keyID, applicationKey string, opts ...b2types.Option) (*Client, error) {
	if keyID == "" || applicationKey == "" {
		return nil, errors.NewError("newClient",
			errors.NewValidationError("credentials", "key ID and application key are required"))
	}

	cfg := b2types.ClientConfig{
		MaxRetries:    3,
		RetryInterval: time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	api := b2api.New(b2api.Config{
		KeyID:          keyID,
		ApplicationKey: applicationKey,
		AuthHost:       cfg.AuthHost,
		HTTPClient:     cfg.HTTPClient,
		MaxRetries:     cfg.MaxRetries,
		RetryInterval:  cfg.RetryInterval,
		Logger:         cfg.Logger,
		UserAgent:      cfg.UserAgent,
	})

	return newClient(api, cfg), nil
}

// NewWithAPI creates a client over a caller-supplied transport.
// This is primarily used for testing with mocked transports.
func NewWithAPI(api b2api.B2API, opts ...b2types.Option) *Client {
	cfg := b2types.ClientConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return newClient(api, cfg)
}

func newClient(api b2api.B2API, cfg b2types.ClientConfig) *Client {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	filesystem := cfg.Filesystem
	if filesystem == nil {
		filesystem = billy.NewOSFS("/")
	}

	return &Client{
		api:        api,
		cfg:        cfg,
		log:        log,
		fs:         filesystem,
		largeFiles: largefile.NewManager(api, log, cfg.GrantPoolSize),
	}
}

// Account returns the account authorization the client is operating under,
// performing the authorization call on first use.
func (c *Client) Account(ctx context.Context) (b2types.AccountAuth, error) {
	return c.api.Account(ctx)
}

// accountid returns the cached account identity, resolving it on first use.
func (c *Client) accountid(ctx context.Context) (string, error) {
	c.mu.RLock()
	id := c.accountID
	c.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	auth, err := c.api.Account(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.accountID = auth.AccountID
	c.mu.Unlock()
	return auth.AccountID, nil
}

// SetFilesystem replaces the filesystem used by path-based helpers.
// This is primarily used for testing with in-memory filesystems.
func (c *Client) SetFilesystem(filesystem fs.Filesystem) {
	c.fs = filesystem
}
