package gazelle

import (
	"context"

	"gazellekit/internal"
	"gazellekit/utils"
)

// defaultTransport builds the standard HTTP transport for a profile
func defaultTransport(cfg *utils.HTTPTransportConfig) func(*TrackerProfile) internal.Transport {
	return func(*TrackerProfile) internal.Transport {
		return utils.NewHTTPTransport(cfg)
	}
}

// NewRedClient creates a client for RED authenticated with a static API
// key. RED expects the bare key in the Authorization header.
func NewRedClient(ctx context.Context, key string, cfg *utils.HTTPTransportConfig, opts ...Option) (*Client, error) {
	return newClient(ctx, RED,
		NewTokenAuth(key),
		redUploader{},
		CapAccountJSON|CapTorrentInfo,
		defaultTransport(cfg),
		opts...)
}

// NewOpsClient creates a client for OPS authenticated with an API token.
// OPS expects the key prefixed with "token " in the Authorization header.
func NewOpsClient(ctx context.Context, key string, cfg *utils.HTTPTransportConfig, opts ...Option) (*Client, error) {
	auth := NewTokenAuth("")
	if key != "" {
		auth = NewTokenAuth("token " + key)
	}
	return newClient(ctx, OPS,
		auth,
		opsUploader{},
		CapAccountJSON|CapTorrentInfo|CapRipLog,
		defaultTransport(cfg),
		opts...)
}

// NewSessionClient creates a client that authenticates with a persisted
// session cookie, logging in through creds when no valid cookie survives
// on disk. The tracker still serves the JSON ajax API; only upload and
// login use dedicated endpoints.
func NewSessionClient(ctx context.Context, id TrackerID, creds internal.CredentialSource, cookieDir string, cfg *utils.HTTPTransportConfig, opts ...Option) (*Client, error) {
	return newClient(ctx, id,
		NewSessionAuth(creds, cookieDir),
		cookieUploader{},
		CapAccountJSON|CapTorrentInfo,
		defaultTransport(cfg),
		opts...)
}

// NewHTMLClient creates a session-cookie client for trackers without a
// JSON API: account info is scraped from the index page and torrent info
// is not available.
func NewHTMLClient(ctx context.Context, id TrackerID, creds internal.CredentialSource, cookieDir string, cfg *utils.HTTPTransportConfig, opts ...Option) (*Client, error) {
	return newClient(ctx, id,
		NewSessionAuth(creds, cookieDir),
		cookieUploader{},
		0,
		defaultTransport(cfg),
		opts...)
}
