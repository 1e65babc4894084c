package gazelle

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"sync"

	"gazellekit/internal"
)

// Capability describes which operations a tracker variant offers.
// Unsupported operations fail at the call site with a defined error
// instead of relying on inheritance fallthrough.
type Capability uint8

const (
	// CapAccountJSON means account info is served by the JSON index action
	CapAccountJSON Capability = 1 << iota
	// CapTorrentInfo means the torrent action is available
	CapTorrentInfo
	// CapRipLog means the riplog binary-fetch action is available
	CapRipLog
)

// Client is a rate-limited API client for one gazelle tracker. One
// logical caller per instance; the locking only makes incidental
// concurrent use safe. Instances share no state beyond the read-only
// tracker profile.
type Client struct {
	profile   *TrackerProfile
	auth      AuthStrategy
	transport internal.Transport
	limiter   internal.Limiter
	uploader  uploadHandler
	caps      Capability

	mutex   sync.Mutex
	account *internal.AccountInfo
}

// Option customizes client construction
type Option func(*Client)

// WithTransport replaces the HTTP transport
func WithTransport(t internal.Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithLimiter replaces the request limiter
func WithLimiter(l internal.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// newClient wires a client and authenticates it. Authentication failures
// abort construction.
func newClient(ctx context.Context, id TrackerID, auth AuthStrategy, uploader uploadHandler, caps Capability, newTransport func(*TrackerProfile) internal.Transport, opts ...Option) (*Client, error) {
	profile, err := Profile(id)
	if err != nil {
		return nil, err
	}

	c := &Client{
		profile:  profile,
		auth:     auth,
		uploader: uploader,
		caps:     caps,
		limiter:  NewWindowLimiter(profile.RequestLimit),
	}
	if newTransport != nil {
		c.transport = newTransport(profile)
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		return nil, internal.NewGazelleError(internal.ErrTransport, "no transport configured")
	}

	if err := auth.Authenticate(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Profile returns the client's tracker profile
func (c *Client) Profile() *TrackerProfile {
	return c.profile
}

// Has reports whether the variant declares the given capability
func (c *Client) Has(capability Capability) bool {
	return c.caps&capability != 0
}

// Request dispatches one rate-limited API call and classifies the
// response. The method is POST when form data or files are present, GET
// otherwise. Failure envelopes surface as request-failure errors;
// transport-level failures propagate unchanged.
func (c *Client) Request(ctx context.Context, endpoint string, query url.Values, form url.Values, files []internal.FileUpload) (*Outcome, error) {
	path, ajax := c.auth.Route(endpoint)

	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	if ajax {
		q.Set("action", endpoint)
	}

	method := "GET"
	if len(form) > 0 || len(files) > 0 {
		method = "POST"
	}

	req := &internal.Request{
		Method:  method,
		URL:     c.profile.Site + path + ".php",
		Query:   q,
		Form:    form,
		Files:   files,
		Headers: map[string]string{},
	}
	c.auth.Apply(req)

	internal.LogDebug("%s %s %v", method, endpoint, q)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	c.limiter.Record()

	outcome, err := Interpret(resp)
	if err != nil {
		if ge, ok := err.(*internal.GazelleError); ok {
			ge.WithTracker(c.profile.Name).WithEndpoint(endpoint)
		}
		return nil, err
	}
	return outcome, nil
}

// AccountInfo returns the authenticated account's credentials, fetched
// once per client instance and cached for its lifetime. Constructing a
// new client is the only way to invalidate the cache.
func (c *Client) AccountInfo(ctx context.Context) (*internal.AccountInfo, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.account != nil {
		return c.account, nil
	}

	var (
		acct *internal.AccountInfo
		err  error
	)
	if c.Has(CapAccountJSON) {
		acct, err = c.jsonAccountInfo(ctx)
	} else {
		acct, err = c.htmlAccountInfo(ctx)
	}
	if err != nil {
		return nil, err
	}

	c.account = acct
	return acct, nil
}

// jsonAccountInfo extracts the recognized fields from the index action
func (c *Client) jsonAccountInfo(ctx context.Context) (*internal.AccountInfo, error) {
	outcome, err := c.Request(ctx, "index", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	if outcome.Kind != OutcomeSuccess {
		return nil, internal.NewParseError("index did not return a success envelope").WithTracker(c.profile.Name)
	}

	var acct internal.AccountInfo
	if err := json.Unmarshal(outcome.Payload, &acct); err != nil {
		return nil, internal.NewParseError("malformed index response").WithTracker(c.profile.Name).WithCause(err)
	}
	if acct.AuthKey == "" || acct.PassKey == "" || acct.UserID == 0 || acct.Username == "" {
		return nil, internal.NewParseError("index response missing account fields").WithTracker(c.profile.Name)
	}
	return &acct, nil
}

// Account-info scraping patterns for trackers without a JSON index.
// Inherently fragile; isolated here so the JSON path can replace it
// without touching callers.
var (
	authKeyRe = regexp.MustCompile(`authkey=(.+?)[^a-zA-Z0-9]`)
	passKeyRe = regexp.MustCompile(`passkey=(.+?)[^a-zA-Z0-9]`)
	userIDRe  = regexp.MustCompile(`useri?d?=(.+?)[^0-9]`)
)

// htmlAccountInfo scrapes authkey/passkey/user id from the index page
func (c *Client) htmlAccountInfo(ctx context.Context) (*internal.AccountInfo, error) {
	req := &internal.Request{
		Method:  "GET",
		URL:     c.profile.Site + "index.php",
		Headers: map[string]string{},
	}
	c.auth.Apply(req)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	c.limiter.Record()

	body := string(resp.Body)
	authKey := authKeyRe.FindStringSubmatch(body)
	passKey := passKeyRe.FindStringSubmatch(body)
	userID := userIDRe.FindStringSubmatch(body)
	if authKey == nil || passKey == nil || userID == nil {
		return nil, internal.NewParseError("index page does not expose account keys").WithTracker(c.profile.Name)
	}

	id, err := strconv.Atoi(userID[1])
	if err != nil {
		return nil, internal.NewParseError("unparseable user id on index page").WithTracker(c.profile.Name).WithCause(err)
	}

	return &internal.AccountInfo{
		AuthKey: authKey[1],
		PassKey: passKey[1],
		UserID:  id,
	}, nil
}

// AnnounceURL formats the tracker's announce template with the cached
// account fields
func (c *Client) AnnounceURL(ctx context.Context) (string, error) {
	acct, err := c.AccountInfo(ctx)
	if err != nil {
		return "", err
	}
	return c.profile.Announce(acct), nil
}

// TorrentInfo fetches and maps the torrent action for this tracker
func (c *Client) TorrentInfo(ctx context.Context, query url.Values) (*TorrentInfo, error) {
	if !c.Has(CapTorrentInfo) {
		return nil, internal.NewUnsupportedError(c.profile.Name, "torrent info")
	}

	outcome, err := c.Request(ctx, "torrent", query, nil, nil)
	if err != nil {
		return nil, err
	}
	if outcome.Kind != OutcomeSuccess {
		return nil, internal.NewParseError("torrent did not return a success envelope").WithTracker(c.profile.Name)
	}
	return mapTorrentInfo(c.profile.ID, outcome.Payload)
}

// DownloadTorrent fetches the torrent metafile for the given torrent id
func (c *Client) DownloadTorrent(ctx context.Context, torrentID int) ([]byte, error) {
	query := url.Values{}
	query.Set("id", strconv.Itoa(torrentID))

	outcome, err := c.Request(ctx, "download", query, nil, nil)
	if err != nil {
		return nil, err
	}
	if outcome.Kind != OutcomeBinary {
		return nil, internal.NewParseError("download did not return a torrent payload").WithTracker(c.profile.Name)
	}
	return outcome.Bytes, nil
}

// Upload builds and issues the upload request and interprets the
// tracker-specific success envelope
func (c *Client) Upload(ctx context.Context, data *UploadData, files *TorrentFiles, destGroup int) (*internal.UploadResult, error) {
	announce, err := c.AnnounceURL(ctx)
	if err != nil {
		return nil, err
	}

	form := data.FormValues(c.profile.ID, destGroup)
	fileList, err := files.FileList(announce, c.profile.Name)
	if err != nil {
		return nil, err
	}

	return c.uploader.upload(ctx, c, form, fileList)
}

// RipLog fetches and verifies a rip log attached to a torrent. Only
// variants declaring the riplog capability offer this.
func (c *Client) RipLog(ctx context.Context, torrentID, logID int) ([]byte, error) {
	if !c.Has(CapRipLog) {
		return nil, internal.NewUnsupportedError(c.profile.Name, "rip logs")
	}
	return fetchRipLog(ctx, c, torrentID, logID)
}
