package gazelle

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"gazellekit/internal"
)

// uploadHandler interprets the tracker-specific upload response. Selected
// per tracker variant at client construction.
type uploadHandler interface {
	upload(ctx context.Context, c *Client, form url.Values, files []internal.FileUpload) (*internal.UploadResult, error)
}

// redUploader handles the RED upload envelope: ids under lower-case keys,
// plus the mandatory follow-up edit for unknown releases.
type redUploader struct{}

func (redUploader) upload(ctx context.Context, c *Client, form url.Values, files []internal.FileUpload) (*internal.UploadResult, error) {
	// The unknown flag is not part of the upload form; it triggers a
	// separate edit after the upload lands.
	unknown := form.Get("unknown") != ""
	form.Del("unknown")

	outcome, err := c.Request(ctx, "upload", nil, form, files)
	if err != nil {
		return nil, err
	}
	if outcome.Kind != OutcomeSuccess {
		return nil, internal.NewParseError("upload did not return a success envelope").WithTracker(c.profile.Name)
	}

	var payload struct {
		TorrentID int `json:"torrentid"`
		GroupID   int `json:"groupid"`
	}
	if err := json.Unmarshal(outcome.Payload, &payload); err != nil {
		return nil, internal.NewParseError("malformed upload response").WithTracker(c.profile.Name).WithCause(err)
	}

	if unknown {
		markUnknownRelease(ctx, c, payload.TorrentID)
	}

	return &internal.UploadResult{
		TorrentID: payload.TorrentID,
		GroupID:   payload.GroupID,
		ViewURL:   c.profile.PermalinkTorrent(payload.GroupID, payload.TorrentID),
	}, nil
}

// markUnknownRelease issues the best-effort torrentedit follow-up. A
// failure here degrades the upload, it does not fail it: the torrent is
// already on the site.
func markUnknownRelease(ctx context.Context, c *Client, torrentID int) {
	query := url.Values{}
	query.Set("id", strconv.Itoa(torrentID))
	form := url.Values{}
	form.Set("unknown", "true")

	if _, err := c.Request(ctx, "torrentedit", query, form, nil); err != nil {
		internal.LogError("could not flag upload as unknown release: %v", err)
		return
	}
	internal.LogInfo("upload flagged as unknown release")
}

// opsUploader handles the OPS upload envelope: same ids, differently
// cased keys, no follow-up step.
type opsUploader struct{}

func (opsUploader) upload(ctx context.Context, c *Client, form url.Values, files []internal.FileUpload) (*internal.UploadResult, error) {
	outcome, err := c.Request(ctx, "upload", nil, form, files)
	if err != nil {
		return nil, err
	}
	if outcome.Kind != OutcomeSuccess {
		return nil, internal.NewParseError("upload did not return a success envelope").WithTracker(c.profile.Name)
	}

	var payload struct {
		TorrentID int `json:"torrentId"`
		GroupID   int `json:"groupId"`
	}
	if err := json.Unmarshal(outcome.Payload, &payload); err != nil {
		return nil, internal.NewParseError("malformed upload response").WithTracker(c.profile.Name).WithCause(err)
	}

	return &internal.UploadResult{
		TorrentID: payload.TorrentID,
		GroupID:   payload.GroupID,
		ViewURL:   c.profile.PermalinkTorrent(payload.GroupID, payload.TorrentID),
	}, nil
}

// uploadErrorRe extracts the red error paragraph cookie uploads come back
// with on failure
var uploadErrorRe = regexp.MustCompile(`<p style="color: red;text-align:center;">(.+?)</p>`)

// cookieUploader handles the legacy cookie upload path: success is
// signaled only by a redirect to the torrent page, failure by an HTML
// error fragment in the body.
type cookieUploader struct{}

func (cookieUploader) upload(ctx context.Context, c *Client, form url.Values, files []internal.FileUpload) (*internal.UploadResult, error) {
	form.Set("submit", "true")

	outcome, err := c.Request(ctx, "upload", nil, form, files)
	if err != nil {
		return nil, err
	}
	if outcome.Kind != OutcomeOpaque {
		return nil, internal.NewParseError("upload did not return a page redirect").WithTracker(c.profile.Name)
	}

	if !strings.Contains(outcome.FinalURL, "torrents.php") {
		message := outcome.FinalURL
		if m := uploadErrorRe.FindStringSubmatch(outcome.BodyText); m != nil {
			message = m[1]
		}
		return nil, internal.NewRequestFailure(message).WithTracker(c.profile.Name).WithEndpoint("upload")
	}

	// The redirect carries no parseable ids; the result is URL-only.
	return &internal.UploadResult{ViewURL: outcome.FinalURL}, nil
}

// fetchRipLog fetches a base64 rip log and verifies it against the
// accompanying SHA-256 checksum before returning it
func fetchRipLog(ctx context.Context, c *Client, torrentID, logID int) ([]byte, error) {
	query := url.Values{}
	query.Set("id", strconv.Itoa(torrentID))
	query.Set("logid", strconv.Itoa(logID))

	outcome, err := c.Request(ctx, "riplog", query, nil, nil)
	if err != nil {
		return nil, err
	}
	if outcome.Kind != OutcomeSuccess {
		return nil, internal.NewParseError("riplog did not return a success envelope").WithTracker(c.profile.Name)
	}

	var payload struct {
		Log       string `json:"log"`
		LogSHA256 string `json:"log_sha256"`
	}
	if err := json.Unmarshal(outcome.Payload, &payload); err != nil {
		return nil, internal.NewParseError("malformed riplog response").WithTracker(c.profile.Name).WithCause(err)
	}

	logBytes, err := base64.StdEncoding.DecodeString(payload.Log)
	if err != nil {
		return nil, internal.NewParseError("riplog payload is not valid base64").WithTracker(c.profile.Name).WithCause(err)
	}

	digest := sha256.Sum256(logBytes)
	if hex.EncodeToString(digest[:]) != payload.LogSHA256 {
		return nil, internal.NewIntegrityError("riplog checksum mismatch").WithTracker(c.profile.Name)
	}
	return logBytes, nil
}
