package gazelle

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gazellekit/internal"
	"gazellekit/utils"
)

// AuthStrategy attaches credentials to outgoing requests and decides how
// logical endpoints map onto physical paths. Strategies are composed into
// a Client rather than inherited.
type AuthStrategy interface {
	// Authenticate establishes credentials once, at client construction.
	// A failure here aborts construction entirely.
	Authenticate(ctx context.Context, c *Client) error
	// Apply attaches per-request credentials (headers; cookies travel via
	// the transport's jar).
	Apply(req *internal.Request)
	// Route maps a logical endpoint to a physical path. When ajax is
	// true the endpoint is multiplexed through the ajax path with an
	// action query parameter.
	Route(endpoint string) (path string, ajax bool)
}

// TokenAuth authenticates with a static bearer key in the Authorization
// header. No I/O, cannot fail once a key is present.
type TokenAuth struct {
	key string
}

// NewTokenAuth creates a bearer-key strategy
func NewTokenAuth(key string) *TokenAuth {
	return &TokenAuth{key: key}
}

// Authenticate validates that a key was supplied
func (t *TokenAuth) Authenticate(_ context.Context, c *Client) error {
	if t.key == "" {
		return internal.NewAuthenticationError(c.profile.Name, "no API key supplied")
	}
	return nil
}

// Apply attaches the Authorization header
func (t *TokenAuth) Apply(req *internal.Request) {
	req.Headers["Authorization"] = t.key
}

// Route multiplexes every endpoint through the ajax path
func (t *TokenAuth) Route(string) (string, bool) {
	return "ajax", true
}

// SessionAuth authenticates with a persisted session cookie, logging in
// interactively when no valid cookie survives on disk. The cookie jar is
// persisted as one Netscape-format file per tracker between runs.
type SessionAuth struct {
	creds     internal.CredentialSource
	cookieDir string
}

// NewSessionAuth creates a session-cookie strategy. creds is consulted
// only when no valid persisted session exists.
func NewSessionAuth(creds internal.CredentialSource, cookieDir string) *SessionAuth {
	return &SessionAuth{creds: creds, cookieDir: cookieDir}
}

// sessionCookieName is the cookie the trackers issue on login
const sessionCookieName = "session"

// cookieFile returns the per-tracker cookie file path
func (s *SessionAuth) cookieFile(p *TrackerProfile) string {
	return filepath.Join(s.cookieDir, fmt.Sprintf("cookie%s.txt", p.Name))
}

// Authenticate loads a persisted session or performs a fresh login
func (s *SessionAuth) Authenticate(ctx context.Context, c *Client) error {
	if s.loadSession(c) {
		internal.LogDebug("reusing persisted session for %s", c.profile.Name)
		return nil
	}
	return s.login(ctx, c)
}

// Apply is a no-op: the transport's cookie jar carries the session
func (s *SessionAuth) Apply(*internal.Request) {}

// Route sends upload and login to their dedicated paths and multiplexes
// everything else through ajax
func (s *SessionAuth) Route(endpoint string) (string, bool) {
	if endpoint == "upload" || endpoint == "login" {
		return endpoint, false
	}
	return "ajax", true
}

// loadSession loads the persisted cookie jar and reports whether it holds
// an unexpired session cookie. Any read or parse failure means no valid
// session.
func (s *SessionAuth) loadSession(c *Client) bool {
	cookies, err := loadCookieFile(s.cookieFile(c.profile))
	if err != nil {
		return false
	}

	valid := false
	for _, cookie := range cookies {
		if cookie.Name == sessionCookieName && !cookieExpired(cookie) {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	site, err := url.Parse(c.profile.Site)
	if err != nil {
		return false
	}
	c.transport.SetCookies(site, cookies)
	return true
}

// login obtains credentials, performs the login request and persists the
// resulting jar. The login response is an HTML redirect, not a JSON
// envelope; success is judged solely by the session cookie appearing in
// the jar.
func (s *SessionAuth) login(ctx context.Context, c *Client) error {
	if s.creds == nil {
		return internal.NewAuthenticationError(c.profile.Name, "no credential source configured")
	}
	username, password, err := s.creds.Credentials()
	if err != nil {
		return internal.NewAuthenticationError(c.profile.Name, "could not obtain credentials").WithCause(err)
	}

	c.transport.ClearCookies()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	form.Set("keeplogged", "1")

	if _, err := c.Request(ctx, "login", nil, form, nil); err != nil {
		return internal.NewAuthenticationError(c.profile.Name, "login request failed").WithCause(err)
	}

	site, err := url.Parse(c.profile.Site)
	if err != nil {
		return internal.NewAuthenticationError(c.profile.Name, "invalid site URL").WithCause(err)
	}

	cookies := c.transport.Cookies(site)
	found := false
	for _, cookie := range cookies {
		if cookie.Name == sessionCookieName {
			found = true
			break
		}
	}
	if !found {
		return internal.NewAuthenticationError(c.profile.Name, "login did not yield a session cookie")
	}

	if err := saveCookieFile(s.cookieFile(c.profile), cookies); err != nil {
		// The session works; failing to persist it only costs a login
		// next run.
		internal.LogWarn("could not persist session cookies for %s: %v", c.profile.Name, err)
	}
	return nil
}

// cookieExpired reports whether a cookie's expiry has passed. Cookies
// without an explicit expiry are treated as live session cookies.
func cookieExpired(c *http.Cookie) bool {
	return !c.Expires.IsZero() && c.Expires.Before(time.Now())
}

// loadCookieFile reads a Netscape-format cookie file.
// Format: domain	flag	path	secure	expiration	name	value
func loadCookieFile(path string) ([]*http.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cookies []*http.Cookie
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cookie, err := parseNetscapeCookieLine(line)
		if err != nil {
			return nil, fmt.Errorf("invalid cookie format at line %d: %w", i+1, err)
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

// parseNetscapeCookieLine parses a single line from Netscape cookie format
func parseNetscapeCookieLine(line string) (*http.Cookie, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 7 {
		return nil, fmt.Errorf("expected 7 fields, got %d", len(fields))
	}

	var expires time.Time
	if fields[4] != "0" {
		timestamp, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid expiration timestamp: %w", err)
		}
		expires = time.Unix(timestamp, 0)
	}

	return &http.Cookie{
		Name:     fields[5],
		Value:    fields[6],
		Domain:   fields[0],
		Path:     fields[2],
		Expires:  expires,
		Secure:   fields[3] == "TRUE",
		HttpOnly: true,
	}, nil
}

// saveCookieFile writes cookies in Netscape format. The write is atomic
// so a crash mid-write never leaves a truncated jar that would parse as
// malformed on the next run.
func saveCookieFile(path string, cookies []*http.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	for _, c := range cookies {
		secure := "FALSE"
		if c.Secure {
			secure = "TRUE"
		}
		expires := int64(0)
		if !c.Expires.IsZero() {
			expires = c.Expires.Unix()
		}
		fmt.Fprintf(&b, "%s\tTRUE\t%s\t%s\t%d\t%s\t%s\n",
			c.Domain, c.Path, secure, expires, c.Name, c.Value)
	}

	return utils.WriteFileAtomic(path, []byte(b.String()), 0600)
}
