package internal

import (
	"context"
	"net/http"
	"net/url"
)

// Transport executes a single HTTP exchange. Implementations own the
// cookie jar; authentication strategies manipulate it through the
// cookie accessors.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	SetCookies(u *url.URL, cookies []*http.Cookie)
	Cookies(u *url.URL) []*http.Cookie
	ClearCookies()
}

// CredentialSource supplies a username/password pair. It is invoked only
// when no valid persisted session exists.
type CredentialSource interface {
	Credentials() (username, password string, err error)
}

// CredentialFunc adapts a plain function to the CredentialSource interface
type CredentialFunc func() (string, string, error)

// Credentials implements CredentialSource
func (f CredentialFunc) Credentials() (string, string, error) {
	return f()
}

// Limiter throttles request dispatch to the tracker's per-window ceiling.
// Wait blocks until one more request fits the window; Record stamps the
// moment a request actually went out.
type Limiter interface {
	Wait(ctx context.Context) error
	Record()
}
