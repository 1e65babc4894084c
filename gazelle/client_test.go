package gazelle

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"gazellekit/internal"
)

// fakeTransport queues canned responses and records every request. The
// hook, when set, runs before each response is dequeued so tests can
// simulate server-side effects like setting cookies.
type fakeTransport struct {
	mutex     sync.Mutex
	queue     []*internal.Response
	requests  []*internal.Request
	cookieSet map[string]*http.Cookie
	hook      func(req *internal.Request, f *fakeTransport)
}

func newFakeTransport(responses ...*internal.Response) *fakeTransport {
	return &fakeTransport{
		queue:     responses,
		cookieSet: make(map[string]*http.Cookie),
	}
}

func (f *fakeTransport) Do(_ context.Context, req *internal.Request) (*internal.Response, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.requests = append(f.requests, req)
	if f.hook != nil {
		f.hook(req, f)
	}
	if len(f.queue) == 0 {
		return nil, fmt.Errorf("no response queued for %s", req.URL)
	}
	resp := f.queue[0]
	f.queue = f.queue[1:]
	return resp, nil
}

func (f *fakeTransport) SetCookies(_ *url.URL, cookies []*http.Cookie) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	for _, c := range cookies {
		f.cookieSet[c.Name] = c
	}
}

func (f *fakeTransport) Cookies(_ *url.URL) []*http.Cookie {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	var out []*http.Cookie
	for _, c := range f.cookieSet {
		out = append(out, c)
	}
	return out
}

func (f *fakeTransport) ClearCookies() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.cookieSet = make(map[string]*http.Cookie)
}

// noopLimiter removes rate limiting delays from tests
type noopLimiter struct{}

func (noopLimiter) Wait(context.Context) error { return nil }
func (noopLimiter) Record()                    {}

func newTestClient(t *testing.T, id TrackerID, auth AuthStrategy, uploader uploadHandler, caps Capability, transport *fakeTransport) *Client {
	t.Helper()
	c, err := newClient(context.Background(), id, auth, uploader, caps, nil,
		WithTransport(transport), WithLimiter(noopLimiter{}))
	if err != nil {
		t.Fatalf("newClient failed: %v", err)
	}
	return c
}

const accountBody = `{"status":"success","response":{"authkey":"ak","passkey":"pk","id":42,"username":"uploader"}}`

// TestClient_TokenRouting tests that token-auth requests for any logical
// endpoint route through the ajax path with an action query parameter
func TestClient_TokenRouting(t *testing.T) {
	transport := newFakeTransport(
		jsonResponse(`{"status":"success","response":{}}`),
		jsonResponse(`{"status":"success","response":{}}`),
	)
	c := newTestClient(t, RED, NewTokenAuth("key"), redUploader{}, CapAccountJSON|CapTorrentInfo, transport)

	for _, endpoint := range []string{"index", "upload"} {
		if _, err := c.Request(context.Background(), endpoint, nil, nil, nil); err != nil {
			t.Fatalf("Request %s failed: %v", endpoint, err)
		}
	}

	for i, endpoint := range []string{"index", "upload"} {
		req := transport.requests[i]
		if !strings.HasSuffix(strings.SplitN(req.URL, "?", 2)[0], "ajax.php") {
			t.Fatalf("Expected ajax.php path for %s, got %s", endpoint, req.URL)
		}
		if got := req.Query.Get("action"); got != endpoint {
			t.Fatalf("Expected action=%s, got %s", endpoint, got)
		}
		if got := req.Headers["Authorization"]; got != "key" {
			t.Fatalf("Expected Authorization header, got %q", got)
		}
	}
}

// TestClient_SessionRouting tests that session-auth requests send upload
// and login to their dedicated paths and everything else through ajax
func TestClient_SessionRouting(t *testing.T) {
	auth := &SessionAuth{}

	cases := []struct {
		endpoint string
		path     string
		ajax     bool
	}{
		{"upload", "upload", false},
		{"login", "login", false},
		{"index", "ajax", true},
		{"torrent", "ajax", true},
	}
	for _, tc := range cases {
		path, ajax := auth.Route(tc.endpoint)
		if path != tc.path || ajax != tc.ajax {
			t.Fatalf("Route(%s) = (%s, %v), expected (%s, %v)", tc.endpoint, path, ajax, tc.path, tc.ajax)
		}
	}
}

// TestClient_MethodSelection tests that the method is POST exactly when
// form data or files are present
func TestClient_MethodSelection(t *testing.T) {
	transport := newFakeTransport(
		jsonResponse(`{"status":"success","response":{}}`),
		jsonResponse(`{"status":"success","response":{}}`),
		jsonResponse(`{"status":"success","response":{}}`),
	)
	c := newTestClient(t, RED, NewTokenAuth("key"), redUploader{}, CapAccountJSON, transport)
	ctx := context.Background()

	c.Request(ctx, "index", nil, nil, nil)
	c.Request(ctx, "upload", nil, url.Values{"title": {"x"}}, nil)
	c.Request(ctx, "upload", nil, nil, []internal.FileUpload{{Field: "file_input", Filename: "a.torrent", Data: []byte("d")}})

	expected := []string{"GET", "POST", "POST"}
	for i, method := range expected {
		if transport.requests[i].Method != method {
			t.Fatalf("Request %d: expected %s, got %s", i, method, transport.requests[i].Method)
		}
	}
}

// TestClient_AccountInfoMemoized tests that account info is fetched once
// and cached for the client's lifetime
func TestClient_AccountInfoMemoized(t *testing.T) {
	transport := newFakeTransport(jsonResponse(accountBody))
	c := newTestClient(t, RED, NewTokenAuth("key"), redUploader{}, CapAccountJSON, transport)
	ctx := context.Background()

	first, err := c.AccountInfo(ctx)
	if err != nil {
		t.Fatalf("AccountInfo failed: %v", err)
	}
	second, err := c.AccountInfo(ctx)
	if err != nil {
		t.Fatalf("Second AccountInfo failed: %v", err)
	}

	if first != second {
		t.Fatalf("Expected the cached AccountInfo instance")
	}
	if len(transport.requests) != 1 {
		t.Fatalf("Expected exactly one index request, got %d", len(transport.requests))
	}
	if first.AuthKey != "ak" || first.PassKey != "pk" || first.UserID != 42 || first.Username != "uploader" {
		t.Fatalf("Unexpected account info: %+v", first)
	}
}

// TestClient_AccountInfoMissingFields tests that an index response
// without the recognized fields fails with a parse error
func TestClient_AccountInfoMissingFields(t *testing.T) {
	transport := newFakeTransport(jsonResponse(`{"status":"success","response":{"authkey":"ak"}}`))
	c := newTestClient(t, RED, NewTokenAuth("key"), redUploader{}, CapAccountJSON, transport)

	_, err := c.AccountInfo(context.Background())
	if !internal.IsType(err, internal.ErrParse) {
		t.Fatalf("Expected Parse error, got: %v", err)
	}
}

// TestClient_HTMLAccountInfo tests the scraping fallback for trackers
// without a JSON index
func TestClient_HTMLAccountInfo(t *testing.T) {
	page := `<a href="torrents.php?authkey=abc123&passkey=def456">dl</a> <a href="torrents.php?userid=987&type=seeding">seeding</a>`
	transport := newFakeTransport(htmlResponse(200, "https://redacted.sh/index.php", page))
	c := newTestClient(t, RED, NewTokenAuth("key"), cookieUploader{}, 0, transport)

	acct, err := c.AccountInfo(context.Background())
	if err != nil {
		t.Fatalf("AccountInfo failed: %v", err)
	}
	if acct.AuthKey != "abc123" || acct.PassKey != "def456" || acct.UserID != 987 {
		t.Fatalf("Unexpected scraped account info: %+v", acct)
	}

	if !strings.HasSuffix(transport.requests[0].URL, "index.php") {
		t.Fatalf("Expected a raw index.php fetch, got %s", transport.requests[0].URL)
	}
}

// TestClient_TorrentInfoUnsupported tests that variants without the
// capability fail at the call site with a defined error
func TestClient_TorrentInfoUnsupported(t *testing.T) {
	transport := newFakeTransport()
	c := newTestClient(t, RED, NewTokenAuth("key"), cookieUploader{}, 0, transport)

	_, err := c.TorrentInfo(context.Background(), nil)
	if !internal.IsType(err, internal.ErrUnsupported) {
		t.Fatalf("Expected Unsupported error, got: %v", err)
	}
	if len(transport.requests) != 0 {
		t.Fatalf("Expected no network call for unsupported operation")
	}
}

// TestClient_AnnounceURL tests announce template formatting from the
// cached account info
func TestClient_AnnounceURL(t *testing.T) {
	transport := newFakeTransport(jsonResponse(accountBody))
	c := newTestClient(t, RED, NewTokenAuth("key"), redUploader{}, CapAccountJSON, transport)

	announce, err := c.AnnounceURL(context.Background())
	if err != nil {
		t.Fatalf("AnnounceURL failed: %v", err)
	}
	if announce != "https://flacsfor.me/pk/announce" {
		t.Fatalf("Unexpected announce URL: %s", announce)
	}
}

// TestClient_DownloadTorrent tests the binary metafile fetch
func TestClient_DownloadTorrent(t *testing.T) {
	payload := []byte("d8:announce3:urle")
	transport := newFakeTransport(&internal.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"application/x-bittorrent"}},
		Body:       payload,
	})
	c := newTestClient(t, RED, NewTokenAuth("key"), redUploader{}, CapAccountJSON, transport)

	data, err := c.DownloadTorrent(context.Background(), 123)
	if err != nil {
		t.Fatalf("DownloadTorrent failed: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("Metafile bytes were modified")
	}
	if got := transport.requests[0].Query.Get("id"); got != "123" {
		t.Fatalf("Expected id=123, got %s", got)
	}
}

// TestClient_RequestFailureCarriesContext tests that failure envelopes
// surface with tracker and endpoint attached
func TestClient_RequestFailureCarriesContext(t *testing.T) {
	transport := newFakeTransport(jsonResponse(`{"status":"failure","error":"rate exceeded"}`))
	c := newTestClient(t, OPS, NewTokenAuth("token key"), opsUploader{}, CapAccountJSON, transport)

	_, err := c.Request(context.Background(), "index", nil, nil, nil)
	ge, ok := err.(*internal.GazelleError)
	if !ok {
		t.Fatalf("Expected GazelleError, got: %v", err)
	}
	if ge.Tracker != "OPS" || ge.Endpoint != "index" {
		t.Fatalf("Expected tracker/endpoint context, got: %+v", ge)
	}
	if ge.Message != "rate exceeded" {
		t.Fatalf("Expected the tracker's message, got %q", ge.Message)
	}
}

// TestNewClient_MissingKeyAborts tests that authentication failures
// abort client construction entirely
func TestNewClient_MissingKeyAborts(t *testing.T) {
	_, err := newClient(context.Background(), RED, NewTokenAuth(""), redUploader{}, CapAccountJSON, nil,
		WithTransport(newFakeTransport()), WithLimiter(noopLimiter{}))
	if !internal.IsType(err, internal.ErrAuthentication) {
		t.Fatalf("Expected Authentication error, got: %v", err)
	}
}
