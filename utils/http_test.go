package utils

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"gazellekit/internal"
)

func testTransport() *HTTPTransport {
	return NewHTTPTransport(&HTTPTransportConfig{
		Timeout:   5 * time.Second,
		UserAgent: "gazellekit-test",
	})
}

// TestHTTPTransport_GetWithQuery tests query encoding and the standard
// headers
func TestHTTPTransport_GetWithQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") != "index" || r.URL.Query().Get("id") != "5" {
			t.Errorf("Unexpected query: %s", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") != "gazellekit-test" {
			t.Errorf("Unexpected user agent: %s", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Authorization") != "secret" {
			t.Errorf("Missing Authorization header")
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	resp, err := testTransport().Do(context.Background(), &internal.Request{
		Method:  "GET",
		URL:     server.URL + "/ajax.php",
		Query:   url.Values{"action": {"index"}, "id": {"5"}},
		Headers: map[string]string{"Authorization": "secret"},
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if resp.StatusCode != 200 || string(resp.Body) != "ok" {
		t.Fatalf("Unexpected response: %d %q", resp.StatusCode, resp.Body)
	}
}

// TestHTTPTransport_URLEncodedForm tests that a form without files posts
// urlencoded
func TestHTTPTransport_URLEncodedForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Unexpected content type: %s", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}
		if r.PostForm.Get("username") != "u" || r.PostForm.Get("keeplogged") != "1" {
			t.Errorf("Unexpected form: %v", r.PostForm)
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	_, err := testTransport().Do(context.Background(), &internal.Request{
		Method: "POST",
		URL:    server.URL + "/login.php",
		Form:   url.Values{"username": {"u"}, "password": {"p"}, "keeplogged": {"1"}},
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
}

// TestHTTPTransport_MultipartUpload tests that attached files switch the
// body to multipart with form fields preserved
func TestHTTPTransport_MultipartUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm failed: %v", err)
			return
		}
		if r.MultipartForm.Value["title"][0] != "Album" {
			t.Errorf("Form field lost in multipart body")
		}

		file, header, err := r.FormFile("file_input")
		if err != nil {
			t.Errorf("FormFile failed: %v", err)
			return
		}
		defer file.Close()
		if header.Filename != "a.torrent" {
			t.Errorf("Unexpected filename: %s", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "torrent-bytes" {
			t.Errorf("File content mangled: %q", data)
		}

		logs := r.MultipartForm.File["logfiles[]"]
		if len(logs) != 2 {
			t.Errorf("Expected 2 log files, got %d", len(logs))
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	_, err := testTransport().Do(context.Background(), &internal.Request{
		Method: "POST",
		URL:    server.URL + "/upload.php",
		Form:   url.Values{"title": {"Album"}},
		Files: []internal.FileUpload{
			{Field: "file_input", Filename: "a.torrent", Data: []byte("torrent-bytes")},
			{Field: "logfiles[]", Filename: "disc1.log", Data: []byte("log1")},
			{Field: "logfiles[]", Filename: "disc2.log", Data: []byte("log2")},
		},
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
}

// TestHTTPTransport_CookiesPersistAcrossRequests tests that a Set-Cookie
// response travels back on the next request
func TestHTTPTransport_CookiesPersistAcrossRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login.php":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s123", Path: "/"})
			w.Write([]byte("ok"))
		case "/ajax.php":
			cookie, err := r.Cookie("session")
			if err != nil || cookie.Value != "s123" {
				t.Errorf("Session cookie did not travel: %v", err)
			}
			w.Write([]byte("ok"))
		}
	}))
	defer server.Close()

	transport := testTransport()
	ctx := context.Background()

	if _, err := transport.Do(ctx, &internal.Request{Method: "GET", URL: server.URL + "/login.php"}); err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	if _, err := transport.Do(ctx, &internal.Request{Method: "GET", URL: server.URL + "/ajax.php"}); err != nil {
		t.Fatalf("follow-up request failed: %v", err)
	}

	u, _ := url.Parse(server.URL)
	cookies := transport.Cookies(u)
	if len(cookies) != 1 || cookies[0].Name != "session" || cookies[0].Value != "s123" {
		t.Fatalf("Jar did not retain the session cookie: %+v", cookies)
	}

	transport.ClearCookies()
	if len(transport.Cookies(u)) != 0 {
		t.Fatalf("ClearCookies left cookies behind")
	}
}

// TestHTTPTransport_RedirectFinalURL tests that the response reports the
// URL the chain ended at, not the one requested
func TestHTTPTransport_RedirectFinalURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/upload.php":
			http.Redirect(w, r, "/torrents.php?id=7", http.StatusFound)
		case "/torrents.php":
			w.Write([]byte("<html>torrent page</html>"))
		}
	}))
	defer server.Close()

	resp, err := testTransport().Do(context.Background(), &internal.Request{
		Method: "GET",
		URL:    server.URL + "/upload.php",
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !strings.Contains(resp.FinalURL, "/torrents.php?id=7") {
		t.Fatalf("Expected the redirect target as final URL, got %s", resp.FinalURL)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected the final status, got %d", resp.StatusCode)
	}
}

// TestMemoryJar_ExpiryHandling tests that expired cookies are filtered
// on read and Max-Age converts to an absolute expiry
func TestMemoryJar_ExpiryHandling(t *testing.T) {
	jar := newMemoryJar()
	u, _ := url.Parse("https://example.org/")

	jar.SetCookies(u, []*http.Cookie{
		{Name: "live", Value: "1", Expires: time.Now().Add(time.Hour)},
		{Name: "dead", Value: "1", Expires: time.Now().Add(-time.Hour)},
		{Name: "aged", Value: "1", MaxAge: 3600},
	})

	cookies := jar.Cookies(u)
	names := map[string]*http.Cookie{}
	for _, c := range cookies {
		names[c.Name] = c
	}
	if len(cookies) != 2 {
		t.Fatalf("Expected 2 live cookies, got %d", len(cookies))
	}
	if names["dead"] != nil {
		t.Fatalf("Expired cookie survived")
	}
	if names["aged"] == nil || names["aged"].Expires.IsZero() {
		t.Fatalf("Max-Age was not converted to an absolute expiry")
	}

	// A negative Max-Age deletes.
	jar.SetCookies(u, []*http.Cookie{{Name: "live", MaxAge: -1}})
	for _, c := range jar.Cookies(u) {
		if c.Name == "live" {
			t.Fatalf("Negative Max-Age did not delete the cookie")
		}
	}
}
