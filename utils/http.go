package utils

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/proxy"

	"gazellekit/internal"
)

// HTTPTransportConfig contains configuration for the HTTP transport
type HTTPTransportConfig struct {
	Timeout   time.Duration
	ProxyURL  string
	UserAgent string
}

// DefaultHTTPTransportConfig returns the default transport configuration
func DefaultHTTPTransportConfig() *HTTPTransportConfig {
	return &HTTPTransportConfig{
		Timeout:   30 * time.Second,
		UserAgent: "gazellekit/1.0",
	}
}

// HTTPTransport executes single HTTP exchanges for the API client. It
// owns the cookie jar and performs no retries: the rate limiter's delay
// is the only built-in backoff, and transport failures propagate to the
// caller unchanged.
type HTTPTransport struct {
	client    *http.Client
	jar       *memoryJar
	userAgent string
}

// NewHTTPTransport creates a transport with the given configuration.
// A nil config selects the defaults.
func NewHTTPTransport(config *HTTPTransportConfig) *HTTPTransport {
	if config == nil {
		config = DefaultHTTPTransportConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "gazellekit/1.0"
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: false,
		},
	}

	if config.ProxyURL != "" {
		if err := configureProxy(transport, config.ProxyURL); err != nil {
			internal.LogWarn("failed to configure proxy %s: %v", config.ProxyURL, err)
		}
	}

	jar := newMemoryJar()
	client := &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &HTTPTransport{
		client:    client,
		jar:       jar,
		userAgent: config.UserAgent,
	}
}

// configureProxy sets up proxy configuration for the transport
func configureProxy(transport *http.Transport, proxyURL string) error {
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch parsedURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedURL)
	case "socks5":
		dialer, err := proxy.SOCKS5("tcp", parsedURL.Host, nil, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 proxy: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", parsedURL.Scheme)
	}

	return nil
}

// Do executes one HTTP exchange and returns the fully-read response
func (t *HTTPTransport) Do(ctx context.Context, req *internal.Request) (*internal.Response, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid request URL: %w", err)
	}
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	body, contentType, err := buildBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("User-Agent", t.userAgent)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &internal.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// buildBody assembles the request body: multipart when files are
// attached, urlencoded form otherwise
func buildBody(req *internal.Request) (io.Reader, string, error) {
	if len(req.Files) > 0 {
		buf := &bytes.Buffer{}
		writer := multipart.NewWriter(buf)

		for key, values := range req.Form {
			for _, value := range values {
				if err := writer.WriteField(key, value); err != nil {
					return nil, "", fmt.Errorf("failed to write form field %s: %w", key, err)
				}
			}
		}
		for _, file := range req.Files {
			part, err := writer.CreateFormFile(file.Field, file.Filename)
			if err != nil {
				return nil, "", fmt.Errorf("failed to create form file %s: %w", file.Field, err)
			}
			if _, err := part.Write(file.Data); err != nil {
				return nil, "", fmt.Errorf("failed to write form file %s: %w", file.Field, err)
			}
		}
		if err := writer.Close(); err != nil {
			return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
		}
		return buf, writer.FormDataContentType(), nil
	}

	if len(req.Form) > 0 {
		return strings.NewReader(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	}

	return nil, "", nil
}

// SetCookies stores cookies in the transport's jar
func (t *HTTPTransport) SetCookies(u *url.URL, cookies []*http.Cookie) {
	t.jar.SetCookies(u, cookies)
}

// Cookies returns the jar's live cookies with their full attributes
func (t *HTTPTransport) Cookies(u *url.URL) []*http.Cookie {
	return t.jar.Cookies(u)
}

// ClearCookies empties the jar
func (t *HTTPTransport) ClearCookies() {
	t.jar.Clear()
}

// memoryJar is a cookie jar that keeps the full cookie attributes. The
// stdlib jar discards expiry information on read, which the session
// persistence needs. The client only ever talks to one site, so cookies
// are keyed by name without domain/path matching.
type memoryJar struct {
	mutex   sync.RWMutex
	cookies map[string]*http.Cookie
}

// newMemoryJar creates an empty jar
func newMemoryJar() *memoryJar {
	return &memoryJar{cookies: make(map[string]*http.Cookie)}
}

// SetCookies implements http.CookieJar
func (j *memoryJar) SetCookies(_ *url.URL, cookies []*http.Cookie) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	for _, cookie := range cookies {
		if cookie.MaxAge < 0 {
			delete(j.cookies, cookie.Name)
			continue
		}
		stored := *cookie
		if cookie.MaxAge > 0 && stored.Expires.IsZero() {
			stored.Expires = time.Now().Add(time.Duration(cookie.MaxAge) * time.Second)
		}
		j.cookies[cookie.Name] = &stored
	}
}

// Cookies implements http.CookieJar, returning only unexpired cookies
func (j *memoryJar) Cookies(_ *url.URL) []*http.Cookie {
	j.mutex.RLock()
	defer j.mutex.RUnlock()

	var out []*http.Cookie
	now := time.Now()
	for _, cookie := range j.cookies {
		if !cookie.Expires.IsZero() && cookie.Expires.Before(now) {
			continue
		}
		out = append(out, cookie)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Clear removes all cookies, overwriting values first
func (j *memoryJar) Clear() {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	for name, cookie := range j.cookies {
		cookie.Value = ""
		delete(j.cookies, name)
	}
}
