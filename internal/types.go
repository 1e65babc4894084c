package internal

import (
	"net/http"
	"net/url"
)

// Request describes a single HTTP exchange to be executed by a Transport
type Request struct {
	Method  string
	URL     string
	Query   url.Values
	Form    url.Values
	Files   []FileUpload
	Headers map[string]string
}

// FileUpload is one multipart file attachment in a Request
type FileUpload struct {
	Field    string // form field name, e.g. "file_input"
	Filename string
	Data     []byte
}

// Response is the raw result of one HTTP exchange
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FinalURL   string // URL after any redirects, needed by the cookie upload path
}

// ContentType returns the declared content type of the response body
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// AccountInfo contains the per-user tracker credentials fetched from the
// index endpoint (or scraped from the index page for HTML-only trackers).
// Cached for the lifetime of one client instance.
type AccountInfo struct {
	AuthKey  string `json:"authkey"`
	PassKey  string `json:"passkey"`
	UserID   int    `json:"id"`
	Username string `json:"username"`
}

// UploadResult is the outcome of a successful torrent upload.
// The cookie/HTML upload path only fills ViewURL.
type UploadResult struct {
	TorrentID int
	GroupID   int
	ViewURL   string
}
