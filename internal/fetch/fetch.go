// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package fetch retrieves source documents over HTTP or from the local file
// system and transparently decompresses gzip content.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// ErrTooLarge is returned when a document exceeds the configured size limit.
var ErrTooLarge = errors.New("document exceeds size limit")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// Header is one request header.
type Header struct {
	Name  string
	Value string
}

// Options configures a Fetcher.
type Options struct {
	// Timeout bounds a single HTTP request. Zero means no timeout.
	Timeout time.Duration
	// MaxBytes limits both the transferred and the decompressed size.
	// Zero means no limit.
	MaxBytes int64
	// Headers are sent with every HTTP request, in order.
	Headers []Header
	// UserAgent is used unless Headers sets one.
	UserAgent string
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// Document is a retrieved source document.
type Document struct {
	// Source is the URL or path the document was read from.
	Source string
	// Raw holds the bytes as received (possibly compressed).
	Raw []byte
	// Data holds the decompressed content.
	Data []byte
	// Gzipped reports whether Raw was gzip data.
	Gzipped bool
	// DeclaredGzip reports a .gz name or gzip content type.
	DeclaredGzip bool
}

// Fetcher retrieves documents.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	headers   []Header
	userAgent string
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{
		client:    client,
		maxBytes:  opts.MaxBytes,
		headers:   opts.Headers,
		userAgent: opts.UserAgent,
	}
}

// CloseIdleConnections releases pooled HTTP connections.
func (f *Fetcher) CloseIdleConnections() {
	f.client.CloseIdleConnections()
}

// Fetch reads the document at rawURL: http(s) URLs, file:// URLs and plain
// file system paths are supported.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	if rawURL == "" {
		return nil, errors.New("fetch: empty location")
	}

	var (
		raw      []byte
		gzipHint bool
		err      error
	)
	u, perr := url.Parse(rawURL)
	switch {
	case perr == nil && (u.Scheme == "http" || u.Scheme == "https"):
		raw, gzipHint, err = f.fetchHTTP(ctx, rawURL)
	case perr == nil && u.Scheme == "file":
		raw, err = f.readFile(ctx, fileURLPath(u))
		gzipHint = strings.HasSuffix(strings.ToLower(u.Path), ".gz")
	default:
		raw, err = f.readFile(ctx, rawURL)
		gzipHint = strings.HasSuffix(strings.ToLower(rawURL), ".gz")
	}
	if err != nil {
		return nil, err
	}

	doc := &Document{Source: rawURL, Raw: raw, Data: raw, DeclaredGzip: gzipHint}
	// The magic bytes decide; servers often decompress .gz files on the fly.
	if isGzip(raw) {
		data, err := f.gunzip(raw)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", rawURL, err)
		}
		doc.Data, doc.Gzipped = data, true
	}
	return doc, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	for _, h := range f.headers {
		req.Header.Set(h.Name, h.Value)
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return nil, false, &StatusError{URL: rawURL, Status: res.StatusCode}
	}
	if f.maxBytes > 0 && res.ContentLength > f.maxBytes {
		return nil, false, fmt.Errorf("GET %s: %w (%d > %d bytes)", rawURL, ErrTooLarge, res.ContentLength, f.maxBytes)
	}

	body, err := f.readLimited(res.Body)
	if err != nil {
		return nil, false, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	return body, gzipContent(rawURL, res.Header.Get("Content-Type")), nil
}

func (f *Fetcher) readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// #nosec G304 -- source paths are provided by the operator via config
	fh, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	data, err := f.readLimited(fh)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, f.maxBytes)
	}
	return data, nil
}

func (f *Fetcher) gunzip(raw []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()
	return f.readLimited(zr)
}

func isGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}

func gzipContent(rawURL, contentType string) bool {
	if u, err := url.Parse(rawURL); err == nil && strings.HasSuffix(strings.ToLower(u.Path), ".gz") {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/gzip" || mt == "application/x-gzip"
}

func fileURLPath(u *url.URL) string {
	if u.Host != "" && u.Host != "localhost" {
		// file://relative/path keeps the host as first segment
		return u.Host + u.Path
	}
	return u.Path
}
