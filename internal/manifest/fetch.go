package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// maxResourceBytes caps manifest and prompt bodies.
const maxResourceBytes = 4 * 1024 * 1024

// ErrTooLarge is returned for a resource longer than maxResourceBytes.
var ErrTooLarge = errors.New("resource too large")

// Fetcher reads a resource by its site-relative path.
type Fetcher interface {
	Fetch(ctx context.Context, p string) ([]byte, error)
}

// HTTPFetcher reads resources relative to a site root URL.
type HTTPFetcher struct {
	BaseURL *url.URL
	HTTP    *http.Client
}

// NewHTTPFetcher constructs an HTTPFetcher. The base is treated as a
// directory, so "https://host/site" and "https://host/site/" are equivalent.
func NewHTTPFetcher(base string, timeout time.Duration) (*HTTPFetcher, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse manifest url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("manifest url %q: scheme must be http or https", base)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &HTTPFetcher{
		BaseURL: u,
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Fetch issues a GET; any non-2xx status is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, p string) ([]byte, error) {
	u := f.BaseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(p, "/")})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("GET %s status %d: %s", u.Path, resp.StatusCode, strings.TrimSpace(string(buf)))
	}

	b, err := ioReadAllLimit(resp.Body, maxResourceBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u.Path, err)
	}
	return b, nil
}

// FSFetcher reads resources from a filesystem, usually the served asset root.
type FSFetcher struct {
	FS fs.FS
}

// NewFSFetcher wraps fsys.
func NewFSFetcher(fsys fs.FS) *FSFetcher {
	return &FSFetcher{FS: fsys}
}

// Fetch reads p from the filesystem.
func (f *FSFetcher) Fetch(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := path.Clean(strings.TrimPrefix(p, "/"))
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrInvalid}
	}
	file, err := f.FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	b, err := ioReadAllLimit(file, maxResourceBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

// ioReadAllLimit reads all of r, failing with ErrTooLarge past max bytes.
func ioReadAllLimit(r io.Reader, max int64) ([]byte, error) {
	buf := &bytes.Buffer{}
	if max <= 0 {
		return io.ReadAll(r)
	}
	_, err := io.CopyN(buf, r, max+1)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if int64(buf.Len()) > max {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, max)
	}
	return buf.Bytes(), nil
}
