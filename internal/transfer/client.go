// Package transfer downloads buildjson snapshots, keeps their compressed bytes
// in a local BlobStore and decodes them into buildjson documents.
//
// A cached blob is only reused while it still matches the server: the client
// issues a HEAD request and compares the size (and ETag, when the server sends
// one) with what the Manifest recorded at download time, and verifies the
// blob's sha256. A reissued file, such as builds-4hr.js every fifteen
// minutes, is therefore downloaded again.
package transfer

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mozilla/mozci-go/internal/buildjson"
)

// ErrMissingBuilds is returned for a document without a "builds" entry.
var ErrMissingBuilds = errors.New(`document has no "builds" entry`)

// Config holds configuration for a Client.
type Config struct {
	// BaseURL is where snapshots are published (defaults to buildjson.DefaultBaseURL)
	BaseURL string

	// Store keeps downloaded blobs (required)
	Store BlobStore

	// Manifest records downloads; without it only sizes are compared
	Manifest *Manifest

	// HTTPClient overrides the default client built from Timeout
	HTTPClient *http.Client

	// Timeout bounds each HTTP request (defaults to 5 minutes)
	Timeout time.Duration

	// RequestsPerSecond paces requests to the server; zero means unlimited
	RequestsPerSecond float64

	// Burst is the limiter's burst size (defaults to 1)
	Burst int

	// LogFn receives log messages (if nil, warnings go to stderr)
	LogFn func(level, msg string)
}

// Client fetches snapshots. It implements buildjson.Fetcher.
type Client struct {
	baseURL    string
	store      BlobStore
	manifest   *Manifest
	httpClient *http.Client
	limiter    *rate.Limiter
	logFn      func(level, msg string)
	now        func() time.Time
}

var _ buildjson.Fetcher = (*Client)(nil)

// NewClient creates a client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("transfer: a blob store is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = buildjson.DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		store:      cfg.Store,
		manifest:   cfg.Manifest,
		httpClient: cfg.HTTPClient,
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		logFn:      cfg.LogFn,
		now:        time.Now,
	}, nil
}

func (c *Client) log(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.logFn != nil {
		c.logFn(level, msg)
		return
	}
	if level == "error" || level == "warning" {
		fmt.Fprintf(os.Stderr, "%s\n", msg)
	}
}

// URL returns the remote location of name.
func (c *Client) URL(name string) string {
	return buildjson.RemotePath(c.baseURL, name)
}

// Fetch returns the decoded document for name, downloading it unless a valid
// copy is cached. A cached copy that fails to decode is discarded and
// downloaded once more.
func (c *Client) Fetch(ctx context.Context, name string) (*buildjson.Document, error) {
	url := c.URL(name)

	data, cached, err := c.load(ctx, name, url)
	if err != nil {
		return nil, err
	}

	doc, err := Decode(data)
	if err == nil {
		return doc, nil
	}
	if !cached {
		return nil, fmt.Errorf("failed to decode %s: %w", url, err)
	}

	c.log("warning", "Cached copy of %s is corrupt (%v), downloading it again", name, err)
	if err := c.Discard(ctx, name); err != nil {
		return nil, err
	}
	if data, err = c.download(ctx, name, url); err != nil {
		return nil, err
	}
	doc, err = Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return doc, nil
}

// Discard removes name from the blob store and the manifest.
func (c *Client) Discard(ctx context.Context, name string) error {
	if err := c.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete cached %s: %w", name, err)
	}
	if c.manifest != nil {
		if err := c.manifest.Delete(name); err != nil {
			return err
		}
	}
	return nil
}

// load returns the blob for name and whether it came from the store.
func (c *Client) load(ctx context.Context, name, url string) ([]byte, bool, error) {
	data, err := c.store.Get(ctx, name)
	switch {
	case errors.Is(err, ErrNotCached):
	case err != nil:
		c.log("warning", "Could not read cached %s: %v", name, err)
	default:
		valid, err := c.validate(ctx, name, url, data)
		if err != nil {
			// Keep working offline with what we have.
			c.log("warning", "Could not validate cached %s, using it anyway: %v", name, err)
			return data, true, nil
		}
		if valid {
			c.log("debug", "Using cached %s", name)
			return data, true, nil
		}
		c.log("debug", "Cached %s is out of date", name)
	}

	data, err = c.download(ctx, name, url)
	return data, false, err
}

// validate reports whether data still matches the remote file. An error means
// the server could not be asked.
func (c *Client) validate(ctx context.Context, name, url string, data []byte) (bool, error) {
	var entry *Entry
	if c.manifest != nil {
		var err error
		if entry, err = c.manifest.Get(name); err != nil {
			return false, err
		}
		if entry == nil {
			return false, nil
		}
		if entry.Size != int64(len(data)) || entry.SHA256 != checksum(data) {
			c.log("warning", "Cached %s does not match its manifest entry", name)
			return false, nil
		}
	}

	resp, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return false, err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("HEAD %s returned status: %s", url, resp.Status)
	}
	if resp.ContentLength >= 0 && resp.ContentLength != int64(len(data)) {
		return false, nil
	}
	if etag := resp.Header.Get("ETag"); entry != nil && etag != "" && entry.ETag != "" && etag != entry.ETag {
		return false, nil
	}
	if lm := resp.Header.Get("Last-Modified"); entry != nil && lm != "" && entry.LastModified != "" && lm != entry.LastModified {
		return false, nil
	}
	return true, nil
}

// download fetches url, stores it under name and records it in the manifest.
func (c *Client) download(ctx context.Context, name, url string) ([]byte, error) {
	c.log("info", "Downloading %s", url)

	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download of %s failed with status: %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if resp.ContentLength >= 0 && resp.ContentLength != int64(len(data)) {
		return nil, fmt.Errorf("truncated download of %s: got %d of %d bytes", url, len(data), resp.ContentLength)
	}

	if err := c.store.Put(ctx, name, data); err != nil {
		return nil, err
	}
	if c.manifest != nil {
		err := c.manifest.Upsert(Entry{
			Name:         name,
			URL:          url,
			Size:         int64(len(data)),
			SHA256:       checksum(data),
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			FetchedAt:    c.now(),
		})
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "mozci-go")
	return c.httpClient.Do(req)
}

// Decode gunzips data and parses it as a buildjson document.
func Decode(data []byte) (*buildjson.Document, error) {
	gzr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gzr.Close()

	var raw struct {
		Builds *[]json.RawMessage `json:"builds"`
	}
	if err := json.NewDecoder(gzr).Decode(&raw); err != nil {
		return nil, err
	}
	if raw.Builds == nil {
		return nil, ErrMissingBuilds
	}
	return &buildjson.Document{Builds: *raw.Builds}, nil
}

// checksum returns the hex sha256 of data.
func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
