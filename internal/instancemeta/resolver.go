// Package instancemeta resolves the deployment region from the cloud
// instance metadata endpoint.
package instancemeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
)

// Defaults for the instance identity lookup.
const (
	DefaultEndpoint       = "http://169.254.169.254/latest/dynamic/instance-identity/document"
	DefaultConnectTimeout = 2 * time.Second
	DefaultReadTimeout    = 5 * time.Second
	DefaultMaxRetries     = 3
	DefaultBackoffBase    = 300 * time.Millisecond
)

// maxDocumentSize bounds the identity document read.
const maxDocumentSize = 64 << 10

// Options configures a Resolver. Zero values take the defaults.
type Options struct {
	Endpoint       string
	ConnectTimeout time.Duration
	// ReadTimeout bounds the wait for the response headers and for each
	// read of the body.
	ReadTimeout time.Duration
	// MaxRetries is the number of retries after the first attempt. Nil
	// takes DefaultMaxRetries; zero disables retries.
	MaxRetries  *uint64
	BackoffBase time.Duration
	Logger      *slog.Logger
}

// Retries returns n for Options.MaxRetries.
func Retries(n uint64) *uint64 {
	return &n
}

// Resolver fetches the instance identity document.
type Resolver struct {
	endpoint    string
	client      *http.Client
	readTimeout time.Duration
	maxRetries  uint64
	backoffBase time.Duration
	logger      *slog.Logger
}

// NewResolver creates a resolver with its own HTTP client.
func NewResolver(opts Options) *Resolver {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	maxRetries := uint64(DefaultMaxRetries)
	if opts.MaxRetries != nil {
		maxRetries = *opts.MaxRetries
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	transport := &http.Transport{
		Proxy:                 nil,
		DialContext:           (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext,
		ResponseHeaderTimeout: opts.ReadTimeout,
		DisableKeepAlives:     true,
	}

	return &Resolver{
		endpoint:    opts.Endpoint,
		client:      &http.Client{Transport: transport},
		readTimeout: opts.ReadTimeout,
		maxRetries:  maxRetries,
		backoffBase: opts.BackoffBase,
		logger:      opts.Logger,
	}
}

type identityDocument struct {
	Region string `json:"region"`
}

// Region returns the region named in the identity document. Transport
// errors and 5xx responses are retried with exponential backoff.
func (r *Resolver) Region(ctx context.Context) (string, error) {
	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewExponential(r.backoffBase))

	var region string
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		doc, err := r.fetch(ctx)
		if err != nil {
			var fatal *fatalError
			if errors.As(err, &fatal) {
				return fatal.err
			}
			r.logger.Debug("instance metadata request failed", slog.Int("attempt", attempt), slog.Any("error", err))
			return retry.RetryableError(err)
		}
		region = doc.Region
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve region from %s: %w", r.endpoint, err)
	}
	if region == "" {
		return "", fmt.Errorf("instance identity document from %s has no region", r.endpoint)
	}

	r.logger.Debug("resolved region", slog.String("region", region))
	return region, nil
}

// fatalError marks failures that retrying cannot fix.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }

func (r *Resolver) fetch(ctx context.Context) (*identityDocument, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint, nil)
	if err != nil {
		return nil, &fatalError{err: err}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body := newIdleReader(resp.Body, r.readTimeout, cancel)
	defer body.stop()

	raw, err := io.ReadAll(io.LimitReader(body, maxDocumentSize))
	if err != nil {
		if body.expired.Load() {
			return nil, fmt.Errorf("identity document read timed out after %s", r.readTimeout)
		}
		return nil, err
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, &fatalError{err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var doc identityDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &fatalError{err: fmt.Errorf("invalid identity document: %w", err)}
	}
	return &doc, nil
}

// idleReader cancels the request when no read completes within timeout.
type idleReader struct {
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
	expired atomic.Bool
}

func newIdleReader(r io.Reader, timeout time.Duration, cancel context.CancelFunc) *idleReader {
	ir := &idleReader{r: r, timeout: timeout}
	ir.timer = time.AfterFunc(timeout, func() {
		ir.expired.Store(true)
		cancel()
	})
	return ir
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 {
		ir.timer.Reset(ir.timeout)
	}
	return n, err
}

func (ir *idleReader) stop() {
	ir.timer.Stop()
}
