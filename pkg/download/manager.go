// Package download implements the HTTP side of the artifact cache: bounded request
// timeouts, block-wise streaming with progress reporting, temp-file writes that are
// renamed into place, and a per-host circuit breaker.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/rs/dnscache"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/glorpus-work/depot/internal/logger"
	pkgerrors "github.com/glorpus-work/depot/pkg/errors"
	"github.com/glorpus-work/depot/pkg/fsutil"
)

const (
	// BlockSize is the unit in which response bodies are copied to disk.
	BlockSize = 32 * 1024

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "depot/1.0"

	// breakerThreshold is the number of consecutive failures after which a host is
	// treated as unavailable.
	breakerThreshold = 5

	progressStep = 1 << 20
)

// ErrHostUnavailable is returned without contacting the host once its circuit
// breaker has tripped.
var ErrHostUnavailable = fmt.Errorf("host unavailable: %w", pkgerrors.ErrDownload)

// StatusError reports a non-200 HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d for %s", e.StatusCode, e.URL)
}

// Unwrap returns ErrDownload.
func (e *StatusError) Unwrap() error {
	return pkgerrors.ErrDownload
}

// Manager is an HTTP downloader shared by all cache lookups of a run.
type Manager struct {
	client    *http.Client
	userAgent string

	mu       sync.RWMutex
	breakers map[string]*circuit.Breaker
}

var _ Downloader = (*Manager)(nil)

// NewManager creates a download manager whose requests are bounded by timeout.
func NewManager(timeout time.Duration, userAgent string) *Manager {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	resolver := &dnscache.Resolver{}
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &Manager{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					if net.ParseIP(host) != nil {
						return dialer.DialContext(ctx, network, addr)
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					var lastErr error
					for _, ip := range ips {
						conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if err == nil {
							return conn, nil
						}
						lastErr = err
					}
					return nil, fmt.Errorf("failed to dial any resolved IP for %s: %w", host, lastErr)
				},
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		userAgent: userAgent,
		breakers:  make(map[string]*circuit.Breaker),
	}
}

// Download implements Downloader.
func (m *Manager) Download(ctx context.Context, rawURL, dst string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("invalid URL %q: %v: %w", rawURL, err, pkgerrors.ErrDownload)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return 0, fmt.Errorf("unsupported URL scheme %q: %w", u.Scheme, pkgerrors.ErrDownload)
	}

	breaker := m.breaker(u.Host)
	if !breaker.Ready() {
		return 0, fmt.Errorf("%s: %w", u.Host, ErrHostUnavailable)
	}

	// Client errors mean the host answered; only transport failures and 5xx
	// responses count against the breaker.
	var (
		written   int64
		clientErr error
	)
	err = breaker.Call(func() error {
		n, err := m.fetch(ctx, u, dst)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError {
			clientErr = err
			return nil
		}
		written = n
		return err
	}, 0)
	if clientErr != nil {
		return 0, clientErr
	}
	if err != nil {
		return 0, err
	}
	return written, nil
}

func (m *Manager) fetch(ctx context.Context, u *url.URL, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %v: %w", err, pkgerrors.ErrDownload)
	}
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request to %s failed: %v: %w", u.Redacted(), err, pkgerrors.ErrDownload)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, &StatusError{URL: u.Redacted(), StatusCode: resp.StatusCode}
	}

	return writeAtomically(resp.Body, resp.ContentLength, u.Redacted(), dst)
}

func writeAtomically(body io.Reader, total int64, source, dst string) (int64, error) {
	dir := filepath.Dir(dst)
	if err := fsutil.EnsureDir(dir); err != nil {
		return 0, pkgerrors.Wrap(err, "could not create download dir")
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return 0, pkgerrors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := copyBlocks(tmp, body, total, source)
	if err != nil {
		cleanup()
		return 0, fmt.Errorf("failed reading %s: %v: %w", source, err, pkgerrors.ErrDownload)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, pkgerrors.Wrap(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, pkgerrors.Wrap(err, "could not close file")
	}
	if err := os.Chmod(tmpPath, fsutil.FileModeDefault); err != nil {
		_ = os.Remove(tmpPath)
		return 0, pkgerrors.Wrap(err, "could not set permissions")
	}
	if err := fsutil.Move(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return 0, pkgerrors.Wrap(err, "could not finalize file")
	}
	return n, nil
}

// copyBlocks copies src to dst in BlockSize chunks, logging progress every
// progressStep bytes.
func copyBlocks(dst io.Writer, src io.Reader, total int64, source string) (int64, error) {
	buf := make([]byte, BlockSize)
	var written, nextReport int64 = 0, progressStep
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
			if written >= nextReport {
				reportProgress(source, written, total)
				nextReport = written + progressStep
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return written, rerr
		}
	}
	if total > 0 && written != total {
		return written, fmt.Errorf("short body: got %d of %d bytes", written, total)
	}
	return written, nil
}

func reportProgress(source string, written, total int64) {
	fields := logger.Fields{"url": source, "bytes": written}
	if total > 0 {
		fields["total"] = total
		fields["percent"] = written * 100 / total
	}
	logger.Debug("Downloading", fields)
}

func (m *Manager) breaker(host string) *circuit.Breaker {
	m.mu.RLock()
	b, ok := m.breakers[host]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[host]; ok {
		return b
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Reset()

	b = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ConsecutiveTripFunc(breakerThreshold),
	})
	m.breakers[host] = b
	return b
}

// BreakerStates reports "open" or "closed" for every host contacted so far.
func (m *Manager) BreakerStates() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	states := make(map[string]string, len(m.breakers))
	for host, b := range m.breakers {
		if b.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}
