package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/aexvir/pandoc/internal/logging"
)

const (
	// DefaultTimeout applies to both connecting and to each read of a download.
	DefaultTimeout = 2 * time.Second
	// DefaultAttempts is the maximum number of download attempts.
	DefaultAttempts = 3
	// DefaultBackoff is the pause before the second attempt, doubled on every further one.
	DefaultBackoff = 500 * time.Millisecond

	chunksize = 8 * 1024
)

// Fetcher downloads files over http telling transient failures, worth retrying,
// apart from permanent ones.
type Fetcher struct {
	connectTimeout time.Duration
	readTimeout    time.Duration
	attempts       int
	backoff        time.Duration
	progress       bool
}

type FetcherOption func(f *Fetcher)

// WithTimeouts sets the connect timeout and the read timeout; a download
// aborts if the transfer stalls for longer than the read timeout.
// Zero values disable the corresponding timeout.
func WithTimeouts(connect, read time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.connectTimeout = connect
		f.readTimeout = read
	}
}

// WithAttempts sets the maximum number of attempts made by [Fetcher.SaveWithRetry].
func WithAttempts(attempts int) FetcherOption {
	return func(f *Fetcher) {
		if attempts > 0 {
			f.attempts = attempts
		}
	}
}

// WithBackoff sets the pause before the second attempt.
func WithBackoff(backoff time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if backoff >= 0 {
			f.backoff = backoff
		}
	}
}

// WithoutProgress disables the progress bar even when running in a terminal.
func WithoutProgress() FetcherOption {
	return func(f *Fetcher) {
		f.progress = false
	}
}

func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := Fetcher{
		connectTimeout: DefaultTimeout,
		readTimeout:    DefaultTimeout,
		attempts:       DefaultAttempts,
		backoff:        DefaultBackoff,
		progress:       true,
	}

	for _, opt := range opts {
		opt(&f)
	}

	return &f
}

// SaveWithRetry downloads url into destination, retrying transient failures up
// to the configured number of attempts.
// Permanent failures are returned straight away; [ErrRetriesExhausted] is
// returned when no attempt succeeded.
func (f *Fetcher) SaveWithRetry(ctx context.Context, url, destination string) error {
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if attempt > 1 && f.backoff > 0 {
			wait := f.backoff << (attempt - 2)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		saved, err := f.Save(ctx, url, destination, f.connectTimeout, f.readTimeout)
		if err != nil {
			return err
		}

		if saved {
			return nil
		}

		logging.Warn("download attempt %d/%d failed", attempt, f.attempts)
	}

	return fmt.Errorf("%w: %d attempts for %s", ErrRetriesExhausted, f.attempts, url)
}

// Save downloads url into destination, creating its parent directories.
//
// Returns true when the file was saved and false when the download failed for a
// transient reason that makes a retry sensible:
//   - the transfer stalled after something was already received
//   - the server answered with a 5xx status
//   - the connection timed out, was refused or the host couldn't be resolved
//
// Any other failure is returned as an error, including [ErrNotFound] when the
// resource doesn't exist. Partially written files are left in place.
func (f *Fetcher) Save(ctx context.Context, url, destination string, connectTimeout, readTimeout time.Duration) (saved bool, err error) {
	logging.Detail(fmt.Sprintf("downloading %s to %s", url, destination))

	start := time.Now()
	defer func() {
		if saved || err != nil {
			logging.Elapsed(start, err)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return false, fmt.Errorf("failed to create destination folder %s: %w", filepath.Dir(destination), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := newClient(connectTimeout, readTimeout).Do(req)
	if err != nil {
		if err := classify(ctx, err, 0); err != nil {
			return false, fmt.Errorf("failed to download file: %w", err)
		}
		return false, nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return false, fmt.Errorf("%w: %s answered http%d", ErrNotFound, url, resp.StatusCode)
	case resp.StatusCode >= 500 && resp.StatusCode < 600:
		logging.Error("server error, http%d", resp.StatusCode)
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return false, fmt.Errorf("received unexpected response when downloading %s: http%d", url, resp.StatusCode)
	}

	out, err := os.Create(destination)
	if err != nil {
		return false, fmt.Errorf("failed to create file %s: %w", destination, err)
	}
	defer out.Close()

	body := io.Reader(resp.Body)
	if f.progress {
		var finish func()
		body, finish = progress(body, resp.ContentLength)
		defer finish()
	}

	received, err := copyChunks(out, body)
	if err != nil {
		if errors.Is(err, errWrite) {
			return false, fmt.Errorf("failed to copy data to file %s: %w", destination, err)
		}
		if err := classify(ctx, err, received); err != nil {
			return false, fmt.Errorf("failed to download file: %w", err)
		}
		return false, nil
	}

	if err := out.Close(); err != nil {
		return false, fmt.Errorf("failed to close file %s: %w", destination, err)
	}

	logging.Detail(fmt.Sprintf("saved %s", humanize.Bytes(uint64(received))))
	return true, nil
}

var errWrite = errors.New("write failed")

// copyChunks streams src into dst through a fixed size buffer, returning the
// amount of bytes received from src.
func copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	var received int64
	buf := make([]byte, chunksize)

	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			received += int64(n)
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return received, fmt.Errorf("%w: %w", errWrite, werr)
			}
		}

		if errors.Is(rerr, io.EOF) {
			return received, nil
		}
		if rerr != nil {
			return received, rerr
		}
	}
}

// classify logs transient network failures and turns them into a nil error,
// every other failure is returned unchanged.
func classify(ctx context.Context, err error, received int64) error {
	if reason, ok := transient(ctx, err, received); ok {
		logging.Error("%s: %s", reason, err)
		return nil
	}
	return err
}

func transient(ctx context.Context, err error, received int64) (string, bool) {
	// cancellation by the caller must never be retried
	if ctx.Err() != nil {
		return "", false
	}

	var dnserr *net.DNSError
	if errors.As(err, &dnserr) {
		return "could not resolve host", true
	}

	if refused(err) {
		return "could not connect", true
	}

	if timedOut(err) {
		if received > 0 {
			return fmt.Sprintf("interrupted after partial read of %s", humanize.Bytes(uint64(received))), true
		}
		return "connection timeout", true
	}

	return "", false
}

func refused(err error) bool {
	for _, errno := range refusedErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// timedOut walks the whole chain since wrappers like *url.Error only report
// a timeout when their direct cause does.
func timedOut(err error) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if t, ok := err.(interface{ Timeout() bool }); ok && t.Timeout() {
			return true
		}
	}
	return false
}

// newClient builds an http client whose connections enforce the connect
// timeout while dialing and the read timeout on every single read.
func newClient(connectTimeout, readTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &deadlineConn{Conn: conn, timeout: readTimeout}, nil
		},
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		DisableKeepAlives:     true,
	}

	return &http.Client{Transport: transport}
}

// deadlineConn extends the read deadline before every read so that the
// timeout measures inactivity instead of the total transfer time.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(b)
}
