// Package fetch downloads dataset archives from the GEO download endpoint.
package fetch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/askiada/geo-pipeline/internal/logging"
)

const (
	// DefaultBaseURL is the GEO download endpoint.
	DefaultBaseURL = "https://www.ncbi.nlm.nih.gov/geo/download/"

	defaultChunkSize = 8192
	defaultUserAgent = "geo-pipeline/1.0"
	partialSuffix    = ".part"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// Fetcher streams archives to disk.
type Fetcher struct {
	client    *resty.Client
	baseURL   string
	chunkSize int
	logger    *slog.Logger
}

// Option configures a Fetcher.
type Option func(f *Fetcher)

// WithTimeout bounds the whole request, body included. Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.client.SetTimeout(timeout)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(f *Fetcher) {
		f.client.SetHeader("User-Agent", userAgent)
	}
}

// WithChunkSize sets the size of the buffer used to copy the body to disk.
func WithChunkSize(size int) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.chunkSize = size
		}
	}
}

// WithLogger sets the logger of the fetcher.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logging.OrDiscard(logger)
	}
}

// New creates a Fetcher querying baseURL.
func New(baseURL string, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    resty.New().SetHeader("User-Agent", defaultUserAgent),
		baseURL:   baseURL,
		chunkSize: defaultChunkSize,
		logger:    logging.Discard(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads the archive of dataset to dest. The body is streamed to a temporary file that
// replaces dest once complete. Any non-2xx status is an error; there is no retry.
func (f *Fetcher) Fetch(ctx context.Context, dataset, dest string) error {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"acc":    dataset,
			"format": "file",
		}).
		SetDoNotParseResponse(true).
		Get(f.baseURL)
	if err != nil {
		return errors.Wrapf(err, "unable to download dataset %s", dataset)
	}

	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return errors.Wrapf(ErrUnexpectedStatus, "dataset %s: %s", dataset, resp.Status())
	}

	err = os.MkdirAll(filepath.Dir(dest), 0o755)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", filepath.Dir(dest))
	}

	written, err := f.save(body, dest)
	if err != nil {
		return err
	}

	f.logger.Info("archive downloaded", "dataset", dataset, "path", dest, "bytes", written)

	return nil
}

// writerOnly hides the ReaderFrom implementation of *os.File so that io.CopyBuffer copies
// through the chunk buffer.
type writerOnly struct {
	io.Writer
}

func (f *Fetcher) save(body io.Reader, dest string) (int64, error) {
	partial := dest + partialSuffix

	file, err := os.Create(partial)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to create %s", partial)
	}

	written, err := io.CopyBuffer(writerOnly{file}, body, make([]byte, f.chunkSize))
	if err != nil {
		file.Close()

		return 0, errors.Wrapf(err, "unable to write %s", partial)
	}

	err = file.Close()
	if err != nil {
		return 0, errors.Wrapf(err, "unable to close %s", partial)
	}

	err = os.Rename(partial, dest)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to move %s to %s", partial, dest)
	}

	return written, nil
}
