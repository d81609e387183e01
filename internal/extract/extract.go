// Package extract unpacks a tar archive and gunzips each of its compressed members into a
// folder of its own.
package extract

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/geo-pipeline/internal/logging"
)

// CompressedSuffix marks the members that are extracted.
const CompressedSuffix = ".gz"

var ErrUnsafePath = errors.New("member path escapes the destination")

var gzipMagic = []byte{0x1f, 0x8b}

// Extractor unpacks archives.
type Extractor struct {
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(e *Extractor)

// WithLogger sets the logger of the extractor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logging.OrDiscard(logger)
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{logger: logging.Discard()}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// openArchive returns a tar reader over path, decompressing it first when the archive itself
// is gzipped.
func openArchive(path string) (*tar.Reader, io.Closer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to open archive %s", path)
	}

	buffered := bufio.NewReader(file)

	magic, err := buffered.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		file.Close()

		return nil, nil, errors.Wrapf(err, "unable to read archive %s", path)
	}

	if !bytes.Equal(magic, gzipMagic) {
		return tar.NewReader(buffered), file, nil
	}

	gz, err := gzip.NewReader(buffered)
	if err != nil {
		file.Close()

		return nil, nil, errors.Wrapf(err, "unable to decompress archive %s", path)
	}

	return tar.NewReader(gz), file, nil
}

// Extract writes every regular member of archivePath ending in CompressedSuffix to
// destDir/<member without suffix>/<member without suffix>, decompressed. Other members are
// skipped. It returns the decompressed files in archive order.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) ([]string, error) {
	reader, closer, err := openArchive(archivePath)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	err = os.MkdirAll(destDir, 0o755)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create %s", destDir)
	}

	var extracted []string

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, errors.Wrapf(err, "unable to read archive %s", archivePath)
		}

		if header.Typeflag != tar.TypeReg || !strings.HasSuffix(header.Name, CompressedSuffix) {
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "extraction interrupted")
		}

		path, err := e.extractMember(reader, header.Name, destDir)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to extract %s", header.Name)
		}

		extracted = append(extracted, path)
	}

	e.logger.Info("archive extracted", "archive", archivePath, "files", len(extracted))

	return extracted, nil
}

func (e *Extractor) extractMember(member io.Reader, name, destDir string) (string, error) {
	folderName := strings.TrimSuffix(name, CompressedSuffix)

	folder, err := safeJoin(destDir, folderName)
	if err != nil {
		return "", err
	}

	rawPath, err := safeJoin(folder, name)
	if err != nil {
		return "", err
	}

	err = os.MkdirAll(filepath.Dir(rawPath), 0o755)
	if err != nil {
		return "", errors.Wrapf(err, "unable to create %s", folder)
	}

	err = writeFile(rawPath, member)
	if err != nil {
		return "", err
	}

	textPath := strings.TrimSuffix(rawPath, CompressedSuffix)

	err = gunzip(rawPath, textPath)
	if err != nil {
		return "", err
	}

	err = os.Remove(rawPath)
	if err != nil {
		return "", errors.Wrapf(err, "unable to remove %s", rawPath)
	}

	e.logger.Debug("member extracted", "member", name, "path", textPath)

	return textPath, nil
}

// safeJoin joins name to dir and rejects results outside dir.
func safeJoin(dir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", errors.Wrapf(ErrUnsafePath, "%q", name)
	}

	path := filepath.Join(dir, name)

	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrUnsafePath, "%q", name)
	}

	return path, nil
}

func writeFile(path string, r io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}

	_, err = io.Copy(file, r)
	if err != nil {
		file.Close()

		return errors.Wrapf(err, "unable to write %s", path)
	}

	return errors.Wrapf(file.Close(), "unable to close %s", path)
}

func gunzip(src, dst string) error {
	file, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "unable to open %s", src)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return errors.Wrapf(err, "unable to decompress %s", src)
	}
	defer gz.Close()

	return errors.Wrapf(writeFile(dst, gz), "unable to decompress %s", src)
}
