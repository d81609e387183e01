package section

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/geo-pipeline/internal/logging"
)

// SourceSuffix selects the extracted files the splitter parses.
const SourceSuffix = ".txt"

// OutputSuffix is the extension of the section files.
const OutputSuffix = ".tsv"

// Splitter writes every section of a file to its own TSV file beside the source.
type Splitter struct {
	logger *slog.Logger
}

// Option configures a Splitter.
type Option func(s *Splitter)

// WithLogger sets the logger of the splitter.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Splitter) {
		s.logger = logging.OrDiscard(logger)
	}
}

// New creates a Splitter.
func New(opts ...Option) *Splitter {
	s := &Splitter{logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// FileName is the name of the file holding section label of the source file.
func FileName(source, label string) string {
	label = strings.NewReplacer("/", "_", `\`, "_").Replace(label)

	return filepath.Base(source) + "_" + label + OutputSuffix
}

// SplitFile parses path and writes one file per section in the same directory.
// It returns the written paths; a file without headers produces none.
func (s *Splitter) SplitFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	defer file.Close()

	sections, err := Parse(file)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to split %s", path)
	}

	dir := filepath.Dir(path)
	written := make([]string, 0, sections.Len())

	for _, lbl := range sections.Labels() {
		tbl, _ := sections.Get(lbl)
		out := filepath.Join(dir, FileName(path, lbl))

		err := tbl.WriteFile(out)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to write section %q", lbl)
		}

		written = append(written, out)
	}

	s.logger.Debug("file split", "path", path, "sections", len(written))

	return written, nil
}

// SplitTree splits every regular SourceSuffix file found in the immediate subdirectories of root.
func (s *Splitter) SplitTree(ctx context.Context, root string) ([]string, error) {
	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list %s", root)
	}

	var written []string

	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}

		folder := filepath.Join(root, dir.Name())

		files, err := os.ReadDir(folder)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to list %s", folder)
		}

		for _, file := range files {
			if !file.Type().IsRegular() || !strings.HasSuffix(file.Name(), SourceSuffix) {
				continue
			}

			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, "split interrupted")
			}

			out, err := s.SplitFile(filepath.Join(folder, file.Name()))
			if err != nil {
				return nil, err
			}

			written = append(written, out...)
		}
	}

	s.logger.Info("sections written", "root", root, "files", len(written))

	return written, nil
}
