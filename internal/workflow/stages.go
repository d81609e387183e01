package workflow

import (
	"context"

	"github.com/askiada/geo-pipeline/internal/dataset"
)

type stage struct {
	name string
	// input is the upstream output the stage needs. Empty for the first stage.
	input func(layout dataset.Layout) string
	run   func(ctx context.Context, layout dataset.Layout) ([]string, error)
	apply func(rep *Report, outputs []string)
}

func (w *Workflow) stages() []stage {
	return []stage{
		{
			name:  StageFetch,
			input: func(dataset.Layout) string { return "" },
			run: func(ctx context.Context, layout dataset.Layout) ([]string, error) {
				err := w.fetcher.Fetch(ctx, layout.Dataset, layout.ArchivePath())
				if err != nil {
					return nil, err
				}

				return []string{layout.ArchivePath()}, nil
			},
			apply: func(rep *Report, _ []string) {
				rep.Archive = rep.layout.ArchivePath()
			},
		},
		{
			name:  StageExtract,
			input: dataset.Layout.ArchivePath,
			run: func(ctx context.Context, layout dataset.Layout) ([]string, error) {
				return w.extractor.Extract(ctx, layout.ArchivePath(), layout.ExtractedDir())
			},
			apply: func(rep *Report, outputs []string) {
				rep.Extracted = outputs
			},
		},
		{
			name:  StageSplit,
			input: dataset.Layout.ExtractedDir,
			run: func(ctx context.Context, layout dataset.Layout) ([]string, error) {
				return w.splitter.SplitTree(ctx, layout.ExtractedDir())
			},
			apply: func(rep *Report, outputs []string) {
				rep.Sections = outputs
			},
		},
		{
			name:  StageTrim,
			input: dataset.Layout.ExtractedDir,
			run: func(ctx context.Context, layout dataset.Layout) ([]string, error) {
				res, err := w.trimmer.TrimTree(ctx, layout.ExtractedDir())
				if err != nil {
					return nil, err
				}

				return append(res.Files, res.Marker), nil
			},
			apply: func(rep *Report, outputs []string) {
				rep.Marker = rep.layout.MarkerPath()
				rep.Trimmed = nil

				for _, output := range outputs {
					if output != rep.Marker {
						rep.Trimmed = append(rep.Trimmed, output)
					}
				}
			},
		},
	}
}
