package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/totalrecall/internal/chunker"
)

// FileOutcome is the result of one file in a batch.
type FileOutcome struct {
	Path   string
	Output string
	Result *ProcessingResult
	Err    error

	// Skipped is set when a resumed batch found the file unchanged since its
	// recorded run. Output then points at the earlier result.
	Skipped bool
}

// BatchReport collects per-file outcomes in input order.
type BatchReport struct {
	Files []FileOutcome
}

// Succeeded returns the number of files that produced output.
func (r *BatchReport) Succeeded() int {
	n := 0
	for _, f := range r.Files {
		if f.Err == nil && f.Result != nil {
			n++
		}
	}
	return n
}

// Skipped returns the number of files left untouched by a resumed batch.
func (r *BatchReport) Skipped() int {
	n := 0
	for _, f := range r.Files {
		if f.Skipped {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that ended in an error.
func (r *BatchReport) Failed() []FileOutcome {
	var failed []FileOutcome
	for _, f := range r.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// ProcessBatch runs ProcessFile over paths with up to cfg.Workers files in
// flight. A failing file is recorded in the report and does not stop the
// others. Cancellation is checked before each file starts; files not started
// are reported with the context error, which is also returned. A file whose
// output name was already claimed by an earlier path fails with an
// OutputCollisionError instead of overwriting that result. With
// cfg.Resume set, files recorded in the output directory's state file with the
// same content, strategy and budget are skipped.
func (d *Driver) ProcessBatch(ctx context.Context, paths []string, strategy chunker.Strategy, maxTokens int) (*BatchReport, error) {
	report := &BatchReport{Files: make([]FileOutcome, len(paths))}
	if !strategy.Valid() {
		return report, &chunker.UnknownStrategyError{Name: strategy.String()}
	}

	var state *BatchState
	if d.cfg.Resume {
		var err error
		state, err = LoadState(filepath.Join(d.OutputDir(), StateFileName))
		if err != nil {
			return report, err
		}
	}

	d.logger.Info("batch starting", "files", len(paths), "workers", d.cfg.Workers, "strategy", strategy.String(), "resume", state != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)

	claimed := make(map[string]string, len(paths))
	for i, path := range paths {
		report.Files[i].Path = path

		name := OutputName(path, strategy)
		if first, ok := claimed[name]; ok {
			err := &OutputCollisionError{Path: path, Other: first, Output: name}
			d.logger.Warn("file skipped", "path", path, "error", err)
			report.Files[i].Err = err
			continue
		}
		claimed[name] = path

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				report.Files[i].Err = err
				return nil
			}
			var digest string
			if state != nil {
				var err error
				if digest, err = fileDigest(expandHome(path)); err == nil {
					if rec, ok := state.Unchanged(path, digest, strategy, maxTokens); ok {
						d.logger.Info("file unchanged, skipping", "path", path, "output", rec.Output)
						report.Files[i].Output = rec.Output
						report.Files[i].Skipped = true
						return nil
					}
				}
			}

			out, result, err := d.ProcessFile(gctx, path, strategy, maxTokens)
			if err != nil {
				d.logger.Warn("file failed", "path", path, "error", err)
				report.Files[i].Err = err
				if state != nil {
					state.AddError(fmt.Sprintf("%s: %v", path, err))
					d.saveState(state)
				}
				return nil
			}
			report.Files[i].Output = out
			report.Files[i].Result = result
			if state != nil && digest != "" {
				state.MarkProcessed(path, FileRecord{
					Digest:      digest,
					Strategy:    strategy,
					MaxTokens:   maxTokens,
					Output:      out,
					ProcessedAt: time.Now().UTC(),
				})
				d.saveState(state)
			}
			return nil
		})
	}
	_ = g.Wait()

	d.logger.Info("batch complete",
		"files", len(paths),
		"succeeded", report.Succeeded(),
		"skipped", report.Skipped(),
		"failed", len(report.Failed()),
	)

	return report, ctx.Err()
}

func (d *Driver) saveState(s *BatchState) {
	if err := s.Save(); err != nil {
		d.logger.Warn("failed to save batch state", "error", err)
	}
}
