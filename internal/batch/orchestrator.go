package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ondc-data/geo-enricher/internal/checkpoint"
	"github.com/ondc-data/geo-enricher/internal/dataset"
	"github.com/ondc-data/geo-enricher/internal/metrics"
	"github.com/ondc-data/geo-enricher/internal/models"
)

// Options tunes one orchestrator run.
type Options struct {
	Workers            int
	CheckpointInterval int // merged results between flushes
	ProgressEvery      int // merged results between progress lines
	OutputPath         string
	SummaryPath        string // empty disables the summary file
	RecordItems        bool   // keep per-item outcomes in the summary

	// OnProgress, when set, is called at every checkpoint flush.
	OnProgress func(processed, failed, etaSeconds int)
}

// Orchestrator drives one pipeline over one dataset with bounded concurrency
// and durable checkpoints. Workers only compute; all dataset and checkpoint
// writes happen on the merge goroutine.
type Orchestrator struct {
	ds       *dataset.Store
	ckpt     *checkpoint.Store
	pipeline Pipeline
	opts     Options
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates an orchestrator. metrics may be nil.
func New(ds *dataset.Store, ckpt *checkpoint.Store, pipeline Pipeline, opts Options, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = 20
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 50
	}
	if opts.OutputPath == "" {
		opts.OutputPath = ds.Path()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{ds: ds, ckpt: ckpt, pipeline: pipeline, opts: opts, metrics: m, logger: logger}
}

// Run executes the pipeline over every pending row. Cancelling ctx stops
// dispatching, drains in-flight work, flushes once and keeps the checkpoint;
// only an uninterrupted run clears it.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	if err := o.ds.RequireColumns(o.pipeline.RequiredColumns()...); err != nil {
		return nil, err
	}
	if err := o.ds.EnsureColumns(o.pipeline.OutputColumns()...); err != nil {
		return nil, err
	}

	rec, err := o.ckpt.Load(o.ds.Path())
	if err != nil {
		return nil, err
	}
	if rec.RunID == "" {
		rec.RunID = uuid.NewString()
	}
	// A fresh record bases the watermark just below the first data row;
	// row 1 is the header and never completes.
	if rec.LastRow < dataset.FirstDataRow-1 {
		rec.LastRow = dataset.FirstDataRow - 1
	}

	flow := o.pipeline.Flow()
	summary := &Summary{
		RunID:     rec.RunID,
		Flow:      flow,
		StartedAt: time.Now(),
		TotalRows: o.ds.RowCount(),
	}

	// Classify every row past the watermark. Rows at or below it were
	// finished by a previous run and are never reloaded.
	var pending []*models.WorkItem
	completed := make(map[int]bool)
	for row := dataset.FirstDataRow; row <= o.ds.LastRow(); row++ {
		if row <= rec.LastRow {
			summary.PreviouslyDone++
			continue
		}

		item, state, err := o.pipeline.LoadItem(row)
		if err != nil {
			o.logger.Warn("skipping unreadable row", "row", row, "error", err)
			summary.NoData++
			completed[row] = true
			continue
		}

		switch state {
		case StateDone:
			// counted in the summary only; the durable record tracks
			// work this engine actually merged, so reruns don't inflate it
			summary.AlreadyPopulated++
			completed[row] = true
		case StateNoData:
			summary.NoData++
			completed[row] = true
		default:
			pending = append(pending, item)
		}
	}
	advanceWatermark(rec, completed)

	summary.Dispatched = len(pending)
	o.metrics.RunStarted(flow)
	o.logger.Info("run started",
		"flow", flow,
		"run_id", rec.RunID,
		"total_rows", summary.TotalRows,
		"previously_done", summary.PreviouslyDone,
		"already_populated", summary.AlreadyPopulated,
		"no_data", summary.NoData,
		"pending", len(pending),
		"workers", o.opts.Workers)

	var durations []float64
	merged := 0
	sinceFlush := 0

	if len(pending) > 0 {
		jobs := make(chan *models.WorkItem)
		results := make(chan *models.EnrichmentResult)

		var wg sync.WaitGroup
		for i := 0; i < o.opts.Workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for item := range jobs {
					if res := o.pipeline.Process(ctx, item); res != nil {
						results <- res
					}
				}
			}()
		}

		go func() {
			defer close(jobs)
			for _, item := range pending {
				select {
				case <-ctx.Done():
					return
				case jobs <- item:
				}
			}
		}()

		go func() {
			wg.Wait()
			close(results)
		}()

		for res := range results {
			if err := o.pipeline.Merge(res); err != nil {
				o.logger.Error("failed to merge result", "row", res.RowIndex, "error", err)
				summary.Failed++
			} else {
				switch res.Status {
				case models.StatusSuccess:
					summary.Succeeded++
					rec.SuccessCount++
				case models.StatusSkipped:
					summary.Skipped++
				default:
					summary.Failed++
					rec.FailCount++
				}
			}
			o.metrics.ItemProcessed(flow, string(res.Status))
			if res.ZoneCount > 0 {
				o.metrics.ZonesGenerated(res.ZoneCount)
			}
			rec.ProcessedCount++
			durations = append(durations, res.Elapsed.Seconds())

			completed[res.RowIndex] = true
			advanceWatermark(rec, completed)

			if o.opts.RecordItems {
				summary.Items = append(summary.Items, ItemResult{
					Row:      res.RowIndex,
					Status:   string(res.Status),
					Zones:    res.ZoneCount,
					Artifact: res.ArtifactPath,
					Reason:   res.FailureReason,
				})
			}

			merged++
			sinceFlush++
			if sinceFlush >= o.opts.CheckpointInterval {
				if err := o.flush(rec); err != nil {
					o.logger.Error("flush failed", "error", err)
				}
				sinceFlush = 0
				if o.opts.OnProgress != nil {
					o.opts.OnProgress(merged, summary.Failed, etaSeconds(summary, merged, len(pending)))
				}
			}
			if merged%o.opts.ProgressEvery == 0 {
				o.logProgress(summary, merged, len(pending))
			}
		}
	}

	summary.Interrupted = ctx.Err() != nil
	summary.FinishedAt = time.Now()
	summary.finalize(durations)
	if pc, ok := o.pipeline.(interface{ LearnedPatterns() int }); ok {
		summary.LearnedPatterns = pc.LearnedPatterns()
	}

	if err := o.flush(rec); err != nil {
		return summary, fmt.Errorf("final flush failed: %w", err)
	}

	if summary.Interrupted {
		o.logger.Warn("run interrupted, progress saved",
			"run_id", rec.RunID, "last_row", rec.LastRow, "merged", merged)
	} else {
		if err := o.ckpt.Clear(o.ds.Path()); err != nil {
			o.logger.Warn("failed to clear checkpoint", "error", err)
		}
	}

	if o.opts.SummaryPath != "" {
		if err := summary.Write(o.opts.SummaryPath); err != nil {
			o.logger.Error("failed to write summary", "path", o.opts.SummaryPath, "error", err)
		}
	}

	o.logger.Info("run finished",
		"flow", flow,
		"run_id", rec.RunID,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"no_data", summary.NoData,
		"interrupted", summary.Interrupted,
		"duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))

	return summary, nil
}

// advanceWatermark pushes LastRow forward over contiguously completed rows.
// Results merged above a gap stay in the map until the gap closes, so a
// resume can only ever repeat the rows inside one unfinished interval.
func advanceWatermark(rec *checkpoint.Record, completed map[int]bool) {
	for completed[rec.LastRow+1] {
		delete(completed, rec.LastRow+1)
		rec.LastRow++
	}
}

func (o *Orchestrator) flush(rec *checkpoint.Record) error {
	if err := o.ds.Save(o.opts.OutputPath); err != nil {
		return err
	}
	return o.ckpt.Save(o.ds.Path(), rec)
}

func etaSeconds(summary *Summary, merged, total int) int {
	elapsed := time.Since(summary.StartedAt).Seconds()
	if merged == 0 || elapsed <= 0 {
		return 0
	}
	rate := float64(merged) / elapsed
	return int(float64(total-merged) / rate)
}

func (o *Orchestrator) logProgress(summary *Summary, merged, total int) {
	elapsed := time.Since(summary.StartedAt).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(merged) / elapsed
	}
	o.logger.Info("progress",
		"done", merged,
		"total", total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"rate_per_sec", fmt.Sprintf("%.2f", rate),
		"eta", time.Duration(etaSeconds(summary, merged, total))*time.Second)
}
