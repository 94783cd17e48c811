// Package pipeline drives batch enhancement of product files.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/aluiziolira/go-enrich-products/metrics"
	"github.com/aluiziolira/go-enrich-products/models"
	"github.com/aluiziolira/go-enrich-products/normalizer"
	"github.com/aluiziolira/go-enrich-products/processor"
	"github.com/google/uuid"
)

const (
	timestampLayout  = "20060102_150405"
	progressInterval = 5
)

// OutputWriter defines the interface for export output.
type OutputWriter interface {
	Write(products []*models.EnrichedProduct) error
	Close() error
	Validate() error
}

// Sink persists enriched records keyed by (store name, product id).
type Sink interface {
	Upsert(ctx context.Context, p *models.EnrichedProduct) error
}

// Processor turns one raw payload into an enriched record.
type Processor interface {
	Process(ctx context.Context, raw normalizer.Raw, store string) (*models.EnrichedProduct, error)
}

// Options configures an Orchestrator. Zero values disable the feature.
type Options struct {
	BatchPause    time.Duration
	MaxProducts   int
	SaveBatches   bool
	CheckpointDir string
	OutputDir     string
	Sink          Sink
	Writer        OutputWriter
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// Orchestrator runs input files through a Processor in sequential batches.
// It is not safe for concurrent use.
type Orchestrator struct {
	proc    Processor
	opts    Options
	stats   models.BatchStats
	logger  *slog.Logger
	metrics *metrics.Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator builds an orchestrator with zeroed statistics.
func NewOrchestrator(proc Processor, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		proc:    proc,
		opts:    opts,
		stats:   models.BatchStats{FailuresByKind: make(map[string]int)},
		logger:  logger,
		metrics: opts.Metrics,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Stats returns a snapshot of the running counters.
func (o *Orchestrator) Stats() models.BatchStats {
	return o.stats.Clone()
}

// ProcessFile loads path, processes every product for store and writes
// checkpoints and the final report. Per-item failures are counted, never
// returned. Load failures are returned before any processing starts.
// Cancelling ctx stops after the current item; the partial result is still
// finalized and marked Interrupted.
func (o *Orchestrator) ProcessFile(ctx context.Context, path, store string, batchSize int, itemDelay time.Duration) (*models.BatchResult, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if itemDelay < 0 {
		return nil, fmt.Errorf("item delay cannot be negative")
	}

	items, err := LoadProducts(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if o.opts.MaxProducts > 0 && len(items) > o.opts.MaxProducts {
		items = items[:o.opts.MaxProducts]
	}

	result := &models.BatchResult{
		RunID:     uuid.NewString(),
		InputFile: path,
		StoreName: store,
		Products:  make([]*models.EnrichedProduct, 0, len(items)),
	}

	o.stats.Total += len(items)
	if o.stats.StartTime.IsZero() {
		o.stats.StartTime = o.now()
	}

	batches := chunk(items, batchSize)
	o.logger.Info("processing file",
		slog.String("file", path),
		slog.String("store", store),
		slog.Int("products", len(items)),
		slog.Int("batches", len(batches)),
		slog.String("run_id", result.RunID),
	)

	interrupted := false
	for i, batch := range batches {
		batchNum := i + 1
		if ctx.Err() != nil {
			interrupted = true
			break
		}

		enriched, stopped := o.processBatch(ctx, batch, store, itemDelay)
		result.Products = append(result.Products, enriched...)
		o.checkpoint(ctx, result, enriched, store, batchNum)
		o.metrics.IncBatch()

		o.logger.Info("batch complete",
			slog.Int("batch", batchNum),
			slog.Int("batches", len(batches)),
			slog.Int("processed", o.stats.Processed),
			slog.Int("total", o.stats.Total),
			slog.Int("successful", o.stats.Successful),
			slog.Int("failed", o.stats.Failed),
			slog.Float64("success_rate", successRate(o.stats.Successful, o.stats.Processed)),
		)

		if stopped {
			interrupted = true
			break
		}
		if batchNum < len(batches) && o.opts.BatchPause > 0 {
			if err := o.sleep(ctx, o.opts.BatchPause); err != nil {
				interrupted = true
				break
			}
		}
	}

	if interrupted {
		o.logger.Warn("processing interrupted, writing partial results",
			slog.Int("processed", o.stats.Processed),
			slog.Int("total", o.stats.Total),
		)
	}
	return o.finalize(result, path, store, interrupted)
}

// processBatch processes items sequentially. Cancellation is observed between
// items. It reports stopped when ctx was cancelled before the batch completed.
func (o *Orchestrator) processBatch(ctx context.Context, batch []normalizer.Raw, store string, itemDelay time.Duration) ([]*models.EnrichedProduct, bool) {
	out := make([]*models.EnrichedProduct, 0, len(batch))
	for _, raw := range batch {
		if ctx.Err() != nil {
			return out, true
		}

		rec, err := o.processItem(ctx, raw, store)
		o.stats.Processed++
		if err != nil {
			kind := processor.FailureKind(err)
			o.stats.Failed++
			o.stats.FailuresByKind[kind]++
			o.metrics.IncProduct("failed")
			o.logger.Warn("product failed",
				slog.String("store", store),
				slog.String("kind", kind),
				slog.Any("error", err),
			)
		} else {
			o.stats.Successful++
			out = append(out, rec)
			o.metrics.IncProduct("success")
			o.logger.Debug("product enhanced",
				slog.String("product_id", rec.ProductID),
				slog.String("product", rec.DisplayName()),
				slog.String("category", rec.MainCategory),
			)
		}

		if o.stats.Processed%progressInterval == 0 {
			o.logger.Info("progress",
				slog.Int("processed", o.stats.Processed),
				slog.Int("total", o.stats.Total),
				slog.Float64("items_per_sec", o.rate()),
			)
		}

		if itemDelay > 0 {
			if err := o.sleep(ctx, itemDelay); err != nil {
				return out, true
			}
		}
	}
	return out, false
}

// processItem runs one payload to completion. The in-flight product is not
// interrupted by cancellation; the generator timeout still bounds it.
func (o *Orchestrator) processItem(ctx context.Context, raw normalizer.Raw, store string) (rec *models.EnrichedProduct, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("%w: %v", processor.ErrInternal, r)
		}
	}()
	rec, err = o.proc.Process(context.WithoutCancel(ctx), raw, store)
	if err == nil && rec == nil {
		err = fmt.Errorf("%w: processor returned no record", processor.ErrInternal)
	}
	return rec, err
}

// checkpoint persists one batch: checkpoint file, sink and export writer.
// Persistence uses a context detached from cancellation so an interrupted
// batch is still saved.
func (o *Orchestrator) checkpoint(ctx context.Context, result *models.BatchResult, enriched []*models.EnrichedProduct, store string, batchNum int) {
	if len(enriched) == 0 {
		return
	}
	persistCtx := context.WithoutCancel(ctx)

	if o.opts.SaveBatches && o.opts.CheckpointDir != "" {
		name := fmt.Sprintf("enhanced_products_%s_batch_%d_%s.json", store, batchNum, o.now().Format(timestampLayout))
		path := filepath.Join(o.opts.CheckpointDir, name)
		if err := writeJSONFile(path, enriched); err != nil {
			o.logger.Error("write checkpoint", slog.String("file", path), slog.Any("error", err))
		} else {
			result.Checkpoints = append(result.Checkpoints, path)
			o.logger.Debug("checkpoint saved", slog.String("file", path), slog.Int("products", len(enriched)))
		}
	}

	if o.opts.Sink != nil {
		for _, rec := range enriched {
			if err := o.opts.Sink.Upsert(persistCtx, rec); err != nil {
				o.stats.StoreFailed++
				o.metrics.IncSinkWrite("error")
				o.logger.Error("sink upsert failed",
					slog.String("store", rec.StoreName),
					slog.String("product_id", rec.ProductID),
					slog.Any("error", err),
				)
				continue
			}
			o.stats.Stored++
			o.metrics.IncSinkWrite("ok")
		}
	}

	if o.opts.Writer != nil {
		if err := o.opts.Writer.Write(enriched); err != nil {
			o.logger.Error("export write failed", slog.Int("batch", batchNum), slog.Any("error", err))
		}
	}
}

type reportMetadata struct {
	RunID           string            `json:"run_id"`
	OriginalFile    string            `json:"original_file"`
	StoreType       string            `json:"store_type"`
	TotalProducts   int               `json:"total_products"`
	ProcessingStats models.BatchStats `json:"processing_stats"`
	EnhancedAt      time.Time         `json:"enhanced_at"`
	Interrupted     bool              `json:"interrupted"`
}

type report struct {
	Metadata reportMetadata            `json:"metadata"`
	Products []*models.EnrichedProduct `json:"products"`
}

func (o *Orchestrator) finalize(result *models.BatchResult, path, store string, interrupted bool) (*models.BatchResult, error) {
	o.stats.EndTime = o.now()
	result.Stats = o.stats.Clone()
	result.Interrupted = interrupted

	o.logger.Info("processing finished",
		slog.Int("total", result.Stats.Total),
		slog.Int("successful", result.Stats.Successful),
		slog.Int("failed", result.Stats.Failed),
		slog.Duration("elapsed", result.Stats.Elapsed()),
		slog.Float64("items_per_sec", result.ItemsPerSecond()),
		slog.Bool("interrupted", interrupted),
	)

	if o.opts.OutputDir == "" {
		return result, nil
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := fmt.Sprintf("enhanced_%s_%s_%s.json", base, store, o.stats.EndTime.Format(timestampLayout))
	outPath := filepath.Join(o.opts.OutputDir, name)

	doc := report{
		Metadata: reportMetadata{
			RunID:           result.RunID,
			OriginalFile:    path,
			StoreType:       store,
			TotalProducts:   len(result.Products),
			ProcessingStats: result.Stats,
			EnhancedAt:      o.stats.EndTime.UTC(),
			Interrupted:     interrupted,
		},
		Products: result.Products,
	}
	if err := writeJSONFile(outPath, doc); err != nil {
		return result, fmt.Errorf("write final report: %w", err)
	}
	result.OutputFile = outPath
	o.logger.Info("final report saved", slog.String("file", outPath))
	return result, nil
}

func (o *Orchestrator) rate() float64 {
	elapsed := o.now().Sub(o.stats.StartTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(o.stats.Processed) / elapsed
}

func successRate(successful, processed int) float64 {
	if processed <= 0 {
		return 0
	}
	return float64(successful) / float64(processed) * 100
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
