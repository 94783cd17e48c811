package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/go-enrich-products/enhancer"
	"github.com/aluiziolira/go-enrich-products/models"
	"github.com/aluiziolira/go-enrich-products/normalizer"
	"github.com/aluiziolira/go-enrich-products/processor"
)

var fixedNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeProcessor fails every odd-indexed payload.
type fakeProcessor struct {
	calls   int
	onCall  func(call int)
	panicAt int
}

func (f *fakeProcessor) Process(_ context.Context, raw normalizer.Raw, store string) (*models.EnrichedProduct, error) {
	f.calls++
	if f.onCall != nil {
		f.onCall(f.calls)
	}
	if raw == nil {
		return nil, &normalizer.Failure{Store: store, Reason: "invalid payload", Err: normalizer.ErrNotObject}
	}
	idx, ok := raw.Int("idx")
	if !ok {
		return nil, &normalizer.Failure{Store: store, Reason: "missing id", Err: normalizer.ErrMissingID}
	}
	if f.panicAt > 0 && idx == f.panicAt {
		panic("boom")
	}
	if idx%2 == 1 {
		return nil, &normalizer.Failure{Store: store, Reason: "missing id", Err: normalizer.ErrMissingID}
	}
	category := "Sadje"
	if idx%4 == 2 {
		category = "Zelenjava"
	}
	return &models.EnrichedProduct{
		Product:   models.Product{ProductID: strconv.Itoa(idx), StoreName: store, Name: fmt.Sprintf("Izdelek %d", idx)},
		AIFields:  models.AIFields{MainCategory: category},
		ScrapedAt: fixedNow,
	}, nil
}

type mockWriter struct {
	mu      sync.Mutex
	batches [][]*models.EnrichedProduct
	closed  bool
}

func (mw *mockWriter) Write(products []*models.EnrichedProduct) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	copyBatch := make([]*models.EnrichedProduct, len(products))
	copy(copyBatch, products)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed = true
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return nil
}

func (mw *mockWriter) batchSizes() []int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	sizes := make([]int, 0, len(mw.batches))
	for _, batch := range mw.batches {
		sizes = append(sizes, len(batch))
	}
	return sizes
}

type fakeSink struct {
	failID  string
	keys    []string
	records []*models.EnrichedProduct
}

func (s *fakeSink) Upsert(_ context.Context, p *models.EnrichedProduct) error {
	if p.ProductID == s.failID {
		return errors.New("disk full")
	}
	s.keys = append(s.keys, p.StoreName+"/"+p.ProductID)
	s.records = append(s.records, p)
	return nil
}

type sleepRecorder struct {
	durations []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.durations = append(s.durations, d)
	return ctx.Err()
}

func (s *sleepRecorder) count(d time.Duration) int {
	n := 0
	for _, got := range s.durations {
		if got == d {
			n++
		}
	}
	return n
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func indexedItems(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"idx": %d}`, i)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func newTestOrchestrator(proc Processor, opts Options) (*Orchestrator, *sleepRecorder) {
	o := NewOrchestrator(proc, opts)
	rec := &sleepRecorder{}
	o.now = func() time.Time { return fixedNow }
	o.sleep = rec.sleep
	return o, rec
}

func TestProcessFileCountsAndPersists(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "tus_products.json", `{"count": 7, "items": `+indexedItems(7)+`}`)
	checkpoints := filepath.Join(dir, "batches")
	outputDir := filepath.Join(dir, "out")

	writer := &mockWriter{}
	sink := &fakeSink{failID: "4"}
	o, sleeps := newTestOrchestrator(&fakeProcessor{}, Options{
		BatchPause:    5 * time.Second,
		SaveBatches:   true,
		CheckpointDir: checkpoints,
		OutputDir:     outputDir,
		Sink:          sink,
		Writer:        writer,
	})

	result, err := o.ProcessFile(context.Background(), input, "tus", 3, time.Millisecond)
	if err != nil {
		t.Fatalf("process file: %v", err)
	}

	stats := result.Stats
	if stats.Total != 7 || stats.Processed != 7 {
		t.Fatalf("total=%d processed=%d, want 7/7", stats.Total, stats.Processed)
	}
	if stats.Successful != 4 || stats.Failed != 3 {
		t.Fatalf("successful=%d failed=%d, want 4/3", stats.Successful, stats.Failed)
	}
	if stats.FailuresByKind[processor.KindNormalization] != 3 {
		t.Fatalf("failures by kind = %v", stats.FailuresByKind)
	}
	if len(result.Products) != 4 || result.Interrupted {
		t.Fatalf("products=%d interrupted=%v", len(result.Products), result.Interrupted)
	}
	if result.RunID == "" {
		t.Fatalf("expected run id")
	}

	if got := sleeps.count(time.Millisecond); got != 7 {
		t.Fatalf("item delays=%d, want 7", got)
	}
	if got := sleeps.count(5 * time.Second); got != 2 {
		t.Fatalf("batch pauses=%d, want 2", got)
	}

	if stats.Stored != 3 || stats.StoreFailed != 1 {
		t.Fatalf("stored=%d store_failed=%d, want 3/1", stats.Stored, stats.StoreFailed)
	}
	if sink.keys[0] != "tus/0" {
		t.Fatalf("unexpected sink key %q", sink.keys[0])
	}

	sizes := writer.batchSizes()
	if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 1 || sizes[2] != 1 {
		t.Fatalf("writer batch sizes = %v", sizes)
	}

	if len(result.Checkpoints) != 3 {
		t.Fatalf("checkpoints=%d, want 3", len(result.Checkpoints))
	}
	wantFirst := filepath.Join(checkpoints, "enhanced_products_tus_batch_1_20250101_120000.json")
	if result.Checkpoints[0] != wantFirst {
		t.Fatalf("checkpoint = %q, want %q", result.Checkpoints[0], wantFirst)
	}
	var batch []map[string]any
	data, err := os.ReadFile(wantFirst)
	if err != nil {
		t.Fatalf("read checkpoint: %v", err)
	}
	if err := json.Unmarshal(data, &batch); err != nil {
		t.Fatalf("decode checkpoint: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("checkpoint records=%d, want 2", len(batch))
	}

	wantOutput := filepath.Join(outputDir, "enhanced_tus_products_tus_20250101_120000.json")
	if result.OutputFile != wantOutput {
		t.Fatalf("output = %q, want %q", result.OutputFile, wantOutput)
	}
	var doc struct {
		Metadata struct {
			RunID           string            `json:"run_id"`
			OriginalFile    string            `json:"original_file"`
			StoreType       string            `json:"store_type"`
			TotalProducts   int               `json:"total_products"`
			ProcessingStats models.BatchStats `json:"processing_stats"`
		} `json:"metadata"`
		Products []map[string]any `json:"products"`
	}
	data, err = os.ReadFile(wantOutput)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if doc.Metadata.StoreType != "tus" || doc.Metadata.TotalProducts != 4 || doc.Metadata.OriginalFile != input {
		t.Fatalf("unexpected metadata: %+v", doc.Metadata)
	}
	if doc.Metadata.RunID != result.RunID || doc.Metadata.ProcessingStats.Failed != 3 {
		t.Fatalf("unexpected metadata stats: %+v", doc.Metadata)
	}
	if len(doc.Products) != 4 || doc.Products[0]["product_id"] != "0" {
		t.Fatalf("unexpected products: %v", doc.Products)
	}
}

func TestProcessFileBatchResilience(t *testing.T) {
	for _, n := range []int{1, 2, 5, 10} {
		for _, size := range []int{1, 3, 25} {
			input := writeInput(t, t.TempDir(), "in.json", indexedItems(n))
			o, _ := newTestOrchestrator(&fakeProcessor{}, Options{})

			result, err := o.ProcessFile(context.Background(), input, "dm", size, 0)
			if err != nil {
				t.Fatalf("n=%d size=%d: %v", n, size, err)
			}
			wantOK := (n + 1) / 2
			if result.Stats.Successful != wantOK || result.Stats.Failed != n-wantOK {
				t.Fatalf("n=%d size=%d: successful=%d failed=%d", n, size, result.Stats.Successful, result.Stats.Failed)
			}
			if result.OutputFile != "" {
				t.Fatalf("report written without output dir")
			}
		}
	}
}

func TestProcessFileCancellation(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "in.json", indexedItems(5))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	proc := &fakeProcessor{onCall: func(call int) {
		if call == 2 {
			cancel()
		}
	}}
	sink := &fakeSink{}
	o, _ := newTestOrchestrator(proc, Options{
		SaveBatches:   true,
		CheckpointDir: dir,
		OutputDir:     dir,
		Sink:          sink,
	})

	result, err := o.ProcessFile(ctx, input, "spar", 10, 0)
	if err != nil {
		t.Fatalf("process file: %v", err)
	}
	if !result.Interrupted {
		t.Fatalf("expected interrupted result")
	}
	if result.Stats.Processed != 2 || proc.calls != 2 {
		t.Fatalf("processed=%d calls=%d, want 2", result.Stats.Processed, proc.calls)
	}
	if result.OutputFile == "" {
		t.Fatalf("partial report not written")
	}
	if len(result.Checkpoints) != 1 || len(sink.keys) != 1 {
		t.Fatalf("checkpoints=%d stored=%d, want partial batch persisted", len(result.Checkpoints), len(sink.keys))
	}

	data, err := os.ReadFile(result.OutputFile)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), `"interrupted": true`) {
		t.Fatalf("report not marked interrupted: %s", data)
	}
}

func TestProcessFileCancellationFinishesInFlightProduct(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "tus_products.json",
		`[{"id": "8", "name": "Jabolka", "current_price_numeric": 1.2}, {"id": "9", "name": "Hruške"}]`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	gen := enhancer.GeneratorFunc(func(callCtx context.Context, _ string) (string, error) {
		calls++
		cancel()
		select {
		case <-callCtx.Done():
			return "", callCtx.Err()
		case <-time.After(20 * time.Millisecond):
		}
		return `{"ai_main_category": "Sadje", "ai_subcategory": "Jabolka"}`, nil
	})
	client, err := enhancer.NewClient(gen, enhancer.Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	sink := &fakeSink{}
	o, _ := newTestOrchestrator(processor.New(nil, client, nil), Options{OutputDir: dir, Sink: sink})

	result, err := o.ProcessFile(ctx, input, "tus", 10, 0)
	if err != nil {
		t.Fatalf("process file: %v", err)
	}
	if !result.Interrupted || calls != 1 {
		t.Fatalf("interrupted=%v calls=%d, want interrupted after one call", result.Interrupted, calls)
	}
	if result.Stats.Processed != 1 || result.Stats.Successful != 1 {
		t.Fatalf("processed=%d successful=%d, want 1/1", result.Stats.Processed, result.Stats.Successful)
	}
	if len(sink.records) != 1 {
		t.Fatalf("stored %d records, want 1", len(sink.records))
	}
	for _, rec := range sink.records {
		if rec.MainCategory == enhancer.FallbackCategory {
			t.Fatalf("fallback fields reached the sink for %s", rec.ProductID)
		}
	}
	if sink.records[0].MainCategory != "Sadje" {
		t.Fatalf("stored category = %q, want Sadje", sink.records[0].MainCategory)
	}
}

func TestProcessFileCancelledDuringPause(t *testing.T) {
	input := writeInput(t, t.TempDir(), "in.json", indexedItems(4))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o, _ := newTestOrchestrator(&fakeProcessor{}, Options{BatchPause: time.Minute})
	o.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	result, err := o.ProcessFile(ctx, input, "lidl", 2, 0)
	if err != nil {
		t.Fatalf("process file: %v", err)
	}
	if !result.Interrupted || result.Stats.Processed != 2 {
		t.Fatalf("interrupted=%v processed=%d", result.Interrupted, result.Stats.Processed)
	}
}

func TestProcessFileMaxProducts(t *testing.T) {
	input := writeInput(t, t.TempDir(), "in.json", indexedItems(10))
	o, _ := newTestOrchestrator(&fakeProcessor{}, Options{MaxProducts: 4})

	result, err := o.ProcessFile(context.Background(), input, "tus", 3, 0)
	if err != nil {
		t.Fatalf("process file: %v", err)
	}
	if result.Stats.Total != 4 || result.Stats.Processed != 4 {
		t.Fatalf("total=%d processed=%d, want 4", result.Stats.Total, result.Stats.Processed)
	}
}

func TestProcessFileRecoversPanics(t *testing.T) {
	input := writeInput(t, t.TempDir(), "in.json", indexedItems(5))
	o, _ := newTestOrchestrator(&fakeProcessor{panicAt: 2}, Options{})

	result, err := o.ProcessFile(context.Background(), input, "tus", 5, 0)
	if err != nil {
		t.Fatalf("process file: %v", err)
	}
	if result.Stats.Successful != 2 || result.Stats.Failed != 3 {
		t.Fatalf("successful=%d failed=%d, want 2/3", result.Stats.Successful, result.Stats.Failed)
	}
	if result.Stats.FailuresByKind[processor.KindInternal] != 1 {
		t.Fatalf("failures by kind = %v", result.Stats.FailuresByKind)
	}
}

func TestProcessFileArguments(t *testing.T) {
	input := writeInput(t, t.TempDir(), "in.json", indexedItems(1))
	o, _ := newTestOrchestrator(&fakeProcessor{}, Options{})

	if _, err := o.ProcessFile(context.Background(), input, "tus", 0, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
	if _, err := o.ProcessFile(context.Background(), input, "tus", 1, -time.Second); err == nil {
		t.Fatalf("expected error for negative delay")
	}
}

func TestProcessFileLoadFailure(t *testing.T) {
	dir := t.TempDir()
	proc := &fakeProcessor{}
	o, _ := newTestOrchestrator(proc, Options{OutputDir: dir})

	input := writeInput(t, dir, "meta.json", `{"count": 0, "source": "tus"}`)
	if _, err := o.ProcessFile(context.Background(), input, "tus", 5, 0); !errors.Is(err, ErrNoProductArray) {
		t.Fatalf("err = %v, want ErrNoProductArray", err)
	}
	if _, err := o.ProcessFile(context.Background(), filepath.Join(dir, "missing.json"), "tus", 5, 0); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not exist", err)
	}
	broken := writeInput(t, dir, "broken.json", `[{"idx": 0},`)
	if _, err := o.ProcessFile(context.Background(), broken, "tus", 5, 0); err == nil {
		t.Fatalf("expected error for truncated json")
	}
	if proc.calls != 0 {
		t.Fatalf("processor called %d times after load failure", proc.calls)
	}
}

func TestLoadProductsShapes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr error
	}{
		{name: "bare array", content: indexedItems(3), want: 3},
		{name: "items key", content: `{"meta": {"page": 1}, "items": ` + indexedItems(2) + `}`, want: 2},
		{name: "products before data", content: `{"data": ` + indexedItems(4) + `, "products": ` + indexedItems(1) + `}`, want: 1},
		{name: "preferred must be array", content: `{"products": "none", "data": ` + indexedItems(2) + `}`, want: 2},
		{name: "empty preferred array", content: `{"products": [], "rows": ` + indexedItems(2) + `}`, want: 0},
		{name: "first non-empty array", content: `{"tags": [], "rows": ` + indexedItems(2) + `, "more": ` + indexedItems(5) + `}`, want: 2},
		{name: "no array", content: `{"count": 1}`, wantErr: ErrNoProductArray},
		{name: "scalar document", content: `42`, wantErr: ErrNoProductArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeInput(t, t.TempDir(), "in.json", tt.content)
			items, err := LoadProducts(path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if len(items) != tt.want {
				t.Fatalf("items=%d, want %d", len(items), tt.want)
			}
		})
	}
}

func TestLoadProductsNonObjectElements(t *testing.T) {
	path := writeInput(t, t.TempDir(), "in.json", `[{"idx": 0}, "text", null, 7, {"idx": 2, "price": 1.19}]`)
	items, err := LoadProducts(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("items=%d, want 5", len(items))
	}
	if items[1] != nil || items[2] != nil || items[3] != nil {
		t.Fatalf("non-object elements should load as nil: %v", items)
	}
	if price, ok := items[4].Float("price"); !ok || price != 1.19 {
		t.Fatalf("price = %v %v", price, ok)
	}
}

func TestChunk(t *testing.T) {
	batches := chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(batches) != 3 || len(batches[2]) != 1 {
		t.Fatalf("unexpected batches: %v", batches)
	}
	if got := chunk([]int{}, 3); len(got) != 0 {
		t.Fatalf("empty input produced %d batches", len(got))
	}
}

func TestWriteSummary(t *testing.T) {
	result := &models.BatchResult{
		StoreName: "tus",
		Stats: models.BatchStats{
			Total:          4,
			Processed:      4,
			Successful:     3,
			Failed:         1,
			FailuresByKind: map[string]int{"normalization": 1},
			StartTime:      fixedNow,
			EndTime:        fixedNow.Add(3 * time.Second),
		},
		Products: []*models.EnrichedProduct{
			{AIFields: models.AIFields{MainCategory: "Sadje"}},
			{AIFields: models.AIFields{MainCategory: "Mlečni izdelki"}},
			{AIFields: models.AIFields{MainCategory: "Sadje"}},
		},
		OutputFile: "out/report.json",
	}

	var buf bytes.Buffer
	if err := WriteSummary(&buf, result); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Enhancement complete",
		"Success rate:  75.00%",
		"Failure kinds: normalization=1",
		"Items/sec:     1.00",
		"Est. cost:     $0.015",
		"Output file:   out/report.json",
		"    Sadje" + strings.Repeat(" ", 9) + "  2\n",
		"    Mlečni izdelki  1\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Sadje") > strings.Index(out, "Mlečni") {
		t.Fatalf("categories not sorted by count:\n%s", out)
	}

	if err := WriteSummary(&buf, nil); err == nil {
		t.Fatalf("expected error for nil result")
	}
}
