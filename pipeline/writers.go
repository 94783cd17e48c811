package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-enrich-products/models"
)

var csvHeader = []string{
	"store_name", "product_id", "ean_code", "product_name", "brand_name",
	"current_price", "regular_price", "discount_percentage", "has_discount", "currency_code",
	"category_level_1", "category_level_2", "category_level_3",
	"ai_main_category", "ai_subcategory", "ai_confidence",
	"ai_health_score", "ai_nutrition_grade", "ai_price_tier", "ai_value_rating",
	"product_url", "scraped_at",
}

// CSVWriter writes a flat subset of each enriched record to CSV.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends products to the CSV output.
func (cw *CSVWriter) Write(products []*models.EnrichedProduct) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, p := range products {
		record := []string{
			p.StoreName,
			p.ProductID,
			p.EANCode,
			p.Name,
			p.Brand,
			formatFloat(p.CurrentPrice),
			formatOptionalFloat(p.RegularPrice),
			formatOptionalFloat(p.DiscountPercentage),
			strconv.FormatBool(p.HasDiscount),
			p.CurrencyCode,
			p.CategoryLevel1,
			p.CategoryLevel2,
			p.CategoryLevel3,
			p.MainCategory,
			p.Subcategory,
			p.Confidence,
			strconv.Itoa(p.HealthScore),
			p.NutritionGrade,
			p.PriceTier,
			p.ValueRating,
			p.ProductURL,
			p.ScrapedAt.Format(time.RFC3339),
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content besides the header.
func (cw *CSVWriter) Validate() error {
	info, err := os.Stat(cw.file.Name())
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSONL writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: encoder,
	}, nil
}

// Write appends products in JSONL format.
func (jw *JSONWriter) Write(products []*models.EnrichedProduct) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, p := range products {
		if err := jw.encoder.Encode(p); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	info, err := os.Stat(jw.file.Name())
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}

// NewOutputWriter builds the export writer for format. The dual format
// derives its JSONL path from filename by swapping the extension.
func NewOutputWriter(format, filename string) (OutputWriter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONWriter(filename)
	case "csv":
		return NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jsonl"
		return NewDualWriter(filename, jsonFilename)
	case "parquet":
		return NewParquetWriter(filename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// writeJSONFile writes v as indented JSON without escaping non-ASCII or
// HTML characters. The file is replaced atomically.
func writeJSONFile(filename string, v any) error {
	if err := ensureDir(filename); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), ".tmp-"+filepath.Base(filename)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	buffer := bufio.NewWriter(tmp)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(filename), err)
	}
	if err := buffer.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", filepath.Base(filename), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(filename), err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(filename), err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
