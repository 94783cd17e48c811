package pipeline

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-enrich-products/models"
	"github.com/parquet-go/parquet-go"
)

// ParquetRow is the columnar layout of one enriched product.
type ParquetRow struct {
	StoreName          string   `parquet:"store_name"`
	ProductID          string   `parquet:"product_id"`
	EANCode            string   `parquet:"ean_code"`
	ProductName        string   `parquet:"product_name"`
	BrandName          string   `parquet:"brand_name"`
	CurrentPrice       float64  `parquet:"current_price"`
	RegularPrice       *float64 `parquet:"regular_price"`
	DiscountPercentage *float64 `parquet:"discount_percentage"`
	HasDiscount        bool     `parquet:"has_discount"`
	CurrencyCode       string   `parquet:"currency_code"`
	CategoryLevel1     string   `parquet:"category_level_1"`
	CategoryLevel2     string   `parquet:"category_level_2"`
	CategoryLevel3     string   `parquet:"category_level_3"`
	MainCategory       string   `parquet:"ai_main_category"`
	Subcategory        string   `parquet:"ai_subcategory"`
	Confidence         string   `parquet:"ai_confidence"`
	HealthScore        int64    `parquet:"ai_health_score"`
	NutritionGrade     string   `parquet:"ai_nutrition_grade"`
	DietCompatibility  string   `parquet:"ai_diet_compatibility"`
	PriceTier          string   `parquet:"ai_price_tier"`
	ValueRating        string   `parquet:"ai_value_rating"`
	EnvironmentalScore int64    `parquet:"ai_environmental_score"`
	UnitPrice          float64  `parquet:"ai_unit_price_normalized"`
	ScrapedAt          string   `parquet:"scraped_at"`
}

// ParquetWriter writes enriched products to a Parquet file.
type ParquetWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[ParquetRow]
	rows   int
	mu     sync.Mutex
}

// NewParquetWriter creates the output file and its row writer.
func NewParquetWriter(filename string) (*ParquetWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}

	return &ParquetWriter{
		file:   f,
		writer: parquet.NewGenericWriter[ParquetRow](f),
	}, nil
}

// Write appends products as Parquet rows.
func (pw *ParquetWriter) Write(products []*models.EnrichedProduct) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	rows := make([]ParquetRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, toParquetRow(p))
	}
	n, err := pw.writer.Write(rows)
	pw.rows += n
	if err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	return nil
}

// Close writes the footer and closes the file.
func (pw *ParquetWriter) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if err := pw.writer.Close(); err != nil {
		pw.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return pw.file.Close()
}

// Validate ensures at least one row was written.
func (pw *ParquetWriter) Validate() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.rows == 0 {
		return fmt.Errorf("parquet file has no rows")
	}
	return nil
}

func toParquetRow(p *models.EnrichedProduct) ParquetRow {
	return ParquetRow{
		StoreName:          p.StoreName,
		ProductID:          p.ProductID,
		EANCode:            p.EANCode,
		ProductName:        p.Name,
		BrandName:          p.Brand,
		CurrentPrice:       p.CurrentPrice,
		RegularPrice:       p.RegularPrice,
		DiscountPercentage: p.DiscountPercentage,
		HasDiscount:        p.HasDiscount,
		CurrencyCode:       p.CurrencyCode,
		CategoryLevel1:     p.CategoryLevel1,
		CategoryLevel2:     p.CategoryLevel2,
		CategoryLevel3:     p.CategoryLevel3,
		MainCategory:       p.MainCategory,
		Subcategory:        p.Subcategory,
		Confidence:         p.Confidence,
		HealthScore:        int64(p.HealthScore),
		NutritionGrade:     p.NutritionGrade,
		DietCompatibility:  strings.Join(p.DietCompatibility, ", "),
		PriceTier:          p.PriceTier,
		ValueRating:        p.ValueRating,
		EnvironmentalScore: int64(p.EnvironmentalScore),
		UnitPrice:          p.UnitPriceNormalized,
		ScrapedAt:          p.ScrapedAt.Format(time.RFC3339),
	}
}
