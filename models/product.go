// Package models defines data structures shared by the enhancement pipeline.
package models

import "time"

// Product is the store-agnostic normalized representation of one product.
type Product struct {
	ProductID   string `json:"product_id"`
	ProductCode string `json:"product_code"`
	EANCode     string `json:"ean_code"`
	ERPNumber   string `json:"erp_number"`

	Name        string `json:"product_name"`
	Title       string `json:"product_title"`
	Brand       string `json:"brand_name"`
	Description string `json:"product_description"`

	CurrentPrice       float64  `json:"current_price"`
	RegularPrice       *float64 `json:"regular_price"`
	DiscountPercentage *float64 `json:"discount_percentage"`
	HasDiscount        bool     `json:"has_discount"`
	CurrencyCode       string   `json:"currency_code"`

	StoreCategory  string   `json:"store_category"`
	CategoryLevel1 string   `json:"category_level_1"`
	CategoryLevel2 string   `json:"category_level_2"`
	CategoryLevel3 string   `json:"category_level_3"`
	CategoriesRaw  []string `json:"categories_raw"`

	ProductURL string `json:"product_url"`
	ImageURL   string `json:"image_url"`

	RatingValue *float64 `json:"rating_value"`
	RatingCount *int     `json:"rating_count"`

	AllergenInfo map[string]bool `json:"allergen_info,omitempty"`

	StoreName string `json:"store_name"`
}

// DisplayName returns the best human-readable label for logging.
func (p *Product) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	if p.Title != "" {
		return p.Title
	}
	return p.ProductID
}

// AIFields is the closed set of fields produced by the enhancement step.
type AIFields struct {
	MainCategory string `json:"ai_main_category"`
	Subcategory  string `json:"ai_subcategory"`
	Confidence   string `json:"ai_confidence"`

	ProductSummary      string   `json:"ai_product_summary"`
	UsageSuggestions    string   `json:"ai_usage_suggestions"`
	RecipeCompatibility []string `json:"ai_recipe_compatibility"`
	StorageTips         string   `json:"ai_storage_tips"`
	PreparationTips     string   `json:"ai_preparation_tips"`
	PairingSuggestions  string   `json:"ai_pairing_suggestions"`
	AlternativeUses     string   `json:"ai_alternative_uses"`
	KeySellingPoints    []string `json:"ai_key_selling_points"`

	OptimalQuantity       int    `json:"ai_optimal_quantity"`
	ReplacementUrgency    string `json:"ai_replacement_urgency"`
	BulkDiscountWorthy    bool   `json:"ai_bulk_discount_worthy"`
	SubstituteProducts    string `json:"ai_substitute_products"`
	SeasonalAvailability  string `json:"ai_seasonal_availability"`
	StockupRecommendation bool   `json:"ai_stockup_recommendation"`
	PurchaseFrequency     string `json:"ai_purchase_frequency"`
	TargetDemographic     string `json:"ai_target_demographic"`
	MealCategory          string `json:"ai_meal_category"`
	PreparationComplexity string `json:"ai_preparation_complexity"`

	FreshnessIndicator  string `json:"ai_freshness_indicator"`
	ShelfLifeEstimate   int    `json:"ai_shelf_life_estimate"`
	StorageRequirements string `json:"ai_storage_requirements"`

	HealthScore       int      `json:"ai_health_score"`
	NutritionGrade    string   `json:"ai_nutrition_grade"`
	AllergenRisk      string   `json:"ai_allergen_risk"`
	AllergenList      string   `json:"ai_allergen_list"`
	DietCompatibility []string `json:"ai_diet_compatibility"`
	OrganicVerified   bool     `json:"ai_organic_verified"`
	AdditiveScore     int      `json:"ai_additive_score"`
	ProcessingLevel   string   `json:"ai_processing_level"`
	SugarContent      string   `json:"ai_sugar_content"`
	SodiumLevel       string   `json:"ai_sodium_level"`

	ValueRating        string `json:"ai_value_rating"`
	PriceTier          string `json:"ai_price_tier"`
	DealQuality        string `json:"ai_deal_quality"`
	QualityTier        string `json:"ai_quality_tier"`
	EnvironmentalScore int    `json:"ai_environmental_score"`

	UnitPriceNormalized float64 `json:"ai_unit_price_normalized"`
}

// EnrichedProduct is a Product merged with its AI fields. It serializes flat.
type EnrichedProduct struct {
	Product
	AIFields
	ScrapedAt time.Time `json:"scraped_at"`
}

// BatchStats holds the running counters of one orchestrator.
type BatchStats struct {
	Total          int            `json:"total"`
	Processed      int            `json:"processed"`
	Successful     int            `json:"successful"`
	Failed         int            `json:"failed"`
	Stored         int            `json:"stored"`
	StoreFailed    int            `json:"store_failed"`
	FailuresByKind map[string]int `json:"failures_by_kind"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        time.Time      `json:"end_time"`
}

// Clone returns a copy that does not share the failure map.
func (s BatchStats) Clone() BatchStats {
	out := s
	out.FailuresByKind = make(map[string]int, len(s.FailuresByKind))
	for k, v := range s.FailuresByKind {
		out.FailuresByKind[k] = v
	}
	return out
}

// Elapsed returns the wall time between start and end.
func (s BatchStats) Elapsed() time.Duration {
	if s.StartTime.IsZero() || s.EndTime.Before(s.StartTime) {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// BatchResult holds the overall result of processing one input file.
type BatchResult struct {
	RunID       string
	InputFile   string
	StoreName   string
	Stats       BatchStats
	Products    []*EnrichedProduct
	OutputFile  string
	Checkpoints []string
	Interrupted bool
}

// ItemsPerSecond returns throughput over successfully enriched products.
func (r *BatchResult) ItemsPerSecond() float64 {
	elapsed := r.Stats.Elapsed().Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(r.Stats.Successful) / elapsed
}
