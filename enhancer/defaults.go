package enhancer

import (
	"strings"

	"github.com/aluiziolira/go-enrich-products/models"
)

const defaultSubcategory = "Nerazvrščeno"

// defaultFields is never handed out directly; DefaultAIFields clones it.
var defaultFields = models.AIFields{
	MainCategory: FallbackCategory,
	Subcategory:  defaultSubcategory,
	Confidence:   "low",

	UsageSuggestions:    "Splošna uporaba",
	RecipeCompatibility: []string{},
	StorageTips:         "Shranite v ustreznih pogojih",
	PreparationTips:     "Pripravite po navodilih",
	PairingSuggestions:  "Kombinirajte po okusu",
	AlternativeUses:     "Standardna uporaba",
	KeySellingPoints:    []string{"kakovost"},

	OptimalQuantity:       1,
	ReplacementUrgency:    "when-convenient",
	SubstituteProducts:    "Podobni izdelki iz iste kategorije",
	SeasonalAvailability:  "year-round",
	PurchaseFrequency:     "occasional",
	TargetDemographic:     "families",
	MealCategory:          "ingredient",
	PreparationComplexity: "simple",

	FreshnessIndicator:  "moderate",
	ShelfLifeEstimate:   30,
	StorageRequirements: "room-temperature",

	HealthScore:       50,
	NutritionGrade:    "C",
	AllergenRisk:      "medium",
	AllergenList:      "Preverite etiketo",
	DietCompatibility: []string{},
	AdditiveScore:     50,
	ProcessingLevel:   "moderate",
	SugarContent:      "medium",
	SodiumLevel:       "medium",

	ValueRating:        "fair",
	PriceTier:          "mid-range",
	DealQuality:        "fair",
	QualityTier:        "standard",
	EnvironmentalScore: 50,
}

// DefaultAIFields returns a fresh copy of the default field set.
func DefaultAIFields() models.AIFields {
	return cloneFields(defaultFields)
}

// Fallback returns the default field set personalised for p.
func Fallback(p *models.Product) models.AIFields {
	f := DefaultAIFields()
	if p == nil {
		return f
	}
	f.ProductSummary = summary(p)
	if p.CurrentPrice > 0 {
		f.UnitPriceNormalized = p.CurrentPrice
	}
	return f
}

func summary(p *models.Product) string {
	parts := make([]string, 0, 2)
	if name := p.DisplayName(); name != "" {
		parts = append(parts, name)
	}
	if p.Brand != "" {
		parts = append(parts, p.Brand)
	}
	return strings.Join(parts, " - ")
}

func cloneFields(f models.AIFields) models.AIFields {
	f.RecipeCompatibility = cloneStrings(f.RecipeCompatibility)
	f.KeySellingPoints = cloneStrings(f.KeySellingPoints)
	f.DietCompatibility = cloneStrings(f.DietCompatibility)
	return f
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
