package enhancer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-enrich-products/models"
)

const responseFields = `{
  "ai_main_category": "ena od glavnih kategorij",
  "ai_subcategory": "podkategorija",
  "ai_confidence": "high/medium/low",
  "ai_product_summary": "povzetek v dveh stavkih",
  "ai_usage_suggestions": "predlogi uporabe",
  "ai_recipe_compatibility": ["pasta-dishes", "salads"],
  "ai_storage_tips": "nasveti za shranjevanje",
  "ai_preparation_tips": "nasveti za pripravo",
  "ai_pairing_suggestions": "s čim kombinirati",
  "ai_alternative_uses": "alternativne uporabe",
  "ai_key_selling_points": ["prednost-1", "prednost-2"],
  "ai_optimal_quantity": 1,
  "ai_replacement_urgency": "immediate/within-week/when-convenient",
  "ai_bulk_discount_worthy": false,
  "ai_substitute_products": "podobni izdelki",
  "ai_seasonal_availability": "year-round/spring-summer/autumn-winter",
  "ai_stockup_recommendation": false,
  "ai_purchase_frequency": "daily/weekly/monthly/occasional",
  "ai_target_demographic": "families/young-adults/seniors/health-conscious",
  "ai_meal_category": "breakfast/lunch/dinner/snack/ingredient",
  "ai_preparation_complexity": "simple/moderate/complex",
  "ai_freshness_indicator": "very-fresh/fresh/moderate/check-date",
  "ai_shelf_life_estimate": 30,
  "ai_storage_requirements": "cool-dry/refrigerated/frozen/room-temperature",
  "ai_health_score": 50,
  "ai_nutrition_grade": "A/B/C/D/E",
  "ai_allergen_risk": "high/medium/low/none",
  "ai_allergen_list": "gluten, oreščki, mleko",
  "ai_diet_compatibility": ["vegan", "gluten-free"],
  "ai_organic_verified": false,
  "ai_additive_score": 50,
  "ai_processing_level": "minimal/moderate/highly-processed",
  "ai_sugar_content": "none/low/medium/high",
  "ai_sodium_level": "none/low/medium/high",
  "ai_value_rating": "excellent/good/fair/poor",
  "ai_price_tier": "budget/mid-range/premium",
  "ai_deal_quality": "excellent/good/fair/poor",
  "ai_quality_tier": "premium/standard/basic",
  "ai_environmental_score": 50
}`

// BuildPrompt renders the enhancement prompt for p. Equal products always
// yield byte-identical prompts.
func BuildPrompt(p *models.Product) string {
	var b strings.Builder

	b.WriteString("Analiziraj naslednji izdelek in vrni strukturiran JSON z vsemi AI polji.\n")
	b.WriteString("Glavna kategorija mora biti natanko ena iz predpisanega seznama.\n\n")

	b.WriteString("IZDELEK:\n")
	fmt.Fprintf(&b, "- Ime: %s\n", p.Name)
	fmt.Fprintf(&b, "- Naslov: %s\n", p.Title)
	fmt.Fprintf(&b, "- Znamka: %s\n", p.Brand)
	fmt.Fprintf(&b, "- Opis: %s\n", p.Description)
	fmt.Fprintf(&b, "- Kategorija trgovine: %s\n", p.StoreCategory)
	fmt.Fprintf(&b, "- Kategorije: %s\n", strings.Join(p.CategoriesRaw, " > "))
	fmt.Fprintf(&b, "- Cena: %s %s\n", strconv.FormatFloat(p.CurrentPrice, 'f', 2, 64), currency(p))
	if p.HasDiscount && p.DiscountPercentage != nil {
		fmt.Fprintf(&b, "- Popust: %s %%\n", strconv.FormatFloat(*p.DiscountPercentage, 'f', 2, 64))
	}
	fmt.Fprintf(&b, "- Alergeni: %s\n\n", formatAllergens(p.AllergenInfo))

	b.WriteString("GLAVNE KATEGORIJE (izberi natanko eno):\n")
	b.WriteString(strings.Join(categories, ", "))
	b.WriteString("\n\n")

	b.WriteString("Vrni JSON z naslednjimi polji:\n")
	b.WriteString(responseFields)
	b.WriteString("\n\nPravila:\n")
	b.WriteString("- uporabi samo kategorije s seznama\n")
	b.WriteString("- besedila naj bodo v slovenščini\n")
	b.WriteString("- vrni samo veljaven JSON brez komentarjev\n")
	b.WriteString("- če podatkov ni dovolj, uporabi razumne ocene\n")
	return b.String()
}

func currency(p *models.Product) string {
	if p.CurrencyCode == "" {
		return "EUR"
	}
	return p.CurrencyCode
}

func formatAllergens(info map[string]bool) string {
	if len(info) == 0 {
		return "ni podatka"
	}
	codes := make([]string, 0, len(info))
	for code := range info {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%s=%t", code, info[code]))
	}
	return strings.Join(parts, ", ")
}
