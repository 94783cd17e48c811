package normalizer

import (
	"strings"

	"github.com/aluiziolira/go-enrich-products/models"
)

func normalizeMercator(raw Raw, store string) (*models.Product, error) {
	data := raw.Object("data")
	if data == nil {
		return nil, &Failure{Store: store, Reason: "data object absent", Err: ErrMissingObject}
	}

	name := data.Text("name")
	p := &models.Product{
		ProductID:    data.Text("cinv"),
		ProductCode:  data.Text("code"),
		EANCode:      firstGTIN(data.List("gtins")),
		Name:         name,
		Title:        name,
		Brand:        data.Text("brand_name"),
		CurrentPrice: data.FloatOr("current_price"),
		ProductURL:   raw.Text("url"),
		ImageURL:     raw.Text("mainImageSrc"),
		RatingValue:  optionalFloat(data, "rating"),
		RatingCount:  optionalInt(data, "ratings_num"),
		AllergenInfo: parseAllergens(data.List("allergens")),
	}
	if p.ProductID == "" {
		return nil, &Failure{Store: store, Reason: "cinv absent", Err: ErrMissingID}
	}

	DeriveDiscount(p.CurrentPrice, data.FloatOr("normal_price"), 0).Apply(p)
	setCategories(p, []string{data.Text("category1"), data.Text("category2"), data.Text("category3")})
	p.StoreCategory = p.CategoryLevel1
	return p, nil
}

// firstGTIN accepts both [{"gtin": "..."}] and bare scalar lists.
func firstGTIN(list []any) string {
	for _, item := range list {
		if obj := AsRaw(item); obj != nil {
			if gtin := obj.Text("gtin"); gtin != "" {
				return gtin
			}
			continue
		}
		if s, ok := asString(item); ok {
			if s = cleanText(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// parseAllergens decodes entries shaped {"value": "<code>_<true|false>"}.
func parseAllergens(list []any) map[string]bool {
	info := make(map[string]bool)
	for _, item := range list {
		value := AsRaw(item).Text("value")
		code, flag, ok := strings.Cut(value, "_")
		if !ok || code == "" || strings.Contains(flag, "_") {
			continue
		}
		info[code] = flag == "true"
	}
	if len(info) == 0 {
		return nil
	}
	return info
}
