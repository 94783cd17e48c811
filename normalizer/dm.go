package normalizer

import (
	"strings"

	"github.com/aluiziolira/go-enrich-products/models"
)

func normalizeDM(raw Raw, store string) (*models.Product, error) {
	p := &models.Product{
		ProductID:   raw.Text("dan"),
		EANCode:     raw.FirstText("gtin"),
		Name:        raw.Text("name"),
		Title:       raw.Text("title"),
		Brand:       raw.Text("brandName"),
		ProductURL:  raw.Text("relativeProductUrl"),
		ImageURL:    raw.FirstText("imageUrlTemplates"),
		RatingValue: optionalFloat(raw, "ratingValue"),
		RatingCount: optionalInt(raw, "ratingCount"),
	}
	if p.ProductID == "" {
		return nil, &Failure{Store: store, Reason: "dan absent", Err: ErrMissingID}
	}

	if price := raw.Object("price"); price != nil {
		p.CurrentPrice = price.FloatOr("value")
		p.CurrencyCode = price.Text("currencyIso")
	} else {
		p.CurrentPrice = raw.FloatOr("price")
	}
	DeriveDiscount(p.CurrentPrice, 0, 0).Apply(p)

	names := raw.StringList("categoryNames")
	p.StoreCategory = strings.Join(names, ", ")
	setCategories(p, names)
	return p, nil
}
