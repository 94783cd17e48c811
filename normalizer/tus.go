package normalizer

import "github.com/aluiziolira/go-enrich-products/models"

func normalizeTus(raw Raw, store string) (*models.Product, error) {
	name := raw.Text("name")
	p := &models.Product{
		ProductID:    raw.Text("id"),
		EANCode:      raw.Text("ean"),
		ProductCode:  raw.Text("sku"),
		Name:         name,
		Title:        name,
		ProductURL:   raw.Text("url"),
		ImageURL:     raw.Text("image_url"),
		CurrentPrice: raw.FloatOr("current_price_numeric"),
	}
	if p.ProductID == "" {
		return nil, &Failure{Store: store, Reason: "id absent", Err: ErrMissingID}
	}

	DeriveDiscount(p.CurrentPrice, raw.FloatOr("regular_price_numeric"), raw.FloatOr("discount_percentage")).Apply(p)
	setCategories(p, raw.StringList("categories"))
	return p, nil
}
