package normalizer

import "github.com/aluiziolira/go-enrich-products/models"

func normalizeLidl(raw Raw, store string) (*models.Product, error) {
	p := &models.Product{
		ProductID:    raw.Text("product_id", "item_id"),
		ProductCode:  raw.Text("code"),
		EANCode:      raw.FirstText("ians"),
		ERPNumber:    raw.Text("erp_number"),
		Name:         raw.Text("name"),
		Title:        raw.Text("full_title", "title"),
		Description:  raw.Text("more_details"),
		CurrencyCode: raw.Text("currency_code"),
		ProductURL:   raw.Text("canonical_url", "url"),
		ImageURL:     raw.Text("main_image"),
		CurrentPrice: raw.FloatOr("price"),
	}
	if p.ProductID == "" {
		return nil, &Failure{Store: store, Reason: "product_id and item_id absent", Err: ErrMissingID}
	}
	if p.ImageURL == "" {
		p.ImageURL = raw.FirstText("image_list")
	}

	DeriveDiscount(p.CurrentPrice, raw.FloatOr("old_price"), raw.FloatOr("discount_percentage")).Apply(p)

	worldOfNeeds := raw.Text("world_of_needs_name")
	p.StoreCategory = worldOfNeeds

	var crumbs []string
	for _, crumb := range raw.List("category_breadcrumbs") {
		if name := breadcrumbName(crumb); name != "" {
			crumbs = append(crumbs, name)
		}
	}
	setCategories(p, crumbs)

	// Breadcrumbs own the levels; world of needs leads the raw list and
	// only fills level 1 when there are no breadcrumbs.
	if worldOfNeeds != "" {
		p.CategoriesRaw = append([]string{worldOfNeeds}, p.CategoriesRaw...)
		if p.CategoryLevel1 == "" {
			p.CategoryLevel1 = worldOfNeeds
		}
	}
	return p, nil
}

func breadcrumbName(v any) string {
	if s, ok := v.(string); ok {
		return cleanText(s)
	}
	return AsRaw(v).Text("name")
}
