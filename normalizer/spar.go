package normalizer

import "github.com/aluiziolira/go-enrich-products/models"

func normalizeSpar(raw Raw, store string) (*models.Product, error) {
	mv := raw.Object("masterValues")
	if mv == nil {
		return nil, &Failure{Store: store, Reason: "masterValues object absent", Err: ErrMissingObject}
	}

	p := &models.Product{
		ProductID:     raw.Text("id"),
		ProductCode:   mv.Text("code-internal"),
		Name:          mv.Text("name"),
		Title:         mv.Text("title"),
		Brand:         mv.Text("ecr-brand"),
		Description:   mv.Text("description"),
		ProductURL:    mv.Text("url"),
		ImageURL:      mv.Text("image-url"),
		StoreCategory: mv.Text("category-name"),
	}
	if p.ProductID == "" {
		p.ProductID = mv.Text("product-number")
	}
	if p.ProductID == "" {
		return nil, &Failure{Store: store, Reason: "id absent", Err: ErrMissingID}
	}

	current := mv.FloatOr("price")
	if best := mv.FloatOr("best-price"); best > 0 && (mv.Bool("is-on-promotion") || current <= 0) {
		current = best
	}
	p.CurrentPrice = current
	DeriveDiscount(current, mv.FloatOr("regular-price"), 0).Apply(p)

	setCategories(p, SplitCategories(mv.Text("category-names"), "|"))
	return p, nil
}
