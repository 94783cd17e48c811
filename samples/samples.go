// Package samples generates synthetic store payloads in each store's raw shape.
package samples

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
)

// Options controls payload generation.
type Options struct {
	Count int
	// Seed makes generation reproducible. Zero picks a random seed.
	Seed int64
	// InvalidEvery drops the product id from every Nth payload. Zero disables it.
	InvalidEvery int
}

var (
	productWords = []string{
		"Jogurt", "Mleko", "Sir", "Kruh", "Jabolka", "Banane", "Paradižnik", "Kava",
		"Čaj", "Testenine", "Riž", "Čokolada", "Piškoti", "Sok", "Voda", "Šampon",
		"Zobna pasta", "Detergent", "Pršut", "Salama", "Maslo", "Jajca", "Med", "Olje",
	}
	qualifiers = []string{
		"navadni", "bio", "polnozrnat", "light", "domači", "premium", "klasični", "sveži",
	}
	sizes  = []string{"100 g", "250 g", "500 g", "1 kg", "0,5 l", "1 l", "1,5 l", "6 kos"}
	brands = []string{"Ljubljanske mlekarne", "Žito", "Gorenjka", "Fructal", "Kolinska", "Pivka", "Perutnina Ptuj", "Radenska"}
	paths  = [][]string{
		{"Mlečni izdelki", "Jogurti", "Sadni jogurti"},
		{"Sadje in zelenjava", "Sadje", "Jabolka"},
		{"Pekarna", "Kruh", "Beli kruh"},
		{"Pijače", "Sokovi", "Sadni sokovi"},
		{"Sladkarije", "Čokolade", "Mlečne čokolade"},
		{"Nega telesa", "Nega las", "Šamponi"},
		{"Meso in ribe", "Suhomesnati izdelki", "Pršut"},
	}
	allergenCodes = []string{"1", "3", "7", "8", "70", "73"}
)

type generator func(f *gofakeit.Faker, i int, valid bool) map[string]any

var generators = map[string]generator{
	"lidl":     lidlPayload,
	"dm":       dmPayload,
	"mercator": mercatorPayload,
	"spar":     sparPayload,
	"tus":      tusPayload,
}

// Stores lists the stores payloads can be generated for.
func Stores() []string {
	out := make([]string, 0, len(generators))
	for store := range generators {
		out = append(out, store)
	}
	sort.Strings(out)
	return out
}

// Generate returns opts.Count payloads for store. The same seed always
// yields the same payloads.
func Generate(store string, opts Options) ([]map[string]any, error) {
	gen, ok := generators[strings.ToLower(store)]
	if !ok {
		return nil, fmt.Errorf("unknown store %q", store)
	}
	if opts.Count < 0 {
		return nil, fmt.Errorf("count cannot be negative")
	}

	f := gofakeit.New(opts.Seed)
	out := make([]map[string]any, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		valid := opts.InvalidEvery <= 0 || (i+1)%opts.InvalidEvery != 0
		out = append(out, gen(f, i, valid))
	}
	return out, nil
}

// Document wraps payloads in the top-level shape the store's export uses.
func Document(store string, payloads []map[string]any) any {
	switch strings.ToLower(store) {
	case "dm":
		return map[string]any{"count": len(payloads), "products": payloads}
	case "spar":
		return map[string]any{"total": len(payloads), "hits": payloads}
	case "tus":
		return map[string]any{"source": "tus", "items": payloads}
	default:
		return payloads
	}
}

type fakeProduct struct {
	name     string
	brand    string
	path     []string
	price    float64
	regular  float64
	discount float64
	ean      string
}

func newFakeProduct(f *gofakeit.Faker) fakeProduct {
	p := fakeProduct{
		name:  fmt.Sprintf("%s %s %s", f.RandomString(productWords), f.RandomString(qualifiers), f.RandomString(sizes)),
		brand: f.RandomString(brands),
		path:  paths[f.Number(0, len(paths)-1)],
		price: round2(f.Float64Range(0.3, 25)),
		ean:   "383" + f.Numerify("##########"),
	}
	if f.Number(1, 3) == 1 {
		p.discount = float64(f.Number(5, 50))
		p.regular = round2(p.price / (1 - p.discount/100))
	}
	return p
}

func lidlPayload(f *gofakeit.Faker, i int, valid bool) map[string]any {
	p := newFakeProduct(f)
	payload := map[string]any{
		"code":                 f.Numerify("######"),
		"ians":                 []any{p.ean},
		"erp_number":           f.Numerify("#######"),
		"name":                 p.name,
		"full_title":           p.brand + " " + p.name,
		"more_details":         f.Sentence(8),
		"currency_code":        "EUR",
		"canonical_url":        fmt.Sprintf("https://www.lidl.si/p/%d", 100000+i),
		"image_list":           []any{fmt.Sprintf("https://www.lidl.si/media/%d.jpg", 100000+i)},
		"price":                p.price,
		"world_of_needs_name":  p.path[0],
		"category_breadcrumbs": []any{map[string]any{"name": p.path[1]}, p.path[2]},
	}
	if p.discount > 0 {
		payload["old_price"] = p.regular
		payload["discount_percentage"] = p.discount
	}
	if valid {
		payload["product_id"] = fmt.Sprintf("%d", 100000+i)
	}
	return payload
}

func dmPayload(f *gofakeit.Faker, i int, valid bool) map[string]any {
	p := newFakeProduct(f)
	payload := map[string]any{
		"gtin":               []any{p.ean},
		"name":               p.name,
		"title":              p.brand + " " + p.name,
		"brandName":          p.brand,
		"relativeProductUrl": fmt.Sprintf("/p/%d.html", 500000+i),
		"imageUrlTemplates":  []any{fmt.Sprintf("https://media.dm-static.com/images/%d/{transformations}", 500000+i)},
		"price":              map[string]any{"value": p.price, "currencyIso": "EUR"},
		"categoryNames":      anyStrings(p.path),
	}
	if f.Bool() {
		payload["ratingValue"] = round2(f.Float64Range(1, 5))
		payload["ratingCount"] = f.Number(1, 900)
	}
	if valid {
		payload["dan"] = fmt.Sprintf("%d", 500000+i)
	}
	return payload
}

func mercatorPayload(f *gofakeit.Faker, i int, valid bool) map[string]any {
	p := newFakeProduct(f)
	data := map[string]any{
		"code":          f.Numerify("#####"),
		"gtins":         []any{map[string]any{"gtin": p.ean}},
		"name":          p.name,
		"brand_name":    p.brand,
		"current_price": p.price,
		"category1":     p.path[0],
		"category2":     p.path[1],
		"category3":     p.path[2],
		"allergens":     allergens(f),
	}
	if p.discount > 0 {
		data["normal_price"] = p.regular
	}
	if valid {
		data["cinv"] = fmt.Sprintf("%d", 300000+i)
	}
	return map[string]any{
		"data":         data,
		"url":          fmt.Sprintf("https://mercatoronline.si/izdelek/%d", 300000+i),
		"mainImageSrc": fmt.Sprintf("https://mercatoronline.si/img/%d.jpg", 300000+i),
	}
}

func sparPayload(f *gofakeit.Faker, i int, valid bool) map[string]any {
	p := newFakeProduct(f)
	regular := p.price
	if p.discount > 0 {
		regular = p.regular
	}
	mv := map[string]any{
		"code-internal":   f.Numerify("########"),
		"name":            p.name,
		"title":           p.brand + " " + p.name,
		"ecr-brand":       p.brand,
		"description":     f.Sentence(6),
		"url":             fmt.Sprintf("https://online.spar.si/p/%d", 700000+i),
		"image-url":       fmt.Sprintf("https://online.spar.si/img/%d.jpg", 700000+i),
		"category-name":   p.path[len(p.path)-1],
		"category-names":  strings.Join(p.path, "|"),
		"price":           regular,
		"regular-price":   regular,
		"best-price":      p.price,
		"is-on-promotion": p.discount > 0,
	}
	if valid {
		mv["product-number"] = fmt.Sprintf("%d", 700000+i)
	}
	payload := map[string]any{"masterValues": mv}
	if valid {
		payload["id"] = fmt.Sprintf("%d", 700000+i)
	}
	return payload
}

func tusPayload(f *gofakeit.Faker, i int, valid bool) map[string]any {
	p := newFakeProduct(f)
	payload := map[string]any{
		"ean":                   p.ean,
		"sku":                   f.Numerify("TUS-#####"),
		"name":                  p.name,
		"url":                   fmt.Sprintf("https://www.tus.si/izdelki/%d", 900000+i),
		"image_url":             fmt.Sprintf("https://www.tus.si/img/%d.png", 900000+i),
		"current_price_numeric": p.price,
		"categories":            anyStrings(p.path),
	}
	if p.discount > 0 {
		payload["regular_price_numeric"] = p.regular
		payload["discount_percentage"] = p.discount
	}
	if valid {
		payload["id"] = fmt.Sprintf("%d", 900000+i)
	}
	return payload
}

func allergens(f *gofakeit.Faker) []any {
	out := make([]any, 0, len(allergenCodes))
	for _, code := range allergenCodes {
		if f.Bool() {
			out = append(out, map[string]any{"value": fmt.Sprintf("%s_%t", code, f.Bool())})
		}
	}
	return out
}

func anyStrings(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
