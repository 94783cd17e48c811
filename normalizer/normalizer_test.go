package normalizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/aluiziolira/go-enrich-products/models"
)

func mustRaw(t *testing.T, payload string) Raw {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(payload))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return Raw(out)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 0.01
}

func TestDeriveDiscount(t *testing.T) {
	tests := []struct {
		name        string
		current     float64
		original    float64
		explicit    float64
		wantHas     bool
		wantPct     float64
		wantRegular float64
		hasRegular  bool
	}{
		{name: "lower current price", current: 8.99, original: 9.99, wantHas: true, wantPct: 10.01, wantRegular: 9.99, hasRegular: true},
		{name: "computed wins over explicit", current: 0.69, original: 1.49, explicit: 53, wantHas: true, wantPct: 53.69, wantRegular: 1.49, hasRegular: true},
		{name: "both prices zero", current: 0, original: 0},
		{name: "original zero", current: 1.29, original: 0},
		{name: "original lower than current", current: 10, original: 5},
		{name: "explicit percentage back-computes regular", current: 8, explicit: 20, wantHas: true, wantPct: 20, wantRegular: 10, hasRegular: true},
		{name: "explicit percentage without price", explicit: 15, wantHas: true, wantPct: 15},
		{name: "negative percentage", current: 5, explicit: -5},
		{name: "percentage above hundred", current: 5, explicit: 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DeriveDiscount(tt.current, tt.original, tt.explicit)
			if d.HasDiscount != tt.wantHas {
				t.Fatalf("HasDiscount = %v, want %v", d.HasDiscount, tt.wantHas)
			}
			if !tt.wantHas {
				if d.Percentage != nil || d.RegularPrice != nil {
					t.Fatalf("expected no discount facts, got pct=%v regular=%v", d.Percentage, d.RegularPrice)
				}
				return
			}
			if d.Percentage == nil || !approx(*d.Percentage, tt.wantPct) {
				t.Fatalf("Percentage = %v, want %.2f", d.Percentage, tt.wantPct)
			}
			if tt.hasRegular {
				if d.RegularPrice == nil || !approx(*d.RegularPrice, tt.wantRegular) {
					t.Fatalf("RegularPrice = %v, want %.2f", d.RegularPrice, tt.wantRegular)
				}
			} else if d.RegularPrice != nil {
				t.Fatalf("RegularPrice = %v, want nil", *d.RegularPrice)
			}
		})
	}
}

func TestRegistryNormalizeStores(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		name    string
		store   string
		payload string
		check   func(t *testing.T, p *models.Product)
	}{
		{
			name:  "tus discounted",
			store: "tus",
			payload: `{"id": "360200", "ean": "4005401164135", "sku": "4005401164135",
				"name": "Barvice Faber Castell", "current_price_numeric": 8.99,
				"regular_price_numeric": 9.99, "discount_percentage": 10.01}`,
			check: func(t *testing.T, p *models.Product) {
				if p.ProductID != "360200" || p.Title != "Barvice Faber Castell" {
					t.Fatalf("unexpected identity: %+v", p)
				}
				if !p.HasDiscount || p.RegularPrice == nil || *p.RegularPrice != 9.99 {
					t.Fatalf("expected discount with regular 9.99, got %+v", p)
				}
				if !approx(*p.DiscountPercentage, 10.01) {
					t.Fatalf("discount = %v, want 10.01", *p.DiscountPercentage)
				}
			},
		},
		{
			name:  "lidl world of needs leads raw categories",
			store: "LIDL",
			payload: `{"product_id": 10082461, "name": "Bučke", "price": 0.69, "old_price": 1.49,
				"world_of_needs_name": "Sadje in zelenjava", "ians": [null, "82345"],
				"category_breadcrumbs": [{"name": "Hrana in pijača"}, {"name": ""}, {"name": "Sadje"}],
				"image_list": ["https://img/1.jpg"]}`,
			check: func(t *testing.T, p *models.Product) {
				if p.StoreName != "lidl" || p.ProductID != "10082461" {
					t.Fatalf("unexpected identity: %q %q", p.StoreName, p.ProductID)
				}
				want := []string{"Sadje in zelenjava", "Hrana in pijača", "Sadje"}
				if len(p.CategoriesRaw) != len(want) {
					t.Fatalf("CategoriesRaw = %v, want %v", p.CategoriesRaw, want)
				}
				for i := range want {
					if p.CategoriesRaw[i] != want[i] {
						t.Fatalf("CategoriesRaw = %v, want %v", p.CategoriesRaw, want)
					}
				}
				if p.CategoryLevel1 != "Hrana in pijača" || p.CategoryLevel2 != "Sadje" || p.CategoryLevel3 != "" {
					t.Fatalf("levels = %q/%q/%q", p.CategoryLevel1, p.CategoryLevel2, p.CategoryLevel3)
				}
				if p.StoreCategory != "Sadje in zelenjava" {
					t.Fatalf("StoreCategory = %q", p.StoreCategory)
				}
				if p.EANCode != "82345" || p.ImageURL != "https://img/1.jpg" || p.CurrencyCode != "EUR" {
					t.Fatalf("unexpected media/ids: %+v", p)
				}
			},
		},
		{
			name:    "lidl world of needs without breadcrumbs",
			store:   "lidl",
			payload: `{"product_id": "77", "world_of_needs_name": "Pijače", "category_breadcrumbs": []}`,
			check: func(t *testing.T, p *models.Product) {
				if len(p.CategoriesRaw) != 1 || p.CategoriesRaw[0] != "Pijače" {
					t.Fatalf("CategoriesRaw = %v", p.CategoriesRaw)
				}
				if p.CategoryLevel1 != "Pijače" || p.CategoryLevel2 != "" {
					t.Fatalf("levels = %q/%q", p.CategoryLevel1, p.CategoryLevel2)
				}
			},
		},
		{
			name:    "lidl null breadcrumbs",
			store:   "lidl",
			payload: `{"item_id": "55", "name": null, "category_breadcrumbs": null, "price": "abc"}`,
			check: func(t *testing.T, p *models.Product) {
				if p.CategoriesRaw == nil || len(p.CategoriesRaw) != 0 {
					t.Fatalf("CategoriesRaw = %#v, want empty", p.CategoriesRaw)
				}
				if p.CategoryLevel1 != "" || p.Name != "" || p.CurrentPrice != 0 {
					t.Fatalf("unexpected fields: %+v", p)
				}
			},
		},
		{
			name:  "dm big gtin and ratings",
			store: "dm",
			payload: `{"gtin": 4058172925122, "dan": 1461618, "name": "Bio vanilja", "brandName": "dmBio",
				"price": {"value": 4.95, "currencyIso": "EUR"}, "ratingValue": 4.7737, "ratingCount": 190,
				"categoryNames": ["Sestavine za peko", "Hrana"]}`,
			check: func(t *testing.T, p *models.Product) {
				if p.EANCode != "4058172925122" || p.ProductID != "1461618" {
					t.Fatalf("unexpected ids: %q %q", p.EANCode, p.ProductID)
				}
				if p.RatingValue == nil || *p.RatingValue != 4.7737 || p.RatingCount == nil || *p.RatingCount != 190 {
					t.Fatalf("unexpected ratings: %v %v", p.RatingValue, p.RatingCount)
				}
				if p.StoreCategory != "Sestavine za peko, Hrana" || p.CurrentPrice != 4.95 || p.HasDiscount {
					t.Fatalf("unexpected fields: %+v", p)
				}
			},
		},
		{
			name:  "mercator allergens and string prices",
			store: "mercator",
			payload: `{"data": {"cinv": "17931243", "name": "Kisla smetana", "current_price": "1.19",
				"normal_price": 0, "gtins": [{"gtin": "3838900940273"}], "ratings_num": "3",
				"allergens": [{"value": "70_false"}, {"value": "73_true"}, {"value": "broken"}],
				"category1": "MLEKO", "category2": "", "category3": "KISLA SMETANA"},
				"url": "/izdelek/17931243"}`,
			check: func(t *testing.T, p *models.Product) {
				if p.CurrentPrice != 1.19 || p.HasDiscount || p.RegularPrice != nil {
					t.Fatalf("unexpected pricing: %+v", p)
				}
				if len(p.AllergenInfo) != 2 || p.AllergenInfo["70"] || !p.AllergenInfo["73"] {
					t.Fatalf("AllergenInfo = %v", p.AllergenInfo)
				}
				if p.RatingValue != nil || p.RatingCount == nil || *p.RatingCount != 3 {
					t.Fatalf("unexpected ratings: %v %v", p.RatingValue, p.RatingCount)
				}
				if p.EANCode != "3838900940273" || p.CategoryLevel2 != "KISLA SMETANA" {
					t.Fatalf("unexpected fields: %+v", p)
				}
			},
		},
		{
			name:  "spar promotion",
			store: "spar",
			payload: `{"id": "389994", "masterValues": {"is-on-promotion": "true", "price": 4.49,
				"best-price": 3.49, "regular-price": 4.49, "name": "SPAR REPELENT",
				"category-names": "Zdravje| OSEBNA NEGA ||VSI IZDELKI"}}`,
			check: func(t *testing.T, p *models.Product) {
				if p.CurrentPrice != 3.49 || !p.HasDiscount || *p.RegularPrice != 4.49 {
					t.Fatalf("unexpected pricing: %+v", p)
				}
				if !approx(*p.DiscountPercentage, 22.27) {
					t.Fatalf("discount = %v, want 22.27", *p.DiscountPercentage)
				}
				if len(p.CategoriesRaw) != 3 || p.CategoryLevel2 != "OSEBNA NEGA" {
					t.Fatalf("CategoriesRaw = %v", p.CategoriesRaw)
				}
			},
		},
		{
			name:    "spar no promotion",
			store:   "spar",
			payload: `{"id": "292934", "masterValues": {"is-on-promotion": "false", "price": 0.37, "best-price": 0.37, "regular-price": 0.37}}`,
			check: func(t *testing.T, p *models.Product) {
				if p.HasDiscount || p.RegularPrice != nil || p.CurrentPrice != 0.37 {
					t.Fatalf("unexpected pricing: %+v", p)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := reg.Normalize(mustRaw(t, tt.payload), tt.store)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			tt.check(t, p)
		})
	}
}

func TestRegistryNormalizeFailures(t *testing.T) {
	reg := DefaultRegistry()
	reg.Register("broken", NormalizerFunc(func(raw Raw, store string) (*models.Product, error) {
		var m map[string]int
		m["boom"]++
		return nil, nil
	}))

	tests := []struct {
		name    string
		store   string
		raw     Raw
		wantErr error
	}{
		{name: "missing id", store: "tus", raw: Raw{"name": "x"}, wantErr: ErrMissingID},
		{name: "mercator without data", store: "mercator", raw: Raw{"url": "/x"}, wantErr: ErrMissingObject},
		{name: "spar without masterValues", store: "spar", raw: Raw{"id": "1"}, wantErr: ErrMissingObject},
		{name: "non-object payload", store: "dm", raw: nil, wantErr: ErrNotObject},
		{name: "panicking normalizer", store: "broken", raw: Raw{"id": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := reg.Normalize(tt.raw, tt.store)
			if p != nil {
				t.Fatalf("expected no record, got %+v", p)
			}
			var failure *Failure
			if !errors.As(err, &failure) {
				t.Fatalf("expected *Failure, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistryUnknownStore(t *testing.T) {
	_, err := DefaultRegistry().Normalize(Raw{"id": "1"}, "walmart")
	if !errors.Is(err, ErrUnknownStore) {
		t.Fatalf("expected ErrUnknownStore, got %v", err)
	}
	var failure *Failure
	if errors.As(err, &failure) {
		t.Fatalf("unknown store must not be a normalization failure")
	}
}

func TestRegistryStores(t *testing.T) {
	got := DefaultRegistry().Stores()
	want := []string{"dm", "lidl", "mercator", "spar", "tus"}
	if len(got) != len(want) {
		t.Fatalf("Stores() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Stores() = %v, want %v", got, want)
		}
	}
}
