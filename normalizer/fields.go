package normalizer

import (
	"math"
	"strings"

	"github.com/aluiziolira/go-enrich-products/models"
)

// Discount holds the derived discount facts for one product.
type Discount struct {
	RegularPrice *float64
	Percentage   *float64
	HasDiscount  bool
}

// DeriveDiscount computes discount facts from a current price, an original
// price and an explicit percentage. A lower current price wins over an
// explicit percentage; percentages outside (0, 100] mean no discount.
func DeriveDiscount(current, original, explicitPct float64) Discount {
	if current > 0 && original > 0 && current < original {
		pct := round2((original - current) / original * 100)
		regular := original
		return Discount{RegularPrice: &regular, Percentage: &pct, HasDiscount: true}
	}

	if explicitPct > 0 && explicitPct <= 100 {
		pct := round2(explicitPct)
		d := Discount{Percentage: &pct, HasDiscount: true}
		if current > 0 && explicitPct < 100 {
			regular := round2(current / (1 - explicitPct/100))
			if regular > current {
				d.RegularPrice = &regular
			}
		}
		return d
	}

	return Discount{}
}

// Apply copies the discount facts onto p.
func (d Discount) Apply(p *models.Product) {
	p.RegularPrice = d.RegularPrice
	p.DiscountPercentage = d.Percentage
	p.HasDiscount = d.HasDiscount
}

// SplitCategories splits a delimited category path, trimming empty tokens.
func SplitCategories(path, sep string) []string {
	if path == "" {
		return nil
	}
	var out []string
	for _, token := range strings.Split(path, sep) {
		if token = cleanText(token); token != "" {
			out = append(out, token)
		}
	}
	return out
}

// setCategories stores the ordered tokens and assigns the first three levels.
func setCategories(p *models.Product, tokens []string) {
	cleaned := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token = cleanText(token); token != "" {
			cleaned = append(cleaned, token)
		}
	}
	p.CategoriesRaw = cleaned

	levels := []*string{&p.CategoryLevel1, &p.CategoryLevel2, &p.CategoryLevel3}
	for i, level := range levels {
		if i < len(cleaned) {
			*level = cleaned[i]
		} else {
			*level = ""
		}
	}
}

func optionalFloat(r Raw, key string) *float64 {
	f, ok := r.Float(key)
	if !ok {
		return nil
	}
	return &f
}

func optionalInt(r Raw, key string) *int {
	n, ok := r.Int(key)
	if !ok {
		return nil
	}
	return &n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
