package enhancer

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// FallbackCategory is assigned when a response names no valid category.
const FallbackCategory = "Drugo"

var categories = []string{
	"Meso", "Ribe", "Sadje", "Zelenjava", "Mlečni izdelki", "Jajca",
	"Kruh", "Pekovski izdelki", "Testenine", "Riž", "Žita in kosmiči",
	"Konzerve", "Trajni izdelki", "Zamrznjena hrana", "Sladkarije",
	"Prigrizki", "Nealkoholne pijače", "Alkoholne pijače", "Čaji in kave",
	"Začimbe", "Omake in dodatki", "Olja", "Kis", "Otroška hrana",
	"Biološka hrana", "Hlajeni izdelki", "Sladoled", "Moke in peka", FallbackCategory,
}

var categoryIndex = func() map[string]string {
	idx := make(map[string]string, len(categories))
	for _, c := range categories {
		idx[categoryKey(c)] = c
	}
	return idx
}()

// Categories returns the closed main-category vocabulary in display order.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// CanonicalCategory maps s onto the vocabulary, ignoring case, surrounding
// space and Unicode composition.
func CanonicalCategory(s string) (string, bool) {
	c, ok := categoryIndex[categoryKey(s)]
	return c, ok
}

func categoryKey(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}
