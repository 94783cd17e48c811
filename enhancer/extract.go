package enhancer

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/aluiziolira/go-enrich-products/models"
)

// ErrNoJSON is returned when a response contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in response")

// ExtractJSONObject returns the span from the first '{' to the last '}'.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

// StripComments removes // line comments and /* */ block comments that occur
// outside JSON string literals. Line breaks ending a line comment are kept.
// An unterminated block comment swallows the rest of the input.
func StripComments(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(text) {
			switch text[i+1] {
			case '/':
				for i+1 < len(text) && text[i+1] != '\n' {
					i++
				}
				continue
			case '*':
				end := strings.Index(text[i+2:], "*/")
				if end < 0 {
					return b.String()
				}
				i += end + 3
				b.WriteByte(' ')
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// ParseResponse decodes a free-form model response over the default field
// set. Fields whose JSON type does not match keep their default value; a
// response without a decodable object is an error.
func ParseResponse(text string) (models.AIFields, error) {
	object, err := ExtractJSONObject(text)
	if err != nil {
		return models.AIFields{}, err
	}

	fields := DefaultAIFields()
	if err := json.Unmarshal([]byte(StripComments(object)), &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return models.AIFields{}, ErrInvalidJSON{Err: err}
		}
	}
	return fields, nil
}

var (
	confidenceLevels = map[string]bool{"high": true, "medium": true, "low": true}
	nutritionGrades  = map[string]bool{"A": true, "B": true, "C": true, "D": true, "E": true}
)

// Validate coerces decoded fields into their documented domains.
func Validate(f *models.AIFields) {
	if f == nil {
		return
	}
	defaults := &defaultFields

	if c, ok := CanonicalCategory(f.MainCategory); ok {
		f.MainCategory = c
	} else {
		f.MainCategory = FallbackCategory
	}
	if f.Subcategory = strings.TrimSpace(f.Subcategory); f.Subcategory == "" {
		f.Subcategory = defaults.Subcategory
	}

	f.Confidence = strings.ToLower(strings.TrimSpace(f.Confidence))
	if !confidenceLevels[f.Confidence] {
		f.Confidence = defaults.Confidence
	}
	f.NutritionGrade = strings.ToUpper(strings.TrimSpace(f.NutritionGrade))
	if !nutritionGrades[f.NutritionGrade] {
		f.NutritionGrade = defaults.NutritionGrade
	}

	f.HealthScore = clamp(f.HealthScore, 1, 100)
	f.AdditiveScore = clamp(f.AdditiveScore, 1, 100)
	f.EnvironmentalScore = clamp(f.EnvironmentalScore, 1, 100)
	f.OptimalQuantity = clamp(f.OptimalQuantity, 1, 10)
	if f.ShelfLifeEstimate < 0 {
		f.ShelfLifeEstimate = defaults.ShelfLifeEstimate
	}
	if f.UnitPriceNormalized < 0 {
		f.UnitPriceNormalized = 0
	}

	if f.RecipeCompatibility == nil {
		f.RecipeCompatibility = []string{}
	}
	if f.KeySellingPoints == nil {
		f.KeySellingPoints = []string{}
	}
	if f.DietCompatibility == nil {
		f.DietCompatibility = []string{}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
