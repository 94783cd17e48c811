package normalizer

import (
	"encoding/json"
	"testing"
)

func TestRawText(t *testing.T) {
	raw := Raw{
		"empty":    "   ",
		"null":     nil,
		"number":   json.Number("10082461"),
		"float":    float64(4058172925122),
		"decomp":   "c\u030crni kruh",
		"boolean":  true,
		"object":   map[string]any{"a": 1},
		"fallback": " value ",
	}

	tests := []struct {
		name string
		keys []string
		want string
	}{
		{name: "fallback chain skips empty and null", keys: []string{"empty", "null", "missing", "fallback"}, want: "value"},
		{name: "json number", keys: []string{"number"}, want: "10082461"},
		{name: "large float without exponent", keys: []string{"float"}, want: "4058172925122"},
		{name: "nfc normalization", keys: []string{"decomp"}, want: "črni kruh"},
		{name: "boolean", keys: []string{"boolean"}, want: "true"},
		{name: "object is not text", keys: []string{"object"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := raw.Text(tt.keys...); got != tt.want {
				t.Fatalf("Text(%v) = %q, want %q", tt.keys, got, tt.want)
			}
		})
	}
}

func TestRawNumbers(t *testing.T) {
	raw := Raw{
		"str":      "1.19",
		"comma":    "1,19",
		"number":   json.Number("4.95"),
		"bad":      "abc",
		"count":    "3",
		"promo":    "true",
		"promoOff": "false",
		"flag":     float64(1),
	}

	if f, ok := raw.Float("str"); !ok || f != 1.19 {
		t.Fatalf("Float(str) = %v, %v", f, ok)
	}
	if f, ok := raw.Float("comma"); !ok || f != 1.19 {
		t.Fatalf("Float(comma) = %v, %v", f, ok)
	}
	if f := raw.FloatOr("number"); f != 4.95 {
		t.Fatalf("FloatOr(number) = %v", f)
	}
	if _, ok := raw.Float("bad"); ok {
		t.Fatalf("Float(bad) should not parse")
	}
	if n, ok := raw.Int("count"); !ok || n != 3 {
		t.Fatalf("Int(count) = %v, %v", n, ok)
	}
	if !raw.Bool("promo") || raw.Bool("promoOff") || !raw.Bool("flag") || raw.Bool("missing") {
		t.Fatalf("unexpected Bool results")
	}
}

func TestRawNilSafety(t *testing.T) {
	var raw Raw
	if raw.Text("a") != "" || raw.FirstText("a") != "" || raw.Object("a") != nil || raw.List("a") != nil {
		t.Fatalf("nil Raw must degrade to zero values")
	}
	if _, ok := raw.Float("a"); ok {
		t.Fatalf("nil Raw must not yield numbers")
	}
}
