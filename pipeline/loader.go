package pipeline

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/aluiziolira/go-enrich-products/normalizer"
)

// ErrNoProductArray is returned when an input file holds no product list.
var ErrNoProductArray = errors.New("no product array found")

// preferredKeys are checked, in order, before falling back to the first
// non-empty array field of a top-level object.
var preferredKeys = []string{"products", "data", "items"}

// LoadProducts reads a product file. Accepted shapes are a top-level array,
// or an object whose products, data or items field (in that order of
// preference) is an array, or otherwise whose first non-empty array field in
// document order holds the products. Non-object elements load as nil.
func LoadProducts(path string) ([]normalizer.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}

	switch tok {
	case json.Delim('['):
		items, err := decodeArray(dec)
		if err != nil {
			return nil, err
		}
		return toRaw(items), nil
	case json.Delim('{'):
		items, err := decodeObject(dec)
		if err != nil {
			return nil, err
		}
		return toRaw(items), nil
	default:
		return nil, ErrNoProductArray
	}
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	items := make([]any, 0, 256)
	for dec.More() {
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode element %d: %w", len(items), err)
		}
		items = append(items, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	return items, nil
}

func decodeObject(dec *json.Decoder) ([]any, error) {
	preferred := make(map[string][]any, len(preferredKeys))
	var firstList []any

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode input: %w", err)
		}
		key, _ := keyTok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode field %q: %w", key, err)
		}
		list, ok := v.([]any)
		if !ok {
			continue
		}
		if slices.Contains(preferredKeys, key) {
			if _, seen := preferred[key]; !seen {
				preferred[key] = list
			}
		}
		if firstList == nil && len(list) > 0 {
			firstList = list
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}

	for _, key := range preferredKeys {
		if list, ok := preferred[key]; ok {
			return list, nil
		}
	}
	if firstList != nil {
		return firstList, nil
	}
	return nil, ErrNoProductArray
}

func toRaw(items []any) []normalizer.Raw {
	out := make([]normalizer.Raw, len(items))
	for i, item := range items {
		out[i] = normalizer.AsRaw(item)
	}
	return out
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}
