// Package store persists enriched products keyed by store and product id.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-enrich-products/models"
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("record not found")

// Key returns the identity of a record: "<store>/<product id>".
func Key(storeName, productID string) string {
	return storeName + "/" + productID
}

func recordKey(p *models.EnrichedProduct) (string, error) {
	if p == nil {
		return "", fmt.Errorf("nil record")
	}
	if p.StoreName == "" || p.ProductID == "" {
		return "", fmt.Errorf("record needs store name and product id, got %q/%q", p.StoreName, p.ProductID)
	}
	return Key(p.StoreName, p.ProductID), nil
}

func encodeRecord(p *models.EnrichedProduct) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*models.EnrichedProduct, error) {
	var p models.EnrichedProduct
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &p, nil
}
