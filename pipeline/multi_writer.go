package pipeline

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aluiziolira/go-enrich-products/models"
)

type namedWriter struct {
	name   string
	writer OutputWriter
}

// MultiWriter fans every batch out to several OutputWriters.
type MultiWriter struct {
	mu      sync.Mutex
	writers []namedWriter
}

// NewMultiWriter combines writers in name order. Names label errors.
func NewMultiWriter(writers map[string]OutputWriter) *MultiWriter {
	mw := &MultiWriter{}
	for name, w := range writers {
		mw.writers = append(mw.writers, namedWriter{name: name, writer: w})
	}
	slices.SortFunc(mw.writers, func(a, b namedWriter) int {
		return cmp.Compare(a.name, b.name)
	})
	return mw
}

// NewDualWriter writes CSV to csvFilename and JSONL to jsonFilename.
func NewDualWriter(csvFilename, jsonFilename string) (*MultiWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}
	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("create json writer: %w", err)
	}
	return NewMultiWriter(map[string]OutputWriter{"csv": csvWriter, "json": jsonWriter}), nil
}

// Write stops at the first writer that fails.
func (mw *MultiWriter) Write(products []*models.EnrichedProduct) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	for _, nw := range mw.writers {
		if err := nw.writer.Write(products); err != nil {
			return fmt.Errorf("%s write: %w", nw.name, err)
		}
	}
	return nil
}

// Close closes every writer and joins the failures.
func (mw *MultiWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.each("close", OutputWriter.Close)
}

// Validate validates every output and joins the failures.
func (mw *MultiWriter) Validate() error {
	return mw.each("validation", OutputWriter.Validate)
}

func (mw *MultiWriter) each(op string, fn func(OutputWriter) error) error {
	var errs []error
	for _, nw := range mw.writers {
		if err := fn(nw.writer); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", nw.name, op, err))
		}
	}
	return errors.Join(errs...)
}
