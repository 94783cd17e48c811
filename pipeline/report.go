package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aluiziolira/go-enrich-products/models"
	"github.com/mattn/go-runewidth"
)

// costPerProduct is the estimated generator cost in USD per enriched product.
const costPerProduct = 0.005

type categoryCount struct {
	name  string
	count int
}

// WriteSummary prints a human-readable report of result to w.
func WriteSummary(w io.Writer, result *models.BatchResult) error {
	if result == nil {
		return fmt.Errorf("nil result")
	}
	stats := result.Stats
	separator := strings.Repeat("-", 50)

	var b strings.Builder
	b.WriteString("\n" + separator + "\n")
	if result.Interrupted {
		b.WriteString("Enhancement interrupted\n")
	} else {
		b.WriteString("Enhancement complete\n")
	}
	fmt.Fprintf(&b, "  Store:         %s\n", result.StoreName)
	fmt.Fprintf(&b, "  Total items:   %d\n", stats.Total)
	fmt.Fprintf(&b, "  Processed:     %d\n", stats.Processed)
	fmt.Fprintf(&b, "  Successful:    %d\n", stats.Successful)
	fmt.Fprintf(&b, "  Failed:        %d\n", stats.Failed)
	fmt.Fprintf(&b, "  Success rate:  %.2f%%\n", successRate(stats.Successful, stats.Processed))
	if len(stats.FailuresByKind) > 0 {
		fmt.Fprintf(&b, "  Failure kinds: %s\n", formatKinds(stats.FailuresByKind))
	}
	if stats.Stored > 0 || stats.StoreFailed > 0 {
		fmt.Fprintf(&b, "  Stored:        %d (%d failed)\n", stats.Stored, stats.StoreFailed)
	}
	fmt.Fprintf(&b, "  Duration:      %v\n", stats.Elapsed())
	fmt.Fprintf(&b, "  Items/sec:     %.2f\n", result.ItemsPerSecond())
	fmt.Fprintf(&b, "  Est. cost:     $%.3f\n", float64(stats.Successful)*costPerProduct)
	if result.OutputFile != "" {
		fmt.Fprintf(&b, "  Output file:   %s\n", result.OutputFile)
	}

	if counts := countCategories(result.Products); len(counts) > 0 {
		width := 0
		for _, c := range counts {
			width = max(width, runewidth.StringWidth(c.name))
		}
		b.WriteString("  Categories:\n")
		for _, c := range counts {
			fmt.Fprintf(&b, "    %s  %d\n", runewidth.FillRight(c.name, width), c.count)
		}
	}
	b.WriteString(separator + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// countCategories tallies main categories, most frequent first.
func countCategories(products []*models.EnrichedProduct) []categoryCount {
	byName := make(map[string]int)
	for _, p := range products {
		if p == nil {
			continue
		}
		byName[p.MainCategory]++
	}
	out := make([]categoryCount, 0, len(byName))
	for name, count := range byName {
		out = append(out, categoryCount{name: name, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

func formatKinds(kinds map[string]int) string {
	keys := make([]string, 0, len(kinds))
	for k := range kinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, kinds[k]))
	}
	return strings.Join(parts, ", ")
}
