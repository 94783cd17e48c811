package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-enrich-products/samples"
)

func main() {
	count := flag.Int("n", 50, "Products per store")
	seed := flag.Int64("seed", 1, "Random seed (0 = random)")
	invalidEvery := flag.Int("invalid-every", 0, "Drop the product id from every Nth product (0 = never)")
	outDir := flag.String("out", "input", "Output directory")
	storeList := flag.String("stores", strings.Join(samples.Stores(), ","), "Comma-separated stores to generate")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	for _, store := range strings.Split(*storeList, ",") {
		store = strings.TrimSpace(strings.ToLower(store))
		if store == "" {
			continue
		}
		payloads, err := samples.Generate(store, samples.Options{
			Count:        *count,
			Seed:         *seed,
			InvalidEvery: *invalidEvery,
		})
		if err != nil {
			slog.Error("generate products", slog.String("store", store), slog.Any("error", err))
			os.Exit(1)
		}

		path := filepath.Join(*outDir, fmt.Sprintf("%s_products.json", store))
		if err := writeDocument(path, samples.Document(store, payloads)); err != nil {
			slog.Error("write products", slog.String("file", path), slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("products written", slog.String("store", store), slog.Int("count", len(payloads)), slog.String("file", path))
	}
}

func writeDocument(path string, doc any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		f.Close()
		return fmt.Errorf("encode products: %w", err)
	}
	if err := buffer.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush products: %w", err)
	}
	return f.Close()
}
