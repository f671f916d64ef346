package main

import (
	"compress/gzip"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Rates are units of each currency per one USD, the default base currency.
var sampleRates = [][]string{
	{"USD", "1"},
	{"EUR", "0.92"},
	{"GBP", "0.79"},
	{"AED", "3.6725"},
	{"SAR", "3.75"},
	{"INR", "83.12"},
	{"JPY", "151.4"},
	{"CHF", "0.90"},
}

// generate_sample_rates writes a gzipped "code,rate" snapshot that the server
// loads through RATES_SNAPSHOT_FILE when the sales channel has no rate.
func main() {
	out := flag.String("out", "data/rates/snapshot.csv.gz", "output file")
	flag.Parse()

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	if err := writeSnapshot(*out, sampleRates); err != nil {
		log.Fatalf("Failed to create %s: %v", *out, err)
	}

	fmt.Printf("Created %s with %d currencies\n", *out, len(sampleRates))
}

func writeSnapshot(filePath string, rows [][]string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	if _, err := gzipWriter.Write([]byte("# code,rate against USD\n")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	w := csv.NewWriter(gzipWriter)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rates: %w", err)
	}
	return nil
}
