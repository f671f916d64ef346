package currency

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"

	"checkout-engine/internal/money"

	"github.com/shopspring/decimal"
)

// Snapshot is a static table of exchange rates against the base currency.
type Snapshot map[string]decimal.Decimal

// Rate returns the snapshot rate for code.
func (s Snapshot) Rate(code string) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Zero, false
	}
	r, ok := s[code]
	return r, ok
}

// Loader fetches a rate snapshot from some location.
type Loader interface {
	Load(ctx context.Context, location string) (Snapshot, error)
}

// parseSnapshot reads a gzipped CSV of "code,rate" lines. Blank lines and lines
// starting with '#' are skipped.
func parseSnapshot(ctx context.Context, r io.Reader) (Snapshot, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	snapshot := make(Snapshot)
	scanner := bufio.NewScanner(gzipReader)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		code, rawRate, ok := strings.Cut(line, ",")
		if !ok {
			return nil, fmt.Errorf("line %d: expected code,rate", lineNo)
		}
		iso, err := money.ParseCurrency(code)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(rawRate))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid rate %q: %w", lineNo, rawRate, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("line %d: rate for %s must be positive", lineNo, iso)
		}
		snapshot[iso] = rate
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading snapshot: %w", err)
	}

	return snapshot, nil
}
