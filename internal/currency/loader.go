package currency

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for gzipped snapshot files on local disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based snapshot loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "rates-loader").Logger(),
	}
}

// Load reads a gzipped rate snapshot from filePath.
func (l *fileLoader) Load(ctx context.Context, filePath string) (Snapshot, error) {
	l.logger.Info().Str("file", filePath).Msg("loading rate snapshot")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open rate snapshot")
		return nil, fmt.Errorf("failed to open rate snapshot %s: %w", filePath, err)
	}
	defer file.Close()

	snapshot, err := parseSnapshot(ctx, file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to parse rate snapshot")
		return nil, fmt.Errorf("failed to parse rate snapshot %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("rates_loaded", len(snapshot)).
		Msg("rate snapshot loaded successfully")

	return snapshot, nil
}
