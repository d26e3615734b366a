package feeschedule

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for gzipped fee files on local disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based fee loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "fee-loader").Logger(),
	}
}

// Load reads a gzipped fee file from disk.
func (l *fileLoader) Load(ctx context.Context, filePath string) (*Table, error) {
	l.logger.Info().Str("file", filePath).Msg("loading fee file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open fee file")
		return nil, fmt.Errorf("failed to open fee file %s: %w", filePath, err)
	}
	defer file.Close()

	table, err := parse(ctx, file, filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to read fee file")
		return nil, err
	}

	l.logger.Info().
		Str("file", filePath).
		Int("fees_loaded", table.Size()).
		Msg("fee file loaded successfully")

	return table, nil
}
