package feeschedule

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"

	"food-kart/internal/pricing"

	"github.com/google/uuid"
)

// parse reads a gzipped fee file. Blank lines and lines starting with '#'
// are skipped; any other malformed line fails the whole file.
func parse(ctx context.Context, r io.Reader, source string) (*Table, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	table := NewTable(1024)

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%100_000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idPart, feePart, ok := strings.Cut(line, ",")
		if !ok {
			return nil, fmt.Errorf("%s:%d: expected business_id,fee", source, lineNo)
		}

		businessID, err := uuid.Parse(strings.TrimSpace(idPart))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid business id: %w", source, lineNo, err)
		}

		fee, err := pricing.ParseAmount(strings.TrimSpace(feePart))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid fee: %w", source, lineNo, err)
		}
		if fee.IsNegative() {
			return nil, fmt.Errorf("%s:%d: fee must not be negative", source, lineNo)
		}

		table.Set(businessID, fee)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading fee file %s: %w", source, err)
	}

	return table, nil
}
