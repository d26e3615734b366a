package feeschedule

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipLines(t *testing.T, lines []string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// createTestFeeFile creates a gzipped fee file in a temp dir.
func createTestFeeFile(t *testing.T, filename string, lines []string) string {
	t.Helper()

	filePath := filepath.Join(t.TempDir(), filename)
	require.NoError(t, os.WriteFile(filePath, gzipLines(t, lines), 0o600))
	return filePath
}

func TestFileLoader_Load_Success(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	a, b := uuid.New(), uuid.New()
	filePath := createTestFeeFile(t, "fees.gz", []string{
		"# business_id,fee",
		a.String() + ",12.50",
		"",
		"   ",
		b.String() + " , 0",
	})

	table, err := loader.Load(context.Background(), filePath)

	require.NoError(t, err)
	require.NotNil(t, table)
	assert.Equal(t, 2, table.Size())

	fee, ok := table.Fee(a)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("12.5").Equal(fee))

	fee, ok = table.Fee(b)
	require.True(t, ok)
	assert.True(t, fee.IsZero())

	_, ok = table.Fee(uuid.New())
	assert.False(t, ok)
}

func TestFileLoader_Load_Errors(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name     string
		lines    []string
		errMatch string
	}{
		{
			name:     "Missing separator",
			lines:    []string{uuid.NewString()},
			errMatch: "expected business_id,fee",
		},
		{
			name:     "Bad business id",
			lines:    []string{"not-a-uuid,1.00"},
			errMatch: "invalid business id",
		},
		{
			name:     "Bad fee",
			lines:    []string{uuid.NewString() + ",abc"},
			errMatch: "invalid fee",
		},
		{
			name:     "Negative fee",
			lines:    []string{uuid.NewString() + ",-1"},
			errMatch: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := createTestFeeFile(t, "bad.gz", tt.lines)

			table, err := loader.Load(ctx, filePath)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMatch)
			assert.Contains(t, err.Error(), ":1:")
			assert.Nil(t, table)
		})
	}
}

func TestFileLoader_Load_MissingFile(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	table, err := loader.Load(context.Background(), "/nonexistent/fees.gz")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open fee file")
	assert.Nil(t, table)
}

func TestFileLoader_Load_NotGzipped(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := filepath.Join(t.TempDir(), "plain.gz")
	require.NoError(t, os.WriteFile(filePath, []byte("plain text"), 0o600))

	_, err := loader.Load(context.Background(), filePath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create gzip reader")
}

func TestFileLoader_Load_CancelledContext(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	lines := make([]string, 100_001)
	for i := range lines {
		lines[i] = "# filler"
	}
	filePath := createTestFeeFile(t, "big.gz", lines)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.Load(ctx, filePath)
	assert.ErrorIs(t, err, context.Canceled)
}
