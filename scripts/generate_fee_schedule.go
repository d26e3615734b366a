//go:build ignore

package main

import (
	"compress/gzip"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Generates sample delivery fee files under data/fees. fees2.gz is loaded
// after fees1.gz, so its entry for the second business wins.
//
//	go run scripts/generate_fee_schedule.go
func main() {
	dataDir := "data/fees"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	files := map[string][]string{
		"fees1.gz": {
			"# business_id,fee",
			"11111111-1111-1111-1111-111111111111,50.00",
			"aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa,35.00",
			"bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb,0",
		},
		"fees2.gz": {
			"aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa,25.50",
			"cccccccc-cccc-cccc-cccc-cccccccccccc,5.00",
		},
	}

	for filename, lines := range files {
		filePath := filepath.Join(dataDir, filename)

		if err := writeFeeFile(filePath, lines); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d lines\n", filePath, len(lines))
	}

	fmt.Println("\nSet FEE_SCHEDULE_FILES=data/fees/fees1.gz,data/fees/fees2.gz to load them.")
}

func writeFeeFile(filePath string, lines []string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	if _, err := gz.Write([]byte(strings.Join(lines, "\n") + "\n")); err != nil {
		gz.Close()
		return fmt.Errorf("failed to write fees: %w", err)
	}
	return gz.Close()
}
