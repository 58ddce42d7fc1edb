// Command seedschema converts a field-layout workbook into a JSON descriptor.
// The first sheet needs a header row with a field-name column (Field, Field Name
// or Name) and a length column (Length, Width or Size).
// Usage: go run ./cmd/seedschema <layout.xlsx> <out.json>
// Output is laid out for NJCRASHES_SCHEMA_DIR, e.g. layouts/2017/Accidents.json.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"njcrashes/internal/domain"
	"njcrashes/internal/schema"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Println("Usage: seedschema <layout.xlsx> <out.json>")
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2]); err != nil {
		log.Fatal(err)
	}
}

func run(xlsxPath, outPath string) error {
	in, err := os.Open(xlsxPath)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = in.Close() }()

	fields, err := schema.ParseWorkbook(in)
	if err != nil {
		return fmt.Errorf("parse workbook: %w", err)
	}
	// Reject layouts the decoder would refuse before writing anything.
	s, err := domain.NewSchema(domain.KindCrash, domain.Era2017, fields)
	if err != nil {
		return fmt.Errorf("validate layout: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() { _ = out.Close() }()

	if err := schema.WriteJSON(out, fields); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}
	log.Printf("wrote %d fields (width %d) to %s", s.NumFields(), s.Width(), outPath)
	return nil
}
