package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"njcrashes/internal/domain"
)

// DescriptorExtensions are tried in order when looking up a layout.
var DescriptorExtensions = []string{".json", ".yaml", ".yml", ".xlsx"}

// ParseDescriptor decodes an ordered {name, length} list. The format is chosen
// from the file extension of name.
func ParseDescriptor(name string, data []byte) ([]domain.FieldSpec, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return parseJSON(data)
	case ".yaml", ".yml":
		return parseYAML(data)
	case ".xlsx":
		return ParseWorkbook(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedDescriptor, name)
	}
}

func parseJSON(data []byte) ([]domain.FieldSpec, error) {
	var fields []domain.FieldSpec
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: json: %v", domain.ErrInvalidSchema, err)
	}
	return fields, nil
}

func parseYAML(data []byte) ([]domain.FieldSpec, error) {
	var fields []domain.FieldSpec
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: yaml: %v", domain.ErrInvalidSchema, err)
	}
	return fields, nil
}

// header aliases recognized in layout workbooks.
var (
	nameHeaders   = map[string]bool{"field": true, "field name": true, "name": true}
	lengthHeaders = map[string]bool{"length": true, "width": true, "size": true}
)

// ParseWorkbook reads a layout workbook. The first sheet must contain a header
// row with a field-name column and a length column; rows with an empty name are
// skipped.
func ParseWorkbook(r io.Reader) ([]domain.FieldSpec, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: xlsx: %v", domain.ErrInvalidSchema, err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("%w: xlsx rows: %v", domain.ErrInvalidSchema, err)
	}

	nameCol, lengthCol, headerRow := -1, -1, -1
	for i, row := range rows {
		for j, cell := range row {
			h := strings.ToLower(strings.TrimSpace(cell))
			if nameHeaders[h] && nameCol < 0 {
				nameCol = j
			}
			if lengthHeaders[h] && lengthCol < 0 {
				lengthCol = j
			}
		}
		if nameCol >= 0 && lengthCol >= 0 {
			headerRow = i
			break
		}
		nameCol, lengthCol = -1, -1
	}
	if headerRow < 0 {
		return nil, fmt.Errorf("%w: xlsx: no header row with field name and length columns", domain.ErrInvalidSchema)
	}

	var fields []domain.FieldSpec
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		name := strings.TrimSpace(cellVal(row, nameCol))
		if name == "" {
			continue
		}
		raw := strings.TrimSpace(cellVal(row, lengthCol))
		length, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: xlsx row %d: length %q for %q", domain.ErrInvalidSchema, i+1, raw, name)
		}
		fields = append(fields, domain.FieldSpec{Name: name, Length: length})
	}
	return fields, nil
}

func cellVal(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

// WriteJSON renders fields in the descriptor JSON format, one field per line.
func WriteJSON(w io.Writer, fields []domain.FieldSpec) error {
	if _, err := io.WriteString(w, "[\n"); err != nil {
		return err
	}
	for i, f := range fields {
		name, err := json.Marshal(f.Name)
		if err != nil {
			return err
		}
		sep := ","
		if i == len(fields)-1 {
			sep = ""
		}
		if _, err := fmt.Fprintf(w, "  {\"name\": %s, \"length\": %d}%s\n", name, f.Length, sep); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "]\n")
	return err
}
