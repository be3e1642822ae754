package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"solanaetl/internal/model"
)

// ReadItems loads the items of a CSV file (header row required) or, for any
// other extension, a JSON-lines file. CSV values are kept as strings and
// JSON numbers as json.Number; the mappers accept both.
func ReadItems(path string) ([]model.Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer file.Close()

	if strings.HasSuffix(path, ".csv") {
		return ReadCSV(file)
	}
	return ReadJSONL(file)
}

// ReadCSV parses CSV rows keyed by the header row.
func ReadCSV(r io.Reader) ([]model.Item, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	var items []model.Item
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		item := make(model.Item, len(header))
		for i, col := range header {
			item[col] = row[i]
		}
		items = append(items, item)
	}
}

// ReadJSONL parses one JSON object per non-empty line.
func ReadJSONL(r io.Reader) ([]model.Item, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	var items []model.Item
	for line := 1; scanner.Scan(); line++ {
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		var item model.Item
		if err := dec.Decode(&item); err != nil {
			return nil, fmt.Errorf("parse line %d: %w", line, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return items, nil
}

// ExtractField writes the value of field for every item, one per line.
func ExtractField(items []model.Item, field string, w io.Writer) error {
	out := bufio.NewWriter(w)
	for _, item := range items {
		if _, err := out.WriteString(FormatValue(item[field]) + "\n"); err != nil {
			return err
		}
	}
	return out.Flush()
}
