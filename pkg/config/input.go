package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ReadJSONInput parses a request body argument. The value may be literal
// JSON, "@path" to read a file, or a bare path to an existing file. Numbers
// are kept as json.Number so 64-bit identifiers survive without float
// precision loss.
func ReadJSONInput(raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "@") {
		return readJSONFile(strings.TrimPrefix(trimmed, "@"))
	}
	if _, err := os.Stat(trimmed); err == nil {
		return readJSONFile(trimmed)
	}
	return parseJSON([]byte(trimmed), "input")
}

func readJSONFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read json file %s: %w", path, err)
	}
	return parseJSON(data, path)
}

func parseJSON(data []byte, source string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", source, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON in %s: trailing data after value", source)
	}
	return v, nil
}
