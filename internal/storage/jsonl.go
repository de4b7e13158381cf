package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// ReadJSONL reads one JSON document per line. A missing file yields no records.
func ReadJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening jsonl file: %w", err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)

	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return nil, fmt.Errorf("parsing line %d: invalid JSON", lineNum)
		}
		records = append(records, json.RawMessage(append([]byte(nil), line...)))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading jsonl file: %w", err)
	}

	return records, nil
}

// WriteJSONL writes records one per line, replacing existing content.
func WriteJSONL(path string, records []json.RawMessage) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating jsonl file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, r := range records {
		compact, err := compactJSON(r)
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
		if _, err := w.Write(compact); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	return w.Flush()
}

func compactJSON(r json.RawMessage) ([]byte, error) {
	var v any
	if err := json.Unmarshal(r, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
