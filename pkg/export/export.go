// Package export writes flat records to delimited files
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/sirosfoundation/go-esocial/internal/errs"
)

// Field is a named value of a record
type Field struct {
	Name  string
	Value string
}

// Record is an ordered list of fields. Field order is the column order.
type Record []Field

// Names returns the field names in order
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Values returns the field values in order
func (r Record) Values() []string {
	values := make([]string, len(r))
	for i, f := range r {
		values[i] = f.Value
	}
	return values
}

// FromMap builds a record from m. Keys listed in order come first, in that
// order; the remaining keys follow sorted by name.
func FromMap(m map[string]string, order ...string) Record {
	record := make(Record, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, name := range order {
		value, ok := m[name]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		record = append(record, Field{Name: name, Value: value})
	}

	rest := make([]string, 0, len(m)-len(seen))
	for name := range m {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		record = append(record, Field{Name: name, Value: m[name]})
	}
	return record
}

// WriteRecord writes a header line with the field names and one line with
// the values to path, replacing any existing file. Values containing the
// delimiter, quotes or line breaks are quoted. A line holding a single
// empty value is written as "" so readers do not skip it as blank.
func WriteRecord(record Record, path string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(record.Names()); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}
	if len(record) == 1 && record[0].Value == "" {
		w.Flush()
		buf.WriteString("\"\"\n")
	} else if err := w.Write(record.Values()); err != nil {
		return fmt.Errorf("failed to encode values: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", errs.ErrIO, path, err)
	}
	return nil
}
