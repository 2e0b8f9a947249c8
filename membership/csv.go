package membership

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes the table in the archive layout: an unnamed index column
// of row names, then id_no, then one column per method, in column order.
func (t *Table) WriteCSV(dst io.Writer) error {
	w := csv.NewWriter(dst)

	header := append([]string{"", IDColumn}, t.methods...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, name := range t.names {
		rec := make([]string, 0, len(header))
		rec = append(rec, name, strconv.Itoa(t.ids[name]))
		for _, m := range t.methods {
			g, found := t.cells[m][name]
			if !found {
				g = Unassigned
			}
			rec = append(rec, strconv.Itoa(g))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadCSV reads a table written by WriteCSV. Cell values are parsed as
// numbers; a float cell (as older table files may carry) is truncated to its
// integer group id. Empty cells load as Unassigned.
func ReadCSV(src io.Reader) (*Table, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("membership: read header: %w", err)
	}
	if len(header) < 2 || header[1] != IDColumn {
		return nil, fmt.Errorf("membership: malformed header, want %q as second column", IDColumn)
	}
	methods := header[2:]

	t := NewTable()
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("membership: read row: %w", err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("membership: row %q has %d fields, want %d", rec[0], len(rec), len(header))
		}
		name := rec[0]
		id, err := parseCell(rec[1])
		if err != nil {
			return nil, fmt.Errorf("membership: row %q: bad id_no: %w", name, err)
		}
		if err := t.Add(name, id); err != nil {
			return nil, err
		}
		for i, m := range methods {
			if !t.HasMethod(m) {
				t.methods = append(t.methods, m)
				t.cells[m] = make(map[string]int)
			}
			if rec[2+i] == "" {
				t.cells[m][name] = Unassigned
				continue
			}
			g, err := parseCell(rec[2+i])
			if err != nil {
				return nil, fmt.Errorf("membership: row %q, column %q: %w", name, m, err)
			}
			t.cells[m][name] = g
		}
	}
	t.rebuildIndex()
	return t, nil
}

func parseCell(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
