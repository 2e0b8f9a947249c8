package params

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteKV writes the parameter set as key,value lines, one per parameter,
// keys sorted. Non-string values are written in their round-trippable
// literal form (strconv formatting).
func (p Params) WriteKV(dst io.Writer) error {
	bw := bufio.NewWriter(dst)
	for _, k := range p.Keys() {
		if _, err := fmt.Fprintf(bw, "%s,%s\n", k, formatValue(p[k])); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadKV reads key,value lines written by WriteKV. Values are coerced to
// bool or float64 where syntactically unambiguous, otherwise kept as
// strings. Values containing commas keep everything after the first comma.
func ReadKV(src io.Reader) (Params, error) {
	p := make(Params)
	sc := bufio.NewScanner(src)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, raw, found := strings.Cut(line, ",")
		if !found {
			return nil, fmt.Errorf("params: malformed line %q", line)
		}
		p[key] = coerce(raw)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// coerce turns a string cell into a bool or number when unambiguous.
func coerce(s string) any {
	switch s {
	case "true", "True":
		return true
	case "false", "False":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
